package wordlist

import "testing"

func TestFilterEnglishASCII(t *testing.T) {
	filter := FilterForLang("en")
	if !filter("hello") {
		t.Fatalf("expected hello to pass english filter")
	}
	for _, word := range []string{"résumé", "naïve", "don’t", "co-op", "Hello", ""} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}

func TestFilterAccentedLanguages(t *testing.T) {
	filter := FilterForLang("fr")
	for _, word := range []string{"été", "naïve", "straße", "mot"} {
		if !filter(word) {
			t.Fatalf("expected %q to pass accented filter", word)
		}
	}
	for _, word := range []string{"Été", "don't", "co-op", ""} {
		if filter(word) {
			t.Fatalf("expected %q to be rejected", word)
		}
	}
}
