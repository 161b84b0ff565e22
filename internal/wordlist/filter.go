package wordlist

import (
	"strings"
	"unicode"
)

// FilterFunc reports whether a word belongs in a typing pool.
type FilterFunc func(string) bool

// FilterForLang returns the pool filter for a language. English pools
// stay plain ASCII so every word is typeable without dead keys; other
// languages accept any lowercase letters, accents included.
func FilterForLang(lang string) FilterFunc {
	if strings.EqualFold(lang, "en") {
		return asciiLowercase
	}
	return lowercaseLetters
}

func asciiLowercase(word string) bool {
	if word == "" {
		return false
	}
	for i := 0; i < len(word); i++ {
		ch := word[i]
		if ch < 'a' || ch > 'z' {
			return false
		}
	}
	return true
}

func lowercaseLetters(word string) bool {
	if word == "" {
		return false
	}
	for _, r := range word {
		if !unicode.IsLetter(r) || unicode.IsUpper(r) {
			return false
		}
	}
	return true
}
