// Package wordlist provides the word pools behind text generation:
// embedded common lists per language, a curated tricky-word list for
// the expert level, and optional user-supplied lists on disk.
package wordlist

import (
	"bufio"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

//go:embed data/*.txt
var dataFS embed.FS

// FallbackLanguage is used when a language has no embedded list.
const FallbackLanguage = "en"

// Languages returns the language codes with an embedded common list.
func Languages() []string {
	entries, err := dataFS.ReadDir("data")
	if err != nil {
		return []string{FallbackLanguage}
	}
	var langs []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "common_") && strings.HasSuffix(name, ".txt") {
			langs = append(langs, strings.TrimSuffix(strings.TrimPrefix(name, "common_"), ".txt"))
		}
	}
	return langs
}

// Common returns the embedded common-word pool for lang, falling back
// to English for unknown languages.
func Common(lang string) []string {
	words, err := readEmbedded("common_" + strings.ToLower(lang) + ".txt")
	if err != nil {
		words, _ = readEmbedded("common_" + FallbackLanguage + ".txt")
	}
	return words
}

// Expert returns the tricky-word pool for lang. ok is false when the
// language has no expert list; callers fall back to Common.
func Expert(lang string) (words []string, ok bool) {
	words, err := readEmbedded("expert_" + strings.ToLower(lang) + ".txt")
	if err != nil {
		return nil, false
	}
	return words, true
}

func readEmbedded(name string) ([]string, error) {
	raw, err := dataFS.ReadFile("data/" + name)
	if err != nil {
		return nil, err
	}
	var words []string
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			words = append(words, line)
		}
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("embedded word list %s is empty", name)
	}
	return words, nil
}

// UserListPath returns where a user-supplied list for lang would live
// under the config directory.
func UserListPath(configDir, lang string) string {
	return filepath.Join(configDir, "wordlists", strings.ToLower(lang)+".txt")
}

// Resolve returns the pool for lang: the user list under configDir when
// one exists, the embedded list otherwise. User lists pass through the
// language filter so stray punctuation or wrong-script entries do not
// leak into generated text.
func Resolve(configDir, lang string) ([]string, error) {
	path := UserListPath(configDir, lang)
	if _, err := os.Stat(path); err != nil {
		return Common(lang), nil
	}
	words, err := LoadWords(path)
	if err != nil {
		return nil, fmt.Errorf("load user word list: %w", err)
	}
	filter := FilterForLang(lang)
	kept := words[:0]
	for _, w := range words {
		if filter(w) {
			kept = append(kept, w)
		}
	}
	if len(kept) == 0 {
		return nil, fmt.Errorf("user word list %s has no usable words", path)
	}
	return kept, nil
}

// LoadWords reads one word per line from the provided file path.
func LoadWords(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := file.Close(); cerr != nil {
			// Best-effort close for read-only word list.
			_ = cerr
		}
	}()

	var words []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		words = append(words, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return nil, fmt.Errorf("word list is empty")
	}
	return words, nil
}
