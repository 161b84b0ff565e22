// Package generator builds target texts for typing attempts.
package generator

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"
	"time"
	"unicode"

	"keyduel/internal/model"
	"keyduel/internal/wordlist"
)

// Mixed-level decoration odds.
const (
	mixedPunctPct = 0.15
	mixedNumPct   = 0.10
	mixedQuotePct = 0.10
	mixedCapsPct  = 0.15
)

// TimedWordsPerSecond sizes the over-long text for timed attempts so
// running out of words is effectively impossible.
const TimedWordsPerSecond = 4

// MinTimedWords floors the timed-text length.
const MinTimedWords = 100

var mixedPunct = []rune{'.', ',', ';', ':', '!', '?'}
var mixedQuotes = []rune{'"', '\''}

// Generator produces randomized typing text.
type Generator struct {
	rnd   *rand.Rand
	pools map[string][]string
}

// New returns a Generator seeded with the current time.
func New() *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

// NewSeeded returns a deterministic Generator for tests.
func NewSeeded(seed int64) *Generator {
	return &Generator{rnd: rand.New(rand.NewSource(seed))}
}

// SetPool overrides the common-word pool for a language, typically
// with a user-provided list. An empty list clears the override.
func (g *Generator) SetPool(language string, words []string) {
	if g.pools == nil {
		g.pools = map[string][]string{}
	}
	if len(words) == 0 {
		delete(g.pools, language)
		return
	}
	g.pools[language] = words
}

func (g *Generator) common(language string) []string {
	if pool, ok := g.pools[language]; ok {
		return pool
	}
	return wordlist.Common(language)
}

// Generate builds a wordCount-long target text for the level. Simple,
// intermediate and time draw common words; expert uses the tricky-word
// list where the language has one; mixed interleaves common and expert
// words and decorates them with capitals, punctuation, numbers and
// quotes. The result is never empty for a positive wordCount.
func (g *Generator) Generate(level model.DifficultyLevel, language string, wordCount int) (string, error) {
	if wordCount <= 0 {
		return "", fmt.Errorf("word count must be positive, got %d", wordCount)
	}
	switch level {
	case model.LevelExpert:
		pool, ok := wordlist.Expert(language)
		if !ok {
			pool = g.common(language)
		}
		return joinWords(g.pick(pool, wordCount)), nil
	case model.LevelMixed:
		return joinWords(g.mixed(language, wordCount)), nil
	default:
		return joinWords(g.pick(g.common(language), wordCount)), nil
	}
}

// TimedText builds the over-long text for a timed attempt of the given
// duration.
func (g *Generator) TimedText(language string, seconds int) (string, error) {
	count := seconds * TimedWordsPerSecond
	if count < MinTimedWords {
		count = MinTimedWords
	}
	return g.Generate(model.LevelTime, language, count)
}

// PracticeText builds a text biased toward previously missed words.
// missed maps a word to how often it contained an error; factor scales
// how strongly those words are favored.
func (g *Generator) PracticeText(language string, wordCount int, missed map[string]int, factor float64) (string, error) {
	if wordCount <= 0 {
		return "", fmt.Errorf("word count must be positive, got %d", wordCount)
	}
	pool := g.common(language)
	if len(missed) == 0 {
		return joinWords(g.pick(pool, wordCount)), nil
	}
	return joinWords(g.pickWeighted(pool, wordCount, missed, factor)), nil
}

func (g *Generator) pick(pool []string, count int) []string {
	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		result = append(result, pool[g.rnd.Intn(len(pool))])
	}
	return result
}

func (g *Generator) pickWeighted(pool []string, count int, missed map[string]int, factor float64) []string {
	weights := make([]float64, len(pool))
	total := 0.0
	for i, word := range pool {
		w := 1.0 + float64(missed[word])*factor
		weights[i] = w
		total += w
	}

	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		r := g.rnd.Float64() * total
		acc := 0.0
		idx := 0
		for j, w := range weights {
			acc += w
			if r <= acc {
				idx = j
				break
			}
		}
		result = append(result, pool[idx])
	}
	return result
}

func (g *Generator) mixed(language string, count int) []string {
	common := g.common(language)
	expert, ok := wordlist.Expert(language)
	if !ok {
		expert = common
	}

	result := make([]string, 0, count)
	for i := 0; i < count; i++ {
		pool := common
		if i%3 == 2 {
			pool = expert
		}
		word := pool[g.rnd.Intn(len(pool))]
		word = applyCaps(g.rnd, word, mixedCapsPct)

		r := g.rnd.Float64()
		switch {
		case r < mixedPunctPct && i < count-1:
			word = applyPunct(g.rnd, word, 1, mixedPunct)
		case r < mixedPunctPct+mixedNumPct:
			word = strconv.Itoa(g.rnd.Intn(900) + 100)
		case r < mixedPunctPct+mixedNumPct+mixedQuotePct:
			quote := mixedQuotes[g.rnd.Intn(len(mixedQuotes))]
			word = string(quote) + word + string(quote)
		}
		result = append(result, word)
	}
	return result
}

func joinWords(words []string) string {
	return strings.Join(words, " ")
}

func applyCaps(rnd *rand.Rand, word string, capsPct float64) string {
	if capsPct <= 0 {
		return word
	}
	if rnd.Float64() > capsPct {
		return word
	}
	runes := []rune(word)
	if len(runes) == 0 {
		return word
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}

func applyPunct(rnd *rand.Rand, word string, punctPct float64, punctSet []rune) string {
	if punctPct <= 0 || len(punctSet) == 0 {
		return word
	}
	if rnd.Float64() > punctPct {
		return word
	}
	punct := punctSet[rnd.Intn(len(punctSet))]
	return word + string(punct)
}
