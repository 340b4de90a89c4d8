// Package nlp turns raw Portuguese email text into the stemmed token stream
// consumed by the TF-IDF vectorizer. Everything here is pure and safe for
// concurrent use.
package nlp

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/portuguese"
)

// Character classes mirror Unicode-aware regex semantics: "space" is every
// rune for which a Unicode string considers itself whitespace, and a token
// rune is a word rune that is not a decimal digit.
const (
	spaceClass    = `\t\n\x{0b}\f\r \x{1c}-\x{1f}\x{85}\p{Z}`
	nonSpaceRunes = `[^` + spaceClass + `]`
)

var (
	linkPattern       = regexp.MustCompile(`http` + nonSpaceRunes + `+|www` + nonSpaceRunes + `+|@` + nonSpaceRunes + `+|` + nonSpaceRunes + `+@` + nonSpaceRunes + `+`)
	digitPattern      = regexp.MustCompile(`\p{Nd}+`)
	whitespacePattern = regexp.MustCompile(`[` + spaceClass + `]+`)
	tokenPattern      = regexp.MustCompile(`[\p{L}\p{Nl}\p{No}_]+`)
)

// Normalizer implements the fixed Portuguese cleaning, tokenizing and stemming
// chain. The zero value is not usable; call NewNormalizer.
type Normalizer struct {
	stopwords map[string]struct{}
}

// NewNormalizer creates a Normalizer with the NLTK Portuguese stop-word set.
func NewNormalizer() *Normalizer {
	set := make(map[string]struct{}, len(portugueseStopwords))
	for _, w := range portugueseStopwords {
		set[w] = struct{}{}
	}
	return &Normalizer{stopwords: set}
}

// Clean applies the string-level steps (lowercase, link and digit removal,
// whitespace collapsing) without tokenizing.
func (n *Normalizer) Clean(raw string) string {
	text := strings.ToLower(raw)
	text = linkPattern.ReplaceAllString(text, " ")
	text = digitPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Normalize returns the ordered stems of raw. Duplicates are kept.
// Empty or non-alphabetic input yields an empty, non-nil slice.
//
// Tokens are filtered before and after stemming, so a stem that collides
// with a stop-word ("tema" -> "tem") or shrinks to one rune is dropped.
// Normalizing the joined output again returns the same stems.
func (n *Normalizer) Normalize(raw string) []string {
	tokens := tokenPattern.FindAllString(n.Clean(raw), -1)
	stems := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if n.skip(tok) {
			continue
		}
		stem := Stem(tok)
		if n.skip(stem) {
			continue
		}
		stems = append(stems, stem)
	}
	return stems
}

func (n *Normalizer) skip(tok string) bool {
	return utf8.RuneCountInString(tok) <= 1 || n.IsStopword(tok)
}

// NormalizeJoined is Normalize followed by a single-space join, the form
// stored for inspection by the CLI.
func (n *Normalizer) NormalizeJoined(raw string) string {
	return strings.Join(n.Normalize(raw), " ")
}

// IsStopword reports whether the lowercase token is in the stop-word set.
func (n *Normalizer) IsStopword(token string) bool {
	_, ok := n.stopwords[token]
	return ok
}

// maxStemRounds bounds Stem; each round only removes or simplifies suffixes,
// so real words settle after two or three.
const maxStemRounds = 8

// Stem reduces a lowercase Portuguese word with the Snowball algorithm,
// reapplying it until the word stops changing ("problema" -> "problem" ->
// "probl").
func Stem(word string) string {
	for i := 0; i < maxStemRounds; i++ {
		env := snowballstem.NewEnv(word)
		portuguese.Stem(env)
		next := env.Current()
		if next == word {
			break
		}
		word = next
	}
	return word
}
