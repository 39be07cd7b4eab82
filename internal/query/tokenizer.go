package query

import (
	"regexp"
	"unicode"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/character"
	bleveregexp "github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
)

// Tokenizer splits query text into keywords.
type Tokenizer interface {
	Tokenize(text string) []string
}

// WhitespaceTokenizer splits on runs of whitespace and keeps tokens verbatim.
type WhitespaceTokenizer struct {
	tokenizer analysis.Tokenizer
}

// NewWhitespaceTokenizer returns the location keyword tokenizer.
func NewWhitespaceTokenizer() *WhitespaceTokenizer {
	return &WhitespaceTokenizer{
		tokenizer: character.NewCharacterTokenizer(func(r rune) bool { return !unicode.IsSpace(r) }),
	}
}

// Tokenize returns the whitespace-separated tokens of text. Empty text yields an empty slice.
func (t *WhitespaceTokenizer) Tokenize(text string) []string {
	return terms(t.tokenizer.Tokenize([]byte(text)))
}

// wordPattern is ASCII letters, digits and underscore.
var wordPattern = regexp.MustCompile(`\w+`)

// WordTokenizer extracts maximal runs of word characters and lower-cases them.
type WordTokenizer struct {
	tokenizer analysis.Tokenizer
	lower     analysis.TokenFilter
}

// NewWordTokenizer returns the happening keyword tokenizer.
func NewWordTokenizer() *WordTokenizer {
	return &WordTokenizer{
		tokenizer: bleveregexp.NewRegexpTokenizer(wordPattern),
		lower:     lowercase.NewLowerCaseFilter(),
	}
}

// Tokenize returns the lower-cased words of text; punctuation is discarded.
func (t *WordTokenizer) Tokenize(text string) []string {
	return terms(t.lower.Filter(t.tokenizer.Tokenize([]byte(text))))
}

func terms(stream analysis.TokenStream) []string {
	out := make([]string, 0, len(stream))
	for _, tok := range stream {
		out = append(out, string(tok.Term))
	}
	return out
}
