package embedding

import (
	"strings"
	"unicode"
)

// CLIP text encoder conventions.
const (
	StartOfText          = 49406
	EndOfText            = 49407
	DefaultContextLength = 77
)

// Tokenizer produces a fixed-length row of token IDs for a CLIP-style text encoder.
type Tokenizer interface {
	Tokenize(text string, contextLength int) []int64
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs (for testing or fallback).
// Rows start with StartOfText, end with EndOfText and are zero padded.
type SimpleTokenizer struct{}

// Tokenize lowercases text, splits it into words and produces contextLength token IDs.
// Overlong input is truncated so the row still ends with EndOfText.
func (t *SimpleTokenizer) Tokenize(text string, contextLength int) []int64 {
	if contextLength < 2 {
		contextLength = DefaultContextLength
	}
	ids := make([]int64, contextLength)
	ids[0] = StartOfText

	pos := 1
	for _, word := range SplitWords(strings.ToLower(text)) {
		if pos >= contextLength-1 {
			break
		}
		ids[pos] = int64(HashString(word) % StartOfText)
		pos++
	}
	ids[pos] = EndOfText
	return ids
}

// SplitWords splits text on whitespace and punctuation and returns non-empty words.
func SplitWords(text string) []string {
	return strings.FieldsFunc(text, func(r rune) bool {
		return unicode.IsSpace(r) || (unicode.IsPunct(r) && r != '\'' && r != '-')
	})
}

// HashString returns a deterministic non-negative hash for use as a simple token ID.
func HashString(s string) int {
	h := 0
	for _, c := range s {
		h = 31*h + int(c)
	}
	if h < 0 {
		h = -h
	}
	if h < 0 {
		h = 0
	}
	return h
}
