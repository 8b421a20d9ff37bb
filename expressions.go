package docstamper

import (
	"fmt"
	"iter"
	"regexp"
	"strings"
)

const (
	exprStart = "${"
	exprEnd   = "}"
)

// exprToken matches ${...}. An opening delimiter without a closing brace
// never matches.
var exprToken = regexp.MustCompile(`\$\{[^{}]*\}`)

// FindExpressions yields the raw inline expression tokens of text in
// left-to-right order. The sequence can be ranged over any number of times.
func FindExpressions(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, tok := range locateExpressions(text) {
			if !yield(tok) {
				return
			}
		}
	}
}

// locateExpressions yields each token with its byte offset in text.
func locateExpressions(text string) iter.Seq2[int, string] {
	return func(yield func(int, string) bool) {
		pos := 0
		for pos < len(text) {
			loc := exprToken.FindStringIndex(text[pos:])
			if loc == nil {
				return
			}
			start, end := pos+loc[0], pos+loc[1]
			if !yield(start, text[start:end]) {
				return
			}
			pos = end
		}
	}
}

// StripDelimiters returns the expression body of a token.
func StripDelimiters(token string) string {
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(token, exprStart), exprEnd))
}

// Format renders an expression value as document text. A nil value, the
// result of a directive call, contributes nothing.
func Format(v any) string {
	if v == nil {
		return ""
	}
	return fmt.Sprint(v)
}
