// Package label turns free-form category names into comparison keys and
// resolves them through synonym families.
package label

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize returns the comparison key for a label: NFKC-folded, lowercased,
// every run of non-alphanumeric runes collapsed to one space, trimmed, with
// the trailing word reduced to a naive singular.
func Normalize(s string) string {
	s = norm.NFKC.String(strings.ToLower(norm.NFKC.String(s)))

	var b strings.Builder
	b.Grow(len(s))
	gap := false
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r) {
			if gap && b.Len() > 0 {
				b.WriteByte(' ')
			}
			gap = false
			b.WriteRune(r)
			continue
		}
		gap = true
	}

	return singularize(strings.TrimSpace(b.String()))
}

// singularize rewrites the last word only. A singular word never ends in a
// lone droppable "s" again, and one-rune words are kept, so a second pass
// changes nothing.
func singularize(s string) string {
	head, word := "", s
	if i := strings.LastIndexByte(s, ' '); i >= 0 {
		head, word = s[:i+1], s[i+1:]
	}
	if utf8.RuneCountInString(word) <= 1 {
		return s
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 3:
		word = word[:len(word)-3] + "y"
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "ss"):
		word = word[:len(word)-1]
	}
	return head + word
}

var titler = cases.Title(language.Und)

// Title renders a normalized key as a presentable label ("errand" -> "Errand")
func Title(key string) string {
	return titler.String(key)
}

// Candidate is an existing label with its key
type Candidate struct {
	Label string
	Key   string
}

// Candidates dedupes labels by key keeping the first-seen presentable form.
// Labels that normalize to an empty key are dropped.
func Candidates(labels []string) []Candidate {
	seen := make(map[string]struct{}, len(labels))
	out := make([]Candidate, 0, len(labels))
	for _, l := range labels {
		key := Normalize(l)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, Candidate{Label: l, Key: key})
	}
	return out
}
