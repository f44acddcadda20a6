// Package quote splits source-language quote strings from translation notes
// into word groups for the alignment matcher.
package quote

import (
	"strings"
	"unicode"

	"door43-helps-engine/internal/models"
)

// Ellipsis separates the parts of a quote that has a gap in it.
const Ellipsis = "…"

const hebrewPunctuation = "׃׀־׳״׆"

type Word struct {
	Word       string `json:"word"`
	Occurrence int    `json:"occurrence"`
	Found      bool   `json:"-"`
}

type Group []Word

// Quote is the multi-group form of a quote; one group per ellipsis-separated part.
type Quote []Group

// Clone returns a deep copy so matching scratch state never leaks back to the caller.
func (q Quote) Clone() Quote {
	out := make(Quote, len(q))
	for i, g := range q {
		out[i] = append(Group(nil), g...)
	}
	return out
}

// Flatten joins the words of every group with single spaces.
func (q Quote) Flatten() string {
	var words []string
	for _, g := range q {
		for _, w := range g {
			words = append(words, w.Word)
		}
	}
	return strings.Join(words, " ")
}

func (q Quote) Empty() bool {
	for _, g := range q {
		if len(g) > 0 {
			return false
		}
	}
	return true
}

// IsPunct reports whether r belongs to the quote punctuation set: ASCII
// punctuation plus the Hebrew marks.
func IsPunct(r rune) bool {
	if r < 0x80 {
		return unicode.IsPunct(r) || unicode.IsSymbol(r)
	}
	return strings.ContainsRune(hebrewPunctuation, r)
}

// IsPunctuation reports whether s consists only of punctuation. Such words
// never need to be matched.
func IsPunctuation(s string) bool {
	for _, r := range s {
		if !IsPunct(r) {
			return false
		}
	}
	return true
}

type pieceClass int

const (
	classSpace pieceClass = iota
	classPunct
	classWord
)

func classify(r rune) pieceClass {
	switch {
	case IsPunct(r):
		return classPunct
	case unicode.IsSpace(r):
		return classSpace
	default:
		return classWord
	}
}

// pieces splits part into maximal runs of punctuation, whitespace and word characters.
func pieces(part string) ([]string, []pieceClass) {
	var (
		out     []string
		classes []pieceClass
		start   int
		cur     pieceClass = -1
	)
	for i, r := range part {
		c := classify(r)
		if c != cur {
			if cur != -1 {
				out = append(out, part[start:i])
				classes = append(classes, cur)
			}
			start, cur = i, c
		}
	}
	if cur != -1 {
		out = append(out, part[start:])
		classes = append(classes, cur)
	}
	return out, classes
}

// Parse splits text on the ellipsis into groups and each group into words.
// Punctuation runs become words of their own, whitespace is dropped. Every
// word gets the same occurrence; values below 1 are treated as 1.
func Parse(text string, occurrence int) Quote {
	if occurrence < 1 {
		occurrence = 1
	}
	var q Quote
	for _, part := range strings.Split(text, Ellipsis) {
		ps, classes := pieces(part)
		var g Group
		for i, p := range ps {
			if classes[i] == classSpace {
				continue
			}
			g = append(g, Word{Word: p, Occurrence: occurrence})
		}
		if len(g) > 0 {
			q = append(q, g)
		}
	}
	return q
}

// FromWords converts a flat word list, where a word equal to the ellipsis
// marks a gap, into the multi-group form.
func FromWords(words []Word) Quote {
	q := Quote{}
	var g Group
	for _, w := range words {
		if w.Word == Ellipsis {
			q = append(q, g)
			g = nil
			continue
		}
		g = append(g, Word{Word: w.Word, Occurrence: w.Occurrence})
	}
	return append(q, g)
}

// SplitAlignment splits text the same way as Parse but keeps punctuation and
// inner whitespace pieces, so the concatenated words reproduce each trimmed
// part exactly. It lets a plain gateway-language quote be used as a highlight
// phrase.
func SplitAlignment(text string, occurrence int) models.Alignment {
	var a models.Alignment
	for _, part := range strings.Split(text, Ellipsis) {
		ps, _ := pieces(strings.TrimSpace(part))
		g := models.AlignmentGroup{}
		for _, p := range ps {
			g = append(g, models.AlignedWord{Word: p, Occurrence: occurrence})
		}
		a = append(a, g)
	}
	return a
}
