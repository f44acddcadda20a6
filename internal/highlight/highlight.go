// Package highlight wraps occurrences of aligned phrases in rendered scripture
// HTML without disturbing the surrounding markup.
package highlight

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"door43-helps-engine/internal/alignment"
	"door43-helps-engine/internal/models"
)

const DefaultTag = `<span class="highlight">`

var ErrPhraseNotFound = errors.New("phrase not found")

// HighlightError reports a phrase that could not be marked. The caller
// records it as a bad highlight and continues.
type HighlightError struct {
	Phrase     string
	Occurrence int
	Cause      error
}

func (e *HighlightError) Error() string {
	return fmt.Sprintf("highlight %q (occurrence %d): %v", e.Phrase, e.Occurrence, e.Cause)
}

func (e *HighlightError) Unwrap() error { return e.Cause }

type options struct {
	tag         string
	breakOnWord bool
}

type Option func(*options)

// WithTag sets the opening tag wrapped around every matched piece.
func WithTag(tag string) Option {
	return func(o *options) { o.tag = tag }
}

// WithBreakOnWord controls whether the first word of a phrase must sit on a
// word boundary.
func WithBreakOnWord(b bool) Option {
	return func(o *options) { o.breakOnWord = b }
}

// MarkPhrases wraps every phrase of phrases, left to right, in the configured
// tag. Each phrase is located from its first word's occurrence.
//
// On failure the returned HTML still contains the phrases marked before the
// failing one and the error is a *HighlightError.
func MarkPhrases(src string, phrases models.Alignment, opts ...Option) (string, error) {
	o := options{tag: DefaultTag, breakOnWord: true}
	for _, opt := range opts {
		opt(&o)
	}
	tag, err := parseTag(o.tag)
	if err != nil {
		return "", err
	}
	doc, err := parseDocument(src)
	if err != nil {
		return "", err
	}

	for idx, words := range phrases {
		phrase := alignment.FlattenGroup(words)
		if skipPhrase(phrase, idx == len(phrases)-1) {
			continue
		}
		first := words[0].Word
		if first == "" {
			first = phrase
		}
		occurrence := max(words[0].Occurrence, 1)

		spans, text := collectSpans(doc.root)
		start, ok := locate(text, phrase, first, occurrence, o.breakOnWord)
		if !ok {
			return doc.String(), &HighlightError{Phrase: phrase, Occurrence: occurrence, Cause: ErrPhraseNotFound}
		}
		applySpans(splitSpans(spans, start, start+len(phrase)), tag)
	}
	return doc.String(), nil
}

// locate returns the offset of phrase in text. Candidates are the starts of
// first; the search begins at the occurrence-th candidate and takes the
// first candidate the whole phrase starts at, so a first-word collision at
// the occurrence-th candidate moves on to later ones instead of failing.
func locate(text, phrase, first string, occurrence int, breakOnWord bool) (int, bool) {
	starts := candidateStarts(text, first, breakOnWord)
	if len(starts) < occurrence {
		return 0, false
	}
	for _, s := range starts[occurrence-1:] {
		end := s + len(phrase)
		if end > len(text) {
			return 0, false
		}
		if text[s:end] == phrase {
			return s, true
		}
	}
	return 0, false
}

// candidateStarts finds the non-overlapping occurrences of word in text.
// With breakOnWord an occurrence must be bounded on both sides by the text
// edge, a word boundary, or punctuation/whitespace; the last case covers
// words that begin or end with curly quotes.
func candidateStarts(text, word string, breakOnWord bool) []int {
	var out []int
	for pos := 0; pos < len(text); {
		i := strings.Index(text[pos:], word)
		if i < 0 {
			break
		}
		s, e := pos+i, pos+i+len(word)
		if !breakOnWord || (boundaryBefore(text, s) && boundaryAfter(text, e)) {
			out = append(out, s)
			pos = e
			continue
		}
		_, size := utf8.DecodeRuneInString(text[s:])
		pos = s + size
	}
	return out
}

func boundaryBefore(text string, i int) bool {
	if i == 0 {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	next, _ := utf8.DecodeRuneInString(text[i:])
	return isWordRune(prev) != isWordRune(next) || isSeparator(prev)
}

func boundaryAfter(text string, i int) bool {
	if i >= len(text) {
		return true
	}
	prev, _ := utf8.DecodeLastRuneInString(text[:i])
	next, _ := utf8.DecodeRuneInString(text[i:])
	return isWordRune(prev) != isWordRune(next) || isSeparator(next)
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}

func isSeparator(r rune) bool {
	if unicode.IsSpace(r) {
		return true
	}
	return r < utf8.RuneSelf && (unicode.IsPunct(r) || unicode.IsSymbol(r))
}
