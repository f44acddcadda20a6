// Package alignment recovers the target-language words aligned to a quoted
// source-language phrase by walking a verse's milestone tree.
package alignment

import (
	"errors"
	"fmt"
	"strings"

	"door43-helps-engine/internal/models"
	"door43-helps-engine/internal/quote"
)

const wordJoiner = "\u2060"

// ErrNoMatch means the quote could not be located in the verse. Callers fall
// back to showing the raw quote.
var ErrNoMatch = errors.New("no alignment found")

// MalformedTokenError reports a verse token that breaks the verse-object
// contract, e.g. a milestone with content but no occurrence.
type MalformedTokenError struct {
	Path   string
	Reason string
}

func (e *MalformedTokenError) Error() string {
	return fmt.Sprintf("malformed verse token at %s: %s", e.Path, e.Reason)
}

// AlignString parses text with quote.Parse and aligns it.
func AlignString(tokens []models.VerseToken, text string, occurrence int) (models.Alignment, error) {
	return Align(tokens, quote.Parse(text, occurrence))
}

// Align locates every group of q in tokens. It returns ErrNoMatch unless
// every non-punctuation word of q was matched by some milestone.
func Align(tokens []models.VerseToken, q quote.Quote) (models.Alignment, error) {
	if err := validate(tokens, "verseObjects"); err != nil {
		return nil, err
	}
	q = q.Clone()
	out := models.Alignment{}
	for gi := range q {
		m := &groupMatch{group: q[gi], combos: quote.Combinations(q[gi])}
		out = append(out, m.walkOutside(tokens)...)
	}
	for _, g := range q {
		for _, w := range g {
			if !w.Found && !quote.IsPunctuation(w.Word) {
				return nil, ErrNoMatch
			}
		}
	}
	if len(out) == 0 {
		return nil, ErrNoMatch
	}
	return out, nil
}

func validate(tokens []models.VerseToken, path string) error {
	for i, t := range tokens {
		p := fmt.Sprintf("%s[%d]", path, i)
		if t.IsMilestone() && t.Content != "" && t.Occurrence < 1 {
			return &MalformedTokenError{Path: p, Reason: "milestone content without occurrence"}
		}
		if len(t.Children) > 0 {
			if err := validate(t.Children, p+".children"); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flatten renders an alignment as text: groups joined with an ellipsis,
// tokens concatenated as they are. Two adjacent word tokens get a single
// space between them since the separating text token is not part of the
// alignment in that case.
func Flatten(a models.Alignment) string {
	parts := make([]string, 0, len(a))
	for _, g := range a {
		parts = append(parts, FlattenGroup(g))
	}
	return strings.Join(parts, quote.Ellipsis)
}

func FlattenGroup(g models.AlignmentGroup) string {
	var b strings.Builder
	for i, w := range g {
		if i > 0 && w.Kind == models.KindWord && g[i-1].Kind == models.KindWord {
			b.WriteByte(' ')
		}
		b.WriteString(w.Word)
	}
	return b.String()
}

// Text renders the target-language text of a verse, milestones included.
func Text(tokens []models.VerseToken) string {
	return FlattenGroup(textTokens(tokens, nil))
}

func textTokens(tokens []models.VerseToken, out models.AlignmentGroup) models.AlignmentGroup {
	for _, t := range tokens {
		switch {
		case t.IsMilestone():
			out = textTokens(t.Children, out)
		case t.HasText():
			out = append(out, aligned(t))
		}
	}
	return out
}
