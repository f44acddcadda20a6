package highlight

import (
	"fmt"

	"door43-helps-engine/internal/alignment"
	"door43-helps-engine/internal/models"
	"door43-helps-engine/internal/quote"
)

// HighlightNotes marks the phrase of every note in the verse HTML, one tag
// class per note (phrase-1, phrase-2, ...). A note without an alignment falls
// back to its gateway-language quote, split on the ellipsis. Notes that cannot
// be marked are reported. The fix is the gateway-language quote when it would
// have matched, or a variant of it with curly and straight quotes swapped.
func HighlightNotes(scripture, source string, notes []models.Note, opts ...Option) (string, []models.BadHighlight) {
	var bad []models.BadHighlight
	orig := scripture
	for i, n := range notes {
		occurrence := max(n.Occurrence, 1)
		var glPhrase models.Alignment
		if n.GLQuote != "" {
			glPhrase = quote.SplitAlignment(n.GLQuote, occurrence)
		}
		phrase := n.Alignment
		if len(phrase) == 0 {
			phrase = glPhrase
		}
		if len(phrase) == 0 {
			continue
		}
		if IgnoredQuote(alignment.Flatten(phrase)) {
			continue
		}
		split := ""
		if len(phrase) > 1 {
			split = " split"
		}
		tag := fmt.Sprintf(`<span class="highlight phrase phrase-%d%s">`, i+1, split)
		noteOpts := append(append([]Option(nil), opts...), WithTag(tag))
		marked, err := MarkPhrases(scripture, phrase, noteOpts...)
		if err == nil {
			scripture = marked
			continue
		}
		fix := ""
		if n.GLQuote != "" {
			if _, err := MarkPhrases(scripture, glPhrase, opts...); err == nil {
				fix = n.GLQuote
			} else if v, ok := FindQuoteVariation(scripture, n.GLQuote, occurrence); ok {
				fix = v
			}
		}
		bad = append(bad, models.BadHighlight{
			Source: source,
			Text:   orig,
			NoteID: n.ID,
			Phrase: n.GLQuote,
			Fix:    fix,
		})
	}
	return scripture, bad
}
