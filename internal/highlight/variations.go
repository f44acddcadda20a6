package highlight

import (
	"strings"

	"door43-helps-engine/internal/models"
)

func quoteVariations(phrase string) []string {
	r := strings.NewReplacer
	return []string{
		r("‘", "'", "’", "'", "“", `"`, "”", `"`).Replace(phrase),
		strings.Replace(r(`"`, "”").Replace(strings.Replace(r("'", "’").Replace(phrase), "’", "‘", 1)), "”", "“", 1),
		r("“", `"`, "”", `"`).Replace(phrase),
		strings.Replace(r(`"`, "”").Replace(phrase), "”", "“", 1),
		strings.Replace(r("'", "’").Replace(phrase), "’", "‘", 1),
		r("'", "’").Replace(phrase),
		r("’", "'").Replace(phrase),
		r("‘", "'").Replace(phrase),
	}
}

// FindQuoteVariation tries the phrase with its curly and straight quotes
// swapped and returns the first variant that can be highlighted in src.
func FindQuoteVariation(src, phrase string, occurrence int) (string, bool) {
	for _, v := range quoteVariations(phrase) {
		if v == phrase {
			continue
		}
		a := models.Alignment{{{Word: v, Occurrence: occurrence}}}
		if _, err := MarkPhrases(src, a); err == nil {
			return v, true
		}
	}
	return "", false
}
