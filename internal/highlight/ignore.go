package highlight

import "strings"

// connector words that are not worth highlighting on their own when they are
// one part of a split phrase
var phrasePartsToIgnore = map[string]struct{}{
	"a": {}, "am": {}, "an": {}, "and": {}, "as": {}, "are": {}, "at": {}, "be": {}, "by": {}, "did": {},
	"do": {}, "does": {}, "done": {}, "for": {}, "from": {}, "had": {}, "has": {}, "have": {}, "i": {},
	"in": {}, "into": {}, "less": {}, "let": {}, "may": {}, "might": {}, "more": {}, "my": {}, "not": {},
	"is": {}, "of": {}, "on": {}, "one": {}, "onto": {}, "than": {}, "the": {}, "their": {}, "then": {},
	"this": {}, "that": {}, "those": {}, "these": {}, "to": {}, "was": {}, "we": {}, "who": {}, "whom": {},
	"with": {}, "will": {}, "were": {}, "your": {}, "you": {}, "would": {}, "could": {}, "should": {},
	"shall": {}, "can": {},
}

// boilerplate note quotes that head a note list rather than quote scripture
var quotesToIgnore = map[string]struct{}{
	"general information:":  {},
	"connecting statement:": {},
}

// IgnoredPart reports whether phrase is a bare connector word.
func IgnoredPart(phrase string) bool {
	_, ok := phrasePartsToIgnore[strings.ToLower(phrase)]
	return ok
}

// IgnoredQuote reports whether phrase is a boilerplate note quote.
func IgnoredQuote(phrase string) bool {
	_, ok := quotesToIgnore[strings.ToLower(strings.TrimSpace(phrase))]
	return ok
}

func skipPhrase(phrase string, last bool) bool {
	if phrase == "" {
		return true
	}
	if last {
		return IgnoredQuote(phrase)
	}
	return IgnoredPart(phrase)
}
