package articles

import (
	"regexp"
	"strings"
)

var (
	taTwoUpRe   = regexp.MustCompile(`(?i)href="\.\./\.\./([^/"]+)/([^/"]+?)/*(?:01\.md)*"`)
	taOneUpRe   = regexp.MustCompile(`(?i)href="\.\./([^/"]+?)/*(?:01\.md)*"`)
	taBareRe    = regexp.MustCompile(`(?i)href="([^# :/"]+)"`)
	twSameRe    = regexp.MustCompile(`(?i)href="\.\./([^/)]+?)(?:\.md)*"`)
	twOtherRe   = regexp.MustCompile(`(?i)href="\.\./([^)]+?)(?:\.md)*"`)
	twBracketRe = regexp.MustCompile(`(?i)(?:\(|\[\[)(?:\.\./)*(kt|names|other)/([^)]+?)(?:\.md)*(?:\)|\]\])`)
)

// fixTALinks turns relative tA article links into rc links.
func (r *Resolver) fixTALinks(text, project string) string {
	text = taTwoUpRe.ReplaceAllString(text, `href="rc://`+r.language+`/ta/man/${1}/${2}"`)
	text = taOneUpRe.ReplaceAllString(text, `href="rc://`+r.language+`/ta/man/`+project+`/${1}"`)
	return taBareRe.ReplaceAllString(text, `href="rc://`+r.language+`/ta/man/`+project+`/${1}"`)
}

// fixTWLinks turns relative tW links, and bare (kt/god.md) style references,
// into rc links. group is the category of the article being fixed.
func (r *Resolver) fixTWLinks(text, group string) string {
	text = twSameRe.ReplaceAllString(text, `href="rc://`+r.language+`/tw/dict/bible/`+group+`/${1}"`)
	text = twOtherRe.ReplaceAllString(text, `href="rc://`+r.language+`/tw/dict/bible/${1}"`)

	// a bracketed reference directly followed by "[" is markdown link text, not a reference
	var b strings.Builder
	last := 0
	for _, m := range twBracketRe.FindAllStringSubmatchIndex(text, -1) {
		if m[1] < len(text) && text[m[1]] == '[' {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString("[[rc://" + r.language + "/tw/dict/bible/" + text[m[2]:m[3]] + "/" + text[m[4]:m[5]] + "]]")
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}
