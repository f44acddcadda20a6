package crossref

import (
	"fmt"
	"html"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

var leadingZeroRe = regexp.MustCompile(`(^|:|-)0`)

// AppendixHTML renders the appendix section for one resource: every entry at
// exactly the appendix level, sorted by title, each followed by links back to
// the primary articles that reference it. It returns "" when there is
// nothing to render.
func (r *Registry) AppendixHTML(resource string) string {
	var entries []*Entry
	for _, e := range r.Appendix() {
		if e.Link.Resource == resource && e.LinkingLevel == r.appendixLevel && e.Article != "" {
			entries = append(entries, e)
		}
	}
	if len(entries) == 0 {
		return ""
	}
	fold := cases.Fold()
	sort.SliceStable(entries, func(i, j int) bool {
		return fold.String(entries[i].Title) < fold.String(entries[j].Title)
	})

	var b strings.Builder
	for _, e := range entries {
		trailer := r.referencedInHTML(e)
		if strings.Contains(e.Article, "</article>") {
			b.WriteString(strings.ReplaceAll(e.Article, "</article>", trailer+"</article>"))
		} else {
			b.WriteString(e.Article + trailer)
		}
		b.WriteString("\n")
	}

	title := r.titles[resource]
	if title == "" {
		title = strings.ToUpper(resource)
	}
	return fmt.Sprintf("<section id=\"%s-appendix\" class=\"appendix\">\n<h1 class=\"section-header\">%s</h1>\n%s</section>\n",
		resource, html.EscapeString(title), b.String())
}

func (r *Registry) referencedInHTML(e *Entry) string {
	if e.LinkingLevel == 0 {
		return ""
	}
	var refs []string
	for _, l := range e.References {
		p, ok := r.primary[l]
		if !ok || p.Title == "" {
			continue
		}
		title := leadingZeroRe.ReplaceAllString(p.Title, "$1")
		refs = append(refs, fmt.Sprintf(`<a href="#%s">%s</a>`, p.ArticleID, html.EscapeString(title)))
	}
	if len(refs) == 0 {
		return ""
	}
	return fmt.Sprintf("<div class=\"go-back-to\">\n<strong>%s:</strong> %s\n</div>\n",
		html.EscapeString(r.referencedIn), strings.Join(refs, "; "))
}
