package articles

import (
	"fmt"
	"path/filepath"
	"regexp"

	"door43-helps-engine/internal/crossref"
)

// Categories are the tW article groups.
var Categories = []string{"kt", "names", "other"}

// badNames maps common misspelled tW article names to their real path.
var badNames = map[string]string{
	"live":     "kt/life",
	"idol":     "kt/falsegod",
	"believer": "kt/believe",
	"holi":     "kt/holy",
}

var categoryRe = regexp.MustCompile(`^[^/]+/`)

func (r *Resolver) resolveTW(root string, link crossref.Link) (crossref.Article, error) {
	var art crossref.Article
	extra := link.ExtraInfo()
	if len(extra) == 0 {
		return art, &crossref.UnresolvedLinkError{Link: link.String(), Message: "Bad RC link"}
	}
	file := filepath.Join(root, link.Project, link.Path+".md")
	if !isFile(file) {
		alt := ""
		if name, ok := badNames[extra[len(extra)-1]]; ok {
			alt = name
			file = filepath.Join(root, link.Project, alt+".md")
		} else {
			for _, cat := range Categories {
				alt = categoryRe.ReplaceAllString(link.Path, cat+"/")
				file = filepath.Join(root, link.Project, alt+".md")
				if isFile(file) {
					break
				}
			}
		}
		if !isFile(file) {
			return art, &crossref.UnresolvedLinkError{Link: link.String(), Message: "no corresponding article found"}
		}
		art.Fix = fmt.Sprintf("change to rc://%s/tw/dict/%s/%s", r.language, link.Project, alt)
		r.log.Error("fix found for tW article", "link", link.String(), "fix", art.Fix)
	}

	body, err := r.render(file)
	if err != nil {
		return art, &crossref.UnresolvedLinkError{Link: link.String(), Message: "no corresponding article found", Cause: err}
	}
	if body, err = r.parser.SectionHeader(body); err != nil {
		return art, err
	}
	if body, err = r.parser.IncrementHeaders(body, 1); err != nil {
		return art, err
	}
	body = r.fixTWLinks(body, extra[0])
	art.HTML = fmt.Sprintf("<article id=\"%s\">\n%s\n</article>\n", link.ArticleID(), body)
	if art.Title, err = r.parser.Title(art.HTML); err != nil {
		return art, err
	}
	return art, nil
}
