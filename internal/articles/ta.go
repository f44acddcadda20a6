package articles

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"door43-helps-engine/internal/crossref"
)

// taConfig is a tA project's config.yaml: article path -> related articles.
type taConfig map[string]struct {
	Dependencies []string `yaml:"dependencies"`
	Recommended  []string `yaml:"recommended"`
}

func (r *Resolver) loadConfig(root, project string) (taConfig, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.configs[project]; ok {
		return c, nil
	}
	file := filepath.Join(root, project, "config.yaml")
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("unable to find config.yaml file: %s: %w", file, err)
	}
	var c taConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", file, err)
	}
	if c == nil {
		c = taConfig{}
	}
	r.configs[project] = c
	return c, nil
}

func (r *Resolver) resolveTA(root string, link crossref.Link) (crossref.Article, error) {
	var art crossref.Article
	project, path := link.Project, link.Path
	if path == "" {
		art.Fix = "Bad RC link"
		project, path = "translate", project
	}

	config, err := r.loadConfig(root, project)
	if err != nil {
		return art, &crossref.UnresolvedLinkError{Link: link.String(), Message: err.Error()}
	}

	dir := filepath.Join(root, project, path)
	file := filepath.Join(dir, "01.md")
	if !isFile(file) {
		msg := "no corresponding article found"
		if isDir(dir) {
			msg = "dir exists but no 01.md file"
		}
		return art, &crossref.UnresolvedLinkError{Link: link.String(), Message: msg}
	}
	body, err := r.render(file)
	if err != nil {
		return art, &crossref.UnresolvedLinkError{Link: link.String(), Message: "01.md file exists but no content", Cause: err}
	}
	art.Title = readTrimmed(filepath.Join(dir, "title.md"))

	var top, bottom strings.Builder
	if q := readTrimmed(filepath.Join(dir, "sub-title.md")); q != "" {
		fmt.Fprintf(&top, "<div class=\"ta-question\">\n%s: <em>%s</em>\n</div>\n", r.labels.Question, q)
	}
	entry := config[path]
	if len(entry.Dependencies) > 0 {
		var lis strings.Builder
		for _, dep := range entry.Dependencies {
			depProject := project
			for _, p := range projects(root) {
				if isDir(filepath.Join(root, p, dep)) {
					depProject = p
				}
			}
			fmt.Fprintf(&lis, "<li>[[rc://%s/ta/man/%s/%s]]</li>\n", r.language, depProject, dep)
		}
		fmt.Fprintf(&top, "<div class=\"ta-dependencies\">\n%s:\n<ul>\n%s</ul>\n</div>\n", r.labels.Dependencies, lis.String())
	}
	if len(entry.Recommended) > 0 {
		var lis strings.Builder
		for _, rec := range entry.Recommended {
			recProject, ok := findProject(root, project, rec)
			if !ok {
				bad := fmt.Sprintf("%s/config.yaml -> '%s' -> 'recommended' -> '%s'", project, path, rec)
				r.log.Warn("recommended article not found", "ref", bad)
				art.Missing = append(art.Missing, bad)
				continue
			}
			fmt.Fprintf(&lis, "<li>[[rc://%s/ta/man/%s/%s]]</li>\n", r.language, recProject, rec)
		}
		fmt.Fprintf(&bottom, "<div class=\"ta-recommendations\">\n%s:\n<ul>\n%s</ul>\n</div>\n", r.labels.Recommended, lis.String())
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<article id=\"%s\">\n", link.ArticleID())
	fmt.Fprintf(&b, "<h%d class=\"section-header\" toc-level=\"%d\">%s</h%d>\n", r.tocLevel, r.tocLevel, art.Title, r.tocLevel)
	if top.Len() > 0 {
		fmt.Fprintf(&b, "<div class=\"top-box box\">\n%s</div>\n", top.String())
	}
	b.WriteString(body)
	if bottom.Len() > 0 {
		fmt.Fprintf(&b, "<div class=\"bottom-box box\">\n%s</div>\n", bottom.String())
	}
	b.WriteString("</article>\n")
	art.HTML = r.fixTALinks(b.String(), project)
	return art, nil
}

// findProject looks for an article in the given project first, then in
// every other project of the checkout.
func findProject(root, project, article string) (string, bool) {
	if isDir(filepath.Join(root, project, article)) {
		return project, true
	}
	for _, p := range projects(root) {
		if isDir(filepath.Join(root, p, article)) {
			return p, true
		}
	}
	return "", false
}
