package crossref

import (
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

// Link is a parsed rc link, rc://language/resource/type/project/path...
// It is comparable and used as the registry key; String gives the canonical form.
type Link struct {
	Scheme   string
	Language string
	Resource string
	Type     string
	Project  string
	Path     string
}

// linkGrammar is the participle grammar for rc links.
//
//nolint:govet // participle grammar tags are not standard struct tags
type linkGrammar struct {
	Scheme   string   `@Scheme`
	Language string   `@Segment`
	Resource string   `"/" @Segment`
	Type     string   `"/" @Segment`
	Project  string   `"/" @Segment`
	Path     []string `("/" @Segment)*`
}

var linkLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Scheme", Pattern: `[A-Za-z][A-Za-z0-9+.-]*://`},
	{Name: "Slash", Pattern: `/`},
	{Name: "Segment", Pattern: `[A-Za-z0-9_*.-]+`},
})

var linkParser = participle.MustBuild[linkGrammar](
	participle.Lexer(linkLexer),
)

// ParseLink parses raw into a Link. A link needs at least a language,
// resource, type and project, and must not end with a separator.
func ParseLink(raw string) (Link, error) {
	raw = strings.TrimSpace(raw)
	if strings.HasSuffix(raw, "/") {
		return Link{}, &MalformedLinkError{Link: raw, Reason: "trailing separator"}
	}
	g, err := linkParser.ParseString("", raw)
	if err != nil {
		return Link{}, &MalformedLinkError{Link: raw, Reason: "expected scheme://language/resource/type/project[/path]", Cause: err}
	}
	return Link{
		Scheme:   strings.TrimSuffix(g.Scheme, "://"),
		Language: g.Language,
		Resource: g.Resource,
		Type:     g.Type,
		Project:  g.Project,
		Path:     strings.Join(g.Path, "/"),
	}, nil
}

// MustParseLink is ParseLink for links known to be valid.
func MustParseLink(raw string) Link {
	l, err := ParseLink(raw)
	if err != nil {
		panic(err)
	}
	return l
}

func (l Link) String() string {
	s := l.Scheme + "://" + l.Language + "/" + l.Resource + "/" + l.Type + "/" + l.Project
	if l.Path != "" {
		s += "/" + l.Path
	}
	return s
}

// ExtraInfo returns the path segments, e.g. [kt god] for a tW link.
func (l Link) ExtraInfo() []string {
	if l.Path == "" {
		return nil
	}
	return strings.Split(l.Path, "/")
}

// ArticleID is the HTML id the article for l is rendered under.
func (l Link) ArticleID() string {
	parts := []string{l.Resource, l.Project}
	if l.Path != "" {
		parts = append(parts, strings.ReplaceAll(l.Path, "/", "-"))
	}
	return strings.ToLower(strings.Join(parts, "--"))
}
