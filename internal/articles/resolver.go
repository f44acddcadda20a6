// Package articles loads translationAcademy (tA) and translationWords (tW)
// articles from local resource checkouts and renders them to HTML for the
// cross-reference appendix.
package articles

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/parser"
)

// Labels are the localized strings placed around tA articles.
type Labels struct {
	Question     string
	Dependencies string
	Recommended  string
}

var DefaultLabels = Labels{
	Question:     "This page answers the question",
	Dependencies: "In order to understand this topic, it would be good to read",
	Recommended:  "Next we recommend you learn about",
}

// Resolver is a crossref.Resolver backed by resource directories keyed by
// resource id ("ta", "tw").
type Resolver struct {
	language string
	dirs     map[string]string
	labels   Labels
	tocLevel int
	log      *slog.Logger
	parser   *parser.Parser
	md       goldmark.Markdown

	mu      sync.Mutex
	configs map[string]taConfig
}

type Option func(*Resolver)

func WithLabels(l Labels) Option {
	return func(r *Resolver) { r.labels = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.log = l
		}
	}
}

// WithTOCLevel sets the header level of tA article titles.
func WithTOCLevel(level int) Option {
	return func(r *Resolver) {
		if level >= 1 && level <= 6 {
			r.tocLevel = level
		}
	}
}

func New(language string, dirs map[string]string, opts ...Option) *Resolver {
	r := &Resolver{
		language: language,
		dirs:     dirs,
		labels:   DefaultLabels,
		tocLevel: 2,
		log:      slog.Default(),
		parser:   parser.New(),
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Footnote),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
		configs: map[string]taConfig{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve implements crossref.Resolver.
func (r *Resolver) Resolve(link crossref.Link) (crossref.Article, error) {
	root, ok := r.dirs[link.Resource]
	if !ok || root == "" {
		return crossref.Article{}, &crossref.UnresolvedLinkError{
			Link:    link.String(),
			Message: fmt.Sprintf("resource %q is not available", link.Resource),
		}
	}
	switch link.Resource {
	case "ta":
		return r.resolveTA(root, link)
	case "tw":
		return r.resolveTW(root, link)
	}
	return crossref.Article{}, &crossref.UnresolvedLinkError{
		Link:    link.String(),
		Message: fmt.Sprintf("resource %q has no article loader", link.Resource),
	}
}

func (r *Resolver) render(file string) (string, error) {
	src, err := os.ReadFile(file)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", file, err)
	}
	var buf bytes.Buffer
	if err := r.md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("render %s: %w", file, err)
	}
	return buf.String(), nil
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// projects lists the project directories of a resource checkout.
func projects(root string) []string {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() && e.Name()[0] != '.' {
			out = append(out, e.Name())
		}
	}
	return out
}

func readTrimmed(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(b))
}
