package crossref

import (
	"errors"
	"log/slog"
	"regexp"
	"slices"

	"door43-helps-engine/internal/models"
)

// DefaultAppendixLevel is how many hops from a primary article are still
// expanded into the appendix.
const DefaultAppendixLevel = 1

// deepLinkRe finds links to the resources that are crawled for appendices.
var deepLinkRe = regexp.MustCompile(`(?i)rc://[A-Z0-9_*-]+/(?:ta|tw)/[A-Z0-9/_*-]+`)

// Entry is one registered link. LinkingLevel is the shortest distance from
// a primary article; 0 for primary entries.
type Entry struct {
	Link         Link
	Title        string
	Article      string
	ArticleID    string
	LinkingLevel int
	References   []Link
}

func (e *Entry) addReference(l Link) {
	if !slices.Contains(e.References, l) {
		e.References = append(e.References, l)
	}
}

// Article is what a Resolver returns for a link. Fix is a suggested
// correction for the link that led here; Missing lists links inside the
// article that could not be followed.
type Article struct {
	Title   string
	HTML    string
	Fix     string
	Missing []string
}

// Resolver loads the article a link points to.
type Resolver interface {
	Resolve(link Link) (Article, error)
}

// ResolverFunc adapts a function to a Resolver.
type ResolverFunc func(link Link) (Article, error)

func (f ResolverFunc) Resolve(link Link) (Article, error) {
	return f(link)
}

type Option func(*Registry)

func WithAppendixLevel(n int) Option {
	return func(r *Registry) {
		if n >= 0 {
			r.appendixLevel = n
		}
	}
}

// WithActiveResources limits crawling to the given resource ids. Links to
// other resources are still registered but never resolved.
func WithActiveResources(ids ...string) Option {
	return func(r *Registry) {
		r.active = make(map[string]bool, len(ids))
		for _, id := range ids {
			r.active[id] = true
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.log = l
		}
	}
}

func WithReferencedInLabel(label string) Option {
	return func(r *Registry) { r.referencedIn = label }
}

// WithResourceTitles sets the appendix heading per resource id.
func WithResourceTitles(titles map[string]string) Option {
	return func(r *Registry) {
		for k, v := range titles {
			r.titles[k] = v
		}
	}
}

type diagKey struct {
	source string
	bad    string
}

// Registry holds the links of one document build. It is not safe for
// concurrent use; build a new one per document.
type Registry struct {
	resolver      Resolver
	appendixLevel int
	active        map[string]bool
	log           *slog.Logger
	referencedIn  string
	titles        map[string]string

	primary       map[Link]*Entry
	primaryOrder  []Link
	appendix      map[Link]*Entry
	appendixOrder []Link

	diagnostics []models.Diagnostic
	diagIndex   map[diagKey]int
}

func NewRegistry(resolver Resolver, opts ...Option) *Registry {
	r := &Registry{
		resolver:      resolver,
		appendixLevel: DefaultAppendixLevel,
		log:           slog.Default(),
		referencedIn:  "Go back to",
		titles:        map[string]string{"ta": "Articles", "tw": "Translation Words"},
		primary:       map[Link]*Entry{},
		appendix:      map[Link]*Entry{},
		diagIndex:     map[diagKey]int{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Registry) AppendixLevel() int {
	return r.appendixLevel
}

// AddLink registers a primary entry, or returns the existing one.
func (r *Registry) AddLink(link Link, article, title string, level int) *Entry {
	if e, ok := r.primary[link]; ok {
		return e
	}
	e := &Entry{
		Link:         link,
		Title:        title,
		Article:      article,
		ArticleID:    link.ArticleID(),
		LinkingLevel: level,
	}
	r.primary[link] = e
	r.primaryOrder = append(r.primaryOrder, link)
	return e
}

func (r *Registry) addAppendix(link Link, level int) *Entry {
	e := &Entry{
		Link:         link,
		ArticleID:    link.ArticleID(),
		LinkingLevel: level,
	}
	r.appendix[link] = e
	r.appendixOrder = append(r.appendixOrder, link)
	return e
}

func (r *Registry) removeAppendix(link Link) {
	delete(r.appendix, link)
	r.appendixOrder = slices.DeleteFunc(r.appendixOrder, func(l Link) bool { return l == link })
}

// Lookup finds an entry, primary entries first.
func (r *Registry) Lookup(link Link) (*Entry, bool) {
	if e, ok := r.primary[link]; ok {
		return e, true
	}
	e, ok := r.appendix[link]
	return e, ok
}

func (r *Registry) Primary() []*Entry {
	out := make([]*Entry, 0, len(r.primaryOrder))
	for _, l := range r.primaryOrder {
		out = append(out, r.primary[l])
	}
	return out
}

func (r *Registry) Appendix() []*Entry {
	out := make([]*Entry, 0, len(r.appendixOrder))
	for _, l := range r.appendixOrder {
		out = append(out, r.appendix[l])
	}
	return out
}

func (r *Registry) isActive(resource string) bool {
	return r.active == nil || r.active[resource]
}

// CrawlAll crawls every primary entry in the order it was added.
func (r *Registry) CrawlAll() {
	for _, e := range r.Primary() {
		r.Crawl(e)
	}
}

// Crawl follows the tA and tW links in source's article. New targets are
// added to the appendix one level below source; known targets keep the
// shortest level seen. Targets within the appendix level are resolved and
// crawled in turn.
func (r *Registry) Crawl(source *Entry) {
	if source == nil || source.Article == "" {
		return
	}
	r.log.Info("crawling", "link", source.Link.String(), "level", source.LinkingLevel)
	for _, raw := range deepLinkRe.FindAllString(source.Article, -1) {
		link, err := ParseLink(raw)
		if err != nil {
			r.AddError(source, raw, "Malformed rc link")
			continue
		}
		entry, known := r.Lookup(link)
		if known {
			entry.LinkingLevel = min(entry.LinkingLevel, source.LinkingLevel+1)
		} else {
			entry = r.addAppendix(link, source.LinkingLevel+1)
		}
		entry.addReference(source.Link)
		if !r.isActive(link.Resource) || entry.Article != "" {
			continue
		}
		if known && entry.LinkingLevel > r.appendixLevel {
			continue
		}
		r.expand(source, entry)
	}
}

func (r *Registry) expand(source, entry *Entry) {
	art, err := r.resolver.Resolve(entry.Link)
	if err == nil && (art.HTML == "" || (art.Title == "" && entry.Title == "")) {
		err = &UnresolvedLinkError{Link: entry.Link.String(), Message: "no corresponding article found"}
	}
	if err != nil {
		msg := err.Error()
		var ue *UnresolvedLinkError
		if errors.As(err, &ue) {
			msg = ue.Message
		}
		r.log.Warn("link to unknown article", "source", source.Link.String(), "link", entry.Link.String(), "error", err)
		r.AddError(source, entry.Link.String(), msg)
		if _, ok := r.primary[entry.Link]; !ok {
			r.removeAppendix(entry.Link)
		}
		return
	}
	if art.Fix != "" {
		r.AddError(source, entry.Link.String(), art.Fix)
	}
	for _, m := range art.Missing {
		r.AddError(entry, m, "")
	}
	if art.Title != "" {
		entry.Title = art.Title
	}
	entry.Article = art.HTML
	if entry.LinkingLevel <= r.appendixLevel {
		r.Crawl(entry)
	} else {
		entry.Article = ""
	}
}

// AddError records a problem found in source's article. The first report
// for a (source, bad link) pair fixes its position; a later non-empty
// message replaces the earlier one.
func (r *Registry) AddError(source *Entry, badLink, message string) {
	if source == nil {
		r.log.Warn("bad link without source", "link", badLink, "message", message)
		return
	}
	key := diagKey{source: source.Link.String(), bad: badLink}
	if i, ok := r.diagIndex[key]; ok {
		if message != "" {
			r.diagnostics[i].Message = message
		}
		return
	}
	r.diagIndex[key] = len(r.diagnostics)
	r.diagnostics = append(r.diagnostics, models.Diagnostic{
		SourceLink: key.source,
		BadLink:    badLink,
		Message:    message,
	})
}

// Errors returns the recorded diagnostics in the order they were first seen.
func (r *Registry) Errors() []models.Diagnostic {
	return slices.Clone(r.diagnostics)
}
