// Package notes assembles a chapter of translation notes: each note's
// original-language quote is aligned to the target text, highlighted in the
// verse, and its rc references are crawled into appendices.
package notes

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"sort"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"door43-helps-engine/internal/alignment"
	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/highlight"
	"door43-helps-engine/internal/models"
)

// Miss is a note whose quote could not be aligned.
type Miss struct {
	NoteID    string `json:"noteId"`
	Reference string `json:"reference"`
	Quote     string `json:"quote"`
	Error     string `json:"error"`
}

// Document is one built chapter.
type Document struct {
	HTML          string                `json:"html"`
	Notes         []models.Note         `json:"notes"`
	Misses        []Miss                `json:"misses,omitempty"`
	BadHighlights []models.BadHighlight `json:"badHighlights,omitempty"`
	Diagnostics   []models.Diagnostic   `json:"diagnostics,omitempty"`
}

type Builder struct {
	language    string
	book        string
	resolver    crossref.Resolver
	regOpts     []crossref.Option
	hlOpts      []highlight.Option
	log         *slog.Logger
	concurrency int
	md          goldmark.Markdown
}

type Option func(*Builder)

func WithRegistryOptions(opts ...crossref.Option) Option {
	return func(b *Builder) { b.regOpts = append(b.regOpts, opts...) }
}

func WithHighlightOptions(opts ...highlight.Option) Option {
	return func(b *Builder) { b.hlOpts = append(b.hlOpts, opts...) }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.log = l
		}
	}
}

// WithConcurrency bounds how many notes are aligned at once.
func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func NewBuilder(language, book string, resolver crossref.Resolver, opts ...Option) *Builder {
	b := &Builder{
		language:    language,
		book:        strings.ToLower(book),
		resolver:    resolver,
		log:         slog.Default(),
		concurrency: 8,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Footnote),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe()),
		),
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Align fills each note's Alignment and, when empty, its GLQuote from the
// chapter's verses. The input slice is not modified.
func (b *Builder) Align(ctx context.Context, verses map[string]models.Verse, notes []models.Note) ([]models.Note, []Miss) {
	out := make([]models.Note, len(notes))
	copy(out, notes)
	misses := make([]*Miss, len(notes))

	sem := make(chan struct{}, b.concurrency)
	done := make(chan int, len(notes))
	for i := range out {
		i := i
		sem <- struct{}{} // acquire
		go func() {
			defer func() { <-sem; done <- i }()
			n := &out[i]
			miss := func(err error) {
				misses[i] = &Miss{NoteID: n.ID, Reference: n.Reference, Quote: n.Quote, Error: err.Error()}
			}
			if err := ctx.Err(); err != nil {
				miss(err)
				return
			}
			if n.Quote == "" {
				return
			}
			ref, err := ParseReference(n.Reference)
			if err != nil {
				miss(err)
				return
			}
			tokens, ok := ref.Tokens(verses)
			if !ok {
				if !ref.Intro() {
					miss(fmt.Errorf("verse %s not found", ref))
				}
				return
			}
			a, err := alignment.AlignString(tokens, n.Quote, n.Occurrence)
			if err != nil {
				miss(err)
				return
			}
			n.Alignment = a
			if n.GLQuote == "" {
				n.GLQuote = alignment.Flatten(a)
			}
		}()
	}
	for range notes {
		<-done
	}

	var missed []Miss
	for _, m := range misses {
		if m != nil {
			missed = append(missed, *m)
		}
	}
	return out, missed
}

// Build aligns the notes of one chapter, highlights them in each verse and
// renders the notes with their tA/tW appendices.
func (b *Builder) Build(ctx context.Context, chapter string, verses map[string]models.Verse, notes []models.Note) (*Document, error) {
	aligned, misses := b.Align(ctx, verses, notes)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	for _, m := range misses {
		b.log.Warn("quote not aligned", "note", m.NoteID, "reference", m.Reference, "error", m.Error)
	}

	reg := crossref.NewRegistry(b.resolver, append([]crossref.Option{crossref.WithLogger(b.log)}, b.regOpts...)...)
	doc := &Document{Notes: aligned, Misses: misses}

	// Notes are grouped by their whole reference, so a range note is
	// highlighted against the text of every verse it covers.
	byRef := map[Reference][]models.Note{}
	refsAt := map[int][]Reference{}
	var intro []models.Note
	for _, n := range aligned {
		ref, err := ParseReference(n.Reference)
		if err != nil || ref.Chapter != chapter {
			continue
		}
		if ref.Intro() {
			intro = append(intro, n)
			continue
		}
		if _, ok := byRef[ref]; !ok {
			refsAt[ref.First] = append(refsAt[ref.First], ref)
		}
		byRef[ref] = append(byRef[ref], n)
	}

	var body strings.Builder
	fmt.Fprintf(&body, "<section id=\"%s-%s\" class=\"chapter\">\n", b.book, pad(chapter, 3))
	for _, n := range intro {
		link := b.noteLink(chapter, "intro", n.ID)
		e := reg.AddLink(link, b.noteHTML(link, chapter+":intro", n), chapter+":intro", 0)
		body.WriteString(e.Article)
	}

	for _, v := range sortedVerses(verses) {
		vn, _ := strconv.Atoi(v)
		refs := refsAt[vn]
		sort.Slice(refs, func(i, j int) bool { return refs[i].Last < refs[j].Last })
		for _, ref := range refs {
			tokens, ok := ref.Tokens(verses)
			if !ok {
				tokens = verses[v].VerseObjects
			}
			body.WriteString(b.verseArticle(reg, doc, chapter, ref, tokens, byRef[ref]))
		}
	}
	body.WriteString("</section>\n")

	reg.CrawlAll()

	out, err := reg.ReplaceLinks(body.String())
	if err != nil {
		return nil, fmt.Errorf("replace links: %w", err)
	}
	var full strings.Builder
	full.WriteString(out)
	for _, res := range []string{"ta", "tw"} {
		app := reg.AppendixHTML(res)
		if app == "" {
			continue
		}
		app, err = reg.ReplaceLinks(app)
		if err != nil {
			return nil, fmt.Errorf("replace appendix links: %w", err)
		}
		full.WriteString(app)
	}
	doc.HTML = full.String()
	doc.Diagnostics = reg.Errors()
	return doc, nil
}

// verseArticle renders the scripture of ref with its notes highlighted,
// followed by the notes, and registers it as a primary article.
func (b *Builder) verseArticle(reg *crossref.Registry, doc *Document, chapter string, ref Reference, tokens []models.VerseToken, vnotes []models.Note) string {
	link := b.noteLink(chapter, ref.anchor(), "")
	scripture := fmt.Sprintf("<p class=\"scripture\">%s</p>", html.EscapeString(alignment.Text(tokens)))
	marked, bad := highlight.HighlightNotes(scripture, link.String(), vnotes, b.hlOpts...)
	doc.BadHighlights = append(doc.BadHighlights, bad...)

	title := fmt.Sprintf("%s:%s", pad(chapter, 2), ref.anchor())
	var notesHTML strings.Builder
	for _, n := range vnotes {
		notesHTML.WriteString(b.noteHTML(link, "", n))
	}
	article := fmt.Sprintf("<article id=\"%s\">\n<h2 class=\"section-header\">%s</h2>\n%s\n%s</article>\n",
		link.ArticleID(), title, marked, notesHTML.String())
	return reg.AddLink(link, article, title, 0).Article
}

func (b *Builder) noteLink(chapter, verse, id string) crossref.Link {
	l := crossref.Link{
		Scheme:   "rc",
		Language: b.language,
		Resource: "tn",
		Type:     "help",
		Project:  b.book,
		Path:     pad(chapter, 2) + "/" + pad(verse, 2),
	}
	if id != "" {
		l.Path += "/" + id
	}
	return l
}

// noteHTML renders one note: its support reference and markdown body. When
// title is set the note is a standalone article.
func (b *Builder) noteHTML(link crossref.Link, title string, n models.Note) string {
	text := strings.ReplaceAll(n.Note, "rc://*/", "rc://"+b.language+"/")
	var md bytes.Buffer
	if err := b.md.Convert([]byte(text), &md); err != nil {
		md.Reset()
		md.WriteString("<p>" + html.EscapeString(text) + "</p>")
	}
	var s strings.Builder
	if title != "" {
		fmt.Fprintf(&s, "<article id=\"%s\">\n<h2 class=\"section-header\">%s</h2>\n", link.ArticleID(), html.EscapeString(title))
	}
	fmt.Fprintf(&s, "<div id=\"%s-%s\" class=\"note\">\n", link.ArticleID(), html.EscapeString(n.ID))
	if n.GLQuote != "" {
		fmt.Fprintf(&s, "<h3 class=\"note-quote\">%s</h3>\n", html.EscapeString(n.GLQuote))
	}
	s.WriteString(md.String())
	if n.SupportReference != "" {
		fmt.Fprintf(&s, "<p class=\"support-reference\">(%s)</p>\n", supportLink(b.language, n.SupportReference))
	}
	s.WriteString("</div>\n")
	if title != "" {
		s.WriteString("</article>\n")
	}
	return s.String()
}

// supportLink expands a wildcard-language support reference so the crawler
// can resolve it.
func supportLink(language, ref string) string {
	ref = strings.TrimSpace(ref)
	ref = strings.Replace(ref, "rc://*/", "rc://"+language+"/", 1)
	if !strings.HasPrefix(ref, "rc://") {
		ref = "rc://" + language + "/ta/man/translate/" + ref
	}
	return "[[" + ref + "]]"
}

func sortedVerses(verses map[string]models.Verse) []string {
	var out []string
	for v := range verses {
		if _, err := strconv.Atoi(v); err == nil {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i])
		b, _ := strconv.Atoi(out[j])
		return a < b
	})
	return out
}
