package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"door43-helps-engine/internal/alignment"
	"door43-helps-engine/internal/articles"
	"door43-helps-engine/internal/config"
	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/fetch"
	"door43-helps-engine/internal/highlight"
	"door43-helps-engine/internal/ioformats"
	"door43-helps-engine/internal/models"
	"door43-helps-engine/internal/notes"
	"door43-helps-engine/internal/quote"
	"door43-helps-engine/pkg/logger"
)

// Global is shared by every subcommand.
type Global struct {
	Config   *config.Config
	Log      *logger.Logger
	Client   *fetch.HTTPClient
	Out      io.Writer
	Resolver crossref.Resolver
}

func (g *Global) resolver() crossref.Resolver {
	if g.Resolver == nil {
		g.Resolver = articles.New(g.Config.Language, g.Config.Resources, articles.WithLogger(g.Log.Slog()))
	}
	return g.Resolver
}

func (g *Global) chapter(ctx context.Context, src string) (map[string]models.Verse, error) {
	data, err := g.Client.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("read chapter: %w", err)
	}
	return ioformats.ReadChapter(bytes.NewReader(data))
}

// output opens path for writing, or returns the global writer when empty.
func (g *Global) output(path string) (io.Writer, func() error, error) {
	if path == "" {
		return g.Out, func() error { return nil }, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create output: %w", err)
	}
	return f, f.Close, nil
}

type AlignCmd struct {
	Verses     string `short:"V" required:"" help:"Chapter JSON (file or URL) keyed by verse number"`
	Reference  string `short:"r" required:"" help:"Verse reference, e.g. 1:3 or 1:3-4"`
	Quote      string   `short:"q" required:"" xor:"quote" help:"Original-language quote; … separates discontinuous parts"`
	Words      []string `short:"w" required:"" xor:"quote" sep:"none" help:"Pre-split quote word as word or word:occurrence, repeated; a … word marks a gap"`
	Occurrence int      `short:"n" default:"1" help:"Occurrence of the quote in the verse"`
}

// quote returns the words flag in the multi-group form. A word without an
// explicit occurrence gets the command's occurrence.
func (c *AlignCmd) quote() (quote.Quote, error) {
	words := make([]quote.Word, 0, len(c.Words))
	for _, w := range c.Words {
		qw := quote.Word{Word: w, Occurrence: c.Occurrence}
		if i := strings.LastIndex(w, ":"); i > 0 && i < len(w)-1 {
			n, err := strconv.Atoi(w[i+1:])
			if err != nil || n < 1 {
				return nil, fmt.Errorf("word %q: bad occurrence", w)
			}
			qw = quote.Word{Word: w[:i], Occurrence: n}
		}
		words = append(words, qw)
	}
	return quote.FromWords(words), nil
}

func (c *AlignCmd) Run(g *Global) error {
	verses, err := g.chapter(context.Background(), c.Verses)
	if err != nil {
		return err
	}
	ref, err := notes.ParseReference(c.Reference)
	if err != nil {
		return err
	}
	tokens, ok := ref.Tokens(verses)
	if !ok {
		return fmt.Errorf("verse %s not found", ref)
	}
	var a models.Alignment
	if len(c.Words) > 0 {
		q, err := c.quote()
		if err != nil {
			return err
		}
		a, err = alignment.Align(tokens, q)
		if err != nil {
			return fmt.Errorf("align %q: %w", strings.Join(c.Words, " "), err)
		}
	} else {
		a, err = alignment.AlignString(tokens, c.Quote, c.Occurrence)
		if err != nil {
			return fmt.Errorf("align %q: %w", c.Quote, err)
		}
	}
	enc := json.NewEncoder(g.Out)
	enc.SetEscapeHTML(false)
	return enc.Encode(map[string]any{"alignment": a, "glQuote": alignment.Flatten(a)})
}

type HighlightCmd struct {
	HTML      string `required:"" help:"Scripture HTML (file or URL)"`
	Alignment string `short:"a" required:"" help:"Alignment JSON as printed by the align command"`
	Output    string `short:"o" help:"Output file (default stdout)"`
}

func (c *HighlightCmd) Run(g *Global) error {
	ctx := context.Background()
	src, err := g.Client.Open(ctx, c.HTML)
	if err != nil {
		return fmt.Errorf("read html: %w", err)
	}
	raw, err := g.Client.Open(ctx, c.Alignment)
	if err != nil {
		return fmt.Errorf("read alignment: %w", err)
	}
	var in struct {
		Alignment models.Alignment `json:"alignment"`
	}
	if err := json.Unmarshal(raw, &in); err != nil {
		return fmt.Errorf("decode alignment: %w", err)
	}

	out, err := highlight.MarkPhrases(string(src), in.Alignment, g.Config.HighlightOptions()...)
	if err != nil {
		g.Log.Warnf("%v", err)
	}
	w, closeFn, werr := g.output(c.Output)
	if werr != nil {
		return werr
	}
	defer closeFn()
	_, werr = io.WriteString(w, out)
	if werr != nil {
		return werr
	}
	return err
}

type NotesCmd struct {
	Book        string `short:"b" required:"" help:"Book code, e.g. tit"`
	Chapter     string `required:"" help:"Chapter number"`
	Notes       string `short:"t" required:"" help:"Translation notes TSV (file or URL)"`
	Verses      string `short:"V" required:"" help:"Chapter JSON (file or URL) keyed by verse number"`
	Output      string `short:"o" help:"HTML output file (default stdout)"`
	Diagnostics string `short:"d" help:"Write misses, bad highlights and bad links as NDJSON to this file"`
	Concurrency int    `default:"8" help:"Notes aligned at once"`
}

func (c *NotesCmd) Run(g *Global) error {
	ctx := context.Background()
	verses, err := g.chapter(ctx, c.Verses)
	if err != nil {
		return err
	}
	tsv, err := g.Client.Open(ctx, c.Notes)
	if err != nil {
		return fmt.Errorf("read notes: %w", err)
	}
	rows, err := ioformats.ReadNotes(bytes.NewReader(tsv))
	if err != nil {
		return err
	}

	b := notes.NewBuilder(g.Config.Language, c.Book, g.resolver(),
		notes.WithRegistryOptions(g.Config.RegistryOptions()...),
		notes.WithHighlightOptions(g.Config.HighlightOptions()...),
		notes.WithLogger(g.Log.Slog()),
		notes.WithConcurrency(c.Concurrency),
	)
	doc, err := b.Build(ctx, c.Chapter, verses, rows)
	if err != nil {
		return err
	}
	g.Log.Infof("%s %s: %d notes, %d not aligned, %d bad highlights, %d bad links",
		c.Book, c.Chapter, len(doc.Notes), len(doc.Misses), len(doc.BadHighlights), len(doc.Diagnostics))

	w, closeFn, err := g.output(c.Output)
	if err != nil {
		return err
	}
	defer closeFn()
	if _, err := io.WriteString(w, doc.HTML); err != nil {
		return err
	}
	if c.Diagnostics == "" {
		return nil
	}
	return writeDiagnostics(c.Diagnostics, doc)
}

type diagnostic struct {
	Kind string `json:"kind"`
	Item any    `json:"item"`
}

func writeDiagnostics(path string, doc *notes.Document) error {
	var out []diagnostic
	for _, m := range doc.Misses {
		out = append(out, diagnostic{Kind: "miss", Item: m})
	}
	for _, h := range doc.BadHighlights {
		out = append(out, diagnostic{Kind: "highlight", Item: h})
	}
	for _, d := range doc.Diagnostics {
		out = append(out, diagnostic{Kind: "link", Item: d})
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create diagnostics: %w", err)
	}
	defer f.Close()
	return ioformats.WriteNDJSON(f, out)
}

type AppendixCmd struct {
	Links  string `short:"l" required:"" help:"CSV (link column) or NDJSON list of rc links to start from"`
	Output string `short:"o" help:"HTML output file (default stdout)"`
	Errors string `short:"e" help:"Write bad links as NDJSON to this file"`
}

func (c *AppendixCmd) Run(g *Global) error {
	links, err := ioformats.ReadLinks(c.Links)
	if err != nil {
		return err
	}
	res := g.resolver()
	reg := crossref.NewRegistry(res, append([]crossref.Option{crossref.WithLogger(g.Log.Slog())}, g.Config.RegistryOptions()...)...)

	var body strings.Builder
	for _, raw := range links {
		link, err := crossref.ParseLink(raw)
		if err != nil {
			reg.AddError(nil, raw, "Malformed rc link")
			continue
		}
		art, err := res.Resolve(link)
		if err != nil {
			g.Log.Warnf("skip %s: %v", raw, err)
			continue
		}
		e := reg.AddLink(link, art.HTML, art.Title, 0)
		body.WriteString(e.Article)
	}
	reg.CrawlAll()

	html, err := reg.ReplaceLinks(body.String())
	if err != nil {
		return err
	}
	for _, r := range []string{"ta", "tw"} {
		app := reg.AppendixHTML(r)
		if app == "" {
			continue
		}
		if app, err = reg.ReplaceLinks(app); err != nil {
			return err
		}
		html += app
	}

	w, closeFn, err := g.output(c.Output)
	if err != nil {
		return err
	}
	defer closeFn()
	if _, err := io.WriteString(w, html); err != nil {
		return err
	}
	if c.Errors == "" {
		return nil
	}
	f, err := os.Create(c.Errors)
	if err != nil {
		return fmt.Errorf("create errors file: %w", err)
	}
	defer f.Close()
	return ioformats.WriteNDJSON(f, reg.Errors())
}
