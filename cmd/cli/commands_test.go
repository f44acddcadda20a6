package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alecthomas/kong"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"door43-helps-engine/internal/config"
	"door43-helps-engine/internal/crossref"
	"door43-helps-engine/internal/fetch"
	"door43-helps-engine/pkg/logger"
)

const chapterJSON = `{
	"1": {"verseObjects": [
		{"type": "milestone", "tag": "zaln", "content": "Παῦλος", "occurrence": "1", "children": [
			{"type": "word", "tag": "w", "text": "Paul", "occurrence": "1"}
		]},
		{"type": "text", "text": ", "},
		{"type": "milestone", "tag": "zaln", "content": "δοῦλος", "occurrence": "1", "children": [
			{"type": "word", "tag": "w", "text": "a", "occurrence": "1"},
			{"type": "word", "tag": "w", "text": "servant", "occurrence": "1"}
		]},
		{"type": "text", "text": "."}
	]}
}`

var fixtureArticles = map[string]crossref.Article{
	"rc://en/tw/dict/bible/kt/god": {Title: "God", HTML: `<article id="tw--bible--kt-god"><h2>God</h2>` +
		`<p>See [[rc://en/ta/man/translate/figs-metaphor]] and [[rc://en/tw/dict/bible/kt/nothing]].</p></article>`},
	"rc://en/ta/man/translate/figs-metaphor": {Title: "Metaphor", HTML: `<article id="ta--translate--figs-metaphor"><h2>Metaphor</h2></article>`},
}

func testGlobal(t *testing.T) (*Global, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	return &Global{
		Config: config.Default(),
		Log:    logger.NewWithWriter(io.Discard, "error", "text"),
		Client: fetch.NewHTTPClient(time.Second, time.Second, 1<<20),
		Out:    &out,
		Resolver: crossref.ResolverFunc(func(l crossref.Link) (crossref.Article, error) {
			if a, ok := fixtureArticles[l.String()]; ok {
				return a, nil
			}
			return crossref.Article{}, &crossref.UnresolvedLinkError{Link: l.String(), Message: "no corresponding article found"}
		}),
	}, &out
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParseCommands(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli)
	require.NoError(t, err)

	ctx, err := parser.Parse([]string{"align", "-V", "01.json", "-r", "1:1", "-q", "Παῦλος"})
	require.NoError(t, err)
	assert.Equal(t, "align", ctx.Command())
	assert.Equal(t, 1, cli.Align.Occurrence)

	ctx, err = parser.Parse([]string{"notes", "-b", "tit", "--chapter", "1", "-t", "tit.tsv", "-V", "01.json"})
	require.NoError(t, err)
	assert.Equal(t, "notes", ctx.Command())
	assert.Equal(t, 8, cli.Notes.Concurrency)

	_, err = parser.Parse([]string{"align", "-V", "01.json", "-r", "1:1", "-w", "Παῦλος", "-w", "…", "-w", "δοῦλος"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Παῦλος", "…", "δοῦλος"}, cli.Align.Words)

	_, err = parser.Parse([]string{"align", "-V", "01.json"})
	assert.Error(t, err)
	_, err = parser.Parse([]string{"align", "-V", "01.json", "-r", "1:1"})
	assert.Error(t, err)
}

func TestAlignCmd(t *testing.T) {
	g, out := testGlobal(t)
	cmd := &AlignCmd{Verses: writeFile(t, "01.json", chapterJSON), Reference: "1:1", Quote: "δοῦλος", Occurrence: 1}
	require.NoError(t, cmd.Run(g))
	assert.Contains(t, out.String(), `"glQuote":"a servant"`)

	cmd.Quote = "Θεοῦ"
	assert.ErrorContains(t, cmd.Run(g), "no alignment found")

	cmd.Reference = "1:9"
	assert.ErrorContains(t, cmd.Run(g), "verse 1:9 not found")
}

func TestAlignCmdWords(t *testing.T) {
	g, out := testGlobal(t)
	cmd := &AlignCmd{
		Verses:     writeFile(t, "01.json", chapterJSON),
		Reference:  "1:1",
		Words:      []string{"Παῦλος", "…", "δοῦλος:1"},
		Occurrence: 1,
	}
	require.NoError(t, cmd.Run(g))
	assert.Contains(t, out.String(), `"glQuote":"Paul…a servant"`)

	cmd.Words = []string{"δοῦλος:x"}
	assert.ErrorContains(t, cmd.Run(g), "bad occurrence")
}

func TestHighlightCmd(t *testing.T) {
	g, out := testGlobal(t)
	cmd := &HighlightCmd{
		HTML:      writeFile(t, "v.html", "<p>Paul, a servant.</p>"),
		Alignment: writeFile(t, "a.json", `{"alignment": [[{"word": "servant", "occurrence": 1}]]}`),
	}
	require.NoError(t, cmd.Run(g))
	assert.Equal(t, `<p>Paul, a <span class="highlight">servant</span>.</p>`, out.String())
}

func TestNotesCmd(t *testing.T) {
	g, out := testGlobal(t)
	diag := filepath.Join(t.TempDir(), "diag.ndjson")
	cmd := &NotesCmd{
		Book:    "tit",
		Chapter: "1",
		Verses:  writeFile(t, "01.json", chapterJSON),
		Notes: writeFile(t, "tit.tsv", "Reference\tID\tTags\tSupportReference\tQuote\tOccurrence\tNote\n"+
			"1:1\ta1\t\trc://*/ta/man/translate/figs-metaphor\tδοῦλος\t1\tA servant.\n"+
			"1:1\tb2\t\t\tΘεοῦ\t1\tNot here.\n"),
		Diagnostics: diag,
		Concurrency: 2,
	}
	require.NoError(t, cmd.Run(g))
	assert.Contains(t, out.String(), `<span class="highlight phrase phrase-1">a servant</span>`)
	assert.Contains(t, out.String(), `<section id="ta-appendix" class="appendix">`)

	data, err := os.ReadFile(diag)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"kind":"miss","item":{"noteId":"b2"`)
}

func TestAppendixCmd(t *testing.T) {
	g, out := testGlobal(t)
	errs := filepath.Join(t.TempDir(), "errors.ndjson")
	cmd := &AppendixCmd{
		Links:  writeFile(t, "links.csv", "link\nrc://en/tw/dict/bible/kt/god\nnot a link\n"),
		Errors: errs,
	}
	require.NoError(t, cmd.Run(g))
	assert.Contains(t, out.String(), `<a href="#ta--translate--figs-metaphor" class="local-article">Metaphor</a>`)
	assert.Contains(t, out.String(), `<section id="ta-appendix" class="appendix">`)

	data, err := os.ReadFile(errs)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"badLink":"rc://en/tw/dict/bible/kt/nothing"`)
}
