package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHTML = `<!doctype html><html lang="en"><head>
<title>Page</title>
<style>p { color: red }</style>
</head><body>
<article><h2>Metaphor</h2><h3>Description</h3>
<p>A metaphor is a figure of speech.</p>
<ul><li>one example</li></ul>
</article>
</body></html>`

func TestExtract(t *testing.T) {
	p := New()
	page, err := p.Extract(strings.NewReader(sampleHTML), "text/html; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "Metaphor", page.Title)
	assert.Equal(t, []string{"Metaphor", "Description"}, page.Headings)
	assert.Equal(t, "A metaphor is a figure of speech. one example", page.Text)
	assert.Equal(t, 9, page.WordCount)
	assert.Equal(t, "en", page.Language)
}

func TestExtractFallsBackToTitleTag(t *testing.T) {
	page, err := New().Extract(strings.NewReader(`<html><head><title> Only </title></head><body><p>x</p></body></html>`), "")
	require.NoError(t, err)
	assert.Equal(t, "Only", page.Title)
}

func TestExtractLatin1(t *testing.T) {
	page, err := New().Extract(strings.NewReader("<h1>Caf\xe9</h1>"), "text/html; charset=iso-8859-1")
	require.NoError(t, err)
	assert.Equal(t, "Café", page.Title)
}

func TestTitle(t *testing.T) {
	title, err := New().Title(`<p>intro</p><h3> God </h3><h1>Other</h1>`)
	require.NoError(t, err)
	assert.Equal(t, "God", title)

	title, err = New().Title(`<p>no headers</p>`)
	require.NoError(t, err)
	assert.Empty(t, title)
}

func TestIncrementHeaders(t *testing.T) {
	out, err := New().IncrementHeaders(`<h1>a</h1><h2>b</h2><h5>c</h5><h6>d</h6>`, 1)
	require.NoError(t, err)
	assert.Equal(t, `<h2>a</h2><h3>b</h3><h6>c</h6><h6>d</h6>`, out)

	out, err = New().IncrementHeaders(`<h1>a</h1>`, 0)
	require.NoError(t, err)
	assert.Equal(t, `<h1>a</h1>`, out)
}

func TestSectionHeader(t *testing.T) {
	out, err := New().SectionHeader(`<p>x</p><h1 class="t">God</h1><h2>Facts</h2>`)
	require.NoError(t, err)
	assert.Equal(t, `<p>x</p><h1 class="t section-header">God</h1><h2>Facts</h2>`, out)

	out, err = New().SectionHeader(`<h2>A</h2>`, "no-toc")
	require.NoError(t, err)
	assert.Equal(t, `<h2 class="section-header no-toc">A</h2>`, out)
}
