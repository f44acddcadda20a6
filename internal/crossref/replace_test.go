package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func replaceRegistry(t *testing.T) *Registry {
	t.Helper()
	res := newFakeResolver()
	res.add("rc://en/tw/dict/bible/kt/god", "God", linkC)
	res.add(linkC, "Metaphor C")
	r := NewRegistry(res, WithAppendixLevel(1))
	r.AddLink(MustParseLink(linkA), primaryArticle("rc://en/tw/dict/bible/kt/god"), "1:1", 0)
	r.CrawlAll()
	return r
}

func TestReplaceLinksAnchors(t *testing.T) {
	r := replaceRegistry(t)
	out, err := r.ReplaceLinks(`<p><a href="rc://en/tw/dict/bible/kt/god">God</a> and <a href="rc://en/tw/dict/bible/kt/unknown">x</a></p>`)
	require.NoError(t, err)
	assert.Equal(t, `<p><a href="#tw--bible--kt-god">God</a> and x</p>`, out)
}

func TestReplaceLinksBareText(t *testing.T) {
	r := replaceRegistry(t)
	out, err := r.ReplaceLinks(`<p>See [[rc://en/tw/dict/bible/kt/god]] and rc://en/ta/man/translate/figs-c.</p>`)
	require.NoError(t, err)
	assert.Equal(t,
		`<p>See <a href="#tw--bible--kt-god" class="local-article">God</a> and <span class="remove-article">Metaphor C</span>.</p>`,
		out)
}

func TestReplaceLinksLeavesUnknownText(t *testing.T) {
	r := replaceRegistry(t)
	src := `<p>See rc://en/tw/dict/bible/kt/nothing here</p>`
	out, err := r.ReplaceLinks(src)
	require.NoError(t, err)
	assert.Equal(t, src, out)
}

func TestReplaceLinksFullDocument(t *testing.T) {
	r := replaceRegistry(t)
	out, err := r.ReplaceLinks(`<!DOCTYPE html><html><head></head><body><p>[[rc://en/tw/dict/bible/kt/god]]</p></body></html>`)
	require.NoError(t, err)
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, `<p><a href="#tw--bible--kt-god" class="local-article">God</a></p>`)
}
