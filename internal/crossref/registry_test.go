package crossref

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeResolver serves articles keyed by link string; each article body
// lists the links it should contain.
type fakeResolver struct {
	articles map[string]Article
	calls    map[string]int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{articles: map[string]Article{}, calls: map[string]int{}}
}

func (f *fakeResolver) add(link, title string, links ...string) {
	f.articles[link] = Article{
		Title: title,
		HTML:  fmt.Sprintf("<article><h2>%s</h2><p>%s</p></article>", title, strings.Join(links, " ")),
	}
}

func (f *fakeResolver) Resolve(l Link) (Article, error) {
	f.calls[l.String()]++
	a, ok := f.articles[l.String()]
	if !ok {
		return Article{}, &UnresolvedLinkError{Link: l.String(), Message: "no corresponding article found"}
	}
	return a, nil
}

const (
	linkA = "rc://en/tn/help/tit/01/01"
	linkB = "rc://en/ta/man/translate/figs-b"
	linkC = "rc://en/ta/man/translate/figs-c"
	linkD = "rc://en/tw/dict/bible/kt/d"
	linkE = "rc://en/tw/dict/bible/kt/e"
)

func primaryArticle(links ...string) string {
	return "<p>" + strings.Join(links, " ") + "</p>"
}

func TestCrawlDiamondKeepsShortestLevel(t *testing.T) {
	for _, order := range [][]string{{linkB, linkC}, {linkC, linkB}} {
		res := newFakeResolver()
		res.add(linkB, "B", linkD)
		res.add(linkC, "C", linkD)
		res.add(linkD, "D")

		r := NewRegistry(res)
		r.AddLink(MustParseLink(linkA), primaryArticle(order...), "Titus 1:1", 0)
		r.CrawlAll()

		b, ok := r.Lookup(MustParseLink(linkB))
		require.True(t, ok)
		assert.Equal(t, 1, b.LinkingLevel)
		c, ok := r.Lookup(MustParseLink(linkC))
		require.True(t, ok)
		assert.Equal(t, 1, c.LinkingLevel)

		d, ok := r.Lookup(MustParseLink(linkD))
		require.True(t, ok)
		assert.Equal(t, 2, d.LinkingLevel)
		assert.Empty(t, d.Article)
		assert.ElementsMatch(t, []Link{MustParseLink(linkB), MustParseLink(linkC)}, d.References)
		assert.Empty(t, r.Errors())
	}
}

func TestCrawlChainStopsAtAppendixLevel(t *testing.T) {
	res := newFakeResolver()
	res.add(linkB, "B", linkC)
	res.add(linkC, "C", linkD)
	res.add(linkD, "D")

	r := NewRegistry(res)
	r.AddLink(MustParseLink(linkA), primaryArticle(linkB), "Titus 1:1", 0)
	r.CrawlAll()

	b, ok := r.Lookup(MustParseLink(linkB))
	require.True(t, ok)
	assert.NotEmpty(t, b.Article)

	c, ok := r.Lookup(MustParseLink(linkC))
	require.True(t, ok)
	assert.Equal(t, 2, c.LinkingLevel)
	assert.Empty(t, c.Article)
	assert.Equal(t, "C", c.Title)

	_, ok = r.Lookup(MustParseLink(linkD))
	assert.False(t, ok)
	assert.Zero(t, res.calls[linkD])
}

func TestCrawlShorterPathFoundLater(t *testing.T) {
	res := newFakeResolver()
	res.add(linkB, "B", linkC)
	res.add(linkC, "C", linkD)
	res.add(linkD, "D", linkE)
	res.add(linkE, "E")

	r := NewRegistry(res, WithAppendixLevel(3))
	r.AddLink(MustParseLink(linkA), primaryArticle(linkB, linkD), "Titus 1:1", 0)
	r.CrawlAll()

	d, _ := r.Lookup(MustParseLink(linkD))
	assert.Equal(t, 1, d.LinkingLevel)
	e, ok := r.Lookup(MustParseLink(linkE))
	require.True(t, ok)
	assert.Equal(t, 4, e.LinkingLevel)
	assert.Empty(t, e.Article)
}

func TestCrawlLevelZeroOnlyRegisters(t *testing.T) {
	res := newFakeResolver()
	res.add(linkB, "B")

	r := NewRegistry(res, WithAppendixLevel(0))
	r.AddLink(MustParseLink(linkA), primaryArticle(linkB), "Titus 1:1", 0)
	r.CrawlAll()

	b, ok := r.Lookup(MustParseLink(linkB))
	require.True(t, ok)
	assert.Empty(t, b.Article)
	assert.Equal(t, "B", b.Title)
}

func TestCrawlMalformedAndUnresolved(t *testing.T) {
	res := newFakeResolver()
	r := NewRegistry(res)
	src := r.AddLink(MustParseLink(linkA),
		primaryArticle("rc://en/tw/dict/bible/kt/", "rc://en/ta/man", linkD), "Titus 1:1", 0)
	r.CrawlAll()

	errs := r.Errors()
	require.Len(t, errs, 3)
	assert.Equal(t, linkA, errs[0].SourceLink)
	assert.Equal(t, "rc://en/tw/dict/bible/kt/", errs[0].BadLink)
	assert.Equal(t, "Malformed rc link", errs[0].Message)
	assert.Equal(t, "rc://en/ta/man", errs[1].BadLink)
	assert.Equal(t, linkD, errs[2].BadLink)
	assert.Equal(t, "no corresponding article found", errs[2].Message)

	_, ok := r.Lookup(MustParseLink(linkD))
	assert.False(t, ok)
	assert.Empty(t, r.Appendix())

	r.AddError(src, "x", "")
	r.AddError(src, "x", "fixed")
	r.AddError(src, "x", "")
	assert.Equal(t, "fixed", r.Errors()[3].Message)
	assert.Len(t, r.Errors(), 4)
}

func TestCrawlInactiveResourceStaysStub(t *testing.T) {
	res := newFakeResolver()
	res.add(linkB, "B")
	res.add(linkD, "D")

	r := NewRegistry(res, WithActiveResources("ta"))
	r.AddLink(MustParseLink(linkA), primaryArticle(linkB, linkD), "Titus 1:1", 0)
	r.CrawlAll()

	d, ok := r.Lookup(MustParseLink(linkD))
	require.True(t, ok)
	assert.Empty(t, d.Article)
	assert.Zero(t, res.calls[linkD])
	assert.Empty(t, r.Errors())

	b, _ := r.Lookup(MustParseLink(linkB))
	assert.NotEmpty(t, b.Article)
}

func TestCrawlFixIsRecorded(t *testing.T) {
	res := newFakeResolver()
	res.articles[linkD] = Article{Title: "D", HTML: "<article>d</article>", Fix: "rc://en/tw/dict/bible/other/d"}

	r := NewRegistry(res)
	r.AddLink(MustParseLink(linkA), primaryArticle(linkD), "Titus 1:1", 0)
	r.CrawlAll()

	require.Len(t, r.Errors(), 1)
	assert.Equal(t, "rc://en/tw/dict/bible/other/d", r.Errors()[0].Message)
}

func TestCrawlCycleTerminates(t *testing.T) {
	res := newFakeResolver()
	res.add(linkB, "B", linkC)
	res.add(linkC, "C", linkB)

	r := NewRegistry(res, WithAppendixLevel(5))
	r.AddLink(MustParseLink(linkA), primaryArticle(linkB), "Titus 1:1", 0)
	r.CrawlAll()

	assert.Equal(t, 1, res.calls[linkB])
	assert.Equal(t, 1, res.calls[linkC])
}

func TestAppendixHTML(t *testing.T) {
	res := newFakeResolver()
	res.add("rc://en/tw/dict/bible/kt/love", "Love")
	res.add("rc://en/tw/dict/bible/kt/god", "god")
	res.add(linkB, "B", linkE)
	res.add(linkE, "E")

	r := NewRegistry(res, WithReferencedInLabel("Referenced in"))
	r.AddLink(MustParseLink(linkA),
		primaryArticle("rc://en/tw/dict/bible/kt/love", "rc://en/tw/dict/bible/kt/god", linkB), "01:03", 0)
	r.CrawlAll()

	out := r.AppendixHTML("tw")
	assert.True(t, strings.HasPrefix(out, `<section id="tw-appendix" class="appendix">`))
	assert.Contains(t, out, `<h1 class="section-header">Translation Words</h1>`)
	god := strings.Index(out, "<h2>god</h2>")
	love := strings.Index(out, "<h2>Love</h2>")
	require.NotEqual(t, -1, god)
	require.NotEqual(t, -1, love)
	assert.Less(t, god, love)
	assert.Contains(t, out, `<strong>Referenced in:</strong> <a href="#tn--tit--01-01">1:3</a>`)
	assert.NotContains(t, out, "<h2>E</h2>")

	assert.Empty(t, r.AppendixHTML("tq"))
}

func TestAppendixHTMLOmitsTrailerWithoutPrimaryReference(t *testing.T) {
	res := newFakeResolver()
	res.add(linkB, "B", linkC)
	res.add(linkC, "C")

	r := NewRegistry(res, WithAppendixLevel(2))
	r.AddLink(MustParseLink(linkA), primaryArticle(linkB), "Titus 1:1", 0)
	r.CrawlAll()

	out := r.AppendixHTML("ta")
	assert.Contains(t, out, "<h2>C</h2>")
	assert.NotContains(t, out, "<h2>B</h2>")
	assert.NotContains(t, out, "go-back-to")
}
