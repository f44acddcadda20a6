
package parser

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"

	"door43-helps-engine/internal/models"
)

type Parser struct{}

func New() *Parser { return &Parser{} }

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	headerRe     = regexp.MustCompile(`^h[1-6]$`)
)

const headers = "h1,h2,h3,h4,h5,h6"

// Extract reads an article, decoding it to UTF-8 first, and returns its
// title, headings and visible text.
func (p *Parser) Extract(r io.Reader, contentType string) (models.ArticlePage, error) {
	buf := new(bytes.Buffer)
	_, _ = io.Copy(buf, r)
	data := buf.Bytes()

	enc, _, _ := charset.DetermineEncoding(data, contentType)
	utf8data, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		// fallback: if already utf-8, continue
		if !utf8.Valid(data) {
			return models.ArticlePage{}, err
		}
		utf8data = data
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(utf8data))
	if err != nil {
		return models.ArticlePage{}, err
	}

	doc.Find("script,noscript,style").Each(func(i int, s *goquery.Selection) {
		s.Remove()
	})

	page := models.ArticlePage{
		Title:    firstHeader(doc.Selection),
		Language: strings.TrimSpace(doc.Find("html").AttrOr("lang", "")),
	}
	if page.Title == "" {
		page.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	doc.Find(headers).Each(func(i int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" {
			page.Headings = append(page.Headings, t)
		}
	})

	// main text: gather paragraphs and list items
	var parts []string
	doc.Find("p,li").Each(func(i int, s *goquery.Selection) {
		t := strings.TrimSpace(s.Text())
		if t != "" {
			parts = append(parts, t)
		}
	})
	page.Text = strings.TrimSpace(whitespaceRe.ReplaceAllString(strings.Join(parts, " "), " "))
	if page.Text != "" {
		page.WordCount = len(strings.Fields(page.Text))
	}
	return page, nil
}

// Title returns the text of the first header in an HTML fragment.
func (p *Parser) Title(src string) (string, error) {
	doc, err := fragment(src)
	if err != nil {
		return "", err
	}
	return firstHeader(doc.Selection), nil
}

// IncrementHeaders moves every header down by depth levels, stopping at h6.
func (p *Parser) IncrementHeaders(src string, depth int) (string, error) {
	if src == "" || depth == 0 {
		return src, nil
	}
	doc, err := fragment(src)
	if err != nil {
		return "", err
	}
	for level := 5; level >= 1; level-- {
		to := min(level+depth, 6)
		doc.Find(fmt.Sprintf("h%d", level)).Each(func(_ int, s *goquery.Selection) {
			for _, n := range s.Nodes {
				rename(n, fmt.Sprintf("h%d", to))
			}
		})
	}
	return doc.Find("body").Html()
}

// SectionHeader adds the section-header class to the first header, plus any
// extra classes given.
func (p *Parser) SectionHeader(src string, classes ...string) (string, error) {
	doc, err := fragment(src)
	if err != nil {
		return "", err
	}
	var first *goquery.Selection
	doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if headerRe.MatchString(goquery.NodeName(s)) {
			first = s
			return false
		}
		return true
	})
	if first != nil {
		first.AddClass(append([]string{"section-header"}, classes...)...)
	}
	return doc.Find("body").Html()
}

func fragment(src string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func firstHeader(s *goquery.Selection) string {
	title := ""
	s.Find("body *").EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if headerRe.MatchString(goquery.NodeName(h)) {
			title = strings.TrimSpace(h.Text())
			return false
		}
		return true
	})
	return title
}

func rename(n *html.Node, tag string) {
	n.Data = tag
	n.DataAtom = atom.Lookup([]byte(tag))
}
