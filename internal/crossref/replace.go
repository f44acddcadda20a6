package crossref

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	fullDocumentRe = regexp.MustCompile(`(?i)^\s*(<!doctype|<html)`)
	rcTextRe       = regexp.MustCompile(`\[*rc://[/A-Za-z0-9*_-]+\]*`)
)

// ReplaceLinks rewrites rc links in an HTML document or fragment. Anchors
// with an rc href point at the registered article or are unwrapped when the
// target is unknown. Bare rc links in text become anchors to entries within
// the appendix level; deeper entries are replaced by their title in a
// remove-article span.
func (r *Registry) ReplaceLinks(src string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(`a[href^="rc://"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if link, err := ParseLink(href); err == nil {
			if e, ok := r.Lookup(link); ok {
				s.SetAttr("href", "#"+e.ArticleID)
				return
			}
		}
		if s.Contents().Length() > 0 {
			s.Contents().Unwrap()
		} else {
			s.Remove()
		}
	})

	body := doc.Find("body")
	for _, n := range body.Nodes {
		r.replaceTextLinks(n)
	}

	if fullDocumentRe.MatchString(src) {
		return doc.Html()
	}
	return body.Html()
}

func (r *Registry) replaceTextLinks(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		switch {
		case c.Type == html.ElementNode && c.DataAtom == atom.A:
		case c.Type == html.ElementNode:
			r.replaceTextLinks(c)
		case c.Type == html.TextNode && rcTextRe.MatchString(c.Data):
			r.splitTextLinks(c)
		}
		c = next
	}
}

func (r *Registry) splitTextLinks(text *html.Node) {
	parent := text.Parent
	s := text.Data
	last := 0
	for _, m := range rcTextRe.FindAllStringIndex(s, -1) {
		raw := s[m[0]:m[1]]
		link, err := ParseLink(strings.Trim(raw, "[]"))
		if err != nil {
			continue
		}
		e, ok := r.Lookup(link)
		if !ok || e.Title == "" {
			continue
		}
		if m[0] > last {
			parent.InsertBefore(&html.Node{Type: html.TextNode, Data: s[last:m[0]]}, text)
		}
		parent.InsertBefore(r.linkNode(e), text)
		last = m[1]
	}
	if last == 0 {
		return
	}
	if last < len(s) {
		text.Data = s[last:]
	} else {
		parent.RemoveChild(text)
	}
}

func (r *Registry) linkNode(e *Entry) *html.Node {
	var n *html.Node
	if e.LinkingLevel <= r.appendixLevel {
		n = &html.Node{Type: html.ElementNode, Data: "a", DataAtom: atom.A, Attr: []html.Attribute{
			{Key: "href", Val: "#" + e.ArticleID},
			{Key: "class", Val: "local-article"},
		}}
	} else {
		n = &html.Node{Type: html.ElementNode, Data: "span", DataAtom: atom.Span, Attr: []html.Attribute{
			{Key: "class", Val: "remove-article"},
		}}
	}
	n.AppendChild(&html.Node{Type: html.TextNode, Data: e.Title})
	return n
}
