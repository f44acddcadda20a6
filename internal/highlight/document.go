package highlight

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var fullDocumentRe = regexp.MustCompile(`(?i)^\s*(<!doctype|<html)`)

// document holds parsed HTML. Fragments are attached to a synthetic body so
// every node has a parent to insert siblings into.
type document struct {
	root     *html.Node
	fragment bool
}

func parseDocument(src string) (*document, error) {
	if fullDocumentRe.MatchString(src) {
		root, err := html.Parse(strings.NewReader(src))
		if err != nil {
			return nil, fmt.Errorf("parse html: %w", err)
		}
		return &document{root: root}, nil
	}
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(src), body)
	if err != nil {
		return nil, fmt.Errorf("parse html fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return &document{root: body, fragment: true}, nil
}

func (d *document) String() string {
	var buf bytes.Buffer
	if !d.fragment {
		_ = html.Render(&buf, d.root)
		return buf.String()
	}
	for c := d.root.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// parseTag turns a tag string such as `<span class="highlight">` into an
// element node used as the template for every wrapped piece.
func parseTag(tag string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(tag), body)
	if err != nil {
		return nil, fmt.Errorf("parse tag %q: %w", tag, err)
	}
	for _, n := range nodes {
		if n.Type == html.ElementNode {
			return n, nil
		}
	}
	return nil, fmt.Errorf("tag %q has no element", tag)
}

// visibleText returns the text of src that highlighting can reach.
func visibleText(src string) (string, error) {
	d, err := parseDocument(src)
	if err != nil {
		return "", err
	}
	_, text := collectSpans(d.root)
	return text, nil
}
