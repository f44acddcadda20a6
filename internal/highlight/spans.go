package highlight

import (
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// span is a piece of text at a known byte offset of the flattened document
// text, together with the text node it came from.
type span struct {
	start int
	text  string
	mark  bool
	node  *html.Node
}

func (s span) end() int { return s.start + len(s.text) }

var skipped = map[atom.Atom]bool{
	atom.Script:   true,
	atom.Style:    true,
	atom.Title:    true,
	atom.Textarea: true,
	atom.Noscript: true,
}

// collectSpans lists the text nodes below root in document order. Elements
// whose content is raw text or RCDATA are skipped; markup inserted there
// would serialize as literal text.
func collectSpans(root *html.Node) ([]span, string) {
	var (
		spans []span
		b     strings.Builder
	)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && skipped[n.DataAtom] {
			return
		}
		if n.Type == html.TextNode {
			spans = append(spans, span{start: b.Len(), text: n.Data, node: n})
			b.WriteString(n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return spans, b.String()
}

// splitSpans cuts every span overlapping [start, end) into its pre-match,
// match and post-match pieces. Match pieces are marked. Spans outside the
// range are returned unchanged.
func splitSpans(spans []span, start, end int) []span {
	out := make([]span, 0, len(spans)+2)
	for _, s := range spans {
		if len(s.text) == 0 || s.end() <= start || s.start >= end {
			out = append(out, s)
			continue
		}
		lo := max(start, s.start) - s.start
		hi := min(end, s.end()) - s.start
		if lo > 0 {
			out = append(out, span{start: s.start, text: s.text[:lo], node: s.node})
		}
		out = append(out, span{start: s.start + lo, text: s.text[lo:hi], mark: true, node: s.node})
		if hi < len(s.text) {
			out = append(out, span{start: s.start + hi, text: s.text[hi:], node: s.node})
		}
	}
	return out
}

// applySpans replaces every text node that was split by its pieces, wrapping
// marked pieces in a copy of tag.
func applySpans(pieces []span, tag *html.Node) {
	for i := 0; i < len(pieces); {
		j := i + 1
		for j < len(pieces) && pieces[j].node == pieces[i].node {
			j++
		}
		group := pieces[i:j]
		i = j
		if len(group) == 1 && !group[0].mark {
			continue
		}
		orig := group[0].node
		parent := orig.Parent
		if parent == nil {
			continue
		}
		for _, p := range group {
			text := &html.Node{Type: html.TextNode, Data: p.text}
			if !p.mark {
				parent.InsertBefore(text, orig)
				continue
			}
			el := cloneElement(tag)
			el.AppendChild(text)
			parent.InsertBefore(el, orig)
		}
		parent.RemoveChild(orig)
	}
}

func cloneElement(n *html.Node) *html.Node {
	return &html.Node{
		Type:      html.ElementNode,
		Data:      n.Data,
		DataAtom:  n.DataAtom,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
}
