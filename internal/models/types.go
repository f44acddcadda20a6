
package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type TokenKind string

const (
	KindMilestone TokenKind = "milestone"
	KindWord      TokenKind = "word"
	KindText      TokenKind = "text"
)

// Occurrence is a 1-based occurrence number. usfm-js emits it as a string
// ("1"), hand-written fixtures use plain numbers; both decode.
type Occurrence int

func (o *Occurrence) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		*o = 0
		return nil
	}
	s = strings.Trim(s, `"`)
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("occurrence %s: %w", string(data), err)
	}
	*o = Occurrence(n)
	return nil
}

// VerseToken is one node of a parsed verse. Milestones carry the
// original-language Content and the aligned target tokens as Children;
// word and text tokens carry Text.
type VerseToken struct {
	Type       TokenKind    `json:"type"`
	Tag        string       `json:"tag,omitempty"`
	Content    string       `json:"content,omitempty"`
	Text       string       `json:"text,omitempty"`
	Occurrence Occurrence   `json:"occurrence,omitempty"`
	Strong     string       `json:"strong,omitempty"`
	Lemma      string       `json:"lemma,omitempty"`
	Children   []VerseToken `json:"children,omitempty"`
}

func (t VerseToken) IsMilestone() bool { return t.Type == KindMilestone }

// HasText reports whether the token contributes target-language text.
func (t VerseToken) HasText() bool {
	return t.Type == KindWord || t.Type == KindText || (t.Type == "" && t.Text != "")
}

type Verse struct {
	VerseObjects []VerseToken `json:"verseObjects"`
}

// AlignedWord is one recovered target-language token.
type AlignedWord struct {
	Word       string    `json:"word"`
	Occurrence int       `json:"occurrence"`
	Kind       TokenKind `json:"type,omitempty"`
}

// AlignmentGroup is the run of tokens recovered for one contiguous span.
type AlignmentGroup []AlignedWord

type Alignment []AlignmentGroup

func (a Alignment) MarshalJSON() ([]byte, error) {
	if a == nil {
		return []byte("null"), nil
	}
	return json.Marshal([]AlignmentGroup(a))
}

// Note is one translation-notes row.
type Note struct {
	Reference        string    `json:"reference"`
	ID               string    `json:"id"`
	Tags             string    `json:"tags,omitempty"`
	SupportReference string    `json:"supportReference,omitempty"`
	Quote            string    `json:"quote,omitempty"`
	Occurrence       int       `json:"occurrence"`
	Note             string    `json:"note,omitempty"`
	GLQuote          string    `json:"glQuote,omitempty"`
	Alignment        Alignment `json:"alignment,omitempty"`
}

// Diagnostic is one entry of a document-level error report.
type Diagnostic struct {
	SourceLink string `json:"sourceLink"`
	BadLink    string `json:"badLink"`
	Message    string `json:"message,omitempty"`
}

type BadHighlight struct {
	Source string `json:"source"`
	Text   string `json:"text"`
	NoteID string `json:"noteId"`
	Phrase string `json:"phrase"`
	Fix    string `json:"fix,omitempty"`
}

// ArticlePage is the parsed view of a rendered article.
type ArticlePage struct {
	Title     string   `json:"title"`
	Headings  []string `json:"headings,omitempty"`
	Text      string   `json:"text"`
	WordCount int      `json:"wordCount"`
	Language  string   `json:"language,omitempty"`
}
