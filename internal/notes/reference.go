package notes

import (
	"fmt"
	"strconv"
	"strings"

	"door43-helps-engine/internal/models"
)

// Reference is a parsed note reference such as "1:3" or "1:3-5". Intro
// notes ("1:intro", "front:intro") have no verses.
type Reference struct {
	Chapter string
	First   int
	Last    int
}

func (r Reference) Intro() bool { return r.First == 0 }

func ParseReference(s string) (Reference, error) {
	ch, vs, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || ch == "" || vs == "" {
		return Reference{}, fmt.Errorf("reference %q: want chapter:verse", s)
	}
	ref := Reference{Chapter: ch}
	if vs == "intro" {
		return ref, nil
	}
	from, to, isRange := strings.Cut(vs, "-")
	first, err := strconv.Atoi(from)
	if err != nil || first < 1 {
		return Reference{}, fmt.Errorf("reference %q: bad verse %q", s, from)
	}
	ref.First, ref.Last = first, first
	if isRange {
		last, err := strconv.Atoi(to)
		if err != nil || last < first {
			return Reference{}, fmt.Errorf("reference %q: bad verse range", s)
		}
		ref.Last = last
	}
	return ref, nil
}

// Tokens returns the verse tokens the reference covers, verses of a range
// concatenated. ok is false when a verse is missing from the chapter.
func (r Reference) Tokens(verses map[string]models.Verse) ([]models.VerseToken, bool) {
	if r.Intro() {
		return nil, false
	}
	var out []models.VerseToken
	for v := r.First; v <= r.Last; v++ {
		verse, ok := verses[strconv.Itoa(v)]
		if !ok {
			return nil, false
		}
		out = append(out, verse.VerseObjects...)
	}
	return out, true
}

func (r Reference) String() string {
	switch {
	case r.Intro():
		return r.Chapter + ":intro"
	case r.First == r.Last:
		return fmt.Sprintf("%s:%d", r.Chapter, r.First)
	}
	return fmt.Sprintf("%s:%d-%d", r.Chapter, r.First, r.Last)
}

// anchor is the zero-padded verse part of rc links and titles: 03 or 03-04.
func (r Reference) anchor() string {
	if r.First == r.Last {
		return fmt.Sprintf("%02d", r.First)
	}
	return fmt.Sprintf("%02d-%02d", r.First, r.Last)
}

// pad gives the zero-padded form used in rc links and anchors: 01, 003.
func pad(s string, width int) string {
	if n, err := strconv.Atoi(s); err == nil {
		return fmt.Sprintf("%0*d", width, n)
	}
	return s
}
