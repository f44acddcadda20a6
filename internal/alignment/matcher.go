package alignment

import (
	"strings"

	"door43-helps-engine/internal/models"
	"door43-helps-engine/internal/quote"
)

// groupMatch is the scratch state for matching one quote group. It is created
// per Align call and threaded through the recursive walk.
type groupMatch struct {
	group  quote.Group
	combos []quote.Combination
}

// runState tracks, for one sibling list, whether the last milestone with
// content was a hit and which text tokens followed it. The buffered text is
// only kept if another hit continues the run.
type runState struct {
	lastFound bool
	inBetween models.AlignmentGroup
}

func (s runState) attach(out []models.AlignmentGroup, inner models.AlignmentGroup) ([]models.AlignmentGroup, runState) {
	if s.lastFound && len(out) > 0 {
		last := append(out[len(out)-1], s.inBetween...)
		out[len(out)-1] = append(last, inner...)
		return out, runState{lastFound: true}
	}
	return append(out, inner), runState{lastFound: true}
}

// match tests every combination against the milestone in order and marks the
// first hit and its words as found.
func (m *groupMatch) match(t models.VerseToken) bool {
	for i := range m.combos {
		c := &m.combos[i]
		if c.Occurrence != int(t.Occurrence) {
			continue
		}
		if strings.Join(c.Words, "") != t.Content &&
			strings.Join(c.Words, " ") != t.Content &&
			strings.Join(c.Words, wordJoiner) != t.Content {
			continue
		}
		c.Found = true
		for _, idx := range c.Indexes {
			m.group[idx].Found = true
		}
		return true
	}
	return false
}

// walkOutside walks tokens that are not inside a matched milestone and
// returns one fragment per run of matched milestones.
func (m *groupMatch) walkOutside(tokens []models.VerseToken) []models.AlignmentGroup {
	var (
		out []models.AlignmentGroup
		st  runState
	)
	for _, t := range tokens {
		switch {
		case t.IsMilestone():
			hit := false
			if t.Content != "" {
				hit = m.match(t)
				if !hit {
					st = runState{}
				}
			}
			if len(t.Children) == 0 {
				continue
			}
			if hit {
				out, st = st.attach(out, m.walkInside(t.Children))
			} else {
				out = append(out, m.walkOutside(t.Children)...)
			}
		case t.HasText():
			if st.lastFound {
				st.inBetween = append(st.inBetween, aligned(t))
			}
		}
	}
	return out
}

// walkInside collects every text token below a matched milestone. Nested
// milestones are still tested so their words count as found.
func (m *groupMatch) walkInside(tokens []models.VerseToken) models.AlignmentGroup {
	var out models.AlignmentGroup
	for _, t := range tokens {
		switch {
		case t.IsMilestone():
			if t.Content != "" {
				m.match(t)
			}
			out = append(out, m.walkInside(t.Children)...)
		case t.HasText():
			out = append(out, aligned(t))
		}
	}
	return out
}

func aligned(t models.VerseToken) models.AlignedWord {
	kind := t.Type
	if kind == "" {
		kind = models.KindText
	}
	return models.AlignedWord{Word: t.Text, Occurrence: int(t.Occurrence), Kind: kind}
}
