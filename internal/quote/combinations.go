package quote

// Combination is a contiguous run of words within one group.
type Combination struct {
	Words      []string
	Occurrence int
	Indexes    []int
	Found      bool
}

// Combinations returns every contiguous run g[i..j] in order of i, then j.
// Only the single-word run at i keeps the word's occurrence; longer runs use
// 1 so a phrase is not over-constrained by the occurrence of its first word.
func Combinations(g Group) []Combination {
	var out []Combination
	for i := range g {
		words := []string{g[i].Word}
		indexes := []int{i}
		out = append(out, Combination{
			Words:      append([]string(nil), words...),
			Occurrence: g[i].Occurrence,
			Indexes:    append([]int(nil), indexes...),
		})
		for j := i + 1; j < len(g); j++ {
			words = append(words, g[j].Word)
			indexes = append(indexes, j)
			out = append(out, Combination{
				Words:      append([]string(nil), words...),
				Occurrence: 1,
				Indexes:    append([]int(nil), indexes...),
			})
		}
	}
	return out
}
