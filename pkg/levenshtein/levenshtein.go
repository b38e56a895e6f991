// Package levenshtein measures edit distance between names, used to suggest
// the intended format when a lookup fails.
package levenshtein

// Context reuses its row buffer across Distance calls.
type Context struct {
	row []int
}

// Distance returns the number of single-rune insertions, deletions and
// substitutions that turn a into b.
func (ctx *Context) Distance(a, b string) int {
	s1, s2 := []rune(a), []rune(b)

	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}

	if len(s2) == 0 {
		return len(s1)
	}

	if cap(ctx.row) < len(s2)+1 {
		ctx.row = make([]int, len(s2)+1)
	}

	row := ctx.row[:len(s2)+1]
	for i := range row {
		row[i] = i
	}

	for i, r1 := range s1 {
		diag := row[0]
		row[0] = i + 1

		for j, r2 := range s2 {
			cost := 1
			if r1 == r2 {
				cost = 0
			}

			up := row[j+1]
			row[j+1] = min(up+1, row[j]+1, diag+cost)
			diag = up
		}
	}

	return row[len(s2)]
}

// Closest returns the candidate nearest to name. Candidates further away
// than maxDistance are not suggested.
func Closest(name string, candidates []string, maxDistance int) (string, bool) {
	var (
		ctx  Context
		best string
	)

	bestDistance := maxDistance + 1

	for _, c := range candidates {
		d := ctx.Distance(name, c)
		if d < bestDistance {
			best, bestDistance = c, d
		}
	}

	return best, bestDistance <= maxDistance
}

// Suggest formats a " (did you mean X?)" hint, or returns "" when nothing is close.
func Suggest(name string, candidates []string) string {
	const maxDistance = 2

	if best, ok := Closest(name, candidates, maxDistance); ok {
		return " (did you mean " + best + "?)"
	}

	return ""
}
