package levenshtein_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sumatoshi-tech/convsym/pkg/levenshtein"
)

func TestDistance(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"deb2", "", 4},
		{"", "log", 3},
		{"deb2", "deb2", 0},
		{"deb2", "deb1", 1},
		{"asm68k_sim", "asm68k_sym", 1},
		{"kitten", "sitting", 3},
		{"as_lst", "asm68k_lst", 4},
		{"été", "ete", 2},
	}

	var ctx levenshtein.Context

	for _, tt := range tests {
		assert.Equal(t, tt.want, ctx.Distance(tt.a, tt.b), "%q -> %q", tt.a, tt.b)
		assert.Equal(t, tt.want, ctx.Distance(tt.b, tt.a), "%q -> %q", tt.b, tt.a)
	}
}

func TestClosest(t *testing.T) {
	t.Parallel()

	candidates := []string{"deb1", "deb2", "asm", "log"}

	best, ok := levenshtein.Closest("deb3", candidates, 2)
	assert.True(t, ok)
	assert.Equal(t, "deb1", best)

	_, ok = levenshtein.Closest("elf32", candidates, 2)
	assert.False(t, ok)

	_, ok = levenshtein.Closest("x", nil, 2)
	assert.False(t, ok)
}

func TestSuggest(t *testing.T) {
	t.Parallel()

	assert.Equal(t, " (did you mean asm68k_lst?)", levenshtein.Suggest("asm68k_lts", []string{"asm68k_sym", "asm68k_lst"}))
	assert.Empty(t, levenshtein.Suggest("binary", []string{"deb1", "deb2"}))
}
