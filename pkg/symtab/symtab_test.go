package symtab_test

import (
	"math/rand/v2"
	"regexp"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

func newTable(opts symtab.OffsetOptions) *symtab.Table {
	return symtab.New(symtab.Options{Offsets: opts})
}

func TestOffsetOptions_Transform(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    symtab.OffsetOptions
		raw     uint32
		want    uint32
		inRange bool
	}{
		{"defaults", symtab.DefaultOffsetOptions(), 0x1234, 0x1234, true},
		{"base_subtracted", symtab.OffsetOptions{Base: 0xFF0000, Mask: 0xFFFFFF, High: 0x3FFFFF}, 0xFF0100, 0x100, true},
		{"mask_applied", symtab.DefaultOffsetOptions(), 0x12FF0100, 0xFF0100, false},
		{"underflow_wraps", symtab.OffsetOptions{Base: 0x100, Mask: 0xFFFFFF, High: 0xFFFFFF}, 0x80, 0xFFFF80, true},
		{"below_low", symtab.OffsetOptions{Mask: 0xFFFFFF, Low: 0x200, High: 0x3FFFFF}, 0x100, 0x100, false},
		{"high_inclusive", symtab.DefaultOffsetOptions(), 0x3FFFFF, 0x3FFFFF, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, ok := tt.opts.Transform(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.inRange, ok)
		})
	}
}

func TestTable_AddKeepsOrder(t *testing.T) {
	t.Parallel()

	tbl := newTable(symtab.DefaultOffsetOptions())

	assert.True(t, tbl.Add(0x200, "loop"))
	assert.True(t, tbl.Add(0x100, "main"))
	assert.True(t, tbl.Add(0x100, "entry"))
	assert.False(t, tbl.Add(0x400000, "ram"))

	want := []symtab.Symbol{
		{Address: 0x100, Label: "main"},
		{Address: 0x100, Label: "entry"},
		{Address: 0x200, Label: "loop"},
	}

	assert.Equal(t, want, tbl.Symbols())
	assert.Equal(t, 3, tbl.Len())
	assert.Equal(t, 2, tbl.AddressCount())
	assert.Equal(t, []string{"main", "entry"}, tbl.Labels(0x100))

	last, ok := tbl.LastAddress()
	require.True(t, ok)
	assert.Equal(t, uint32(0x200), last)
}

func TestTable_RandomInsertsSortedAndStable(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	opts := symtab.OffsetOptions{Base: 0x10, Mask: 0xFFFF, Low: 0x100, High: 0xF000}
	tbl := newTable(opts)

	type insert struct {
		raw   uint32
		label string
		seq   int
	}

	var accepted []insert

	for i := range 2000 {
		raw := rng.Uint32N(0x20000)
		label := string(rune('a' + i%26))

		ok := tbl.Add(raw, label)

		want, inRange := opts.Transform(raw)
		assert.Equal(t, inRange, ok)

		if ok {
			accepted = append(accepted, insert{raw: want, label: label, seq: i})
		}
	}

	slices.SortStableFunc(accepted, func(a, b insert) int {
		switch {
		case a.raw < b.raw:
			return -1
		case a.raw > b.raw:
			return 1
		default:
			return 0
		}
	})

	got := tbl.Symbols()
	require.Len(t, got, len(accepted))

	for i, sym := range got {
		assert.Equal(t, accepted[i].raw, sym.Address)
		assert.Equal(t, accepted[i].label, sym.Label)
	}
}

func TestTable_Transforms(t *testing.T) {
	t.Parallel()

	tbl := newTable(symtab.DefaultOffsetOptions())
	tbl.Add(0x100, "Main")
	tbl.Add(0x200, "Loop")

	tbl.ToUpper()
	assert.Equal(t, []string{"MAIN"}, tbl.Labels(0x100))

	tbl.ToLower()
	assert.Equal(t, []string{"loop"}, tbl.Labels(0x200))

	tbl.AddPrefix("Game_")
	assert.Equal(t, []string{"Game_main"}, tbl.Labels(0x100))
}

func TestTable_Filter(t *testing.T) {
	t.Parallel()

	build := func() *symtab.Table {
		tbl := newTable(symtab.DefaultOffsetOptions())
		tbl.Add(0x100, "keep")
		tbl.Add(0x100, "DROP")
		tbl.Add(0x200, "DROP")
		tbl.Add(0x300, "other")

		return tbl
	}

	t.Run("exclude", func(t *testing.T) {
		t.Parallel()

		tbl := build()
		tbl.Filter(regexp.MustCompile(`^DROP$`), true)

		assert.Equal(t, []symtab.Symbol{
			{Address: 0x100, Label: "keep"},
			{Address: 0x300, Label: "other"},
		}, tbl.Symbols())
		assert.Equal(t, 2, tbl.AddressCount())
		assert.Equal(t, 2, tbl.Len())
	})

	t.Run("include", func(t *testing.T) {
		t.Parallel()

		tbl := build()
		tbl.Filter(regexp.MustCompile(`^DROP$`), false)

		assert.Equal(t, []symtab.Symbol{
			{Address: 0x100, Label: "DROP"},
			{Address: 0x200, Label: "DROP"},
		}, tbl.Symbols())
	})

	t.Run("everything_removed", func(t *testing.T) {
		t.Parallel()

		tbl := build()
		tbl.Filter(regexp.MustCompile(`^nothing$`), false)

		assert.True(t, tbl.IsEmpty())
		_, ok := tbl.LastAddress()
		assert.False(t, ok)
	})
}

func TestTable_ResolvesFirstOccurrence(t *testing.T) {
	t.Parallel()

	rt := symtab.NewResolveTable()
	rt.Request("Pointer")
	rt.Request("Missing")
	rt.Request("Pointer")

	tbl := symtab.New(symtab.Options{
		Offsets: symtab.OffsetOptions{Base: 0x1000, Mask: 0xFFFFFF, High: 0x3FFFFF},
		Resolve: rt,
	})

	tbl.Add(0x1100, "Pointer")
	tbl.Add(0x1200, "Pointer")

	addr, ok := rt.Lookup("Pointer")
	require.True(t, ok)
	assert.Equal(t, uint32(0x100), addr)

	assert.Equal(t, 2, rt.Len())
	assert.Equal(t, []string{"Missing"}, rt.Unresolved())

	err := rt.Check()
	require.ErrorIs(t, err, symtab.ErrUnresolved)
	assert.Contains(t, err.Error(), "Missing")

	tbl.Add(0x1300, "Missing")
	assert.NoError(t, rt.Check())
}

func TestTable_ResolvesOutOfRange(t *testing.T) {
	t.Parallel()

	rt := symtab.NewResolveTable()
	rt.Request("RamVar")

	tbl := symtab.New(symtab.Options{Offsets: symtab.DefaultOffsetOptions(), Resolve: rt})

	assert.False(t, tbl.Add(0xFF8000, "RamVar"))

	addr, ok := rt.Lookup("RamVar")
	require.True(t, ok)
	assert.Equal(t, uint32(0xFF8000), addr)
	assert.True(t, tbl.IsEmpty())
}

func TestResolution_ZeroValueUnresolved(t *testing.T) {
	t.Parallel()

	var res symtab.Resolution

	_, ok := res.Address()
	assert.False(t, ok)

	addr, ok := symtab.Resolved(0).Address()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), addr)
}
