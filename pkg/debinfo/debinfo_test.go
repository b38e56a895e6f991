package debinfo_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/pkg/debinfo"
	"github.com/Sumatoshi-tech/convsym/pkg/output"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

func generate(t *testing.T, id string, symbols []symtab.Symbol, opts string) []byte {
	t.Helper()

	d, err := output.DefaultRegistry().Lookup(id)
	require.NoError(t, err)

	res, err := d.Generate(symbols, opts, output.Env{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)

	return res.Data
}

func randomSymbols(seed uint64, n int) []symtab.Symbol {
	rng := rand.New(rand.NewPCG(seed, seed^0x5EED))
	tbl := symtab.New(symtab.Options{Offsets: symtab.DefaultOffsetOptions()})

	const alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_.@"

	for range n {
		label := make([]byte, 1+rng.IntN(24))
		for i := range label {
			label[i] = alphabet[rng.IntN(len(alphabet))]
		}

		tbl.Add(rng.Uint32N(0x3FFFFF), string(label))
	}

	return tbl.Symbols()
}

// uniqueAddresses keeps the first label at each address.
func uniqueAddresses(symbols []symtab.Symbol) []symtab.Symbol {
	var out []symtab.Symbol

	for i, s := range symbols {
		if i > 0 && symbols[i-1].Address == s.Address {
			continue
		}

		out = append(out, s)
	}

	return out
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	for _, format := range []string{"deb1", "deb2"} {
		for seed := range uint64(4) {
			t.Run(fmt.Sprintf("%s/seed_%d", format, seed), func(t *testing.T) {
				t.Parallel()

				symbols := randomSymbols(seed, 500)
				data := generate(t, format, symbols, "")

				tbl, err := debinfo.Decode(data)
				require.NoError(t, err)

				assert.Equal(t, format, tbl.Format.String())
				assert.Equal(t, uniqueAddresses(symbols), tbl.Symbols())
				assert.LessOrEqual(t, tbl.Size, len(data))
			})
		}
	}
}

func TestRoundTrip_AddressZero(t *testing.T) {
	t.Parallel()

	symbols := []symtab.Symbol{{Address: 0, Label: "StartOfRom"}, {Address: 0x200, Label: "EntryPoint"}}

	for _, format := range []string{"deb1", "deb2"} {
		tbl, err := debinfo.Decode(generate(t, format, symbols, ""))
		require.NoError(t, err, format)
		assert.Equal(t, symbols, tbl.Symbols(), format)
	}
}

func TestDuplicatePolicy(t *testing.T) {
	t.Parallel()

	symbols := []symtab.Symbol{{Address: 0x100, Label: "alpha"}, {Address: 0x100, Label: "beta"}}

	tests := []struct {
		opts string
		want string
	}{
		{opts: "/favorLastLabels-", want: "alpha"},
		{opts: "/favorLastLabels+", want: "beta"},
	}

	for _, tt := range tests {
		t.Run(tt.opts, func(t *testing.T) {
			t.Parallel()

			tbl, err := debinfo.Decode(generate(t, "deb2", symbols, tt.opts))
			require.NoError(t, err)
			assert.Equal(t, []symtab.Symbol{{Address: 0x100, Label: tt.want}}, tbl.Symbols())
		})
	}
}

func TestDecodeViaPointer_SplicedTable(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "rom.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 0x201), 0o600))

	symbols := []symtab.Symbol{{Address: 0x100, Label: "main"}, {Address: 0x10010, Label: "loop"}}
	payload := generate(t, "deb2", symbols, "")

	commit, err := output.Target{Path: path, Mode: output.SpliceEnd, Align: true, PointerOffset: 0x1C}.
		Commit(payload, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	require.Equal(t, int64(0x202), commit.Base)

	rom, err := os.ReadFile(path)
	require.NoError(t, err)

	tbl, err := debinfo.DecodeViaPointer(rom, 0x1C)
	require.NoError(t, err)
	assert.Equal(t, 0x202, tbl.Base)
	assert.Equal(t, symbols, tbl.Symbols())
	assert.Len(t, tbl.Blocks, 2)
}

func TestDecode_Errors(t *testing.T) {
	t.Parallel()

	valid := generate(t, "deb2", []symtab.Symbol{{Address: 0x100, Label: "main"}}, "")

	t.Run("bad magic", func(t *testing.T) {
		t.Parallel()

		_, err := debinfo.Decode([]byte{0x12, 0x34, 0, 0})
		require.ErrorIs(t, err, debinfo.ErrBadMagic)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		_, err := debinfo.Decode(nil)
		require.ErrorIs(t, err, debinfo.ErrBadMagic)
	})

	t.Run("truncated", func(t *testing.T) {
		t.Parallel()

		_, err := debinfo.Decode(valid[:len(valid)-3])
		require.ErrorIs(t, err, debinfo.ErrCorrupt)
	})

	t.Run("block offset past end", func(t *testing.T) {
		t.Parallel()

		broken := bytes.Clone(valid)
		binary.BigEndian.PutUint32(broken[4:], 0x10000)

		_, err := debinfo.Decode(broken)
		require.ErrorIs(t, err, debinfo.ErrCorrupt)
	})

	t.Run("pointer past end", func(t *testing.T) {
		t.Parallel()

		_, err := debinfo.DecodeViaPointer(valid, len(valid))
		require.ErrorIs(t, err, debinfo.ErrCorrupt)
	})
}
