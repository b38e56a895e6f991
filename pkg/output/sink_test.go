package output_test

import (
	"bytes"
	"encoding/binary"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/pkg/output"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func romFile(t *testing.T, size int) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "rom.bin")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xAA}, size), 0o600))

	return path
}

func TestCommit_Fresh(t *testing.T) {
	t.Parallel()

	path := romFile(t, 0x40)

	commit, err := output.Target{Path: path}.Commit([]byte{0xDE, 0xB2}, discardLogger())
	require.NoError(t, err)

	assert.Zero(t, commit.Base)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xDE, 0xB2}, got, "existing content is truncated")
}

func TestCommit_Stdout(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	commit, err := output.Target{Path: output.StdoutPath, Stdout: &buf}.Commit([]byte("x"), discardLogger())
	require.NoError(t, err)
	assert.Equal(t, 1, commit.Written)
	assert.Equal(t, "x", buf.String())

	_, err = output.Target{Path: output.StdoutPath, Mode: output.SpliceEnd}.Commit([]byte("x"), discardLogger())
	require.ErrorIs(t, err, output.ErrSpliceStdout)
}

func TestCommit_SpliceEndAlignment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		size     int
		align    bool
		wantBase int64
	}{
		{name: "odd aligned", size: 0x101, align: true, wantBase: 0x102},
		{name: "odd unaligned", size: 0x101, align: false, wantBase: 0x101},
		{name: "even aligned", size: 0x100, align: true, wantBase: 0x100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			path := romFile(t, tt.size)
			payload := []byte{0xDE, 0xB2, 0x00, 0x06}

			commit, err := output.Target{Path: path, Mode: output.SpliceEnd, Align: tt.align}.
				Commit(payload, discardLogger())
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, commit.Base)

			got, err := os.ReadFile(path)
			require.NoError(t, err)
			require.Len(t, got, int(tt.wantBase)+len(payload))
			assert.Equal(t, payload, got[tt.wantBase:])

			if tt.wantBase != int64(tt.size) {
				assert.Equal(t, byte(0), got[tt.size], "padding byte")
			}
		})
	}
}

func TestCommit_SpliceAtWithPointer(t *testing.T) {
	t.Parallel()

	path := romFile(t, 0x200)

	commit, err := output.Target{
		Path: path, Mode: output.SpliceAt, Offset: 0x100, Align: true, PointerOffset: 0x10,
	}.Commit([]byte{1, 2, 3, 4}, discardLogger())
	require.NoError(t, err)
	assert.Equal(t, int64(0x100), commit.Base)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, got, 0x200, "splicing inside the file keeps its size")
	assert.Equal(t, uint32(0x100), binary.BigEndian.Uint32(got[0x10:]))
	assert.Equal(t, []byte{1, 2, 3, 4}, got[0x100:0x104])
	assert.Equal(t, byte(0xAA), got[0x104])
}

func TestCommit_SpliceMissingFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "missing.bin")

	_, err := output.Target{Path: path, Mode: output.SpliceEnd}.Commit([]byte{1}, discardLogger())
	require.Error(t, err)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestCommit_PointerBeyond4GiB(t *testing.T) {
	t.Parallel()

	const size = int64(1)<<32 + 0x10

	path := filepath.Join(t.TempDir(), "huge.bin")

	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(size), "sparse file")
	require.NoError(t, f.Close())

	_, err = output.Target{
		Path: path, Mode: output.SpliceEnd, PointerOffset: 0x10,
	}.Commit([]byte{1, 2}, discardLogger())
	require.ErrorIs(t, err, output.ErrPointerRange)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, size, info.Size(), "nothing is written")
}
