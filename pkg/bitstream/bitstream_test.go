package bitstream_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/pkg/bitstream"
)

func TestWriter_MSBFirst(t *testing.T) {
	t.Parallel()

	w := bitstream.NewWriter()
	w.PushCode(0b1, 1)
	w.PushCode(0b01, 2)
	w.PushCode(0b11111, 5)

	assert.Equal(t, []byte{0b10111111}, w.Bytes())
	assert.Equal(t, 1, w.Position())
	assert.Equal(t, 1, w.Size())
}

func TestWriter_SplitAcrossBytes(t *testing.T) {
	t.Parallel()

	w := bitstream.NewWriter()
	w.PushCode(0b101, 3)
	w.PushCode(0xABC, 12)

	// 101 1010 1011 1100 -> 1011 0101 | 0111 100x
	assert.Equal(t, []byte{0xB5, 0x78}, w.Bytes())
	assert.Equal(t, 15, w.BitLen())
}

func TestWriter_Flush(t *testing.T) {
	t.Parallel()

	t.Run("partial_byte", func(t *testing.T) {
		t.Parallel()

		w := bitstream.NewWriter()
		w.PushCode(0b11, 2)
		w.Flush()
		w.PushCode(0b1, 1)

		assert.Equal(t, []byte{0xC0, 0x80}, w.Bytes())
		assert.Equal(t, 1, w.Position())
	})

	t.Run("on_boundary", func(t *testing.T) {
		t.Parallel()

		w := bitstream.NewWriter()
		w.PushCode(0xFF, 8)
		w.Flush()

		assert.Equal(t, 1, w.Position())
		assert.Equal(t, []byte{0xFF}, w.Bytes())
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		w := bitstream.NewWriter()
		w.Flush()

		assert.Equal(t, 0, w.Position())
		assert.Empty(t, w.Bytes())
	})
}

func TestWriter_ZeroLengthNoop(t *testing.T) {
	t.Parallel()

	w := bitstream.NewWriter()
	w.PushCode(0xFFFF, 0)

	assert.Equal(t, 0, w.BitLen())
	assert.Empty(t, w.Bytes())
}

func TestWriter_PriorBytesImmutable(t *testing.T) {
	t.Parallel()

	w := bitstream.NewWriter()
	w.PushCode(0xA5, 8)

	snapshot := append([]byte(nil), w.Bytes()...)

	w.PushCode(0x7FFF, 15)
	w.Flush()
	w.PushCode(0x1, 1)

	assert.Equal(t, snapshot, w.Bytes()[:1])
}

func TestRoundTrip(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))

	type push struct {
		code   uint32
		length uint
	}

	for range 200 {
		var pushes []push

		w := bitstream.NewWriter()

		for range rng.IntN(64) {
			length := uint(rng.IntN(17))
			code := rng.Uint32() & (1<<length - 1)

			pushes = append(pushes, push{code: code, length: length})
			w.PushCode(code, length)
		}

		r := bitstream.NewReader(w.Bytes())

		for _, p := range pushes {
			got, err := r.Read(p.length)
			require.NoError(t, err)
			assert.Equal(t, p.code, got)
		}
	}
}

func TestReader_EndOfStream(t *testing.T) {
	t.Parallel()

	r := bitstream.NewReader([]byte{0x80})

	bit, err := r.ReadBit()
	require.NoError(t, err)
	assert.Equal(t, uint32(1), bit)

	_, err = r.Read(7)
	require.NoError(t, err)

	_, err = r.ReadBit()
	assert.ErrorIs(t, err, bitstream.ErrEndOfStream)
}

func TestReader_Align(t *testing.T) {
	t.Parallel()

	r := bitstream.NewReader([]byte{0xFF, 0x40})

	_, err := r.Read(3)
	require.NoError(t, err)

	r.Align()
	assert.Equal(t, 8, r.BitPos())

	got, err := r.Read(2)
	require.NoError(t, err)
	assert.Equal(t, uint32(0b01), got)
}
