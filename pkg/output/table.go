package output

import (
	"encoding/binary"
	"log/slog"

	"github.com/Sumatoshi-tech/convsym/pkg/bitstream"
	"github.com/Sumatoshi-tech/convsym/pkg/huffman"
	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
	"github.com/Sumatoshi-tech/convsym/pkg/safeconv"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

const (
	blockShift    = 16
	lowWordMask   = 0xFFFF
	tableEndMark  = 0xFFFF
	maxCodeLength = huffman.DefaultMaxDepth
)

// tableOptions are shared by the binary formats.
type tableOptions struct {
	favorLastLabels bool
}

func parseTableOptions(opts string) tableOptions {
	var o tableOptions

	optsparser.Parse(opts, optsparser.Bindings{
		"favorLastLabels": optsparser.Bool(&o.favorLastLabels),
	})

	return o
}

var tableOptionDocs = []optsparser.Doc{
	{
		Key: "favorLastLabels", Kind: optsparser.KindBool, Default: "-",
		Description: "keep the last label at an address instead of the first",
	},
}

// isDuplicate reports whether symbols[i] loses the one-label-per-address rule.
func isDuplicate(symbols []symtab.Symbol, i int, favorLast bool) bool {
	if favorLast {
		return i+1 < len(symbols) && symbols[i+1].Address == symbols[i].Address
	}

	return i > 0 && symbols[i-1].Address == symbols[i].Address
}

func blockOf(address uint32) uint32 {
	return address >> blockShift
}

// encodingTable builds the code table over every label plus its NUL
// terminator. Duplicates count too, since the table is built before the
// one-label-per-address rule is applied.
func encodingTable(symbols []symtab.Symbol, logger *slog.Logger) (*huffman.Codebook, error) {
	var freq huffman.Frequencies

	for _, sym := range symbols {
		freq.AddString(sym.Label)
		freq.Add(0)
	}

	cb := huffman.Encode(&freq, maxCodeLength)

	if cb.Limited {
		logger.Warn("encoding table was length-limited",
			"natural_depth", cb.NaturalDepth, "max_depth", maxCodeLength)
	}

	if cb.MaxLength() > maxCodeLength {
		return nil, ErrCodeTooLong
	}

	// A single-symbol alphabet gets a zero-length code, which the decoders
	// cannot walk. Give it one bit.
	if len(cb.Records) == 1 && cb.Records[0].Length == 0 {
		cb.Records[0].Length = 1
	}

	return cb, nil
}

// encodeLabel pushes label and its NUL terminator into heap.
func encodeLabel(heap *bitstream.Writer, cb *huffman.Codebook, label string) {
	for i := range len(label) {
		rec, _ := cb.Lookup(label[i])
		heap.PushCode(rec.Code, rec.Length)
	}

	rec, _ := cb.Lookup(0)
	heap.PushCode(rec.Code, rec.Length)
}

// image is an in-memory, big-endian payload with back-patching.
type image struct {
	buf []byte
}

func (im *image) pos() int { return len(im.buf) }

func (im *image) u8(v uint8) { im.buf = append(im.buf, v) }

func (im *image) u16(v uint16) { im.buf = binary.BigEndian.AppendUint16(im.buf, v) }

func (im *image) u32(v uint32) { im.buf = binary.BigEndian.AppendUint32(im.buf, v) }

func (im *image) write(p []byte) { im.buf = append(im.buf, p...) }

func (im *image) reserve(n int) { im.buf = append(im.buf, make([]byte, n)...) }

func (im *image) alignEven() {
	if len(im.buf)&1 != 0 {
		im.buf = append(im.buf, 0)
	}
}

func (im *image) patch16(at int, v uint16) { binary.BigEndian.PutUint16(im.buf[at:], v) }

func (im *image) patch32(at int, v uint32) { binary.BigEndian.PutUint32(im.buf[at:], v) }

// writeCodeTable emits {code u16, length u8, value u8} records and the end mark.
func (im *image) writeCodeTable(cb *huffman.Codebook) {
	for _, rec := range cb.Records {
		im.u16(uint16(rec.Code))
		im.u8(safeconv.MustIntToUint8(int(rec.Length)))
		im.u8(rec.Value)
	}

	im.u16(tableEndMark)
}

// clampLastBlock limits the block index of the highest symbol to limit.
func clampLastBlock(symbols []symtab.Symbol, limit uint32, logger *slog.Logger) uint32 {
	last := blockOf(symbols[len(symbols)-1].Address)
	if last > limit {
		logger.Error("too many memory blocks, symbols above the limit are dropped",
			"blocks", last+1, "max_blocks", limit+1)

		return limit
	}

	return last
}

func tableStats(cb *huffman.Codebook) Stats {
	return Stats{MaxCodeLength: cb.MaxLength(), LengthLimited: cb.Limited}
}
