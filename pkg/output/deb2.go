package output

import (
	"log/slog"

	"github.com/Sumatoshi-tech/convsym/pkg/bitstream"
	"github.com/Sumatoshi-tech/convsym/pkg/huffman"
	"github.com/Sumatoshi-tech/convsym/pkg/safeconv"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// DEB2 layout constants.
const (
	DEB2Magic = 0xDEB2

	deb2MaxBlock         = 0xFF
	deb2MaxHeap          = 0xFFFF
	deb2MaxBlockSymbols  = 0x3FFF
	deb2BlockOffsetsAt   = 4
	deb2BlockOffsetWidth = 4
	deb2RecordWidth      = 4
)

// DEB2Descriptor returns the descriptor for the DEB2 table format.
func DEB2Descriptor() Descriptor {
	return Descriptor{
		ID:          "deb2",
		Description: "Huffman-coded symbol table, up to 256 blocks of 64 KiB (default)",
		Options:     tableOptionDocs,
		Splice:      true,
		Generate:    generateDEB2,
	}
}

type deb2Record struct {
	offset uint16
	ptr    uint16
}

func generateDEB2(symbols []symtab.Symbol, opts string, env Env) (Result, error) {
	logger := env.logger()
	o := parseTableOptions(opts)

	if len(symbols) == 0 {
		return Result{}, ErrNoSymbols
	}

	var im image

	im.u16(DEB2Magic)

	lastBlock := clampLastBlock(symbols, deb2MaxBlock, logger)
	offsetsSize := int(lastBlock+1) * deb2BlockOffsetWidth

	im.u16(safeconv.MustIntToUint16(offsetsSize + 2))
	im.reserve(offsetsSize)

	cb, err := encodingTable(symbols, logger)
	if err != nil {
		return Result{}, err
	}

	im.writeCodeTable(cb)

	stats := tableStats(cb)
	blockOffsets := make([]uint32, lastBlock+1)
	idx := 0

	for block := range lastBlock + 1 {
		im.alignEven()

		locBlock := im.pos()
		records, heap := deb2Block(symbols, &idx, block, o.favorLastLabels, cb, &stats, logger)

		if len(records) == 0 {
			continue
		}

		im.u16(safeconv.MustIntToUint16(2 + len(records)*deb2RecordWidth))

		for _, rec := range records {
			im.u16(rec.offset)
			im.u16(rec.ptr)
		}

		im.write(heap.Bytes())

		blockOffsets[block] = safeconv.MustIntToUint32(locBlock - deb2BlockOffsetsAt)
		stats.Blocks++
		stats.Emitted += len(records)
	}

	stats.Dropped += len(symbols) - idx

	for i, off := range blockOffsets {
		im.patch32(deb2BlockOffsetsAt+i*deb2BlockOffsetWidth, off)
	}

	return Result{Data: im.buf, Stats: stats}, nil
}

// deb2Block consumes the symbols of block starting at *idx and encodes their
// labels into one heap. Once the block is full the rest of it is dropped.
func deb2Block(
	symbols []symtab.Symbol, idx *int, block uint32, favorLast bool,
	cb *huffman.Codebook, stats *Stats, logger *slog.Logger,
) ([]deb2Record, *bitstream.Writer) {
	heap := bitstream.NewWriter()

	var records []deb2Record

	full := false

	for ; *idx < len(symbols) && blockOf(symbols[*idx].Address) <= block; *idx++ {
		i := *idx
		sym := symbols[i]

		switch {
		case full:
			stats.Dropped++

			continue
		case isDuplicate(symbols, i, favorLast):
			stats.Duplicates++

			continue
		case heap.Position() > deb2MaxHeap:
			logger.Error("symbols heap for the block exceeds 64 KiB, remaining symbols are dropped",
				"block", block, "label", sym.Label)

			full = true
			stats.Dropped++

			continue
		case len(records) >= deb2MaxBlockSymbols:
			logger.Error("too many symbols in one block, remaining symbols are dropped",
				"block", block, "max", deb2MaxBlockSymbols)

			full = true
			stats.Dropped++

			continue
		}

		records = append(records, deb2Record{
			offset: uint16(sym.Address & lowWordMask),
			ptr:    safeconv.MustIntToUint16(heap.Position()),
		})

		encodeLabel(heap, cb, sym.Label)
		heap.Flush()
	}

	return records, heap
}
