package output

import (
	"github.com/Sumatoshi-tech/convsym/pkg/bitstream"
	"github.com/Sumatoshi-tech/convsym/pkg/safeconv"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// DEB1 layout constants.
const (
	DEB1Magic = 0xDEB1

	deb1MaxBlock       = 0x3F
	deb1TableSize      = 0x80
	deb1BlockOffsetsAt = 2
	deb1MaxRecord      = 0xFF
	deb1MaxWordOffset  = 0xFFFF
)

// DEB1Descriptor returns the descriptor for the legacy DEB1 table format.
func DEB1Descriptor() Descriptor {
	return Descriptor{
		ID:          "deb1",
		Description: "legacy Huffman-coded symbol table, up to 64 blocks of 64 KiB",
		Options:     tableOptionDocs,
		Splice:      true,
		Generate:    generateDEB1,
	}
}

func generateDEB1(symbols []symtab.Symbol, opts string, env Env) (Result, error) {
	logger := env.logger()
	o := parseTableOptions(opts)

	if len(symbols) == 0 {
		return Result{}, ErrNoSymbols
	}

	var im image

	im.u16(DEB1Magic)

	lastBlock := clampLastBlock(symbols, deb1MaxBlock, logger)

	im.reserve(2 * deb1TableSize)

	cb, err := encodingTable(symbols, logger)
	if err != nil {
		return Result{}, err
	}

	im.writeCodeTable(cb)

	stats := tableStats(cb)

	var blockOffsets, dataOffsets [deb1TableSize / 2]uint16

	idx := 0

	for block := range lastBlock + 1 {
		im.alignEven()

		locBlock := im.pos()

		var (
			offsets []uint16
			data    []byte
		)

		for ; idx < len(symbols) && blockOf(symbols[idx].Address) <= block; idx++ {
			sym := symbols[idx]

			if isDuplicate(symbols, idx, o.favorLastLabels) {
				stats.Duplicates++

				continue
			}

			heap := bitstream.NewWriter()
			encodeLabel(heap, cb, sym.Label)

			size := heap.Size() + 1
			if size > deb1MaxRecord {
				logger.Error("encoded label is too long for a DEB1 record, symbol dropped",
					"label", sym.Label, "bytes", size)

				stats.Dropped++

				continue
			}

			offsets = append(offsets, uint16(sym.Address&lowWordMask))
			data = append(data, safeconv.MustIntToUint8(size))
			data = append(data, heap.Bytes()...)
		}

		if len(offsets) == 0 {
			continue
		}

		count := len(offsets)
		offsets = append(offsets, 0)

		blockWord := (locBlock - deb1BlockOffsetsAt) >> 1
		dataWord := (locBlock + len(offsets)*2 - deb1BlockOffsetsAt) >> 1

		if blockWord > deb1MaxWordOffset || dataWord > deb1MaxWordOffset {
			logger.Error("block is out of reach of the 16-bit offset tables, block dropped",
				"block", block, "symbols", count)

			stats.Dropped += count

			continue
		}

		blockOffsets[block] = safeconv.MustIntToUint16(blockWord)
		dataOffsets[block] = safeconv.MustIntToUint16(dataWord)

		for _, off := range offsets {
			im.u16(off)
		}

		im.write(data)

		stats.Blocks++
		stats.Emitted += count
	}

	stats.Dropped += len(symbols) - idx

	for i := range blockOffsets {
		im.patch16(deb1BlockOffsetsAt+i*2, blockOffsets[i])
		im.patch16(deb1BlockOffsetsAt+deb1TableSize+i*2, dataOffsets[i])
	}

	return Result{Data: im.buf, Stats: stats}, nil
}
