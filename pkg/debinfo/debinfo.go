// Package debinfo decodes DEB1 and DEB2 symbol tables back into symbols.
//
// It walks a table the same way the on-target lookup routines do, which makes
// it the reference for round-trip tests and for inspecting tables spliced
// into ROM images.
package debinfo

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/convsym/pkg/bitstream"
	"github.com/Sumatoshi-tech/convsym/pkg/huffman"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// Sentinel errors.
var (
	// ErrBadMagic is returned when the table does not start with a known magic word.
	ErrBadMagic = errors.New("not a DEB1 or DEB2 symbol table")
	// ErrCorrupt is returned when an offset or record points outside the image.
	ErrCorrupt = errors.New("corrupt symbol table")
)

// Format identifies the table layout.
type Format int

// Supported layouts.
const (
	DEB1 Format = iota + 1
	DEB2
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case DEB1:
		return "deb1"
	case DEB2:
		return "deb2"
	default:
		return fmt.Sprintf("Format(%d)", int(f))
	}
}

const (
	magicDEB1 = 0xDEB1
	magicDEB2 = 0xDEB2

	codeTableEnd  = 0xFFFF
	codeEntrySize = 4

	deb1TableSize = 0x80
	deb1Blocks    = deb1TableSize / 2

	maxLabelBytes = 0xFFFF
)

// Block is the decoded content of one 64 KiB block.
type Block struct {
	Index   int
	Offset  int
	Symbols []symtab.Symbol
}

// Table is a decoded symbol table.
type Table struct {
	Format Format
	// Base is the offset of the table inside the decoded image.
	Base int
	// Size is the number of bytes from Base to the end of the last block.
	Size   int
	Codes  []huffman.Record
	Blocks []Block
}

// Symbols returns every symbol in address order.
func (t *Table) Symbols() []symtab.Symbol {
	var out []symtab.Symbol

	for _, b := range t.Blocks {
		out = append(out, b.Symbols...)
	}

	return out
}

// Decode decodes a table starting at offset 0 of data.
func Decode(data []byte) (*Table, error) {
	return DecodeAt(data, 0)
}

// DecodeViaPointer reads a big-endian 32-bit table offset at pointerOffset
// and decodes the table it points to.
func DecodeViaPointer(data []byte, pointerOffset int) (*Table, error) {
	r := reader{data: data}

	base, err := r.u32(pointerOffset)
	if err != nil {
		return nil, fmt.Errorf("read table pointer: %w", err)
	}

	return DecodeAt(data, int(base))
}

// DecodeAt decodes a table starting at base.
func DecodeAt(data []byte, base int) (*Table, error) {
	r := reader{data: data}

	magic, err := r.u16(base)
	if err != nil {
		return nil, ErrBadMagic
	}

	t := &Table{Base: base}

	switch magic {
	case magicDEB1:
		t.Format = DEB1
		err = decodeDEB1(r, t)
	case magicDEB2:
		t.Format = DEB2
		err = decodeDEB2(r, t)
	default:
		return nil, fmt.Errorf("%w: magic 0x%04X at 0x%X", ErrBadMagic, magic, base)
	}

	if err != nil {
		return nil, err
	}

	return t, nil
}

func decodeDEB2(r reader, t *Table) error {
	locOffsets := t.Base + 4

	header, err := r.u16(t.Base + 2)
	if err != nil {
		return err
	}

	if header < 2+4 || (header-2)%4 != 0 {
		return fmt.Errorf("%w: block table size %d", ErrCorrupt, header)
	}

	count := int(header-2) / 4

	end, err := readCodes(r, t, locOffsets+count*4)
	if err != nil {
		return err
	}

	dec := huffman.NewDecoder(t.Codes)

	for i := range count {
		off, err := r.u32(locOffsets + i*4)
		if err != nil {
			return err
		}

		if off == 0 {
			continue
		}

		blockAt := locOffsets + int(off)

		block, blockEnd, err := decodeDEB2Block(r, dec, i, blockAt)
		if err != nil {
			return err
		}

		t.Blocks = append(t.Blocks, block)
		end = max(end, blockEnd)
	}

	t.Size = end - t.Base

	return nil
}

func decodeDEB2Block(r reader, dec *huffman.Decoder, index, at int) (Block, int, error) {
	headerSize, err := r.u16(at)
	if err != nil {
		return Block{}, 0, err
	}

	if headerSize < 2 || (headerSize-2)%4 != 0 {
		return Block{}, 0, fmt.Errorf("%w: block %d header size %d", ErrCorrupt, index, headerSize)
	}

	heapAt := at + int(headerSize)
	block := Block{Index: index, Offset: at}
	end := heapAt

	for rec := at + 2; rec < heapAt; rec += 4 {
		offset, err := r.u16(rec)
		if err != nil {
			return Block{}, 0, err
		}

		ptr, err := r.u16(rec + 2)
		if err != nil {
			return Block{}, 0, err
		}

		label, n, err := r.label(dec, heapAt+int(ptr))
		if err != nil {
			return Block{}, 0, fmt.Errorf("block %d offset 0x%04X: %w", index, offset, err)
		}

		block.Symbols = append(block.Symbols, symtab.Symbol{
			Address: uint32(index)<<16 | uint32(offset),
			Label:   label,
		})
		end = max(end, heapAt+int(ptr)+n)
	}

	return block, end, nil
}

func decodeDEB1(r reader, t *Table) error {
	locOffsets := t.Base + 2

	end, err := readCodes(r, t, locOffsets+2*deb1TableSize)
	if err != nil {
		return err
	}

	dec := huffman.NewDecoder(t.Codes)

	for i := range deb1Blocks {
		blockWord, err := r.u16(locOffsets + i*2)
		if err != nil {
			return err
		}

		dataWord, err := r.u16(locOffsets + deb1TableSize + i*2)
		if err != nil {
			return err
		}

		if blockWord == 0 {
			continue
		}

		blockAt := locOffsets + int(blockWord)*2
		dataAt := locOffsets + int(dataWord)*2

		count := (dataAt-blockAt)/2 - 1
		if count < 1 {
			return fmt.Errorf("%w: block %d has no offsets", ErrCorrupt, i)
		}

		block := Block{Index: i, Offset: blockAt}
		rec := dataAt

		for k := range count {
			offset, err := r.u16(blockAt + k*2)
			if err != nil {
				return err
			}

			size, err := r.u8(rec)
			if err != nil {
				return err
			}

			label, _, err := r.label(dec, rec+1)
			if err != nil {
				return fmt.Errorf("block %d offset 0x%04X: %w", i, offset, err)
			}

			block.Symbols = append(block.Symbols, symtab.Symbol{
				Address: uint32(i)<<16 | uint32(offset),
				Label:   label,
			})

			rec += int(size)
		}

		t.Blocks = append(t.Blocks, block)
		end = max(end, rec)
	}

	t.Size = end - t.Base

	return nil
}

// readCodes reads code records at pos until the end mark and returns the
// position after it.
func readCodes(r reader, t *Table, pos int) (int, error) {
	for {
		code, err := r.u16(pos)
		if err != nil {
			return 0, err
		}

		if code == codeTableEnd {
			return pos + 2, nil
		}

		length, err := r.u8(pos + 2)
		if err != nil {
			return 0, err
		}

		value, err := r.u8(pos + 3)
		if err != nil {
			return 0, err
		}

		t.Codes = append(t.Codes, huffman.Record{Code: uint32(code), Length: uint(length), Value: value})
		pos += codeEntrySize
	}
}

type reader struct {
	data []byte
}

func (r reader) check(at, n int) error {
	if at < 0 || at+n > len(r.data) {
		return fmt.Errorf("%w: read of %d bytes at 0x%X past end 0x%X", ErrCorrupt, n, at, len(r.data))
	}

	return nil
}

func (r reader) u8(at int) (uint8, error) {
	if err := r.check(at, 1); err != nil {
		return 0, err
	}

	return r.data[at], nil
}

func (r reader) u16(at int) (uint16, error) {
	if err := r.check(at, 2); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint16(r.data[at:]), nil
}

func (r reader) u32(at int) (uint32, error) {
	if err := r.check(at, 4); err != nil {
		return 0, err
	}

	return binary.BigEndian.Uint32(r.data[at:]), nil
}

// label decodes a NUL-terminated label at at and returns it with the number
// of bytes its bits span.
func (r reader) label(dec *huffman.Decoder, at int) (string, int, error) {
	if err := r.check(at, 1); err != nil {
		return "", 0, err
	}

	br := bitstream.NewReader(r.data[at:])

	label, err := dec.String(br, maxLabelBytes)
	if err != nil {
		return "", 0, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	br.Align()

	return label, br.BitPos() / 8, nil
}
