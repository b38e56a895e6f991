package input

import (
	"encoding/binary"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// Binary symbol object layout.
const (
	symHeaderSize    = 8
	symRecordHeader  = 6
	symAddressSize   = 4
	symLengthOffset  = 5
	defaultLocalSign = '@'
	defaultLocalJoin = '.'
)

type localLabelOptions struct {
	localSign     byte
	localJoin     byte
	processLocals bool
}

func defaultLocalLabelOptions() localLabelOptions {
	return localLabelOptions{localSign: defaultLocalSign, localJoin: defaultLocalJoin, processLocals: true}
}

func (o *localLabelOptions) bindings() optsparser.Bindings {
	return optsparser.Bindings{
		"localSign":     optsparser.Char(&o.localSign),
		"localJoin":     optsparser.Char(&o.localJoin),
		"processLocals": optsparser.Bool(&o.processLocals),
	}
}

var localLabelOptionDocs = []optsparser.Doc{
	{Key: "localSign", Kind: optsparser.KindChar, Default: "@", Description: "character that marks local labels"},
	{Key: "localJoin", Kind: optsparser.KindChar, Default: ".", Description: "character joining a local label to its global parent"},
	{Key: "processLocals", Kind: optsparser.KindBool, Default: "+", Description: "expand local labels (drop them when disabled)"},
}

// ASM68KSymDescriptor describes the ASM68K binary symbol object reader.
func ASM68KSymDescriptor() Descriptor {
	return Descriptor{
		ID:          "asm68k_sym",
		Description: "ASM68K binary symbol file (.sym)",
		Options:     localLabelOptionDocs,
		Binary:      true,
		Parse:       parseASM68KSym,
	}
}

// parseASM68KSym reads records of {address u32 BE, reserved u8, length u8,
// label} starting at offset 8. Records are sorted by address before local
// labels are attached to the preceding global label.
func parseASM68KSym(src io.Reader, opts string, env Env) error {
	o := defaultLocalLabelOptions()
	optsparser.Parse(opts, o.bindings())

	logger := env.logger()

	data, err := io.ReadAll(src)
	if err != nil {
		return fmt.Errorf("read symbol file: %w", err)
	}

	records, err := decodeSymRecords(data)
	if err != nil {
		return err
	}

	slices.SortStableFunc(records, func(a, b symtab.Symbol) int {
		switch {
		case a.Address < b.Address:
			return -1
		case a.Address > b.Address:
			return 1
		default:
			return 0
		}
	})

	var global string

	for _, rec := range records {
		label := rec.Label

		if label != "" && label[0] == o.localSign {
			if !o.processLocals {
				logger.Debug("local label dropped", "label", label)

				continue
			}

			label = global + string(o.localJoin) + label[1:]
		} else {
			global = label
		}

		env.Table.Add(rec.Address, label)
	}

	return nil
}

func decodeSymRecords(data []byte) ([]symtab.Symbol, error) {
	if len(data) < symHeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes", ErrTruncatedRecord, len(data))
	}

	var records []symtab.Symbol

	for pos := symHeaderSize; pos < len(data); {
		if len(data)-pos < symRecordHeader {
			return nil, fmt.Errorf("%w: record header at %#x", ErrTruncatedRecord, pos)
		}

		address := binary.BigEndian.Uint32(data[pos : pos+symAddressSize])
		length := int(data[pos+symLengthOffset])
		start := pos + symRecordHeader

		if len(data)-start < length {
			return nil, fmt.Errorf("%w: label at %#x needs %d bytes", ErrTruncatedRecord, start, length)
		}

		label := strings.ToValidUTF8(string(data[start:start+length]), "\uFFFD")
		records = append(records, symtab.Symbol{Address: address, Label: label})

		pos = start + length
	}

	return records, nil
}
