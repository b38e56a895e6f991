// Package symtab holds the address-ordered symbol table shared by input
// parsers and output generators.
//
// Addresses are transformed once on insert as (raw - base) & mask and kept
// only when inside the inclusive [Low, High] range. Labels at one address
// keep their insertion order.
package symtab

import (
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"slices"
	"strings"

	"github.com/Sumatoshi-tech/convsym/pkg/units"
)

// Default offset transform values.
const (
	DefaultMask uint32 = 0xFFFFFF
	DefaultHigh uint32 = units.ROMWindow - 1
)

// Symbol is a single address/label pair.
type Symbol struct {
	Address uint32
	Label   string
}

// OffsetOptions configures the raw address transform.
type OffsetOptions struct {
	Base uint32
	Mask uint32
	Low  uint32
	High uint32
}

// DefaultOffsetOptions returns the transform used when no flags are given.
func DefaultOffsetOptions() OffsetOptions {
	return OffsetOptions{Mask: DefaultMask, High: DefaultHigh}
}

// Transform maps a raw address and reports whether it lies within range.
// Subtraction wraps around on underflow.
func (o OffsetOptions) Transform(raw uint32) (uint32, bool) {
	address := (raw - o.Base) & o.Mask

	return address, address >= o.Low && address <= o.High
}

// Options configures a Table.
type Options struct {
	Offsets OffsetOptions
	// Resolve receives the first address of every requested name. May be nil.
	Resolve *ResolveTable
	// Logger receives debug traces of insertions. Nil discards.
	Logger *slog.Logger
}

// Table is an ordered multimap from address to labels.
type Table struct {
	offsets OffsetOptions
	resolve *ResolveTable
	logger  *slog.Logger

	addresses []uint32
	labels    map[uint32][]string
	count     int
}

// New creates an empty table.
func New(opts Options) *Table {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Table{
		offsets: opts.Offsets,
		resolve: opts.Resolve,
		logger:  logger,
		labels:  map[uint32][]string{},
	}
}

// Offsets returns the table's transform options.
func (t *Table) Offsets() OffsetOptions {
	return t.offsets
}

// Add transforms raw and inserts label. It returns false when the transformed
// address falls outside the range. Requested names are resolved before the
// range check, so a reference can point outside the emitted range.
func (t *Table) Add(raw uint32, label string) bool {
	address, inRange := t.offsets.Transform(raw)

	if t.resolve != nil && t.resolve.fill(label, address) {
		t.logger.Debug("resolved requested symbol", "label", label, "address", hex(address))
	}

	if !inRange {
		t.logger.Debug("symbol out of range", "label", label, "raw", hex(raw), "address", hex(address))

		return false
	}

	group, ok := t.labels[address]
	if !ok {
		t.insertAddress(address)
	}

	t.labels[address] = append(group, label)
	t.count++

	t.logger.Debug("adding symbol", "label", label, "address", hex(address))

	return true
}

func (t *Table) insertAddress(address uint32) {
	n := len(t.addresses)
	if n == 0 || t.addresses[n-1] < address {
		t.addresses = append(t.addresses, address)

		return
	}

	idx, _ := slices.BinarySearch(t.addresses, address)
	t.addresses = slices.Insert(t.addresses, idx, address)
}

// Len returns the number of labels in the table.
func (t *Table) Len() int {
	return t.count
}

// IsEmpty reports whether the table holds no labels.
func (t *Table) IsEmpty() bool {
	return t.count == 0
}

// AddressCount returns the number of distinct addresses.
func (t *Table) AddressCount() int {
	return len(t.addresses)
}

// LastAddress returns the highest address in the table.
func (t *Table) LastAddress() (uint32, bool) {
	if len(t.addresses) == 0 {
		return 0, false
	}

	return t.addresses[len(t.addresses)-1], true
}

// Labels returns the labels stored at address in insertion order.
func (t *Table) Labels(address uint32) []string {
	return slices.Clone(t.labels[address])
}

// Each calls fn for every symbol in address order, stopping when fn returns false.
func (t *Table) Each(fn func(Symbol) bool) {
	for _, address := range t.addresses {
		for _, label := range t.labels[address] {
			if !fn(Symbol{Address: address, Label: label}) {
				return
			}
		}
	}
}

// Symbols returns a flattened, address-ordered copy of the table.
func (t *Table) Symbols() []Symbol {
	out := make([]Symbol, 0, t.count)

	t.Each(func(s Symbol) bool {
		out = append(out, s)

		return true
	})

	return out
}

// ToUpper upper-cases every label.
func (t *Table) ToUpper() {
	t.rewrite(strings.ToUpper)
}

// ToLower lower-cases every label.
func (t *Table) ToLower() {
	t.rewrite(strings.ToLower)
}

// AddPrefix prepends prefix to every label.
func (t *Table) AddPrefix(prefix string) {
	t.rewrite(func(label string) string { return prefix + label })
}

func (t *Table) rewrite(fn func(string) string) {
	for _, group := range t.labels {
		for i, label := range group {
			group[i] = fn(label)
		}
	}
}

// Filter keeps labels matching re, or not matching it when exclude is set.
// Addresses left without labels are removed.
func (t *Table) Filter(re *regexp.Regexp, exclude bool) {
	kept := t.addresses[:0]

	for _, address := range t.addresses {
		group := slices.DeleteFunc(t.labels[address], func(label string) bool {
			return re.MatchString(label) == exclude
		})

		if len(group) == 0 {
			delete(t.labels, address)

			continue
		}

		t.labels[address] = group
		kept = append(kept, address)
	}

	t.addresses = kept
	t.count = 0

	for _, group := range t.labels {
		t.count += len(group)
	}
}

// hex renders addresses the way listings print them.
type hex uint32

func (h hex) String() string {
	return fmt.Sprintf("%X", uint32(h))
}
