// Package output turns a symbol table into its emitted form.
//
// Generators build the whole payload in memory, relative to offset zero.
// A Sink then commits it either to a fresh file or spliced into an existing
// image, so nothing is written when generation fails.
package output

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/Sumatoshi-tech/convsym/pkg/levenshtein"
	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// Sentinel errors.
var (
	// ErrUnknownFormat is returned when a registry lookup fails.
	ErrUnknownFormat = errors.New("unknown output format")
	// ErrDuplicateFormat is returned when two descriptors share an ID.
	ErrDuplicateFormat = errors.New("duplicate output format")
	// ErrSpliceUnsupported is returned when a text format is asked to splice.
	ErrSpliceUnsupported = errors.New("output format doesn't support appending")
	// ErrSpliceStdout is returned when splicing is requested with stdout as the target.
	ErrSpliceStdout = errors.New("cannot splice into standard output")
	// ErrCodeTooLong is returned when the encoding table has codes over 16 bits.
	ErrCodeTooLong = errors.New(
		"some encoding table code lengths exceed 16 bits, try -tolower or -toupper option to reduce entropy")
	// ErrPointerRange is returned when the splice base does not fit the 32-bit pointer.
	ErrPointerRange = errors.New("table offset does not fit a 32-bit pointer")
	// ErrNoSymbols is returned when a binary table is requested for an empty table.
	ErrNoSymbols = errors.New("no symbols to emit")
)

// Env carries diagnostics for one generation.
type Env struct {
	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return e.Logger
}

// Stats summarizes what a generator emitted.
type Stats struct {
	// Emitted counts symbols present in the output.
	Emitted int
	// Duplicates counts labels skipped by the one-label-per-address rule.
	Duplicates int
	// Dropped counts symbols lost to capacity limits.
	Dropped int
	// Blocks counts non-empty blocks.
	Blocks int
	// MaxCodeLength is the longest Huffman code in the table, 0 for text formats.
	MaxCodeLength uint
	// LengthLimited is set when the Huffman lengths were redistributed.
	LengthLimited bool
}

// Result is a generated payload.
type Result struct {
	Data  []byte
	Stats Stats
}

// GenerateFunc renders symbols, sorted by address, using the slash options string opts.
type GenerateFunc func(symbols []symtab.Symbol, opts string, env Env) (Result, error)

// Descriptor describes an output format.
type Descriptor struct {
	ID          string
	Description string
	Options     []optsparser.Doc
	// Splice is set for formats that can be appended to an existing image.
	Splice   bool
	Generate GenerateFunc
}

// Registry stores output descriptors with deterministic ordering.
type Registry struct {
	ordered []Descriptor
	index   map[string]Descriptor
}

// NewRegistry creates a registry from descriptors.
func NewRegistry(descriptors ...Descriptor) (*Registry, error) {
	reg := &Registry{index: make(map[string]Descriptor, len(descriptors))}

	for _, d := range descriptors {
		if _, exists := reg.index[d.ID]; exists {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateFormat, d.ID)
		}

		reg.index[d.ID] = d
		reg.ordered = append(reg.ordered, d)
	}

	return reg, nil
}

// DefaultRegistry returns a registry with every built-in format.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		DEB2Descriptor(),
		DEB1Descriptor(),
		AsmDescriptor(),
		LogDescriptor(),
	)
	if err != nil {
		panic(err)
	}

	return reg
}

// All returns all descriptors in registration order.
func (r *Registry) All() []Descriptor {
	out := make([]Descriptor, len(r.ordered))
	copy(out, r.ordered)

	return out
}

// IDs returns the registered format names in order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.ordered))
	for _, d := range r.ordered {
		ids = append(ids, d.ID)
	}

	return ids
}

// Lookup returns the descriptor for id.
func (r *Registry) Lookup(id string) (Descriptor, error) {
	d, ok := r.index[id]
	if !ok {
		return Descriptor{}, fmt.Errorf("%w: %s%s", ErrUnknownFormat, id, levenshtein.Suggest(id, r.IDs()))
	}

	return d, nil
}

// Write generates the named format and commits it to target.
// Splice requests are checked before generation.
func (r *Registry) Write(id string, table *symtab.Table, opts string, target Target, env Env) (Commit, error) {
	d, err := r.Lookup(id)
	if err != nil {
		return Commit{}, err
	}

	if target.Mode != SpliceNone && !d.Splice {
		return Commit{}, fmt.Errorf("%w: %s", ErrSpliceUnsupported, id)
	}

	res, err := d.Generate(table.Symbols(), opts, env)
	if err != nil {
		return Commit{}, fmt.Errorf("generate %s: %w", id, err)
	}

	commit, err := target.Commit(res.Data, env.logger())
	if err != nil {
		return Commit{}, err
	}

	commit.Stats = res.Stats

	return commit, nil
}
