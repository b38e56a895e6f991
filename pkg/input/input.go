// Package input reads assembler outputs into a symbol table.
//
// Each dialect is a Descriptor with a parse function; the Registry maps
// the names accepted by -input to descriptors in a stable order.
package input

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
	ErrUnknownFormat = errors.New("unknown input format")
	// ErrDuplicateFormat is returned when two descriptors share an ID.
	ErrDuplicateFormat = errors.New("duplicate input format")
	// ErrNoSymbolTable is returned when a listing has no symbol table section.
	ErrNoSymbolTable = errors.New("couldn't find symbols table")
	// ErrTruncatedRecord is returned when a binary symbol record runs past EOF.
	ErrTruncatedRecord = errors.New("truncated symbol record")
)

// Env carries the destination table and diagnostics for one parse.
type Env struct {
	Table  *symtab.Table
	Logger *slog.Logger
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return e.Logger
}

// ParseFunc parses src using the slash options string opts.
type ParseFunc func(src io.Reader, opts string, env Env) error

// Descriptor describes an input dialect.
type Descriptor struct {
	ID          string
	Description string
	Options     []optsparser.Doc
	// Binary is set for formats that are not line-oriented text.
	Binary bool
	Parse  ParseFunc
}

// Registry stores input descriptors with deterministic ordering.
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

// DefaultRegistry returns a registry with every built-in dialect.
func DefaultRegistry() *Registry {
	reg, err := NewRegistry(
		ASM68KSymDescriptor(),
		ASM68KListingDescriptor(),
		ASListingDescriptor(),
		ASListingExperimentalDescriptor(),
		LogDescriptor(),
		TxtDescriptor(),
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

// ParseFile opens path (or stdin for "-") and parses it with the named format.
// The AutoFormat id selects the format with Detect.
func (r *Registry) ParseFile(id, path, opts string, env Env) error {
	var d Descriptor

	if id != AutoFormat {
		var err error

		d, err = r.Lookup(id)
		if err != nil {
			return err
		}
	}

	src, err := Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	if id == AutoFormat {
		return r.parseDetected(src, path, opts, env)
	}

	err = d.Parse(src, opts, env)
	if err != nil {
		return fmt.Errorf("parse %s as %s: %w", path, id, err)
	}

	return nil
}
