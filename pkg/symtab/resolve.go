package symtab

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnresolved is returned when a requested symbol never appeared in the input.
var ErrUnresolved = errors.New("unresolved symbol reference")

// Resolution is the state of a single symbol reference.
// The zero value is unresolved.
type Resolution struct {
	address  uint32
	resolved bool
}

// Resolved creates a resolution bound to address.
func Resolved(address uint32) Resolution {
	return Resolution{address: address, resolved: true}
}

// Address returns the bound address and whether the reference was resolved.
func (r Resolution) Address() (uint32, bool) {
	return r.address, r.resolved
}

// ResolveTable maps symbol names referenced on the command line (as @NAME)
// to the address they were first seen at during parsing.
type ResolveTable struct {
	entries map[string]Resolution
	order   []string
}

// NewResolveTable creates an empty resolve table.
func NewResolveTable() *ResolveTable {
	return &ResolveTable{entries: map[string]Resolution{}}
}

// Request registers name as unresolved. Requesting a name twice is a no-op.
func (rt *ResolveTable) Request(name string) {
	if _, ok := rt.entries[name]; ok {
		return
	}

	rt.entries[name] = Resolution{}
	rt.order = append(rt.order, name)
}

// Len returns the number of requested names.
func (rt *ResolveTable) Len() int {
	return len(rt.order)
}

// Lookup returns the resolution state of name. Unknown names report false.
func (rt *ResolveTable) Lookup(name string) (uint32, bool) {
	res, ok := rt.entries[name]
	if !ok {
		return 0, false
	}

	return res.Address()
}

// fill binds name to address on first sight. It reports whether the entry changed.
func (rt *ResolveTable) fill(name string, address uint32) bool {
	res, ok := rt.entries[name]
	if !ok {
		return false
	}

	if _, done := res.Address(); done {
		return false
	}

	rt.entries[name] = Resolved(address)

	return true
}

// Unresolved returns the requested names that were never seen, in request order.
func (rt *ResolveTable) Unresolved() []string {
	var names []string

	for _, name := range rt.order {
		if _, ok := rt.entries[name].Address(); !ok {
			names = append(names, name)
		}
	}

	return names
}

// Check returns ErrUnresolved listing every name still unresolved.
func (rt *ResolveTable) Check() error {
	missing := rt.Unresolved()
	if len(missing) == 0 {
		return nil
	}

	slices.Sort(missing)

	return fmt.Errorf("%w: %s", ErrUnresolved, strings.Join(missing, ", "))
}
