// Package units provides binary size unit multipliers (1024-based) and the
// address-space sizes the symbol tables are laid out against.
package units

// Binary size multipliers.
const (
	KiB = 1024
	MiB = 1024 * KiB
)

// Address-space sizes.
const (
	// Block is the span of addresses indexed by one block table entry.
	Block = 64 * KiB
	// ROMWindow is the default upper bound of the accepted address range.
	ROMWindow = 4 * MiB
)
