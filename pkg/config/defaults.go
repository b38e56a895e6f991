package config

// Input defaults.
const (
	DefaultInputFormat  = "asm68k_sym"
	DefaultInputOptions = ""
)

// Output defaults.
const (
	DefaultOutputFormat  = "deb2"
	DefaultOutputOptions = ""
)

// Offset transform defaults, as hex strings.
const (
	DefaultOffsetBase      = "0"
	DefaultOffsetMask      = "FFFFFF"
	DefaultOffsetRangeLow  = "0"
	DefaultOffsetRangeHigh = "3FFFFF"
)

// Output placement default.
const DefaultAlign = true

// Logging defaults.
const (
	DefaultLogLevel = "info"
	DefaultLogJSON  = false
)

// Telemetry defaults.
const (
	DefaultOTLPEndpoint = ""
	DefaultOTLPInsecure = false
)
