// Package config provides YAML-based configuration for convsym.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/Sumatoshi-tech/convsym/pkg/input"
	"github.com/Sumatoshi-tech/convsym/pkg/output"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

// Sentinel errors.
var (
	// ErrInvalidConfig is returned when the settings fail schema or semantic validation.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvalidHex is returned by ParseHex.
	ErrInvalidHex = errors.New("invalid hexadecimal number")
)

// Config holds all convsym settings.
type Config struct {
	Input     FormatConfig    `mapstructure:"input"`
	Output    FormatConfig    `mapstructure:"output"`
	Offsets   OffsetsConfig   `mapstructure:"offsets"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Align     bool            `mapstructure:"align"`
}

// FormatConfig selects a format and its slash options.
type FormatConfig struct {
	Format  string `mapstructure:"format"`
	Options string `mapstructure:"options"`
}

// OffsetsConfig holds the address transform as hex strings.
type OffsetsConfig struct {
	Base      string `mapstructure:"base"`
	Mask      string `mapstructure:"mask"`
	RangeLow  string `mapstructure:"range_low"`
	RangeHigh string `mapstructure:"range_high"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// TelemetryConfig holds OTLP export settings.
type TelemetryConfig struct {
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
	OTLPInsecure bool   `mapstructure:"otlp_insecure"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Input:  FormatConfig{Format: DefaultInputFormat, Options: DefaultInputOptions},
		Output: FormatConfig{Format: DefaultOutputFormat, Options: DefaultOutputOptions},
		Offsets: OffsetsConfig{
			Base:      DefaultOffsetBase,
			Mask:      DefaultOffsetMask,
			RangeLow:  DefaultOffsetRangeLow,
			RangeHigh: DefaultOffsetRangeHigh,
		},
		Log:       LogConfig{Level: DefaultLogLevel, JSON: DefaultLogJSON},
		Telemetry: TelemetryConfig{OTLPEndpoint: DefaultOTLPEndpoint, OTLPInsecure: DefaultOTLPInsecure},
		Align:     DefaultAlign,
	}
}

// Validate checks format names, hex values and the log level.
func (c *Config) Validate() error {
	if c.Input.Format != input.AutoFormat {
		_, err := input.DefaultRegistry().Lookup(c.Input.Format)
		if err != nil {
			return fmt.Errorf("%w: input.format: %w", ErrInvalidConfig, err)
		}
	}

	_, err := output.DefaultRegistry().Lookup(c.Output.Format)
	if err != nil {
		return fmt.Errorf("%w: output.format: %w", ErrInvalidConfig, err)
	}

	_, err = c.Offsets.Options()
	if err != nil {
		return err
	}

	_, err = c.Log.SlogLevel()
	if err != nil {
		return err
	}

	return nil
}

// Options parses the offset transform.
func (o OffsetsConfig) Options() (symtab.OffsetOptions, error) {
	var opts symtab.OffsetOptions

	fields := []struct {
		key string
		src string
		dst *uint32
	}{
		{key: "offsets.base", src: o.Base, dst: &opts.Base},
		{key: "offsets.mask", src: o.Mask, dst: &opts.Mask},
		{key: "offsets.range_low", src: o.RangeLow, dst: &opts.Low},
		{key: "offsets.range_high", src: o.RangeHigh, dst: &opts.High},
	}

	for _, f := range fields {
		v, err := ParseHex(f.src)
		if err != nil {
			return symtab.OffsetOptions{}, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, f.key, err)
		}

		*f.dst = v
	}

	return opts, nil
}

// SlogLevel maps the configured level name to a slog level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("%w: log.level %q", ErrInvalidConfig, l.Level)
	}
}

// ParseHex parses a 32-bit hexadecimal number with an optional "$" or "0x" prefix.
func ParseHex(s string) (uint32, error) {
	digits := strings.TrimPrefix(s, "$")
	if len(digits) == len(s) {
		digits = strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
	}

	v, err := strconv.ParseUint(digits, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHex, s)
	}

	return uint32(v), nil
}
