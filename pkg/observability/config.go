// Package observability provides OpenTelemetry tracing, conversion metrics
// and structured logging for the convsym commands.
package observability

import (
	"io"
	"log/slog"
)

// AppMode identifies the command being run.
type AppMode string

const (
	// ModeConvert is the symbol conversion run by the root command.
	ModeConvert AppMode = "convert"
	// ModeInspect is the table inspection command.
	ModeInspect AppMode = "inspect"
	// ModeDiff is the table comparison command.
	ModeDiff AppMode = "diff"
)

const (
	defaultServiceName        = "convsym"
	defaultShutdownTimeoutSec = 5
)

// Config holds all observability configuration.
type Config struct {
	// ServiceName is the OTel resource service name.
	ServiceName string

	// ServiceVersion is the version of the running binary.
	ServiceVersion string

	// Mode identifies the command being run.
	Mode AppMode

	// OTLPEndpoint is the OTLP gRPC collector address (e.g. "localhost:4317").
	// Empty disables export; providers become no-op.
	OTLPEndpoint string

	// OTLPInsecure disables TLS for the OTLP gRPC connection.
	OTLPInsecure bool

	// LogLevel controls the minimum slog severity.
	LogLevel slog.Level

	// LogJSON enables JSON-formatted log output.
	LogJSON bool

	// LogWriter receives log output. Nil means stderr.
	LogWriter io.Writer

	// ShutdownTimeoutSec is the maximum seconds to wait for flush on shutdown.
	ShutdownTimeoutSec int
}

// DefaultConfig returns a Config for zero-config startup.
func DefaultConfig() Config {
	return Config{
		ServiceName:        defaultServiceName,
		Mode:               ModeConvert,
		LogLevel:           slog.LevelInfo,
		ShutdownTimeoutSec: defaultShutdownTimeoutSec,
	}
}
