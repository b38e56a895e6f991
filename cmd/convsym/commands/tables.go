package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/convsym/pkg/config"
	"github.com/Sumatoshi-tech/convsym/pkg/debinfo"
	"github.com/Sumatoshi-tech/convsym/pkg/input"
	"github.com/Sumatoshi-tech/convsym/pkg/observability"
)

// tableLocation says where a symbol table starts inside a file.
type tableLocation struct {
	offset  string
	pointer string
	logger  *slog.Logger
}

func (loc *tableLocation) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&loc.offset, "offset", "", "Hex offset of the table inside the file")
	cmd.Flags().StringVar(&loc.pointer, "pointer", "", "Hex offset of a 32-bit pointer to the table (as written by -ref)")
	cmd.MarkFlagsMutuallyExclusive("offset", "pointer")
}

// observe sets up logging for a read-only command. Those commands take no
// config file, so built-in defaults apply.
func (loc *tableLocation) observe(cmd *cobra.Command, mode observability.AppMode) (observability.Providers, error) {
	cfg := config.Default()

	providers, err := initObservability(cmd, &cfg, mode)
	if err != nil {
		return providers, err
	}

	loc.logger = providers.Logger

	return providers, nil
}

// load reads path (or stdin for "-") and decodes the table it holds.
func (loc *tableLocation) load(path string) (*debinfo.Table, error) {
	src, err := input.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var table *debinfo.Table

	switch {
	case loc.pointer != "":
		at, parseErr := config.ParseHex(loc.pointer)
		if parseErr != nil {
			return nil, usageErr("%w: --pointer: %w", ErrInvalidNumber, parseErr)
		}

		table, err = debinfo.DecodeViaPointer(data, int(at))
	case loc.offset != "":
		at, parseErr := config.ParseHex(loc.offset)
		if parseErr != nil {
			return nil, usageErr("%w: --offset: %w", ErrInvalidNumber, parseErr)
		}

		table, err = debinfo.DecodeAt(data, int(at))
	default:
		table, err = debinfo.Decode(data)
	}

	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}

	if loc.logger != nil {
		loc.logger.Debug("table decoded", "path", path, "bytes", len(data), "symbols", len(table.Symbols()))
	}

	return table, nil
}
