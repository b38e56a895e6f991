// Package commands implements CLI command handlers for convsym.
package commands

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// flagAliases maps the short spellings of the classic command line to their flags.
var flagAliases = map[string]string{
	"in":  "input",
	"out": "output",
}

// NewRootCommand creates the convsym command tree. The root command itself
// performs the conversion.
func NewRootCommand() *cobra.Command {
	cmd := newConvertCommand()

	cmd.AddCommand(newInspectCommand())
	cmd.AddCommand(newDiffCommand())
	cmd.AddCommand(newFormatsCommand())
	cmd.AddCommand(newVersionCommand())

	return cmd
}

func normalizeAliases(_ *pflag.FlagSet, name string) pflag.NormalizedName {
	if alias, ok := flagAliases[name]; ok {
		name = alias
	}

	return pflag.NormalizedName(name)
}

func flagError(_ *cobra.Command, err error) error {
	return usageErr("%w: %w", ErrUnknownFlag, err)
}
