package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/sergi/go-diff/diffmatchpatch"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/convsym/pkg/debinfo"
	"github.com/Sumatoshi-tech/convsym/pkg/observability"
	"github.com/Sumatoshi-tech/convsym/pkg/textutil"
)

// DiffCommand holds the flags of the diff command.
type DiffCommand struct {
	location tableLocation
	context  bool
	noColor  bool
	exitCode bool
}

type diffSummary struct {
	added   int
	removed int
}

func newDiffCommand() *cobra.Command {
	dc := &DiffCommand{}

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "Compare the symbols of two DEB1/DEB2 tables",
		Long: `Decode two symbol tables and print the symbols only present in one of
them, one "ADDRESS LABEL" line each. Tables may use different formats.`,
		Args:          cobra.ExactArgs(2),
		RunE:          dc.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	dc.location.register(cmd)
	cmd.Flags().BoolVar(&dc.context, "all", false, "Print unchanged symbols too")
	cmd.Flags().BoolVar(&dc.noColor, "no-color", false, "Disable colored output")
	cmd.Flags().BoolVar(&dc.exitCode, "exit-code", false, "Exit with status 1 when the tables differ")

	return cmd
}

func (dc *DiffCommand) run(cmd *cobra.Command, args []string) error {
	if dc.noColor {
		color.NoColor = true //nolint:reassign // intentional override of library global
	}

	providers, err := dc.location.observe(cmd, observability.ModeDiff)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	oldTable, err := dc.location.load(args[0])
	if err != nil {
		return err
	}

	newTable, err := dc.location.load(args[1])
	if err != nil {
		return err
	}

	summary := dc.render(cmd.OutOrStdout(), listing(oldTable), listing(newTable))

	fmt.Fprintf(cmd.ErrOrStderr(), "%d added, %d removed\n", summary.added, summary.removed)

	if dc.exitCode && summary.added+summary.removed > 0 {
		return exitErr(exitFailure, ErrTablesDiffer)
	}

	return nil
}

// listing renders a decoded table as one "ADDRESS LABEL" line per symbol.
func listing(t *debinfo.Table) string {
	var sb strings.Builder

	for _, sym := range t.Symbols() {
		fmt.Fprintf(&sb, "%06X %s\n", sym.Address, textutil.Printable(sym.Label))
	}

	return sb.String()
}

func (dc *DiffCommand) render(w io.Writer, oldText, newText string) diffSummary {
	dmp := diffmatchpatch.New()

	oldChars, newChars, lines := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(oldChars, newChars, false), lines)

	removed := color.New(color.FgRed)
	added := color.New(color.FgGreen)

	var summary diffSummary

	for _, d := range diffs {
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}

			switch d.Type {
			case diffmatchpatch.DiffDelete:
				summary.removed++

				removed.Fprint(w, "-"+line)
			case diffmatchpatch.DiffInsert:
				summary.added++

				added.Fprint(w, "+"+line)
			case diffmatchpatch.DiffEqual:
				if dc.context {
					fmt.Fprint(w, " "+line)
				}
			}
		}
	}

	return summary
}
