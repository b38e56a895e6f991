package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/convsym/pkg/input"
	"github.com/Sumatoshi-tech/convsym/pkg/optsparser"
	"github.com/Sumatoshi-tech/convsym/pkg/output"
)

func newFormatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List input and output formats with their options",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			renderFormats(cmd.OutOrStdout(), input.DefaultRegistry(), output.DefaultRegistry())

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
}

func renderFormats(w io.Writer, inputs *input.Registry, outputs *output.Registry) {
	heading := color.New(color.Bold)

	heading.Fprintln(w, "Input formats (-in)")

	in := newReportTable()
	in.AppendHeader(table.Row{"Name", "Description", "Options"})

	for _, d := range inputs.All() {
		in.AppendRow(table.Row{d.ID, d.Description, formatOptionDocs(d.Options)})
	}

	in.AppendRow(table.Row{input.AutoFormat, "Detect the format from the file contents", ""})
	fmt.Fprintln(w, in.Render())
	fmt.Fprintln(w)

	heading.Fprintln(w, "Output formats (-out)")

	out := newReportTable()
	out.AppendHeader(table.Row{"Name", "Description", "Options", "Append"})

	for _, d := range outputs.All() {
		splice := "no"
		if d.Splice {
			splice = "yes"
		}

		out.AppendRow(table.Row{d.ID, d.Description, formatOptionDocs(d.Options), splice})
	}

	fmt.Fprintln(w, out.Render())
}

func formatOptionDocs(docs []optsparser.Doc) string {
	lines := make([]string, 0, len(docs))

	for _, doc := range docs {
		lines = append(lines, fmt.Sprintf("/%s (%s, default %s): %s", doc.Key, doc.Kind, doc.Default, doc.Description))
	}

	return strings.Join(lines, "\n")
}
