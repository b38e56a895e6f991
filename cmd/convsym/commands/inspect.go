package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/convsym/pkg/debinfo"
	"github.com/Sumatoshi-tech/convsym/pkg/observability"
	"github.com/Sumatoshi-tech/convsym/pkg/textutil"
)

// Inspect report formats.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
	FormatJSON  = "json"
)

const (
	chartWidth  = "1200px"
	chartHeight = "500px"
	xAxisRotate = 60
)

// ErrUnknownReportFormat is returned for an unsupported --format value.
var ErrUnknownReportFormat = errors.New("unknown report format")

// InspectCommand holds the flags of the inspect command.
type InspectCommand struct {
	location tableLocation
	format   string
	codes    bool
	symbols  bool
	plotPath string
}

type inspectReport struct {
	Format        string         `json:"format" yaml:"format"`
	Base          int            `json:"base" yaml:"base"`
	Size          int            `json:"size" yaml:"size"`
	Symbols       int            `json:"symbols" yaml:"symbols"`
	MaxCodeLength uint           `json:"max_code_length" yaml:"max_code_length"`
	Blocks        []blockReport  `json:"blocks" yaml:"blocks"`
	Codes         []codeReport   `json:"codes,omitempty" yaml:"codes,omitempty"`
	Labels        []symbolReport `json:"labels,omitempty" yaml:"labels,omitempty"`
}

type blockReport struct {
	Index   int    `json:"index" yaml:"index"`
	Offset  int    `json:"offset" yaml:"offset"`
	Symbols int    `json:"symbols" yaml:"symbols"`
	First   string `json:"first" yaml:"first"`
	Last    string `json:"last" yaml:"last"`
}

type codeReport struct {
	Char   string `json:"char" yaml:"char"`
	Code   string `json:"code" yaml:"code"`
	Length uint   `json:"length" yaml:"length"`
}

type symbolReport struct {
	Address string `json:"address" yaml:"address"`
	Label   string `json:"label" yaml:"label"`
}

func newInspectCommand() *cobra.Command {
	ic := &InspectCommand{}

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the layout of a DEB1/DEB2 symbol table",
		Long: `Decode a DEB1 or DEB2 symbol table and print its header, per-block
statistics and, optionally, the Huffman dictionary and every symbol.

Use --offset or --pointer for tables spliced into a ROM image.`,
		Args:          cobra.ExactArgs(1),
		RunE:          ic.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	ic.location.register(cmd)
	cmd.Flags().StringVar(&ic.format, "format", FormatTable, "Report format: table, yaml, json")
	cmd.Flags().BoolVar(&ic.codes, "codes", false, "Include the Huffman dictionary")
	cmd.Flags().BoolVar(&ic.symbols, "symbols", false, "Include every decoded symbol")
	cmd.Flags().StringVar(&ic.plotPath, "plot", "", "Write an HTML chart of symbols per block to this file")

	return cmd
}

func (ic *InspectCommand) run(cmd *cobra.Command, args []string) error {
	providers, err := ic.location.observe(cmd, observability.ModeInspect)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	decoded, err := ic.location.load(args[0])
	if err != nil {
		return err
	}

	report := ic.buildReport(decoded)

	if ic.plotPath != "" {
		err = writeBlockChart(ic.plotPath, args[0], report)
		if err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()

	switch ic.format {
	case FormatTable:
		renderInspectTable(out, report)

		return nil
	case FormatYAML:
		enc := yaml.NewEncoder(out)
		defer enc.Close()

		return enc.Encode(report)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		return enc.Encode(report)
	default:
		return usageErr("%w: %s", ErrUnknownReportFormat, ic.format)
	}
}

func (ic *InspectCommand) buildReport(decoded *debinfo.Table) inspectReport {
	report := inspectReport{
		Format: decoded.Format.String(),
		Base:   decoded.Base,
		Size:   decoded.Size,
		Blocks: make([]blockReport, 0, len(decoded.Blocks)),
	}

	for _, rec := range decoded.Codes {
		report.MaxCodeLength = max(report.MaxCodeLength, rec.Length)

		if ic.codes {
			report.Codes = append(report.Codes, codeReport{
				Char:   textutil.Printable(string([]byte{rec.Value})),
				Code:   fmt.Sprintf("%0*b", rec.Length, rec.Code),
				Length: rec.Length,
			})
		}
	}

	for _, block := range decoded.Blocks {
		br := blockReport{Index: block.Index, Offset: block.Offset, Symbols: len(block.Symbols)}

		if n := len(block.Symbols); n > 0 {
			br.First = block.Symbols[0].Label
			br.Last = block.Symbols[n-1].Label
		}

		report.Symbols += br.Symbols
		report.Blocks = append(report.Blocks, br)
	}

	if ic.symbols {
		for _, sym := range decoded.Symbols() {
			report.Labels = append(report.Labels, symbolReport{
				Address: fmt.Sprintf("%06X", sym.Address),
				Label:   textutil.Printable(sym.Label),
			})
		}
	}

	return report
}

func newReportTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.Style().Options.SeparateRows = false
	tw.Style().Options.SeparateColumns = false
	tw.Style().Options.DrawBorder = false
	tw.Style().Options.SeparateHeader = false

	return tw
}

func renderInspectTable(w io.Writer, report inspectReport) {
	summary := newReportTable()
	summary.AppendRows([]table.Row{
		{"Format", report.Format},
		{"Base", fmt.Sprintf("$%X", report.Base)},
		{"Size", fmt.Sprintf("%s (%d bytes)", humanize.IBytes(uint64(report.Size)), report.Size)},
		{"Symbols", report.Symbols},
		{"Blocks", len(report.Blocks)},
		{"Longest code", fmt.Sprintf("%d bits", report.MaxCodeLength)},
	})
	fmt.Fprintln(w, summary.Render())
	fmt.Fprintln(w)

	blocks := newReportTable()
	blocks.AppendHeader(table.Row{"Block", "Offset", "Symbols", "First", "Last"})

	for _, b := range report.Blocks {
		blocks.AppendRow(table.Row{
			fmt.Sprintf("$%02X", b.Index), fmt.Sprintf("$%X", b.Offset), b.Symbols,
			textutil.Printable(b.First), textutil.Printable(b.Last),
		})
	}

	blocks.AppendFooter(table.Row{"", "", report.Symbols, "", ""})
	fmt.Fprintln(w, blocks.Render())

	if len(report.Codes) > 0 {
		codes := newReportTable()
		codes.AppendHeader(table.Row{"Char", "Code", "Length"})

		for _, c := range report.Codes {
			codes.AppendRow(table.Row{c.Char, c.Code, c.Length})
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, codes.Render())
	}

	if len(report.Labels) > 0 {
		labels := newReportTable()
		labels.AppendHeader(table.Row{"Address", "Label"})

		for _, l := range report.Labels {
			labels.AppendRow(table.Row{l.Address, l.Label})
		}

		fmt.Fprintln(w)
		fmt.Fprintln(w, labels.Render())
	}
}

func writeBlockChart(path, source string, report inspectReport) error {
	labels := make([]string, 0, len(report.Blocks))
	data := make([]opts.BarData, 0, len(report.Blocks))

	for _, b := range report.Blocks {
		labels = append(labels, fmt.Sprintf("$%02X0000", b.Index))
		data = append(data, opts.BarData{Value: b.Symbols})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Symbols per 64 KiB block",
			Subtitle: fmt.Sprintf("%s (%s, %d symbols)", source, report.Format, report.Symbols),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Block", AxisLabel: &opts.AxisLabel{Rotate: xAxisRotate}}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Symbols"}),
	)
	bar.SetXAxis(labels).AddSeries("Symbols", data)

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create plot: %w", err)
	}

	renderErr := bar.Render(f)

	return errors.Join(renderErr, f.Close())
}
