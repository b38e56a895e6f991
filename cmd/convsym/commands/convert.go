package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"regexp/syntax"
	"strings"
	"unicode"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/convsym/pkg/config"
	"github.com/Sumatoshi-tech/convsym/pkg/input"
	"github.com/Sumatoshi-tech/convsym/pkg/observability"
	"github.com/Sumatoshi-tech/convsym/pkg/output"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

const referencePrefix = "@"

// ConvertCommand holds the flags of the root conversion command.
type ConvertCommand struct {
	configPath  string
	metricsFile string

	inputFormat  string
	inputOpts    string
	outputFormat string
	outputOpts   string

	base        string
	mask        string
	rangeBounds []string

	appendMode bool
	noAlign    bool
	org        string
	ref        string

	toUpper bool
	toLower bool
	prefix  string
	filter  string
	exclude bool
	debug   bool
}

func newConvertCommand() *cobra.Command {
	cc := &ConvertCommand{}

	cmd := &cobra.Command{
		Use:   "convsym INPUT OUTPUT",
		Short: "Convert assembler symbols into Mega Drive debug symbol tables",
		Long: `convsym reads the symbols of an assembler listing, symbol file or log and
writes them as a DEB1/DEB2 debug symbol table, assembler equates or a log.

INPUT and OUTPUT may be "-" for stdin and stdout. With -a or -org the table
is appended to, or written inside, an existing file such as a ROM image.

The classic single-dash flags ("-in log", "-range 0 3FFFFF") are accepted
along with GNU-style "--flag=value".

An INPUT named like a subcommand (inspect, diff, formats, version) runs that
subcommand instead. Put the file names after "--" or spell the path as
"./diff".`,
		Example: `  convsym listing.lst rom.bin -in asm68k_lst -a -ref @SymbolsPtr
  convsym symbols.log - -in log -out asm
  convsym game.sym game.deb2 -base FF0000 -range 0 3FFFFF
  convsym -in log -- diff diff.deb2`,
		Args:          cc.checkArgs,
		RunE:          cc.run,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.Flags()
	flags.SetNormalizeFunc(normalizeAliases)

	flags.StringVar(&cc.configPath, "config", "", "Config file path (default: .convsym.yaml in CWD or $HOME)")
	flags.StringVar(&cc.metricsFile, "metrics-file", "", "Write conversion counters in Prometheus text format to this file")

	flags.StringVar(&cc.inputFormat, "input", config.DefaultInputFormat,
		"Input format ("+strings.Join(append(input.DefaultRegistry().IDs(), input.AutoFormat), ", ")+"); alias -in")
	flags.StringVar(&cc.inputOpts, "inopt", "", "Input format options, e.g. \"/localSign=@ /localJoin=.\"")
	flags.StringVar(&cc.outputFormat, "output", config.DefaultOutputFormat,
		"Output format ("+strings.Join(output.DefaultRegistry().IDs(), ", ")+"); alias -out")
	flags.StringVar(&cc.outputOpts, "outopt", "", "Output format options, e.g. \"/favorLastLabels+\"")

	flags.StringVar(&cc.base, "base", config.DefaultOffsetBase, "Hex base subtracted from every symbol offset")
	flags.StringVar(&cc.mask, "mask", config.DefaultOffsetMask, "Hex mask applied after the base is subtracted")
	flags.StringSliceVar(&cc.rangeBounds, "range", nil,
		"Inclusive hex offset range LO,HI (default "+config.DefaultOffsetRangeLow+","+config.DefaultOffsetRangeHigh+")")

	flags.BoolVarP(&cc.appendMode, "append", "a", false, "Append the table to the end of OUTPUT")
	flags.BoolVar(&cc.noAlign, "noalign", false, "Don't pad appended tables to an even offset")
	flags.StringVar(&cc.org, "org", "", "Write the table at this hex offset of OUTPUT, or at @Symbol")
	flags.StringVar(&cc.ref, "ref", "", "Store the table offset as a 32-bit pointer at this hex offset, or at @Symbol")

	flags.BoolVar(&cc.toUpper, "toupper", false, "Convert labels to upper case")
	flags.BoolVar(&cc.toLower, "tolower", false, "Convert labels to lower case")
	flags.StringVar(&cc.prefix, "addprefix", "", "Prepend a string to every label")
	flags.StringVar(&cc.filter, "filter", "", "Keep only labels fully matching this regular expression")
	flags.BoolVar(&cc.exclude, "exclude", false, "Invert -filter: drop the matching labels")
	flags.BoolVar(&cc.debug, "debug", false, "Log every parsed, skipped and resolved symbol")

	cmd.SetFlagErrorFunc(flagError)

	return cmd
}

func (cc *ConvertCommand) checkArgs(cmd *cobra.Command, args []string) error {
	if len(args) == 2 {
		return nil
	}

	if len(args) < 2 {
		_ = cmd.Usage()
	}

	return usageErr("%w, got %d argument(s)", ErrMissingArguments, len(args))
}

func (cc *ConvertCommand) run(cmd *cobra.Command, args []string) error {
	inputPath, outputPath := args[0], args[1]

	cfg, err := cc.loadConfig(cmd.Flags())
	if err != nil {
		return exitErr(ExitUsage, err)
	}

	offsets, err := cfg.Offsets.Options()
	if err != nil {
		return exitErr(ExitUsage, err)
	}

	providers, err := initObservability(cmd, cfg, observability.ModeConvert)
	if err != nil {
		return err
	}
	defer shutdownObservability(providers)

	logger := providers.Logger

	cc.resolveConflicts(logger)

	resolve := symtab.NewResolveTable()

	org, err := parseReference("org", cc.org, resolve)
	if err != nil {
		return err
	}

	ref, err := parseReference("ref", cc.ref, resolve)
	if err != nil {
		return err
	}

	filter, err := cc.compileFilter()
	if err != nil {
		return err
	}

	ctx, span := providers.Tracer.Start(cmd.Context(), "convsym.convert",
		trace.WithAttributes(
			attribute.String("convsym.input.format", cfg.Input.Format),
			attribute.String("convsym.output.format", cfg.Output.Format),
		),
	)
	defer span.End()

	table := symtab.New(symtab.Options{Offsets: offsets, Resolve: resolve, Logger: logger})

	err = input.DefaultRegistry().ParseFile(cfg.Input.Format, inputPath, cfg.Input.Options,
		input.Env{Table: table, Logger: logger})
	if err != nil {
		return failSpan(span, exitErr(ExitUsage, fmt.Errorf("%w: %w", ErrInputParse, err)))
	}

	err = resolve.Check()
	if err != nil {
		return failSpan(span, exitErr(ExitUnresolved, err))
	}

	parsed := table.Len()

	cc.transform(table, filter)

	if table.IsEmpty() {
		return failSpan(span, exitErr(ExitEmptyTable, ErrEmptyTable))
	}

	filtered := parsed - table.Len()

	target := cc.target(outputPath, cfg.Align, org.address(resolve), ref.address(resolve), logger)
	target.Stdout = cmd.OutOrStdout()

	commit, err := output.DefaultRegistry().Write(cfg.Output.Format, table, cfg.Output.Options, target,
		output.Env{Logger: logger})
	if err != nil {
		return failSpan(span, err)
	}

	stats := observability.ConversionStats{
		Parsed:      parsed,
		Emitted:     commit.Stats.Emitted,
		OutputBytes: commit.Written,
		Skipped: map[string]int{
			observability.ReasonFiltered:  filtered,
			observability.ReasonDuplicate: commit.Stats.Duplicates,
			observability.ReasonCapacity:  commit.Stats.Dropped,
		},
	}

	span.SetAttributes(
		attribute.Int("convsym.symbols.parsed", stats.Parsed),
		attribute.Int("convsym.symbols.emitted", stats.Emitted),
		attribute.Int("convsym.output.bytes", stats.OutputBytes),
	)

	if cc.metricsFile != "" {
		err = writeMetrics(ctx, cc.metricsFile, stats)
		if err != nil {
			return failSpan(span, err)
		}
	}

	logger.InfoContext(ctx, "symbol table written",
		"output", outputPath,
		"format", cfg.Output.Format,
		"symbols", stats.Emitted,
		"size", humanize.Bytes(uint64(commit.Written)),
		"base", fmt.Sprintf("%X", commit.Base),
	)

	return nil
}

// loadConfig merges the config file with the flags given on the command line.
func (cc *ConvertCommand) loadConfig(flags *pflag.FlagSet) (*config.Config, error) {
	cfg, err := config.LoadConfig(cc.configPath)
	if err != nil {
		return nil, err
	}

	overrides := []struct {
		flag string
		dst  *string
		val  string
	}{
		{"input", &cfg.Input.Format, cc.inputFormat},
		{"inopt", &cfg.Input.Options, cc.inputOpts},
		{"output", &cfg.Output.Format, cc.outputFormat},
		{"outopt", &cfg.Output.Options, cc.outputOpts},
		{"base", &cfg.Offsets.Base, cc.base},
		{"mask", &cfg.Offsets.Mask, cc.mask},
	}

	for _, o := range overrides {
		if flags.Changed(o.flag) {
			*o.dst = o.val
		}
	}

	if flags.Changed("range") {
		if len(cc.rangeBounds) != 2 {
			return nil, fmt.Errorf("%w: -range expects LO and HI, got %q", ErrInvalidNumber, strings.Join(cc.rangeBounds, " "))
		}

		cfg.Offsets.RangeLow, cfg.Offsets.RangeHigh = cc.rangeBounds[0], cc.rangeBounds[1]
	}

	if cc.noAlign {
		cfg.Align = false
	}

	if cc.debug {
		cfg.Log.Level = "debug"
	}

	err = cfg.Validate()
	if errors.Is(err, config.ErrInvalidHex) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidNumber, err)
	}

	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cc *ConvertCommand) resolveConflicts(logger *slog.Logger) {
	if cc.appendMode && cc.org != "" {
		logger.Warn("-org parameter has no effect when -a is used")

		cc.org = ""
	}

	if cc.exclude && cc.filter == "" {
		logger.Warn("-exclude parameter has no effect without -filter")

		cc.exclude = false
	}

	if cc.toUpper && cc.toLower {
		logger.Warn("-toupper and -tolower are mutually exclusive, -toupper is ignored")

		cc.toUpper = false
	}
}

// compileFilter compiles -filter as a full match, case-aligned with -toupper or -tolower.
func (cc *ConvertCommand) compileFilter() (*regexp.Regexp, error) {
	if cc.filter == "" {
		return nil, nil //nolint:nilnil // no filter requested.
	}

	pattern := cc.filter

	switch {
	case cc.toUpper:
		pattern = foldPattern(pattern, unicode.ToUpper)
	case cc.toLower:
		pattern = foldPattern(pattern, unicode.ToLower)
	}

	re, err := regexp.Compile(`^(?:` + pattern + `)$`)
	if err != nil {
		return nil, usageErr("%w: %w", ErrBadFilter, err)
	}

	return re, nil
}

func (cc *ConvertCommand) transform(table *symtab.Table, filter *regexp.Regexp) {
	switch {
	case cc.toUpper:
		table.ToUpper()
	case cc.toLower:
		table.ToLower()
	}

	if cc.prefix != "" {
		table.AddPrefix(cc.prefix)
	}

	if filter != nil {
		table.Filter(filter, cc.exclude)
	}
}

func (cc *ConvertCommand) target(path string, align bool, org, ref uint32, logger *slog.Logger) output.Target {
	target := output.Target{Path: path, Align: align}

	switch {
	case cc.appendMode:
		target.Mode = output.SpliceEnd
	case org != 0:
		target.Mode = output.SpliceAt
		target.Offset = org
	}

	if cc.ref == "" {
		return target
	}

	if target.Mode == output.SpliceNone {
		logger.Warn("-ref parameter has no effect without -a or -org")

		return target
	}

	target.PointerOffset = ref

	return target
}

// foldPattern changes the case of the literal characters of a regular
// expression. Escapes and class names are left alone. Patterns that fail to
// parse are returned unchanged so that compilation reports the error.
func foldPattern(pattern string, fold func(rune) rune) string {
	re, err := syntax.Parse(pattern, syntax.Perl)
	if err != nil {
		return pattern
	}

	foldRegexp(re, fold)

	return re.String()
}

func foldRegexp(re *syntax.Regexp, fold func(rune) rune) {
	switch re.Op {
	case syntax.OpLiteral:
		for i, r := range re.Rune {
			re.Rune[i] = fold(r)
		}
	case syntax.OpCharClass:
		for i := 0; i+1 < len(re.Rune); i += 2 {
			lo, hi := fold(re.Rune[i]), fold(re.Rune[i+1])
			if hi-lo == re.Rune[i+1]-re.Rune[i] {
				re.Rune[i], re.Rune[i+1] = lo, hi
			}
		}
	default:
	}

	for _, sub := range re.Sub {
		foldRegexp(sub, fold)
	}
}

// reference is an -org or -ref value: a hex offset or a symbol name.
type reference struct {
	name   string
	offset uint32
}

func parseReference(flag, value string, resolve *symtab.ResolveTable) (reference, error) {
	if value == "" {
		return reference{}, nil
	}

	if name, ok := strings.CutPrefix(value, referencePrefix); ok {
		if name == "" {
			return reference{}, usageErr("%w: -%s %q names no symbol", ErrInvalidNumber, flag, value)
		}

		resolve.Request(name)

		return reference{name: name}, nil
	}

	offset, err := config.ParseHex(value)
	if err != nil {
		return reference{}, usageErr("%w: -%s: %w", ErrInvalidNumber, flag, err)
	}

	return reference{offset: offset}, nil
}

func (r reference) address(resolve *symtab.ResolveTable) uint32 {
	if r.name == "" {
		return r.offset
	}

	address, _ := resolve.Lookup(r.name)

	return address
}

func failSpan(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	return err
}

func writeMetrics(ctx context.Context, path string, stats observability.ConversionStats) error {
	metrics, err := observability.NewConversionMetrics()
	if err != nil {
		return err
	}

	metrics.Record(ctx, stats)

	return errors.Join(metrics.WriteTextfile(path), metrics.Shutdown(ctx))
}
