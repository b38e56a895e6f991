package commands_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sumatoshi-tech/convsym/cmd/convsym/commands"
)

// buildTable converts a log listing into a table file of the given format.
func buildTable(t *testing.T, format, listing string, extra ...string) string {
	t.Helper()

	in := writeFile(t, "symbols.log", []byte(listing))
	out := filepath.Join(t.TempDir(), "symbols."+format)

	res := runConvert(t, append([]string{in, out, "-in", "log", "-out", format}, extra...)...)
	require.NoError(t, res.err, res.stderr)

	return out
}

func TestInspect_Table(t *testing.T) {
	t.Parallel()

	path := buildTable(t, "deb2", "000100:main\n010200:loop\n")

	res := runCLI(t, "inspect", path, "--codes", "--symbols")
	require.NoError(t, res.err, res.stderr)

	assert.Contains(t, res.stdout, "deb2")
	assert.Contains(t, res.stdout, "000100")
	assert.Contains(t, res.stdout, "loop")
	assert.Contains(t, res.stdout, `\x00`)
}

func TestInspect_JSON(t *testing.T) {
	t.Parallel()

	path := buildTable(t, "deb1", "000100:main\n010200:loop\n")

	res := runCLI(t, "inspect", path, "--format", "json", "--symbols")
	require.NoError(t, res.err, res.stderr)

	var report struct {
		Format  string `json:"format"`
		Symbols int    `json:"symbols"`
		Blocks  []struct {
			Index   int `json:"index"`
			Symbols int `json:"symbols"`
		} `json:"blocks"`
		Labels []struct {
			Address string `json:"address"`
			Label   string `json:"label"`
		} `json:"labels"`
	}

	require.NoError(t, json.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "deb1", report.Format)
	assert.Equal(t, 2, report.Symbols)
	require.Len(t, report.Blocks, 2)
	assert.Equal(t, 1, report.Blocks[1].Index)
	require.Len(t, report.Labels, 2)
	assert.Equal(t, "010200", report.Labels[1].Address)
	assert.Equal(t, "loop", report.Labels[1].Label)
}

func TestInspect_YAML(t *testing.T) {
	t.Parallel()

	path := buildTable(t, "deb2", "000100:main\n")

	res := runCLI(t, "inspect", path, "--format", "yaml")
	require.NoError(t, res.err, res.stderr)

	var report map[string]any
	require.NoError(t, yaml.Unmarshal([]byte(res.stdout), &report))
	assert.Equal(t, "deb2", report["format"])
	assert.Equal(t, 1, report["symbols"])
	assert.NotContains(t, report, "labels")
}

func TestInspect_SplicedViaPointer(t *testing.T) {
	t.Parallel()

	in := writeFile(t, "symbols.log", []byte("000100:main\n"))
	rom := writeFile(t, "rom.bin", make([]byte, 0x80))

	res := runConvert(t, in, rom, "-in", "log", "-a", "-ref", "4")
	require.NoError(t, res.err, res.stderr)

	res = runCLI(t, "inspect", rom, "--pointer", "4", "--format", "json")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `"base": 128`)

	res = runCLI(t, "inspect", rom, "--offset", "$80", "--format", "json")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, `"base": 128`)

	res = runCLI(t, "inspect", rom)
	require.Error(t, res.err)
}

func TestInspect_Plot(t *testing.T) {
	t.Parallel()

	path := buildTable(t, "deb2", "000100:main\n010200:loop\n")
	plot := filepath.Join(t.TempDir(), "blocks.html")

	res := runCLI(t, "inspect", path, "--plot", plot)
	require.NoError(t, res.err, res.stderr)

	data, err := os.ReadFile(plot)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Symbols per 64 KiB block")
	assert.Contains(t, string(data), "$010000")
}

func TestInspect_Errors(t *testing.T) {
	t.Parallel()

	path := buildTable(t, "deb2", "000100:main\n")

	res := runCLI(t, "inspect", path, "--format", "xml")
	require.ErrorIs(t, res.err, commands.ErrUnknownReportFormat)

	res = runCLI(t, "inspect", path, "--offset", "zz")
	require.ErrorIs(t, res.err, commands.ErrInvalidNumber)
	assert.Equal(t, commands.ExitUsage, commands.ExitCode(res.err))

	res = runCLI(t, "inspect", filepath.Join(t.TempDir(), "missing.bin"))
	require.ErrorIs(t, res.err, os.ErrNotExist)
}

func TestDiff(t *testing.T) {
	t.Parallel()

	oldPath := buildTable(t, "deb2", "000100:main\n000200:loop\n")
	newPath := buildTable(t, "deb1", "000100:main\n000200:loop2\n000300:exit\n")

	res := runCLI(t, "diff", oldPath, newPath)
	require.NoError(t, res.err, res.stderr)

	assert.Contains(t, res.stdout, "-000200 loop\n")
	assert.Contains(t, res.stdout, "+000200 loop2\n")
	assert.Contains(t, res.stdout, "+000300 exit\n")
	assert.NotContains(t, res.stdout, "000100 main")
	assert.Contains(t, res.stderr, "2 added, 1 removed")

	res = runCLI(t, "diff", oldPath, newPath, "--all")
	require.NoError(t, res.err, res.stderr)
	assert.Contains(t, res.stdout, " 000100 main\n")

	res = runCLI(t, "diff", oldPath, newPath, "--exit-code")
	require.ErrorIs(t, res.err, commands.ErrTablesDiffer)
	assert.Equal(t, 1, commands.ExitCode(res.err))

	res = runCLI(t, "diff", oldPath, oldPath, "--exit-code")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
}

func TestFormats(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "formats")
	require.NoError(t, res.err, res.stderr)

	for _, want := range []string{"asm68k_sym", "asm68k_lst", "as_lst", "log", "txt", "auto", "deb1", "deb2", "asm", "favorLastLabels"} {
		assert.Contains(t, res.stdout, want)
	}
}

func TestVersion(t *testing.T) {
	t.Parallel()

	res := runCLI(t, "version")
	require.NoError(t, res.err)
	assert.Contains(t, res.stdout, "convsym ")
	assert.Contains(t, res.stdout, "commit:")
}
