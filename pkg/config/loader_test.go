package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/pkg/config"
	"github.com/Sumatoshi-tech/convsym/pkg/symtab"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), ".convsym.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoadConfig_EmptyFile_UsesDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, ""))
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, config.Default(), *cfg)

	offsets, err := cfg.Offsets.Options()
	require.NoError(t, err)
	assert.Equal(t, symtab.DefaultOffsetOptions(), offsets)
}

func TestLoadConfig_ValidFile_Unmarshals(t *testing.T) {
	t.Parallel()

	content := `input:
  format: log
  options: "/separator=' '"
output:
  format: asm
offsets:
  base: "$FF0000"
  mask: "0xFFFF"
  range_high: "FFFF"
align: false
log:
  level: debug
  json: true
telemetry:
  otlp_endpoint: "localhost:4317"
  otlp_insecure: true
`

	cfg, err := config.LoadConfig(writeConfig(t, content))
	require.NoError(t, err)

	assert.Equal(t, "log", cfg.Input.Format)
	assert.Equal(t, "/separator=' '", cfg.Input.Options)
	assert.Equal(t, "asm", cfg.Output.Format)
	assert.False(t, cfg.Align)
	assert.True(t, cfg.Log.JSON)
	assert.Equal(t, "localhost:4317", cfg.Telemetry.OTLPEndpoint)
	assert.True(t, cfg.Telemetry.OTLPInsecure)

	offsets, err := cfg.Offsets.Options()
	require.NoError(t, err)
	assert.Equal(t, symtab.OffsetOptions{Base: 0xFF0000, Mask: 0xFFFF, Low: 0, High: 0xFFFF}, offsets)
}

func TestLoadConfig_SchemaErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "unknown key", content: "outputs:\n  format: deb2\n"},
		{name: "integer offset", content: "offsets:\n  base: 0\n"},
		{name: "bad hex", content: "offsets:\n  mask: \"FFGG\"\n"},
		{name: "bad level", content: "log:\n  level: loud\n"},
		{name: "align not bool", content: "align: sometimes\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := config.LoadConfig(writeConfig(t, tt.content))
			require.ErrorIs(t, err, config.ErrInvalidConfig)
		})
	}
}

func TestLoadConfig_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "output:\n  format: elf\n"))
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "elf")
}

func TestLoadConfig_AutoInputAccepted(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadConfig(writeConfig(t, "input:\n  format: auto\n"))
	require.NoError(t, err)
	assert.Equal(t, "auto", cfg.Input.Format)
}

func TestLoadConfig_MalformedYAML(t *testing.T) {
	t.Parallel()

	_, err := config.LoadConfig(writeConfig(t, "input: [unclosed\n"))
	require.Error(t, err)
}

//nolint:paralleltest // t.Setenv is incompatible with t.Parallel.
func TestLoadConfig_EnvOverride(t *testing.T) {
	t.Setenv("CONVSYM_OUTPUT_FORMAT", "deb1")
	t.Setenv("CONVSYM_ALIGN", "false")

	cfg, err := config.LoadConfig(writeConfig(t, "output:\n  format: log\n"))
	require.NoError(t, err)

	assert.Equal(t, "deb1", cfg.Output.Format)
	assert.False(t, cfg.Align)
}

func TestParseHex(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		want    uint32
		wantErr bool
	}{
		{in: "FF0000", want: 0xFF0000},
		{in: "$3fffff", want: 0x3FFFFF},
		{in: "0x10", want: 0x10},
		{in: "0X10", want: 0x10},
		{in: "FFFFFFFF", want: 0xFFFFFFFF},
		{in: "", wantErr: true},
		{in: "xyz", wantErr: true},
		{in: "100000000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()

			got, err := config.ParseHex(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidHex)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLogConfig_SlogLevel(t *testing.T) {
	t.Parallel()

	level, err := config.LogConfig{Level: "WARN"}.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, "WARN", level.String())

	_, err = config.LogConfig{Level: "trace"}.SlogLevel()
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}
