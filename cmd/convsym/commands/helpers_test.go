package commands_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/convsym/cmd/convsym/commands"
)

type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the command tree with classic arguments.
func runCLI(t *testing.T, args ...string) cliResult {
	t.Helper()

	cmd := commands.NewRootCommand()

	var stdout, stderr bytes.Buffer

	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(commands.NormalizeArgs(args))

	err := cmd.Execute()

	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

// runConvert runs a conversion isolated from any .convsym.yaml on the host.
func runConvert(t *testing.T, args ...string) cliResult {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "convsym.yaml")
	require.NoError(t, os.WriteFile(cfgPath, nil, 0o600))

	return runCLI(t, append(args, "-config", cfgPath)...)
}

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	return path
}
