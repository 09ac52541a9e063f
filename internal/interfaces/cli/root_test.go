package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/OperaLab/pkg/errors"
)

// run executes the root command with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	root := NewRootCommand()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func TestNewRootCommand_Structure(t *testing.T) {
	cmd := NewRootCommand()
	assert.Equal(t, "operalab", cmd.Use)
	assert.NotEmpty(t, cmd.Short)

	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}
	for _, want := range []string{"evaluate", "duplicates", "legislation", "samples", "catalog", "serve", "watch"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}

	for _, flag := range []string{"config", "log-level", "output", "catalog", "verbose"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), "missing flag %q", flag)
	}
	assert.Equal(t, OutputText, cmd.PersistentFlags().Lookup("output").DefValue)
}

func TestRootCommand_RejectsUnknownOutput(t *testing.T) {
	_, _, err := run(t, "samples", "x.csv", "--output", "xml")
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeInvalidParam))
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, _, err := run(t, "samples", "x.csv", "--config", "/nonexistent/operalab.yaml")
	assert.Error(t, err)
}

func TestGetCLIContext_Missing(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetContext(context.Background())
	_, err := GetCLIContext(cmd)
	assert.Error(t, err)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errors.Internal("boom")))

	rejected := &ExitError{Code: ExitRejected, Err: errors.Internal("rejected")}
	assert.Equal(t, 2, ExitCode(rejected))
	assert.Equal(t, 2, ExitCode(fmt.Errorf("wrapped: %w", rejected)))
	assert.Equal(t, "[COMMON_001] rejected", rejected.Error())
}

func TestFormatTable(t *testing.T) {
	out := FormatTable([]string{"sample", "status"}, [][]string{
		{"S1", "NÃO CONFORME"},
		{"S10", "OK"},
	})
	assert.Equal(t, "sample  status\n------  ------------\nS1      NÃO CONFORME\nS10     OK\n", out)
	assert.Empty(t, FormatTable(nil, nil))
}

func TestPrintError(t *testing.T) {
	cmd := NewRootCommand()
	var buf bytes.Buffer
	cmd.SetErr(&buf)
	PrintError(cmd, nil)
	assert.Empty(t, buf.String())
	PrintError(cmd, errors.NotFound("missing"))
	assert.Equal(t, "Error: [COMMON_005] missing\n", buf.String())
}
