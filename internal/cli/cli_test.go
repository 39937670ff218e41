package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const inputFile = "testdata/input.txt"

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	cmd := NewRootCommand()
	require.NotNil(t, cmd)
	assert.Equal(t, "powermap", cmd.Use)

	for _, name := range []string{"run", "version"} {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, "command %s should exist", name)
		assert.Equal(t, name, sub.Name())
	}

	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)
}

func TestRunCommandFlags(t *testing.T) {
	runCmd, _, err := NewRootCommand().Find([]string{"run"})
	require.NoError(t, err)

	for _, name := range []string{"input", "grep", "upper", "split", "distinct", "skip", "take", "batch", "async", "concurrency"} {
		assert.NotNil(t, runCmd.Flags().Lookup(name), "flag --%s", name)
	}
	assert.Equal(t, "i", runCmd.Flags().Lookup("input").Shorthand)
}

func TestRunGolden(t *testing.T) {
	tests := []struct {
		name  string
		stdin string
		args  []string
	}{
		{"split_distinct", "", []string{"run", "--input", inputFile, "--split", "--distinct"}},
		{"grep_upper", "", []string{"run", "--input", inputFile, "--grep", "the", "--upper"}},
		{"take_batch", "", []string{"run", "--input", inputFile, "--split", "--take", "5", "--batch", "2"}},
		{"json_async", "", []string{"run", "--input", inputFile, "--split", "--skip", "7", "--async", "--format", "json"}},
		{"stdin_distinct", "b\na\nb\n", []string{"run", "--distinct"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := execute(t, tt.stdin, tt.args...)
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.name, []byte(out))
		})
	}
}

func TestRunConcurrentWriters(t *testing.T) {
	out, err := execute(t, "", "run", "--input", inputFile, "--split", "--concurrency", "4")
	require.NoError(t, err)

	lines := strings.Fields(out)
	assert.ElementsMatch(t, []string{
		"the", "quick", "brown", "fox",
		"jumps", "over", "the", "lazy", "dog",
		"The", "end",
	}, lines)
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("drain:\n  separator: \",\"\n"), 0o644))

	out, err := execute(t, "a\nb\n", "run", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "a,b,", out)
}

func TestRunErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantMsg  string
	}{
		{"missing config", []string{"run", "--config", "testdata/missing.yml"}, ExitCommandError, "failed to load config"},
		{"missing input", []string{"run", "--input", "testdata/missing.txt"}, ExitCommandError, "failed to open input"},
		{"bad format", []string{"run", "--format", "yaml"}, ExitCommandError, "invalid format"},
		{"concurrency too high", []string{"run", "--concurrency", "5000"}, ExitCommandError, "concurrency"},
		{"negative take", []string{"run", "--take=-1"}, ExitCommandError, "take"},
		{"extra args", []string{"run", "oops"}, ExitFailure, "unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, "", tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, GetExitCode(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "powermap "), "got %q", out)

	out, err = execute(t, "", "version", "--format", "json")
	require.NoError(t, err)
	assert.Contains(t, out, `"version"`)
	assert.Contains(t, out, `"go_version"`)
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, GetExitCode(nil))
	assert.Equal(t, ExitFailure, GetExitCode(assert.AnError))
	wrapped := WrapExitError(ExitCommandError, "bad", assert.AnError)
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
	assert.ErrorIs(t, wrapped, assert.AnError)
}
