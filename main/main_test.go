package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phil-mansfield/gosinter"
	"github.com/phil-mansfield/gosinter/io"
)

func TestExampleConfigCommand(t *testing.T) {
	table := []struct {
		args   []string
		format string
		err    bool
	}{
		{[]string{"example-config"}, "ini", false},
		{[]string{"example-config", "ini"}, "ini", false},
		{[]string{"example-config", "YAML"}, "yaml", false},
		{[]string{"example-config", "toml"}, "", true},
	}

	for i, test := range table {
		out := &bytes.Buffer{}
		rootCmd.SetOut(out)
		rootCmd.SetArgs(test.args)
		err := rootCmd.Execute()
		if test.err {
			if err == nil {
				t.Errorf("%d) Expected an error.", i+1)
			}
			continue
		} else if err != nil {
			t.Errorf("%d) Unexpected error: %v", i+1, err)
			continue
		}

		if _, err := io.ReadConfigString(out.String(), test.format); err != nil {
			t.Errorf("%d) Printed configuration is invalid: %v", i+1, err)
		}
	}
}

func TestArgs(t *testing.T) {
	assert.NoError(t, rootCmd.Args(rootCmd, nil))
	assert.NoError(t, rootCmd.Args(rootCmd, []string{"in.ini", "out.db"}))
	assert.Error(t, rootCmd.Args(rootCmd, []string{"in.ini"}))
}

func TestNewLogger(t *testing.T) {
	con := io.OutputConfig{LogFile: filepath.Join(t.TempDir(), "run.log"),
		LogLevel: "warn"}
	logger, closeLog, err := newLogger(con)
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	closeLog()

	text, err := os.ReadFile(con.LogFile)
	require.NoError(t, err)
	assert.NotContains(t, string(text), "hidden")
	assert.Contains(t, string(text), "shown")

	con.LogLevel = "loud"
	_, _, err = newLogger(con)
	assert.True(t, errors.Is(err, io.ErrConfig))
}

// resetFlag restores a root flag set during a test.
func resetFlag(t *testing.T, name string) {
	f := rootCmd.Flags().Lookup(name)
	require.NotNil(t, f)
	require.NoError(t, f.Value.Set(""))
	f.Changed = false
}

func TestRunPreconditionFailure(t *testing.T) {
	dir := t.TempDir()
	metricsFile := filepath.Join(dir, "metrics.prom")
	text := strings.Replace(io.ExampleConfigFile,
		"minimum-contacts = 1", "minimum-contacts = 3", 1)
	text = strings.Replace(text,
		"# metrics-file = metrics.prom", "metrics-file = "+metricsFile, 1)
	input := filepath.Join(dir, "input.ini")
	require.NoError(t, os.WriteFile(input, []byte(text), 0644))

	// The configured log file is relative, the flag moves it into dir.
	logPath := filepath.Join(dir, "flag.log")
	require.NoError(t, rootCmd.Flags().Set("log-file", logPath))
	require.NoError(t, rootCmd.Flags().Set("log-level", "warn"))
	defer resetFlag(t, "log-file")
	defer resetFlag(t, "log-level")

	out := &bytes.Buffer{}
	rootCmd.SetOut(out)
	output := filepath.Join(dir, "out.db")
	err := run(rootCmd, input, output)

	var perr *gosinter.PreconditionError
	require.True(t, errors.As(err, &perr), "Expected a precondition error, got %v", err)
	assert.Equal(t, "minimum-contacts", perr.Name)
	assert.Empty(t, out.String())

	// A cleanly closed database leaves no write-ahead log behind.
	_, err = os.Stat(output + "-wal")
	assert.True(t, os.IsNotExist(err), "Database was not closed.")

	st, err := io.NewSQLiteStorage(output)
	require.NoError(t, err)
	defer st.Close()
	var n int
	require.NoError(t, st.DB().QueryRow("SELECT COUNT(*) FROM states").Scan(&n))
	assert.Equal(t, 0, n)

	logText, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logText), "precondition failed")
	assert.NotContains(t, string(logText), "configuration read")

	metricsText, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metricsText),
		`gosinter_stages_completed_total{stage="initial"} 1`)
	assert.Contains(t, string(metricsText),
		`gosinter_stages_completed_total{stage="compaction"} 1`)
	assert.NotContains(t, string(metricsText),
		`gosinter_stages_completed_total{stage="sintering"}`)
}
