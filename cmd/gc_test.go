package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const cmdTestLog = `0.100: [GC 0.100: [ParNew: 3968K->448K(4032K), 0.0299506 secs] 3968K->1475K(20160K), 0.0300629 secs]
1.200: [GC 1.200: [ParNew: 4416K->448K(4032K), 0.0100000 secs] 5443K->2100K(20160K), 0.0110000 secs]
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	// keeps the completion auto-install away from the real home directory
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHELL", "/bin/bash")

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeLog(t *testing.T, name, text string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(text), 0o600))
	return path
}

func TestAnalyzeJSON(t *testing.T) {
	path := writeLog(t, "gc.log", cmdTestLog)

	out, _, err := execute(t, "gc", "analyze", path, "-o", "json")
	require.NoError(t, err)

	var decoded struct {
		Source  string `json:"source"`
		Summary struct {
			Events int   `json:"events"`
			Pauses int64 `json:"pauses"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "gc.log", decoded.Source)
	assert.Equal(t, 2, decoded.Summary.Events)
	assert.Equal(t, int64(2), decoded.Summary.Pauses)
}

func TestAnalyzeRejectsUnknownFormat(t *testing.T) {
	path := writeLog(t, "gc.log", cmdTestLog)

	_, _, err := execute(t, "gc", "analyze", path, "-o", "html")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "html")
}

func TestAnalyzeRejectsUnmatchedFileName(t *testing.T) {
	path := writeLog(t, "gc.txt", cmdTestLog)

	_, _, err := execute(t, "gc", "analyze", path, "-o", "cli")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid GC log file")
}

func TestValidate(t *testing.T) {
	valid := writeLog(t, "gc.log", cmdTestLog)
	out, _, err := execute(t, "gc", "validate", valid)
	require.NoError(t, err)
	assert.Contains(t, out, "GC log is valid")

	broken := writeLog(t, "broken.log", cmdTestLog+"not a gc line\n2.000: [CMS-concurrent-mark-start]\n")
	out, _, err = execute(t, "gc", "validate", broken)
	require.ErrorIs(t, err, errValidationFailed)
	assert.Contains(t, out, "1 unparsed lines")
	assert.Contains(t, out, "line 3")
	assert.Contains(t, out, "1 concurrent phases never ended")
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "gcmodel version dev")
}
