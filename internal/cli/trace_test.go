package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceCommand_Text(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ragsim.db")
	token := runBuiltinToDB(t, dbPath, "single-deadlock")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", token})

	require.NoError(t, cmd.Execute())

	output := buf.String()
	assert.Contains(t, output, "run "+token)
	assert.Contains(t, output, "scenario single-deadlock")
	assert.Contains(t, output, "P0 requests R0")
	assert.Contains(t, output, "FULLY_DEADLOCKED")
	assert.Contains(t, output, "final state: FULLY_DEADLOCKED")
}

func TestTraceCommand_JSON(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ragsim.db")
	token := runBuiltinToDB(t, dbPath, "single-deadlock")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", token})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string      `json:"status"`
		Data   TraceResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, token, resp.Data.RunToken)
	assert.Equal(t, "graph", resp.Data.Strategy)
	assert.Equal(t, "FULLY_DEADLOCKED", resp.Data.FinalState)
	assert.NotEmpty(t, resp.Data.RunDigest)

	require.Len(t, resp.Data.Timeline, 9)
	assert.Equal(t, int64(1), resp.Data.Timeline[0].Step)
	assert.Equal(t, "P0 requests R0", resp.Data.Timeline[0].Statement)
	assert.Len(t, resp.Data.Timeline[0].Digest, 64)
	assert.Equal(t, "FULLY_DEADLOCKED", resp.Data.Timeline[8].State)
}

func TestTraceCommand_UnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ragsim.db")
	runBuiltinToDB(t, dbPath, "single-deadlock")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewTraceCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "missing"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestShortDigest(t *testing.T) {
	assert.Equal(t, "abc", shortDigest("abc"))
	assert.Equal(t, "0123456789ab", shortDigest("0123456789abcdef"))
}
