package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ragsim/internal/store"
)

func TestReplayCommand_Deterministic(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ragsim.db")
	token := runBuiltinToDB(t, dbPath, "single-deadlock")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", token})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string       `json:"status"`
		Data   ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Deterministic)
	assert.Equal(t, 9, resp.Data.Steps)
	assert.Equal(t, token, resp.Data.RunToken)
}

func TestReplayCommand_AllBuiltins(t *testing.T) {
	for _, name := range []string{"single-deadlock", "single-nodeadlock", "multi-deadlock", "multi-nodeadlock"} {
		t.Run(name, func(t *testing.T) {
			dbPath := filepath.Join(t.TempDir(), "ragsim.db")
			token := runBuiltinToDB(t, dbPath, name)

			buf := &bytes.Buffer{}
			rootOpts := &RootOptions{Format: "json"}
			cmd := NewReplayCommand(rootOpts)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{"--db", dbPath, "--run", token})

			require.NoError(t, cmd.Execute())

			var resp struct {
				Data ReplayResult `json:"data"`
			}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
			assert.True(t, resp.Data.Deterministic)
		})
	}
}

func TestReplayCommand_TamperedStepDetected(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ragsim.db")
	token := runBuiltinToDB(t, dbPath, "single-deadlock")

	// Corrupt one recorded digest directly in the database.
	st, err := store.Open(dbPath)
	require.NoError(t, err)
	_, err = st.DB().ExecContext(context.Background(),
		`UPDATE snapshots SET digest = 'tampered' WHERE run_token = ? AND step = 5`, token)
	require.NoError(t, err)
	require.NoError(t, st.Close())

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", token})

	err = cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Data ReplayResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.False(t, resp.Data.Deterministic)
	assert.Equal(t, int64(5), resp.Data.MismatchStep)
}

func TestReplayCommand_UnknownRun(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "ragsim.db")
	runBuiltinToDB(t, dbPath, "single-deadlock")

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{"--db", dbPath, "--run", "no-such-token"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayCommand_RequiredFlags(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewReplayCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs([]string{})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required flag")
}
