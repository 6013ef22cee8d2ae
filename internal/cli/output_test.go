package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatterSuccessJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"rows": 3}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(3), data["rows"])
}

func TestFormatterErrorJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error(ErrCodeNoSolver, "no capable backend", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, ErrCodeNoSolver, resp.Error.Code)
	assert.Equal(t, "no capable backend", resp.Error.Message)
}

func TestFormatterErrorText(t *testing.T) {
	buf := &bytes.Buffer{}
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Error(ErrCodeJournal, "opening journal: locked", nil))
	assert.Equal(t, "Error [E008]: opening journal: locked\n", buf.String())
}

func TestFormatterVerboseLogTargetsErrWriter(t *testing.T) {
	out := &bytes.Buffer{}
	errw := &bytes.Buffer{}
	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errw, Verbose: true}

	f.VerboseLog("reducing %s", "portfolio")
	assert.Empty(t, out.String())
	assert.Equal(t, "reducing portfolio\n", errw.String())

	f.Verbose = false
	errw.Reset()
	f.VerboseLog("silent")
	assert.Empty(t, errw.String())
}

func TestExitErrorCodes(t *testing.T) {
	err := NewExitError(ExitCommandError, "bad file")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Equal(t, "bad file", err.Error())

	wrapped := WrapExitError(ExitFailure, "solve failed", errors.New("iteration limit"))
	assert.Equal(t, ExitFailure, GetExitCode(wrapped))
	assert.Equal(t, "solve failed: iteration limit", wrapped.Error())
	assert.Equal(t, "iteration limit", errors.Unwrap(wrapped).Error())

	// Wrapped deeper, errors.As still finds it.
	deep := fmt.Errorf("outer: %w", wrapped)
	assert.Equal(t, ExitFailure, GetExitCode(deep))

	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
}
