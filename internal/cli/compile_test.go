package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompileSummaryText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"compile", writeProblem(t, "clean.cue", cleanSrc)})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "✓ clean reduced to a cone program")
	assert.Contains(t, out, "Sense:        minimize")
	assert.Contains(t, out, "Fingerprint:")
	assert.Contains(t, out, "Capable:")
}

func TestCompileSummaryJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"compile", "--format", "json", writeProblem(t, "clean.cue", cleanSrc)})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string         `json:"status"`
		Data   CompileSummary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, "clean", resp.Data.Problem)
	assert.Equal(t, "minimize", resp.Data.Sense)
	assert.Equal(t, 2, resp.Data.Columns)
	assert.Equal(t, 2, resp.Data.Variables)
	assert.NotEmpty(t, resp.Data.Fingerprint)
	// Pure LP, every backend qualifies.
	assert.Equal(t, []string{"simplex", "ecos", "conelp", "scs"}, resp.Data.Capable)
}

func TestCompileEmitForBackend(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"compile", "--solver", "scs", writeProblem(t, "clean.cue", cleanSrc)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Emitted for scs:")
}

func TestCompileWritesBundle(t *testing.T) {
	outPath := filepath.Join(t.TempDir(), "bundle.json")
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"compile", "--output", outPath, writeProblem(t, "clean.cue", cleanSrc)})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, buf.String(), "Wrote bundle to")

	raw, err := os.ReadFile(outPath)
	require.NoError(t, err)
	var bundle ProgramData
	require.NoError(t, json.Unmarshal(raw, &bundle))
	assert.Equal(t, "clean", bundle.Summary.Problem)
	assert.Len(t, bundle.C, bundle.Summary.Columns)
	require.NotNil(t, bundle.G)
	assert.Equal(t, bundle.Summary.Columns, bundle.G.Cols)
}

func TestCompileDisciplineFailure(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"compile", writeProblem(t, "crooked.cue", crookedSrc)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeDiscipline)
}

func TestCompileUnknownSolver(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"compile", "--solver", "gurobi", writeProblem(t, "clean.cue", cleanSrc)})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), ErrCodeNoSolver)
}
