package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSolversListText(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"solvers"})

	require.NoError(t, cmd.Execute())

	out := buf.String()
	assert.Contains(t, out, "NAME")
	assert.Contains(t, out, "simplex")
	assert.Contains(t, out, "scs")
	// The simplex driver is linked into the test binary.
	assert.Contains(t, out, "registered")
}

func TestSolversListJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCommand()
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"solvers", "--format", "json"})

	require.NoError(t, cmd.Execute())

	var resp struct {
		Status string       `json:"status"`
		Data   []SolverInfo `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	require.Len(t, resp.Data, 4)

	// Selection order, least general first.
	assert.Equal(t, "simplex", resp.Data[0].Name)
	assert.Equal(t, "lp", resp.Data[0].Cones)
	assert.True(t, resp.Data[0].Driver)

	assert.Equal(t, "scs", resp.Data[3].Name)
	assert.Equal(t, "lp+soc+sdp+exp", resp.Data[3].Cones)
	assert.True(t, resp.Data[3].SOC)
	assert.True(t, resp.Data[3].PSD)
	assert.True(t, resp.Data[3].Exp)
}
