package galaxy

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustRaw(t *testing.T, doc string) rawWorkflow {
	t.Helper()
	var wf rawWorkflow
	require.NoError(t, json.Unmarshal([]byte(doc), &wf))
	return wf
}

func TestFromRaw_DataInputAndToolStep(t *testing.T) {
	doc := `{
		"steps": {
			"0": {"id": 0, "type": "data_input", "label": "in", "tool_state": "{\"name\":\"in\"}"},
			"1": {
				"id": 1, "type": "tool", "tool_id": "cat1", "label": null,
				"tool_state": "{\"param\":\"x\",\"__page__\":0}",
				"inputs": [{"name": "param"}],
				"input_connections": {"src": {"id": 0, "output_name": ""}}
			}
		}
	}`
	wf, err := FromRaw(mustRaw(t, doc))
	require.NoError(t, err)

	steps := wf.Steps()
	require.Len(t, steps, 2)

	in, ok := wf.GetStep(0)
	require.True(t, ok)
	assert.Equal(t, DataInput, in.Type)
	assert.Equal(t, "in", in.Label)

	tool, ok := wf.GetStep(1)
	require.True(t, ok)
	assert.Equal(t, ToolStep, tool.Type)
	assert.Equal(t, "cat1", tool.ToolID)
	assert.Equal(t, "x", tool.ToolState["param"])
	_, hasPage := tool.ToolState["__page__"]
	assert.False(t, hasPage, "__page__ must be stripped from tool_state")

	conn, ok := tool.InputConnections["src"]
	require.True(t, ok)
	assert.Equal(t, 0, conn.UpstreamID)

	require.Len(t, wf.ToolSteps(), 1)
	assert.Equal(t, 1, wf.ToolSteps()[0].StepID)
}

func TestFromRaw_LabelFallsBackToAnnotationThenID(t *testing.T) {
	doc := `{
		"steps": {
			"5": {"id": 5, "type": "tool", "tool_id": "t", "label": null, "annotation": "my-step"},
			"6": {"id": 6, "type": "tool", "tool_id": "t", "label": null, "annotation": ""}
		}
	}`
	wf, err := FromRaw(mustRaw(t, doc))
	require.NoError(t, err)

	s5, _ := wf.GetStep(5)
	assert.Equal(t, "my-step", s5.Label)

	s6, _ := wf.GetStep(6)
	assert.Equal(t, "6", s6.Label)
}

func TestFromRaw_InvalidConnectionIDFails(t *testing.T) {
	doc := `{
		"steps": {
			"1": {
				"id": 1, "type": "tool", "tool_id": "t",
				"input_connections": {"src": {"id": 1.5}}
			}
		}
	}`
	_, err := FromRaw(mustRaw(t, doc))
	require.Error(t, err)
}
