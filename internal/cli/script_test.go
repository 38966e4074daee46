package cli

import (
	"testing"

	"github.com/aretw0/scenestack/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseScript(t *testing.T) {
	script, err := ParseScript([]byte(`
name: sample
scenes:
  title: {bgm: title}
  ask: {dialog: true, answer: 3}
steps:
  - transition: title
  - dialog: ask
    arg: hi
    expect_result: 3
  - terminate_last: true
    clear_history: true
`))
	require.NoError(t, err)
	assert.Equal(t, "sample", script.Name)
	assert.Equal(t, []domain.SceneType{"ask", "title"}, script.SceneTypes())
	assert.True(t, script.Scenes["ask"].Dialog)
	assert.False(t, script.needsMasterData())

	actions := make([]string, len(script.Steps))
	for i, s := range script.Steps {
		actions[i] = s.Action()
	}
	assert.Equal(t, []string{"transition", "dialog", "terminate_last"}, actions)
	assert.Equal(t, "transition title [default]", script.Steps[0].Describe())
	assert.Equal(t, "terminate last", script.Steps[2].Describe())
}

func TestParseScript_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{"No scenes", "steps: []", "no scenes"},
		{"No action", "scenes: {a: {}}\nsteps: [{arg: 1}]", "step 1: no action"},
		{"Two actions", "scenes: {a: {}}\nsteps: [{transition: a, back: true}]", "multiple actions"},
		{"Undeclared scene", "scenes: {a: {}}\nsteps: [{transition: b}]", "undeclared scene b"},
		{"Bad ops", "scenes: {a: {}}\nsteps: [{transition: a, ops: fly}]", "invalid ops"},
		{"Dialog with engine scene", "scenes: {a: {dialog: true, engine_scene: x}}", "dialogs cannot"},
		{"Malformed", "scenes: [", "failed to parse"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseScript([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
