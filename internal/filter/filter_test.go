package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyEmptyExpressionIsIdentity(t *testing.T) {
	data := map[string]any{"id": "t1"}
	got, err := Apply(data, "")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestApplySelectsField(t *testing.T) {
	data := map[string]any{"name": "Ada", "phone": "+15550100"}
	got, err := Apply(data, ".name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", got)
}

func TestApplyMultipleResults(t *testing.T) {
	data := []any{
		map[string]any{"id": "a"},
		map[string]any{"id": "b"},
	}
	got, err := Apply(data, ".[].id")
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, got)
}

func TestApplyInvalidExpression(t *testing.T) {
	_, err := Apply(map[string]any{}, ".[=")
	assert.Error(t, err)
}

func TestNormalizeExpressionUnescapesBang(t *testing.T) {
	assert.Equal(t, `.channel != "web"`, NormalizeExpression(`.channel \!= "web"`))
}

func TestApplyToJSON(t *testing.T) {
	out, err := ApplyToJSON([]byte(`{"items":[{"id":"x"}]}`), ".items | length")
	require.NoError(t, err)
	assert.JSONEq(t, `1`, string(out))
}

func TestApplyToJSONRejectsBadInput(t *testing.T) {
	_, err := ApplyToJSON([]byte(`{`), ".")
	assert.Error(t, err)
}
