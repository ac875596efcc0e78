package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromCodeBlock(t *testing.T) {
	response := "Here is the verdict:\n```json\n{\"action\": \"none\", \"reason\": \"consistent\"}\n```\nDone."

	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "none", "reason": "consistent"}`, jsonStr)
}

func TestExtractJSONFromUntaggedCodeBlock(t *testing.T) {
	response := "```\n{\"key\": \"value\"}\n```"

	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"key": "value"}`, jsonStr)
}

func TestExtractJSONSkipsOtherLanguageBlocks(t *testing.T) {
	response := "```python\n{'not': 'json'}\n```\nBut also: {\"action\": \"interrupt\"}"

	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"action": "interrupt"}`, jsonStr)
}

func TestExtractJSONRawObject(t *testing.T) {
	response := `The model says {"a": {"nested": [1, 2, 3]}} and nothing else.`

	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `{"a": {"nested": [1, 2, 3]}}`, jsonStr)
}

func TestExtractJSONBracesInsideStrings(t *testing.T) {
	response := `{"text": "a } brace and a \" quote inside"}`

	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.Equal(t, response, jsonStr)
}

func TestExtractJSONArray(t *testing.T) {
	response := `Results: [1, 2, {"x": 3}]`

	jsonStr, err := ExtractJSON(response)
	require.NoError(t, err)
	assert.JSONEq(t, `[1, 2, {"x": 3}]`, jsonStr)
}

func TestExtractJSONNoJSON(t *testing.T) {
	_, err := ExtractJSON("plain prose with no structure")
	assert.Error(t, err)

	_, err = ExtractJSON("{unbalanced")
	assert.Error(t, err)
}

func TestExtractJSONAs(t *testing.T) {
	type verdict struct {
		Action string `json:"action"`
		Reason string `json:"reason"`
	}

	v, err := ExtractJSONAs[verdict]("```json\n{\"action\": \"interrupt\", \"reason\": \"contradiction\"}\n```")
	require.NoError(t, err)
	assert.Equal(t, "interrupt", v.Action)
	assert.Equal(t, "contradiction", v.Reason)

	_, err = ExtractJSONAs[verdict]("no json here")
	assert.Error(t, err)
}
