package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLocateResultFenced(t *testing.T) {
	raw := "```json\n{\n  // two dogs\n  \"objects\": [\n    {\"label\": \"dog\", \"confidence\": 0.9, \"box\": {\"x\": 0.1, \"y\": 0.2, \"w\": 0.3, \"h\": 0.4}},\n    {\"label\": \"dog\", \"confidence\": 0.6, \"box\": {\"x\": 0.5, \"y\": 0.5, \"w\": 0.2, \"h\": 0.2}},\n  ]\n}\n```"

	result := ParseLocateResult(raw)
	require.Len(t, result.Objects, 2)
	assert.Equal(t, "dog", result.Objects[0].Label)
	assert.InDelta(t, 0.3, result.Objects[0].Box.W, 1e-9)
	assert.InDelta(t, 0.6, result.Objects[1].Confidence, 1e-9)
}

func TestParseLocateResultGarbage(t *testing.T) {
	assert.Empty(t, ParseLocateResult("I cannot see any dogs here.").Objects)
	assert.Empty(t, ParseLocateResult("{not json").Objects)
	assert.Empty(t, ParseLocateResult("").Objects)
}

func TestSanitizeModelJSON(t *testing.T) {
	in := "Sure! /* note */ {\"a\": [1, 2,], } trailing"
	assert.Equal(t, "{\"a\": [1, 2] }", SanitizeModelJSON(in))
}
