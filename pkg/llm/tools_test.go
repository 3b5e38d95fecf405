package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupArgs struct {
	State string `json:"state"`
	Date  string `json:"date"`
}

func TestDecodeArguments(t *testing.T) {
	tests := []struct {
		name      string
		arguments string
		want      lookupArgs
		wantErr   bool
	}{
		{name: "valid", arguments: `{"state":"AK","date":"3/7/2021"}`, want: lookupArgs{State: "AK", Date: "3/7/2021"}},
		{name: "whitespace", arguments: "  {\"state\":\"NY\"}\n", want: lookupArgs{State: "NY"}},
		{name: "empty", arguments: "", wantErr: true},
		{name: "array", arguments: `["AK"]`, wantErr: true},
		{name: "truncated", arguments: `{"state":"AK"`, wantErr: true},
		{name: "unknown field", arguments: `{"state":"AK","region":"west"}`, wantErr: true},
		{name: "trailing data", arguments: `{"state":"AK"}{"state":"NY"}`, wantErr: true},
		{name: "wrong type", arguments: `{"state":12}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var got lookupArgs
			err := ToolCallFunction{Name: "lookup", Arguments: tt.arguments}.DecodeArguments(&got)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewToolCallRoundTrip(t *testing.T) {
	args := map[string]any{"state_abbr": "AK", "specific_date": "3/7/2021"}

	tc, err := NewToolCall("call_1", "get_positive_cases_for_state_on_date", args)
	require.NoError(t, err)
	assert.Equal(t, ToolTypeFunction, tc.Type)

	parsed, err := tc.Function.ArgumentsMap()
	require.NoError(t, err)
	assert.Equal(t, args, parsed)
}

func TestArgumentsMapRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{"null", "[]", `"AK"`, "{"} {
		_, err := ToolCallFunction{Name: "fn", Arguments: raw}.ArgumentsMap()
		assert.Error(t, err, raw)
	}
}

func TestNewFunctionTool(t *testing.T) {
	tool := NewFunctionTool("fn", "does things", map[string]any{"type": "object"})
	assert.Equal(t, ToolTypeFunction, tool.Type)
	assert.Equal(t, "fn", tool.Function.Name)
	assert.Equal(t, "does things", tool.Function.Description)
}
