package tools

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/statesqa/pkg/llm"
	"github.com/inercia/statesqa/pkg/lookup"
)

func TestToolIDNames(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "get_hospitalized_for_state_on_date", HospitalizedForStateOnDate.Name())
	assert.Equal(t, "get_positive_cases_for_state_on_date", PositiveCasesForStateOnDate.String())

	for _, id := range AllToolIDs {
		got, err := ParseToolID(id.Name())
		require.NoError(t, err)
		assert.Equal(t, id, got)
	}

	_, err := ParseToolID("get_hospitalized_increase_for_state_on_date")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestCatalogSchema(t *testing.T) {
	t.Parallel()

	catalog, err := NewCatalog()
	require.NoError(t, err)

	tools := catalog.Tools()
	require.Len(t, tools, 2)
	assert.Equal(t, HospitalizedForStateOnDate.Name(), tools[0].Function.Name)
	assert.Equal(t, PositiveCasesForStateOnDate.Name(), tools[1].Function.Name)

	for _, tool := range tools {
		assert.Equal(t, llm.ToolTypeFunction, tool.Type)
		assert.NotEmpty(t, tool.Function.Description)

		schema, ok := tool.Function.Parameters.(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "object", schema["type"])
		assert.ElementsMatch(t, []string{"state_abbr", "specific_date"}, llm.SchemaRequired(schema))

		props := llm.SchemaProperties(schema)
		require.Len(t, props, 2)
		for _, name := range []string{"state_abbr", "specific_date"} {
			prop, ok := props[name].(map[string]any)
			require.True(t, ok, name)
			assert.Equal(t, "string", prop["type"])
			assert.NotEmpty(t, prop["description"])
		}
	}

	d, ok := catalog.Lookup("get_positive_cases_for_state_on_date")
	require.True(t, ok)
	assert.Equal(t, PositiveCasesForStateOnDate, d.ID)
	assert.Contains(t, d.Description, "positive cases")

	_, ok = catalog.Lookup("nope")
	assert.False(t, ok)
}

func TestCatalogIsImmutable(t *testing.T) {
	t.Parallel()

	catalog := MustNewCatalog()
	tools := catalog.Tools()
	tools[0].Function.Name = "changed"
	descriptors := catalog.Descriptors()
	descriptors[1].Name = "changed"

	assert.Equal(t, HospitalizedForStateOnDate.Name(), catalog.Tools()[0].Function.Name)
	assert.Equal(t, PositiveCasesForStateOnDate.Name(), catalog.Descriptors()[1].Name)
}

func TestParseArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		payload string
		want    StateDateArgs
		wantErr bool
	}{
		{name: "valid", payload: `{"state_abbr":"AK","specific_date":"3/7/2021"}`, want: StateDateArgs{StateAbbr: "AK", SpecificDate: "3/7/2021"}},
		{name: "whitespace", payload: "  {\"specific_date\":\"3/7/2021\",\"state_abbr\":\"AK\"}\n", want: StateDateArgs{StateAbbr: "AK", SpecificDate: "3/7/2021"}},
		{name: "missing date", payload: `{"state_abbr":"AK"}`, wantErr: true},
		{name: "blank state", payload: `{"state_abbr":" ","specific_date":"3/7/2021"}`, wantErr: true},
		{name: "unknown field", payload: `{"state_abbr":"AK","specific_date":"3/7/2021","county":"x"}`, wantErr: true},
		{name: "wrong type", payload: `{"state_abbr":1,"specific_date":"3/7/2021"}`, wantErr: true},
		{name: "array", payload: `["AK","3/7/2021"]`, wantErr: true},
		{name: "not json", payload: `state_abbr=AK`, wantErr: true},
		{name: "empty", payload: ``, wantErr: true},
		{name: "trailing data", payload: `{"state_abbr":"AK","specific_date":"3/7/2021"}{}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := ParseArgs(llm.ToolCallFunction{Name: "fn", Arguments: tt.payload})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidArguments)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestArgsRoundTrip(t *testing.T) {
	t.Parallel()

	want := StateDateArgs{StateAbbr: "AK", SpecificDate: "3/7/2021"}
	call, err := llm.NewToolCall("call_1", HospitalizedForStateOnDate.Name(), want)
	require.NoError(t, err)

	got, err := ParseArgs(call.Function)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	var seen StateDateArgs
	registry := NewRegistry(map[ToolID]Handler{
		HospitalizedForStateOnDate: func(_ context.Context, args StateDateArgs) lookup.Result {
			seen = args
			return lookup.Result{Status: lookup.StatusFound, Record: map[string]any{"hospitalized": 1}}
		},
		ToolID(99): func(context.Context, StateDateArgs) lookup.Result { return lookup.NotFound },
	})

	id, handler, err := registry.Resolve("get_hospitalized_for_state_on_date")
	require.NoError(t, err)
	assert.Equal(t, HospitalizedForStateOnDate, id)
	res := handler(context.Background(), StateDateArgs{StateAbbr: "AK", SpecificDate: "3/7/2021"})
	assert.Equal(t, lookup.StatusFound, res.Status)
	assert.Equal(t, "AK", seen.StateAbbr)

	// in the enum but unbound
	_, _, err = registry.Resolve("get_positive_cases_for_state_on_date")
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, _, err = registry.Resolve("tool(99)")
	assert.ErrorIs(t, err, ErrUnknownTool)

	_, _, err = registry.Resolve("drop_table")
	assert.ErrorIs(t, err, ErrUnknownTool)
}

func TestRender(t *testing.T) {
	t.Parallel()

	found := lookup.Result{
		Status: lookup.StatusFound,
		Record: map[string]any{"date": "3/7/2021", "state": "AK", "hospitalized": int64(1234)},
	}
	assert.JSONEq(t, `{"date":"3/7/2021","state":"AK","hospitalized":1234}`, Render(found))

	for _, res := range []lookup.Result{
		lookup.NotFound,
		{Status: lookup.StatusFailed, Err: errors.New("no such table: secret_table")},
	} {
		out := Render(res)
		assert.NotContains(t, out, "secret_table")

		var payload map[string]string
		require.NoError(t, json.Unmarshal([]byte(out), &payload))
		assert.Equal(t, "not_found", payload["status"])
	}
}

func TestDefaultSystemPrompt(t *testing.T) {
	t.Parallel()

	prompt, err := RenderSystemPrompt(DefaultSystemPrompt)
	require.NoError(t, err)
	assert.Contains(t, prompt, `"not available"`)
	assert.Contains(t, prompt, "M/D/YYYY")
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Empty(t, Summarize(nil))

	got := Summarize(map[string]lookup.Result{
		HospitalizedForStateOnDate.Name(): {
			Status: lookup.StatusFound,
			Record: map[string]any{"date": "3/7/2021", "state": "AK", "hospitalized": int64(1234)},
		},
		PositiveCasesForStateOnDate.Name(): lookup.NotFound,
	})
	assert.Equal(t, "On 3/7/2021, there were 1234 hospitalized people in AK. "+
		"The number of positive cases in the specified state on the specified date was not available.", got)
}
