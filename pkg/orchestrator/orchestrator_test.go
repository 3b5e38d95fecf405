package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inercia/statesqa/pkg/llm"
	"github.com/inercia/statesqa/pkg/lookup"
	"github.com/inercia/statesqa/pkg/providers/mock"
	"github.com/inercia/statesqa/pkg/store"
	"github.com/inercia/statesqa/pkg/tools"
)

const (
	alaskaCSV = "date,state,hospitalized,positive\n3/7/2021,AK,1234,5678\n3/7/2021,AL,0,499819\n"
	emptyCSV  = "date,state,hospitalized,positive\n"

	bothQuestion = "How many hospitalized people and positive cases did AK have on 3/7/2021?"
)

type fixture struct {
	client *mock.Client
	orch   *Orchestrator
	hook   *test.Hook
}

func newFixture(t *testing.T, csv string, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()

	db, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = store.Load(ctx, db, store.DialectSQLite, strings.NewReader(csv), store.DefaultTable)
	require.NoError(t, err)

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)

	client, err := mock.NewClient("gpt-35-turbo", "mock")
	require.NoError(t, err)

	svc := lookup.New(db, store.DialectSQLite, store.DefaultTable, logger)
	opts = append([]Option{WithLogger(logger)}, opts...)
	orch := New(client, tools.NewLookupRegistry(svc), tools.MustNewCatalog(), opts...)

	return &fixture{client: client, orch: orch, hook: hook}
}

func stateDateCall(t *testing.T, id, name, state, date string) llm.ToolCall {
	t.Helper()
	call, err := llm.NewToolCall(id, name, tools.StateDateArgs{StateAbbr: state, SpecificDate: date})
	require.NoError(t, err)
	return call
}

func toolMessages(msgs []llm.Message) []llm.Message {
	var out []llm.Message
	for _, m := range msgs {
		if m.Role == llm.RoleTool {
			out = append(out, m)
		}
	}
	return out
}

func TestAskBothTools(t *testing.T) {
	f := newFixture(t, alaskaCSV)

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	assert.Equal(t, StateDone, turn.State)
	assert.Equal(t, 2, turn.Requests)

	calls := f.client.GetCallLog()
	require.Len(t, calls, 2)

	phase1 := calls[0]
	assert.Len(t, phase1.Tools, 2)
	assert.Equal(t, llm.ToolChoiceAuto, phase1.ToolChoice)
	assert.Equal(t, llm.RoleSystem, phase1.Messages[0].Role)
	assert.Equal(t, bothQuestion, phase1.Messages[1].Content)

	phase2 := calls[1]
	assert.False(t, phase2.HasTools())
	assert.Empty(t, phase2.ToolChoice)
	require.NoError(t, llm.ValidateConversation(phase2.Messages))

	// the echoed assistant message precedes exactly two tool results, paired by call id
	results := toolMessages(phase2.Messages)
	require.Len(t, results, 2)
	echo := phase2.Messages[len(phase2.Messages)-3]
	assert.Equal(t, llm.RoleAssistant, echo.Role)
	require.Len(t, echo.ToolCalls, 2)
	for i, msg := range results {
		assert.Equal(t, echo.ToolCalls[i].ID, msg.ToolCallID)
		assert.Equal(t, echo.ToolCalls[i].Function.Name, msg.Name)
	}

	assert.JSONEq(t, `{"date":"3/7/2021","state":"AK","hospitalized":1234}`, results[0].Content)
	assert.JSONEq(t, `{"date":"3/7/2021","state":"AK","positive_cases":5678}`, results[1].Content)

	assert.Contains(t, turn.Answer, "1234")
	assert.Contains(t, turn.Answer, "5678")

	last := turn.Messages[len(turn.Messages)-1]
	assert.Equal(t, llm.RoleAssistant, last.Role)
	assert.Equal(t, turn.Answer, last.Content)

	require.Len(t, turn.Results, 2)
	hosp := turn.Results[tools.HospitalizedForStateOnDate.Name()]
	assert.Equal(t, lookup.StatusFound, hosp.Status)
	assert.Equal(t, int64(1234), hosp.Record["hospitalized"])

	require.Len(t, turn.Executed(), 2)
	assert.Empty(t, turn.Skipped())
	assert.Equal(t, tools.StateDateArgs{StateAbbr: "AK", SpecificDate: "3/7/2021"}, turn.Runs[0].Args)
	assert.Positive(t, turn.Usage.TotalTokens)
}

func TestAskWithoutTools(t *testing.T) {
	f := newFixture(t, alaskaCSV)
	f.client.WithSimpleResponse("Hello! Ask me about COVID figures.")

	turn, err := f.orch.Ask(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, 1, turn.Requests)
	assert.Len(t, f.client.GetCallLog(), 1)
	assert.Equal(t, "Hello! Ask me about COVID figures.", turn.Answer)
	assert.Equal(t, StateDone, turn.State)
	assert.Empty(t, turn.Runs)
	assert.Empty(t, turn.Results)
}

func TestAskUnknownToolDoesNotAbortSiblings(t *testing.T) {
	f := newFixture(t, alaskaCSV)
	f.client.WithToolCalls(
		stateDateCall(t, "call_unknown", "get_hospitalized_increase_for_state_on_date", "AK", "3/7/2021"),
		stateDateCall(t, "call_positive", tools.PositiveCasesForStateOnDate.Name(), "AK", "3/7/2021"),
	).WithSimpleResponse("There were 5678 positive cases.")

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	require.Len(t, turn.Runs, 2)
	assert.True(t, turn.Runs[0].Skipped)
	assert.Contains(t, turn.Runs[0].Reason, tools.ErrUnknownTool.Error())
	assert.False(t, turn.Runs[1].Skipped)
	assert.Equal(t, lookup.StatusFound, turn.Runs[1].Result.Status)

	phase2 := f.client.GetLastCall()
	require.NotNil(t, phase2)
	results := toolMessages(phase2.Messages)
	require.Len(t, results, 1)
	assert.Equal(t, "call_positive", results[0].ToolCallID)
	require.NoError(t, llm.ValidateConversation(phase2.Messages))

	assert.Equal(t, "There were 5678 positive cases.", turn.Answer)

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["call_id"] == "call_unknown" {
			warned = true
		}
	}
	assert.True(t, warned, "skipped directive is logged with its call id")
}

func TestAskMalformedArgumentsAreSkipped(t *testing.T) {
	f := newFixture(t, alaskaCSV)

	bad := llm.ToolCall{
		ID:       "call_bad",
		Type:     llm.ToolTypeFunction,
		Function: llm.ToolCallFunction{Name: tools.HospitalizedForStateOnDate.Name(), Arguments: `{"state_abbr":"AK"`},
	}
	missing := llm.ToolCall{
		ID:       "call_missing",
		Type:     llm.ToolTypeFunction,
		Function: llm.ToolCallFunction{Name: tools.HospitalizedForStateOnDate.Name(), Arguments: `{"state_abbr":"AK"}`},
	}
	f.client.WithToolCalls(bad, missing, stateDateCall(t, "call_ok", tools.HospitalizedForStateOnDate.Name(), "AK", "3/7/2021")).
		WithSimpleResponse("1234 people were hospitalized.")

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	skipped := turn.Skipped()
	require.Len(t, skipped, 2)
	for _, run := range skipped {
		assert.Contains(t, run.Reason, tools.ErrInvalidArguments.Error())
	}
	require.Len(t, turn.Executed(), 1)
	assert.Equal(t, "call_ok", turn.Executed()[0].CallID)
}

func TestAskAllDirectivesSkipped(t *testing.T) {
	f := newFixture(t, alaskaCSV)
	f.client.WithToolCalls(
		stateDateCall(t, "call_1", "drop_tables", "AK", "3/7/2021"),
	).WithSimpleResponse("I could not look that up.")

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	assert.Equal(t, 2, turn.Requests)
	assert.Equal(t, "I could not look that up.", turn.Answer)
	assert.Empty(t, turn.Results)

	phase2 := f.client.GetLastCall()
	require.NotNil(t, phase2)
	assert.Empty(t, toolMessages(phase2.Messages))
	echo := phase2.Messages[len(phase2.Messages)-1]
	assert.Equal(t, llm.RoleAssistant, echo.Role)
	assert.Empty(t, echo.ToolCalls)
}

func TestAskMissingAndDuplicateCallIDs(t *testing.T) {
	f := newFixture(t, alaskaCSV)
	name := tools.HospitalizedForStateOnDate.Name()
	f.client.WithToolCalls(
		stateDateCall(t, "", name, "AK", "3/7/2021"),
		stateDateCall(t, "call_1", name, "AK", "3/7/2021"),
		stateDateCall(t, "call_1", name, "AL", "3/7/2021"),
	).WithSimpleResponse("done")

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	require.Len(t, turn.Runs, 3)
	assert.True(t, turn.Runs[0].Skipped)
	assert.False(t, turn.Runs[1].Skipped)
	assert.True(t, turn.Runs[2].Skipped)
	require.NoError(t, llm.ValidateConversation(f.client.GetLastCall().Messages))
}

func TestAskLaterResultOverwritesSameTool(t *testing.T) {
	f := newFixture(t, alaskaCSV)
	name := tools.HospitalizedForStateOnDate.Name()
	f.client.WithToolCalls(
		stateDateCall(t, "call_ak", name, "AK", "3/7/2021"),
		stateDateCall(t, "call_al", name, "AL", "3/7/2021"),
	).WithSimpleResponse("done")

	turn, err := f.orch.Ask(context.Background(), "compare AK and AL on 3/7/2021")
	require.NoError(t, err)

	require.Len(t, turn.Executed(), 2)
	require.Len(t, turn.Results, 1)
	assert.Equal(t, "AL", turn.Results[name].Record["state"])
	assert.Len(t, toolMessages(f.client.GetLastCall().Messages), 2)
}

func TestAskEmptyStore(t *testing.T) {
	f := newFixture(t, emptyCSV)

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	assert.Equal(t, StateDone, turn.State)
	for _, res := range turn.Results {
		assert.Equal(t, lookup.NotFound, res)
	}
	for _, msg := range toolMessages(turn.Messages) {
		assert.JSONEq(t, `{"status":"not_found","message":"no data available"}`, msg.Content)
	}
	assert.Contains(t, turn.Answer, "no data available")
}

func TestAskResultSummary(t *testing.T) {
	f := newFixture(t, emptyCSV, WithResultSummary(true))
	f.client.WithToolCalls(
		stateDateCall(t, "call_h", tools.HospitalizedForStateOnDate.Name(), "AK", "3/7/2021"),
		stateDateCall(t, "call_p", tools.PositiveCasesForStateOnDate.Name(), "AK", "3/7/2021"),
	).WithSimpleResponse("Hospitalized: not available. Positive cases: not available.")

	turn, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	phase2 := f.client.GetLastCall()
	require.NotNil(t, phase2)
	digest := phase2.Messages[len(phase2.Messages)-1]
	assert.Equal(t, llm.RoleAssistant, digest.Role)
	assert.Contains(t, digest.Content, tools.Placeholder)
	assert.Contains(t, turn.Answer, tools.Placeholder)
}

func TestAskStorageFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	db, err := store.Open(ctx, store.Config{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)
	defer db.Close()

	client, err := mock.NewClient("m", "mock")
	require.NoError(t, err)
	svc := lookup.New(db, store.DialectSQLite, "no_such_table", nil)
	orch := New(client, tools.NewLookupRegistry(svc), tools.MustNewCatalog())

	turn, err := orch.Ask(ctx, bothQuestion)
	require.NoError(t, err)

	for _, run := range turn.Executed() {
		assert.Equal(t, lookup.StatusFailed, run.Result.Status)
	}
	for _, msg := range toolMessages(turn.Messages) {
		assert.NotContains(t, msg.Content, "no_such_table")
	}
}

func TestAskPhaseErrors(t *testing.T) {
	t.Run("phase 1", func(t *testing.T) {
		f := newFixture(t, alaskaCSV)
		f.client.WithError(llm.ErrorCodeRateLimit, "slow down", llm.ErrorCodeRateLimit)

		turn, err := f.orch.Ask(context.Background(), bothQuestion)
		require.Error(t, err)
		assert.Nil(t, turn)
		assert.ErrorIs(t, err, ErrPhase1)
		assert.NotErrorIs(t, err, ErrPhase2)
		assert.True(t, llm.IsErrorCode(err, llm.ErrorCodeRateLimit))

		var phaseErr *PhaseError
		require.ErrorAs(t, err, &phaseErr)
		assert.Equal(t, Phase1, phaseErr.Phase)
		assert.Len(t, f.client.GetCallLog(), 1, "no retries")
	})

	t.Run("phase 2", func(t *testing.T) {
		f := newFixture(t, alaskaCSV)
		f.client.WithToolCalls(stateDateCall(t, "call_1", tools.HospitalizedForStateOnDate.Name(), "AK", "3/7/2021")).
			AddError(errors.New("connection reset"))

		_, err := f.orch.Ask(context.Background(), bothQuestion)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrPhase2)
		assert.NotErrorIs(t, err, ErrPhase1)
		assert.Contains(t, err.Error(), "connection reset")
		assert.Len(t, f.client.GetCallLog(), 2)
	})

	t.Run("empty response", func(t *testing.T) {
		f := newFixture(t, alaskaCSV)
		f.client.AddResponse(llm.ChatResponse{ID: "empty"})

		_, err := f.orch.Ask(context.Background(), bothQuestion)
		assert.ErrorIs(t, err, ErrPhase1)
		assert.True(t, llm.IsErrorCode(err, llm.ErrorCodeEmptyResponse))
	})

	t.Run("canceled context", func(t *testing.T) {
		f := newFixture(t, alaskaCSV)
		f.client.WithLatency(time.Minute)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.orch.Ask(ctx, bothQuestion)
		assert.ErrorIs(t, err, ErrPhase1)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestAskEmptyQuestion(t *testing.T) {
	f := newFixture(t, alaskaCSV)

	_, err := f.orch.Ask(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuestion)
	assert.Empty(t, f.client.GetCallLog())
}

func TestAskOptions(t *testing.T) {
	f := newFixture(t, alaskaCSV,
		WithSystemPrompt(llm.PromptTemplate{}),
		WithModel("gpt-4o-mini"),
		WithTemperature(0),
		WithMaxTokens(256),
	)
	f.client.WithSimpleResponse("ok")

	_, err := f.orch.Ask(context.Background(), "hi")
	require.NoError(t, err)

	req := f.client.GetLastCall()
	require.NotNil(t, req)
	require.Len(t, req.Messages, 1)
	assert.Equal(t, llm.RoleUser, req.Messages[0].Role)
	assert.Equal(t, "gpt-4o-mini", req.Model)
	require.NotNil(t, req.Temperature)
	assert.Zero(t, *req.Temperature)
	require.NotNil(t, req.MaxTokens)
	assert.Equal(t, 256, *req.MaxTokens)
}

func TestAskBadSystemPrompt(t *testing.T) {
	f := newFixture(t, alaskaCSV, WithSystemPrompt(llm.NewPromptTemplate("{{ .Missing }}")))

	_, err := f.orch.Ask(context.Background(), "hi")
	require.Error(t, err)
	assert.Empty(t, f.client.GetCallLog())
}

func TestToolExecutionLogging(t *testing.T) {
	f := newFixture(t, alaskaCSV)

	_, err := f.orch.Ask(context.Background(), bothQuestion)
	require.NoError(t, err)

	var executed []*logrus.Entry
	for _, e := range f.hook.AllEntries() {
		if e.Message == "tool executed" {
			executed = append(executed, e)
		}
	}
	require.Len(t, executed, 2)
	for _, e := range executed {
		assert.Equal(t, logrus.InfoLevel, e.Level)
		assert.Contains(t, e.Data, "tool")
		assert.Contains(t, e.Data, "call_id")
		assert.Contains(t, e.Data, "duration")
		assert.Equal(t, "found", e.Data["status"])
		assert.Contains(t, e.Data, "turn")
	}
}

func TestPhaseErrorIs(t *testing.T) {
	t.Parallel()

	inner := errors.New("boom")
	err := error(&PhaseError{Phase: Phase2, Err: inner})

	assert.ErrorIs(t, err, ErrPhase2)
	assert.ErrorIs(t, err, inner)
	assert.NotErrorIs(t, err, ErrPhase1)
	assert.Equal(t, "phase 2 model request failed: boom", err.Error())
}

func TestStateString(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "awaiting_tool_calls", StateAwaitingToolCalls.String())
	assert.Equal(t, "awaiting_final_answer", StateAwaitingFinalAnswer.String())
	assert.Equal(t, "done", StateDone.String())
}
