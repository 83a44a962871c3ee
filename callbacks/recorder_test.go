package callbacks

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/toolcall"
	"github.com/effective-security/toolagent/tools"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAssistant struct{ name string }

func (a *testAssistant) Name() string   { return a.name }
func (a *testAssistant) ChatID() string { return "chatid" }

type testLLM struct{}

func (m *testLLM) GetProviderType() llms.ProviderType { return llms.ProviderDeepSeek }
func (m *testLLM) GetName() string                    { return "test-model" }
func (m *testLLM) GenerateContent(context.Context, []llms.Message, ...llms.CallOption) (*llms.ContentResponse, error) {
	return nil, nil
}

func newTestChatContext() (context.Context, chatmodel.ChatContext) {
	chatCtx := chatmodel.NewChatContext("chatid")
	ctx := chatmodel.WithChatContext(context.Background(), chatCtx)
	return ctx, chatCtx
}

func TestRecorder_Run(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(ModeVerbose)
	ctx, cctx := newTestChatContext()

	ast := &testAssistant{name: "A1"}
	tool := &tools.Descriptor{ID: "calculator:add", Name: "add"}
	params := map[string]any{"a": 5, "b": 10}
	resp := &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{
			Content: "Answer 1",
			GenerationInfo: map[string]any{
				"InputTokens":  int64(10),
				"OutputTokens": int64(5),
				"TotalTokens":  int64(15),
			},
		}},
	}

	rec.OnAssistantStart(ctx, ast, "input")
	require.NotNil(t, rec.getRun(ctx))

	rec.OnAssistantLLMCallStart(ctx, ast, &testLLM{}, []llms.Message{llms.UserMessage("foo")})
	rec.OnAssistantLLMCallEnd(ctx, ast, &testLLM{}, resp)
	rec.OnToolCallFound(ctx, ast, &toolcall.Call{Tool: "add", Strategy: "fenced_json"})
	rec.OnToolStart(ctx, ast, tool, params)
	rec.OnToolEnd(ctx, ast, tool, params, 15)
	rec.OnToolStart(ctx, ast, tool, params)
	rec.OnToolError(ctx, ast, tool, params, errors.New("terr"))
	rec.OnToolNotFound(ctx, ast, "multiply")
	rec.OnAssistantEnd(ctx, ast, "input", "final", nil)

	// the run is moved to the completed runs
	assert.Nil(t, rec.getRun(ctx))

	stats, output := rec.LastRun(cctx.GetChatID())
	require.NotNil(t, stats)
	assert.Equal(t, "chatid", stats.ChatID)
	assert.Equal(t, cctx.RunID(), stats.RunID)
	assert.False(t, stats.Failed)
	assert.Equal(t, uint32(1), stats.LLMCalls)
	assert.Equal(t, uint32(1), stats.TotalMessages)
	assert.Equal(t, uint64(7), stats.LLMBytesOut)
	assert.Equal(t, uint64(8), stats.LLMBytesIn)
	assert.Equal(t, uint64(10), stats.LLMInputTokens)
	assert.Equal(t, uint64(5), stats.LLMOutputTokens)
	assert.Equal(t, uint64(15), stats.LLMTotalTokens)
	assert.Equal(t, uint32(1), stats.ToolCallsFound)
	assert.Equal(t, uint32(2), stats.ToolsCalls)
	assert.Equal(t, uint32(1), stats.ToolsCallsSucceeded)
	assert.Equal(t, uint32(1), stats.ToolsCallsFailed)
	assert.Equal(t, uint32(1), stats.ToolNotFound)

	out := string(output)
	assert.Contains(t, out, "*** Run Started ***")
	assert.Contains(t, out, "A1 Input: input")
	assert.Contains(t, out, "*** LLM Call *** test-model model, 1 messages")
	assert.Contains(t, out, "Answer 1")
	assert.Contains(t, out, "*** Tool Call Found *** add fenced_json")
	assert.Contains(t, out, "A1 add Output: 15")
	assert.Contains(t, out, "*** Tool Error *** terr")
	assert.Contains(t, out, "*** Tool Not Found *** multiply")
	assert.Contains(t, out, "A1 Output: final")
	assert.Contains(t, out, "Tool calls: 2, Failed: 1, Not Found: 1")
	assert.Contains(t, out, "*** Run Ended.")
}

func TestRecorder_Error(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(ModeDefault)
	ctx, cctx := newTestChatContext()
	ast := &testAssistant{name: "A1"}

	rec.OnAssistantStart(ctx, ast, "input")
	rec.OnAssistantError(ctx, ast, "input", errors.New("fail"), nil)

	stats, output := rec.LastRun(cctx.GetChatID())
	require.NotNil(t, stats)
	assert.True(t, stats.Failed)
	assert.Contains(t, string(output), "*** Error *** fail")
}

func TestRecorder_NoRun(t *testing.T) {
	t.Parallel()
	rec := NewRecorder(ModeDefault)
	ast := &testAssistant{name: "A1"}
	tool := &tools.Descriptor{Name: "add"}

	// no chat context at all
	bctx := context.Background()
	assert.Nil(t, rec.getRun(bctx))
	rec.OnAssistantStart(bctx, ast, "input")
	assert.Empty(t, rec.runs)

	// chat context without a started run
	ctx, cctx := newTestChatContext()
	assert.Nil(t, rec.getRun(ctx))
	rec.OnAssistantLLMCallStart(ctx, ast, &testLLM{}, nil)
	rec.OnAssistantLLMCallEnd(ctx, ast, &testLLM{}, nil)
	rec.OnToolCallFound(ctx, ast, &toolcall.Call{Tool: "add"})
	rec.OnToolStart(ctx, ast, tool, nil)
	rec.OnToolEnd(ctx, ast, tool, nil, 1)
	rec.OnToolError(ctx, ast, tool, nil, errors.New("terr"))
	rec.OnToolNotFound(ctx, ast, "T3")
	rec.OnAssistantEnd(ctx, ast, "input", "output", nil)
	rec.OnAssistantError(ctx, ast, "input", errors.New("fail"), nil)

	stats, output := rec.LastRun(cctx.GetChatID())
	assert.Nil(t, stats)
	assert.Nil(t, output)
}

func Test_run_print_format(t *testing.T) {
	_, chatCtx := newTestChatContext()
	r := &run{chatCtx: chatCtx}
	oldTimeFn := TimeNowFn
	TimeNowFn = func() time.Time { return time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC) }
	defer func() { TimeNowFn = oldTimeFn }()

	r.print("hello", "again")
	lines := strings.Split(r.w.String(), "\n")
	require.NotEmpty(t, lines[0])
	assert.Equal(t, "2024-01-01 12:00:00 "+chatCtx.GetChatID()+"."+chatCtx.RunID()+" hello again", lines[0])
}
