package callbacks

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/effective-security/toolagent/assistants"
	"github.com/effective-security/toolagent/chatmodel"
	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/effective-security/toolagent/toolcall"
	"github.com/effective-security/toolagent/tools"
)

var TimeNowFn = time.Now

// RunStats is the summary of one conversation turn
type RunStats struct {
	ChatID string
	RunID  string

	Duration            time.Duration
	Failed              bool
	TotalMessages       uint32
	LLMCalls            uint32
	LLMBytesOut         uint64
	LLMBytesIn          uint64
	LLMInputTokens      uint64
	LLMOutputTokens     uint64
	LLMTotalTokens      uint64
	ToolCallsFound      uint32
	ToolsCalls          uint32
	ToolsCallsSucceeded uint32
	ToolsCallsFailed    uint32
	ToolNotFound        uint32
}

// Recorder collects the statistics and a transcript of each turn.
// The run starts with OnAssistantStart and ends with OnAssistantEnd
// or OnAssistantError, the result is available with LastRun.
type Recorder struct {
	runs map[string]*run
	last map[string]*run
	mode Mode
	lock sync.Mutex
}

func NewRecorder(mode Mode) *Recorder {
	return &Recorder{
		runs: make(map[string]*run),
		last: make(map[string]*run),
		mode: mode,
	}
}

// LastRun returns the stats and the transcript of the last completed turn
// in the chat, or nil if no turn completed.
func (l *Recorder) LastRun(chatID string) (*RunStats, []byte) {
	l.lock.Lock()
	r := l.last[chatID]
	l.lock.Unlock()
	if r == nil {
		return nil, nil
	}

	r.lock.Lock()
	defer r.lock.Unlock()
	stats := r.stats
	return &stats, bytes.Clone(r.w.Bytes())
}

func (l *Recorder) startRun(ctx context.Context) *run {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	r := &run{
		stats: RunStats{
			ChatID: chatCtx.GetChatID(),
			RunID:  chatCtx.RunID(),
		},
		chatCtx: chatCtx,
		started: TimeNowFn(),
	}

	l.lock.Lock()
	l.runs[chatCtx.GetChatID()] = r
	l.lock.Unlock()

	r.print("*** Run Started ***")
	return r
}

func (l *Recorder) endRun(ctx context.Context, failed bool) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	r.lock.Lock()
	r.stats.Duration = TimeNowFn().Sub(r.started)
	r.stats.Failed = failed
	stats := r.stats
	r.lock.Unlock()

	r.print(fmt.Sprintf("Tool calls: %d, Failed: %d, Not Found: %d",
		stats.ToolsCalls,
		stats.ToolsCallsFailed,
		stats.ToolNotFound,
	))
	r.print(fmt.Sprintf("LLM calls: %d, Messages: %d, Bytes Out: %d, Bytes In: %d, Input Tokens: %d, Output Tokens: %d, Total Tokens: %d",
		stats.LLMCalls,
		stats.TotalMessages,
		stats.LLMBytesOut,
		stats.LLMBytesIn,
		stats.LLMInputTokens,
		stats.LLMOutputTokens,
		stats.LLMTotalTokens,
	))
	r.print(fmt.Sprintf("*** Run Ended. Duration: %s ***", stats.Duration))

	chatID := r.chatCtx.GetChatID()
	l.lock.Lock()
	delete(l.runs, chatID)
	l.last[chatID] = r
	l.lock.Unlock()
}

func (l *Recorder) getRun(ctx context.Context) *run {
	chatCtx := chatmodel.GetChatContext(ctx)
	if chatCtx == nil {
		return nil
	}

	l.lock.Lock()
	defer l.lock.Unlock()
	return l.runs[chatCtx.GetChatID()]
}

func (l *Recorder) OnAssistantStart(ctx context.Context, agent assistants.IAssistant, input string) {
	r := l.startRun(ctx)
	if r == nil {
		return
	}
	r.print(agent.Name(), "Input:", input)
}

func (l *Recorder) OnAssistantEnd(ctx context.Context, agent assistants.IAssistant, input string, output string, messages []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	if l.mode == ModeVerbose {
		r.print(agent.Name(), "Output:", output)
	}
	l.endRun(ctx, false)
}

func (l *Recorder) OnAssistantError(ctx context.Context, agent assistants.IAssistant, input string, err error, messages []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	r.print(agent.Name(), "*** Error ***", err.Error())
	l.endRun(ctx, true)
}

func (l *Recorder) OnAssistantLLMCallStart(ctx context.Context, agent assistants.IAssistant, llm llms.Model, payload []llms.Message) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	count := uint32(len(payload))
	atomic.AddUint64(&r.stats.LLMBytesOut, llmutils.CountMessagesContentSize(payload))
	atomic.AddUint32(&r.stats.LLMCalls, 1)
	atomic.AddUint32(&r.stats.TotalMessages, count)

	r.print(agent.Name(), "*** LLM Call ***", fmt.Sprintf("%s model, %d messages", llm.GetName(), count))
}

func (l *Recorder) OnAssistantLLMCallEnd(ctx context.Context, agent assistants.IAssistant, llm llms.Model, resp *llms.ContentResponse) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}

	tokensIn, tokensOut, tokensTotal := llmutils.CountTokens(resp)
	atomic.AddUint64(&r.stats.LLMBytesIn, llmutils.CountResponseContentSize(resp))
	atomic.AddUint64(&r.stats.LLMInputTokens, uint64(tokensIn))
	atomic.AddUint64(&r.stats.LLMOutputTokens, uint64(tokensOut))
	atomic.AddUint64(&r.stats.LLMTotalTokens, uint64(tokensTotal))

	r.print(agent.Name(), "*** LLM Call End ***", fmt.Sprintf("%s model, %d input tokens, %d output tokens, %d total tokens", llm.GetName(), tokensIn, tokensOut, tokensTotal))
	if l.mode == ModeVerbose {
		if text, err := resp.Text(); err == nil {
			r.print(text)
		}
	}
}

func (l *Recorder) OnToolCallFound(ctx context.Context, agent assistants.IAssistant, call *toolcall.Call) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolCallsFound, 1)
	r.print(agent.Name(), "*** Tool Call Found ***", call.Tool, call.Strategy)
}

func (l *Recorder) OnToolNotFound(ctx context.Context, agent assistants.IAssistant, tool string) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolNotFound, 1)
	r.print(agent.Name(), "*** Tool Not Found ***", tool)
}

func (l *Recorder) OnToolStart(ctx context.Context, agent assistants.IAssistant, tool *tools.Descriptor, params map[string]any) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolsCalls, 1)
	r.print(agent.Name(), tool.Name, "*** Tool Start ***")
	r.print(agent.Name(), tool.Name, "Input:", llmutils.ToJSON(params))
}

func (l *Recorder) OnToolEnd(ctx context.Context, agent assistants.IAssistant, tool *tools.Descriptor, params map[string]any, result float64) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolsCallsSucceeded, 1)
	if l.mode == ModeVerbose {
		r.print(agent.Name(), tool.Name, "Output:", llmutils.FormatNumber(result))
	}
	r.print(agent.Name(), tool.Name, "*** Tool End ***")
}

func (l *Recorder) OnToolError(ctx context.Context, agent assistants.IAssistant, tool *tools.Descriptor, params map[string]any, err error) {
	r := l.getRun(ctx)
	if r == nil {
		return
	}
	atomic.AddUint32(&r.stats.ToolsCallsFailed, 1)
	r.print(agent.Name(), tool.Name, "*** Tool Error ***", err.Error())
}

type run struct {
	chatCtx chatmodel.ChatContext
	w       bytes.Buffer
	started time.Time
	lock    sync.Mutex
	stats   RunStats
}

// print writes the entries to the run's output.
// The entries are written in the following format:
// [timestamp chatID.runID] entry entry\n
func (r *run) print(entries ...string) {
	r.lock.Lock()
	defer r.lock.Unlock()

	ts := TimeNowFn().Format("2006-01-02 15:04:05")

	_, _ = r.w.WriteString(ts)
	_, _ = r.w.WriteString(" ")
	_, _ = r.w.WriteString(r.chatCtx.GetChatID())
	_, _ = r.w.WriteString(".")
	_, _ = r.w.WriteString(r.chatCtx.RunID())
	_, _ = r.w.WriteString(" ")

	for i, entry := range entries {
		if i > 0 {
			_, _ = r.w.WriteString(" ")
		}
		_, _ = r.w.WriteString(entry)
	}
	_, _ = r.w.WriteString("\n")
}
