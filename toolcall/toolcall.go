package toolcall

import (
	"encoding/json"
	"strings"

	"github.com/effective-security/toolagent/pkg/metricskey"
	"github.com/effective-security/xlog"
)

var logger = xlog.NewPackageLogger("github.com/effective-security/toolagent", "toolcall")

// Call is a tool invocation requested by the model
type Call struct {
	Tool       string         `json:"tool"`
	Parameters map[string]any `json:"parameters"`
	// Strategy is the name of the strategy that found the call
	Strategy string `json:"-"`
}

// Strategy produces candidate substrings of the text
type Strategy interface {
	Name() string
	// Candidates returns substrings that may hold a call, in reading order
	Candidates(text string) []string
}

// Parse returns the call if the candidate is a JSON object
// with a string "tool" and an object "parameters".
func Parse(candidate string) (*Call, bool) {
	candidate = strings.TrimSpace(candidate)
	if !strings.HasPrefix(candidate, "{") {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(candidate), &obj); err != nil {
		return nil, false
	}
	rawTool, ok := obj["tool"]
	if !ok || len(rawTool) == 0 || rawTool[0] != '"' {
		return nil, false
	}
	rawParams, ok := obj["parameters"]
	if !ok {
		return nil, false
	}

	c := new(Call)
	if err := json.Unmarshal(rawTool, &c.Tool); err != nil {
		return nil, false
	}
	if err := json.Unmarshal(rawParams, &c.Parameters); err != nil || c.Parameters == nil {
		return nil, false
	}
	return c, true
}

// Extractor applies strategies in order
type Extractor struct {
	strategies []Strategy
}

// DefaultStrategies returns the strategies in the order of preference
func DefaultStrategies() []Strategy {
	return []Strategy{
		FencedJSON(),
		FencedPlain(),
		WholeText(),
		BalancedScan(),
		LooseObject(),
	}
}

// NewExtractor returns an extractor with the strategies,
// or with DefaultStrategies if none provided.
func NewExtractor(strategies ...Strategy) *Extractor {
	if len(strategies) == 0 {
		strategies = DefaultStrategies()
	}
	return &Extractor{
		strategies: strategies,
	}
}

// Strategies returns the names of the strategies in order
func (e *Extractor) Strategies() []string {
	names := make([]string, 0, len(e.strategies))
	for _, s := range e.strategies {
		names = append(names, s.Name())
	}
	return names
}

// Extract returns the first call found, or nil if the text holds no call.
func (e *Extractor) Extract(text string) *Call {
	for _, s := range e.strategies {
		for _, candidate := range s.Candidates(text) {
			if c, ok := Parse(candidate); ok {
				c.Strategy = s.Name()
				metricskey.StatsToolCallsExtracted.IncrCounter(1, c.Strategy)
				logger.KV(xlog.DEBUG, "strategy", c.Strategy, "tool", c.Tool)
				return c
			}
		}
	}
	return nil
}
