package openai_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/effective-security/toolagent/pkg/llms"
	"github.com/effective-security/toolagent/pkg/llms/openai"
	"github.com/effective-security/toolagent/pkg/llmutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const completionResponse = `{
	"id": "chatcmpl-1",
	"object": "chat.completion",
	"created": 1700000000,
	"model": "deepseek-chat",
	"choices": [{
		"index": 0,
		"message": {"role": "assistant", "content": "Hello!"},
		"finish_reason": "stop"
	}],
	"usage": {"prompt_tokens": 12, "completion_tokens": 3, "total_tokens": 15}
}`

type capture struct {
	path   string
	auth   string
	body   map[string]any
	status int
	resp   string
}

func newTestServer(t *testing.T, c *capture) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.path = r.URL.Path
		c.auth = r.Header.Get("Authorization")
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &c.body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(c.status)
		_, _ = w.Write([]byte(c.resp))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestGenerateContent(t *testing.T) {
	c := &capture{status: http.StatusOK, resp: completionResponse}
	ts := newTestServer(t, c)

	llm, err := openai.New(
		openai.WithProvider(llms.ProviderDeepSeek),
		openai.WithToken("secret"),
		openai.WithBaseURL(ts.URL+"/"),
	)
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderDeepSeek, llm.GetProviderType())
	assert.Equal(t, "deepseek-chat", llm.GetName())

	resp, err := llm.GenerateContent(context.Background(), []llms.Message{
		llms.SystemMessage("You are helpful."),
		llms.UserMessage("Say hello!"),
	})
	require.NoError(t, err)

	text, err := resp.Text()
	require.NoError(t, err)
	assert.Equal(t, "Hello!", text)
	assert.Equal(t, "stop", resp.Choices[0].StopReason)

	in, out, total := llmutils.CountTokens(resp)
	assert.Equal(t, int64(12), in)
	assert.Equal(t, int64(3), out)
	assert.Equal(t, int64(15), total)

	assert.Equal(t, "/chat/completions", c.path)
	assert.Equal(t, "Bearer secret", c.auth)
	assert.Equal(t, "deepseek-chat", c.body["model"])
	assert.Equal(t, 0.7, c.body["temperature"])
	assert.Equal(t, 4096.0, c.body["max_tokens"])
	assert.Equal(t, []any{
		map[string]any{"role": "system", "content": "You are helpful."},
		map[string]any{"role": "user", "content": "Say hello!"},
	}, c.body["messages"])

	_, err = llm.GenerateContent(context.Background(),
		[]llms.Message{llms.UserMessage("Say hello!")},
		llms.WithMaxTokens(100),
		llms.WithTemperature(0),
		llms.WithModel("deepseek-reasoner"),
	)
	require.NoError(t, err)
	assert.Equal(t, 100.0, c.body["max_tokens"])
	assert.Equal(t, 0.0, c.body["temperature"])
	assert.Equal(t, "deepseek-reasoner", c.body["model"])

	_, err = llm.GenerateContent(context.Background(), []llms.Message{{Role: "human", Content: "x"}})
	assert.Error(t, err)
}

func TestGenerateContentErrors(t *testing.T) {
	tcases := []struct {
		name   string
		status int
		resp   string
		err    string
		is     error
	}{
		{
			name:   "provider error",
			status: http.StatusUnauthorized,
			resp:   `{"error":{"message":"Authentication Fails","type":"authentication_error"}}`,
			err:    "API returned unexpected status code: 401: Authentication Fails",
		},
		{
			name:   "no body",
			status: http.StatusInternalServerError,
			resp:   ``,
			err:    "API returned unexpected status code: 500",
		},
		{
			name:   "no choices",
			status: http.StatusOK,
			resp:   `{"id":"x","choices":[]}`,
			err:    "empty response",
			is:     llms.ErrEmptyResponse,
		},
	}

	for _, tc := range tcases {
		t.Run(tc.name, func(t *testing.T) {
			c := &capture{status: tc.status, resp: tc.resp}
			ts := newTestServer(t, c)

			llm, err := openai.New(openai.WithToken("secret"), openai.WithBaseURL(ts.URL))
			require.NoError(t, err)

			_, err = llm.GenerateContent(context.Background(), []llms.Message{llms.UserMessage("hi")})
			require.Error(t, err)
			assert.EqualError(t, err, tc.err)
			if tc.is != nil {
				assert.ErrorIs(t, err, tc.is)
			}
		})
	}
}

func TestNew(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	_, err := openai.New()
	assert.ErrorIs(t, err, openai.ErrMissingToken)

	_, err = openai.New(openai.WithProvider("ANTHROPIC"), openai.WithToken("x"))
	assert.EqualError(t, err, "unsupported provider type: ANTHROPIC")

	t.Setenv("DEEPSEEK_API_KEY", "from-env")
	llm, err := openai.New()
	require.NoError(t, err)
	assert.Equal(t, "deepseek-chat", llm.GetName())

	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("OPENAI_MODEL", "gpt-test")
	llm, err = openai.New(openai.WithProvider(llms.ProviderOpenAI))
	require.NoError(t, err)
	assert.Equal(t, llms.ProviderOpenAI, llm.GetProviderType())
	assert.Equal(t, "gpt-test", llm.GetName())
}
