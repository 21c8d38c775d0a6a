package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lectiolab/lectio/internal/ports"
)

func registerMockFactory(t *testing.T, name string, mock *MockCoreLLM) {
	t.Helper()
	RegisterProviderFactory(name, func(config ClientConfig) (CoreLLM, error) {
		if config.Model != "" {
			mock.SetModel(config.Model)
		}
		return mock, nil
	})
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient("anthropic", ClientConfig{})
	assert.ErrorIs(t, err, ErrEmptyAPIKey)

	_, err = NewClient("no-such-provider", ClientConfig{APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestClientCompleteTranslatesRequest(t *testing.T) {
	mock := NewMockCoreLLM()
	mock.Script = []Response{{
		Text:      "generated",
		Truncated: true,
		Model:     "test-model",
		TokensIn:  12,
		TokensOut: 34,
	}}
	registerMockFactory(t, "mock-translate", mock)

	client, err := NewClient("mock-translate", ClientConfig{APIKey: "k"})
	require.NoError(t, err)

	completion, err := client.Complete(context.Background(), ports.CompletionRequest{
		Prompt:    "prompt text",
		Prior:     []string{"first chunk"},
		MaxTokens: 2048,
		JSONOnly:  true,
	})
	require.NoError(t, err)

	assert.Equal(t, "generated", completion.Text)
	assert.True(t, completion.Truncated)
	assert.Equal(t, "test-model", completion.Model)
	assert.Equal(t, 12, completion.TokensIn)
	assert.Equal(t, 34, completion.TokensOut)

	require.Len(t, mock.Requests, 1)
	sent := mock.Requests[0]
	assert.Equal(t, "prompt text", sent.Prompt)
	assert.Equal(t, []string{"first chunk"}, sent.Prior)
	assert.Equal(t, 2048, sent.MaxTokens)
	assert.True(t, sent.JSONOnly)
}

func TestClientMiddlewareOrder(t *testing.T) {
	mock := NewMockCoreLLM()
	registerMockFactory(t, "mock-order", mock)

	var order []string
	tag := func(name string) Middleware {
		return func(next CoreLLM) CoreLLM {
			return &taggedLLM{next: next, name: name, order: &order}
		}
	}

	client, err := NewClient("mock-order", ClientConfig{
		APIKey:     "k",
		Middleware: []Middleware{tag("outer"), tag("inner")},
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), ports.CompletionRequest{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestClientModelAndProvider(t *testing.T) {
	mock := NewMockCoreLLM()
	registerMockFactory(t, "mock-model", mock)

	client, err := NewClient("mock-model", ClientConfig{APIKey: "k", Model: "custom-model"})
	require.NoError(t, err)

	assert.Equal(t, "custom-model", client.Model())
	assert.Equal(t, "mock-model", client.Provider())
}

type taggedLLM struct {
	next  CoreLLM
	name  string
	order *[]string
}

func (m *taggedLLM) DoRequest(ctx context.Context, req Request) (Response, error) {
	*m.order = append(*m.order, m.name)
	return m.next.DoRequest(ctx, req)
}

func (m *taggedLLM) GetModel() string  { return m.next.GetModel() }
func (m *taggedLLM) SetModel(s string) { m.next.SetModel(s) }
