// Package llm provides a unified client for the LLM providers the engine can
// call, with built-in support for request pacing, retries, metrics, and
// tracing.
//
// The package abstracts the providers (Anthropic, Google, OpenAI) behind a
// common interface while adding operational cross-cutting concerns through a
// middleware pattern. Providers register themselves through factory functions,
// and a Builder assembles ready clients per resolved credential.
//
// Basic usage:
//
//	client, err := llm.NewClient("anthropic", llm.ClientConfig{
//	    APIKey: key,
//	    Model:  "claude-sonnet-4-20250514",
//	})
//	resp, err := client.Complete(ctx, ports.CompletionRequest{Prompt: prompt})
package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/lectiolab/lectio/internal/ports"
)

// DefaultMaxTokens is the output token budget used when a request does not
// set one. It matches the budget the generation orchestrator works with.
const DefaultMaxTokens = 16384

// ContinuationInstruction is the user turn appended after each truncated
// output when a provider supports conversational continuation. The wording
// instructs the model to resume exactly where it stopped, with no repetition.
const ContinuationInstruction = "Continua esattamente da dove ti sei fermato. " +
	"Scrivi SOLO il resto del JSON, senza ripetere ciò che hai già scritto."

// Request is the provider-agnostic request handed to a CoreLLM.
// Prior carries the partial outputs already produced for this generation, in
// order; providers replay them as assistant turns followed by the
// continuation instruction.
type Request struct {
	Prompt      string
	Prior       []string
	MaxTokens   int
	JSONOnly    bool
	Temperature *float64
	// Model overrides the provider's configured model for this request.
	Model string
}

// Response is the normalized result of one provider call. Truncated reports
// that the provider stopped on its output token budget rather than a natural
// end of turn.
type Response struct {
	Text      string
	Truncated bool
	Model     string
	TokensIn  int
	TokensOut int
}

// CoreLLM is the minimal interface a provider must implement. The middleware
// chain wraps any conforming implementation.
type CoreLLM interface {
	// DoRequest sends one request to the provider and returns the
	// normalized response.
	DoRequest(ctx context.Context, req Request) (Response, error)

	// GetModel returns the currently configured model name.
	GetModel() string

	// SetModel updates the model used for subsequent requests.
	SetModel(model string)
}

// Middleware wraps a CoreLLM to add cross-cutting behavior such as pacing,
// retries, metrics, or tracing without touching provider logic.
type Middleware func(CoreLLM) CoreLLM

// ClientConfig holds everything needed to construct a provider client.
type ClientConfig struct {
	// APIKey authenticates requests to the provider.
	APIKey string

	// Model selects the model; empty means the provider default.
	Model string

	// BaseURL overrides the provider's default endpoint, mainly for tests.
	BaseURL string

	// Timeout caps individual requests; zero means the SDK default.
	Timeout time.Duration

	// Middleware is applied in order, first entry outermost.
	Middleware []Middleware
}

// Client wraps a provider CoreLLM (plus middleware) behind the
// ports.CompletionClient surface the orchestrator consumes.
type Client struct {
	core     CoreLLM
	provider string
}

var _ ports.CompletionClient = (*Client)(nil)

// NewClient builds a client for the named provider type, assembling the
// middleware chain and validating the configuration.
func NewClient(providerType string, config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	factory, ok := providerFactories[providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s", providerType)
	}

	core, err := factory(config)
	if err != nil {
		return nil, fmt.Errorf("create %s provider: %w", providerType, err)
	}

	// Apply middleware in reverse so the first one is outermost.
	for i := len(config.Middleware) - 1; i >= 0; i-- {
		core = config.Middleware[i](core)
	}

	return &Client{core: core, provider: providerType}, nil
}

// Complete sends one completion request and returns the normalized result.
func (c *Client) Complete(ctx context.Context, req ports.CompletionRequest) (ports.Completion, error) {
	resp, err := c.core.DoRequest(ctx, Request{
		Prompt:    req.Prompt,
		Prior:     req.Prior,
		MaxTokens: req.MaxTokens,
		JSONOnly:  req.JSONOnly,
	})
	if err != nil {
		return ports.Completion{}, err
	}
	return ports.Completion{
		Text:      resp.Text,
		Truncated: resp.Truncated,
		Model:     resp.Model,
		TokensIn:  resp.TokensIn,
		TokensOut: resp.TokensOut,
	}, nil
}

// Model returns the model identifier the underlying provider is configured
// with, recorded on successful generations for audit.
func (c *Client) Model() string { return c.core.GetModel() }

// Provider returns the provider type this client was built for.
func (c *Client) Provider() string { return c.provider }

// ProviderFactory creates a CoreLLM implementation from configuration.
type ProviderFactory func(ClientConfig) (CoreLLM, error)

// providerFactories is populated by each provider's init.
var providerFactories = map[string]ProviderFactory{}

// RegisterProviderFactory registers a custom provider factory. Providers in
// this package self-register; the hook exists for tests and extensions.
func RegisterProviderFactory(providerType string, factory ProviderFactory) {
	providerFactories[providerType] = factory
}
