package ports

import "context"

// Completion is the result of one provider call. Truncated is true when the
// provider stopped because the output token budget ran out, which is what the
// orchestrator's continuation loop keys on.
type Completion struct {
	Text      string
	Truncated bool
	Model     string
	TokensIn  int
	TokensOut int
}

// CompletionRequest is a provider-agnostic generation request. Prior carries
// the partial outputs already received for this request, in order; providers
// that support conversational continuation replay them as assistant turns and
// ask the model to resume without repetition.
type CompletionRequest struct {
	Prompt string
	// Prior holds earlier truncated outputs for continuation calls.
	Prior []string
	// MaxTokens caps the output token budget for this call.
	MaxTokens int
	// JSONOnly asks the provider for structured-output mode where the API
	// supports it natively; other providers rely on the prompt contract.
	JSONOnly bool
}

// CompletionClient is the narrow surface the orchestrator needs from an LLM
// provider. Implementations handle authentication, request formatting, and
// error normalization; infrastructure/llm provides them.
type CompletionClient interface {
	// Complete sends one request and returns the provider's output.
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)

	// Model returns the provider/model identifier recorded on successful
	// generations for audit.
	Model() string
}

// ClientBuilder constructs a CompletionClient from a decrypted API key.
// The orchestrator resolves which provider to use per call, so clients are
// built per generation rather than held as process-wide singletons.
type ClientBuilder interface {
	// Build returns a ready client for the provider using the given key.
	Build(provider string, apiKey string) (CompletionClient, error)

	// Probe issues a minimal one-token call to verify that the key is
	// accepted by the provider. It is used when saving credentials.
	Probe(ctx context.Context, provider string, apiKey string) error
}
