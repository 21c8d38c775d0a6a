package llm

import "sync"

// BaseProvider provides the thread-safe model-name handling every provider
// shares.
type BaseProvider struct {
	mu    sync.RWMutex
	model string
}

// GetModel returns the model currently configured for the provider.
// It is safe for concurrent use.
func (b *BaseProvider) GetModel() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.model
}

// SetModel updates the model name for the provider.
// It is safe for concurrent use.
func (b *BaseProvider) SetModel(model string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.model = model
}

// requestModel picks the per-request override when present, falling back to
// the provider's configured model.
func (b *BaseProvider) requestModel(req Request) string {
	if req.Model != "" {
		return req.Model
	}
	return b.GetModel()
}

// requestMaxTokens applies the package default when the request does not cap
// output tokens itself.
func requestMaxTokens(req Request) int {
	if req.MaxTokens > 0 {
		return req.MaxTokens
	}
	return DefaultMaxTokens
}

// TokenCounter estimates token counts when a provider response does not carry
// usage data.
type TokenCounter struct {
	// CharactersPerToken is the average characters-per-token ratio used for
	// estimation; around 4 is a common approximation for western text.
	CharactersPerToken float64
}

// NewTokenCounter returns a TokenCounter with the default ratio.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{CharactersPerToken: 4.0}
}

// EstimateTokens estimates the token count of text from its length.
func (tc *TokenCounter) EstimateTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return int(float64(len(text)) / tc.CharactersPerToken)
}

// GetTokenCount prefers the provider-reported count and falls back to an
// estimate from the text.
func (tc *TokenCounter) GetTokenCount(actualCount int, text string) int {
	if actualCount > 0 {
		return actualCount
	}
	return tc.EstimateTokens(text)
}
