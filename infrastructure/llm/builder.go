package llm

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/lectiolab/lectio/internal/ports"
)

// ErrInvalidAPIKey is returned by Probe when the provider rejects the key
// outright.
var ErrInvalidAPIKey = errors.New("API key non valida")

// BuilderConfig tunes the clients a Builder assembles.
type BuilderConfig struct {
	// Models overrides the default model per provider type.
	Models map[string]string

	// Timeout caps individual provider requests.
	Timeout time.Duration

	// RequestsPerSecond and Burst configure the shared per-provider pacer.
	// Zero disables pacing.
	RequestsPerSecond float64
	Burst             int

	// MaxRetries configures transient-failure retries per call.
	MaxRetries int
}

// Builder assembles ready-to-use provider clients from decrypted API keys.
// Clients are built per generation (credentials can change between calls),
// so state that must outlive a client — the pacing buckets, the Prometheus
// collectors — lives here or at package level.
type Builder struct {
	config BuilderConfig

	mu     sync.Mutex
	pacers map[string]*rate.Limiter
}

var _ ports.ClientBuilder = (*Builder)(nil)

// NewBuilder creates a Builder with the given configuration.
func NewBuilder(config BuilderConfig) *Builder {
	if config.Burst <= 0 {
		config.Burst = 1
	}
	return &Builder{
		config: config,
		pacers: make(map[string]*rate.Limiter),
	}
}

// Build returns a client for the provider using the given key, wrapped in
// the standard middleware chain: tracing, metrics, pacing, retry.
func (b *Builder) Build(provider, apiKey string) (ports.CompletionClient, error) {
	middleware := []Middleware{
		TracingMiddleware(provider),
		MetricsMiddleware(provider),
	}
	if b.config.RequestsPerSecond > 0 {
		middleware = append(middleware, RateLimitMiddleware(b.pacer(provider)))
	}
	if b.config.MaxRetries > 0 {
		middleware = append(middleware,
			RetryMiddleware(b.config.MaxRetries, 500*time.Millisecond, 10*time.Second))
	}

	return NewClient(provider, ClientConfig{
		APIKey:     apiKey,
		Model:      b.config.Models[provider],
		Timeout:    b.config.Timeout,
		Middleware: middleware,
	})
}

// Probe issues a minimal one-token call to check that the provider accepts
// the key. A rejected key returns ErrInvalidAPIKey; rate-limit and
// bad-request responses prove the key authenticated and count as success.
func (b *Builder) Probe(ctx context.Context, provider, apiKey string) error {
	client, err := NewClient(provider, ClientConfig{
		APIKey:  apiKey,
		Model:   b.config.Models[provider],
		Timeout: b.config.Timeout,
	})
	if err != nil {
		return err
	}

	_, err = client.core.DoRequest(ctx, Request{Prompt: "test", MaxTokens: 1})
	if err == nil {
		return nil
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Type {
		case ErrorTypeAuthentication:
			return fmt.Errorf("%w: %v", ErrInvalidAPIKey, err)
		case ErrorTypeRateLimit, ErrorTypeBadRequest:
			// The provider understood and authenticated the request.
			return nil
		}
		if pe.StatusCode == 529 {
			// Anthropic overload; the key itself is fine.
			return nil
		}
	}
	return fmt.Errorf("verifica della API key fallita: %w", err)
}

func (b *Builder) pacer(provider string) *rate.Limiter {
	b.mu.Lock()
	defer b.mu.Unlock()

	limiter, ok := b.pacers[provider]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(b.config.RequestsPerSecond), b.config.Burst)
		b.pacers[provider] = limiter
	}
	return limiter
}
