package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	// AnthropicDefaultModel is the model used for personal-credential
	// generations unless configuration overrides it.
	AnthropicDefaultModel = "claude-sonnet-4-20250514"
)

func init() {
	RegisterProviderFactory("anthropic", newAnthropicProvider)
}

// anthropicProvider implements CoreLLM for Anthropic's Messages API. It is
// the only provider with first-class conversational continuation: prior
// truncated outputs are replayed as assistant turns so the model resumes
// where it stopped.
type anthropicProvider struct {
	BaseProvider
	client          anthropic.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newAnthropicProvider creates an Anthropic provider instance from the
// client configuration.
func newAnthropicProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = AnthropicDefaultModel
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}
	if config.Timeout > 0 {
		opts = append(opts, option.WithHTTPClient(&http.Client{Timeout: config.Timeout}))
	}

	return &anthropicProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          anthropic.NewClient(opts...),
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "anthropic"},
	}, nil
}

// DoRequest sends one request to the Messages API. Truncation is detected
// through the max_tokens stop reason.
func (p *anthropicProvider) DoRequest(ctx context.Context, req Request) (Response, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(p.requestModel(req)),
		MaxTokens: int64(requestMaxTokens(req)),
		Messages:  p.buildMessages(req),
	}
	if req.Temperature != nil {
		params.Temperature = anthropic.Float(*req.Temperature)
	}

	message, err := p.client.Messages.New(ctx, params)
	if err != nil {
		return Response{}, p.handleError(err)
	}

	text := collectText(message)
	if text == "" {
		return Response{}, NewProviderError("anthropic", ErrorTypeUnknown, 0,
			"risposta AI senza contenuto testuale", ErrEmptyResponse)
	}

	return Response{
		Text:      text,
		Truncated: message.StopReason == anthropic.StopReasonMaxTokens,
		Model:     string(message.Model),
		TokensIn:  p.tokenCounter.GetTokenCount(int(message.Usage.InputTokens), req.Prompt),
		TokensOut: p.tokenCounter.GetTokenCount(int(message.Usage.OutputTokens), text),
	}, nil
}

// buildMessages assembles the conversation: the original prompt, then one
// assistant/user pair per prior truncated output.
func (p *anthropicProvider) buildMessages(req Request) []anthropic.MessageParam {
	messages := make([]anthropic.MessageParam, 0, 1+2*len(req.Prior))
	messages = append(messages, anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)))

	for _, prior := range req.Prior {
		messages = append(messages,
			anthropic.NewAssistantMessage(anthropic.NewTextBlock(prior)),
			anthropic.NewUserMessage(anthropic.NewTextBlock(ContinuationInstruction)),
		)
	}
	return messages
}

// collectText concatenates the text blocks of a message.
func collectText(message *anthropic.Message) string {
	var b strings.Builder
	for _, block := range message.Content {
		switch content := block.AsAny().(type) {
		case anthropic.TextBlock:
			b.WriteString(content.Text)
		}
	}
	return b.String()
}

// handleError normalizes Anthropic SDK failures into the common taxonomy.
func (p *anthropicProvider) handleError(err error) error {
	var anthropicErr *anthropic.Error
	if errors.As(err, &anthropicErr) {
		return p.errorClassifier.ClassifyHTTPError(anthropicErr.StatusCode, "", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}
	return NewProviderError("anthropic", ErrorTypeUnknown, 0, "request failed", err)
}
