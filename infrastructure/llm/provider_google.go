package llm

import (
	"context"
	"errors"
	"math"

	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	// GoogleDefaultModel is the model used for shared-credential fallback
	// generations.
	GoogleDefaultModel = "gemini-2.0-flash"
)

func init() {
	RegisterProviderFactory("google", newGoogleProvider)
}

// googleProvider implements CoreLLM for Google's Gemini API. It supports
// native structured-output mode: JSONOnly requests set the response MIME type
// so the model cannot wrap the payload in prose or code fences.
type googleProvider struct {
	BaseProvider
	client          *genai.Client
	tokenCounter    *TokenCounter
	errorClassifier *ErrorClassifier
}

// newGoogleProvider creates a Gemini provider instance authenticated with an
// API key.
func newGoogleProvider(config ClientConfig) (CoreLLM, error) {
	if config.APIKey == "" {
		return nil, ErrEmptyAPIKey
	}

	model := config.Model
	if model == "" {
		model = GoogleDefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientConfig.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(context.Background(), clientConfig)
	if err != nil {
		return nil, err
	}

	return &googleProvider{
		BaseProvider:    BaseProvider{model: model},
		client:          client,
		tokenCounter:    NewTokenCounter(),
		errorClassifier: &ErrorClassifier{Provider: "google"},
	}, nil
}

// DoRequest sends one request to the Gemini API. Truncation is detected
// through the MAX_TOKENS finish reason on the first candidate.
func (p *googleProvider) DoRequest(ctx context.Context, req Request) (Response, error) {
	model := p.requestModel(req)

	resp, err := p.client.Models.GenerateContent(ctx, model,
		p.buildContents(req), p.buildConfig(req))
	if err != nil {
		return Response{}, p.handleError(err)
	}

	text := resp.Text()
	if text == "" {
		return Response{}, NewProviderError("google", ErrorTypeUnknown, 0,
			"risposta AI senza contenuto testuale", ErrEmptyResponse)
	}

	truncated := false
	if len(resp.Candidates) > 0 {
		truncated = resp.Candidates[0].FinishReason == genai.FinishReasonMaxTokens
	}

	return Response{
		Text:      text,
		Truncated: truncated,
		Model:     model,
		TokensIn:  p.tokenCountIn(resp, req.Prompt),
		TokensOut: p.tokenCountOut(resp, text),
	}, nil
}

// buildContents assembles the conversation, replaying prior truncated
// outputs as model turns followed by the continuation instruction.
func (p *googleProvider) buildContents(req Request) []*genai.Content {
	contents := make([]*genai.Content, 0, 1+2*len(req.Prior))
	contents = append(contents, genai.NewContentFromText(req.Prompt, genai.RoleUser))

	for _, prior := range req.Prior {
		contents = append(contents,
			genai.NewContentFromText(prior, genai.RoleModel),
			genai.NewContentFromText(ContinuationInstruction, genai.RoleUser),
		)
	}
	return contents
}

// buildConfig maps the request onto Gemini generation settings.
func (p *googleProvider) buildConfig(req Request) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}

	maxTokens := requestMaxTokens(req)
	if maxTokens > math.MaxInt32 {
		config.MaxOutputTokens = math.MaxInt32
	} else {
		config.MaxOutputTokens = int32(maxTokens)
	}

	if req.JSONOnly {
		config.ResponseMIMEType = "application/json"
	}

	if req.Temperature != nil {
		temp := clamp(*req.Temperature, 0.0, 2.0)
		config.Temperature = genai.Ptr(float32(temp))
	}

	return config
}

func (p *googleProvider) tokenCountIn(resp *genai.GenerateContentResponse, prompt string) int {
	if resp.UsageMetadata != nil && resp.UsageMetadata.PromptTokenCount > 0 {
		return int(resp.UsageMetadata.PromptTokenCount)
	}
	return p.tokenCounter.EstimateTokens(prompt)
}

func (p *googleProvider) tokenCountOut(resp *genai.GenerateContentResponse, text string) int {
	if resp.UsageMetadata != nil && resp.UsageMetadata.CandidatesTokenCount > 0 {
		return int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return p.tokenCounter.EstimateTokens(text)
}

// handleError normalizes Gemini API failures into the common taxonomy.
func (p *googleProvider) handleError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return p.errorClassifier.ClassifyContextError(err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		message := apiErr.Message
		if message == "" && len(apiErr.Errors) > 0 {
			message = apiErr.Errors[0].Message
		}
		return p.errorClassifier.ClassifyHTTPError(apiErr.Code, message, err)
	}

	return NewProviderError("google", ErrorTypeUnknown, 0, "request failed", err)
}

func clamp(val, min, max float64) float64 {
	if val < min {
		return min
	}
	if val > max {
		return max
	}
	return val
}
