// Gemini generateContent implementation of [Analyzer] on the google.golang.org/genai SDK
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/shared"
	"google.golang.org/genai"
)

const (
	defaultGeminiBaseURL    = "https://generativelanguage.googleapis.com/"
	defaultGeminiAPIVersion = "v1beta"
	defaultGeminiModel      = "gemini-2.5-flash"
	defaultGeminiTimeout    = 30 * time.Second
	maxErrorMessage         = 200
)

// GeminiOpts configures a [GeminiService].
type GeminiOpts struct {
	APIKey     string
	Model      string
	BaseURL    string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *log.Logger
}

// GeminiService implements [Analyzer] against the Gemini API.
type GeminiService struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *log.Logger
}

// NewGeminiService creates a Gemini client. An empty API key is a configuration error.
func NewGeminiService(opts GeminiOpts) (*GeminiService, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, fmt.Errorf("%w: Gemini API key", shared.ErrMissingCredentials)
	}
	if opts.Model == "" {
		opts.Model = defaultGeminiModel
	}
	if opts.BaseURL == "" {
		opts.BaseURL = defaultGeminiBaseURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = defaultGeminiAPIVersion
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultGeminiTimeout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    opts.BaseURL,
			APIVersion: opts.APIVersion,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}

	return &GeminiService{
		client:  client,
		model:   opts.Model,
		timeout: opts.Timeout,
		logger:  shared.WithLogger(opts.Logger, "service", "gemini"),
	}, nil
}

// Name returns the service name.
func (g *GeminiService) Name() string { return "Gemini" }

// Model returns the model id requests are sent to.
func (g *GeminiService) Model() string { return g.model }

// Analyze sends the frame and instruction and decodes the model's JSON answer.
func (g *GeminiService) Analyze(ctx context.Context, image []byte, mimeType, movementName string) (*models.AnalysisResponse, error) {
	if len(image) == 0 {
		return nil, fmt.Errorf("%w: empty image", shared.ErrInvalidInput)
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	started := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, g.model, buildContents(image, mimeType, movementName), generationConfig())
	if err != nil {
		return nil, g.requestError(ctx, err)
	}

	g.logger.Debug("generateContent", "elapsed", time.Since(started), "bytes", len(image), "prompt", PromptVersion)

	return decodeResponse(resp)
}

// Check verifies the key and model by fetching the model resource.
func (g *GeminiService) Check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if _, err := g.client.Models.Get(ctx, g.model, nil); err != nil {
		return g.requestError(ctx, err)
	}
	return nil
}

// requestError maps SDK failures onto [shared.ErrAPIRequest], flagging deadline hits with [shared.ErrTimeout].
func (g *GeminiService) requestError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w after %v", shared.ErrAPIRequest, shared.ErrTimeout, g.timeout)
	}
	return fmt.Errorf("%w: %s", shared.ErrAPIRequest, errorMessage(err))
}

func buildContents(image []byte, mimeType, movementName string) []*genai.Content {
	return []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(BuildPrompt(movementName)),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
}

func generationConfig() *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   ResponseSchema(),
	}
}

// decodeResponse parses the first candidate's text as an [models.AnalysisResponse].
func decodeResponse(resp *genai.GenerateContentResponse) (*models.AnalysisResponse, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		if resp != nil && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
			return nil, fmt.Errorf("%w: prompt blocked: %s", shared.ErrInvalidResponse, resp.PromptFeedback.BlockReason)
		}
		return nil, fmt.Errorf("%w: no candidates", shared.ErrInvalidResponse)
	}

	text := stripFences(resp.Text())
	if text == "" {
		return nil, fmt.Errorf("%w: empty candidate (finish reason %s)", shared.ErrInvalidResponse, resp.Candidates[0].FinishReason)
	}

	var result models.AnalysisResponse
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidResponse, err)
	}
	return &result, nil
}

// stripFences removes a surrounding ```json ... ``` block the model sometimes adds despite the instructions.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	} else {
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// errorMessage prefers the API's own status and message over the SDK's wrapping.
func errorMessage(err error) string {
	var msg string

	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		msg = fmt.Sprintf("status %d: %s", apiErr.Code, apiErr.Message)
	case errors.As(err, &apiErrPtr):
		msg = fmt.Sprintf("status %d: %s", apiErrPtr.Code, apiErrPtr.Message)
	default:
		msg = err.Error()
	}
	return truncate(strings.TrimSpace(msg), maxErrorMessage)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
