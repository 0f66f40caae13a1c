// Package synthesis turns a ticker plus fetched market facts and web
// findings into a markdown investment memo via an LLM provider.
package synthesis

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	openai "github.com/sashabaranov/go-openai"
	"github.com/ternarybob/arbor"
	"google.golang.org/genai"

	"github.com/ternarybob/aestimo/internal/common"
	"github.com/ternarybob/aestimo/internal/marketdata"
	"github.com/ternarybob/aestimo/internal/models"
	"github.com/ternarybob/aestimo/internal/research"
)

// ProviderType represents the AI provider type
type ProviderType string

const (
	// ProviderGroq uses the OpenAI-compatible Groq API for llama models
	ProviderGroq ProviderType = "groq"
	// ProviderClaude uses Anthropic Claude API
	ProviderClaude ProviderType = "claude"
	// ProviderGemini uses Google Gemini API
	ProviderGemini ProviderType = "gemini"
)

// Request carries everything the memo is synthesized from.
type Request struct {
	Ticker   string
	Model    string
	Snapshot *marketdata.Snapshot
	Findings []research.Finding
}

// Service generates memos using the provider matching the requested model.
// Provider clients are created lazily on first use.
type Service struct {
	claudeConfig *common.ClaudeConfig
	geminiConfig *common.GeminiConfig
	groqConfig   *common.GroqConfig
	timeout      time.Duration
	logger       arbor.ILogger

	// mu guards the lazily created clients, requests run concurrently
	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeReady  bool
	groqClient   *openai.Client
}

// NewService creates a new synthesis service.
func NewService(config *common.Config, logger arbor.ILogger) *Service {
	return &Service{
		claudeConfig: &config.Claude,
		geminiConfig: &config.Gemini,
		groqConfig:   &config.Groq,
		timeout:      config.LLM.Timeout,
		logger:       logger,
	}
}

// DetectProvider determines the provider type from a model string.
// Model strings can be:
// - "llama-3.3-70b-versatile" -> Groq
// - "claude-haiku-3-5-20241022" -> Claude
// - "gemini-2.0-flash" -> Gemini
// - "groq/llama-3.3-70b-versatile" -> Groq (with prefix)
func DetectProvider(model string) ProviderType {
	model = strings.ToLower(model)

	// Check for explicit provider prefix
	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return ProviderGemini
	}
	if strings.HasPrefix(model, "groq/") {
		return ProviderGroq
	}

	// Check for model name patterns
	if strings.HasPrefix(model, "claude-") {
		return ProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return ProviderGemini
	}

	// Llama and mixtral families run on Groq, which is also the default
	return ProviderGroq
}

// NormalizeModel removes provider prefix from model name if present
func NormalizeModel(model string) string {
	prefixes := []string{"claude/", "anthropic/", "gemini/", "google/", "groq/"}
	for _, prefix := range prefixes {
		if strings.HasPrefix(strings.ToLower(model), prefix) {
			return model[len(prefix):]
		}
	}
	return model
}

// Synthesize generates a markdown memo for the request. Upstream failures
// surface as RateLimitError or UpstreamError; an empty completion surfaces
// as SynthesisError.
func (s *Service) Synthesize(ctx context.Context, request *Request) (string, error) {
	provider := DetectProvider(request.Model)
	model := NormalizeModel(request.Model)
	prompt := buildPrompt(request.Ticker, request.Snapshot, request.Findings)

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Str("provider", string(provider)).
		Str("model", model).
		Str("ticker", request.Ticker).
		Msg("Starting memo synthesis")

	var markdown string
	var err error

	switch provider {
	case ProviderClaude:
		markdown, err = s.generateWithClaude(timeoutCtx, model, prompt)
	case ProviderGemini:
		markdown, err = s.generateWithGemini(timeoutCtx, model, prompt)
	default:
		markdown, err = s.generateWithGroq(timeoutCtx, model, prompt)
	}

	if err != nil {
		if isRateLimitText(err) {
			return "", &models.RateLimitError{Provider: string(provider), Message: err.Error()}
		}
		s.logger.Error().
			Err(err).
			Str("provider", string(provider)).
			Str("model", model).
			Msg("Memo synthesis failed")
		return "", &models.UpstreamError{Provider: string(provider), Message: err.Error()}
	}

	if strings.TrimSpace(markdown) == "" {
		return "", &models.SynthesisError{Model: model, Message: "provider returned no usable output"}
	}

	s.logger.Info().
		Str("provider", string(provider)).
		Str("model", model).
		Str("ticker", request.Ticker).
		Int("response_length", len(markdown)).
		Dur("duration", time.Since(startTime)).
		Msg("Memo synthesis completed")

	return markdown, nil
}

// getGroqClient returns the Groq client, creating one if necessary
func (s *Service) getGroqClient() (*openai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.groqClient != nil {
		return s.groqClient, nil
	}
	if s.groqConfig.APIKey == "" {
		return nil, fmt.Errorf("Groq API key is required (set via GROQ_API_KEY or groq.api_key in config)")
	}

	cfg := openai.DefaultConfig(s.groqConfig.APIKey)
	if s.groqConfig.BaseURL != "" {
		cfg.BaseURL = s.groqConfig.BaseURL
	}
	s.groqClient = openai.NewClientWithConfig(cfg)
	return s.groqClient, nil
}

// getClaudeClient returns the Claude client, creating one if necessary
func (s *Service) getClaudeClient() (anthropic.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claudeReady {
		return s.claudeClient, nil
	}
	if s.claudeConfig.APIKey == "" {
		return anthropic.Client{}, fmt.Errorf("Anthropic API key is required (set via ANTHROPIC_API_KEY or claude.api_key in config)")
	}

	s.claudeClient = anthropic.NewClient(
		option.WithAPIKey(s.claudeConfig.APIKey),
	)
	s.claudeReady = true
	return s.claudeClient, nil
}

// getGeminiClient returns the Gemini client, creating one if necessary
func (s *Service) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.geminiClient != nil {
		return s.geminiClient, nil
	}
	if s.geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set via GEMINI_API_KEY or gemini.api_key in config)")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  s.geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s.geminiClient = client
	return client, nil
}

// generateWithGroq generates the memo via the OpenAI-compatible Groq API
func (s *Service) generateWithGroq(ctx context.Context, model, prompt string) (string, error) {
	client, err := s.getGroqClient()
	if err != nil {
		return "", err
	}

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       model,
		Temperature: s.groqConfig.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemInstruction},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("Groq API call failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

// generateWithClaude generates the memo via the Anthropic API
func (s *Service) generateWithClaude(ctx context.Context, model, prompt string) (string, error) {
	client, err := s.getClaudeClient()
	if err != nil {
		return "", err
	}

	maxTokens := s.claudeConfig.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 8192
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(maxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
		System: []anthropic.TextBlockParam{
			{Text: systemInstruction},
		},
	}
	if s.claudeConfig.Temperature > 0 {
		params.Temperature = anthropic.Float(float64(s.claudeConfig.Temperature))
	}

	resp, err := client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("Claude API call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// generateWithGemini generates the memo via the Gemini API
func (s *Service) generateWithGemini(ctx context.Context, model, prompt string) (string, error) {
	client, err := s.getGeminiClient(ctx)
	if err != nil {
		return "", err
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}
	if s.geminiConfig.Temperature > 0 {
		config.Temperature = genai.Ptr(s.geminiConfig.Temperature)
	}

	contents := []*genai.Content{
		{
			Role:  genai.RoleUser,
			Parts: []*genai.Part{genai.NewPartFromText(prompt)},
		},
	}

	resp, err := client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		return "", fmt.Errorf("Gemini API call failed: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", nil
	}
	return resp.Text(), nil
}

// Close releases provider clients.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.geminiClient = nil
	s.groqClient = nil
	s.claudeClient = anthropic.Client{}
	s.claudeReady = false
	return nil
}
