package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"pdfchat-backend/internal/logging"
	"pdfchat-backend/internal/models"
)

// Completions are requested at the minimum-randomness setting.
const completionTemperature = 0

var errEmptyCompletion = errors.New("model returned an empty completion")

// Completer turns a prompt into a single completion string.
type Completer interface {
	Complete(ctx context.Context, prompt, modelID, credential string) (string, error)
}

type providerFunc func(ctx context.Context, prompt, modelID, credential string) (string, error)

// CompletionClient routes a prompt to the provider owning the selected model.
// It makes exactly one call per prompt and never retries.
type CompletionClient struct {
	httpClient    *http.Client
	openAIBaseURL string
	providers     map[models.Provider]providerFunc
	logger        *zap.Logger
}

func NewCompletionClient(openAIBaseURL string, logger *zap.Logger) *CompletionClient {
	c := &CompletionClient{
		httpClient:    http.DefaultClient,
		openAIBaseURL: strings.TrimRight(openAIBaseURL, "/"),
		logger:        logger,
	}
	c.providers = map[models.Provider]providerFunc{
		models.ProviderOpenAI: c.completeOpenAI,
		models.ProviderGemini: completeGemini,
	}
	return c
}

func (c *CompletionClient) Complete(ctx context.Context, prompt, modelID, credential string) (string, error) {
	info, ok := models.LookupModel(modelID)
	if !ok {
		return "", &ValidationError{Fields: map[string]string{"model": "Unknown model " + modelID}}
	}
	if credential == "" {
		return "", &CredentialRequiredError{}
	}

	provider, ok := c.providers[info.Provider]
	if !ok {
		return "", &CompletionError{Model: modelID, Err: fmt.Errorf("no provider for %s", info.Provider)}
	}

	defer logging.LogDuration(ctx, c.logger, "completion_"+string(info.Provider))()

	text, err := provider(ctx, prompt, modelID, credential)
	if err != nil {
		return "", &CompletionError{Model: modelID, Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return "", &CompletionError{Model: modelID, Err: errEmptyCompletion}
	}

	c.logger.Info("completion received",
		zap.String("model", modelID),
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("completion_chars", len(text)),
	)
	return text, nil
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type openAIErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (c *CompletionClient) completeOpenAI(ctx context.Context, prompt, modelID, credential string) (string, error) {
	body, err := json.Marshal(openAIChatRequest{
		Model:       modelID,
		Messages:    []openAIMessage{{Role: string(models.RoleUser), Content: prompt}},
		Temperature: completionTemperature,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.openAIBaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+credential)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		var apiErr openAIErrorResponse
		if json.Unmarshal(b, &apiErr) == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("openai request failed: %s - %s", resp.Status, apiErr.Error.Message)
		}
		return "", fmt.Errorf("openai request failed: %s", resp.Status)
	}

	var parsed openAIChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("failed to decode openai response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", errEmptyCompletion
	}
	return parsed.Choices[0].Message.Content, nil
}

// completeGemini opens a client per call because the key belongs to the session.
func completeGemini(ctx context.Context, prompt, modelID, credential string) (string, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(credential))
	if err != nil {
		return "", fmt.Errorf("failed to create Gemini client: %w", err)
	}
	defer client.Close()

	model := client.GenerativeModel(modelID)
	model.SetTemperature(completionTemperature)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	return extractText(resp), nil
}

func extractText(resp *genai.GenerateContentResponse) string {
	var text strings.Builder
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if t, ok := part.(genai.Text); ok {
					text.WriteString(string(t))
				}
			}
		}
	}
	return text.String()
}
