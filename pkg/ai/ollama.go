package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultOllamaBaseURL = "http://127.0.0.1:11434"

var errOllamaNoMessage = errors.New("ollama response has no message")

// OllamaGenerator drives the non-streaming /api/chat endpoint of a local
// Ollama server with a fixed model.
type OllamaGenerator struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

// NewOllamaGenerator builds an Ollama TextGenerator. An empty baseURL means
// the default local daemon.
func NewOllamaGenerator(baseURL, model string) (*OllamaGenerator, error) {
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, errors.New("ollama generation model required")
	}
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	return &OllamaGenerator{
		baseURL: baseURL,
		model:   model,
		// local models on CPU are slow to produce a whole page
		httpClient: &http.Client{Timeout: 300 * time.Second},
	}, nil
}

// GenerateText implements TextGenerator.
func (g *OllamaGenerator) GenerateText(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	messages := make([]ollamaMessage, 0, 2)
	if strings.TrimSpace(systemPrompt) != "" {
		messages = append(messages, ollamaMessage{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, ollamaMessage{Role: "user", Content: userPrompt})

	body, err := json.Marshal(ollamaChatRequest{Model: g.model, Messages: messages, Stream: false})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error != "" {
			return "", fmt.Errorf("ollama api error (%d): %s", resp.StatusCode, errResp.Error)
		}
		return "", fmt.Errorf("ollama api error: %s", resp.Status)
	}

	var out ollamaChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("ollama decode: %w", err)
	}
	if out.Message == nil || out.Message.Content == "" {
		return "", errOllamaNoMessage
	}
	return out.Message.Content, nil
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
}

type ollamaChatResponse struct {
	Message *ollamaMessage `json:"message"`
	Done    bool           `json:"done"`
}
