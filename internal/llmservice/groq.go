package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const groqAPIURL = "https://api.groq.com/openai/v1/chat/completions"

// chatSystemPrompt is the system message sent alongside the generation
// prompt on chat-completion backends.
const chatSystemPrompt = "You are an expert fitness coach and nutritionist with medical knowledge. " +
	"Prioritize safety and health. Return ONLY valid JSON. Do not include markdown formatting."

// GroqAdapter speaks the OpenAI-compatible chat-completion shape with
// bearer authentication.
type GroqAdapter struct {
	baseURL string
	client  *http.Client
	apiKey  func() string
}

func NewGroqAdapter(client *http.Client, apiKey func() string) *GroqAdapter {
	return &GroqAdapter{baseURL: groqAPIURL, client: client, apiKey: apiKey}
}

func (a *GroqAdapter) Name() string { return "groq" }

type groqMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type groqRequest struct {
	Model       string        `json:"model"`
	Messages    []groqMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type groqResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (a *GroqAdapter) Call(ctx context.Context, prompt, model string) (string, error) {
	key := a.apiKey()
	if key == "" {
		return "", &CredentialError{Key: "GROQ_API_KEY"}
	}

	payload, err := json.Marshal(groqRequest{
		Model: model,
		Messages: []groqMessage{
			{Role: "system", Content: chatSystemPrompt},
			{Role: "user", Content: prompt},
		},
		Temperature: 0.7,
		MaxTokens:   4000,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", &TransportError{Provider: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Provider: a.Name(), Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		detail := resp.Status
		var decoded groqResponse
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != nil {
			detail = decoded.Error.Message
		}
		return "", &TransportError{Provider: a.Name(), Status: resp.StatusCode, Detail: detail}
	}

	var decoded groqResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ProviderError{Provider: a.Name(), Message: "unreadable response body"}
	}
	if decoded.Error != nil {
		return "", &ProviderError{Provider: a.Name(), Message: decoded.Error.Message}
	}
	if len(decoded.Choices) == 0 {
		return "", &ProviderError{Provider: a.Name(), Message: "no choices in response"}
	}
	return decoded.Choices[0].Message.Content, nil
}
