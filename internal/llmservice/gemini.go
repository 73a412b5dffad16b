package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const geminiAPIURL = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiAdapter speaks the generateContent shape: the prompt travels as
// content parts and the key rides a query parameter instead of a header.
type GeminiAdapter struct {
	baseURL string
	client  *http.Client
	apiKey  func() string
}

func NewGeminiAdapter(client *http.Client, apiKey func() string) *GeminiAdapter {
	return &GeminiAdapter{baseURL: geminiAPIURL, client: client, apiKey: apiKey}
}

func (a *GeminiAdapter) Name() string { return "gemini" }

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPayload struct {
	Contents []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (a *GeminiAdapter) Call(ctx context.Context, prompt, model string) (string, error) {
	key := a.apiKey()
	if key == "" {
		return "", &CredentialError{Key: "GEMINI_API_KEY"}
	}

	payload, err := json.Marshal(geminiPayload{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/%s:generateContent?key=%s", a.baseURL, model, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

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
		return "", &TransportError{Provider: a.Name(), Status: resp.StatusCode, Detail: string(body)}
	}

	var decoded geminiResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ProviderError{Provider: a.Name(), Message: "unreadable response body"}
	}
	if len(decoded.Candidates) == 0 || len(decoded.Candidates[0].Content.Parts) == 0 {
		return "", &ProviderError{Provider: a.Name(), Message: "no content found in response"}
	}
	return decoded.Candidates[0].Content.Parts[0].Text, nil
}
