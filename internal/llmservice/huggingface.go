package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
)

const huggingFaceAPIURL = "https://api-inference.huggingface.co/models"

// HuggingFaceAdapter speaks the inference-API single-prompt shape: an
// inputs/parameters body, answered with generated_text.
type HuggingFaceAdapter struct {
	baseURL string
	client  *http.Client
	apiKey  func() string
}

func NewHuggingFaceAdapter(client *http.Client, apiKey func() string) *HuggingFaceAdapter {
	return &HuggingFaceAdapter{baseURL: huggingFaceAPIURL, client: client, apiKey: apiKey}
}

func (a *HuggingFaceAdapter) Name() string { return "huggingface" }

type huggingFaceRequest struct {
	Inputs     string `json:"inputs"`
	Parameters struct {
		MaxNewTokens   int     `json:"max_new_tokens"`
		Temperature    float64 `json:"temperature"`
		ReturnFullText bool    `json:"return_full_text"`
	} `json:"parameters"`
}

type huggingFaceResult struct {
	GeneratedText string `json:"generated_text"`
	Error         string `json:"error"`
}

func (a *HuggingFaceAdapter) Call(ctx context.Context, prompt, model string) (string, error) {
	key := a.apiKey()
	if key == "" {
		return "", &CredentialError{Key: "HUGGINGFACE_API_KEY"}
	}

	var request huggingFaceRequest
	request.Inputs = prompt
	request.Parameters.MaxNewTokens = 4000
	request.Parameters.Temperature = 0.7
	request.Parameters.ReturnFullText = false

	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/"+model, bytes.NewReader(payload))
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
		return "", &TransportError{Provider: a.Name(), Status: resp.StatusCode, Detail: string(body)}
	}

	// The API answers with either a single result object or a one-element
	// array of them, depending on the model.
	trimmed := bytes.TrimSpace(body)
	var result huggingFaceResult
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var results []huggingFaceResult
		if err := json.Unmarshal(trimmed, &results); err != nil || len(results) == 0 {
			return "", &ProviderError{Provider: a.Name(), Message: "unreadable response body"}
		}
		result = results[0]
	} else if err := json.Unmarshal(trimmed, &result); err != nil {
		return "", &ProviderError{Provider: a.Name(), Message: "unreadable response body"}
	}

	if result.Error != "" {
		return "", &ProviderError{Provider: a.Name(), Message: result.Error}
	}
	if result.GeneratedText == "" {
		return "", &ProviderError{Provider: a.Name(), Message: "no generated_text in response"}
	}
	return result.GeneratedText, nil
}
