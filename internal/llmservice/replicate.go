package llmservice

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const replicateAPIURL = "https://api.replicate.com/v1"

// Polling bounds for the asynchronous prediction API. The attempt budget
// guarantees termination even if the remote job never settles.
const (
	replicatePollInterval = 1 * time.Second
	replicateMaxPolls     = 30
)

// ReplicateAdapter speaks the async-job shape: create a prediction, then
// poll its status URL until the job reaches a terminal state or the
// attempt budget runs out.
type ReplicateAdapter struct {
	baseURL      string
	client       *http.Client
	apiKey       func() string
	pollInterval time.Duration
	maxPolls     int
}

func NewReplicateAdapter(client *http.Client, apiKey func() string) *ReplicateAdapter {
	return &ReplicateAdapter{
		baseURL:      replicateAPIURL,
		client:       client,
		apiKey:       apiKey,
		pollInterval: replicatePollInterval,
		maxPolls:     replicateMaxPolls,
	}
}

func (a *ReplicateAdapter) Name() string { return "replicate" }

type replicatePrediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (a *ReplicateAdapter) Call(ctx context.Context, prompt, model string) (string, error) {
	key := a.apiKey()
	if key == "" {
		return "", &CredentialError{Key: "REPLICATE_API_TOKEN"}
	}

	payload, err := json.Marshal(map[string]any{
		"input": map[string]any{
			"prompt":      prompt,
			"max_tokens":  4000,
			"temperature": 0.7,
		},
	})
	if err != nil {
		return "", err
	}

	createURL := fmt.Sprintf("%s/models/%s/predictions", a.baseURL, model)
	prediction, err := a.doRequest(ctx, http.MethodPost, createURL, key, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}

	for polls := 0; !isTerminal(prediction.Status); polls++ {
		if polls >= a.maxPolls {
			return "", &TransportError{
				Provider: a.Name(),
				Detail:   fmt.Sprintf("prediction %s still %q after %d polls", prediction.ID, prediction.Status, polls),
			}
		}
		if err := sleepCtx(ctx, a.pollInterval); err != nil {
			return "", &TransportError{Provider: a.Name(), Err: err}
		}
		prediction, err = a.doRequest(ctx, http.MethodGet, prediction.URLs.Get, key, nil)
		if err != nil {
			return "", err
		}
	}

	if prediction.Status != "succeeded" {
		message := prediction.Error
		if message == "" {
			message = "prediction " + prediction.Status
		}
		return "", &ProviderError{Provider: a.Name(), Message: message}
	}
	return decodeReplicateOutput(prediction.Output)
}

func (a *ReplicateAdapter) doRequest(ctx context.Context, method, url, key string, body io.Reader) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Token "+key)

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &TransportError{Provider: a.Name(), Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Provider: a.Name(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &TransportError{Provider: a.Name(), Status: resp.StatusCode, Detail: string(raw)}
	}

	var prediction replicatePrediction
	if err := json.Unmarshal(raw, &prediction); err != nil {
		return nil, &ProviderError{Provider: a.Name(), Message: "unreadable response body"}
	}
	return &prediction, nil
}

func isTerminal(status string) bool {
	return status == "succeeded" || status == "failed" || status == "canceled"
}

// decodeReplicateOutput handles the two output encodings the API uses:
// a plain string or a list of text chunks to concatenate.
func decodeReplicateOutput(raw json.RawMessage) (string, error) {
	if len(raw) == 0 {
		return "", &ProviderError{Provider: "replicate", Message: "no output in prediction"}
	}
	var chunks []string
	if err := json.Unmarshal(raw, &chunks); err == nil {
		return strings.Join(chunks, ""), nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return text, nil
	}
	return "", &ProviderError{Provider: "replicate", Message: "unrecognised output shape"}
}
