/*
Package llmservice talks to the large-language-model backends. It builds
the generation prompt, translates it into each provider's request shape,
and runs the sequential fallback loop until one provider yields a
structurally valid plan.
*/
package llmservice

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// defaultRequestTimeout bounds a single provider call, polling included.
const defaultRequestTimeout = 60 * time.Second

// Descriptor is one ordered entry of the fallback chain. Order in the
// configured list defines precedence: cheapest viable first.
type Descriptor struct {
	Provider      string // adapter key: groq / gemini / huggingface / replicate
	Model         string
	Label         string // human-readable, used in logs and metadata
	CredentialEnv string // env var holding the provider secret
}

// DefaultProviders returns the stock fallback order.
func DefaultProviders() []Descriptor {
	return []Descriptor{
		{Provider: "groq", Model: "llama-3.3-70b-versatile", Label: "Groq Llama 3.3 70B", CredentialEnv: "GROQ_API_KEY"},
		{Provider: "gemini", Model: "gemini-2.5-flash", Label: "Gemini 2.5 Flash", CredentialEnv: "GEMINI_API_KEY"},
		{Provider: "gemini", Model: "gemini-pro", Label: "Gemini Pro", CredentialEnv: "GEMINI_API_KEY"},
		{Provider: "huggingface", Model: "meta-llama/Llama-3.3-70B-Instruct", Label: "HuggingFace Llama 3.3", CredentialEnv: "HUGGINGFACE_API_KEY"},
		{Provider: "replicate", Model: "meta/meta-llama-3-70b-instruct", Label: "Replicate Llama 3 70B", CredentialEnv: "REPLICATE_API_TOKEN"},
	}
}

// Adapter translates the generic prompt/model pair into one backend's
// request and response shape. Adapters surface raw text or a typed
// error; they never validate plan structure.
type Adapter interface {
	Name() string
	Call(ctx context.Context, prompt, model string) (string, error)
}

// NewAdapters wires one adapter per backend over a shared HTTP client.
// getenv supplies credentials at call time so tests can inject keys.
func NewAdapters(client *http.Client, getenv func(string) string) map[string]Adapter {
	key := func(env string) func() string {
		return func() string { return getenv(env) }
	}
	return map[string]Adapter{
		"groq":        NewGroqAdapter(client, key("GROQ_API_KEY")),
		"gemini":      NewGeminiAdapter(client, key("GEMINI_API_KEY")),
		"huggingface": NewHuggingFaceAdapter(client, key("HUGGINGFACE_API_KEY")),
		"replicate":   NewReplicateAdapter(client, key("REPLICATE_API_TOKEN")),
	}
}

// CredentialError means a provider is configured but its secret is
// absent. The orchestrator skips the provider without consuming a
// backoff delay.
type CredentialError struct {
	Key string
}

func (e *CredentialError) Error() string {
	return e.Key + " not found"
}

// TransportError covers network failures, timeouts and non-success HTTP
// statuses. Status is zero when the request never completed.
type TransportError struct {
	Provider string
	Status   int
	Detail   string
	Err      error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: request failed: %v", e.Provider, e.Err)
	case e.Detail != "":
		return fmt.Sprintf("%s: status %d: %s", e.Provider, e.Status, e.Detail)
	default:
		return fmt.Sprintf("%s: status %d", e.Provider, e.Status)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// ProviderError means the backend answered with a success status but an
// error body or unusable content. Treated like a transport failure for
// fallback purposes.
type ProviderError struct {
	Provider string
	Message  string
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Message
}
