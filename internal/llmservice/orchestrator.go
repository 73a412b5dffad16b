package llmservice

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"fitforge/internal/planner"
)

// defaultBackoff is the fixed delay between failed provider attempts,
// owed to provider-side rate limits. Skipped providers owe no delay
// because no call was made.
const defaultBackoff = 1 * time.Second

// AttemptStatus is the terminal state of one provider attempt.
type AttemptStatus int

const (
	AttemptPending AttemptStatus = iota
	AttemptSkipped
	AttemptSuccess
	AttemptProviderError
	AttemptParseError
	AttemptValidationError
)

func (s AttemptStatus) String() string {
	switch s {
	case AttemptSkipped:
		return "skipped"
	case AttemptSuccess:
		return "success"
	case AttemptProviderError:
		return "provider_error"
	case AttemptParseError:
		return "parse_error"
	case AttemptValidationError:
		return "validation_error"
	default:
		return "pending"
	}
}

// Attempt records one provider call: who was tried, how it ended, and
// how long it took. The full attempt log is a first-class return value
// of Generate, not just a log line.
type Attempt struct {
	Provider Descriptor
	Status   AttemptStatus
	Err      error
	Elapsed  time.Duration
}

// ExhaustedError is the terminal aggregate failure: every configured
// provider failed or was skipped. It carries the last underlying error
// and the complete attempt log.
type ExhaustedError struct {
	LastErr  error
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	if e.LastErr == nil {
		return "all providers exhausted"
	}
	return "all providers exhausted: last error: " + e.LastErr.Error()
}

func (e *ExhaustedError) Unwrap() error { return e.LastErr }

// Orchestrator runs the sequential provider fallback loop. Providers are
// tried strictly in configured order — they are billed and rate-limited
// independently, so the goal is cheapest viable first, not lowest
// latency.
type Orchestrator struct {
	providers   []Descriptor
	adapters    map[string]Adapter
	getenv      func(string) string
	callTimeout time.Duration
	backoff     time.Duration
	log         zerolog.Logger
}

// NewOrchestrator builds an Orchestrator with the stock timeout and
// backoff. getenv supplies credential presence checks.
func NewOrchestrator(providers []Descriptor, adapters map[string]Adapter, getenv func(string) string, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		providers:   providers,
		adapters:    adapters,
		getenv:      getenv,
		callTimeout: defaultRequestTimeout,
		backoff:     defaultBackoff,
		log:         log,
	}
}

// Generate issues the prompt to each provider in order until one yields
// a structurally valid plan. A provider returning malformed JSON is just
// as much a failure as one returning HTTP 500: the payload, not the
// reachability of the backend, is the success criterion. The attempt log
// is returned in both the success and the failure case.
func (o *Orchestrator) Generate(ctx context.Context, prompt string) (*planner.PlanResult, []Attempt, error) {
	attempts := make([]Attempt, 0, len(o.providers))
	var lastErr error
	backoffOwed := false

	for _, desc := range o.providers {
		if err := ctx.Err(); err != nil {
			return nil, attempts, err
		}

		if o.getenv(desc.CredentialEnv) == "" {
			o.log.Debug().Str("provider", desc.Label).Msg("skipping provider, credential not configured")
			attempts = append(attempts, Attempt{Provider: desc, Status: AttemptSkipped})
			continue
		}

		adapter, ok := o.adapters[desc.Provider]
		if !ok {
			o.log.Warn().Str("provider", desc.Label).Msg("skipping provider, no adapter registered")
			attempts = append(attempts, Attempt{Provider: desc, Status: AttemptSkipped})
			continue
		}

		if backoffOwed {
			if err := sleepCtx(ctx, o.backoff); err != nil {
				return nil, attempts, err
			}
			backoffOwed = false
		}

		o.log.Info().Str("provider", desc.Label).Str("model", desc.Model).Msg("calling provider")
		start := time.Now()
		callCtx, cancel := context.WithTimeout(ctx, o.callTimeout)
		raw, err := adapter.Call(callCtx, prompt, desc.Model)
		cancel()
		elapsed := time.Since(start)

		if err != nil {
			var credErr *CredentialError
			if errors.As(err, &credErr) {
				attempts = append(attempts, Attempt{Provider: desc, Status: AttemptSkipped, Err: err})
				continue
			}
			o.log.Warn().Err(err).Str("provider", desc.Label).Dur("elapsed", elapsed).Msg("provider attempt failed")
			attempts = append(attempts, Attempt{Provider: desc, Status: AttemptProviderError, Err: err, Elapsed: elapsed})
			lastErr = err
			backoffOwed = true
			continue
		}

		plan, parseErr := planner.ParsePlan(raw)
		if parseErr != nil {
			status := AttemptParseError
			var violation *planner.SchemaViolationError
			if errors.As(parseErr, &violation) {
				status = AttemptValidationError
			}
			o.log.Warn().Err(parseErr).Str("provider", desc.Label).Msg("provider returned unusable content")
			attempts = append(attempts, Attempt{Provider: desc, Status: status, Err: parseErr, Elapsed: elapsed})
			lastErr = parseErr
			backoffOwed = true
			continue
		}

		attempts = append(attempts, Attempt{Provider: desc, Status: AttemptSuccess, Elapsed: elapsed})
		o.log.Info().Str("provider", desc.Label).Dur("elapsed", elapsed).Msg("plan generated")
		return plan, attempts, nil
	}

	o.log.Error().Msg("all providers exhausted")
	return nil, attempts, &ExhaustedError{LastErr: lastErr, Attempts: attempts}
}

// sleepCtx waits for the duration or until the context is cancelled,
// whichever comes first.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
