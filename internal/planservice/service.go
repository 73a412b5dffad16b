/*
Package planservice assembles the full generation pipeline: profile
validation, derived metrics, example retrieval, prompt construction and
the provider fallback loop. It is the single entry point the HTTP layer
calls for plan generation.
*/
package planservice

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"fitforge/internal/llmservice"
	"fitforge/internal/planner"
	"fitforge/internal/ragservice"
)

// Generator runs the provider fallback loop. Satisfied by
// llmservice.Orchestrator.
type Generator interface {
	Generate(ctx context.Context, prompt string) (*planner.PlanResult, []llmservice.Attempt, error)
}

// Service is the plan generation pipeline. One Service handles any
// number of concurrent requests; it holds no per-request state.
type Service struct {
	retriever *ragservice.Retriever
	generator Generator
	log       zerolog.Logger
	now       func() time.Time
}

func NewService(retriever *ragservice.Retriever, generator Generator, log zerolog.Logger) *Service {
	return &Service{
		retriever: retriever,
		generator: generator,
		log:       log,
		now:       time.Now,
	}
}

// GeneratePlan runs one request through the whole pipeline. The profile
// is validated before any provider is contacted; retrieval failure
// degrades to an example-free prompt. Only planner.ErrProfileInvalid and
// *llmservice.ExhaustedError (or a context error) ever reach the caller.
func (s *Service) GeneratePlan(ctx context.Context, profile planner.UserProfile) (*planner.PlanResult, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	profile.Normalize()

	metrics := planner.ComputeMetrics(profile)

	examples := s.retriever.Retrieve(ctx, profile, metrics)
	examplesBlock := ragservice.FormatExamples(examples)

	prompt := llmservice.BuildPlanPrompt(profile, metrics, examplesBlock)

	plan, attempts, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	factors := profile.HealthFactors()
	plan.Meta = &planner.Metadata{
		Provider:                providerLabel(attempts),
		Metrics:                 metrics,
		GeneratedAt:             s.now().UTC(),
		HasHealthConditions:     len(factors) > 0,
		HealthFactorsConsidered: len(factors),
		RAGEnhanced:             len(examples) > 0,
		Attempts:                len(attempts),
	}

	s.log.Info().
		Str("provider", plan.Meta.Provider).
		Int("attempts", len(attempts)).
		Bool("rag_enhanced", plan.Meta.RAGEnhanced).
		Msg("plan generated")
	return plan, nil
}

// providerLabel returns the label of the successful attempt.
func providerLabel(attempts []llmservice.Attempt) string {
	for _, attempt := range attempts {
		if attempt.Status == llmservice.AttemptSuccess {
			return attempt.Provider.Label
		}
	}
	return ""
}
