package planservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fitforge/internal/llmservice"
	"fitforge/internal/planner"
	"fitforge/internal/ragservice"
)

type stubGenerator struct {
	plan    *planner.PlanResult
	err     error
	prompts []string
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (*planner.PlanResult, []llmservice.Attempt, error) {
	s.prompts = append(s.prompts, prompt)
	attempts := []llmservice.Attempt{{
		Provider: llmservice.Descriptor{Provider: "stub", Label: "Stub Provider"},
		Status:   llmservice.AttemptSuccess,
	}}
	if s.err != nil {
		return nil, nil, s.err
	}
	return s.plan, attempts, nil
}

type emptyStore struct{}

func (emptyStore) SimilarPlans(context.Context, ragservice.ProfileBuckets, int) ([]ragservice.StoredPlan, error) {
	return nil, nil
}

func minimalPlan(t *testing.T) *planner.PlanResult {
	t.Helper()
	plan, err := planner.ParsePlan(`{
		"workout": [{"day": "Day 1", "exercises": [{"name": "Squat"}]}],
		"diet": {"meals": {"lunch": {"meal": "Salad"}}}
	}`)
	require.NoError(t, err)
	return plan
}

func newTestService(gen Generator) *Service {
	retriever := ragservice.NewRetriever(emptyStore{}, ragservice.DefaultBucketConfig(), 0, zerolog.Nop())
	return NewService(retriever, gen, zerolog.Nop())
}

func TestGeneratePlanMinimalProfileEndToEnd(t *testing.T) {
	gen := &stubGenerator{plan: minimalPlan(t)}
	svc := newTestService(gen)

	// Only the three required fields are set.
	plan, err := svc.GeneratePlan(context.Background(), planner.UserProfile{Age: 30, Weight: 80, Height: 180})
	require.NoError(t, err)
	require.NotNil(t, plan)

	require.NotNil(t, plan.Meta)
	assert.Equal(t, "Stub Provider", plan.Meta.Provider)
	assert.Equal(t, 24.7, plan.Meta.Metrics.BMI)
	assert.Equal(t, 1, plan.Meta.Attempts)
	assert.False(t, plan.Meta.RAGEnhanced)
	assert.False(t, plan.Meta.HasHealthConditions)
	assert.WithinDuration(t, time.Now(), plan.Meta.GeneratedAt, time.Minute)

	// The prompt reached the generator with normalized defaults applied.
	require.Len(t, gen.prompts, 1)
	assert.Contains(t, gen.prompts[0], "Name: Athlete")
	assert.NotContains(t, gen.prompts[0], "HIGHLY-RATED PLANS")
}

func TestGeneratePlanInvalidProfileSkipsProviders(t *testing.T) {
	gen := &stubGenerator{plan: minimalPlan(t)}
	svc := newTestService(gen)

	_, err := svc.GeneratePlan(context.Background(), planner.UserProfile{Weight: 80, Height: 180})
	assert.ErrorIs(t, err, planner.ErrProfileInvalid)
	assert.Empty(t, gen.prompts) // no provider was contacted
}

func TestGeneratePlanSurfacesExhaustion(t *testing.T) {
	gen := &stubGenerator{err: &llmservice.ExhaustedError{LastErr: errors.New("boom")}}
	svc := newTestService(gen)

	_, err := svc.GeneratePlan(context.Background(), planner.UserProfile{Age: 30, Weight: 80, Height: 180})
	var exhausted *llmservice.ExhaustedError
	assert.ErrorAs(t, err, &exhausted)
}

func TestGeneratePlanCountsHealthFactors(t *testing.T) {
	gen := &stubGenerator{plan: minimalPlan(t)}
	svc := newTestService(gen)

	profile := planner.UserProfile{
		Age: 30, Weight: 80, Height: 180,
		Allergies: "peanuts", Injuries: "knee", Medications: "insulin",
	}
	plan, err := svc.GeneratePlan(context.Background(), profile)
	require.NoError(t, err)
	assert.True(t, plan.Meta.HasHealthConditions)
	assert.Equal(t, 3, plan.Meta.HealthFactorsConsidered)
}
