package ragservice

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"fitforge/internal/planner"
)

// DefaultLimit is how many examples a retrieval requests when the caller
// does not say otherwise.
const DefaultLimit = 3

// maxExerciseNamesPerDay bounds how much workout detail one example
// contributes to the prompt. Detail is truncated rather than the example
// count, so the prompt always sees every retrieved plan.
const maxExerciseNamesPerDay = 2

// StoredPlan is a read-only snapshot of a previously generated, rated
// plan as returned by the example store. Never mutated by the retriever.
type StoredPlan struct {
	ID           string
	Profile      planner.UserProfile
	Plan         planner.PlanResult
	Buckets      ProfileBuckets
	Rating       int // 1-5
	FeedbackNote string
	CreatedAt    time.Time
}

// ExampleStore is the external store collaborator. Implementations run
// the similarity query of the plan database.
type ExampleStore interface {
	SimilarPlans(ctx context.Context, buckets ProfileBuckets, limit int) ([]StoredPlan, error)
}

// Example is a retrieved plan labelled with its match tier. Tier 1 means
// every bucketed dimension matched; each missing dimension adds one.
type Example struct {
	Plan StoredPlan
	Tier int
}

// Retriever ranks store results against the current profile.
type Retriever struct {
	store ExampleStore
	cfg   BucketConfig
	limit int
	log   zerolog.Logger
}

// NewRetriever builds a Retriever over the given store. A limit of zero
// means DefaultLimit.
func NewRetriever(store ExampleStore, cfg BucketConfig, limit int, log zerolog.Logger) *Retriever {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Retriever{store: store, cfg: cfg, limit: limit, log: log}
}

// Retrieve returns up to the configured number of examples ordered by
// match tier, then stored rating, then recency. An empty result is not
// an error; a store failure is logged and likewise returns empty.
func (r *Retriever) Retrieve(ctx context.Context, profile planner.UserProfile, metrics planner.DerivedMetrics) []Example {
	if r.store == nil {
		return nil
	}

	buckets := BucketProfile(profile, metrics, r.cfg)

	plans, err := r.store.SimilarPlans(ctx, buckets, r.limit)
	if err != nil {
		r.log.Warn().Err(err).Msg("example store query failed, continuing without examples")
		return nil
	}

	examples := make([]Example, 0, len(plans))
	for _, plan := range plans {
		tier := 1 + DimensionCount - buckets.MatchCount(plan.Buckets)
		examples = append(examples, Example{Plan: plan, Tier: tier})
	}

	sort.SliceStable(examples, func(i, j int) bool {
		a, b := examples[i], examples[j]
		if a.Tier != b.Tier {
			return a.Tier < b.Tier
		}
		if a.Plan.Rating != b.Plan.Rating {
			return a.Plan.Rating > b.Plan.Rating
		}
		return a.Plan.CreatedAt.After(b.Plan.CreatedAt)
	})

	if len(examples) > r.limit {
		examples = examples[:r.limit]
	}
	return examples
}

// FormatExamples renders retrieved examples as a delimited prompt block.
// Per-example detail is truncated to keep the prompt bounded. An empty
// input produces an empty string so the prompt carries no examples
// section at all.
func FormatExamples(examples []Example) string {
	if len(examples) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n=== HIGHLY-RATED PLANS FROM SIMILAR USERS (use as inspiration) ===\n")
	for i, ex := range examples {
		p := ex.Plan
		fmt.Fprintf(&b, "\nExample %d (rated %d/5 by a %s, match quality: %s):\n",
			i+1, p.Rating, profileLine(p.Profile), tierLabel(ex.Tier))
		fmt.Fprintf(&b, "  Workout structure: %s\n", workoutSummary(p.Plan.Workout))
		if meals := mealSummary(p.Plan.Diet.Meals); meals != "" {
			fmt.Fprintf(&b, "  Meals: %s\n", meals)
		}
		if len(p.Plan.Diet.CalorieTarget) > 0 {
			fmt.Fprintf(&b, "  Calorie target: %s\n", string(p.Plan.Diet.CalorieTarget))
		}
		if p.FeedbackNote != "" {
			fmt.Fprintf(&b, "  User feedback: %q\n", p.FeedbackNote)
		}
	}
	b.WriteString("\n=== END OF EXAMPLES ===\n")
	b.WriteString("Use the patterns above as reference for structure, intensity, and meal variety.\n")
	b.WriteString("Adapt them to this user's specific profile - do NOT copy verbatim.\n")
	return b.String()
}

func profileLine(p planner.UserProfile) string {
	return fmt.Sprintf("%dy %s, %.0fkg, goal %s, level %s",
		p.Age, p.Gender, p.Weight, p.Goal, p.Level)
}

func tierLabel(tier int) string {
	switch {
	case tier <= 2:
		return "very close match"
	case tier <= 4:
		return "close match"
	default:
		return "partial match"
	}
}

func workoutSummary(days []planner.WorkoutDay) string {
	parts := make([]string, 0, len(days))
	for _, day := range days {
		names := make([]string, 0, maxExerciseNamesPerDay)
		for _, ex := range day.Exercises {
			if len(names) == maxExerciseNamesPerDay {
				break
			}
			names = append(names, ex.Name)
		}
		part := day.Day
		if day.Focus != "" {
			part += ": " + day.Focus
		}
		if len(names) > 0 {
			part += " (" + strings.Join(names, ", ") + ")"
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, ", ")
}

func mealSummary(meals map[string]planner.Meal) string {
	names := make([]string, 0, len(meals))
	for _, meal := range meals {
		if meal.Meal != "" {
			names = append(names, meal.Meal)
		}
	}
	sort.Strings(names) // map order is random; keep output deterministic
	return strings.Join(names, ", ")
}
