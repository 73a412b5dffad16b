package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"fitforge/internal/planner"
	"fitforge/internal/ragservice"
)

// ErrPlanNotFound is returned when a plan id does not exist or does not
// belong to the requesting user. The two cases are deliberately not
// distinguished.
var ErrPlanNotFound = errors.New("plan not found")

// ErrInvalidRating is returned by UpdateFeedback when the rating falls
// outside the 1-5 scale.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

const (
	similarCacheSize = 128
	similarCacheTTL  = 5 * time.Minute

	// similarCandidateFactor oversamples the similarity query so the
	// retriever has loose matches to fall back on when exact ones are
	// scarce.
	similarCandidateFactor = 4
)

// PlanRow is one saved plan as stored for a user.
type PlanRow struct {
	PlanID       uuid.UUID           `json:"plan_id"`
	UserID       string              `json:"user_id"`
	Profile      planner.UserProfile `json:"profile"`
	Plan         json.RawMessage     `json:"plan"`
	Provider     string              `json:"provider"`
	BMI          float64             `json:"bmi"`
	Rating       int                 `json:"rating,omitempty"`
	FeedbackNote string              `json:"feedback_note,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
}

// InsertPlanParams carries everything needed to persist a generated plan
// alongside its similarity buckets.
type InsertPlanParams struct {
	UserID   string
	Profile  planner.UserProfile
	Plan     *planner.PlanResult
	Buckets  ragservice.ProfileBuckets
	Provider string
	BMI      float64
}

// Queries is the hand-written query layer over the plans table. It also
// implements ragservice.ExampleStore, with a small TTL cache in front of
// the similarity query since bucketed lookups repeat heavily.
type Queries struct {
	pool    *pgxpool.Pool
	similar *expirable.LRU[string, []ragservice.StoredPlan]
}

func New(pool *pgxpool.Pool) *Queries {
	return &Queries{
		pool:    pool,
		similar: expirable.NewLRU[string, []ragservice.StoredPlan](similarCacheSize, nil, similarCacheTTL),
	}
}

// InsertPlan saves a generated plan and returns its assigned id.
func (q *Queries) InsertPlan(ctx context.Context, params InsertPlanParams) (uuid.UUID, error) {
	planData, err := json.Marshal(params.Plan)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal plan: %w", err)
	}
	userData, err := json.Marshal(params.Profile)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal profile: %w", err)
	}

	planID := uuid.New()
	_, err = q.pool.Exec(ctx, `
		INSERT INTO plans (
			plan_id, user_id, user_data, plan_data, provider, bmi,
			goal, age_range, bmi_range, diet, level, gender,
			activity_level, equipment_class, has_injuries, has_conditions,
			created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, now())`,
		planID, params.UserID, userData, planData, params.Provider, params.BMI,
		params.Buckets.Goal, params.Buckets.AgeRange, params.Buckets.BMIRange,
		params.Buckets.Diet, params.Buckets.Level, params.Buckets.Gender,
		params.Buckets.ActivityLevel, params.Buckets.EquipmentClass,
		params.Buckets.HasInjuries, params.Buckets.HasConditions,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert plan: %w", err)
	}
	return planID, nil
}

// ListPlansByUser returns the user's saved plans, newest first.
func (q *Queries) ListPlansByUser(ctx context.Context, userID string) ([]PlanRow, error) {
	rows, err := q.pool.Query(ctx, `
		SELECT plan_id, user_id, user_data, plan_data, provider, bmi,
		       COALESCE(rating, 0), COALESCE(feedback_note, ''), created_at
		FROM plans
		WHERE user_id = $1
		ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list plans: %w", err)
	}
	defer rows.Close()

	var plans []PlanRow
	for rows.Next() {
		var row PlanRow
		var userData []byte
		if err := rows.Scan(
			&row.PlanID, &row.UserID, &userData, &row.Plan, &row.Provider,
			&row.BMI, &row.Rating, &row.FeedbackNote, &row.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan plan: %w", err)
		}
		if err := json.Unmarshal(userData, &row.Profile); err != nil {
			return nil, fmt.Errorf("decode profile for plan %s: %w", row.PlanID, err)
		}
		plans = append(plans, row)
	}
	return plans, rows.Err()
}

// DeletePlan removes one of the user's plans. Deleting someone else's
// plan, or one that never existed, reports ErrPlanNotFound.
func (q *Queries) DeletePlan(ctx context.Context, userID string, planID uuid.UUID) error {
	tag, err := q.pool.Exec(ctx, `DELETE FROM plans WHERE plan_id = $1 AND user_id = $2`, planID, userID)
	if err != nil {
		return fmt.Errorf("delete plan: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	return nil
}

// UpdateFeedback records a 1-5 rating and optional note on a saved plan.
// New feedback can change what the similarity query returns, so the
// cache is dropped.
func (q *Queries) UpdateFeedback(ctx context.Context, userID string, planID uuid.UUID, rating int, note string) error {
	if rating < 1 || rating > 5 {
		return fmt.Errorf("%w, got %d", ErrInvalidRating, rating)
	}
	tag, err := q.pool.Exec(ctx, `
		UPDATE plans SET rating = $1, feedback_note = $2
		WHERE plan_id = $3 AND user_id = $4`,
		rating, note, planID, userID,
	)
	if err != nil {
		return fmt.Errorf("update feedback: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPlanNotFound
	}
	q.similar.Purge()
	return nil
}

// SimilarPlans implements ragservice.ExampleStore. Candidates are scored
// in SQL by how many bucketed dimensions they share with the request, so
// the best matches come back first even when the table is large. Only
// plans rated 4 or higher qualify as examples.
func (q *Queries) SimilarPlans(ctx context.Context, buckets ragservice.ProfileBuckets, limit int) ([]ragservice.StoredPlan, error) {
	key := similarCacheKey(buckets, limit)
	if cached, ok := q.similar.Get(key); ok {
		return cached, nil
	}

	rows, err := q.pool.Query(ctx, `
		SELECT plan_id, user_data, plan_data, rating, COALESCE(feedback_note, ''), created_at,
		       goal, age_range, bmi_range, diet, level, gender,
		       activity_level, equipment_class, has_injuries, has_conditions
		FROM plans
		WHERE rating >= 4
		ORDER BY
			((goal = $1)::int + (age_range = $2)::int + (bmi_range = $3)::int +
			 (diet = $4)::int + (level = $5)::int + (gender = $6)::int +
			 (activity_level = $7)::int + (equipment_class = $8)::int +
			 (has_injuries = $9)::int + (has_conditions = $10)::int) DESC,
			rating DESC, created_at DESC
		LIMIT $11`,
		buckets.Goal, buckets.AgeRange, buckets.BMIRange, buckets.Diet,
		buckets.Level, buckets.Gender, buckets.ActivityLevel,
		buckets.EquipmentClass, buckets.HasInjuries, buckets.HasConditions,
		limit*similarCandidateFactor,
	)
	if err != nil {
		return nil, fmt.Errorf("similar plans: %w", err)
	}
	defer rows.Close()

	plans, err := scanStoredPlans(rows)
	if err != nil {
		return nil, err
	}

	q.similar.Add(key, plans)
	return plans, nil
}

// ProviderCount is one row of the per-provider breakdown in PlanStats.
type ProviderCount struct {
	Provider string `json:"provider"`
	Count    int64  `json:"count"`
}

// PlanStats summarizes the plans table for the admin dashboard.
type PlanStats struct {
	TotalPlans    int64           `json:"total_plans"`
	RatedPlans    int64           `json:"rated_plans"`
	AverageRating float64         `json:"average_rating"`
	ByProvider    []ProviderCount `json:"by_provider"`
}

// GetPlanStats aggregates generation totals and the provider breakdown.
func (q *Queries) GetPlanStats(ctx context.Context) (PlanStats, error) {
	var stats PlanStats
	err := q.pool.QueryRow(ctx, `
		SELECT count(*),
		       count(rating),
		       COALESCE(avg(rating), 0)
		FROM plans`,
	).Scan(&stats.TotalPlans, &stats.RatedPlans, &stats.AverageRating)
	if err != nil {
		return PlanStats{}, fmt.Errorf("plan stats: %w", err)
	}

	rows, err := q.pool.Query(ctx, `
		SELECT provider, count(*)
		FROM plans
		GROUP BY provider
		ORDER BY count(*) DESC`,
	)
	if err != nil {
		return PlanStats{}, fmt.Errorf("provider breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var pc ProviderCount
		if err := rows.Scan(&pc.Provider, &pc.Count); err != nil {
			return PlanStats{}, fmt.Errorf("scan provider count: %w", err)
		}
		stats.ByProvider = append(stats.ByProvider, pc)
	}
	return stats, rows.Err()
}

func scanStoredPlans(rows pgx.Rows) ([]ragservice.StoredPlan, error) {
	var plans []ragservice.StoredPlan
	for rows.Next() {
		var (
			plan               ragservice.StoredPlan
			userData, planData []byte
		)
		if err := rows.Scan(
			&plan.ID, &userData, &planData, &plan.Rating, &plan.FeedbackNote, &plan.CreatedAt,
			&plan.Buckets.Goal, &plan.Buckets.AgeRange, &plan.Buckets.BMIRange,
			&plan.Buckets.Diet, &plan.Buckets.Level, &plan.Buckets.Gender,
			&plan.Buckets.ActivityLevel, &plan.Buckets.EquipmentClass,
			&plan.Buckets.HasInjuries, &plan.Buckets.HasConditions,
		); err != nil {
			return nil, fmt.Errorf("scan stored plan: %w", err)
		}
		if err := json.Unmarshal(userData, &plan.Profile); err != nil {
			return nil, fmt.Errorf("decode profile for plan %s: %w", plan.ID, err)
		}
		if err := json.Unmarshal(planData, &plan.Plan); err != nil {
			return nil, fmt.Errorf("decode plan %s: %w", plan.ID, err)
		}
		plans = append(plans, plan)
	}
	return plans, rows.Err()
}

func similarCacheKey(b ragservice.ProfileBuckets, limit int) string {
	return fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%t|%t|%d",
		b.Goal, b.AgeRange, b.BMIRange, b.Diet, b.Level, b.Gender,
		b.ActivityLevel, b.EquipmentClass, b.HasInjuries, b.HasConditions, limit)
}
