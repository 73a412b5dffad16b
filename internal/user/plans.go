/*
Package user exposes the plan endpoints: generation, history, feedback.
Handlers stay thin; everything interesting happens in planservice and
the query layer.
*/
package user

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"fitforge/internal/database"
	"fitforge/internal/llmservice"
	"fitforge/internal/planner"
	"fitforge/internal/planservice"
	"fitforge/internal/ragservice"
	"fitforge/internal/utility"
)

var (
	queries *database.Queries
	planSvc *planservice.Service
	buckets ragservice.BucketConfig
)

// InitUserPackage wires the package to its collaborators. Must be called
// before any handler is registered.
func InitUserPackage(q *database.Queries, svc *planservice.Service, cfg ragservice.BucketConfig) {
	queries = q
	planSvc = svc
	buckets = cfg
	log.Info().Msg("User package initialized.")
}

// SavePlanRequest persists a generated plan against the user's history.
type SavePlanRequest struct {
	Profile planner.UserProfile `json:"profile"`
	Plan    *planner.PlanResult `json:"plan"`
}

// FeedbackRequest rates a saved plan. Highly rated plans become
// retrieval examples for future generations.
type FeedbackRequest struct {
	Rating int    `json:"rating"`
	Note   string `json:"note"`
}

// GeneratePlanHandler handles POST /api/plans/generate. Generation fans
// out to paid providers, so requests are rate limited per IP.
func GeneratePlanHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if err := utility.CheckIPRateLimit(utility.GetRealIP(c)); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	var profile planner.UserProfile
	if err := c.Bind(&profile); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	plan, err := planSvc.GeneratePlan(ctx, profile)
	if err != nil {
		if errors.Is(err, planner.ErrProfileInvalid) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		var exhausted *llmservice.ExhaustedError
		if errors.As(err, &exhausted) {
			log.Error().Err(err).Int("attempts", len(exhausted.Attempts)).Msg("All providers failed")
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "Unable to generate plan. Please try again later.",
			})
		}
		log.Error().Err(err).Msg("Plan generation failed")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to generate plan"})
	}

	return c.JSON(http.StatusOK, plan)
}

// SavePlanHandler handles POST /api/plans.
func SavePlanHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user identity"})
	}

	var req SavePlanRequest
	if err := c.Bind(&req); err != nil || req.Plan == nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := req.Profile.Validate(); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	req.Profile.Normalize()

	metrics := planner.ComputeMetrics(req.Profile)

	provider := ""
	if req.Plan.Meta != nil {
		provider = req.Plan.Meta.Provider
	}

	planID, err := queries.InsertPlan(ctx, database.InsertPlanParams{
		UserID:   userID,
		Profile:  req.Profile,
		Plan:     req.Plan,
		Buckets:  ragservice.BucketProfile(req.Profile, metrics, buckets),
		Provider: provider,
		BMI:      metrics.BMI,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to save plan")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save plan"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"plan_id": planID.String()})
}

// ListPlansHandler handles GET /api/plans.
func ListPlansHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user identity"})
	}

	plans, err := queries.ListPlansByUser(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to list plans")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to retrieve plans"})
	}
	if plans == nil {
		plans = []database.PlanRow{} // empty array, not null
	}

	return c.JSON(http.StatusOK, plans)
}

// DeletePlanHandler handles DELETE /api/plans/:plan_id.
func DeletePlanHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user identity"})
	}

	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid plan ID format"})
	}

	if err := queries.DeletePlan(ctx, userID, planID); err != nil {
		if errors.Is(err, database.ErrPlanNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Plan not found or you do not own it"})
		}
		log.Error().Err(err).Msg("Failed to delete plan")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to delete plan"})
	}

	return c.NoContent(http.StatusNoContent)
}

// SubmitFeedbackHandler handles POST /api/plans/:plan_id/feedback.
func SubmitFeedbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, err := utility.GetUserIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing user identity"})
	}

	planID, err := uuid.Parse(c.Param("plan_id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid plan ID format"})
	}

	var req FeedbackRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}

	if err := queries.UpdateFeedback(ctx, userID, planID, req.Rating, req.Note); err != nil {
		if errors.Is(err, database.ErrPlanNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": "Plan not found or you do not own it"})
		}
		if errors.Is(err, database.ErrInvalidRating) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		log.Error().Err(err).Msg("Failed to save feedback")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save feedback"})
	}

	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}
