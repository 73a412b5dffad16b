package planner

import (
	"math"
	"strings"
)

// DerivedMetrics carries the physiological numbers computed from a
// profile. Computed once per request and never persisted on their own.
type DerivedMetrics struct {
	BMI             float64 `json:"bmi"`
	BMR             int     `json:"bmr"`  // kcal/day at rest (Mifflin-St Jeor)
	TDEE            int     `json:"tdee"` // BMR scaled by activity
	CalorieTarget   int     `json:"calorie_target"`
	HydrationLiters int     `json:"hydration_liters"`
}

// activityMultipliers maps activity level to the TDEE scaling factor.
// Unknown levels fall back to sedentary.
var activityMultipliers = map[string]float64{
	ActivitySedentary:  1.2,
	ActivityLight:      1.375,
	ActivityModerate:   1.55,
	ActivityVeryActive: 1.725,
}

// ComputeMetrics derives BMI, BMR, TDEE, the goal-adjusted calorie
// target and the hydration target from a validated profile. Pure and
// deterministic; it always succeeds.
func ComputeMetrics(p UserProfile) DerivedMetrics {
	heightMeters := p.Height / 100
	bmi := math.Round(p.Weight/(heightMeters*heightMeters)*10) / 10

	// Mifflin-St Jeor, branched on gender. The "other" branch uses the
	// midpoint offset between the male and female constants.
	base := 10*p.Weight + 6.25*p.Height - 5*float64(p.Age)
	var bmr float64
	switch strings.ToLower(strings.TrimSpace(p.Gender)) {
	case "male":
		bmr = base + 5
	case "female":
		bmr = base - 161
	default:
		bmr = base - 78
	}
	bmrRounded := int(math.Round(bmr))

	multiplier, ok := activityMultipliers[p.ActivityLevel]
	if !ok {
		multiplier = activityMultipliers[ActivitySedentary]
	}
	tdee := int(math.Round(float64(bmrRounded) * multiplier))

	target := tdee
	switch p.Goal {
	case GoalWeightLoss:
		target = tdee - 500
	case GoalMuscleGain:
		target = tdee + 300
	}

	return DerivedMetrics{
		BMI:             bmi,
		BMR:             bmrRounded,
		TDEE:            tdee,
		CalorieTarget:   target,
		HydrationLiters: int(math.Round(p.Weight * 0.033)),
	}
}
