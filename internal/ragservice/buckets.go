/*
Package ragservice retrieves highly-rated historical plans that resemble
the current profile and formats them as few-shot examples for the prompt.
Retrieval is strictly best-effort: any store failure degrades to an empty
example set and never aborts plan generation.
*/
package ragservice

import (
	"strings"

	"fitforge/internal/planner"
)

// BucketConfig holds the similarity bucketing thresholds. The boundaries
// are heuristic and deployment-tunable, so they live in configuration
// rather than in the bucketing logic.
type BucketConfig struct {
	// AgeBounds are the inclusive upper bounds of each age range; ages
	// above the last bound fall into the open-ended final range.
	AgeBounds []int

	// BMIBounds are the exclusive upper bounds of the clinical BMI
	// ranges (underweight / normal / overweight); anything above the
	// last bound is obese.
	BMIBounds []float64

	// GymKeywords and HomeKeywords classify free-text equipment
	// descriptions by substring match. Text matching neither list is
	// treated as no-equipment.
	GymKeywords  []string
	HomeKeywords []string
}

// DefaultBucketConfig returns the stock thresholds.
func DefaultBucketConfig() BucketConfig {
	return BucketConfig{
		AgeBounds:    []int{17, 24, 34, 44, 54},
		BMIBounds:    []float64{18.5, 25, 30},
		GymKeywords:  []string{"gym", "barbell", "machine", "full"},
		HomeKeywords: []string{"home", "dumbbell", "band", "kettlebell", "basic"},
	}
}

// Equipment classes produced by bucketing.
const (
	EquipmentGym  = "gym"
	EquipmentHome = "home"
	EquipmentNone = "none"
)

// ProfileBuckets is a profile reduced to the discrete dimensions the
// similarity query matches on. The same reduction is applied when a plan
// is stored and when one is retrieved, so the two sides always compare
// like with like.
type ProfileBuckets struct {
	Goal           string `json:"goal"`
	Diet           string `json:"diet"`
	Level          string `json:"level"`
	Gender         string `json:"gender"`
	ActivityLevel  string `json:"activity_level"`
	AgeRange       string `json:"age_range"`
	BMIRange       string `json:"bmi_range"`
	EquipmentClass string `json:"equipment_class"`
	HasInjuries    bool   `json:"has_injuries"`
	HasConditions  bool   `json:"has_conditions"`
}

// BucketProfile reduces a normalized profile and its metrics to bucketed
// dimensions using the given thresholds.
func BucketProfile(p planner.UserProfile, m planner.DerivedMetrics, cfg BucketConfig) ProfileBuckets {
	return ProfileBuckets{
		Goal:           p.Goal,
		Diet:           p.Diet,
		Level:          p.Level,
		Gender:         strings.ToLower(strings.TrimSpace(p.Gender)),
		ActivityLevel:  p.ActivityLevel,
		AgeRange:       ageRange(p.Age, cfg.AgeBounds),
		BMIRange:       bmiRange(m.BMI, cfg.BMIBounds),
		EquipmentClass: equipmentClass(p.Equipment, cfg),
		HasInjuries:    strings.TrimSpace(p.Injuries) != "",
		HasConditions:  strings.TrimSpace(p.ChronicConditions) != "",
	}
}

func ageRange(age int, bounds []int) string {
	labels := []string{"13-17", "18-24", "25-34", "35-44", "45-54"}
	for i, bound := range bounds {
		if age <= bound && i < len(labels) {
			return labels[i]
		}
	}
	return "55+"
}

func bmiRange(bmi float64, bounds []float64) string {
	labels := []string{"under", "normal", "overweight"}
	for i, bound := range bounds {
		if bmi < bound && i < len(labels) {
			return labels[i]
		}
	}
	return "obese"
}

func equipmentClass(equipment string, cfg BucketConfig) string {
	text := strings.ToLower(equipment)
	for _, kw := range cfg.GymKeywords {
		if strings.Contains(text, kw) {
			return EquipmentGym
		}
	}
	for _, kw := range cfg.HomeKeywords {
		if strings.Contains(text, kw) {
			return EquipmentHome
		}
	}
	return EquipmentNone
}

// MatchCount returns how many bucketed dimensions two profiles share.
// Used to derive the match tier of a retrieved example.
func (b ProfileBuckets) MatchCount(other ProfileBuckets) int {
	matches := 0
	pairs := [][2]string{
		{b.Goal, other.Goal},
		{b.Diet, other.Diet},
		{b.Level, other.Level},
		{b.Gender, other.Gender},
		{b.ActivityLevel, other.ActivityLevel},
		{b.AgeRange, other.AgeRange},
		{b.BMIRange, other.BMIRange},
		{b.EquipmentClass, other.EquipmentClass},
	}
	for _, pair := range pairs {
		if strings.EqualFold(pair[0], pair[1]) {
			matches++
		}
	}
	if b.HasInjuries == other.HasInjuries {
		matches++
	}
	if b.HasConditions == other.HasConditions {
		matches++
	}
	return matches
}

// DimensionCount is the number of dimensions MatchCount compares.
const DimensionCount = 10
