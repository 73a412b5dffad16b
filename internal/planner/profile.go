/*
Package planner holds the core domain types of the plan generation
pipeline: the incoming user profile, the physiological metrics derived
from it, and the validated plan structure returned by the AI providers.
*/
package planner

import (
	"errors"
	"fmt"
	"strings"
)

// ErrProfileInvalid is returned when the incoming profile is missing one
// of the numeric fields every downstream calculation depends on. It is
// the only pre-flight error the pipeline surfaces to the caller.
var ErrProfileInvalid = errors.New("profile invalid")

// Goal values recognised by the calorie target adjustment.
const (
	GoalWeightLoss = "Weight Loss"
	GoalMuscleGain = "Muscle Gain"
)

// Activity level values recognised by the TDEE multiplier table.
const (
	ActivitySedentary  = "Sedentary"
	ActivityLight      = "Lightly Active"
	ActivityModerate   = "Moderately Active"
	ActivityVeryActive = "Very Active"
)

// UserProfile is the request payload handed in by the web layer.
// JSON field names match the original client form exactly.
type UserProfile struct {
	Name   string  `json:"name,omitempty"`
	Age    int     `json:"age"`
	Gender string  `json:"gender,omitempty"` // Male / Female / Other
	Weight float64 `json:"weight"`           // kg
	Height float64 `json:"height"`           // cm

	Goal      string `json:"goal,omitempty"`
	Level     string `json:"level,omitempty"` // Beginner / Intermediate / Advanced
	Diet      string `json:"diet,omitempty"`
	Equipment string `json:"equipment,omitempty"`

	// Free-text health fields. Empty means "none reported".
	MedicalHistory    string `json:"medicalHistory,omitempty"`
	Allergies         string `json:"allergies,omitempty"`
	Medications       string `json:"medications,omitempty"`
	Injuries          string `json:"injuries,omitempty"`
	ChronicConditions string `json:"chronicConditions,omitempty"`

	SleepHours    float64 `json:"sleepHours,omitempty"`
	WaterIntake   float64 `json:"waterIntake,omitempty"` // litres/day
	StressLevel   string  `json:"stressLevel,omitempty"`
	ActivityLevel string  `json:"activityLevel,omitempty"`
}

// Validate checks the hard requirements: age, weight and height must be
// present and positive. Everything else is optional and defaulted by
// Normalize. Violations wrap ErrProfileInvalid so callers can match with
// errors.Is.
func (p *UserProfile) Validate() error {
	if p.Age <= 0 {
		return fmt.Errorf("%w: age must be a positive number", ErrProfileInvalid)
	}
	if p.Weight <= 0 {
		return fmt.Errorf("%w: weight must be a positive number", ErrProfileInvalid)
	}
	if p.Height <= 0 {
		return fmt.Errorf("%w: height must be a positive number", ErrProfileInvalid)
	}
	return nil
}

// Normalize fills safe neutral values for the optional fields so that
// prompt building and bucketing never have to special-case blanks.
func (p *UserProfile) Normalize() {
	if strings.TrimSpace(p.Name) == "" {
		p.Name = "Athlete"
	}
	if strings.TrimSpace(p.Gender) == "" {
		p.Gender = "Other"
	}
	if strings.TrimSpace(p.Goal) == "" {
		p.Goal = "General Fitness"
	}
	if strings.TrimSpace(p.Level) == "" {
		p.Level = "Beginner"
	}
	if strings.TrimSpace(p.Diet) == "" {
		p.Diet = "No Preference"
	}
	if strings.TrimSpace(p.Equipment) == "" {
		p.Equipment = "None"
	}
	if strings.TrimSpace(p.ActivityLevel) == "" {
		p.ActivityLevel = ActivitySedentary
	}
	if strings.TrimSpace(p.StressLevel) == "" {
		p.StressLevel = "Moderate"
	}
	if p.SleepHours <= 0 {
		p.SleepHours = 7
	}
	if p.WaterIntake <= 0 {
		p.WaterIntake = 2
	}
}

// HealthFactors lists the non-empty free-text health fields in a fixed
// order, each prefixed with its label. Used both for prompt building and
// for the response metadata count.
func (p *UserProfile) HealthFactors() []string {
	var factors []string
	if strings.TrimSpace(p.Allergies) != "" {
		factors = append(factors, "ALLERGIES: "+p.Allergies)
	}
	if strings.TrimSpace(p.ChronicConditions) != "" {
		factors = append(factors, "CHRONIC CONDITIONS: "+p.ChronicConditions)
	}
	if strings.TrimSpace(p.Injuries) != "" {
		factors = append(factors, "INJURIES: "+p.Injuries)
	}
	if strings.TrimSpace(p.Medications) != "" {
		factors = append(factors, "MEDICATIONS: "+p.Medications)
	}
	if strings.TrimSpace(p.MedicalHistory) != "" {
		factors = append(factors, "MEDICAL NOTES: "+p.MedicalHistory)
	}
	return factors
}
