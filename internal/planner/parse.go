package planner

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSONFound is returned when the provider output contains no
// parseable JSON object at all.
var ErrNoJSONFound = errors.New("no valid JSON found in AI response")

// SchemaViolationError reports a response that parsed as JSON but failed
// one of the required structural invariants.
type SchemaViolationError struct {
	Detail string
}

func (e *SchemaViolationError) Error() string {
	return "schema violation: " + e.Detail
}

// defaultSafetyWarning is synthesized when a plan arrives without any
// safety_warnings field. Missing safety text is recoverable; missing
// structure is not.
const defaultSafetyWarning = "Consult with a healthcare provider before starting any new fitness program."

var fenceMarker = regexp.MustCompile("(?i)```json\\s*")

// ParsePlan turns raw provider output into a validated PlanResult.
//
// Providers routinely wrap the payload in markdown fences or surround it
// with commentary despite being told not to, so the text is cleaned and
// sliced down to the outermost braces before decoding. A failed decode is
// ErrNoJSONFound; a decoded object missing the required workout or diet
// structure is a *SchemaViolationError.
func ParsePlan(raw string) (*PlanResult, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = fenceMarker.ReplaceAllString(cleaned, "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	cleaned = strings.ReplaceAll(cleaned, "`", "")

	first := strings.Index(cleaned, "{")
	last := strings.LastIndex(cleaned, "}")
	if first == -1 || last == -1 || last < first {
		return nil, ErrNoJSONFound
	}
	cleaned = cleaned[first : last+1]

	var plan PlanResult
	if err := json.Unmarshal([]byte(cleaned), &plan); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoJSONFound, err)
	}

	if err := validatePlan(&plan); err != nil {
		return nil, err
	}

	if len(plan.SafetyWarnings) == 0 {
		plan.SafetyWarnings = []string{defaultSafetyWarning}
	}
	return &plan, nil
}

// validatePlan checks the two required invariants: a non-empty workout
// sequence (each day carrying at least one named exercise) and a
// non-empty meal mapping in the diet section.
func validatePlan(plan *PlanResult) error {
	if len(plan.Workout) == 0 {
		return &SchemaViolationError{Detail: "workout must be a non-empty array"}
	}
	for i, day := range plan.Workout {
		if len(day.Exercises) == 0 {
			return &SchemaViolationError{Detail: fmt.Sprintf("workout[%d] has no exercises", i)}
		}
		for j, ex := range day.Exercises {
			if strings.TrimSpace(ex.Name) == "" {
				return &SchemaViolationError{Detail: fmt.Sprintf("workout[%d].exercises[%d] has no name", i, j)}
			}
		}
	}
	if len(plan.Diet.Meals) == 0 {
		return &SchemaViolationError{Detail: "diet.meals must be a non-empty object"}
	}
	return nil
}
