package planner

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// FlexString is a string that also accepts a JSON number when decoding.
// Models are inconsistent about quoting sets/reps/calories, so "3" and 3
// must both land in the same field.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("empty value")
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

// Exercise is one entry of a workout day.
type Exercise struct {
	Name         string     `json:"name"`
	Sets         FlexString `json:"sets,omitempty"`
	Reps         FlexString `json:"reps,omitempty"`
	Rest         FlexString `json:"rest,omitempty"`
	Calories     FlexString `json:"calories,omitempty"`
	Modification string     `json:"modification,omitempty"`
}

// WorkoutDay is one ordered entry of the workout sequence.
type WorkoutDay struct {
	Day       string     `json:"day"`
	Focus     string     `json:"focus,omitempty"`
	Duration  FlexString `json:"duration,omitempty"`
	Intensity string     `json:"intensity,omitempty"`
	Exercises []Exercise `json:"exercises"`
	Notes     string     `json:"notes,omitempty"`
}

// Meal is one slot of the diet section. Only the meal name is required;
// the rest passes through as the model produced it.
type Meal struct {
	Meal        string     `json:"meal"`
	Calories    FlexString `json:"calories,omitempty"`
	Protein     FlexString `json:"protein,omitempty"`
	Carbs       FlexString `json:"carbs,omitempty"`
	Fats        FlexString `json:"fats,omitempty"`
	Portion     string     `json:"portion,omitempty"`
	PrepTime    string     `json:"prep_time,omitempty"`
	AllergySafe string     `json:"allergy_safe,omitempty"`
}

// UnmarshalJSON accepts either a meal object or a bare string. Some
// models collapse a meal slot to just its description, which is still a
// valid meal.
func (m *Meal) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Meal{Meal: s}
		return nil
	}
	type alias Meal // avoid recursing into this method
	var typed alias
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	*m = Meal(typed)
	return nil
}

// Diet is the diet section of a plan. Strategy, calorie target and
// macros are preserved raw; only the meal map is structurally required.
type Diet struct {
	Strategy      json.RawMessage `json:"strategy,omitempty"`
	CalorieTarget json.RawMessage `json:"calorie_target,omitempty"`
	Macros        json.RawMessage `json:"macros,omitempty"`
	Meals         map[string]Meal `json:"meals"`
}

// Metadata describes how a plan was produced. Attached to every
// successful result but never part of structural validity.
type Metadata struct {
	Provider                string         `json:"provider"`
	Metrics                 DerivedMetrics `json:"metrics"`
	GeneratedAt             time.Time      `json:"generatedAt"`
	HasHealthConditions     bool           `json:"hasHealthConditions"`
	HealthFactorsConsidered int            `json:"healthFactorsConsidered"`
	RAGEnhanced             bool           `json:"ragEnhanced"`
	Attempts                int            `json:"attempts"`
}

// PlanResult is the validated plan returned by the pipeline. Workout,
// Diet and SafetyWarnings are typed; every other top-level field the
// model produced is kept verbatim in Extra so nothing is lost between
// parsing and persistence.
type PlanResult struct {
	Workout        []WorkoutDay               `json:"workout"`
	Diet           Diet                       `json:"diet"`
	SafetyWarnings []string                   `json:"safety_warnings"`
	Extra          map[string]json.RawMessage `json:"-"`

	Meta *Metadata `json:"_metadata,omitempty"`
}

// knownPlanFields are the top-level keys decoded into typed fields; all
// other keys go to Extra.
var knownPlanFields = map[string]bool{
	"workout":         true,
	"diet":            true,
	"safety_warnings": true,
	"_metadata":       true,
}

// UnmarshalJSON decodes the typed fields and routes everything else into
// the Extra bag.
func (p *PlanResult) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	type alias PlanResult // avoid recursing into this method
	var typed alias
	if err := json.Unmarshal(data, &typed); err != nil {
		return err
	}
	*p = PlanResult(typed)

	for key, value := range raw {
		if knownPlanFields[key] {
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[key] = value
	}
	return nil
}

// MarshalJSON emits the typed fields plus the preserved extras as one
// flat object, matching the shape the provider originally returned.
func (p PlanResult) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+4)
	for key, value := range p.Extra {
		out[key] = value
	}

	workout, err := json.Marshal(p.Workout)
	if err != nil {
		return nil, err
	}
	out["workout"] = workout

	diet, err := json.Marshal(p.Diet)
	if err != nil {
		return nil, err
	}
	out["diet"] = diet

	warnings, err := json.Marshal(p.SafetyWarnings)
	if err != nil {
		return nil, err
	}
	out["safety_warnings"] = warnings

	if p.Meta != nil {
		meta, err := json.Marshal(p.Meta)
		if err != nil {
			return nil, err
		}
		out["_metadata"] = meta
	}
	return json.Marshal(out)
}

// Summary returns a short single-line description of the plan, used when
// formatting a stored plan as a retrieval example.
func (p *PlanResult) Summary() string {
	return strconv.Itoa(len(p.Workout)) + " workout days, " +
		strconv.Itoa(len(p.Diet.Meals)) + " meal slots"
}
