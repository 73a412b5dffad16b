package planner

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimalPlanJSON = `{
	"workout": [
		{"day": "Day 1", "focus": "Push", "exercises": [{"name": "Push-up", "sets": 3, "reps": "10-12"}]}
	],
	"diet": {
		"meals": {
			"breakfast": {"meal": "Oatmeal", "calories": "400"}
		}
	},
	"safety_warnings": ["Warm up first"],
	"motivation_quote": "One more rep.",
	"tips": ["Sleep well"]
}`

func TestParsePlanPlainJSON(t *testing.T) {
	plan, err := ParsePlan(minimalPlanJSON)
	require.NoError(t, err)

	require.Len(t, plan.Workout, 1)
	assert.Equal(t, "Day 1", plan.Workout[0].Day)
	assert.Equal(t, FlexString("3"), plan.Workout[0].Exercises[0].Sets)
	assert.Equal(t, "Oatmeal", plan.Diet.Meals["breakfast"].Meal)
	assert.Equal(t, []string{"Warm up first"}, plan.SafetyWarnings)

	// Unrecognised fields are preserved verbatim.
	assert.Contains(t, plan.Extra, "motivation_quote")
	assert.Contains(t, plan.Extra, "tips")
}

func TestParsePlanStrippingIsIdempotent(t *testing.T) {
	want, err := ParsePlan(minimalPlanJSON)
	require.NoError(t, err)

	wrapped := []string{
		"```json\n" + minimalPlanJSON + "\n```",
		"```\n" + minimalPlanJSON + "\n```",
		"Here is your plan:\n" + minimalPlanJSON + "\nEnjoy!",
		"`" + minimalPlanJSON + "`",
		"Sure! ```JSON\n" + minimalPlanJSON + "``` hope it helps",
	}
	for _, raw := range wrapped {
		got, err := ParsePlan(raw)
		require.NoError(t, err)
		assert.Equal(t, want.Workout, got.Workout)
		assert.Equal(t, want.Diet.Meals, got.Diet.Meals)
	}
}

func TestParsePlanNoJSON(t *testing.T) {
	for _, raw := range []string{"", "I'm sorry, I can't do that.", "```json```"} {
		_, err := ParsePlan(raw)
		assert.ErrorIs(t, err, ErrNoJSONFound, "input %q", raw)
	}

	// Braces present but not parseable.
	_, err := ParsePlan("{workout: broken}")
	assert.ErrorIs(t, err, ErrNoJSONFound)
}

func TestParsePlanSchemaViolations(t *testing.T) {
	cases := []struct {
		name string
		raw  string
	}{
		{"missing workout", `{"diet": {"meals": {"lunch": {"meal": "Salad"}}}}`},
		{"empty workout", `{"workout": [], "diet": {"meals": {"lunch": {"meal": "Salad"}}}}`},
		{"day without exercises", `{"workout": [{"day": "Day 1", "exercises": []}], "diet": {"meals": {"lunch": {"meal": "Salad"}}}}`},
		{"missing diet", `{"workout": [{"day": "Day 1", "exercises": [{"name": "Squat"}]}]}`},
		{"empty meals", `{"workout": [{"day": "Day 1", "exercises": [{"name": "Squat"}]}], "diet": {"meals": {}}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParsePlan(tc.raw)
			var sv *SchemaViolationError
			assert.ErrorAs(t, err, &sv)
		})
	}
}

func TestParsePlanAcceptsStringValuedMeals(t *testing.T) {
	raw := `{"workout": [{"day": "Day 1", "exercises": [{"name": "Squat"}]}],
		"diet": {"meals": {"breakfast": "Oatmeal with fruits", "lunch": {"meal": "Salad"}}}}`

	plan, err := ParsePlan(raw)
	require.NoError(t, err)
	assert.Equal(t, "Oatmeal with fruits", plan.Diet.Meals["breakfast"].Meal)
	assert.Equal(t, "Salad", plan.Diet.Meals["lunch"].Meal)
}

func TestParsePlanSynthesizesSafetyWarnings(t *testing.T) {
	raw := `{"workout": [{"day": "Day 1", "exercises": [{"name": "Squat"}]}],
		"diet": {"meals": {"lunch": {"meal": "Salad"}}}}`

	plan, err := ParsePlan(raw)
	require.NoError(t, err)
	require.Len(t, plan.SafetyWarnings, 1)
	assert.Equal(t, defaultSafetyWarning, plan.SafetyWarnings[0])
}

func TestPlanResultRoundTrip(t *testing.T) {
	original, err := ParsePlan(minimalPlanJSON)
	require.NoError(t, err)

	encoded, err := json.Marshal(original)
	require.NoError(t, err)

	reparsed, err := ParsePlan(string(encoded))
	require.NoError(t, err)

	assert.Equal(t, original.Workout, reparsed.Workout)
	assert.Equal(t, original.Diet, reparsed.Diet)
	assert.Equal(t, original.SafetyWarnings, reparsed.SafetyWarnings)
	assert.JSONEq(t, string(original.Extra["motivation_quote"]), string(reparsed.Extra["motivation_quote"]))
	assert.JSONEq(t, string(original.Extra["tips"]), string(reparsed.Extra["tips"]))
}

func TestFlexStringAcceptsStringAndNumber(t *testing.T) {
	var ex Exercise
	require.NoError(t, json.Unmarshal([]byte(`{"name": "Row", "sets": 4, "reps": "8", "calories": 52.5}`), &ex))
	assert.Equal(t, FlexString("4"), ex.Sets)
	assert.Equal(t, FlexString("8"), ex.Reps)
	assert.Equal(t, FlexString("52.5"), ex.Calories)

	err := json.Unmarshal([]byte(`{"sets": true}`), &ex)
	assert.Error(t, err)
}

func TestValidateProfile(t *testing.T) {
	p := UserProfile{Age: 30, Weight: 80, Height: 180}
	assert.NoError(t, p.Validate())

	for _, bad := range []UserProfile{
		{Weight: 80, Height: 180},
		{Age: 30, Height: 180},
		{Age: 30, Weight: 80},
		{Age: -1, Weight: 80, Height: 180},
	} {
		assert.True(t, errors.Is(bad.Validate(), ErrProfileInvalid))
	}
}

func TestNormalizeDefaults(t *testing.T) {
	p := UserProfile{Age: 25, Weight: 60, Height: 165}
	p.Normalize()

	assert.Equal(t, "Athlete", p.Name)
	assert.Equal(t, "Other", p.Gender)
	assert.Equal(t, "General Fitness", p.Goal)
	assert.Equal(t, ActivitySedentary, p.ActivityLevel)
	assert.Equal(t, 7.0, p.SleepHours)
	assert.Empty(t, p.HealthFactors())

	p.Allergies = "peanuts"
	p.Injuries = "knee"
	factors := p.HealthFactors()
	assert.Len(t, factors, 2)
	assert.Equal(t, "ALLERGIES: peanuts", factors[0])
	assert.Equal(t, "INJURIES: knee", factors[1])
}
