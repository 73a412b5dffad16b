package ragservice

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fitforge/internal/planner"
)

func TestAgeRange(t *testing.T) {
	cfg := DefaultBucketConfig()
	cases := map[int]string{
		15: "13-17",
		17: "13-17",
		18: "18-24",
		24: "18-24",
		30: "25-34",
		40: "35-44",
		54: "45-54",
		55: "55+",
		80: "55+",
	}
	for age, want := range cases {
		assert.Equal(t, want, ageRange(age, cfg.AgeBounds), "age %d", age)
	}
}

func TestBMIRange(t *testing.T) {
	cfg := DefaultBucketConfig()
	cases := map[float64]string{
		17.0: "under",
		18.5: "normal",
		24.9: "normal",
		25.0: "overweight",
		29.9: "overweight",
		30.0: "obese",
		42.0: "obese",
	}
	for bmi, want := range cases {
		assert.Equal(t, want, bmiRange(bmi, cfg.BMIBounds), "bmi %.1f", bmi)
	}
}

func TestEquipmentClass(t *testing.T) {
	cfg := DefaultBucketConfig()
	cases := map[string]string{
		"Full Gym Access":        EquipmentGym,
		"barbell and rack":       EquipmentGym,
		"Home dumbbells":         EquipmentHome,
		"resistance bands only":  EquipmentHome,
		"None":                   EquipmentNone,
		"just my bodyweight":     EquipmentNone,
		"":                       EquipmentNone,
	}
	for text, want := range cases {
		assert.Equal(t, want, equipmentClass(text, cfg), "equipment %q", text)
	}
}

func TestBucketProfile(t *testing.T) {
	p := planner.UserProfile{
		Age: 30, Gender: "Male", Weight: 80, Height: 180,
		Goal: "Muscle Gain", Level: "Intermediate", Diet: "Vegetarian",
		Equipment: "Home dumbbells", ActivityLevel: planner.ActivityModerate,
		Injuries: "left knee",
	}
	m := planner.ComputeMetrics(p)

	b := BucketProfile(p, m, DefaultBucketConfig())
	assert.Equal(t, "25-34", b.AgeRange)
	assert.Equal(t, "normal", b.BMIRange)
	assert.Equal(t, EquipmentHome, b.EquipmentClass)
	assert.Equal(t, "male", b.Gender)
	assert.True(t, b.HasInjuries)
	assert.False(t, b.HasConditions)
}

func TestMatchCount(t *testing.T) {
	a := ProfileBuckets{
		Goal: "Weight Loss", Diet: "Vegan", Level: "Beginner", Gender: "female",
		ActivityLevel: "Sedentary", AgeRange: "25-34", BMIRange: "overweight",
		EquipmentClass: EquipmentHome,
	}

	assert.Equal(t, DimensionCount, a.MatchCount(a))

	b := a
	b.Goal = "Muscle Gain"
	b.HasInjuries = true
	assert.Equal(t, DimensionCount-2, a.MatchCount(b))

	assert.Equal(t, DimensionCount, a.MatchCount(ProfileBuckets{
		Goal: "WEIGHT LOSS", Diet: "vegan", Level: "beginner", Gender: "Female",
		ActivityLevel: "sedentary", AgeRange: "25-34", BMIRange: "overweight",
		EquipmentClass: "Home",
	}))
}
