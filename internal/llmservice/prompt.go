package llmservice

import (
	"fmt"
	"strings"

	"fitforge/internal/planner"
)

/* =================================================================================
						PROMPT ENGINEERING & GUARDRAILS
=================================================================================*/

// planSchemaTemplate is the exact output structure the model must emit,
// stated as literal template text. The field names here are the same
// ones planner.ParsePlan checks for; the two must evolve together.
const planSchemaTemplate = `REQUIRED JSON STRUCTURE:
{
  "safety_warnings": ["warning1", "warning2"],
  "motivation_quote": "Short, punchy, personalized quote",
  "results_timeline": {
    "estimated_start": "e.g., 2-4 weeks",
    "milestones": ["Week 2: ...", "Week 4: ...", "Week 8: ...", "Week 12: ..."]
  },
  "health_considerations": {
    "modifications": "Specific modifications",
    "monitoring": "What to track",
    "red_flags": "Warning signs"
  },
  "tips": ["Tip 1", "Tip 2", "Tip 3", "Tip 4"],
  "workout": [
    {
      "day": "Day 1",
      "focus": "Push / Pull / Legs / Cardio / Recovery",
      "duration": "45-60 mins",
      "intensity": "Low/Moderate/High",
      "exercises": [
        {
          "name": "Exercise Name",
          "sets": "3",
          "reps": "10-12",
          "rest": "60s",
          "calories": "50",
          "modification": "Alternative if user has injury"
        }
      ],
      "notes": "Specific guidance"
    }
  ],
  "diet": {
    "strategy": {
      "week_1": "Focus on adaptation",
      "week_2": "Optimize macros",
      "week_3_4": "Fine-tune based on progress",
      "allergy_notes": "Foods avoided and alternatives"
    },
    "calorie_target": {
      "daily": "%d kcal",
      "explanation": "Why this target"
    },
    "macros": {
      "protein": "Xg",
      "carbs": "Xg",
      "fats": "Xg"
    },
    "meals": {
      "breakfast": {"meal": "Name", "calories": "400", "protein": "30g", "carbs": "40g", "fats": "15g", "portion": "Exact ingredients with measurements", "prep_time": "10 mins", "allergy_safe": "Yes/No with alternatives"},
      "mid_morning_snack": {"meal": "Name", "calories": "150", "portion": "Exact ingredients", "prep_time": "5 mins"},
      "lunch": {"meal": "Name", "calories": "500", "protein": "40g", "carbs": "50g", "fats": "20g", "portion": "Exact ingredients", "prep_time": "15 mins", "allergy_safe": "Yes/No with alternatives"},
      "afternoon_snack": {"meal": "Name", "calories": "200", "portion": "Exact ingredients", "prep_time": "5 mins"},
      "dinner": {"meal": "Name", "calories": "550", "protein": "45g", "carbs": "45g", "fats": "20g", "portion": "Exact ingredients", "prep_time": "20 mins", "allergy_safe": "Yes/No with alternatives"},
      "evening_snack": {"meal": "Optional light snack", "calories": "100", "portion": "Exact ingredients", "prep_time": "2 mins"}
    }
  },
  "hydration": {
    "target": "%dL minimum",
    "timing": "When and how much to drink",
    "signs_of_dehydration": ["Dark urine", "Fatigue", "Dizziness"]
  },
  "recovery": {
    "sleep_target": "7-9 hours (they currently get %.1f)",
    "rest_days": "How many per week and why",
    "stress_management": "Techniques for their stress level",
    "stretching": "Daily routine"
  },
  "supplements": ["Supplement 1 with reason", "Note: Consult doctor"],
  "progress_tracking": {
    "measurements": ["Weight", "Body measurements", "Progress photos"],
    "performance": ["Strength gains", "Endurance improvements"],
    "health_metrics": ["Energy levels", "Sleep quality", "Mood"]
  }
}`

// BuildPlanPrompt composes the full generation prompt: role preamble,
// retrieved examples (when present), the profile with derived metrics,
// the safety checklist, the output schema and the JSON-only closing
// instruction. Pure and deterministic given its inputs.
func BuildPlanPrompt(p planner.UserProfile, m planner.DerivedMetrics, examplesBlock string) string {
	var b strings.Builder

	b.WriteString("You are an elite Personal Trainer, Nutritionist, and Health Professional.\n")
	b.WriteString("Generate a highly detailed, SAFE, and personalized fitness plan in JSON format only. No markdown, no intro text.\n")

	if examplesBlock != "" {
		b.WriteString(examplesBlock)
	}

	fmt.Fprintf(&b, `
USER PROFILE:
- Name: %s
- Bio: %dyrs, %s, %.0fkg, %.0fcm (BMI: %.1f)
- BMR: %d kcal/day | TDEE: %d kcal/day
- Goal: %s
- Experience: %s
- Diet Preference: %s
- Equipment Access: %s
- Activity Level: %s
- Sleep: %.1f hours/night
- Water Intake: %.1fL/day
- Stress Level: %s
`,
		p.Name, p.Age, p.Gender, p.Weight, p.Height, m.BMI,
		m.BMR, m.TDEE,
		p.Goal, p.Level, p.Diet, p.Equipment, p.ActivityLevel,
		p.SleepHours, p.WaterIntake, p.StressLevel)

	if factors := p.HealthFactors(); len(factors) > 0 {
		b.WriteString("\nCRITICAL HEALTH CONSIDERATIONS:\n")
		for _, factor := range factors {
			b.WriteString("- " + factor + "\n")
		}
		b.WriteString("You MUST consider these factors when creating the plan.\n")
	}

	b.WriteString(`
CRITICAL SAFETY REQUIREMENTS:
1. If user has injuries, MODIFY exercises to avoid affected areas
2. If user has chronic conditions, adjust intensity and include monitoring advice
3. If user has allergies, EXCLUDE those foods completely
4. If user takes medications, consider their effects
5. Include specific warnings and modifications

PLAN REQUIREMENTS:
1. SAFETY FIRST: Address all medical concerns explicitly
2. RESULTS TIMELINE: Be honest about when they'll see changes
3. DIET STRATEGY: Week-by-week progression with allergy considerations
4. WORKOUT: 3-5 days with injury modifications if needed
5. MACROS: Calculate based on TDEE and goal
6. HYDRATION & RECOVERY: Specific to their lifestyle

`)

	fmt.Fprintf(&b, planSchemaTemplate, m.CalorieTarget, m.HydrationLiters, p.SleepHours)

	b.WriteString("\n\nGenerate a comprehensive, safe, and personalized plan now. ")
	b.WriteString("Return ONLY the JSON object. No prose, no markdown fences.")
	return b.String()
}
