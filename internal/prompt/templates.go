package prompt

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

/* =================================================================================
						PROMPT ENGINEERING TEMPLATES
	Natural-language prompts, one per feature. They are text/template sources so
	they can be overridden from a YAML file without recompiling.
=================================================================================*/

// MealPlanTemplate asks for a 7-day plan built around the user's blueprint.
const MealPlanTemplate = `You are an expert nutrition assistant. Using the user's health profile below, generate a personalized 7-day meal plan that aligns with their goals, dietary preferences, restrictions, and lifestyle.

**User Health Profile**
- Goals: {{.Profile.Goals}}
- Medical Conditions: {{.Profile.Conditions}}
- Fitness Routine: {{.Profile.Routines}}
- Food Preferences: {{join .Profile.Preferences}}
- Dietary Restrictions: {{join .Profile.Restrictions}}
- Additional Requirements: {{.Requirements}}

**Required Output**
1. A 7-day meal plan with:
   - Breakfast
   - Lunch
   - Dinner
   - Snacks
2. Daily nutritional breakdown:
   - Calories
   - Protein
   - Carbs
   - Fats
3. Brief rationale for each meal choice, explaining how it supports the user's goals and respects dietary restrictions
4. Consolidated shopping list organized by category (produce, pantry, protein, etc.)
5. Practical prep tips, batch-cooking suggestions, and time-saving ideas

**Formatting Instructions**
- Use numbered days (Day 1, Day 2, ...)
- Present meals as bullet points with ingredients and portion sizes
- Use tables for nutritional breakdown if possible
- Keep explanations concise, actionable, and goal-focused
- Output must be clearly structured for easy reading and copy-paste

**Tone and Style**
- Friendly and encouraging
- Professional and science-based
- Focus on actionable, practical advice`

// FoodAnalysisTemplate asks for a per-item breakdown of the attached photo.
const FoodAnalysisTemplate = `You are an expert nutritionist and dietitian. Analyze the uploaded food image thoroughly.

**Instructions:**
1. Identify all visible food items in the image.
2. Provide for each item:
   - Estimated calories
   - Macronutrient breakdown (protein, carbs, fats)
   - Key vitamins and minerals
   - Potential health benefits
   - Any dietary concerns (e.g., allergens, restrictions)
   - Suggested portion sizes
3. If multiple foods are present, analyze each separately.
4. Provide practical serving suggestions if relevant.
5. Format output clearly using headings and bullet points.

Keep the analysis **concise, actionable, and easy to read** for a user aiming for healthy eating.`

// HealthInsightTemplate answers a free-text question in light of the profile.
const HealthInsightTemplate = `You are a top-tier nutritionist and health coach. Provide **personalized, actionable, science-backed insights** based on the user's query.

**User Question:**
{{.Query}}

**User Health Profile:**
- Goals: {{.Profile.Goals}}
- Medical Conditions: {{.Profile.Conditions}}
- Fitness Routine: {{.Profile.Routines}}
- Food Preferences: {{join .Profile.Preferences}}
- Dietary Restrictions: {{join .Profile.Restrictions}}

**Your Response Should Include:**
1. Clear, science-backed explanation of the topic.
2. Practical, actionable recommendations (diet, lifestyle, supplements).
3. Any relevant precautions or warnings.
4. References to studies or evidence when applicable.
5. Suggested foods, routines, or strategies tailored to the user.

**Tone & Style:**
- Friendly, motivating, and modern.
- Easy-to-understand without sacrificing accuracy.
- Structured using headings, bullet points, or numbered lists for readability.

Keep the response **concise, empowering, and focused on the user's health journey**.`

// Templates groups the natural-language template sources.
type Templates struct {
	MealPlan      string `yaml:"meal_plan"`
	FoodAnalysis  string `yaml:"food_analysis"`
	HealthInsight string `yaml:"health_insight"`
}

// DefaultTemplates returns the built-in prompts.
func DefaultTemplates() Templates {
	return Templates{
		MealPlan:      MealPlanTemplate,
		FoodAnalysis:  FoodAnalysisTemplate,
		HealthInsight: HealthInsightTemplate,
	}
}

// LoadTemplates reads overrides from a YAML file. Keys missing from the file keep
// their built-in value. An empty path returns the defaults.
func LoadTemplates(path string) (Templates, error) {
	t := DefaultTemplates()
	if path == "" {
		return t, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("failed to read prompts file: %w", err)
	}
	if err := yaml.Unmarshal(data, &t); err != nil {
		return t, fmt.Errorf("failed to parse prompts file %s: %w", path, err)
	}
	return t, nil
}
