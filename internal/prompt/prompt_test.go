package prompt

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"MetaMeal/internal/profile"
	"MetaMeal/internal/upload"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProfile() profile.HealthProfile {
	return profile.HealthProfile{
		Goals:        "Lose 5kg",
		Conditions:   "None",
		Routines:     "Run 2x/week",
		Preferences:  []string{"Vegan"},
		Restrictions: []string{"No gluten"},
	}
}

func newBuilder(t *testing.T, style Style) *Builder {
	t.Helper()
	b, err := NewBuilder(style, DefaultTemplates())
	require.NoError(t, err)
	return b
}

func render(t *testing.T, p Payload) string {
	t.Helper()
	s, err := p.Render()
	require.NoError(t, err)
	return s
}

func TestMealPlanContainsProfileValues(t *testing.T) {
	for _, style := range []Style{StyleText, StyleStructured} {
		t.Run(string(style), func(t *testing.T) {
			p, err := newBuilder(t, style).MealPlan(sampleProfile(), "")
			require.NoError(t, err)

			assert.Equal(t, FeatureMealPlan, p.Feature)
			assert.Nil(t, p.Image)

			out := render(t, p)
			for _, want := range []string{"Lose 5kg", "Vegan", "No gluten", "Run 2x/week"} {
				assert.Contains(t, out, want)
			}
		})
	}
}

func TestMealPlanKeepsValuesVerbatim(t *testing.T) {
	long := "Reach 70kg by summer while keeping energy for climbing; avoid crash diets, no fasting windows"
	pr := profile.HealthProfile{
		Goals:        long,
		Preferences:  []string{"Mediterranean", "High protein"},
		Restrictions: []string{"Shellfish allergy"},
	}

	p, err := newBuilder(t, StyleText).MealPlan(pr, "Quick meals for work days")
	require.NoError(t, err)

	out := render(t, p)
	assert.Contains(t, out, long)
	assert.Contains(t, out, "Food Preferences: Mediterranean, High protein")
	assert.Contains(t, out, "Dietary Restrictions: Shellfish allergy")
	assert.Contains(t, out, "Additional Requirements: Quick meals for work days")
}

func TestPayloadKeepsMarkupCharacters(t *testing.T) {
	pr := sampleProfile()
	pr.Goals = "Lose 5kg & keep BP <140"
	pr.Preferences = []string{"Fish & chips"}

	for _, style := range []Style{StyleText, StyleStructured} {
		t.Run(string(style), func(t *testing.T) {
			b := newBuilder(t, style)

			plan, err := b.MealPlan(pr, "Snacks > 2 per day")
			require.NoError(t, err)
			out := render(t, plan)
			assert.Contains(t, out, "Lose 5kg & keep BP <140")
			assert.Contains(t, out, "Fish & chips")
			assert.Contains(t, out, "Snacks > 2 per day")
			assert.NotContains(t, out, `\u0026`)

			insight, err := b.HealthInsight(pr, "Is salt < 5g & sugar ok?")
			require.NoError(t, err)
			assert.Contains(t, render(t, insight), "Is salt < 5g & sugar ok?")
		})
	}
}

func TestStructuredRenderHasNoTrailingNewline(t *testing.T) {
	p, err := newBuilder(t, StyleStructured).MealPlan(sampleProfile(), "")
	require.NoError(t, err)
	out := render(t, p)
	assert.True(t, strings.HasSuffix(out, "}"))
}

func TestMealPlanEmptyExtra(t *testing.T) {
	text, err := newBuilder(t, StyleText).MealPlan(sampleProfile(), "  ")
	require.NoError(t, err)
	assert.Contains(t, render(t, text), "Additional Requirements: None")

	structured, err := newBuilder(t, StyleStructured).MealPlan(sampleProfile(), "")
	require.NoError(t, err)
	assert.Equal(t, "None provided", structured.Request.AdditionalRequirements)
}

func TestMealPlanStructuredShape(t *testing.T) {
	p, err := newBuilder(t, StyleStructured).MealPlan(sampleProfile(), "Budget friendly")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(render(t, p)), &decoded))

	assert.Equal(t, "Generate a personalized 7-day meal plan", decoded["task"])
	assert.Equal(t, "Budget friendly", decoded["additional_requirements"])

	up, ok := decoded["user_profile"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Lose 5kg", up["goals"])
	assert.Equal(t, []any{"Vegan"}, up["preferences"])
	assert.Equal(t, []any{"No gluten"}, up["restrictions"])

	format, ok := decoded["output_format"].(map[string]any)
	require.True(t, ok)
	days, ok := format["days"].([]any)
	require.True(t, ok)
	require.Len(t, days, 1)
	day := days[0].(map[string]any)
	for _, key := range []string{"meals", "nutrition", "context", "preparation_tips", "shopping_list"} {
		assert.Contains(t, day, key)
	}
}

func TestFoodAnalysisCarriesImage(t *testing.T) {
	stub := []byte{0x89, 'P', 'N', 'G', 1, 2, 3, 4, 5, 6}
	require.Len(t, stub, 10)

	for _, style := range []Style{StyleText, StyleStructured} {
		t.Run(string(style), func(t *testing.T) {
			p, err := newBuilder(t, style).FoodAnalysis(upload.ImagePart{MimeType: "image/png", Data: stub})
			require.NoError(t, err)

			require.NotNil(t, p.Image)
			assert.Equal(t, "image/png", p.Image.MimeType)
			assert.Equal(t, stub, p.Image.Data)

			out := render(t, p)
			assert.Contains(t, out, "alories")
			assert.NotContains(t, out, string(stub), "image bytes travel as a separate part")
		})
	}
}

func TestFoodAnalysisAsksForSeparateItems(t *testing.T) {
	text, err := newBuilder(t, StyleText).FoodAnalysis(upload.ImagePart{MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Contains(t, render(t, text), "If multiple foods are present, analyze each separately")

	structured, err := newBuilder(t, StyleStructured).FoodAnalysis(upload.ImagePart{MimeType: "image/jpeg"})
	require.NoError(t, err)
	assert.Contains(t, structured.Request.Task, "separate entry for each item")
}

func TestHealthInsightEmbedsQueryAndProfile(t *testing.T) {
	query := "How can I boost my gut health?"
	for _, style := range []Style{StyleText, StyleStructured} {
		t.Run(string(style), func(t *testing.T) {
			p, err := newBuilder(t, style).HealthInsight(sampleProfile(), query)
			require.NoError(t, err)

			out := render(t, p)
			assert.Contains(t, out, query)
			assert.Contains(t, out, "Lose 5kg")
			assert.Contains(t, out, "No gluten")
		})
	}
}

func TestHealthInsightStructuredKeys(t *testing.T) {
	p, err := newBuilder(t, StyleStructured).HealthInsight(sampleProfile(), "Is oat milk ok?")
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(render(t, p)), &decoded))
	assert.Equal(t, "Is oat milk ok?", decoded["user_query"])

	format := decoded["output_format"].(map[string]any)
	for _, key := range []string{"explanation", "recommendations", "precautions", "references"} {
		assert.Contains(t, format, key)
	}
}

func TestBuildersAreDeterministic(t *testing.T) {
	b := newBuilder(t, StyleText)
	a1, err := b.MealPlan(sampleProfile(), "x")
	require.NoError(t, err)
	a2, err := b.MealPlan(sampleProfile(), "x")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
}

func TestParseStyle(t *testing.T) {
	s, err := ParseStyle("")
	require.NoError(t, err)
	assert.Equal(t, StyleText, s)

	s, err = ParseStyle(" Structured ")
	require.NoError(t, err)
	assert.Equal(t, StyleStructured, s)

	_, err = ParseStyle("xml")
	assert.Error(t, err)
}

func TestLoadTemplatesOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompts.yaml")
	require.NoError(t, os.WriteFile(path, []byte("health_insight: \"Q: {{.Query}} / {{.Profile.Goals}}\"\n"), 0o644))

	tpl, err := LoadTemplates(path)
	require.NoError(t, err)
	assert.Equal(t, MealPlanTemplate, tpl.MealPlan, "keys missing from the file keep defaults")

	b, err := NewBuilder(StyleText, tpl)
	require.NoError(t, err)
	p, err := b.HealthInsight(sampleProfile(), "why?")
	require.NoError(t, err)
	assert.Equal(t, "Q: why? / Lose 5kg", p.Text)
}

func TestLoadTemplatesErrors(t *testing.T) {
	_, err := LoadTemplates(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = NewBuilder(StyleText, Templates{MealPlan: "{{.Broken", FoodAnalysis: "x", HealthInsight: "y"})
	assert.Error(t, err)
}
