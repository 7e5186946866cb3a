/*
Package prompt builds the payloads sent to the generative model.
Builders are pure: they read their inputs, render a template and never touch the network.
*/
package prompt

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"MetaMeal/internal/profile"
	"MetaMeal/internal/upload"
)

// Feature names one of the three things the UI can ask the model for.
type Feature string

const (
	FeatureMealPlan      Feature = "meal_plan"
	FeatureFoodAnalysis  Feature = "food_analysis"
	FeatureHealthInsight Feature = "health_insight"
)

// Style selects between a natural-language prompt and a structured request object.
type Style string

const (
	StyleText       Style = "text"
	StyleStructured Style = "structured"
)

// ParseStyle maps a config value to a Style.
func ParseStyle(s string) (Style, error) {
	switch Style(strings.ToLower(strings.TrimSpace(s))) {
	case "", StyleText:
		return StyleText, nil
	case StyleStructured:
		return StyleStructured, nil
	}
	return "", fmt.Errorf("unknown prompt style %q (want %q or %q)", s, StyleText, StyleStructured)
}

// Request is the structured form of a prompt.
type Request struct {
	Task                   string                 `json:"task"`
	UserQuery              string                 `json:"user_query,omitempty"`
	UserProfile            *profile.HealthProfile `json:"user_profile,omitempty"`
	AdditionalRequirements string                 `json:"additional_requirements,omitempty"`
	AnalysisCriteria       []string               `json:"analysis_criteria,omitempty"`
	OutputFormat           any                    `json:"output_format"`
}

// Payload is one prompt, ready to send. Exactly one of Text or Request is set.
type Payload struct {
	Feature Feature
	Style   Style
	Text    string
	Request *Request
	Image   *upload.ImagePart
}

// Render returns the text that goes first in the model's content sequence.
func (p Payload) Render() (string, error) {
	if p.Request == nil {
		return p.Text, nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p.Request); err != nil {
		return "", fmt.Errorf("failed to marshal %s request: %w", p.Feature, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// Builder renders payloads in one style.
type Builder struct {
	style         Style
	mealPlan      *template.Template
	foodAnalysis  *template.Template
	healthInsight *template.Template
}

var funcs = template.FuncMap{
	"join": func(items []string) string { return strings.Join(items, ", ") },
}

// NewBuilder parses the templates. A template that does not parse is an error.
func NewBuilder(style Style, t Templates) (*Builder, error) {
	b := &Builder{style: style}

	var err error
	if b.mealPlan, err = template.New(string(FeatureMealPlan)).Funcs(funcs).Parse(t.MealPlan); err != nil {
		return nil, fmt.Errorf("meal plan template: %w", err)
	}
	if b.foodAnalysis, err = template.New(string(FeatureFoodAnalysis)).Funcs(funcs).Parse(t.FoodAnalysis); err != nil {
		return nil, fmt.Errorf("food analysis template: %w", err)
	}
	if b.healthInsight, err = template.New(string(FeatureHealthInsight)).Funcs(funcs).Parse(t.HealthInsight); err != nil {
		return nil, fmt.Errorf("health insight template: %w", err)
	}
	return b, nil
}

// Style reports the style the builder renders.
func (b *Builder) Style() Style {
	return b.style
}

type templateData struct {
	Profile      profile.HealthProfile
	Requirements string
	Query        string
}

/* =================================================================================
								BUILDERS
=================================================================================*/

// MealPlan embeds every profile field plus the user's extra requirements.
func (b *Builder) MealPlan(p profile.HealthProfile, extra string) (Payload, error) {
	payload := Payload{Feature: FeatureMealPlan, Style: b.style}

	if b.style == StyleStructured {
		if strings.TrimSpace(extra) == "" {
			extra = "None provided"
		}
		up := p.Clone()
		payload.Request = &Request{
			Task:                   "Generate a personalized 7-day meal plan",
			UserProfile:            &up,
			AdditionalRequirements: extra,
			OutputFormat:           mealPlanOutputFormat(),
		}
		return payload, nil
	}

	if strings.TrimSpace(extra) == "" {
		extra = "None"
	}
	text, err := execute(b.mealPlan, templateData{Profile: p, Requirements: extra})
	if err != nil {
		return Payload{}, err
	}
	payload.Text = text
	return payload, nil
}

// FoodAnalysis asks for a per-item nutrition breakdown of the image it carries.
func (b *Builder) FoodAnalysis(img upload.ImagePart) (Payload, error) {
	payload := Payload{Feature: FeatureFoodAnalysis, Style: b.style, Image: &img}

	if b.style == StyleStructured {
		payload.Request = &Request{
			Task: "Analyze food image. If multiple foods are present, return a separate entry for each item.",
			AnalysisCriteria: []string{
				"Identify every visible food item",
				"Estimated calories",
				"Macronutrient breakdown",
				"Key vitamins and minerals",
				"Potential health benefits",
				"Concerns based on dietary restrictions",
				"Suggested portion sizes",
			},
			OutputFormat: foodAnalysisOutputFormat(),
		}
		return payload, nil
	}

	text, err := execute(b.foodAnalysis, templateData{})
	if err != nil {
		return Payload{}, err
	}
	payload.Text = text
	return payload, nil
}

// HealthInsight embeds the question and the profile.
func (b *Builder) HealthInsight(p profile.HealthProfile, query string) (Payload, error) {
	payload := Payload{Feature: FeatureHealthInsight, Style: b.style}

	if b.style == StyleStructured {
		up := p.Clone()
		payload.Request = &Request{
			Task:         "Provide health and nutrition advice",
			UserQuery:    query,
			UserProfile:  &up,
			OutputFormat: healthInsightOutputFormat(),
		}
		return payload, nil
	}

	text, err := execute(b.healthInsight, templateData{Profile: p, Query: query})
	if err != nil {
		return Payload{}, err
	}
	payload.Text = text
	return payload, nil
}

func execute(t *template.Template, data templateData) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", t.Name(), err)
	}
	return sb.String(), nil
}
