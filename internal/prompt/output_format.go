package prompt

// Output format templates for structured prompts. Zero values render as empty
// strings and lists, which is the shape the model is asked to fill in.

type mealSlots struct {
	Breakfast string `json:"breakfast"`
	Lunch     string `json:"lunch"`
	Dinner    string `json:"dinner"`
	Snacks    string `json:"snacks"`
}

type nutritionBreakdown struct {
	Calories string `json:"calories"`
	Protein  string `json:"protein"`
	Carbs    string `json:"carbs"`
	Fats     string `json:"fats"`
}

type mealPlanDay struct {
	Day             string             `json:"day"`
	Meals           mealSlots          `json:"meals"`
	Nutrition       nutritionBreakdown `json:"nutrition"`
	Context         string             `json:"context"`
	PreparationTips string             `json:"preparation_tips"`
	ShoppingList    []string           `json:"shopping_list"`
}

type mealPlanFormat struct {
	Days []mealPlanDay `json:"days"`
}

func mealPlanOutputFormat() mealPlanFormat {
	return mealPlanFormat{
		Days: []mealPlanDay{{Day: "Day 1-7", ShoppingList: []string{}}},
	}
}

type macros struct {
	Protein string `json:"protein"`
	Carbs   string `json:"carbs"`
	Fat     string `json:"fat"`
}

type foodItem struct {
	Name               string   `json:"name"`
	Calories           string   `json:"calories"`
	Macros             macros   `json:"macros"`
	Micronutrients     []string `json:"micronutrients"`
	Benefits           string   `json:"benefits"`
	Concerns           string   `json:"concerns"`
	RecommendedPortion string   `json:"recommended_portion"`
}

type foodAnalysisFormat struct {
	Items              []foodItem `json:"items"`
	ServingSuggestions string     `json:"serving_suggestions"`
}

func foodAnalysisOutputFormat() foodAnalysisFormat {
	return foodAnalysisFormat{
		Items: []foodItem{{Micronutrients: []string{}}},
	}
}

type healthInsightFormat struct {
	Explanation     string   `json:"explanation"`
	Recommendations []string `json:"recommendations"`
	Precautions     string   `json:"precautions"`
	References      string   `json:"references"`
}

func healthInsightOutputFormat() healthInsightFormat {
	return healthInsightFormat{Recommendations: []string{}}
}
