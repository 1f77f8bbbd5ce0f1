package onboarding

var (
	qHouseholdSize = Question{
		ID:      "household_size",
		Prompt:  "How many people are you cooking for?",
		Kind:    KindSingleSelect,
		Options: []string{"1", "2", "3-4", "5+"},
	}
	qDietaryPreferences = Question{
		ID:      "dietary_preferences",
		Prompt:  "Do you follow any of these diets?",
		Kind:    KindMultiSelect,
		Options: []string{"none", "vegetarian", "vegan", "pescatarian", "keto", "paleo", "gluten-free", "dairy-free"},
	}
	qZipCode = Question{
		ID:      "zip_code",
		Prompt:  "What is your zip code?",
		Kind:    KindText,
		Pattern: `^\d{5}(-\d{4})?$`,
	}
	// Grocers are looked up from the zip code, so options stay empty here.
	qPreferredGrocer = Question{
		ID:           "preferred_grocer",
		Prompt:       "Where do you usually shop?",
		Kind:         KindConditional,
		Prerequisite: "zip_code",
	}
	qCookingSkill = Question{
		ID:      "cooking_skill",
		Prompt:  "How comfortable are you in the kitchen?",
		Kind:    KindSingleSelect,
		Options: []string{"beginner", "intermediate", "advanced"},
	}
	qMealTypes = Question{
		ID:      "meal_types",
		Prompt:  "Which meals should we plan?",
		Kind:    KindMultiSelect,
		Options: []string{"breakfast", "lunch", "dinner", "snacks"},
	}
	qWeeklyBudget = Question{
		ID:      "weekly_budget",
		Prompt:  "What is your weekly grocery budget?",
		Kind:    KindSingleSelect,
		Options: []string{"under-50", "50-100", "100-200", "200+"},
	}
	qCuisinePreferences = Question{
		ID:      "cuisine_preferences",
		Prompt:  "Which cuisines do you enjoy?",
		Kind:    KindMultiSelect,
		Options: []string{"american", "italian", "mexican", "asian", "mediterranean", "indian", "middle-eastern"},
	}
	qAllergies = Question{
		ID:      "allergies",
		Prompt:  "Any food allergies?",
		Kind:    KindMultiSelect,
		Options: []string{"none", "peanuts", "tree-nuts", "shellfish", "fish", "eggs", "milk", "soy", "wheat", "sesame"},
	}
	qHealthGoals = Question{
		ID:      "health_goals",
		Prompt:  "What are your health goals?",
		Kind:    KindMultiSelect,
		Options: []string{"maintain", "lose-weight", "build-muscle", "eat-more-plants", "lower-sodium"},
	}
	qCookingTime = Question{
		ID:      "cooking_time",
		Prompt:  "How much time do you have to cook on a weeknight?",
		Kind:    KindSingleSelect,
		Options: []string{"under-15", "15-30", "30-60", "60+"},
	}
	qKitchenEquipment = Question{
		ID:      "kitchen_equipment",
		Prompt:  "Which equipment do you have?",
		Kind:    KindMultiSelect,
		Options: []string{"oven", "stovetop", "microwave", "slow-cooker", "instant-pot", "air-fryer", "grill"},
	}
	qMealPrepDay = Question{
		ID:      "meal_prep_day",
		Prompt:  "Which day do you prefer to meal prep?",
		Kind:    KindSingleSelect,
		Options: []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "none"},
	}
)

// DefaultDefinition is the built-in EZ Eatin' question content.
func DefaultDefinition() CatalogDefinition {
	return CatalogDefinition{
		Base: []Question{
			qHouseholdSize, qDietaryPreferences, qZipCode, qPreferredGrocer,
		},
		Additional: []Question{
			qCookingSkill, qMealTypes, qWeeklyBudget, qCuisinePreferences,
		},
		Premium: []Question{
			qHouseholdSize, qDietaryPreferences, qAllergies, qHealthGoals,
			qCookingSkill, qCookingTime, qKitchenEquipment, qCuisinePreferences,
			qMealTypes, qWeeklyBudget, qMealPrepDay, qZipCode, qPreferredGrocer,
		},
	}
}

// DefaultCatalog returns the built-in catalog (4, 8 and 13 questions).
func DefaultCatalog() *StaticCatalog {
	cat, err := NewStaticCatalog(DefaultDefinition())
	if err != nil {
		panic("onboarding: built-in catalog is invalid: " + err.Error())
	}
	return cat
}
