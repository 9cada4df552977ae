package ai

import (
	"fmt"
	"strings"
)

const plannerRoleSection = `<ROLE>
You are an expert perfume consultant and scent analyst.
Your role is to analyze user preferences for perfumes and create a structured brief
for fragrance creation.
</ROLE>`

const plannerOutputSection = `<OUTPUT_FORMAT>
You must output ONLY valid JSON with no additional text, explanations, or markdown.

Output schema:
{
  "target_profile": "string - A descriptive summary of the desired scent profile",
  "bottle_size_ml": number,
  "intensity": "string - subtle, moderate, or strong",
  "note_families": ["array of scent families like oud, citrus, floral, amber, musk, etc."],
  "recipes_to_generate": number (default 2),
  "max_ingredients_per_recipe": number (default 6),
  "constraints": {
    "prefer_user_ingredients": boolean,
    "avoid_overly_sweet": boolean,
    "focus_on_natural": boolean
  }
}
</OUTPUT_FORMAT>`

const plannerGuidelinesSection = `<GUIDELINES>
Consider fragrance note pyramids (top, heart, base) and classic perfumery principles.
If user provides their own ingredients, incorporate them into the note_families where appropriate.
</GUIDELINES>`

const formulatorRoleSection = `<ROLE>
You are a master perfumer and fragrance formulation expert.
Your role is to create detailed, practical perfume oil blend recipes based on a structured brief.
</ROLE>`

const formulatorOutputSection = `<OUTPUT_FORMAT>
You must output ONLY valid JSON with no additional text, explanations, or markdown.

Output schema:
{
  "recipes": [
    {
      "name": "string - Creative recipe name",
      "description": "string - Brief description of the scent profile",
      "notes": {
        "top": ["array of top note materials"],
        "heart": ["array of heart/middle note materials"],
        "base": ["array of base note materials"]
      },
      "ingredients": [
        {
          "material": "string - ingredient name",
          "role": "string - top, heart, or base",
          "percent": number - percentage of total aromatic blend (all should sum to 100),
          "drops_for_bottle": number - calculated drops for the specified bottle size
        }
      ],
      "carrier": {
        "material": "string - carrier oil recommendation",
        "percent": 0
      },
      "instructions": [
        "array of step-by-step mixing instructions"
      ],
      "safety_note": "string - Safety and disclaimer information"
    }
  ]
}
</OUTPUT_FORMAT>`

const formulationRulesSection = `<FORMULATION_RULES>
1. Top notes: 10-20% (volatile, citrus, herbs)
2. Heart notes: 30-50% (floral, spice, fruity)
3. Base notes: 30-60% (woods, resins, musk, amber)
4. All ingredient percents must sum to 100
5. drops_for_bottle should be calculated proportionally (1ml ≈ 20 drops for essential oils)
6. Keep recipes realistic and mixable at home
7. Include safety warnings and patch test recommendations
8. If user has specific ingredients, try to incorporate them appropriately
</FORMULATION_RULES>`

// BuildPlannerPrompt returns the system prompt for the scent planner.
func BuildPlannerPrompt() string {
	return strings.Join([]string{
		plannerRoleSection,
		plannerOutputSection,
		plannerGuidelinesSection,
	}, "\n\n")
}

// BuildPlannerUserPrompt renders the user's preferences for the planner.
func BuildPlannerUserPrompt(style, strength string, bottleSizeML int, vibeWords, userIngredients []string) string {
	var sb strings.Builder
	sb.WriteString("Create a perfume brief based on these preferences:\n\n")
	fmt.Fprintf(&sb, "Style: %s\n", style)
	fmt.Fprintf(&sb, "Strength: %s\n", strength)
	fmt.Fprintf(&sb, "Bottle Size: %d ml\n", bottleSizeML)
	fmt.Fprintf(&sb, "Vibe Words: %s\n", strings.Join(vibeWords, ", "))
	fmt.Fprintf(&sb, "User's Ingredients: %s\n\n", strings.Join(userIngredients, ", "))
	sb.WriteString("Return ONLY the JSON brief with no additional text.")
	return sb.String()
}

// BuildFormulatorPrompt returns the system prompt for the formula architect.
func BuildFormulatorPrompt() string {
	return strings.Join([]string{
		formulatorRoleSection,
		formulatorOutputSection,
		formulationRulesSection,
	}, "\n\n")
}

// FormulatorInput carries the brief fields the formulator prompt interpolates.
type FormulatorInput struct {
	RecipesToGenerate       int
	TargetProfile           string
	BottleSizeML            float64
	Intensity               string
	NoteFamilies            []string
	MaxIngredientsPerRecipe int
	UserIngredients         []string
	PreferUserIngredients   bool
	AvoidOverlySweet        bool
	FocusOnNatural          bool
}

// BuildFormulatorUserPrompt renders a brief for the formulator.
func BuildFormulatorUserPrompt(in FormulatorInput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Generate %d perfume oil recipes based on this brief:\n\n", in.RecipesToGenerate)
	fmt.Fprintf(&sb, "Target Profile: %s\n", in.TargetProfile)
	fmt.Fprintf(&sb, "Bottle Size: %g ml\n", in.BottleSizeML)
	fmt.Fprintf(&sb, "Intensity: %s\n", in.Intensity)
	fmt.Fprintf(&sb, "Note Families to Use: %s\n", strings.Join(in.NoteFamilies, ", "))
	fmt.Fprintf(&sb, "Max Ingredients per Recipe: %d\n", in.MaxIngredientsPerRecipe)

	if len(in.UserIngredients) > 0 {
		fmt.Fprintf(&sb, "\nUser's Available Ingredients: %s\n", strings.Join(in.UserIngredients, ", "))
		sb.WriteString("Try to incorporate these when appropriate.\n")
	}

	sb.WriteString("\nConstraints:\n")
	fmt.Fprintf(&sb, "- Prefer user ingredients: %t\n", in.PreferUserIngredients)
	fmt.Fprintf(&sb, "- Avoid overly sweet: %t\n", in.AvoidOverlySweet)
	fmt.Fprintf(&sb, "- Focus on natural: %t\n\n", in.FocusOnNatural)
	sb.WriteString("Return ONLY the JSON with recipes array. No additional text.")
	return sb.String()
}
