package blend

import "encoding/json"

// Preferences is the validated user input for one run.
type Preferences struct {
	Style           string   `json:"style"`
	Strength        string   `json:"strength"`
	BottleSizeML    int      `json:"bottle_size_ml"`
	VibeWords       []string `json:"vibe_words"`
	UserIngredients []string `json:"user_ingredients"`
}

// Brief is the planner's structured description of the target scent.
type Brief struct {
	TargetProfile           string      `json:"target_profile"`
	BottleSizeML            float64     `json:"bottle_size_ml"`
	Intensity               string      `json:"intensity"`
	NoteFamilies            []string    `json:"note_families"`
	RecipesToGenerate       int         `json:"recipes_to_generate"`
	MaxIngredientsPerRecipe int         `json:"max_ingredients_per_recipe"`
	Constraints             Constraints `json:"constraints"`
}

type Constraints struct {
	PreferUserIngredients bool `json:"prefer_user_ingredients"`
	AvoidOverlySweet      bool `json:"avoid_overly_sweet"`
	FocusOnNatural        bool `json:"focus_on_natural"`
}

const (
	DefaultRecipesToGenerate = 2
	DefaultMaxIngredients    = 6
)

// newBrief returns a Brief holding the defaults for fields the model may omit.
func newBrief() *Brief {
	return &Brief{
		RecipesToGenerate:       DefaultRecipesToGenerate,
		MaxIngredientsPerRecipe: DefaultMaxIngredients,
		Constraints: Constraints{
			FocusOnNatural: true,
		},
	}
}

// RecipeSet is the formulator output returned to the client. It marshals
// back to the document the model produced; Recipes is a typed view of it.
type RecipeSet struct {
	Recipes []Recipe `json:"recipes"`

	raw json.RawMessage
}

type recipeSetFields RecipeSet

func (s RecipeSet) MarshalJSON() ([]byte, error) {
	if len(s.raw) > 0 {
		return s.raw, nil
	}
	return json.Marshal(recipeSetFields(s))
}

// Recipe is one blend. Percentages are advisory and not checked.
type Recipe struct {
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Notes        Notes        `json:"notes"`
	Ingredients  []Ingredient `json:"ingredients"`
	Carrier      Carrier      `json:"carrier"`
	Instructions []string     `json:"instructions"`
	SafetyNote   string       `json:"safety_note"`
}

type Notes struct {
	Top   []string `json:"top"`
	Heart []string `json:"heart"`
	Base  []string `json:"base"`
}

type Ingredient struct {
	Material       string  `json:"material"`
	Role           string  `json:"role"`
	Percent        float64 `json:"percent"`
	DropsForBottle float64 `json:"drops_for_bottle"`
}

type Carrier struct {
	Material string  `json:"material"`
	Percent  float64 `json:"percent"`
}
