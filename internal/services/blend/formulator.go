package blend

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/perfumepal/blender/internal/services/ai"
	"github.com/perfumepal/blender/internal/services/extract"
	"github.com/perfumepal/blender/internal/services/llm"
)

var formulatorOptions = llm.Options{
	Temperature:     0.7,
	MaxOutputTokens: 3072,
	JSON:            true,
}

// GenerateRecipes expands a Brief into a RecipeSet with one model call.
// The result is not checked against the brief; the model is trusted on counts and sums.
func GenerateRecipes(ctx context.Context, model llm.Client, brief *Brief, userIngredients []string) (*RecipeSet, error) {
	slog.InfoContext(ctx, "Formula Architect generating recipes", "count", brief.RecipesToGenerate)

	userPrompt := ai.BuildFormulatorUserPrompt(ai.FormulatorInput{
		RecipesToGenerate:       brief.RecipesToGenerate,
		TargetProfile:           brief.TargetProfile,
		BottleSizeML:            brief.BottleSizeML,
		Intensity:               brief.Intensity,
		NoteFamilies:            brief.NoteFamilies,
		MaxIngredientsPerRecipe: brief.MaxIngredientsPerRecipe,
		UserIngredients:         userIngredients,
		PreferUserIngredients:   brief.Constraints.PreferUserIngredients,
		AvoidOverlySweet:        brief.Constraints.AvoidOverlySweet,
		FocusOnNatural:          brief.Constraints.FocusOnNatural,
	})

	raw, err := model.Invoke(ctx, ai.BuildFormulatorPrompt(), userPrompt, formulatorOptions)
	if err != nil {
		slog.ErrorContext(ctx, "Formula Architect invocation failed", "error", err, "error_class", llm.ClassifyError(err))
		return nil, stageError(StageFormulator, err)
	}

	recipes, err := decodeRecipeSet(ctx, raw)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse Formula Architect response", "error", err, "response", rawText(err))
		return nil, stageError(StageFormulator, err)
	}

	slog.InfoContext(ctx, "Formula Architect generated recipes", "count", len(recipes.Recipes))
	return recipes, nil
}

// decodeRecipeSet keeps the extracted document as is. Only a non-object
// document is rejected; schema drift inside it is logged and passed through.
func decodeRecipeSet(ctx context.Context, raw string) (*RecipeSet, error) {
	doc, err := extract.Extract(raw)
	if err != nil {
		return nil, err
	}

	if trimmed := bytes.TrimSpace(doc); len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, ErrNotObject
	}

	set := &RecipeSet{raw: doc}
	if err := json.Unmarshal(doc, set); err != nil {
		slog.WarnContext(ctx, "Recipe set does not match the expected schema", "error", err)
	}
	return set, nil
}
