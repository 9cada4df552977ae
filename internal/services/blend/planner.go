package blend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/perfumepal/blender/internal/services/ai"
	"github.com/perfumepal/blender/internal/services/extract"
	"github.com/perfumepal/blender/internal/services/llm"
)

var plannerOptions = llm.Options{
	Temperature:     0.7,
	MaxOutputTokens: 1024,
	JSON:            true,
}

// CreateBrief turns user preferences into a Brief with one model call.
func CreateBrief(ctx context.Context, model llm.Client, prefs Preferences) (*Brief, error) {
	slog.InfoContext(ctx, "Scent Planner processing preferences", "style", prefs.Style)

	userPrompt := ai.BuildPlannerUserPrompt(prefs.Style, prefs.Strength, prefs.BottleSizeML, prefs.VibeWords, prefs.UserIngredients)

	raw, err := model.Invoke(ctx, ai.BuildPlannerPrompt(), userPrompt, plannerOptions)
	if err != nil {
		slog.ErrorContext(ctx, "Scent Planner invocation failed", "error", err, "error_class", llm.ClassifyError(err))
		return nil, stageError(StagePlanner, err)
	}

	doc, err := extract.Extract(raw)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to parse Scent Planner response", "error", err, "response", rawText(err))
		return nil, stageError(StagePlanner, err)
	}

	brief := newBrief()
	if err := json.Unmarshal(doc, brief); err != nil {
		slog.ErrorContext(ctx, "Scent Planner response is not a brief", "error", err)
		return nil, stageError(StagePlanner, err)
	}

	slog.InfoContext(ctx, "Scent Planner brief created", "target_profile", brief.TargetProfile)
	return brief, nil
}

func rawText(err error) string {
	var pe *extract.ParseError
	if errors.As(err, &pe) {
		return pe.Raw
	}
	return ""
}
