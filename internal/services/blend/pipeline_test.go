package blend

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/perfumepal/blender/internal/services/extract"
	"github.com/perfumepal/blender/internal/services/llm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockModel struct {
	mock.Mock
}

func (m *MockModel) Invoke(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
	args := m.Called(ctx, systemPrompt, userPrompt, opts)
	return args.String(0), args.Error(1)
}

var (
	isPlanner    = mock.MatchedBy(func(o llm.Options) bool { return o.MaxOutputTokens == 1024 })
	isFormulator = mock.MatchedBy(func(o llm.Options) bool { return o.MaxOutputTokens == 3072 })
)

const briefJSON = `{
  "target_profile": "smoky resinous evening scent",
  "bottle_size_ml": 30,
  "intensity": "strong",
  "note_families": ["oud", "amber", "resin"],
  "recipes_to_generate": 2,
  "max_ingredients_per_recipe": 6,
  "constraints": {"prefer_user_ingredients": true, "avoid_overly_sweet": false, "focus_on_natural": true}
}`

const recipesJSON = `{"recipes": [
  {"name": "Midnight Oud", "description": "deep", "notes": {"top": ["bergamot"], "heart": ["rose"], "base": ["oud", "amber"]},
   "ingredients": [{"material": "oud", "role": "base", "percent": 40, "drops_for_bottle": 24}],
   "carrier": {"material": "jojoba", "percent": 0}, "instructions": ["mix"], "safety_note": "patch test"},
  {"name": "Amber Smoke", "description": "warm", "notes": {"top": [], "heart": [], "base": ["amber"]},
   "ingredients": [], "carrier": {"material": "fractionated coconut", "percent": 0}, "instructions": [], "safety_note": "dilute"}
]}`

func darkOud() Preferences {
	return Preferences{
		Style:           "dark oud",
		Strength:        "strong",
		BottleSizeML:    30,
		VibeWords:       []string{"mysterious"},
		UserIngredients: []string{"oud", "amber"},
	}
}

func TestPipeline_Run_Success(t *testing.T) {
	model := new(MockModel)
	model.On("Invoke", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Style: dark oud") && strings.Contains(p, "Bottle Size: 30 ml")
	}), isPlanner).Return(briefJSON, nil).Once()
	model.On("Invoke", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Generate 2 perfume oil recipes") &&
			strings.Contains(p, "Target Profile: smoky resinous evening scent") &&
			strings.Contains(p, "User's Available Ingredients: oud, amber")
	}), isFormulator).Return(recipesJSON, nil).Once()

	result, err := NewPipeline(model).Run(context.Background(), darkOud())
	require.NoError(t, err)

	require.Len(t, result.Recipes, 2)
	assert.Equal(t, "Midnight Oud", result.Recipes[0].Name)
	assert.Equal(t, 24.0, result.Recipes[0].Ingredients[0].DropsForBottle)
	assert.Equal(t, "fractionated coconut", result.Recipes[1].Carrier.Material)
	model.AssertExpectations(t)
}

func TestPipeline_Run_LooseBriefReachesFormulator(t *testing.T) {
	model := new(MockModel)
	model.On("Invoke", mock.Anything, mock.Anything, mock.Anything, isPlanner).
		Return(`{"target_profile":"smoky","bottle_size_ml":"30","intensity":"strong","note_families":"oud, amber","recipes_to_generate":2}`, nil).Once()
	model.On("Invoke", mock.Anything, mock.Anything, mock.MatchedBy(func(p string) bool {
		return strings.Contains(p, "Bottle Size: 30 ml") &&
			strings.Contains(p, "Note Families to Use: oud, amber") &&
			strings.Contains(p, "Generate 2 perfume oil recipes")
	}), isFormulator).Return(recipesJSON, nil).Once()

	result, err := NewPipeline(model).Run(context.Background(), darkOud())
	require.NoError(t, err)
	assert.Len(t, result.Recipes, 2)
	model.AssertExpectations(t)
}

func TestPipeline_Run_PlannerFailureSkipsFormulator(t *testing.T) {
	model := new(MockModel)
	model.On("Invoke", mock.Anything, mock.Anything, mock.Anything, isPlanner).
		Return("", &llm.InvocationError{Provider: "Gemini", StatusCode: 503, Body: "unavailable"}).Once()

	result, err := NewPipeline(model).Run(context.Background(), darkOud())
	assert.Nil(t, result)

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StagePlanner, wfErr.Stage)
	assert.True(t, strings.HasPrefix(err.Error(), "Scent Planner failed: "))
	model.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything, isFormulator)
	model.AssertNumberOfCalls(t, "Invoke", 1)
}

func TestPipeline_Run_PlannerInvalidJSON(t *testing.T) {
	model := new(MockModel)
	model.On("Invoke", mock.Anything, mock.Anything, mock.Anything, isPlanner).
		Return("I would love to help you with that!", nil).Once()

	_, err := NewPipeline(model).Run(context.Background(), darkOud())

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StagePlanner, wfErr.Stage)
	assert.True(t, wfErr.IsParseError())
	assert.True(t, strings.HasPrefix(err.Error(), "Scent Planner returned invalid JSON: "))

	var pe *extract.ParseError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "I would love to help you with that!", pe.Raw)
}

func TestPipeline_Run_FormulatorFailures(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		replyErr   error
		wantPrefix string
	}{
		{
			name:       "invalid JSON",
			reply:      "no recipes today",
			wantPrefix: "Formula Architect returned invalid JSON: ",
		},
		{
			name:       "not an object",
			reply:      `["oud", "amber"]`,
			wantPrefix: "Formula Architect failed: response is not a JSON object",
		},
		{
			name:       "transport error",
			replyErr:   &llm.InvocationError{Provider: "Gemini", Err: errors.New("connection reset")},
			wantPrefix: "Formula Architect failed: Gemini request failed: connection reset",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := new(MockModel)
			model.On("Invoke", mock.Anything, mock.Anything, mock.Anything, isPlanner).Return(briefJSON, nil).Once()
			model.On("Invoke", mock.Anything, mock.Anything, mock.Anything, isFormulator).Return(tt.reply, tt.replyErr).Once()

			result, err := NewPipeline(model).Run(context.Background(), darkOud())
			assert.Nil(t, result)

			var wfErr *WorkflowError
			require.ErrorAs(t, err, &wfErr)
			assert.Equal(t, StageFormulator, wfErr.Stage)
			assert.True(t, strings.HasPrefix(err.Error(), tt.wantPrefix), "got %q", err.Error())
		})
	}
}

func TestPipeline_Run_PassesRecipeSetThrough(t *testing.T) {
	reply := `{"recipes": [{"name": "Odd", "percent_total": 97, "ingredients": "see notes"}], "model_comment": "x"}`
	model := llm.ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
		if opts.MaxOutputTokens == 1024 {
			return briefJSON, nil
		}
		return "```json\n" + reply + "\n```", nil
	})

	result, err := NewPipeline(model).Run(context.Background(), darkOud())
	require.NoError(t, err)

	out, err := json.Marshal(result)
	require.NoError(t, err)
	assert.JSONEq(t, reply, string(out))
}

func TestPipeline_Run_RecoversPanic(t *testing.T) {
	model := llm.ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
		panic("boom")
	})

	result, err := NewPipeline(model).Run(context.Background(), darkOud())
	assert.Nil(t, result)

	var wfErr *WorkflowError
	require.ErrorAs(t, err, &wfErr)
	assert.Equal(t, StageWorkflow, wfErr.Stage)
	assert.Equal(t, "Workflow failed: boom", err.Error())
}

func TestPipeline_Run_InvokeTimeout(t *testing.T) {
	var deadlines []time.Duration
	model := llm.ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
		deadline, ok := ctx.Deadline()
		require.True(t, ok)
		deadlines = append(deadlines, time.Until(deadline))
		if opts.MaxOutputTokens == 1024 {
			return briefJSON, nil
		}
		return recipesJSON, nil
	})

	_, err := NewPipeline(model, WithInvokeTimeout(5*time.Second)).Run(context.Background(), darkOud())
	require.NoError(t, err)

	require.Len(t, deadlines, 2)
	for _, d := range deadlines {
		assert.LessOrEqual(t, d, 5*time.Second)
		assert.Greater(t, d, 4*time.Second)
	}
}

func TestPipeline_Run_RecipeCountFollowsBrief(t *testing.T) {
	brief := `{"target_profile": "fresh", "bottle_size_ml": 10, "intensity": "subtle", "note_families": ["citrus"], "recipes_to_generate": 3}`
	recipes := `{"recipes": [{"name": "a"}, {"name": "b"}, {"name": "c"}]}`

	var formulatorPrompt string
	model := llm.ClientFunc(func(ctx context.Context, systemPrompt, userPrompt string, opts llm.Options) (string, error) {
		if opts.MaxOutputTokens == 1024 {
			return brief, nil
		}
		formulatorPrompt = userPrompt
		return recipes, nil
	})

	result, err := NewPipeline(model).Run(context.Background(), Preferences{Style: "fresh", Strength: "subtle", BottleSizeML: 10})
	require.NoError(t, err)

	assert.Len(t, result.Recipes, 3)
	assert.Contains(t, formulatorPrompt, "Generate 3 perfume oil recipes")
	assert.NotContains(t, formulatorPrompt, "User's Available Ingredients")
}
