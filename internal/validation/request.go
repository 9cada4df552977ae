package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	apperrors "github.com/perfumepal/blender/internal/errors"
	"github.com/perfumepal/blender/internal/services/blend"
)

const (
	MinBottleSizeML = 5
	MaxBottleSizeML = 100
)

// AllowedStrengths lists the accepted strength values, lowercase.
var AllowedStrengths = []string{"subtle", "moderate", "strong"}

var errIngredientList = errors.New("expected a list of strings or a comma-separated string")

// IngredientList accepts either a JSON list of strings or one
// comma-separated string. String segments are trimmed and empty ones dropped.
type IngredientList []string

func (l *IngredientList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*l = list
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errIngredientList
	}
	*l = SplitIngredients(s)
	return nil
}

// SplitIngredients normalizes "oud, amber,  " into ["oud", "amber"].
func SplitIngredients(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// GenerateBlendRequest is the body of POST /api/generate_blends.
// Pointers distinguish absent fields from zero values.
type GenerateBlendRequest struct {
	Style           *string        `json:"style"`
	Strength        *string        `json:"strength"`
	BottleSizeML    *float64       `json:"bottle_size_ml"`
	VibeWords       []string       `json:"vibe_words"`
	UserIngredients IngredientList `json:"user_ingredients"`
}

// ParseGenerateBlendRequest decodes and validates a request body. Every
// failure is an *apperrors.AppError of type VALIDATION_ERROR.
func ParseGenerateBlendRequest(body io.Reader) (blend.Preferences, error) {
	var req GenerateBlendRequest
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		return blend.Preferences{}, decodeError(err)
	}
	return req.Validate()
}

// Validate checks required fields and bounds and returns normalized preferences.
func (r *GenerateBlendRequest) Validate() (blend.Preferences, error) {
	if r.Style == nil {
		return blend.Preferences{}, missingField("style")
	}
	if r.Strength == nil {
		return blend.Preferences{}, missingField("strength")
	}
	if r.BottleSizeML == nil {
		return blend.Preferences{}, missingField("bottle_size_ml")
	}

	strength := strings.ToLower(*r.Strength)
	if !isAllowedStrength(strength) {
		return blend.Preferences{}, apperrors.NewValidationError(
			fmt.Sprintf("Strength must be one of: %s", strings.Join(AllowedStrengths, ", ")),
			"INVALID_STRENGTH",
			"Use subtle, moderate or strong.",
		)
	}

	size := *r.BottleSizeML
	if size != math.Trunc(size) {
		return blend.Preferences{}, apperrors.NewValidationError(
			"bottle_size_ml must be an integer",
			"INVALID_BOTTLE_SIZE",
			"Send the bottle size as a whole number of milliliters.",
		)
	}
	if size < MinBottleSizeML || size > MaxBottleSizeML {
		return blend.Preferences{}, apperrors.NewValidationError(
			fmt.Sprintf("bottle_size_ml must be between %d and %d", MinBottleSizeML, MaxBottleSizeML),
			"INVALID_BOTTLE_SIZE",
			fmt.Sprintf("Choose a bottle between %d and %d ml.", MinBottleSizeML, MaxBottleSizeML),
		)
	}

	vibeWords := r.VibeWords
	if vibeWords == nil {
		vibeWords = []string{}
	}
	ingredients := []string(r.UserIngredients)
	if ingredients == nil {
		ingredients = []string{}
	}

	return blend.Preferences{
		Style:           *r.Style,
		Strength:        strength,
		BottleSizeML:    int(size),
		VibeWords:       vibeWords,
		UserIngredients: ingredients,
	}, nil
}

func isAllowedStrength(s string) bool {
	for _, allowed := range AllowedStrengths {
		if s == allowed {
			return true
		}
	}
	return false
}

func missingField(name string) *apperrors.AppError {
	return apperrors.NewValidationError(
		fmt.Sprintf("Field '%s' is required", name),
		"MISSING_FIELD",
		"Include style, strength and bottle_size_ml in the request body.",
	)
}

func decodeError(err error) *apperrors.AppError {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return apperrors.NewValidationError(
			fmt.Sprintf("Field '%s' has an invalid type", typeErr.Field),
			"INVALID_FIELD_TYPE",
			"Check the field types in the request body.",
		)
	}

	if errors.Is(err, errIngredientList) {
		return apperrors.NewValidationError(
			"Field 'user_ingredients' must be a list of strings or a comma-separated string",
			"INVALID_FIELD_TYPE",
			"Send user_ingredients as [\"oud\", \"amber\"] or \"oud, amber\".",
		)
	}

	return apperrors.NewValidationError(
		"Invalid request body",
		"INVALID_JSON",
		"Send a JSON object.",
	)
}
