package blend

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// UnmarshalJSON reads a planner brief leniently. A field that arrives with
// another JSON type is converted when it can be and otherwise keeps the
// value already set on b. Only a document that is not an object fails.
func (b *Brief) UnmarshalJSON(data []byte) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil || fields == nil {
		return ErrNotObject
	}

	readText(fields["target_profile"], &b.TargetProfile)
	readNumber(fields["bottle_size_ml"], &b.BottleSizeML)
	readText(fields["intensity"], &b.Intensity)
	readList(fields["note_families"], &b.NoteFamilies)
	readInt(fields["recipes_to_generate"], &b.RecipesToGenerate)
	readInt(fields["max_ingredients_per_recipe"], &b.MaxIngredientsPerRecipe)

	var constraints map[string]json.RawMessage
	if !isNull(fields["constraints"]) && json.Unmarshal(fields["constraints"], &constraints) == nil {
		readBool(constraints["prefer_user_ingredients"], &b.Constraints.PreferUserIngredients)
		readBool(constraints["avoid_overly_sweet"], &b.Constraints.AvoidOverlySweet)
		readBool(constraints["focus_on_natural"], &b.Constraints.FocusOnNatural)
	}
	return nil
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || string(raw) == "null"
}

// readText takes a JSON string as is and any other value as its JSON text.
func readText(raw json.RawMessage, dst *string) {
	if isNull(raw) {
		return
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		*dst = s
		return
	}
	*dst = string(raw)
}

func readNumber(raw json.RawMessage, dst *float64) bool {
	if isNull(raw) {
		return false
	}
	var n float64
	if json.Unmarshal(raw, &n) == nil {
		*dst = n
		return true
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if n, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*dst = n
			return true
		}
	}
	return false
}

func readInt(raw json.RawMessage, dst *int) {
	var n float64
	if !readNumber(raw, &n) || n != math.Trunc(n) || math.Abs(n) > math.MaxInt32 {
		return
	}
	*dst = int(n)
}

// readList accepts an array, a comma separated string, or a single scalar.
func readList(raw json.RawMessage, dst *[]string) {
	if isNull(raw) {
		return
	}

	var items []json.RawMessage
	if json.Unmarshal(raw, &items) == nil {
		list := make([]string, 0, len(items))
		for _, item := range items {
			var s string
			readText(item, &s)
			list = append(list, s)
		}
		*dst = list
		return
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		list := []string{}
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				list = append(list, part)
			}
		}
		*dst = list
		return
	}

	*dst = []string{string(raw)}
}

func readBool(raw json.RawMessage, dst *bool) {
	if isNull(raw) {
		return
	}
	var v bool
	if json.Unmarshal(raw, &v) == nil {
		*dst = v
		return
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		if v, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			*dst = v
		}
	}
}
