package decode

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemaKeysKeepOrder(t *testing.T) {
	assert.Equal(t, []string{"id", "title"}, photoSchema.Keys())
}

func TestSchemaParseStopsAtFirstFailure(t *testing.T) {
	// both keys are bad; the first declared one is reported
	_, err := photoSchema.Parse(map[string]any{"id": "x"})
	var mismatch *FieldTypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "id", mismatch.Key)
}

func TestIntCoercion(t *testing.T) {
	tests := []struct {
		name   string
		raw    any
		want   int
		wantOK bool
		actual string
	}{
		{"json integer", json.Number("42"), 42, true, ""},
		{"json whole float", json.Number("3.0"), 3, true, ""},
		{"json fraction", json.Number("3.5"), 0, false, "number"},
		{"go float", float64(9), 9, true, ""},
		{"go int", 5, 5, true, ""},
		{"string", "5", 0, false, "string"},
		{"null", nil, 0, false, "null"},
		{"bool", true, 0, false, "bool"},
		{"huge", json.Number("1e300"), 0, false, "number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := photoSchema.Parse(map[string]any{"id": tt.raw, "title": "t"})
			if tt.wantOK {
				require.NoError(t, err)
				assert.Equal(t, tt.want, p.ID)
				return
			}
			var mismatch *FieldTypeMismatchError
			require.ErrorAs(t, err, &mismatch)
			assert.Equal(t, tt.actual, mismatch.Actual)
		})
	}
}

func TestStringRejectsNonStrings(t *testing.T) {
	for _, raw := range []any{json.Number("1"), []any{}, map[string]any{}, nil} {
		_, err := photoSchema.Parse(map[string]any{"id": json.Number("1"), "title": raw})
		var mismatch *FieldTypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, String, mismatch.Expected)
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "integer", Int.String())
	assert.Equal(t, "string", String.String())
	assert.Equal(t, "kind(9)", Kind(9).String())
}
