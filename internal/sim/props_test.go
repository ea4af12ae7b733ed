package sim

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEnumProp_RoundTrip(t *testing.T) {
	t.Parallel()

	def, err := EnumProp("x", "B", []string{"A", "B", "C"}, nil)
	require.NoError(t, err)
	require.Equal(t, PropTypeEnum, def.Type)
	require.Equal(t, "x", def.VariableName)
	require.Equal(t, "B", def.DefaultValueString)
	require.Equal(t, []string{"A", "B", "C"}, def.EnumValues)

	v, err := ParseDefault(def)
	require.NoError(t, err)
	require.Equal(t, "B", v)
}

func TestEnumProp_DefaultNotAllowed(t *testing.T) {
	t.Parallel()

	_, err := EnumProp("x", "D", []string{"A", "B", "C"}, nil)
	require.Error(t, err)
	require.Contains(t, err.Error(), "D")

	_, err = EnumProp("x", "A", nil, nil)
	require.Error(t, err)
}

func TestNumberArrayProp_ExactSerialization(t *testing.T) {
	t.Parallel()

	def, err := NumberArrayProp("sizes", []float64{1, 2, 3}, nil)
	require.NoError(t, err)
	require.Equal(t, "[1,2,3]", def.DefaultValueString)

	v, err := ParseDefault(def)
	require.NoError(t, err)
	require.Equal(t, []float64{1, 2, 3}, v)

	def, err = NumberArrayProp("empty", nil, nil)
	require.NoError(t, err)
	require.Equal(t, "[]", def.DefaultValueString)

	def, err = NumberArrayProp("frac", []float64{0.5, 2}, nil)
	require.NoError(t, err)
	require.Equal(t, "[0.5,2]", def.DefaultValueString)
}

func TestNumberProps_Formatting(t *testing.T) {
	t.Parallel()

	def, err := NumberProp("count", 5, nil)
	require.NoError(t, err)
	require.Equal(t, "5", def.DefaultValueString)

	def, err = DecimalProp("speed", 1.5, nil)
	require.NoError(t, err)
	require.Equal(t, "1.5", def.DefaultValueString)

	def, err = BooleanProp("enabled", true, nil)
	require.NoError(t, err)
	require.Equal(t, "true", def.DefaultValueString)
}

func TestStringArrayProp_Serialization(t *testing.T) {
	t.Parallel()

	def, err := StringArrayProp("tags", []string{"a", "b"}, nil)
	require.NoError(t, err)
	require.Equal(t, `["a","b"]`, def.DefaultValueString)

	v, err := ParseDefault(def)
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, v)
}

func TestPropOptions_CopiedNotAliased(t *testing.T) {
	t.Parallel()

	opts := &PropOptions{
		Label:       "Speed",
		DeckOptions: map[string]any{"defaultCard": "Move"},
		Requires:    []Requirement{{Key: "mode", Value: "fast", Op: "="}},
	}
	def, err := NumberProp("speed", 1, opts)
	require.NoError(t, err)

	// Mutating the caller's options must not affect the declaration.
	opts.DeckOptions["defaultCard"] = "Stop"
	opts.Requires[0].Op = "!="
	require.Equal(t, "Move", def.DeckOptions["defaultCard"])
	require.Equal(t, "=", def.Requires[0].Op)
}

func TestNewPropDef_InvalidRequirementOp(t *testing.T) {
	t.Parallel()

	_, err := NumberProp("x", 0, &PropOptions{
		Requires: []Requirement{{Key: "a", Value: 1, Op: ">"}},
	})
	require.Error(t, err)
	require.Contains(t, err.Error(), ">")
}

func TestRequiresSatisfied(t *testing.T) {
	t.Parallel()

	reqs := []Requirement{
		{Key: "mode", Value: "fast", Op: "="},
		{Key: "debug", Value: true, Op: "!="},
	}

	ok, err := RequiresSatisfied(reqs, map[string]any{"mode": "fast", "debug": false})
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = RequiresSatisfied(reqs, map[string]any{"mode": "slow", "debug": false})
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = RequiresSatisfied(reqs, map[string]any{"mode": "fast", "debug": true})
	require.NoError(t, err)
	require.False(t, ok)

	_, err = RequiresSatisfied([]Requirement{{Key: "a", Op: "<"}}, nil)
	require.Error(t, err)
}

func TestParseDefault_Errors(t *testing.T) {
	t.Parallel()

	_, err := ParseDefault(PropDef{Type: PropTypeNumber, VariableName: "n", DefaultValueString: "nope"})
	require.Error(t, err)

	_, err = ParseDefault(PropDef{Type: "Bogus", VariableName: "n"})
	require.Error(t, err)
}
