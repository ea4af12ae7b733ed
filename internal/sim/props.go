package sim

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// PropType identifies the value kind of a declared property. The enumeration
// is fixed; the editor that supplies values keys its pickers off it.
type PropType string

const (
	PropTypeNumber         PropType = "Number"
	PropTypeDecimal        PropType = "Decimal"
	PropTypeBoolean        PropType = "Boolean"
	PropTypeString         PropType = "String"
	PropTypeActor          PropType = "Actor"
	PropTypeActorGroup     PropType = "ActorGroup"
	PropTypeImage          PropType = "Image"
	PropTypeSound          PropType = "Sound"
	PropTypeParticleEffect PropType = "ParticleEffect"
	PropTypeCardDeck       PropType = "CardDeck"
	PropTypeColor          PropType = "Color"
	PropTypeEnum           PropType = "Enum"
	PropTypeNumberArray    PropType = "NumberArray"
	PropTypeStringArray    PropType = "StringArray"
	PropTypeEnumArray      PropType = "EnumArray"
	PropTypeActorArray     PropType = "ActorArray"
)

// Requirement gates a property's visibility in the editor on the value of a
// sibling property. Op is "=" or "!=".
type Requirement struct {
	Key   string `json:"key" mapstructure:"key"`
	Value any    `json:"value" mapstructure:"value"`
	Op    string `json:"op" mapstructure:"op"`
}

// PropOptions carries the optional, UI-facing parts of a declaration.
type PropOptions struct {
	Label               string         `json:"label,omitempty" mapstructure:"label"`
	PickerPrompt        string         `json:"pickerPrompt,omitempty" mapstructure:"pickerPrompt"`
	AllowOffstageActors bool           `json:"allowOffstageActors,omitempty" mapstructure:"allowOffstageActors"`
	DeckOptions         map[string]any `json:"deckOptions,omitempty" mapstructure:"deckOptions"`
	Requires            []Requirement  `json:"requires,omitempty" mapstructure:"requires"`
}

// PropDef is one property declaration as consumed by the external
// property-binding system. DefaultValueString is always a string regardless
// of the property type; array defaults are their exact JSON serialization.
//
// PropDef values are constructed complete and never mutated afterwards.
type PropDef struct {
	Type                PropType       `json:"type" mapstructure:"type"`
	VariableName        string         `json:"variableName" mapstructure:"variableName"`
	DefaultValueString  string         `json:"defaultValueString" mapstructure:"defaultValueString"`
	EnumValues          []string       `json:"enumValues,omitempty" mapstructure:"enumValues"`
	Label               string         `json:"label,omitempty" mapstructure:"label"`
	PickerPrompt        string         `json:"pickerPrompt,omitempty" mapstructure:"pickerPrompt"`
	AllowOffstageActors bool           `json:"allowOffstageActors,omitempty" mapstructure:"allowOffstageActors"`
	DeckOptions         map[string]any `json:"deckOptions,omitempty" mapstructure:"deckOptions"`
	Requires            []Requirement  `json:"requires,omitempty" mapstructure:"requires"`
}

func newPropDef(t PropType, name, defaultValue string, opts *PropOptions) (PropDef, error) {
	if name == "" {
		return PropDef{}, fmt.Errorf("%s property requires a non-empty variable name", t)
	}
	def := PropDef{
		Type:               t,
		VariableName:       name,
		DefaultValueString: defaultValue,
	}
	if opts != nil {
		def.Label = opts.Label
		def.PickerPrompt = opts.PickerPrompt
		def.AllowOffstageActors = opts.AllowOffstageActors
		if opts.DeckOptions != nil {
			def.DeckOptions = make(map[string]any, len(opts.DeckOptions))
			for k, v := range opts.DeckOptions {
				def.DeckOptions[k] = v
			}
		}
		if opts.Requires != nil {
			def.Requires = append([]Requirement(nil), opts.Requires...)
		}
		for _, r := range def.Requires {
			if r.Op != "=" && r.Op != "!=" {
				return PropDef{}, fmt.Errorf("requirement on %q has invalid op %q (want \"=\" or \"!=\")", name, r.Op)
			}
		}
	}
	return def, nil
}

// formatNumber renders a float without a trailing ".0" for integral values,
// matching JSON number serialization.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatNumberArray(vs []float64) string {
	buf := []byte{'['}
	for i, v := range vs {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, formatNumber(v)...)
	}
	return string(append(buf, ']'))
}

func formatStringArray(vs []string) (string, error) {
	b, err := json.Marshal(vs)
	if err != nil {
		return "", fmt.Errorf("failed to serialize array default: %w", err)
	}
	return string(b), nil
}

// NumberProp declares an integer-valued property.
func NumberProp(name string, def float64, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeNumber, name, formatNumber(def), opts)
}

// DecimalProp declares a fractional-valued property.
func DecimalProp(name string, def float64, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeDecimal, name, formatNumber(def), opts)
}

// BooleanProp declares a boolean property.
func BooleanProp(name string, def bool, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeBoolean, name, strconv.FormatBool(def), opts)
}

// StringProp declares a free-text property.
func StringProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeString, name, def, opts)
}

// ActorProp declares a single-actor reference property.
func ActorProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeActor, name, def, opts)
}

// ActorGroupProp declares an actor-group reference property.
func ActorGroupProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeActorGroup, name, def, opts)
}

// ImageProp declares an image asset property.
func ImageProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeImage, name, def, opts)
}

// SoundProp declares a sound asset property.
func SoundProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeSound, name, def, opts)
}

// ParticleEffectProp declares a particle effect asset property.
func ParticleEffectProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeParticleEffect, name, def, opts)
}

// CardDeckProp declares an ordered card deck slot. The default is always the
// empty deck; cards are composed in by the editor.
func CardDeckProp(name string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeCardDeck, name, "[]", opts)
}

// ColorProp declares a color property ("#rrggbb").
func ColorProp(name, def string, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeColor, name, def, opts)
}

// EnumProp declares a property constrained to a fixed value list. The default
// must be one of the allowed values.
func EnumProp(name, def string, values []string, opts *PropOptions) (PropDef, error) {
	if len(values) == 0 {
		return PropDef{}, fmt.Errorf("enum property %q requires at least one allowed value", name)
	}
	found := false
	for _, v := range values {
		if v == def {
			found = true
			break
		}
	}
	if !found {
		return PropDef{}, fmt.Errorf("enum property %q default %q is not in the allowed value list %v", name, def, values)
	}
	d, err := newPropDef(PropTypeEnum, name, def, opts)
	if err != nil {
		return PropDef{}, err
	}
	d.EnumValues = append([]string(nil), values...)
	return d, nil
}

// NumberArrayProp declares an integer-array property. The default serializes
// as exact JSON, e.g. "[1,2,3]".
func NumberArrayProp(name string, def []float64, opts *PropOptions) (PropDef, error) {
	return newPropDef(PropTypeNumberArray, name, formatNumberArray(def), opts)
}

// StringArrayProp declares a string-array property.
func StringArrayProp(name string, def []string, opts *PropOptions) (PropDef, error) {
	if def == nil {
		def = []string{}
	}
	s, err := formatStringArray(def)
	if err != nil {
		return PropDef{}, err
	}
	return newPropDef(PropTypeStringArray, name, s, opts)
}

// EnumArrayProp declares an array property whose elements are constrained to
// a fixed value list. Every default element must be allowed.
func EnumArrayProp(name string, def []string, values []string, opts *PropOptions) (PropDef, error) {
	if len(values) == 0 {
		return PropDef{}, fmt.Errorf("enum array property %q requires at least one allowed value", name)
	}
	allowed := make(map[string]bool, len(values))
	for _, v := range values {
		allowed[v] = true
	}
	for _, d := range def {
		if !allowed[d] {
			return PropDef{}, fmt.Errorf("enum array property %q default %q is not in the allowed value list %v", name, d, values)
		}
	}
	if def == nil {
		def = []string{}
	}
	s, err := formatStringArray(def)
	if err != nil {
		return PropDef{}, err
	}
	d, err := newPropDef(PropTypeEnumArray, name, s, opts)
	if err != nil {
		return PropDef{}, err
	}
	d.EnumValues = append([]string(nil), values...)
	return d, nil
}

// ActorArrayProp declares an actor-list property.
func ActorArrayProp(name string, def []string, opts *PropOptions) (PropDef, error) {
	if def == nil {
		def = []string{}
	}
	s, err := formatStringArray(def)
	if err != nil {
		return PropDef{}, err
	}
	return newPropDef(PropTypeActorArray, name, s, opts)
}

// ParseDefault converts DefaultValueString back to the typed value the props
// object exposes to handlers.
func ParseDefault(def PropDef) (any, error) {
	switch def.Type {
	case PropTypeNumber:
		v, err := strconv.ParseFloat(def.DefaultValueString, 64)
		if err != nil {
			return nil, fmt.Errorf("property %q: invalid number default %q: %w", def.VariableName, def.DefaultValueString, err)
		}
		return float64(int64(v)), nil
	case PropTypeDecimal:
		v, err := strconv.ParseFloat(def.DefaultValueString, 64)
		if err != nil {
			return nil, fmt.Errorf("property %q: invalid decimal default %q: %w", def.VariableName, def.DefaultValueString, err)
		}
		return v, nil
	case PropTypeBoolean:
		v, err := strconv.ParseBool(def.DefaultValueString)
		if err != nil {
			return nil, fmt.Errorf("property %q: invalid boolean default %q: %w", def.VariableName, def.DefaultValueString, err)
		}
		return v, nil
	case PropTypeString, PropTypeActor, PropTypeActorGroup, PropTypeImage,
		PropTypeSound, PropTypeParticleEffect, PropTypeColor, PropTypeEnum:
		return def.DefaultValueString, nil
	case PropTypeNumberArray:
		var vs []float64
		if err := json.Unmarshal([]byte(def.DefaultValueString), &vs); err != nil {
			return nil, fmt.Errorf("property %q: invalid number array default %q: %w", def.VariableName, def.DefaultValueString, err)
		}
		return vs, nil
	case PropTypeStringArray, PropTypeEnumArray, PropTypeActorArray:
		var vs []string
		if err := json.Unmarshal([]byte(def.DefaultValueString), &vs); err != nil {
			return nil, fmt.Errorf("property %q: invalid array default %q: %w", def.VariableName, def.DefaultValueString, err)
		}
		return vs, nil
	case PropTypeCardDeck:
		return []*Card{}, nil
	default:
		return nil, fmt.Errorf("property %q: unknown type %q", def.VariableName, def.Type)
	}
}

// RequiresSatisfied reports whether every requirement holds against the given
// property values.
func RequiresSatisfied(reqs []Requirement, values map[string]any) (bool, error) {
	for _, r := range reqs {
		have := values[r.Key]
		equal := fmt.Sprintf("%v", have) == fmt.Sprintf("%v", r.Value)
		switch r.Op {
		case "=":
			if !equal {
				return false, nil
			}
		case "!=":
			if equal {
				return false, nil
			}
		default:
			return false, fmt.Errorf("requirement on %q has invalid op %q", r.Key, r.Op)
		}
	}
	return true, nil
}
