package scripting

import (
	"fmt"

	"github.com/dop251/goja"
	"github.com/mitchellh/mapstructure"

	"github.com/deckwise/stagescript/internal/sim"
)

// setupPropDeclarators installs the property-declaration DSL as global
// functions. Each declarator is a pure constructor: it validates its inputs,
// builds an immutable declaration record and returns it; the caller's option
// object is never mutated.
func (e *Engine) setupPropDeclarators(vm *goja.Runtime) error {
	declarators := map[string]func(goja.FunctionCall) goja.Value{
		"propNumber":         e.jsPropNumber,
		"propDecimal":        e.jsPropDecimal,
		"propBoolean":        e.jsPropBoolean,
		"propString":         e.jsPropString,
		"propActor":          e.jsPropActor,
		"propActorGroup":     e.jsPropActorGroup,
		"propImage":          e.jsPropImage,
		"propSound":          e.jsPropSound,
		"propParticleEffect": e.jsPropParticleEffect,
		"propCardDeck":       e.jsPropCardDeck,
		"propColor":          e.jsPropColor,
		"propEnum":           e.jsPropEnum,
		"propNumberArray":    e.jsPropNumberArray,
		"propStringArray":    e.jsPropStringArray,
		"propEnumArray":      e.jsPropEnumArray,
		"propActorArray":     e.jsPropActorArray,
	}
	for name, fn := range declarators {
		if err := vm.Set(name, fn); err != nil {
			return err
		}
	}
	return nil
}

// defToMap renders a declaration as the plain record shape consumed by the
// property-binding system (and by registerBehavior when it reads the schema
// back).
func defToMap(def sim.PropDef) map[string]any {
	out := map[string]any{
		"type":               string(def.Type),
		"variableName":       def.VariableName,
		"defaultValueString": def.DefaultValueString,
	}
	if def.EnumValues != nil {
		out["enumValues"] = def.EnumValues
	}
	if def.Label != "" {
		out["label"] = def.Label
	}
	if def.PickerPrompt != "" {
		out["pickerPrompt"] = def.PickerPrompt
	}
	if def.AllowOffstageActors {
		out["allowOffstageActors"] = true
	}
	if def.DeckOptions != nil {
		out["deckOptions"] = def.DeckOptions
	}
	if def.Requires != nil {
		reqs := make([]any, len(def.Requires))
		for i, r := range def.Requires {
			reqs[i] = map[string]any{"key": r.Key, "value": r.Value, "op": r.Op}
		}
		out["requires"] = reqs
	}
	return out
}

func (e *Engine) declName(call goja.FunctionCall, fn string) string {
	v := call.Argument(0)
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) || v.String() == "" {
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: variable name must be a non-empty string", fn)))
	}
	return v.String()
}

func (e *Engine) declOptions(v goja.Value, fn string) *sim.PropOptions {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	raw, ok := v.Export().(map[string]any)
	if !ok {
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: options must be an object", fn)))
	}
	var opts sim.PropOptions
	if err := mapstructure.Decode(raw, &opts); err != nil {
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: invalid options: %v", fn, err)))
	}
	return &opts
}

func (e *Engine) declFloat(v goja.Value, fn, what string) float64 {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	exported := v.Export()
	switch n := exported.(type) {
	case int64:
		return float64(n)
	case float64:
		return n
	default:
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: %s must be a number, got %T", fn, what, exported)))
	}
}

func (e *Engine) declString(v goja.Value, def string) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return def
	}
	return v.String()
}

func (e *Engine) declStringSlice(v goja.Value, fn, what string) []string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	raw, ok := v.Export().([]any)
	if !ok {
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: %s must be an array of strings", fn, what)))
	}
	out := make([]string, len(raw))
	for i, item := range raw {
		s, ok := item.(string)
		if !ok {
			panic(e.vm.NewTypeError(fmt.Sprintf("%s: %s[%d] must be a string", fn, what, i)))
		}
		out[i] = s
	}
	return out
}

func (e *Engine) declFloatSlice(v goja.Value, fn, what string) []float64 {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	raw, ok := v.Export().([]any)
	if !ok {
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: %s must be an array of numbers", fn, what)))
	}
	out := make([]float64, len(raw))
	for i, item := range raw {
		switch n := item.(type) {
		case int64:
			out[i] = float64(n)
		case float64:
			out[i] = n
		default:
			panic(e.vm.NewTypeError(fmt.Sprintf("%s: %s[%d] must be a number", fn, what, i)))
		}
	}
	return out
}

func (e *Engine) declResult(def sim.PropDef, err error, fn string) goja.Value {
	if err != nil {
		panic(e.vm.NewTypeError(fmt.Sprintf("%s: %v", fn, err)))
	}
	return e.vm.ToValue(defToMap(def))
}

// JS signature: propNumber(name, default?, opts?)
func (e *Engine) jsPropNumber(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propNumber")
	def := e.declFloat(call.Argument(1), "propNumber", "default")
	opts := e.declOptions(call.Argument(2), "propNumber")
	d, err := sim.NumberProp(name, def, opts)
	return e.declResult(d, err, "propNumber")
}

// JS signature: propDecimal(name, default?, opts?)
func (e *Engine) jsPropDecimal(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propDecimal")
	def := e.declFloat(call.Argument(1), "propDecimal", "default")
	opts := e.declOptions(call.Argument(2), "propDecimal")
	d, err := sim.DecimalProp(name, def, opts)
	return e.declResult(d, err, "propDecimal")
}

// JS signature: propBoolean(name, default?, opts?)
func (e *Engine) jsPropBoolean(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propBoolean")
	def := false
	if v := call.Argument(1); v != nil && !goja.IsUndefined(v) && !goja.IsNull(v) {
		def = v.ToBoolean()
	}
	opts := e.declOptions(call.Argument(2), "propBoolean")
	d, err := sim.BooleanProp(name, def, opts)
	return e.declResult(d, err, "propBoolean")
}

// JS signature: propString(name, default?, opts?)
func (e *Engine) jsPropString(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propString")
	def := e.declString(call.Argument(1), "")
	opts := e.declOptions(call.Argument(2), "propString")
	d, err := sim.StringProp(name, def, opts)
	return e.declResult(d, err, "propString")
}

// JS signature: propActor(name, default?, opts?)
func (e *Engine) jsPropActor(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propActor")
	def := e.declString(call.Argument(1), "")
	opts := e.declOptions(call.Argument(2), "propActor")
	d, err := sim.ActorProp(name, def, opts)
	return e.declResult(d, err, "propActor")
}

// JS signature: propActorGroup(name, default?, opts?)
func (e *Engine) jsPropActorGroup(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propActorGroup")
	def := e.declString(call.Argument(1), "")
	opts := e.declOptions(call.Argument(2), "propActorGroup")
	d, err := sim.ActorGroupProp(name, def, opts)
	return e.declResult(d, err, "propActorGroup")
}

// JS signature: propImage(name, default?, opts?)
func (e *Engine) jsPropImage(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propImage")
	def := e.declString(call.Argument(1), "")
	opts := e.declOptions(call.Argument(2), "propImage")
	d, err := sim.ImageProp(name, def, opts)
	return e.declResult(d, err, "propImage")
}

// JS signature: propSound(name, default?, opts?)
func (e *Engine) jsPropSound(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propSound")
	def := e.declString(call.Argument(1), "")
	opts := e.declOptions(call.Argument(2), "propSound")
	d, err := sim.SoundProp(name, def, opts)
	return e.declResult(d, err, "propSound")
}

// JS signature: propParticleEffect(name, default?, opts?)
func (e *Engine) jsPropParticleEffect(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propParticleEffect")
	def := e.declString(call.Argument(1), "")
	opts := e.declOptions(call.Argument(2), "propParticleEffect")
	d, err := sim.ParticleEffectProp(name, def, opts)
	return e.declResult(d, err, "propParticleEffect")
}

// JS signature: propCardDeck(name, opts?)
func (e *Engine) jsPropCardDeck(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propCardDeck")
	opts := e.declOptions(call.Argument(1), "propCardDeck")
	d, err := sim.CardDeckProp(name, opts)
	return e.declResult(d, err, "propCardDeck")
}

// JS signature: propColor(name, default?, opts?)
func (e *Engine) jsPropColor(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propColor")
	def := e.declString(call.Argument(1), "#ffffff")
	opts := e.declOptions(call.Argument(2), "propColor")
	d, err := sim.ColorProp(name, def, opts)
	return e.declResult(d, err, "propColor")
}

// JS signature: propEnum(name, default, values, opts?)
func (e *Engine) jsPropEnum(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propEnum")
	def := e.declString(call.Argument(1), "")
	values := e.declStringSlice(call.Argument(2), "propEnum", "allowed values")
	opts := e.declOptions(call.Argument(3), "propEnum")
	d, err := sim.EnumProp(name, def, values, opts)
	return e.declResult(d, err, "propEnum")
}

// JS signature: propNumberArray(name, defaults?, opts?)
func (e *Engine) jsPropNumberArray(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propNumberArray")
	def := e.declFloatSlice(call.Argument(1), "propNumberArray", "defaults")
	opts := e.declOptions(call.Argument(2), "propNumberArray")
	d, err := sim.NumberArrayProp(name, def, opts)
	return e.declResult(d, err, "propNumberArray")
}

// JS signature: propStringArray(name, defaults?, opts?)
func (e *Engine) jsPropStringArray(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propStringArray")
	def := e.declStringSlice(call.Argument(1), "propStringArray", "defaults")
	opts := e.declOptions(call.Argument(2), "propStringArray")
	d, err := sim.StringArrayProp(name, def, opts)
	return e.declResult(d, err, "propStringArray")
}

// JS signature: propEnumArray(name, defaults, values, opts?)
func (e *Engine) jsPropEnumArray(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propEnumArray")
	def := e.declStringSlice(call.Argument(1), "propEnumArray", "defaults")
	values := e.declStringSlice(call.Argument(2), "propEnumArray", "allowed values")
	opts := e.declOptions(call.Argument(3), "propEnumArray")
	d, err := sim.EnumArrayProp(name, def, values, opts)
	return e.declResult(d, err, "propEnumArray")
}

// JS signature: propActorArray(name, defaults?, opts?)
func (e *Engine) jsPropActorArray(call goja.FunctionCall) goja.Value {
	name := e.declName(call, "propActorArray")
	def := e.declStringSlice(call.Argument(1), "propActorArray", "defaults")
	opts := e.declOptions(call.Argument(2), "propActorArray")
	d, err := sim.ActorArrayProp(name, def, opts)
	return e.declResult(d, err, "propActorArray")
}
