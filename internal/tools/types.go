// In file: internal/tools/types.go

// Package tools turns the remote tool endpoint's catalog into strongly-typed,
// provider-agnostic tool definitions, and talks to that endpoint over JSON-RPC.
// Definitions are rendered as JSON Schema for whichever model backend is in use,
// and every argument the model produces is validated here before it leaves the process.
package tools

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/514-labs/planes/internal/llm"
)

// ParamKind names the variant of a Param.
type ParamKind string

const (
	KindString ParamKind = "string"
	KindNumber ParamKind = "number"
	KindBool   ParamKind = "boolean"
	KindArray  ParamKind = "array"
	KindObject ParamKind = "object"
	KindAny    ParamKind = "any"
)

// Param is the typed form of one declared tool parameter.
// The set of implementations is closed: StringParam, NumberParam, BoolParam,
// ArrayParam, ObjectParam and AnyParam.
type Param interface {
	Kind() ParamKind
	// Check validates a model-supplied value and returns the value to send on.
	Check(v any) (any, error)
	// JSONSchema renders the parameter for a model-facing tool catalog.
	JSONSchema() map[string]any
}

// StringParam accepts JSON strings, optionally restricted to an enumeration.
type StringParam struct {
	Description string
	Enum        []string
}

// NumberParam accepts JSON numbers. Min and Max are inclusive bounds when set.
// Integer rejects values with a fractional part.
type NumberParam struct {
	Description string
	Integer     bool
	Min         *float64
	Max         *float64
}

// BoolParam accepts JSON booleans.
type BoolParam struct {
	Description string
}

// ArrayParam accepts JSON arrays. When Items is set every element is checked against it.
type ArrayParam struct {
	Description string
	Items       Param
}

// ObjectParam accepts JSON objects. Nested properties are passed through unchecked.
type ObjectParam struct {
	Description string
	Schema      map[string]any
}

// AnyParam is the permissive fallback for declared types we do not recognise.
type AnyParam struct {
	Description string
	Schema      map[string]any
}

func (StringParam) Kind() ParamKind { return KindString }
func (NumberParam) Kind() ParamKind { return KindNumber }
func (BoolParam) Kind() ParamKind   { return KindBool }
func (ArrayParam) Kind() ParamKind  { return KindArray }
func (ObjectParam) Kind() ParamKind { return KindObject }
func (AnyParam) Kind() ParamKind    { return KindAny }

func (p StringParam) Check(v any) (any, error) {
	s, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v)
	}
	if len(p.Enum) > 0 {
		for _, allowed := range p.Enum {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("value %q is not one of %v", s, p.Enum)
	}
	return s, nil
}

func (p NumberParam) Check(v any) (any, error) {
	f, ok := toFloat(v)
	if !ok {
		return nil, fmt.Errorf("expected number, got %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("value %v is not a finite number", f)
	}
	if p.Integer && f != math.Trunc(f) {
		return nil, fmt.Errorf("value %v is not an integer", f)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold.
	if p.Integer && (f < math.MinInt64 || f >= math.MaxInt64) {
		return nil, fmt.Errorf("value %v is out of integer range", f)
	}
	if p.Min != nil && f < *p.Min {
		return nil, fmt.Errorf("value %v is below minimum %v", f, *p.Min)
	}
	if p.Max != nil && f > *p.Max {
		return nil, fmt.Errorf("value %v is above maximum %v", f, *p.Max)
	}
	if p.Integer {
		return int64(f), nil
	}
	return f, nil
}

func (BoolParam) Check(v any) (any, error) {
	b, ok := v.(bool)
	if !ok {
		return nil, fmt.Errorf("expected boolean, got %T", v)
	}
	return b, nil
}

func (p ArrayParam) Check(v any) (any, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("expected array, got %T", v)
	}
	if p.Items == nil {
		return items, nil
	}
	out := make([]any, len(items))
	for i, item := range items {
		checked, err := p.Items.Check(item)
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = checked
	}
	return out, nil
}

func (ObjectParam) Check(v any) (any, error) {
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("expected object, got %T", v)
	}
	return obj, nil
}

func (AnyParam) Check(v any) (any, error) { return v, nil }

func (p StringParam) JSONSchema() map[string]any {
	s := withDescription(map[string]any{"type": "string"}, p.Description)
	if len(p.Enum) > 0 {
		s["enum"] = p.Enum
	}
	return s
}

func (p NumberParam) JSONSchema() map[string]any {
	typ := "number"
	if p.Integer {
		typ = "integer"
	}
	s := withDescription(map[string]any{"type": typ}, p.Description)
	if p.Min != nil {
		s["minimum"] = *p.Min
	}
	if p.Max != nil {
		s["maximum"] = *p.Max
	}
	return s
}

func (p BoolParam) JSONSchema() map[string]any {
	return withDescription(map[string]any{"type": "boolean"}, p.Description)
}

func (p ArrayParam) JSONSchema() map[string]any {
	s := withDescription(map[string]any{"type": "array"}, p.Description)
	if p.Items != nil {
		s["items"] = p.Items.JSONSchema()
	}
	return s
}

func (p ObjectParam) JSONSchema() map[string]any {
	s := copySchema(p.Schema)
	s["type"] = "object"
	return withDescription(s, p.Description)
}

func (p AnyParam) JSONSchema() map[string]any {
	// Dropping "type" lets the model send any JSON value.
	s := copySchema(p.Schema)
	delete(s, "type")
	return withDescription(s, p.Description)
}

// Field is a named parameter together with its required flag.
type Field struct {
	Name     string
	Param    Param
	Required bool
}

// Definition is an immutable, validated tool ready to be offered to the model.
type Definition struct {
	Name        string
	Description string
	// Fields are sorted by name.
	Fields []Field
}

// Spec renders the definition as a provider-neutral tool spec.
func (d Definition) Spec() llm.ToolSpec {
	props := make(map[string]any, len(d.Fields))
	required := []string{}
	for _, f := range d.Fields {
		props[f.Name] = f.Param.JSONSchema()
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return llm.ToolSpec{
		Name:        d.Name,
		Description: d.Description,
		InputSchema: map[string]any{
			"type":       "object",
			"properties": props,
			"required":   required,
		},
	}
}

// Validate checks args against the definition and returns the arguments to send.
// Required parameters must be present and non-null; optional nulls are dropped;
// undeclared arguments pass through untouched.
func (d Definition) Validate(args map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	for k, v := range args {
		out[k] = v
	}
	for _, f := range d.Fields {
		v, present := args[f.Name]
		if !present || v == nil {
			if f.Required {
				return nil, fmt.Errorf("%w: %s: missing required parameter %q", ErrInvalidArguments, d.Name, f.Name)
			}
			delete(out, f.Name)
			continue
		}
		checked, err := f.Param.Check(v)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: parameter %q: %v", ErrInvalidArguments, d.Name, f.Name, err)
		}
		out[f.Name] = checked
	}
	return out, nil
}

func sortFields(fields []Field) {
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}

func withDescription(s map[string]any, desc string) map[string]any {
	if desc != "" {
		s["description"] = desc
	}
	return s
}

func copySchema(s map[string]any) map[string]any {
	out := make(map[string]any, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}
