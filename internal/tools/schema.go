// In file: internal/tools/schema.go
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
)

// Adapt converts the endpoint's raw tool descriptors into validated definitions.
// A malformed descriptor is logged and skipped; the rest of the catalog survives.
func Adapt(raw []mcp.Tool) []Definition {
	defs := make([]Definition, 0, len(raw))
	for _, tool := range raw {
		def, err := AdaptTool(tool)
		if err != nil {
			log.Printf("WARNING: skipping tool %q: %v", tool.Name, err)
			continue
		}
		defs = append(defs, def)
	}
	return defs
}

// AdaptTool converts a single descriptor.
func AdaptTool(tool mcp.Tool) (Definition, error) {
	if tool.Name == "" {
		return Definition{}, errors.New("descriptor has no name")
	}
	schema, err := inputSchemaMap(tool)
	if err != nil {
		return Definition{}, err
	}
	if typ, ok := schema["type"]; ok && typ != "object" {
		return Definition{}, fmt.Errorf("input schema type is %v, want object", typ)
	}

	var props map[string]any
	if rawProps, ok := schema["properties"]; ok && rawProps != nil {
		props, ok = rawProps.(map[string]any)
		if !ok {
			return Definition{}, fmt.Errorf("properties is %T, want object", rawProps)
		}
	}

	required := map[string]bool{}
	for _, name := range stringList(schema["required"]) {
		required[name] = true
	}

	fields := make([]Field, 0, len(props))
	for name, rawProp := range props {
		prop, ok := rawProp.(map[string]any)
		if !ok {
			return Definition{}, fmt.Errorf("parameter %q schema is %T, want object", name, rawProp)
		}
		fields = append(fields, Field{Name: name, Param: adaptParam(prop), Required: required[name]})
	}
	sortFields(fields)

	return Definition{Name: tool.Name, Description: tool.Description, Fields: fields}, nil
}

// inputSchemaMap returns the descriptor's input schema as a generic map,
// preferring the raw JSON form when the server sent one.
func inputSchemaMap(tool mcp.Tool) (map[string]any, error) {
	if len(tool.RawInputSchema) > 0 {
		var schema map[string]any
		if err := json.Unmarshal(tool.RawInputSchema, &schema); err != nil {
			return nil, fmt.Errorf("input schema is not a JSON object: %w", err)
		}
		return schema, nil
	}
	schema := map[string]any{}
	if tool.InputSchema.Type != "" {
		schema["type"] = tool.InputSchema.Type
	}
	if tool.InputSchema.Properties != nil {
		schema["properties"] = tool.InputSchema.Properties
	}
	if len(tool.InputSchema.Required) > 0 {
		schema["required"] = tool.InputSchema.Required
	}
	return schema, nil
}

// adaptParam maps one property schema onto its Param variant.
// Unrecognised or missing types become AnyParam rather than failing the tool.
func adaptParam(prop map[string]any) Param {
	desc, _ := prop["description"].(string)
	switch declaredType(prop["type"]) {
	case "string":
		return StringParam{Description: desc, Enum: stringList(prop["enum"])}
	case "number":
		return NumberParam{Description: desc, Min: number(prop["minimum"]), Max: number(prop["maximum"])}
	case "integer":
		return NumberParam{Description: desc, Integer: true, Min: number(prop["minimum"]), Max: number(prop["maximum"])}
	case "boolean":
		return BoolParam{Description: desc}
	case "array":
		p := ArrayParam{Description: desc}
		if items, ok := prop["items"].(map[string]any); ok {
			p.Items = adaptParam(items)
		}
		return p
	case "object":
		return ObjectParam{Description: desc, Schema: prop}
	default:
		return AnyParam{Description: desc, Schema: prop}
	}
}

// declaredType reads a JSON-schema "type", which may be a string or a list.
// Nullable unions such as ["string","null"] resolve to their non-null member;
// any other union is treated as unknown.
func declaredType(v any) string {
	types := stringList(v)
	if s, ok := v.(string); ok {
		types = []string{s}
	}
	var chosen string
	for _, t := range types {
		if t == "null" {
			continue
		}
		if chosen != "" {
			return ""
		}
		chosen = t
	}
	return chosen
}

func stringList(v any) []string {
	switch list := v.(type) {
	case []string:
		return list
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func number(v any) *float64 {
	f, ok := toFloat(v)
	if !ok {
		return nil
	}
	return &f
}
