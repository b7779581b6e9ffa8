package toolregistry

import "fmt"

// Minimal JSON-schema-style validation for tool parameters. Schemas look
// like:
//
//	{
//	  "type": "object",
//	  "properties": {"team": {"type": "string"}, "season": {"type": "integer"}},
//	  "required": ["team"],
//	}
//
// A nil schema declares a tool with no parameters.

var knownTypes = map[string]bool{
	"string":  true,
	"number":  true,
	"integer": true,
	"boolean": true,
	"array":   true,
	"object":  true,
}

// validateSchema checks a schema is well-formed at registration time.
func validateSchema(schema map[string]any) error {
	if schema == nil {
		return nil
	}
	if t, ok := schema["type"]; ok {
		if s, isStr := t.(string); !isStr || s != "object" {
			return fmt.Errorf("schema type must be \"object\", got %v", t)
		}
	}

	props, err := schemaProperties(schema)
	if err != nil {
		return err
	}
	for name, raw := range props {
		spec, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("property %s: spec must be an object", name)
		}
		typ, ok := spec["type"].(string)
		if !ok {
			return fmt.Errorf("property %s: missing type", name)
		}
		if !knownTypes[typ] {
			return fmt.Errorf("property %s: unknown type %q", name, typ)
		}
	}

	required, err := schemaRequired(schema)
	if err != nil {
		return err
	}
	for _, name := range required {
		if _, ok := props[name]; !ok {
			return fmt.Errorf("required property %s not declared", name)
		}
	}
	return nil
}

// validateParams checks params against a schema already validated at
// registration.
func validateParams(schema map[string]any, params map[string]any) error {
	if schema == nil {
		if len(params) > 0 {
			return fmt.Errorf("tool takes no parameters, got %d", len(params))
		}
		return nil
	}

	props, _ := schemaProperties(schema)
	required, _ := schemaRequired(schema)

	for _, name := range required {
		if _, ok := params[name]; !ok {
			return fmt.Errorf("missing required parameter %s", name)
		}
	}

	for name, value := range params {
		raw, ok := props[name]
		if !ok {
			return fmt.Errorf("unknown parameter %s", name)
		}
		spec := raw.(map[string]any)
		typ := spec["type"].(string)
		if !matchesType(value, typ) {
			return fmt.Errorf("parameter %s: expected %s, got %T", name, typ, value)
		}
	}
	return nil
}

func schemaProperties(schema map[string]any) (map[string]any, error) {
	raw, ok := schema["properties"]
	if !ok {
		return map[string]any{}, nil
	}
	props, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("properties must be an object")
	}
	return props, nil
}

func schemaRequired(schema map[string]any) ([]string, error) {
	raw, ok := schema["required"]
	if !ok {
		return nil, nil
	}
	switch names := raw.(type) {
	case []string:
		return names, nil
	case []any:
		out := make([]string, 0, len(names))
		for _, n := range names {
			s, ok := n.(string)
			if !ok {
				return nil, fmt.Errorf("required entries must be strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("required must be a string array")
	}
}

// matchesType checks a runtime value against a schema type. Numeric values
// arriving from JSON decode as float64, so integer accepts integral floats.
func matchesType(value any, typ string) bool {
	switch typ {
	case "string":
		_, ok := value.(string)
		return ok
	case "boolean":
		_, ok := value.(bool)
		return ok
	case "number":
		switch value.(type) {
		case float64, float32, int, int32, int64:
			return true
		}
		return false
	case "integer":
		switch v := value.(type) {
		case int, int32, int64:
			return true
		case float64:
			return v == float64(int64(v))
		}
		return false
	case "array":
		_, ok := value.([]any)
		return ok
	case "object":
		_, ok := value.(map[string]any)
		return ok
	}
	return false
}
