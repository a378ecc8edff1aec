package schema

// Helpers for building raw object schemas without writing nested maps by
// hand. Each property helper returns an option applied to the object under
// construction.

// ObjectOption configures the object schema being built.
type ObjectOption func(properties map[string]interface{}, required *[]string)

// Object builds an object schema from property options.
func Object(options ...ObjectOption) *Schema {
	properties := make(map[string]interface{})
	var required []string

	for _, option := range options {
		option(properties, &required)
	}

	raw := map[string]interface{}{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		req := make([]interface{}, len(required))
		for i, name := range required {
			req[i] = name
		}
		raw["required"] = req
	}
	return New(raw)
}

// PropertyOption configures a single property.
type PropertyOption func(prop map[string]interface{}) (required bool)

// Description sets the property description.
func Description(description string) PropertyOption {
	return func(prop map[string]interface{}) bool {
		prop["description"] = description
		return false
	}
}

// Required marks the property as required.
func Required() PropertyOption {
	return func(map[string]interface{}) bool {
		return true
	}
}

// Default sets the property default, applied during validation when the
// input omits the field.
func Default(value interface{}) PropertyOption {
	return func(prop map[string]interface{}) bool {
		prop["default"] = value
		return false
	}
}

// Enum restricts the property to a fixed set of string values.
func Enum(values ...string) PropertyOption {
	return func(prop map[string]interface{}) bool {
		enum := make([]interface{}, len(values))
		for i, v := range values {
			enum[i] = v
		}
		prop["enum"] = enum
		return false
	}
}

// String adds a string property.
func String(name string, options ...PropertyOption) ObjectOption {
	return property(name, "string", options)
}

// Number adds a number property.
func Number(name string, options ...PropertyOption) ObjectOption {
	return property(name, "number", options)
}

// Integer adds an integer property.
func Integer(name string, options ...PropertyOption) ObjectOption {
	return property(name, "integer", options)
}

// Boolean adds a boolean property.
func Boolean(name string, options ...PropertyOption) ObjectOption {
	return property(name, "boolean", options)
}

func property(name, typ string, options []PropertyOption) ObjectOption {
	return func(properties map[string]interface{}, required *[]string) {
		prop := map[string]interface{}{"type": typ}
		for _, option := range options {
			if option(prop) {
				*required = append(*required, name)
			}
		}
		properties[name] = prop
	}
}
