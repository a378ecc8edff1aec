// Package schema bridges raw JSON-Schema-style input contracts to the
// validation engine and to provider wire formats.
package schema

import (
	"fmt"
	"strings"
	"sync"

	"github.com/mohae/deepcopy"
	"github.com/xeipuuv/gojsonschema"
)

// Converter turns a raw schema into one provider's wire-format schema.
type Converter func(raw map[string]interface{}) (interface{}, error)

// FieldError locates a single validation failure.
type FieldError struct {
	Path    []string
	Message string
}

func (e FieldError) String() string {
	if len(e.Path) == 0 {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", strings.Join(e.Path, "."), e.Message)
}

// Result is the outcome of validating one input value. Validation is a
// total function: failures are data, never panics or Go errors.
type Result struct {
	Valid  bool
	Data   map[string]interface{}
	Errors []FieldError
}

// ErrorText joins all field errors into one human-readable line.
func (r Result) ErrorText() string {
	parts := make([]string, len(r.Errors))
	for i, fe := range r.Errors {
		parts[i] = fe.String()
	}
	return strings.Join(parts, "; ")
}

// Schema wraps a raw JSON-Schema-style contract with a per-provider
// conversion cache. Conversion can be expensive and is requested once per
// tool-listing request per connected client, so cache hits matter.
type Schema struct {
	raw map[string]interface{}

	mu        sync.Mutex
	providers map[string]interface{}
}

// New wraps a raw schema. The raw map is treated as immutable afterwards.
func New(raw map[string]interface{}) *Schema {
	return &Schema{
		raw:       raw,
		providers: make(map[string]interface{}),
	}
}

// Raw returns a deep copy of the underlying schema.
func (s *Schema) Raw() map[string]interface{} {
	return deepcopy.Copy(s.raw).(map[string]interface{})
}

// Validate checks input against the schema. Declared defaults are applied
// to the validated copy before checking, so optional fields with defaults
// always come back populated. Validate never panics and never returns a Go
// error; every failure mode is represented in the Result.
func (s *Schema) Validate(input map[string]interface{}) Result {
	data := applyDefaults(s.raw, input)

	schemaLoader := gojsonschema.NewGoLoader(s.raw)
	dataLoader := gojsonschema.NewGoLoader(data)

	outcome, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return Result{
			Valid:  false,
			Errors: []FieldError{{Message: fmt.Sprintf("schema validation failed: %v", err)}},
		}
	}

	if !outcome.Valid() {
		fieldErrs := make([]FieldError, 0, len(outcome.Errors()))
		for _, verr := range outcome.Errors() {
			fieldErrs = append(fieldErrs, FieldError{
				Path:    fieldPath(verr.Field()),
				Message: verr.Description(),
			})
		}
		return Result{Valid: false, Errors: fieldErrs}
	}

	return Result{Valid: true, Data: data}
}

// ProviderSchema memoizes convert(raw) per provider key. Repeated calls
// with the same key never re-invoke the converter; a distinct key always
// triggers (and caches) a fresh conversion.
func (s *Schema) ProviderSchema(key string, convert Converter) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cached, ok := s.providers[key]; ok {
		return cached, nil
	}

	converted, err := convert(s.Raw())
	if err != nil {
		return nil, fmt.Errorf("converting schema for provider %s: %w", key, err)
	}
	s.providers[key] = converted
	return converted, nil
}

// applyDefaults deep-copies input and fills top-level properties that
// declare a default and are absent from the input.
func applyDefaults(raw, input map[string]interface{}) map[string]interface{} {
	var data map[string]interface{}
	if input == nil {
		data = make(map[string]interface{})
	} else {
		data = deepcopy.Copy(input).(map[string]interface{})
	}

	props, ok := raw["properties"].(map[string]interface{})
	if !ok {
		return data
	}
	for name, propAny := range props {
		prop, ok := propAny.(map[string]interface{})
		if !ok {
			continue
		}
		def, hasDefault := prop["default"]
		if !hasDefault {
			continue
		}
		if _, present := data[name]; !present {
			data[name] = deepcopy.Copy(def)
		}
	}
	return data
}

// fieldPath converts a gojsonschema field reference ("city", "items.0.id",
// "(root)") into a path slice.
func fieldPath(field string) []string {
	if field == "" || field == gojsonschema.STRING_CONTEXT_ROOT || field == "(root)" {
		return nil
	}
	return strings.Split(field, ".")
}
