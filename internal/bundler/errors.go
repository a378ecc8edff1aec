package bundler

import "fmt"

// ComponentSourceNotFoundError indicates a component's source file does
// not exist. This is a configuration error surfaced at bundle time, never
// deferred to serve time.
type ComponentSourceNotFoundError struct {
	Type string
	Path string
}

// Error returns the error message.
func (e *ComponentSourceNotFoundError) Error() string {
	return fmt.Sprintf("component %q: source file not found at %s", e.Type, e.Path)
}

// NewComponentSourceNotFoundError creates a new ComponentSourceNotFoundError.
func NewComponentSourceNotFoundError(componentType, path string) *ComponentSourceNotFoundError {
	return &ComponentSourceNotFoundError{Type: componentType, Path: path}
}

// CompileError indicates the bundler failed to compile a component. It is
// attributed to the component and the offending file.
type CompileError struct {
	Type   string
	File   string
	Detail string
}

// Error returns the error message.
func (e *CompileError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("component %q: compile error in %s: %s", e.Type, e.File, e.Detail)
	}
	return fmt.Sprintf("component %q: compile error: %s", e.Type, e.Detail)
}

// NewCompileError creates a new CompileError.
func NewCompileError(componentType, file, detail string) *CompileError {
	return &CompileError{Type: componentType, File: file, Detail: detail}
}
