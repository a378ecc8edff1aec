package domain

import "fmt"

// DuplicateToolError indicates a second registration under an existing
// tool name. Two tools sharing a name would make the wire-protocol tool
// list ambiguous, so this is a hard setup-time failure.
type DuplicateToolError struct {
	Name string
}

// Error returns the error message.
func (e *DuplicateToolError) Error() string {
	return fmt.Sprintf("tool %q is already registered", e.Name)
}

// NewDuplicateToolError creates a new DuplicateToolError.
func NewDuplicateToolError(name string) *DuplicateToolError {
	return &DuplicateToolError{Name: name}
}

// DuplicateComponentError indicates a second registration under an
// existing component type.
type DuplicateComponentError struct {
	Type string
}

// Error returns the error message.
func (e *DuplicateComponentError) Error() string {
	return fmt.Sprintf("component %q is already registered", e.Type)
}

// NewDuplicateComponentError creates a new DuplicateComponentError.
func NewDuplicateComponentError(componentType string) *DuplicateComponentError {
	return &DuplicateComponentError{Type: componentType}
}

// ComponentNotRegisteredError indicates an operation referenced a component
// type with no registered definition. Bundles cannot exist without one.
type ComponentNotRegisteredError struct {
	Type string
}

// Error returns the error message.
func (e *ComponentNotRegisteredError) Error() string {
	return fmt.Sprintf("component %q is not registered", e.Type)
}

// NewComponentNotRegisteredError creates a new ComponentNotRegisteredError.
func NewComponentNotRegisteredError(componentType string) *ComponentNotRegisteredError {
	return &ComponentNotRegisteredError{Type: componentType}
}

// ToolNotFoundError indicates that a requested tool was not found.
type ToolNotFoundError struct {
	Name string
}

// Error returns the error message.
func (e *ToolNotFoundError) Error() string {
	return fmt.Sprintf("tool with name %s not found", e.Name)
}

// NewToolNotFoundError creates a new ToolNotFoundError.
func NewToolNotFoundError(name string) *ToolNotFoundError {
	return &ToolNotFoundError{Name: name}
}

// ResourceNotFoundError indicates that a requested resource was not found.
type ResourceNotFoundError struct {
	URI string
}

// Error returns the error message.
func (e *ResourceNotFoundError) Error() string {
	return fmt.Sprintf("resource with URI %s not found", e.URI)
}

// NewResourceNotFoundError creates a new ResourceNotFoundError.
func NewResourceNotFoundError(uri string) *ResourceNotFoundError {
	return &ResourceNotFoundError{URI: uri}
}

// SessionNotFoundError indicates that a requested session was not found.
type SessionNotFoundError struct {
	ID string
}

// Error returns the error message.
func (e *SessionNotFoundError) Error() string {
	return fmt.Sprintf("session with ID %s not found", e.ID)
}

// NewSessionNotFoundError creates a new SessionNotFoundError.
func NewSessionNotFoundError(id string) *SessionNotFoundError {
	return &SessionNotFoundError{ID: id}
}

// LifecycleError indicates a provider adapter method was called out of
// order, for example StartServer before Initialize. This is a programmer
// error and fails loudly instead of being recovered.
type LifecycleError struct {
	Op     string
	Reason string
}

// Error returns the error message.
func (e *LifecycleError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}

// NewLifecycleError creates a new LifecycleError.
func NewLifecycleError(op, reason string) *LifecycleError {
	return &LifecycleError{Op: op, Reason: reason}
}
