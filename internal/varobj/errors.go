package varobj

import "fmt"

// InvalidExpressionError indicates creation failed because the text
// did not parse, or parsed to a bare type name.
type InvalidExpressionError struct {
	Text   string
	Reason string
}

func (e *InvalidExpressionError) Error() string {
	return fmt.Sprintf("invalid expression %q: %s", e.Text, e.Reason)
}

func NewInvalidExpressionError(text, reason string) *InvalidExpressionError {
	return &InvalidExpressionError{Text: text, Reason: reason}
}

// DuplicateNameError indicates a registry key collision on install.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("duplicate variable object name: %s", e.Name)
}

func NewDuplicateNameError(name string) *DuplicateNameError {
	return &DuplicateNameError{Name: name}
}

// NotFoundError indicates a lookup of an unregistered key.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("variable object not found: %s", e.Name)
}

func NewNotFoundError(name string) *NotFoundError {
	return &NotFoundError{Name: name}
}

// AssignmentError indicates SetValue failed; the prior value is
// untouched.
type AssignmentError struct {
	Name   string
	Reason string
}

func (e *AssignmentError) Error() string {
	return fmt.Sprintf("cannot assign to %s: %s", e.Name, e.Reason)
}

func NewAssignmentError(name, reason string) *AssignmentError {
	return &AssignmentError{Name: name, Reason: reason}
}

// NotARootError indicates an update was requested on a non-root node.
type NotARootError struct {
	Name string
}

func (e *NotARootError) Error() string {
	return fmt.Sprintf("not a root variable object: %s", e.Name)
}

func NewNotARootError(name string) *NotARootError {
	return &NotARootError{Name: name}
}
