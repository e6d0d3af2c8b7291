package pdf

import (
	"errors"
	"fmt"
)

var (
	// ErrFieldNotFound is returned when writing a field the form does not have
	ErrFieldNotFound = errors.New("form field not found")
	// ErrEmptyDocument is returned for zero-length PDF input
	ErrEmptyDocument = errors.New("empty PDF document")
)

// TemplateError reports a template that could not be loaded or parsed.
// Rendering cannot continue past it.
type TemplateError struct {
	Name string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %v", e.Name, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// IsTemplateError reports whether err is, or wraps, a *TemplateError
func IsTemplateError(err error) bool {
	var te *TemplateError
	return errors.As(err, &te)
}
