package rendering

import (
	"errors"
	"fmt"
)

// TemplateError represents errors loading or parsing the page template
type TemplateError struct {
	Message string
	// NotFound is set when the template file does not exist.
	NotFound bool
	Cause    error
}

func (e *TemplateError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("template error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("template error: %s", e.Message)
}

func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// IsTemplateNotFound reports whether err means the template file is missing.
func IsTemplateNotFound(err error) bool {
	var templateErr *TemplateError
	return errors.As(err, &templateErr) && templateErr.NotFound
}

// RenderError represents a failure executing the template against page data
type RenderError struct {
	Message string
	Cause   error
}

func (e *RenderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("render error: %s: %v", e.Message, e.Cause)
	}
	return fmt.Sprintf("render error: %s", e.Message)
}

func (e *RenderError) Unwrap() error {
	return e.Cause
}
