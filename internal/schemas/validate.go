// Package schemas provides JSON Schema validation for decoded upstream feed documents.
package schemas

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ValidationError represents a schema validation error with field paths
type ValidationError struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

// SchemaLoadError represents errors loading or parsing the schema itself
type SchemaLoadError struct {
	Path    string
	Message string
	Cause   error
}

func (e *SchemaLoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load schema %s: %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load schema %s: %s", e.Path, e.Message)
}

func (e *SchemaLoadError) Unwrap() error {
	return e.Cause
}

func (ve *ValidationError) Error() string {
	var sb strings.Builder
	sb.WriteString("validation failed:\n")
	for i, err := range ve.Errors {
		sb.WriteString(fmt.Sprintf("  %d. %s: %s\n", i+1, err.Field, err.Message))
	}
	return sb.String()
}

// Schema is a compiled JSON Schema. It is immutable after Load and safe for
// concurrent use.
type Schema struct {
	path   string
	schema *gojsonschema.Schema
}

// Load compiles the JSON Schema file at path.
func Load(path string) (*Schema, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve schema path: %w", err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return nil, &SchemaLoadError{
			Path:    absPath,
			Message: "schema file not found",
			Cause:   err,
		}
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewReferenceLoader("file://" + filepath.ToSlash(absPath)))
	if err != nil {
		return nil, &SchemaLoadError{
			Path:    absPath,
			Message: "invalid schema",
			Cause:   err,
		}
	}

	return &Schema{path: absPath, schema: compiled}, nil
}

// LoadString compiles a schema held in memory.
func LoadString(content string) (*Schema, error) {
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(content))
	if err != nil {
		return nil, &SchemaLoadError{
			Path:    "(string schema)",
			Message: "invalid schema",
			Cause:   err,
		}
	}
	return &Schema{path: "(string schema)", schema: compiled}, nil
}

// Path returns where the schema was loaded from.
func (s *Schema) Path() string {
	return s.path
}

// Validate checks an already decoded JSON document (as produced by
// encoding/json into an interface{}) against the schema.
func (s *Schema) Validate(document interface{}) error {
	result, err := s.schema.Validate(gojsonschema.NewGoLoader(document))
	if err != nil {
		return fmt.Errorf("failed to validate document against %s: %w", s.path, err)
	}

	if result.Valid() {
		return nil
	}

	validationErr := &ValidationError{
		Errors: make([]FieldError, 0, len(result.Errors())),
	}

	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		validationErr.Errors = append(validationErr.Errors, FieldError{
			Field:   field,
			Message: desc.Description(),
		})
	}

	return validationErr
}
