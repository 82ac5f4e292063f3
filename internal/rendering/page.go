// Package rendering renders the HTML page from its template file and the
// aggregated feed data.
package rendering

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jonathan/newsdesk/internal/aggregate"
)

// Renderer renders the page template. The template file is read and parsed on
// every call, so edits show up without a restart.
type Renderer struct {
	templatePath string
	helpers      Helpers
}

// NewRenderer creates a Renderer for the template at templatePath.
func NewRenderer(templatePath string, helpers Helpers) *Renderer {
	return &Renderer{
		templatePath: templatePath,
		helpers:      helpers,
	}
}

// TemplatePath returns the template file this renderer reads.
func (r *Renderer) TemplatePath() string {
	return r.templatePath
}

// Load reads and parses the template. A missing file yields a TemplateError
// with NotFound set.
func (r *Renderer) Load() (*template.Template, error) {
	content, err := os.ReadFile(r.templatePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &TemplateError{
				Message:  fmt.Sprintf("template file not found: %s", r.templatePath),
				NotFound: true,
				Cause:    err,
			}
		}
		return nil, &TemplateError{
			Message: fmt.Sprintf("failed to read template file: %s", r.templatePath),
			Cause:   err,
		}
	}

	tmpl, err := template.New(filepath.Base(r.templatePath)).
		Funcs(r.helpers.FuncMap()).
		Parse(string(content))
	if err != nil {
		return nil, &TemplateError{
			Message: "failed to parse template",
			Cause:   err,
		}
	}

	return tmpl, nil
}

// Execute renders an already loaded template. Output is buffered so nothing
// reaches w when execution fails.
func (r *Renderer) Execute(w io.Writer, tmpl *template.Template, data aggregate.PageData) error {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return &RenderError{
			Message: "failed to execute template",
			Cause:   err,
		}
	}
	if _, err := buf.WriteTo(w); err != nil {
		return &RenderError{
			Message: "failed to write page",
			Cause:   err,
		}
	}
	return nil
}

// Render loads the template and executes it with data.
func (r *Renderer) Render(w io.Writer, data aggregate.PageData) error {
	tmpl, err := r.Load()
	if err != nil {
		return err
	}
	return r.Execute(w, tmpl, data)
}
