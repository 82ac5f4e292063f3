package observability

import (
	"fmt"
	"io"
	"strings"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode and the check command
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// Setting is one labelled line in a settings box.
type Setting struct {
	Name  string
	Value string
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		runes := []rune(line)
		if len(runes) > boxWidth-4 {
			line = string(runes[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintSettings outputs the effective server settings.
func (p *Printer) PrintSettings(settings []Setting) {
	if len(settings) == 0 {
		return
	}

	width := 0
	for _, s := range settings {
		width = max(width, len(s.Name))
	}

	var sb strings.Builder
	for _, s := range settings {
		sb.WriteString(fmt.Sprintf("%-*s  %s\n", width+1, s.Name+":", s.Value))
	}

	p.printBox("SERVER SETTINGS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintFeed outputs whether a feed was available and a preview of its items.
// A nil document means the feed is absent.
func (p *Printer) PrintFeed(name string, document interface{}) {
	var sb strings.Builder

	switch doc := document.(type) {
	case nil:
		sb.WriteString("Status: absent")
	case []interface{}:
		sb.WriteString(fmt.Sprintf("Status: present (%d items)\n", len(doc)))
		count := min(len(doc), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", previewItem(doc[i])))
		}
		if len(doc) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(doc)-maxItemsToShow))
		}
	case map[string]interface{}:
		sb.WriteString(fmt.Sprintf("Status: present (object, %d keys)", len(doc)))
	default:
		sb.WriteString(fmt.Sprintf("Status: present (%T)", doc))
	}

	p.printBox(strings.ToUpper(name)+" FEED", strings.TrimSuffix(sb.String(), "\n"))
}

// previewItem picks a readable label for a feed item.
func previewItem(item interface{}) string {
	switch v := item.(type) {
	case string:
		return v
	case map[string]interface{}:
		for _, key := range []string{"title", "text", "name"} {
			if s, ok := v[key].(string); ok && s != "" {
				return s
			}
		}
		return fmt.Sprintf("(object, %d keys)", len(v))
	default:
		return fmt.Sprint(v)
	}
}
