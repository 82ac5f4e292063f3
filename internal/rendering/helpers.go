package rendering

import (
	"fmt"
	"html/template"
	"math"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

// Supported locales for custom_date.
const (
	LocaleRU = "ru"
	LocaleEN = "en"
)

// DefaultBoldWords are highlighted by bold_phrase when no list is configured.
var DefaultBoldWords = []string{"привет", "privet"}

// longDate is the long date format per locale. monday switches to
// genitive month names when the day precedes the month.
var longDate = map[string]struct {
	layout string
	locale monday.Locale
	suffix string
}{
	LocaleRU: {layout: "2 January 2006", locale: monday.LocaleRuRU, suffix: " г."},
	LocaleEN: {layout: "January 2, 2006", locale: monday.LocaleEnUS},
}

// dateLayouts are tried in order; layouts without a zone use Helpers.Location.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Helpers configures the template functions for one render. A Helpers value is
// turned into a fresh FuncMap per render, so renders never share helper state.
type Helpers struct {
	Locale    string
	BoldWords []string
	// Location is used for dates without an explicit offset and for display.
	// Nil means time.Local.
	Location *time.Location
}

// DefaultHelpers returns the Russian-locale helpers with the default bold words.
func DefaultHelpers() Helpers {
	return Helpers{
		Locale:    LocaleRU,
		BoldWords: DefaultBoldWords,
	}
}

// FuncMap builds the template functions bound to this configuration.
func (h Helpers) FuncMap() template.FuncMap {
	bold := make(map[string]struct{}, len(h.BoldWords))
	for _, w := range h.BoldWords {
		bold[w] = struct{}{}
	}
	return template.FuncMap{
		"custom_date": h.CustomDate,
		"bold_phrase": func(phrase interface{}) template.HTML {
			return boldPhrase(phrase, bold)
		},
	}
}

// CustomDate formats a feed date in the long localized form, e.g.
// "15 октября 2026 г." for ru. Values that are not recognizable dates are
// returned as-is.
func (h Helpers) CustomDate(value interface{}) string {
	t, ok := h.parseDate(value)
	if !ok {
		if value == nil {
			return ""
		}
		return fmt.Sprint(value)
	}

	f, ok := longDate[h.Locale]
	if !ok {
		f = longDate[LocaleRU]
	}
	return monday.Format(t, f.layout, f.locale) + f.suffix
}

func (h Helpers) location() *time.Location {
	if h.Location != nil {
		return h.Location
	}
	return time.Local
}

func (h Helpers) parseDate(value interface{}) (time.Time, bool) {
	loc := h.location()
	switch v := value.(type) {
	case time.Time:
		return v.In(loc), true
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return time.Time{}, false
		}
		return time.UnixMilli(int64(v)).In(loc), true
	case int:
		return time.UnixMilli(int64(v)).In(loc), true
	case int64:
		return time.UnixMilli(v).In(loc), true
	case string:
		s := strings.TrimSpace(v)
		for _, layout := range dateLayouts {
			if t, err := time.ParseInLocation(layout, s, loc); err == nil {
				return t.In(loc), true
			}
		}
	}
	return time.Time{}, false
}

// boldPhrase wraps every space-separated word found in bold with <b> tags.
// Everything else is HTML-escaped.
func boldPhrase(phrase interface{}, bold map[string]struct{}) template.HTML {
	if phrase == nil {
		return ""
	}
	text, ok := phrase.(string)
	if !ok {
		text = fmt.Sprint(phrase)
	}

	words := strings.Split(text, " ")
	for i, word := range words {
		escaped := template.HTMLEscapeString(word)
		if _, ok := bold[word]; ok {
			escaped = "<b>" + escaped + "</b>"
		}
		words[i] = escaped
	}
	return template.HTML(strings.Join(words, " ")) //nolint:gosec // every word is escaped above
}
