package rendering

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/newsdesk/internal/aggregate"
)

func TestSampleSiteTemplate(t *testing.T) {
	r := NewRenderer(filepath.Join("..", "..", "site", "template.html"), testHelpers())

	tests := []struct {
		name      string
		data      aggregate.PageData
		news      int
		phrases   int
		emptyMsgs int
	}{
		{
			name: "both feeds",
			data: aggregate.PageData{
				News:    []interface{}{map[string]interface{}{"title": "Один", "date": 1483228800000.0}},
				Phrases: []interface{}{"привет всем"},
			},
			news:    1,
			phrases: 1,
		},
		{
			name:      "no feeds",
			data:      aggregate.PageData{},
			emptyMsgs: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var sb strings.Builder
			require.NoError(t, r.Render(&sb, tt.data))

			doc, err := goquery.NewDocumentFromReader(strings.NewReader(sb.String()))
			require.NoError(t, err)

			assert.Equal(t, tt.news, doc.Find("li.news-item").Length())
			assert.Equal(t, tt.phrases, doc.Find("li.phrase").Length())
			assert.Equal(t, tt.emptyMsgs, doc.Find("p.empty").Length())
		})
	}
}
