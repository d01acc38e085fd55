package web_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/seopilot/internal/web"
)

func TestDocument(t *testing.T) {
	t.Parallel()

	renderDoc := func(t *testing.T, stream string) string {
		t.Helper()
		var buf bytes.Buffer
		require.NoError(t, web.Document("Dashboard", "", stream, templ.NopComponent).Render(context.Background(), &buf))
		return buf.String()
	}

	t.Run("opens the stream from the body", func(t *testing.T) {
		t.Parallel()
		assert.Contains(t, renderDoc(t, "/dashboard/stream"), `<body data-init="@get(&#39;/dashboard/stream&#39;)">`)
	})

	t.Run("quotes in the stream url stay inside the expression", func(t *testing.T) {
		t.Parallel()
		body := renderDoc(t, `/s?q=it's`)
		assert.Contains(t, body, `data-init="@get(&#39;/s?q=it\&#39;s&#39;)"`)
		assert.NotContains(t, body, `'`)
	})

	t.Run("no stream", func(t *testing.T) {
		t.Parallel()
		body := renderDoc(t, "")
		assert.Contains(t, body, `<body>`)
		assert.NotContains(t, body, "data-init")
	})
}
