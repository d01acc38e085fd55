package web

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/a-h/templ"
	"github.com/starfederation/datastar-go/datastar"
)

// Document wraps body in the HTML page shell. A non-empty stream URL opens
// the datastar SSE connection from the body element, outside every patched
// container, so re-rendering never restarts it.
func Document(title, datastarURL, stream string, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		hw.raw(`<meta name="viewport" content="width=device-width, initial-scale=1"><title>`)
		hw.text(title)
		hw.raw(`</title>`)
		if datastarURL != "" {
			hw.raw(`<script type="module" src="`)
			hw.text(datastarURL)
			hw.raw(`"></script>`)
		}
		hw.raw(`</head><body`)
		if stream != "" {
			hw.raw(` data-init="`)
			hw.text("@get('" + jsQuote.Replace(stream) + "')")
			hw.raw(`"`)
		}
		hw.raw(`>`)
		if hw.err != nil {
			return hw.err
		}
		if err := body.Render(ctx, w); err != nil {
			return err
		}
		hw.raw(`</body></html>`)
		return hw.err
	})
}

// jsQuote escapes a value placed inside a single-quoted datastar expression.
var jsQuote = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

// isDatastar reports whether r was issued by the datastar client.
func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true" ||
		strings.Contains(r.Header.Get("Accept"), "text/event-stream")
}

// render writes c as a full HTML response with status.
func render(w http.ResponseWriter, r *http.Request, status int, c templ.Component) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	return c.Render(r.Context(), w)
}

// redirect answers with 303 See Other, or with a datastar redirect event for
// requests coming from the datastar client.
func redirect(w http.ResponseWriter, r *http.Request, target string) {
	if isDatastar(r) {
		_ = datastar.NewSSE(w, r).Redirect(target)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// htmlWriter accumulates the first write error.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(parts ...string) {
	for _, p := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, p)
	}
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

// message renders a single-paragraph page body with a link back to the dashboard.
func message(text string) templ.Component {
	return templ.ComponentFunc(func(_ context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}
		hw.raw(`<main class="message"><p>`)
		hw.text(text)
		hw.raw(`</p><a href="/dashboard">Back to dashboard</a></main>`)
		return hw.err
	})
}
