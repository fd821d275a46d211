// Package swagger serves the OpenAPI document and a ReDoc viewer for it.
package swagger

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/knadh/koanf/parsers/yaml"
)

// Content types of the documentation routes.
const (
	contentHTML = "text/html; charset=utf-8"
	contentYAML = "application/yaml; charset=utf-8"
	contentJSON = "application/json"
)

// openAPIJSON renders the embedded YAML document as JSON for clients that
// cannot read YAML. The conversion runs once.
var openAPIJSON = sync.OnceValues(func() ([]byte, error) { //nolint:gochecknoglobals // memoized document
	doc, err := yaml.Parser().Unmarshal(OpenAPI)
	if err != nil {
		return nil, fmt.Errorf("parse openapi.yaml: %w", err)
	}
	return json.Marshal(doc)
})

// Register attaches the API docs routes to mux.
// Routes:
//
//	GET /api-docs      -> ReDoc HTML
//	GET /openapi.yaml  -> Embedded OpenAPI document
//	GET /openapi.json  -> The same document as JSON
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	mux.HandleFunc("/api-docs", static(contentHTML, []byte(indexHTML)))
	mux.HandleFunc("/openapi.yaml", static(contentYAML, OpenAPI))
	mux.HandleFunc("/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		body, err := openAPIJSON()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		static(contentJSON, body)(w, r)
	})
}

// static serves body for GET and HEAD only.
func static(contentType string, body []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			w.Header().Set("Allow", "GET, HEAD")
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Cache-Control", "public, max-age=300")
		if r.Method == http.MethodHead {
			return
		}
		_, _ = w.Write(body)
	}
}

const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Emberwatch API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="https://cdn.redoc.ly/redoc/latest/bundles/redoc.standalone.js"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
