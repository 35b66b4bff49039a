// Package swagger serves the OpenAPI document and a ReDoc page for it.
package swagger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
)

const (
	pathDocs = "/api-docs"
	pathSpec = "/openapi.yaml"

	// redocScriptURL is the pinned ReDoc bundle the docs page loads.
	redocScriptURL = "https://cdn.jsdelivr.net/npm/redoc@2.1.5/bundles/redoc.standalone.js"
)

// specETag is a strong validator for the embedded document.
var specETag = func() string { //nolint:gochecknoglobals // computed once from embedded bytes
	sum := sha256.Sum256(OpenAPI)
	return `"` + hex.EncodeToString(sum[:8]) + `"`
}()

// Register attaches the API docs routes to mux.
//
//	GET /api-docs      -> ReDoc page
//	GET /openapi.yaml  -> embedded OpenAPI document, ETag-validated
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}
	mux.HandleFunc("GET "+pathDocs, serveDocs)
	mux.HandleFunc("GET "+pathSpec, serveSpec)
}

func serveDocs(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(docsPage))
}

func serveSpec(w http.ResponseWriter, r *http.Request) {
	h := w.Header()
	h.Set("ETag", specETag)
	h.Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == specETag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	h.Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(OpenAPI)
}

const docsPage = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Gaze API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="` + redocScriptURL + `"></script>
    <script>Redoc.init('` + pathSpec + `', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`
