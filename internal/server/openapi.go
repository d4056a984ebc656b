package server

import (
	"encoding/json"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"
	"github.com/swaggo/swag"
)

// setupOpenAPIHandlers conditionally serves the spec and UI; swag.ReadDoc is
// empty unless the binary was built with the generated docs package.
func setupOpenAPIHandlers(mux *http.ServeMux, h *handlers) {
	if !swagDocAvailable() {
		logger.Debug("OpenAPI documentation not available - build with -tags docs to enable")
		return
	}

	logger.Info("OpenAPI documentation enabled")

	// Spec endpoint (admin-protected)
	mux.HandleFunc("/api/v1/openapi.json", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustCan(h.deps, w, r, "*", "admin", "*"); !ok {
			return
		}
		h.handleOpenAPISpec(w, r)
	})

	// Swagger UI (admin-protected)
	ui := httpSwagger.Handler(httpSwagger.URL("/api/v1/openapi.json"))
	mux.HandleFunc("/api/docs/", func(w http.ResponseWriter, r *http.Request) {
		if _, ok := mustCan(h.deps, w, r, "*", "admin", "*"); !ok {
			return
		}
		ui.ServeHTTP(w, r)
	})
	mux.HandleFunc("/api/docs", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/docs/", http.StatusMovedPermanently)
	})
}

func swagDocAvailable() bool {
	spec, err := swag.ReadDoc()
	return err == nil && spec != ""
}

func (h *handlers) handleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	spec, err := swag.ReadDoc()
	if err != nil || spec == "" {
		http.Error(w, "OpenAPI spec not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public, max-age=3600")

	if r.URL.Query().Get("pretty") == "1" {
		var specMap map[string]any
		if json.Unmarshal([]byte(spec), &specMap) == nil {
			if prettyJSON, err := json.MarshalIndent(specMap, "", "  "); err == nil {
				_, _ = w.Write(prettyJSON)
				return
			}
		}
	}
	_, _ = w.Write([]byte(spec))
}
