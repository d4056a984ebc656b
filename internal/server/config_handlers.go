package server

import (
	"io"
	"net/http"
)

// handleDashboardConfig - GET/PATCH /api/config
// @Summary Dashboard configuration
// @Description Read or merge-patch the dashboard configuration document
// @Tags config
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Success 200 {object} dashboard.Config
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/config [get]
// @Router /api/config [patch]
func (h *handlers) handleDashboardConfig(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		if _, ok := mustCan(h.deps, w, r, "config", "get", "*"); !ok {
			return
		}
		cfg, err := h.deps.store.Load(r.Context())
		if err != nil {
			errJSON(w, err)
			return
		}
		writeJSON(w, cfg)

	case http.MethodPatch:
		cl, ok := mustCan(h.deps, w, r, "config", "update", "*")
		if !ok {
			return
		}
		// RFC 7386 JSON merge patch
		patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
		if err != nil {
			badRequest(w, "failed to read patch body")
			return
		}
		if len(patch) == 0 {
			badRequest(w, "empty patch body")
			return
		}
		cfg, err := h.deps.store.MergePatch(r.Context(), patch)
		if err != nil {
			errJSON(w, err)
			return
		}
		logger.Info("Dashboard config patched", "user", cl.Subject)
		writeJSON(w, cfg)

	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}
