package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// handlers contains all HTTP handlers with their dependencies.
type handlers struct {
	deps *serverDeps
}

func newHandlers(deps *serverDeps) *handlers {
	return &handlers{deps: deps}
}

// @Summary Health check
// @Description Check if the service is healthy
// @Tags health
// @Produce text/plain
// @Success 200 {string} string "ok"
// @Router /healthz [get]
func (h *handlers) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// @Summary Readiness check
// @Description Check if the service can reach the Kubernetes API
// @Tags health
// @Produce text/plain
// @Success 200 {string} string "ready"
// @Failure 503 {string} string "not ready"
// @Router /readyz [get]
func (h *handlers) handleReadyz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	readyCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	var cms corev1.ConfigMapList
	if err := h.deps.client.List(readyCtx, &cms,
		client.InNamespace(h.deps.config.DashboardNamespace), client.Limit(1)); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready: " + err.Error()))
		return
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// @Summary Current user
// @Description Return the claims of the calling session
// @Tags user
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]string
// @Router /api/v1/me [get]
func (h *handlers) handleMe(w http.ResponseWriter, r *http.Request) {
	cl := fromContext(r)
	if cl == nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	writeJSON(w, map[string]any{
		"sub":      cl.Subject,
		"roles":    cl.Roles,
		"provider": cl.Provider,
		"email":    cl.Email,
	})
}

// @Summary Reload RBAC (Admin)
// @Description Force reload of RBAC policies
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/admin/rbac/reload [post]
func (h *handlers) handleRBACReload(w http.ResponseWriter, r *http.Request) {
	cl, ok := mustCan(h.deps, w, r, "*", "admin", "*")
	if !ok {
		return
	}
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.deps.rbac.reload(); err != nil {
		logger.Error("Failed to reload RBAC", "err", err, "admin", cl.Subject)
		errJSON(w, fmt.Errorf("failed to reload RBAC policies: %w", err))
		return
	}

	logger.Info("RBAC policies reloaded", "admin", cl.Subject)
	writeJSON(w, map[string]string{"status": "success"})
}

// @Summary System Info (Admin)
// @Description Inspect server configuration and wiring
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/admin/system/info [get]
func (h *handlers) handleSystemInfo(w http.ResponseWriter, r *http.Request) {
	cl, ok := mustCan(h.deps, w, r, "*", "admin", "*")
	if !ok {
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	info := map[string]any{
		"rbac": map[string]any{
			"modelPath":  h.deps.rbac.modelPath,
			"policyPath": h.deps.rbac.policyPath,
			"status":     "active",
		},
		"dashboard": map[string]any{
			"namespace":     h.deps.config.DashboardNamespace,
			"configMapName": h.deps.config.ConfigMapName,
		},
		"authentication": map[string]any{
			"localLoginEnabled": h.deps.config.EnableLocalLogin,
			"oidcConfigured":    h.deps.config.OIDCIssuerURL != "",
		},
		"documentation": map[string]any{
			"available": swagDocAvailable(),
		},
	}

	logger.Info("Retrieved system info", "admin", cl.Subject)
	writeJSON(w, info)
}
