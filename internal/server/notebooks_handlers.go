package server

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/fields"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/notebook-operator/notebook-dashboard/internal/notebooks"
)

// handleNotebooks routes /api/v1/notebooks/{namespace}/{username}/{operation}.
func (h *handlers) handleNotebooks(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/notebooks/")
	parts := strings.Split(rest, "/")
	if len(parts) != 3 {
		badRequest(w, "expected /api/v1/notebooks/{namespace}/{username}/{operation}")
		return
	}
	ns, username, op := parts[0], parts[1], parts[2]
	if ns == "" || username == "" {
		badRequest(w, "namespace and username are required")
		return
	}

	switch op {
	case "envvars":
		h.handleEnvVars(w, r, ns, username)
	case "status":
		h.handleNotebookStatus(w, r, ns, username)
	case "pvc":
		h.handleNotebookPVC(w, r, ns, username)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// handleNamespaces routes /api/v1/namespaces/{namespace}/{operation}.
func (h *handlers) handleNamespaces(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/namespaces/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 {
		badRequest(w, "expected /api/v1/namespaces/{namespace}/{operation}")
		return
	}
	ns, op := parts[0], parts[1]
	if ns == "" {
		badRequest(w, "namespace is required")
		return
	}

	switch op {
	case "image-puller":
		h.handleImagePuller(w, r, ns)
	default:
		http.Error(w, "not found", http.StatusNotFound)
	}
}

// @Summary Reconcile notebook env vars
// @Description Converge the per-user env-var Secret and ConfigMap to the posted rows
// @Tags notebooks
// @Accept json
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Param namespace path string true "Notebook namespace"
// @Param username path string true "Username"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/notebooks/{namespace}/{username}/envvars [post]
func (h *handlers) handleEnvVars(w http.ResponseWriter, r *http.Request, ns, username string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := mustCan(h.deps, w, r, "notebook", "update", ns); !ok {
		return
	}

	var body struct {
		Rows []notebooks.VariableRow `json:"rows"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		badRequest(w, "invalid env var rows")
		return
	}

	if err := h.deps.reconciler.ReconcileEnvVarFile(r.Context(), username, ns, body.Rows); err != nil {
		errJSON(w, err)
		return
	}
	writeJSON(w, map[string]string{
		"status": "reconciled",
		"name":   notebooks.EnvVarFileName(username),
	})
}

// @Summary Notebook startup status
// @Description Derive spawn progress from the notebook pod's events
// @Tags notebooks
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Param namespace path string true "Notebook namespace"
// @Param username path string true "Username"
// @Param since query string false "RFC3339 cutoff; only events strictly after it count"
// @Success 200 {object} notebooks.NotebookProgress
// @Success 204 "no events in the window"
// @Failure 403 {object} map[string]string
// @Router /api/v1/notebooks/{namespace}/{username}/status [get]
func (h *handlers) handleNotebookStatus(w http.ResponseWriter, r *http.Request, ns, username string) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := mustCan(h.deps, w, r, "notebook", "get", ns); !ok {
		return
	}

	var since time.Time
	if raw := q(r, "since", ""); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			badRequest(w, "since must be RFC3339")
			return
		}
		since = t
	}

	name := notebooks.NotebookName(username)
	var events corev1.EventList
	if err := h.deps.client.List(r.Context(), &events,
		client.InNamespace(ns),
		client.MatchingFieldsSelector{Selector: fields.OneTermEqualSelector("involvedObject.name", name)},
	); err != nil {
		errJSON(w, err)
		return
	}

	// List returns events in name order; the fold keys off the most recent
	// observation, so restore chronological order first.
	sort.SliceStable(events.Items, func(i, j int) bool {
		return events.Items[i].LastTimestamp.Before(&events.Items[j].LastTimestamp)
	})

	progress := notebooks.DeriveNotebookStatus(events.Items, since)
	if progress == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, progress)
}

// @Summary Ensure notebook workspace PVC
// @Description Create the user's workspace claim if it does not exist
// @Tags notebooks
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Param namespace path string true "Notebook namespace"
// @Param username path string true "Username"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/notebooks/{namespace}/{username}/pvc [post]
func (h *handlers) handleNotebookPVC(w http.ResponseWriter, r *http.Request, ns, username string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if _, ok := mustCan(h.deps, w, r, "notebook", "create", ns); !ok {
		return
	}

	// Size and class come from the stored dashboard config, falling back to
	// the server config defaults.
	size := h.deps.config.PVCSize
	class := h.deps.config.StorageClass
	if doc, err := h.deps.store.Load(r.Context()); err == nil {
		if doc.Storage.PVCSize != "" {
			size = doc.Storage.PVCSize
		}
		if doc.Storage.StorageClass != "" {
			class = doc.Storage.StorageClass
		}
	}

	pvc, err := h.deps.reconciler.EnsureNotebookPVC(r.Context(), username, ns, size, class)
	if err != nil {
		errJSON(w, err)
		return
	}
	writeJSON(w, map[string]string{
		"status": "ensured",
		"name":   pvc.Name,
	})
}

// @Summary Ensure image-puller role binding
// @Description Grant a namespace's service accounts the image-puller cluster role
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Security CookieAuth
// @Param namespace path string true "Notebook namespace"
// @Success 200 {object} map[string]string
// @Failure 403 {object} map[string]string
// @Router /api/v1/namespaces/{namespace}/image-puller [post]
func (h *handlers) handleImagePuller(w http.ResponseWriter, r *http.Request, ns string) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	cl, ok := mustCan(h.deps, w, r, "notebook", "create", ns)
	if !ok {
		return
	}

	if err := h.deps.reconciler.EnsureImagePullerRoleBinding(r.Context(), ns, h.deps.config.DashboardNamespace); err != nil {
		errJSON(w, err)
		return
	}
	logger.Info("Image puller role binding ensured", "namespace", ns, "user", cl.Subject)
	writeJSON(w, map[string]string{"status": "ensured"})
}
