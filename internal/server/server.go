package server

import (
	"context"
	"net/http"
	"time"

	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/notebook-operator/notebook-dashboard/internal/dashboard"
	"github.com/notebook-operator/notebook-dashboard/internal/notebooks"
)

// serverDeps holds the server dependencies.
type serverDeps struct {
	client     client.Client
	config     *ServerConfig
	rbac       *RBAC
	store      *dashboard.Store
	reconciler *notebooks.Reconciler
	localUsers *localUsers
}

// RunServer wires the Kubernetes client, RBAC and HTTP surface, then blocks
// serving until the process exits.
func RunServer(cfg *ServerConfig) {
	configureLogger(cfg.LogLevel)

	k8sCfg, err := buildKubeConfig()
	if err != nil {
		logger.Fatal("Kubernetes config", "err", err)
	}
	k8sCfg.Timeout = 30 * time.Second
	k8sCfg.QPS = cfg.KubeQPS
	k8sCfg.Burst = cfg.KubeBurst

	scheme, err := newScheme()
	if err != nil {
		logger.Fatal("Build scheme", "err", err)
	}
	typed, err := client.New(k8sCfg, client.Options{Scheme: scheme})
	if err != nil {
		logger.Fatal("Typed client", "err", err)
	}

	if err := testKubernetesConnection(typed, cfg.DashboardNamespace); err != nil {
		logger.Fatal("Kubernetes connection test failed", "err", err)
	}
	logger.Info("Kubernetes connection established")

	rbac, err := NewRBAC(context.Background(), cfg.RBACModelPath, cfg.RBACPolicyPath)
	if err != nil {
		logger.Fatal("RBAC init", "err", err)
	}

	var users *localUsers
	if cfg.EnableLocalLogin {
		users, err = loadLocalUsers(cfg.LocalUsersPath)
		if err != nil {
			logger.Fatal("Local users", "err", err, "path", cfg.LocalUsersPath)
		}
	}

	deps := &serverDeps{
		client:     typed,
		config:     cfg,
		rbac:       rbac,
		store:      dashboard.NewStore(typed, cfg.DashboardNamespace, cfg.ConfigMapName),
		reconciler: &notebooks.Reconciler{Client: typed},
		localUsers: users,
	}

	mux := setupHandlers(deps)

	srv := &http.Server{
		Addr:              cfg.GetAddr(),
		Handler:           logRequests(withCORS(cfg.AllowOrigin, authGate(cfg, mux))),
		ReadHeaderTimeout: time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout:      time.Duration(cfg.WriteTimeout) * time.Second,
	}

	logger.Info("Notebook dashboard server starting", "addr", cfg.GetAddr())
	logger.Fatal("server exited", "err", srv.ListenAndServe())
}

// setupHandlers creates the HTTP handler surface.
func setupHandlers(deps *serverDeps) *http.ServeMux {
	mux := http.NewServeMux()
	h := newHandlers(deps)

	// === Health, readiness and metrics (no auth required) ===
	mux.HandleFunc("/healthz", h.handleHealthz)
	mux.HandleFunc("/readyz", h.handleReadyz)
	mux.Handle("/metrics", metricsHandler())

	// === Authentication ===
	registerAuthHandlers(mux, deps)
	mux.HandleFunc("/api/v1/me", h.handleMe)

	// === Dashboard configuration ===
	mux.HandleFunc("/api/config", h.handleDashboardConfig)

	// === Notebook operations ===
	mux.HandleFunc("/api/v1/notebooks/", h.handleNotebooks)
	mux.HandleFunc("/api/v1/namespaces/", h.handleNamespaces)

	// === Admin endpoints ===
	mux.HandleFunc("/api/v1/admin/rbac/reload", h.handleRBACReload)
	mux.HandleFunc("/api/v1/admin/system/info", h.handleSystemInfo)

	// === OpenAPI documentation (if compiled in) ===
	setupOpenAPIHandlers(mux, h)

	return mux
}
