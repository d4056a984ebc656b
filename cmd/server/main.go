//go:generate swag init -g main.go -o ../../gen/api --parseDependency --parseInternal -ot json,yaml

// @title Notebook Dashboard API
// @version 1.0.0
// @description REST API for the administrative notebook dashboard: per-user env var files, workspace claims, image-puller grants and notebook spawn status

// @license.name Apache 2.0
// @license.url http://www.apache.org/licenses/LICENSE-2.0.html

// @host localhost:8080
// @BasePath /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Bearer token authentication (JWT)

// @securityDefinitions.apikey CookieAuth
// @in cookie
// @name dashboard_session
// @description Session cookie authentication

// @tag.name authentication
// @tag.description Authentication and session operations

// @tag.name notebooks
// @tag.description Per-user notebook resource operations

// @tag.name config
// @tag.description Dashboard configuration document

// @tag.name admin
// @tag.description Administrative operations (requires admin role)

// @tag.name health
// @tag.description Health and readiness checks

package main

import (
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/notebook-operator/notebook-dashboard/internal/server"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "notebook-dashboard",
		Short: "Notebook Dashboard Web Server",
		Long:  `A web server that provides a REST API for managing per-user notebook resources.`,
		Run: func(cmd *cobra.Command, args []string) {
			server.RunServer(loadConfigWithOverrides(cmd))
		},
	}

	// Basic server flags
	rootCmd.Flags().String("config", "", "Path to config file or directory (highest precedence)")
	rootCmd.Flags().IntP("port", "p", 8080, "Server port")
	rootCmd.Flags().String("host", "", "Server host (empty for all interfaces)")
	rootCmd.Flags().String("allow-origin", "", "CORS allow origin")
	rootCmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.Flags().Float32("kube-qps", 50.0, "Kubernetes client QPS limit")
	rootCmd.Flags().Int("kube-burst", 100, "Kubernetes client burst limit")

	// Dashboard flags
	rootCmd.Flags().String("dashboard-namespace", "", "Namespace for shared dashboard resources")
	rootCmd.Flags().String("config-map-name", "", "Name of the dashboard config ConfigMap")
	rootCmd.Flags().String("pvc-size", "", "Default workspace claim size (e.g. 20Gi)")
	rootCmd.Flags().String("storage-class", "", "Storage class for workspace claims")

	// Authentication flags
	rootCmd.Flags().String("oidc-issuer-url", "", "OIDC issuer URL")
	rootCmd.Flags().String("oidc-client-id", "", "OIDC client ID")
	rootCmd.Flags().String("oidc-client-secret", "", "OIDC client secret")
	rootCmd.Flags().String("oidc-redirect-url", "", "OIDC redirect URL (https://host/auth/callback)")
	rootCmd.Flags().StringSlice("oidc-scopes", []string{}, "OIDC scopes (default: openid profile email)")
	rootCmd.Flags().Bool("enable-local-login", false, "Enable local users login")
	rootCmd.Flags().String("local-users-path", "", "Path to local users file")
	rootCmd.Flags().Bool("allow-token-param", false, "Allow ?access_token=... on URLs (NOT recommended)")
	rootCmd.Flags().Int("session-ttl-minutes", 60, "Session cookie TTL in minutes")
	rootCmd.Flags().String("session-cookie-name", "", "Override session cookie name")

	// RBAC flags
	rootCmd.Flags().String("rbac-model-path", "", "Path to Casbin model.conf (overrides default/env)")
	rootCmd.Flags().String("rbac-policy-path", "", "Path to Casbin policy.csv (overrides default/env)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfigWithOverrides loads configuration with CLI flag overrides.
func loadConfigWithOverrides(cmd *cobra.Command) *server.ServerConfig {
	if cmd.Flags().Changed("config") {
		if p, _ := cmd.Flags().GetString("config"); strings.TrimSpace(p) != "" {
			os.Setenv("NOTEBOOK_DASHBOARD_CONFIG_DEFAULT_PATH", p)
		}
	}

	cfg, err := server.LoadServerConfig()
	if err != nil {
		cmd.PrintErrf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	overrideString := func(target *string, flag string) {
		if cmd.Flags().Changed(flag) {
			if v, _ := cmd.Flags().GetString(flag); v != "" {
				*target = v
			}
		}
	}
	overrideBool := func(target *bool, flag string) {
		if cmd.Flags().Changed(flag) {
			*target, _ = cmd.Flags().GetBool(flag)
		}
	}
	overrideInt := func(target *int, flag string) {
		if cmd.Flags().Changed(flag) {
			*target, _ = cmd.Flags().GetInt(flag)
		}
	}

	overrideInt(&cfg.Port, "port")
	overrideString(&cfg.Host, "host")
	overrideString(&cfg.AllowOrigin, "allow-origin")
	overrideString(&cfg.LogLevel, "log-level")
	if cmd.Flags().Changed("kube-qps") {
		cfg.KubeQPS, _ = cmd.Flags().GetFloat32("kube-qps")
	}
	if cmd.Flags().Changed("kube-burst") {
		cfg.KubeBurst, _ = cmd.Flags().GetInt("kube-burst")
	}

	overrideString(&cfg.DashboardNamespace, "dashboard-namespace")
	overrideString(&cfg.ConfigMapName, "config-map-name")
	overrideString(&cfg.PVCSize, "pvc-size")
	overrideString(&cfg.StorageClass, "storage-class")

	overrideString(&cfg.OIDCIssuerURL, "oidc-issuer-url")
	overrideString(&cfg.OIDCClientID, "oidc-client-id")
	overrideString(&cfg.OIDCClientSecret, "oidc-client-secret")
	overrideString(&cfg.OIDCRedirectURL, "oidc-redirect-url")
	if cmd.Flags().Changed("oidc-scopes") {
		cfg.OIDCScopes, _ = cmd.Flags().GetStringSlice("oidc-scopes")
	}
	overrideBool(&cfg.EnableLocalLogin, "enable-local-login")
	overrideString(&cfg.LocalUsersPath, "local-users-path")
	overrideBool(&cfg.AllowTokenParam, "allow-token-param")
	overrideInt(&cfg.SessionTTLMinutes, "session-ttl-minutes")
	overrideString(&cfg.SessionCookieName, "session-cookie-name")

	overrideString(&cfg.RBACModelPath, "rbac-model-path")
	overrideString(&cfg.RBACPolicyPath, "rbac-policy-path")

	return cfg
}
