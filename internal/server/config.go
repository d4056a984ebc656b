package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig holds all configuration for the notebook dashboard server.
type ServerConfig struct {
	// Network
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`

	// CORS
	AllowOrigin string `mapstructure:"allow_origin"`

	// Kubernetes
	KubeQPS   float32 `mapstructure:"kube_qps"`
	KubeBurst int     `mapstructure:"kube_burst"`

	// Logging
	LogLevel string `mapstructure:"log_level"`

	// Dashboard resources
	DashboardNamespace string `mapstructure:"dashboard_namespace"`
	ConfigMapName      string `mapstructure:"config_map_name"`
	PVCSize            string `mapstructure:"pvc_size"`
	StorageClass       string `mapstructure:"storage_class"`

	// Sessions / auth
	JWTSecret         string `mapstructure:"jwt_secret"`
	SessionCookieName string `mapstructure:"session_cookie_name"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
	AllowTokenParam   bool   `mapstructure:"allow_token_param"`

	// Local login
	EnableLocalLogin bool   `mapstructure:"enable_local_login"`
	LocalUsersPath   string `mapstructure:"local_users_path"`

	// OIDC
	OIDCIssuerURL    string   `mapstructure:"oidc_issuer_url"`
	OIDCClientID     string   `mapstructure:"oidc_client_id"`
	OIDCClientSecret string   `mapstructure:"oidc_client_secret"`
	OIDCRedirectURL  string   `mapstructure:"oidc_redirect_url"`
	OIDCScopes       []string `mapstructure:"oidc_scopes"`

	// RBAC (Casbin) files
	RBACModelPath  string `mapstructure:"rbac_model_path"`
	RBACPolicyPath string `mapstructure:"rbac_policy_path"`
}

// LoadServerConfig reads dashboard-config.yaml + env (NOTEBOOK_DASHBOARD_*)
// into ServerConfig.
func LoadServerConfig() (*ServerConfig, error) {
	v := viper.New()

	v.SetDefault("port", 8080)
	v.SetDefault("host", "")
	v.SetDefault("read_timeout", 5)
	v.SetDefault("write_timeout", 10)
	v.SetDefault("allow_origin", "")

	v.SetDefault("kube_qps", 50.0)
	v.SetDefault("kube_burst", 100)

	v.SetDefault("log_level", "info")

	v.SetDefault("dashboard_namespace", "notebook-dashboard")
	v.SetDefault("config_map_name", "notebook-dashboard-config")
	v.SetDefault("pvc_size", "20Gi")
	v.SetDefault("storage_class", "")

	v.SetDefault("jwt_secret", "change-me")
	v.SetDefault("session_cookie_name", "")
	v.SetDefault("session_ttl_minutes", 60)
	v.SetDefault("allow_token_param", false)

	v.SetDefault("enable_local_login", false)
	v.SetDefault("local_users_path", "/etc/notebook-dashboard/local-users.yaml")

	v.SetDefault("oidc_issuer_url", "")
	v.SetDefault("oidc_client_id", "")
	v.SetDefault("oidc_client_secret", "")
	v.SetDefault("oidc_redirect_url", "")
	v.SetDefault("oidc_scopes", []string{})

	v.SetDefault("rbac_model_path", "")
	v.SetDefault("rbac_policy_path", "")

	setupViper(v, "NOTEBOOK_DASHBOARD", "dashboard-config")

	var cfg ServerConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal server config: %w", err)
	}

	return &cfg, nil
}

// setupViper configures env binding and the config file search path.
// <PREFIX>_CONFIG_DEFAULT_PATH may point at a file or a directory and takes
// precedence over the built-in search paths.
func setupViper(v *viper.Viper, envPrefix, configName string) {
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetConfigName(configName)
	v.SetConfigType("yaml")

	if p := strings.TrimSpace(os.Getenv(envPrefix + "_CONFIG_DEFAULT_PATH")); p != "" {
		if st, err := os.Stat(p); err == nil && st.IsDir() {
			v.AddConfigPath(p)
		} else {
			v.SetConfigFile(p)
			_ = v.ReadInConfig()
			return
		}
	}

	v.AddConfigPath(".")
	v.AddConfigPath("/etc/notebook-dashboard/")
	v.AddConfigPath(filepath.Join("$HOME", ".notebook-dashboard"))

	// Missing config file is fine; env and defaults carry.
	_ = v.ReadInConfig()
}

// GetAddr returns the full address string for binding.
func (c *ServerConfig) GetAddr() string {
	if strings.TrimSpace(c.Host) == "" {
		return fmt.Sprintf(":%d", c.Port)
	}
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
