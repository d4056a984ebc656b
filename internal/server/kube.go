package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// buildKubeConfig creates a Kubernetes client config that works both locally
// and in-cluster.
func buildKubeConfig() (*rest.Config, error) {
	// 1. In-cluster config first (when running inside a pod)
	if cfg, err := rest.InClusterConfig(); err == nil {
		logger.Debug("Using in-cluster Kubernetes config")
		return cfg, nil
	}

	// 2. KUBECONFIG environment variable
	if kubeconfig := os.Getenv("KUBECONFIG"); kubeconfig != "" {
		logger.Debug("Using KUBECONFIG from environment", "path", kubeconfig)
		return clientcmd.BuildConfigFromFlags("", kubeconfig)
	}

	// 3. Default kubeconfig location (~/.kube/config)
	if home := homedir.HomeDir(); home != "" {
		kubeconfig := filepath.Join(home, ".kube", "config")
		if _, err := os.Stat(kubeconfig); err == nil {
			logger.Debug("Using default kubeconfig", "path", kubeconfig)
			return clientcmd.BuildConfigFromFlags("", kubeconfig)
		}
	}

	// 4. Service account token (alternative in-cluster method)
	if _, err := os.Stat("/var/run/secrets/kubernetes.io/serviceaccount/token"); err == nil {
		logger.Debug("Using service account token")
		return rest.InClusterConfig()
	}

	return nil, fmt.Errorf("unable to create Kubernetes client config: tried in-cluster, KUBECONFIG, and ~/.kube/config")
}

// newScheme registers the API groups the dashboard manages: core (ConfigMaps,
// Secrets, PVCs, Events) and rbac (RoleBindings).
func newScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := corev1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("add corev1 to scheme: %w", err)
	}
	if err := rbacv1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("add rbacv1 to scheme: %w", err)
	}
	return scheme, nil
}

// testKubernetesConnection verifies that we can reach the API server before
// serving traffic.
func testKubernetesConnection(c client.Client, namespace string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var cms corev1.ConfigMapList
	if err := c.List(ctx, &cms, client.InNamespace(namespace), client.Limit(1)); err != nil {
		return fmt.Errorf("failed to connect to Kubernetes API: %w", err)
	}
	return nil
}
