package dashboard

import (
	"context"
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch/v5"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/yaml"
)

const configMapKey = "config.yaml"

// Store reads and writes the dashboard configuration document. The backing
// ConfigMap is created on first save; until then Load serves the defaults.
type Store struct {
	Client    client.Client
	Namespace string
	Name      string
}

func NewStore(c client.Client, namespace, name string) *Store {
	return &Store{Client: c, Namespace: namespace, Name: name}
}

// Load fetches the stored document, falling back to DefaultConfig when the
// ConfigMap (or its key) does not exist yet.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	var cm corev1.ConfigMap
	err := s.Client.Get(ctx, client.ObjectKey{Namespace: s.Namespace, Name: s.Name}, &cm)
	if apierrors.IsNotFound(err) {
		return DefaultConfig(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get config map %s/%s: %w", s.Namespace, s.Name, err)
	}

	raw, ok := cm.Data[configMapKey]
	if !ok || raw == "" {
		return DefaultConfig(), nil
	}
	var cfg Config
	if err := yaml.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("parse dashboard config: %w", err)
	}
	return &cfg, nil
}

// Save persists the document, creating the ConfigMap when absent.
func (s *Store) Save(ctx context.Context, cfg *Config) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode dashboard config: %w", err)
	}

	var cm corev1.ConfigMap
	err = s.Client.Get(ctx, client.ObjectKey{Namespace: s.Namespace, Name: s.Name}, &cm)
	if apierrors.IsNotFound(err) {
		cm = corev1.ConfigMap{
			ObjectMeta: metav1.ObjectMeta{Name: s.Name, Namespace: s.Namespace},
			Data:       map[string]string{configMapKey: string(raw)},
		}
		return s.Client.Create(ctx, &cm)
	}
	if err != nil {
		return fmt.Errorf("get config map %s/%s: %w", s.Namespace, s.Name, err)
	}

	if cm.Data == nil {
		cm.Data = map[string]string{}
	}
	cm.Data[configMapKey] = string(raw)
	return s.Client.Update(ctx, &cm)
}

// MergePatch applies an RFC 7386 JSON merge patch to the stored document and
// persists the result. The patched document is returned.
func (s *Store) MergePatch(ctx context.Context, patch []byte) (*Config, error) {
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}

	original, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode dashboard config: %w", err)
	}
	merged, err := jsonpatch.MergePatch(original, patch)
	if err != nil {
		return nil, fmt.Errorf("apply merge patch: %w", err)
	}

	var next Config
	if err := json.Unmarshal(merged, &next); err != nil {
		return nil, fmt.Errorf("patched config is not valid: %w", err)
	}
	if err := s.Save(ctx, &next); err != nil {
		return nil, err
	}
	return &next, nil
}
