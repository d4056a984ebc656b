package notebooks

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// EnvVarResourceKind discriminates the two resource shapes the env-var
// reconciler manages. Each kind builds its own typed body; there is no
// field-presence sniffing.
type EnvVarResourceKind string

const (
	EnvVarKindConfigMap EnvVarResourceKind = "configMap"
	EnvVarKindSecret    EnvVarResourceKind = "secret"
)

// Reconciler runs single-pass, best-effort convergence checks against the
// cluster. It holds no state beyond the client handle; every method is a
// one-shot ensure invoked on user action, not a control loop.
type Reconciler struct {
	Client client.Client
}

// EnsureEnvVarResource converges one env-var resource of the given kind.
// An empty desired map means the resource should not exist: if it does, it is
// deleted and the call ends there. Otherwise the resource is created when
// absent, left alone when its data already matches, and replaced whole when
// it has drifted. Re-invoking with unchanged desired and actual state issues
// a fetch only.
func (r *Reconciler) EnsureEnvVarResource(ctx context.Context, name, namespace string, kind EnvVarResourceKind, desired map[string]string) error {
	key := client.ObjectKey{Namespace: namespace, Name: name}
	switch kind {
	case EnvVarKindSecret:
		return r.ensureSecret(ctx, key, desired)
	case EnvVarKindConfigMap:
		return r.ensureConfigMap(ctx, key, desired)
	default:
		return fmt.Errorf("unknown env var resource kind %q", kind)
	}
}

func (r *Reconciler) ensureConfigMap(ctx context.Context, key client.ObjectKey, desired map[string]string) error {
	if len(desired) == 0 {
		existing, err := Verify(ctx, r.Client, key, (*corev1.ConfigMap)(nil))
		if err != nil || existing == nil {
			return err
		}
		return r.Client.Delete(ctx, existing)
	}

	body := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace},
		Data:       desired,
	}
	found, err := Verify(ctx, r.Client, key, body)
	if err != nil {
		return err
	}
	if reflect.DeepEqual(found.Data, desired) {
		return nil
	}
	// Whole-object replace, not a merge patch. Only the resourceVersion is
	// carried over; there is no conflict retry.
	body.ResourceVersion = found.ResourceVersion
	return r.Client.Update(ctx, body)
}

func (r *Reconciler) ensureSecret(ctx context.Context, key client.ObjectKey, desired map[string]string) error {
	if len(desired) == 0 {
		existing, err := Verify(ctx, r.Client, key, (*corev1.Secret)(nil))
		if err != nil || existing == nil {
			return err
		}
		return r.Client.Delete(ctx, existing)
	}

	body := &corev1.Secret{
		ObjectMeta: metav1.ObjectMeta{Name: key.Name, Namespace: key.Namespace},
		StringData: desired,
		Type:       corev1.SecretTypeOpaque,
	}
	found, err := Verify(ctx, r.Client, key, body)
	if err != nil {
		return err
	}
	if reflect.DeepEqual(secretData(found), desired) {
		return nil
	}
	body.ResourceVersion = found.ResourceVersion
	return r.Client.Update(ctx, body)
}

// secretData flattens a fetched Secret to plain strings. StringData wins over
// Data for keys present in both, matching how the API server merges them.
func secretData(s *corev1.Secret) map[string]string {
	out := make(map[string]string, len(s.Data)+len(s.StringData))
	for k, v := range s.Data {
		out[k] = string(v)
	}
	for k, v := range s.StringData {
		out[k] = v
	}
	return out
}

// ReconcileEnvVarFile converges the per-user env-var Secret and ConfigMap to
// the given variable rows. The secret pass completes (or fails) before the
// config-map pass begins; the two are otherwise independent. There is no
// cross-resource atomicity: a failure on one side does not roll back or skip
// the other, and neither side is retried.
func (r *Reconciler) ReconcileEnvVarFile(ctx context.Context, username, namespace string, rows []VariableRow) error {
	name := EnvVarFileName(username)
	bundle := Classify(rows)

	secretErr := r.EnsureEnvVarResource(ctx, name, namespace, EnvVarKindSecret, bundle.Secrets)
	configMapErr := r.EnsureEnvVarResource(ctx, name, namespace, EnvVarKindConfigMap, bundle.ConfigMap)
	return errors.Join(secretErr, configMapErr)
}
