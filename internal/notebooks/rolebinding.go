package notebooks

import (
	"context"

	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

const imagePullerClusterRole = "system:image-puller"

// EnsureImagePullerRoleBinding grants the service accounts of a notebook
// namespace the image-puller cluster role, so user pods can pull from the
// internal registry. The binding lives in the dashboard namespace and is
// named <notebookNamespace>-image-pullers.
//
// This is a one-shot bootstrap: the binding is created when absent and never
// updated afterwards, even if it has drifted.
func (r *Reconciler) EnsureImagePullerRoleBinding(ctx context.Context, notebookNamespace, dashboardNamespace string) error {
	desired := &rbacv1.RoleBinding{
		ObjectMeta: metav1.ObjectMeta{
			Name:      notebookNamespace + "-image-pullers",
			Namespace: dashboardNamespace,
		},
		RoleRef: rbacv1.RoleRef{
			APIGroup: rbacv1.GroupName,
			Kind:     "ClusterRole",
			Name:     imagePullerClusterRole,
		},
		Subjects: []rbacv1.Subject{{
			APIGroup: rbacv1.GroupName,
			Kind:     rbacv1.GroupKind,
			Name:     "system:serviceaccounts:" + notebookNamespace,
		}},
	}
	_, err := Verify(ctx, r.Client, client.ObjectKeyFromObject(desired), desired)
	return err
}
