package notebooks

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/utils/ptr"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// EnsureNotebookPVC makes sure the user's workspace claim exists. The claim
// is created ReadWriteOnce with the given size when absent; an existing claim
// is returned as-is (storage requests cannot be changed in place).
func (r *Reconciler) EnsureNotebookPVC(ctx context.Context, username, namespace, size, storageClass string) (*corev1.PersistentVolumeClaim, error) {
	qty, err := resource.ParseQuantity(size)
	if err != nil {
		return nil, fmt.Errorf("parse pvc size %q: %w", size, err)
	}

	name := PVCName(username)
	desired := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: namespace},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce},
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: qty},
			},
		},
	}
	if storageClass != "" {
		desired.Spec.StorageClassName = ptr.To(storageClass)
	}
	return Verify(ctx, r.Client, client.ObjectKey{Namespace: namespace, Name: name}, desired)
}
