package notebooks

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	rbacv1 "k8s.io/api/rbac/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"
	"sigs.k8s.io/controller-runtime/pkg/client/interceptor"
)

// writeCounts tracks mutating calls so specs can assert how many writes a
// reconcile pass issued.
type writeCounts struct {
	creates, updates, deletes int
}

func newCountingClient(counts *writeCounts, failSecretCreate bool, objs ...client.Object) client.Client {
	return fake.NewClientBuilder().
		WithObjects(objs...).
		WithInterceptorFuncs(interceptor.Funcs{
			Create: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.CreateOption) error {
				if failSecretCreate {
					if _, ok := obj.(*corev1.Secret); ok {
						return errors.New("secrets are sealed today")
					}
				}
				counts.creates++
				return c.Create(ctx, obj, opts...)
			},
			Update: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.UpdateOption) error {
				counts.updates++
				return c.Update(ctx, obj, opts...)
			},
			Delete: func(ctx context.Context, c client.WithWatch, obj client.Object, opts ...client.DeleteOption) error {
				counts.deletes++
				return c.Delete(ctx, obj, opts...)
			},
		}).
		Build()
}

var _ = Describe("Env var reconciler", func() {
	const ns = "jane-ns"
	ctx := context.Background()
	envName := EnvVarFileName("jane.doe@co")

	var (
		counts writeCounts
		r      *Reconciler
	)

	BeforeEach(func() {
		counts = writeCounts{}
	})

	Context("with no existing resources", func() {
		BeforeEach(func() {
			r = &Reconciler{Client: newCountingClient(&counts, false)}
		})

		It("creates a Secret and a ConfigMap from the classified rows", func() {
			rows := []VariableRow{
				{Variables: []EnvVariable{
					{Name: "HOME", Value: "/home/jane", Type: VariableTypeText},
					{Name: "TOKEN", Value: "hunter2", Type: VariableTypeSecret},
				}},
			}
			Expect(r.ReconcileEnvVarFile(ctx, "jane.doe@co", ns, rows)).To(Succeed())
			Expect(counts.creates).To(Equal(2))
			Expect(counts.updates).To(BeZero())

			var cm corev1.ConfigMap
			Expect(r.Client.Get(ctx, client.ObjectKey{Namespace: ns, Name: envName}, &cm)).To(Succeed())
			Expect(cm.Data).To(Equal(map[string]string{"HOME": "/home/jane"}))

			var sec corev1.Secret
			Expect(r.Client.Get(ctx, client.ObjectKey{Namespace: ns, Name: envName}, &sec)).To(Succeed())
			Expect(sec.Type).To(Equal(corev1.SecretTypeOpaque))
			Expect(secretData(&sec)).To(Equal(map[string]string{"TOKEN": "hunter2"}))
		})

		It("does nothing when desired state is empty and nothing exists", func() {
			Expect(r.ReconcileEnvVarFile(ctx, "jane.doe@co", ns, nil)).To(Succeed())
			Expect(counts).To(Equal(writeCounts{}))
		})
	})

	Context("with an existing ConfigMap", func() {
		existing := func(data map[string]string) *corev1.ConfigMap {
			return &corev1.ConfigMap{
				ObjectMeta: metav1.ObjectMeta{Name: envName, Namespace: ns},
				Data:       data,
			}
		}

		It("deletes it when desired becomes empty, with no other writes", func() {
			r = &Reconciler{Client: newCountingClient(&counts, false, existing(map[string]string{"A": "1"}))}

			Expect(r.EnsureEnvVarResource(ctx, envName, ns, EnvVarKindConfigMap, nil)).To(Succeed())
			Expect(counts).To(Equal(writeCounts{deletes: 1}))

			var cm corev1.ConfigMap
			err := r.Client.Get(ctx, client.ObjectKey{Namespace: ns, Name: envName}, &cm)
			Expect(err).To(HaveOccurred())
		})

		It("issues only a fetch when actual already matches desired", func() {
			r = &Reconciler{Client: newCountingClient(&counts, false, existing(map[string]string{"A": "1"}))}

			Expect(r.EnsureEnvVarResource(ctx, envName, ns, EnvVarKindConfigMap, map[string]string{"A": "1"})).To(Succeed())
			Expect(counts).To(Equal(writeCounts{}))
		})

		It("replaces the whole object on drift", func() {
			r = &Reconciler{Client: newCountingClient(&counts, false, existing(map[string]string{"A": "1", "STALE": "x"}))}

			Expect(r.EnsureEnvVarResource(ctx, envName, ns, EnvVarKindConfigMap, map[string]string{"A": "2"})).To(Succeed())
			Expect(counts).To(Equal(writeCounts{updates: 1}))

			var cm corev1.ConfigMap
			Expect(r.Client.Get(ctx, client.ObjectKey{Namespace: ns, Name: envName}, &cm)).To(Succeed())
			Expect(cm.Data).To(Equal(map[string]string{"A": "2"}), "replace overwrites, it does not merge")
		})
	})

	Context("with an existing Secret", func() {
		It("compares against decoded secret data and skips the write", func() {
			seeded := &corev1.Secret{
				ObjectMeta: metav1.ObjectMeta{Name: envName, Namespace: ns},
				Data:       map[string][]byte{"TOKEN": []byte("hunter2")},
				Type:       corev1.SecretTypeOpaque,
			}
			r = &Reconciler{Client: newCountingClient(&counts, false, seeded)}

			Expect(r.EnsureEnvVarResource(ctx, envName, ns, EnvVarKindSecret, map[string]string{"TOKEN": "hunter2"})).To(Succeed())
			Expect(counts).To(Equal(writeCounts{}))
		})
	})

	Context("when the secret pass fails", func() {
		It("still reconciles the config map and reports the joined failure", func() {
			r = &Reconciler{Client: newCountingClient(&counts, true)}
			rows := []VariableRow{
				{Variables: []EnvVariable{
					{Name: "HOME", Value: "/home/jane", Type: VariableTypeText},
					{Name: "TOKEN", Value: "hunter2", Type: VariableTypeSecret},
				}},
			}

			err := r.ReconcileEnvVarFile(ctx, "jane.doe@co", ns, rows)
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("secrets are sealed today"))

			var cm corev1.ConfigMap
			Expect(r.Client.Get(ctx, client.ObjectKey{Namespace: ns, Name: envName}, &cm)).To(Succeed())
			Expect(cm.Data).To(HaveKeyWithValue("HOME", "/home/jane"))
		})
	})

	It("rejects an unknown resource kind", func() {
		r = &Reconciler{Client: newCountingClient(&counts, false)}
		err := r.EnsureEnvVarResource(ctx, envName, ns, EnvVarResourceKind("volume"), map[string]string{"A": "1"})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Image puller role binding", func() {
	const (
		notebookNS  = "data-science"
		dashboardNS = "dashboard"
	)
	ctx := context.Background()

	It("creates the binding when absent", func() {
		var counts writeCounts
		r := &Reconciler{Client: newCountingClient(&counts, false)}

		Expect(r.EnsureImagePullerRoleBinding(ctx, notebookNS, dashboardNS)).To(Succeed())
		Expect(counts.creates).To(Equal(1))

		var rb rbacv1.RoleBinding
		Expect(r.Client.Get(ctx, client.ObjectKey{Namespace: dashboardNS, Name: notebookNS + "-image-pullers"}, &rb)).To(Succeed())
		Expect(rb.RoleRef.Name).To(Equal("system:image-puller"))
		Expect(rb.Subjects).To(HaveLen(1))
		Expect(rb.Subjects[0].Name).To(Equal("system:serviceaccounts:" + notebookNS))
	})

	It("never updates an existing, drifted binding", func() {
		drifted := &rbacv1.RoleBinding{
			ObjectMeta: metav1.ObjectMeta{Name: notebookNS + "-image-pullers", Namespace: dashboardNS},
			RoleRef:    rbacv1.RoleRef{APIGroup: rbacv1.GroupName, Kind: "ClusterRole", Name: "edit"},
		}
		var counts writeCounts
		r := &Reconciler{Client: newCountingClient(&counts, false, drifted)}

		Expect(r.EnsureImagePullerRoleBinding(ctx, notebookNS, dashboardNS)).To(Succeed())
		Expect(counts).To(Equal(writeCounts{}))

		var rb rbacv1.RoleBinding
		Expect(r.Client.Get(ctx, client.ObjectKey{Namespace: dashboardNS, Name: notebookNS + "-image-pullers"}, &rb)).To(Succeed())
		Expect(rb.RoleRef.Name).To(Equal("edit"), "one-shot bootstrap leaves drift alone")
	})
})

var _ = Describe("Notebook PVC", func() {
	ctx := context.Background()

	It("creates a ReadWriteOnce claim with the configured size", func() {
		var counts writeCounts
		r := &Reconciler{Client: newCountingClient(&counts, false)}

		pvc, err := r.EnsureNotebookPVC(ctx, "jane.doe@co", "jane-ns", "20Gi", "gp3")
		Expect(err).NotTo(HaveOccurred())
		Expect(pvc.Name).To(Equal("jupyterhub-nb-jane-2edoe-40co-pvc"))
		Expect(pvc.Spec.AccessModes).To(ConsistOf(corev1.ReadWriteOnce))
		Expect(pvc.Spec.Resources.Requests.Storage().String()).To(Equal("20Gi"))
		Expect(pvc.Spec.StorageClassName).To(HaveValue(Equal("gp3")))
		Expect(counts.creates).To(Equal(1))
	})

	It("returns the existing claim untouched", func() {
		existing := &corev1.PersistentVolumeClaim{
			ObjectMeta: metav1.ObjectMeta{Name: PVCName("jdoe"), Namespace: "jane-ns"},
		}
		var counts writeCounts
		r := &Reconciler{Client: newCountingClient(&counts, false, existing)}

		_, err := r.EnsureNotebookPVC(ctx, "jdoe", "jane-ns", "20Gi", "")
		Expect(err).NotTo(HaveOccurred())
		Expect(counts).To(Equal(writeCounts{}))
	})

	It("rejects an unparsable size", func() {
		r := &Reconciler{Client: fake.NewClientBuilder().Build()}
		_, err := r.EnsureNotebookPVC(ctx, "jdoe", "jane-ns", "twenty", "")
		Expect(err).To(HaveOccurred())
	})
})
