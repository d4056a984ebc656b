package notebooks

import (
	"context"
	"fmt"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Verify is the get-or-create primitive every ensure operation in this
// package is built on. It fetches the object named by key; when the object is
// missing and desired is non-nil, desired is created and returned. A missing
// object with a nil desired body reports absence as (nil, nil), not as an
// error. Any failure other than not-found propagates to the caller.
func Verify[T any, PT interface {
	client.Object
	*T
}](ctx context.Context, c client.Client, key client.ObjectKey, desired PT) (PT, error) {
	obj := PT(new(T))
	err := c.Get(ctx, key, obj)
	if err == nil {
		return obj, nil
	}
	if !apierrors.IsNotFound(err) {
		return nil, fmt.Errorf("get %s/%s: %w", key.Namespace, key.Name, err)
	}
	if desired == nil {
		return nil, nil
	}
	if err := c.Create(ctx, desired); err != nil {
		return nil, fmt.Errorf("create %s/%s: %w", key.Namespace, key.Name, err)
	}
	return desired, nil
}
