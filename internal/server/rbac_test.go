package server

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func write(t *testing.T, p, s string) {
	t.Helper()
	if err := os.WriteFile(p, []byte(s), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
}

const testModel = `
[request_definition]
r = sub, obj, act, dom

[policy_definition]
p = sub, obj, act, dom, eft

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow)) && !some(where (p.eft == deny))

[matchers]
m = (g(r.sub, p.sub) || r.sub == p.sub) && \
    (r.obj == p.obj || p.obj == "*") && \
    (r.act == p.act || p.act == "*") && \
    (p.dom == "*" || r.dom == p.dom)
`

const testPolicy = `
p, admin,  *,        *,      *,  allow
p, editor, notebook, get,    *,  allow
p, editor, notebook, update, *,  allow
p, editor, notebook, create, *,  allow
p, editor, config,   get,    *,  allow
p, viewer, notebook, get,    *,  allow
p, viewer, config,   get,    *,  allow
`

func newRBACForTest(t *testing.T, dir string) *RBAC {
	t.Helper()
	m := filepath.Join(dir, "model.conf")
	p := filepath.Join(dir, "policy.csv")
	write(t, m, testModel)
	write(t, p, testPolicy)
	r, err := NewRBAC(context.Background(), m, p)
	if err != nil {
		t.Fatalf("NewRBAC: %v", err)
	}
	return r
}

func TestPolicyBasics(t *testing.T) {
	r := newRBACForTest(t, t.TempDir())

	// Admin: anything anywhere
	ok, _ := r.Enforce("admin", nil, "notebook", "update", "team-a")
	if !ok {
		t.Fatal("admin should be allowed")
	}

	// Viewer: read-only
	ok, _ = r.Enforce("viewer", nil, "notebook", "get", "team-a")
	if !ok {
		t.Fatal("viewer get should be allowed")
	}
	ok, _ = r.Enforce("viewer", nil, "notebook", "update", "team-a")
	if ok {
		t.Fatal("viewer update should be denied")
	}

	// Role carried in session roles array
	ok, _ = r.Enforce("alice", []string{"editor"}, "notebook", "create", "team-b")
	if !ok {
		t.Fatal("alice with editor role should be allowed to create")
	}
}

func TestConfigUpdateRequiresAdmin(t *testing.T) {
	r := newRBACForTest(t, t.TempDir())

	ok, _ := r.Enforce("editor", nil, "config", "update", "*")
	if ok {
		t.Fatal("editor should not be allowed to update config")
	}
	ok, _ = r.Enforce("admin", nil, "config", "update", "*")
	if !ok {
		t.Fatal("admin should be allowed to update config")
	}
}

func TestHotReload(t *testing.T) {
	dir := t.TempDir()
	r := newRBACForTest(t, dir)

	// Initially denied
	ok, _ := r.Enforce("viewer", nil, "notebook", "create", "ns1")
	if ok {
		t.Fatal("viewer create should be denied before update")
	}

	// Update policy to allow viewer create
	p := filepath.Join(dir, "policy.csv")
	f, err := os.OpenFile(p, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open policy: %v", err)
	}
	if _, err := f.WriteString("p, viewer, notebook, create, *, allow\n"); err != nil {
		t.Fatalf("append policy: %v", err)
	}
	_ = f.Close()

	// Give the watcher a moment to detect & reload
	time.Sleep(500 * time.Millisecond)

	ok, _ = r.Enforce("viewer", nil, "notebook", "create", "ns1")
	if !ok {
		t.Fatal("viewer create should be allowed after policy update")
	}
}
