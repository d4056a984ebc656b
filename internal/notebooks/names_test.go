package notebooks

import "testing"

func TestTranslateUsername(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"jdoe", "jdoe"},
		{"JDoe", "jdoe"},
		{"jane-doe", "jane-2ddoe"},
		{"jane.doe@example.com", "jane-2edoe-40example-2ecom"},
		{"Jane.Doe@Co", "jane-2edoe-40co"},
		{"ldap:cn=jane", "ldap-3acn=jane"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := TranslateUsername(tc.in); got != tc.want {
			t.Errorf("TranslateUsername(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

// The encoding is deliberately not idempotent: translated output contains
// hyphens, which a second pass substitutes again. Pin that down so nobody
// "fixes" it and breaks existing resource names.
func TestTranslateUsernameNotIdempotent(t *testing.T) {
	once := TranslateUsername("jane-doe")
	twice := TranslateUsername(once)
	if twice == once {
		t.Fatalf("expected re-translation to differ, got %q both times", once)
	}
	if twice != "jane-2d2ddoe" {
		t.Fatalf("re-translation = %q, want %q", twice, "jane-2d2ddoe")
	}
}

func TestDerivedNames(t *testing.T) {
	const user = "Jane.Doe@Co"

	if got, want := NotebookName(user), "jupyter-nb-jane-2edoe-40co"; got != want {
		t.Errorf("NotebookName = %q, want %q", got, want)
	}
	if got, want := PVCName(user), "jupyterhub-nb-jane-2edoe-40co-pvc"; got != want {
		t.Errorf("PVCName = %q, want %q", got, want)
	}
	if got, want := EnvVarFileName(user), "jupyterhub-singleuser-profile-jane-2edoe-40co-envs"; got != want {
		t.Errorf("EnvVarFileName = %q, want %q", got, want)
	}
}

func TestDerivedNamesDeterministic(t *testing.T) {
	if NotebookName("a@b") != NotebookName("a@b") {
		t.Fatal("derived names must be deterministic")
	}
}
