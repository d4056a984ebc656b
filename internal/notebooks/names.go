package notebooks

import "strings"

const (
	notebookNamePrefix = "jupyter-nb-"
	pvcNamePrefix      = "jupyterhub-nb-"
	pvcNameSuffix      = "-pvc"
	envVarFilePrefix   = "jupyterhub-singleuser-profile-"
	envVarFileSuffix   = "-envs"
)

// TranslateUsername encodes a username into the form embedded in derived
// resource names. The substitutions run in a fixed order (hyphen, at sign,
// dot, colon) and the result is lowercased. The encoding is one-way and must
// match the naming convention of resources that already exist on the cluster;
// it is not collision-free and re-encoding an already translated name
// substitutes the hyphens the first pass introduced.
func TranslateUsername(username string) string {
	s := strings.ReplaceAll(username, "-", "-2d")
	s = strings.ReplaceAll(s, "@", "-40")
	s = strings.ReplaceAll(s, ".", "-2e")
	s = strings.ReplaceAll(s, ":", "-3a")
	return strings.ToLower(s)
}

// NotebookName returns the name of the user's notebook pod.
func NotebookName(username string) string {
	return notebookNamePrefix + TranslateUsername(username)
}

// PVCName returns the name of the user's workspace claim.
func PVCName(username string) string {
	return pvcNamePrefix + TranslateUsername(username) + pvcNameSuffix
}

// EnvVarFileName returns the shared name of the user's env-var ConfigMap and
// Secret.
func EnvVarFileName(username string) string {
	return envVarFilePrefix + TranslateUsername(username) + envVarFileSuffix
}
