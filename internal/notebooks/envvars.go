package notebooks

// VariableType tags a user-entered variable as plaintext or secret.
type VariableType string

const (
	VariableTypeText   VariableType = "text"
	VariableTypeSecret VariableType = "secret"
)

// EnvVariable is a single user-authored key/value entry.
type EnvVariable struct {
	Name  string       `json:"name"`
	Value string       `json:"value"`
	Type  VariableType `json:"type"`
}

// VariableRow is one row of the env-var editor; a row may carry several
// variables.
type VariableRow struct {
	Variables []EnvVariable `json:"variables"`
}

// EnvVarBundle is the result of classifying variable rows: plaintext values
// destined for a ConfigMap and everything else destined for a Secret.
type EnvVarBundle struct {
	ConfigMap map[string]string `json:"configMap"`
	Secrets   map[string]string `json:"secrets"`
}

// Classify splits variable rows into the two buckets. Keys are not validated
// and later rows overwrite earlier ones on collision.
func Classify(rows []VariableRow) EnvVarBundle {
	bundle := EnvVarBundle{
		ConfigMap: map[string]string{},
		Secrets:   map[string]string{},
	}
	for _, row := range rows {
		for _, v := range row.Variables {
			if v.Type == VariableTypeText {
				bundle.ConfigMap[v.Name] = v.Value
			} else {
				bundle.Secrets[v.Name] = v.Value
			}
		}
	}
	return bundle
}
