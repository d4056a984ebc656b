package dashboard

// Config is the dashboard configuration document served by GET /api/config
// and edited by PATCH /api/config. It is stored as yaml inside a ConfigMap;
// the dashboard owns no durable storage of its own.
type Config struct {
	// Title is shown in the dashboard header.
	Title string `json:"title,omitempty"`

	// DashboardNamespace is where shared dashboard resources (image-puller
	// role bindings, this ConfigMap) live.
	DashboardNamespace string `json:"dashboardNamespace,omitempty"`

	// NotebookSizes are the t-shirt sizes offered in the spawner form.
	NotebookSizes []NotebookSize `json:"notebookSizes,omitempty"`

	// Culler controls idle-notebook shutdown.
	Culler Culler `json:"culler,omitempty"`

	// Storage controls the workspace claim created for each user.
	Storage Storage `json:"storage,omitempty"`
}

// NotebookSize is one selectable resource preset.
type NotebookSize struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CPU         string `json:"cpu"`
	Memory      string `json:"memory"`
}

type Culler struct {
	Enabled        bool `json:"enabled"`
	IdleTimeoutMin int  `json:"idleTimeoutMinutes,omitempty"`
}

type Storage struct {
	// PVCSize is a Kubernetes quantity, e.g. "20Gi".
	PVCSize      string `json:"pvcSize,omitempty"`
	StorageClass string `json:"storageClass,omitempty"`
}

// DefaultConfig is what the dashboard runs with until an admin saves a
// document of their own.
func DefaultConfig() *Config {
	return &Config{
		Title: "Notebook Dashboard",
		NotebookSizes: []NotebookSize{
			{Name: "Small", Description: "2 CPU, 8Gi memory", CPU: "2", Memory: "8Gi"},
			{Name: "Medium", Description: "4 CPU, 16Gi memory", CPU: "4", Memory: "16Gi"},
			{Name: "Large", Description: "8 CPU, 32Gi memory", CPU: "8", Memory: "32Gi"},
		},
		Culler:  Culler{Enabled: false, IdleTimeoutMin: 1440},
		Storage: Storage{PVCSize: "20Gi"},
	}
}
