package notebooks

import (
	"strings"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// EventStatus classifies a derived notebook status.
type EventStatus string

const (
	EventStatusInProgress EventStatus = "IN_PROGRESS"
	EventStatusError      EventStatus = "ERROR"
)

// NotebookProgress is the ephemeral status derived from a pod's event window.
// It is recomputed on every render and never persisted.
type NotebookProgress struct {
	Percentile              int            `json:"percentile"`
	CurrentEvent            string         `json:"currentEvent"`
	CurrentEventReason      string         `json:"currentEventReason"`
	CurrentEventDescription string         `json:"currentEventDescription"`
	CurrentStatus           EventStatus    `json:"currentStatus"`
	Events                  []corev1.Event `json:"events"`
}

type progressStep struct {
	percentile int
	label      string
}

// Startup sequence of the notebook container itself.
var notebookSteps = map[string]progressStep{
	"SuccessfulCreate":       {8, "Pod created"},
	"Scheduled":              {16, "Pod assigned"},
	"SuccessfulAttachVolume": {24, "PVC attached"},
	"AddedInterface":         {32, "Interface added"},
	"Pulling":                {40, "Pulling notebook image"},
	"Pulled":                 {48, "Notebook image pulled"},
	"Created":                {56, "Notebook container created"},
	"Started":                {64, "Notebook container started"},
}

// Startup sequence of the oauth-proxy sidecar, which comes up after the
// notebook container.
var oauthProxySteps = map[string]progressStep{
	"Pulling": {72, "Pulling oauth proxy"},
	"Pulled":  {80, "Oauth proxy pulled"},
	"Created": {88, "Oauth proxy container created"},
	"Started": {96, "Oauth proxy container started"},
}

// DeriveNotebookStatus folds the events recorded strictly after since into a
// single progress value. Only the most recent event decides the percentile
// and label; the rest of the window is carried along in Events untouched.
// Returns nil when nothing happened after since.
//
// The heuristic trusts event order as delivered: a duplicate or out-of-order
// reason moves the percentile backwards instead of being ignored.
func DeriveNotebookStatus(events []corev1.Event, since time.Time) *NotebookProgress {
	var window []corev1.Event
	for _, ev := range events {
		if ev.LastTimestamp.Time.After(since) {
			window = append(window, ev)
		}
	}
	if len(window) == 0 {
		return nil
	}

	last := window[len(window)-1]
	progress := &NotebookProgress{
		CurrentEventReason:      last.Reason,
		CurrentEventDescription: last.Message,
		CurrentStatus:           EventStatusInProgress,
		Events:                  window,
	}

	steps, errorLabel := notebookSteps, "Error creating notebook container"
	if strings.Contains(last.Message, "oauth-proxy") {
		steps, errorLabel = oauthProxySteps, "Error creating oauth proxy container"
	}

	if step, ok := steps[last.Reason]; ok {
		progress.Percentile = step.percentile
		progress.CurrentEvent = step.label
	} else {
		progress.CurrentStatus = EventStatusError
		progress.CurrentEvent = errorLabel
	}
	return progress
}
