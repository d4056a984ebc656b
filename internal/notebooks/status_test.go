package notebooks

import (
	"testing"
	"time"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

func event(reason, message string, at time.Time) corev1.Event {
	return corev1.Event{
		Reason:        reason,
		Message:       message,
		LastTimestamp: metav1.NewTime(at),
	}
}

func TestDeriveNotebookStatus(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name           string
		events         []corev1.Event
		since          time.Time
		wantNil        bool
		wantPercentile int
		wantLabel      string
		wantStatus     EventStatus
	}{
		{
			name:           "pulling notebook image",
			events:         []corev1.Event{event("Pulling", "pulling foo", base.Add(time.Minute))},
			since:          base,
			wantPercentile: 40,
			wantLabel:      "Pulling notebook image",
			wantStatus:     EventStatusInProgress,
		},
		{
			name:           "notebook container started",
			events:         []corev1.Event{event("Started", "started container notebook", base.Add(time.Minute))},
			since:          base,
			wantPercentile: 64,
			wantLabel:      "Notebook container started",
			wantStatus:     EventStatusInProgress,
		},
		{
			name:           "oauth proxy started",
			events:         []corev1.Event{event("Started", "started container oauth-proxy", base.Add(time.Minute))},
			since:          base,
			wantPercentile: 96,
			wantLabel:      "Oauth proxy container started",
			wantStatus:     EventStatusInProgress,
		},
		{
			name:           "unknown oauth proxy reason is an error at percentile zero",
			events:         []corev1.Event{event("Unknown", "oauth-proxy exploded", base.Add(time.Minute))},
			since:          base,
			wantPercentile: 0,
			wantLabel:      "Error creating oauth proxy container",
			wantStatus:     EventStatusError,
		},
		{
			name:           "unknown notebook reason is an error",
			events:         []corev1.Event{event("FailedScheduling", "0/3 nodes available", base.Add(time.Minute))},
			since:          base,
			wantPercentile: 0,
			wantLabel:      "Error creating notebook container",
			wantStatus:     EventStatusError,
		},
		{
			name:    "no events after since",
			events:  []corev1.Event{event("Pulling", "pulling foo", base.Add(-time.Minute))},
			since:   base,
			wantNil: true,
		},
		{
			name:    "event exactly at since is excluded",
			events:  []corev1.Event{event("Pulling", "pulling foo", base)},
			since:   base,
			wantNil: true,
		},
		{
			name: "only the last event counts",
			events: []corev1.Event{
				event("Started", "started container notebook", base.Add(time.Minute)),
				event("Pulled", "image pulled", base.Add(2*time.Minute)),
			},
			since:          base,
			wantPercentile: 48,
			wantLabel:      "Notebook image pulled",
			wantStatus:     EventStatusInProgress,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := DeriveNotebookStatus(tc.events, tc.since)
			if tc.wantNil {
				if got != nil {
					t.Fatalf("expected nil status, got %+v", got)
				}
				return
			}
			if got == nil {
				t.Fatal("expected a status, got nil")
			}
			if got.Percentile != tc.wantPercentile {
				t.Errorf("percentile = %d, want %d", got.Percentile, tc.wantPercentile)
			}
			if got.CurrentEvent != tc.wantLabel {
				t.Errorf("currentEvent = %q, want %q", got.CurrentEvent, tc.wantLabel)
			}
			if got.CurrentStatus != tc.wantStatus {
				t.Errorf("currentStatus = %q, want %q", got.CurrentStatus, tc.wantStatus)
			}
		})
	}
}

// The window is filtered but otherwise untouched: earlier events stay in the
// output even though only the last one drives the derived value.
func TestDeriveNotebookStatusKeepsWindow(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []corev1.Event{
		event("Scheduled", "assigned", base.Add(-time.Minute)),
		event("Pulling", "pulling foo", base.Add(time.Minute)),
		event("Pulled", "image pulled", base.Add(2*time.Minute)),
	}

	got := DeriveNotebookStatus(events, base)
	if got == nil {
		t.Fatal("expected a status")
	}
	if len(got.Events) != 2 {
		t.Fatalf("window size = %d, want 2", len(got.Events))
	}
	if got.CurrentEventReason != "Pulled" || got.CurrentEventDescription != "image pulled" {
		t.Errorf("raw reason/message not carried: %+v", got)
	}
}

// Out-of-order delivery is accepted behavior: a stale reason arriving last
// moves the percentile backwards.
func TestDeriveNotebookStatusNonMonotonic(t *testing.T) {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	events := []corev1.Event{
		event("Started", "started container notebook", base.Add(time.Minute)),
		event("Pulling", "pulling foo", base.Add(2*time.Minute)),
	}

	got := DeriveNotebookStatus(events, base)
	if got == nil {
		t.Fatal("expected a status")
	}
	if got.Percentile != 40 {
		t.Fatalf("percentile = %d, want regression to 40", got.Percentile)
	}
}
