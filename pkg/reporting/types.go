package reporting

import (
	"time"
)

// RunReport represents a complete chaos run
type RunReport struct {
	// Run metadata
	RunID     string    `json:"run_id"`
	Profile   string    `json:"profile"`
	Backend   string    `json:"backend"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`

	// Run result
	Status     RunStatus `json:"status"`
	StopReason string    `json:"stop_reason,omitempty"`
	Message    string    `json:"message,omitempty"`

	// Targets whose network was perturbed
	Targets []TargetInfo `json:"targets,omitempty"`

	// Every trigger firing, in order
	Fires []FireRecord `json:"fires"`

	// Per-trigger counters
	Triggers []TriggerSummary `json:"triggers"`

	// Final cleanup pass
	Cleanup CleanupReport `json:"cleanup"`

	// Errors encountered
	Errors []string `json:"errors,omitempty"`
}

// RunStatus represents the status of a run
type RunStatus string

const (
	StatusRunning   RunStatus = "running"
	StatusCompleted RunStatus = "completed"
	StatusFailed    RunStatus = "failed"
	StatusStopped   RunStatus = "stopped"
)

// TargetInfo contains information about a run target
type TargetInfo struct {
	Name        string `json:"name"`
	ContainerID string `json:"container_id,omitempty"`
	IP          string `json:"ip,omitempty"`
}

// FireRecord describes one trigger firing
type FireRecord struct {
	Trigger  string    `json:"trigger"`
	Fault    string    `json:"fault"`
	Resolved string    `json:"resolved"`
	Time     time.Time `json:"time"`
	Duration string    `json:"duration"`
	Error    string    `json:"error,omitempty"`
}

// Failed reports whether the fault application failed
func (f FireRecord) Failed() bool {
	return f.Error != ""
}

// TriggerSummary contains the counters of one trigger
type TriggerSummary struct {
	Name     string    `json:"name"`
	Fires    int       `json:"fires"`
	Failures int       `json:"failures"`
	LastFire time.Time `json:"last_fire,omitempty"`
}

// CleanupReport contains the outcome of the final cleanup pass
type CleanupReport struct {
	TotalActions int           `json:"total_actions"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Log          []AuditRecord `json:"log,omitempty"`
}

// AuditRecord is one cleanup action
type AuditRecord struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Details   string    `json:"details,omitempty"`
}

// FailedFires counts the fires whose fault application failed
func (r *RunReport) FailedFires() int {
	n := 0
	for _, f := range r.Fires {
		if f.Failed() {
			n++
		}
	}
	return n
}
