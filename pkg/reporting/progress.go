package reporting

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// OutputFormat represents the progress output format
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// ProgressReporter prints run events as they happen
type ProgressReporter struct {
	mu     sync.Mutex
	format OutputFormat
	out    io.Writer
	logger *Logger
}

// NewProgressReporter creates a progress reporter writing to out, or to
// stdout when out is nil
func NewProgressReporter(format OutputFormat, out io.Writer, logger *Logger) *ProgressReporter {
	if out == nil {
		out = os.Stdout
	}
	if logger == nil {
		logger = Nop()
	}
	return &ProgressReporter{format: format, out: out, logger: logger}
}

// ReportRunStarted reports the start of a run
func (pr *ProgressReporter) ReportRunStarted(runID, profile string, triggers int) {
	pr.emit(map[string]interface{}{
		"event":    "run_started",
		"run_id":   runID,
		"profile":  profile,
		"triggers": triggers,
	}, fmt.Sprintf("[RUN] %s started (profile %s, %d triggers)", runID, profile, triggers))
}

// ReportFire reports one trigger firing
func (pr *ProgressReporter) ReportFire(fire FireRecord) {
	line := fmt.Sprintf("[FIRE] %s -> %s", fire.Trigger, fire.Resolved)
	if fire.Failed() {
		line += " FAILED: " + fire.Error
	}
	pr.emit(map[string]interface{}{
		"event": "fire",
		"fire":  fire,
	}, line)
}

// ReportCleanupCompleted reports the final cleanup pass
func (pr *ProgressReporter) ReportCleanupCompleted(succeeded, failed int) {
	pr.emit(map[string]interface{}{
		"event":     "cleanup_completed",
		"succeeded": succeeded,
		"failed":    failed,
	}, fmt.Sprintf("[CLEANUP] Complete: %d succeeded, %d failed", succeeded, failed))
}

// ReportRunCompleted reports the end of a run
func (pr *ProgressReporter) ReportRunCompleted(report *RunReport) {
	if pr.format == FormatJSON {
		pr.emit(map[string]interface{}{
			"event":  "run_completed",
			"report": report,
		}, "")
		return
	}

	pr.mu.Lock()
	defer pr.mu.Unlock()
	fmt.Fprint(pr.out, Summarize(report))
}

func (pr *ProgressReporter) emit(event map[string]interface{}, text string) {
	pr.mu.Lock()
	defer pr.mu.Unlock()

	if pr.format == FormatJSON {
		event["timestamp"] = time.Now()
		data, err := json.Marshal(event)
		if err != nil {
			pr.logger.Error("Failed to marshal event", "error", err)
			return
		}
		fmt.Fprintln(pr.out, string(data))
		return
	}
	fmt.Fprintln(pr.out, text)
}
