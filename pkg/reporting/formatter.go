package reporting

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ReportFormat represents the report output format
type ReportFormat string

const (
	ReportFormatText ReportFormat = "text"
	ReportFormatJSON ReportFormat = "json"
)

// Formatter renders run reports for humans
type Formatter struct {
	logger *Logger
}

// NewFormatter creates a new report formatter
func NewFormatter(logger *Logger) *Formatter {
	if logger == nil {
		logger = Nop()
	}
	return &Formatter{logger: logger}
}

// GenerateReport writes report to outputPath in the given format
func (f *Formatter) GenerateReport(report *RunReport, format ReportFormat, outputPath string) error {
	switch format {
	case ReportFormatText:
		if err := os.WriteFile(outputPath, []byte(Summarize(report)), 0644); err != nil {
			return fmt.Errorf("failed to write text report: %w", err)
		}
		f.logger.Info("Text report generated", "path", outputPath)
		return nil
	case ReportFormatJSON:
		return fmt.Errorf("JSON format is automatically saved by storage")
	default:
		return fmt.Errorf("unsupported report format: %s", format)
	}
}

// GetReportPath returns the default path of a formatted report
func GetReportPath(report *RunReport, format ReportFormat, outputDir string) string {
	ext := "txt"
	if format == ReportFormatJSON {
		ext = "json"
	}
	return filepath.Join(outputDir, fmt.Sprintf("run-%s.%s", report.RunID, ext))
}

// Summarize renders a plain text report
func Summarize(report *RunReport) string {
	var buf bytes.Buffer
	rule := strings.Repeat("-", 80) + "\n"

	buf.WriteString(strings.Repeat("=", 80) + "\n")
	buf.WriteString("   CHAOS RUN REPORT\n")
	buf.WriteString(strings.Repeat("=", 80) + "\n\n")

	buf.WriteString("RUN SUMMARY\n")
	buf.WriteString(rule)
	fmt.Fprintf(&buf, "Status:       %s\n", strings.ToUpper(string(report.Status)))
	fmt.Fprintf(&buf, "Run ID:       %s\n", report.RunID)
	fmt.Fprintf(&buf, "Profile:      %s\n", report.Profile)
	if report.Backend != "" {
		fmt.Fprintf(&buf, "Backend:      %s\n", report.Backend)
	}
	fmt.Fprintf(&buf, "Start Time:   %s\n", report.StartTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "End Time:     %s\n", report.EndTime.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&buf, "Duration:     %s\n", report.Duration)
	if report.StopReason != "" {
		fmt.Fprintf(&buf, "Stop Reason:  %s\n", report.StopReason)
	}
	if report.Message != "" {
		fmt.Fprintf(&buf, "Message:      %s\n", report.Message)
	}
	buf.WriteString("\n")

	if len(report.Targets) > 0 {
		buf.WriteString("TARGETS\n")
		buf.WriteString(rule)
		for i, target := range report.Targets {
			fmt.Fprintf(&buf, "%d. %s", i+1, target.Name)
			if target.IP != "" {
				fmt.Fprintf(&buf, " (%s)", target.IP)
			}
			buf.WriteString("\n")
		}
		buf.WriteString("\n")
	}

	if len(report.Triggers) > 0 {
		buf.WriteString("TRIGGERS\n")
		buf.WriteString(rule)
		for _, t := range report.Triggers {
			fmt.Fprintf(&buf, "%-48s fires=%-4d failures=%d\n", t.Name, t.Fires, t.Failures)
		}
		buf.WriteString("\n")
	}

	fmt.Fprintf(&buf, "FIRES (%d, %d failed)\n", len(report.Fires), report.FailedFires())
	buf.WriteString(rule)
	for i, fire := range report.Fires {
		status := "ok"
		if fire.Failed() {
			status = "FAILED"
		}
		fmt.Fprintf(&buf, "%d. [%s] %s -> %s %s\n", i+1, fire.Time.Format("15:04:05"), fire.Trigger, fire.Resolved, status)
		if fire.Failed() {
			fmt.Fprintf(&buf, "   Error: %s\n", fire.Error)
		}
	}
	buf.WriteString("\n")

	buf.WriteString("CLEANUP SUMMARY\n")
	buf.WriteString(rule)
	fmt.Fprintf(&buf, "Total Actions: %d\n", report.Cleanup.TotalActions)
	fmt.Fprintf(&buf, "Succeeded:     %d\n", report.Cleanup.Succeeded)
	fmt.Fprintf(&buf, "Failed:        %d\n", report.Cleanup.Failed)
	for i, entry := range report.Cleanup.Log {
		status := "ok"
		if !entry.Success {
			status = "FAILED"
		}
		fmt.Fprintf(&buf, "%d. [%s] %s %s on %s\n", i+1, entry.Timestamp.Format("15:04:05"), status, entry.Action, entry.Target)
		if entry.Error != "" {
			fmt.Fprintf(&buf, "   Error: %s\n", entry.Error)
		}
	}
	buf.WriteString("\n")

	if len(report.Errors) > 0 {
		buf.WriteString("ERRORS\n")
		buf.WriteString(rule)
		for i, err := range report.Errors {
			fmt.Fprintf(&buf, "%d. %s\n", i+1, err)
		}
		buf.WriteString("\n")
	}

	buf.WriteString(strings.Repeat("=", 80) + "\n")
	return buf.String()
}
