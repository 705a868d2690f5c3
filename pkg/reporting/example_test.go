package reporting_test

import (
	"fmt"
	"os"
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// Example demonstrates saving, listing and loading run reports
func Example() {
	dir, err := os.MkdirTemp("", "chaos-reports")
	if err != nil {
		fmt.Printf("Failed to create dir: %v\n", err)
		return
	}
	defer os.RemoveAll(dir)

	storage, err := reporting.NewStorage(dir, 10, reporting.Nop())
	if err != nil {
		fmt.Printf("Failed to create storage: %v\n", err)
		return
	}

	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	report := &reporting.RunReport{
		RunID:     "run-12345",
		Profile:   "faulty",
		Backend:   "dry_run",
		StartTime: start,
		EndTime:   start.Add(95 * time.Second),
		Duration:  "1m35s",
		Status:    reporting.StatusCompleted,
		Fires: []reporting.FireRecord{
			{Trigger: "oneshot(clear_network_faults)", Fault: "clear_network_faults", Resolved: "clear_network_faults", Time: start},
			{Trigger: "periodic(30s, pick_fault)", Fault: "pick_fault", Resolved: "introduce_network_partition", Time: start.Add(30 * time.Second)},
			{Trigger: "periodic(30s, pick_fault)", Fault: "pick_fault", Resolved: "introduce_network_partition", Time: start.Add(60 * time.Second), Error: "iptables: permission denied"},
		},
		Cleanup: reporting.CleanupReport{TotalActions: 1, Succeeded: 1},
	}

	path, err := storage.SaveReport(report)
	if err != nil {
		fmt.Printf("Failed to save report: %v\n", err)
		return
	}
	fmt.Println("Report saved successfully")

	summaries, err := storage.ListReports()
	if err != nil {
		fmt.Printf("Failed to list reports: %v\n", err)
		return
	}
	fmt.Printf("Found %d report(s)\n", len(summaries))
	for _, summary := range summaries {
		fmt.Printf("  %s: %s (%s, %d fires, %d failed)\n", summary.RunID, summary.Profile, summary.Status, summary.Fires, summary.Failures)
	}

	loaded, err := storage.LoadReport(path)
	if err != nil {
		fmt.Printf("Failed to load report: %v\n", err)
		return
	}
	fmt.Printf("Loaded report for run: %s\n", loaded.RunID)

	// Output:
	// Report saved successfully
	// Found 1 report(s)
	//   run-12345: faulty (completed, 3 fires, 1 failed)
	// Loaded report for run: run-12345
}
