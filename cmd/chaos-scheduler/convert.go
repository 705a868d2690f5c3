package main

import (
	"time"

	"github.com/jihwankim/chaos-scheduler/pkg/core/cleanup"
	"github.com/jihwankim/chaos-scheduler/pkg/core/scheduler"
	"github.com/jihwankim/chaos-scheduler/pkg/discovery"
	"github.com/jihwankim/chaos-scheduler/pkg/profile"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

// convertStatus maps a scheduler stop reason to a report status
func convertStatus(reason string, err error) reporting.RunStatus {
	if err != nil || reason == scheduler.ReasonFatal {
		return reporting.StatusFailed
	}
	switch reason {
	case scheduler.ReasonDuration:
		return reporting.StatusCompleted
	case scheduler.ReasonCancelled, scheduler.ReasonStopped:
		return reporting.StatusStopped
	default:
		return reporting.StatusRunning
	}
}

// convertFire converts a scheduler.FireEvent to a reporting.FireRecord
func convertFire(ev scheduler.FireEvent) reporting.FireRecord {
	rec := reporting.FireRecord{
		Trigger:  ev.Trigger,
		Fault:    ev.Fault,
		Resolved: ev.Resolved,
		Time:     ev.At,
		Duration: ev.Duration.Round(time.Millisecond).String(),
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
	}
	return rec
}

func convertFires(events []scheduler.FireEvent) []reporting.FireRecord {
	result := make([]reporting.FireRecord, len(events))
	for i, ev := range events {
		result[i] = convertFire(ev)
	}
	return result
}

// convertStats lists trigger counters in profile declaration order
func convertStats(p *profile.Profile, stats map[string]scheduler.TriggerStats) []reporting.TriggerSummary {
	trigs := p.Triggers()
	result := make([]reporting.TriggerSummary, 0, len(trigs))
	for _, t := range trigs {
		st := stats[t.Name()]
		result = append(result, reporting.TriggerSummary{
			Name:     t.Name(),
			Fires:    st.Fires,
			Failures: st.Failures,
			LastFire: st.LastFire,
		})
	}
	return result
}

// convertCleanup converts the coordinator summary and audit log
func convertCleanup(summary cleanup.CleanupSummary, audit []cleanup.AuditEntry) reporting.CleanupReport {
	log := make([]reporting.AuditRecord, len(audit))
	for i, e := range audit {
		log[i] = reporting.AuditRecord{
			Timestamp: e.Timestamp,
			Action:    e.Action,
			Target:    e.Target,
			Success:   e.Success,
			Error:     e.Error,
			Details:   e.Details,
		}
	}
	return reporting.CleanupReport{
		TotalActions: summary.TotalActions,
		Succeeded:    summary.Succeeded,
		Failed:       summary.Failed,
		Log:          log,
	}
}

// convertTargets converts discovery.Target to reporting.TargetInfo
func convertTargets(targets []discovery.Target) []reporting.TargetInfo {
	result := make([]reporting.TargetInfo, len(targets))
	for i, t := range targets {
		result[i] = reporting.TargetInfo{
			Name:        t.Name,
			ContainerID: t.ContainerID,
			IP:          t.IP,
		}
	}
	return result
}
