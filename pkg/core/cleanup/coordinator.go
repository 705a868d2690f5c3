// Package cleanup runs the final pass that returns the network to a clean
// state and releases every resource a run acquired.
package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/multierr"

	"github.com/jihwankim/chaos-scheduler/pkg/faults"
	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

const (
	defaultAttempts   = 3
	defaultRetryDelay = time.Second
)

// Coordinator applies the clear fault and then runs registered releases.
type Coordinator struct {
	mu         sync.Mutex
	clear      faults.Fault
	releases   []release
	auditLog   []AuditEntry
	attempts   int
	retryDelay time.Duration
	clock      clockwork.Clock
	logger     *reporting.Logger
}

type release struct {
	name string
	fn   func(ctx context.Context) error
}

// AuditEntry represents a cleanup action
type AuditEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Action    string    `json:"action"`
	Target    string    `json:"target"`
	Success   bool      `json:"success"`
	Error     string    `json:"error,omitempty"`
	Details   string    `json:"details"`
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithAttempts sets how many times the clear fault is tried.
func WithAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryDelay sets the pause between clear attempts.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Coordinator) {
		if d >= 0 {
			c.retryDelay = d
		}
	}
}

// WithClock sets the clock used for audit timestamps and retry delays.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Coordinator) {
		c.clock = clock
	}
}

// New creates a coordinator whose final pass applies clearFault.
func New(clearFault faults.Fault, logger *reporting.Logger, opts ...Option) *Coordinator {
	if logger == nil {
		logger = reporting.Nop()
	}
	c := &Coordinator{
		clear:      clearFault,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		clock:      clockwork.NewRealClock(),
		logger:     logger.Component("cleanup"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a release step. Releases run after the clear pass, in
// reverse registration order.
func (c *Coordinator) Register(name string, fn func(ctx context.Context) error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.releases = append(c.releases, release{name: name, fn: fn})
}

// CleanupAll clears network faults and releases every registered resource.
// Every step runs even when an earlier one fails; the errors are combined.
func (c *Coordinator) CleanupAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Starting cleanup of all chaos artifacts")

	var errs error
	if c.clear != nil {
		errs = multierr.Append(errs, c.clearNetwork(ctx))
	}

	for i := len(c.releases) - 1; i >= 0; i-- {
		r := c.releases[i]
		err := r.fn(ctx)
		if err != nil {
			c.logAudit("release", r.name, "Release failed", err)
			c.logger.Error("Release failed", "resource", r.name, "error", err)
			errs = multierr.Append(errs, fmt.Errorf("release %s: %w", r.name, err))
			continue
		}
		c.logAudit("release", r.name, "Released", nil)
	}

	summary := c.summaryLocked()
	c.logger.Info("Cleanup complete", "succeeded", summary.Succeeded, "failed", summary.Failed)
	return errs
}

func (c *Coordinator) clearNetwork(ctx context.Context) error {
	var err error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		err = c.clear.Clear(ctx)
		if err == nil {
			c.logAudit("clear_network_faults", c.clear.Name(), fmt.Sprintf("Network faults cleared (attempt %d)", attempt), nil)
			return nil
		}
		c.logAudit("clear_network_faults", c.clear.Name(), fmt.Sprintf("Attempt %d failed", attempt), err)
		c.logger.Warn("Failed to clear network faults", "attempt", attempt, "error", err)

		if attempt == c.attempts {
			break
		}
		if ctx.Err() != nil {
			return fmt.Errorf("clear network faults: %w", multierr.Append(err, ctx.Err()))
		}
		if c.retryDelay > 0 {
			select {
			case <-ctx.Done():
				return fmt.Errorf("clear network faults: %w", multierr.Append(err, ctx.Err()))
			case <-c.clock.After(c.retryDelay):
			}
		}
	}
	return fmt.Errorf("clear network faults after %d attempts: %w", c.attempts, err)
}

// logAudit adds an entry to the audit log
func (c *Coordinator) logAudit(action, target, details string, err error) {
	entry := AuditEntry{
		Timestamp: c.clock.Now(),
		Action:    action,
		Target:    target,
		Success:   err == nil,
		Details:   details,
	}
	if err != nil {
		entry.Error = err.Error()
	}
	c.auditLog = append(c.auditLog, entry)
}

// GetAuditLog returns a copy of the audit log
func (c *Coordinator) GetAuditLog() []AuditEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]AuditEntry(nil), c.auditLog...)
}

// GetSummary returns a summary of cleanup actions
func (c *Coordinator) GetSummary() CleanupSummary {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.summaryLocked()
}

func (c *Coordinator) summaryLocked() CleanupSummary {
	summary := CleanupSummary{TotalActions: len(c.auditLog)}
	for _, entry := range c.auditLog {
		if entry.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}

// CleanupSummary contains summary statistics
type CleanupSummary struct {
	TotalActions int `json:"total_actions"`
	Succeeded    int `json:"succeeded"`
	Failed       int `json:"failed"`
}

// String returns a string representation of the summary
func (s CleanupSummary) String() string {
	return fmt.Sprintf("Cleanup Summary: %d total actions, %d succeeded, %d failed",
		s.TotalActions, s.Succeeded, s.Failed)
}
