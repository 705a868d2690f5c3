// Package emergency aborts a chaos run from outside the scheduler: a stop
// file appearing on disk or SIGINT/SIGTERM.
package emergency

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/jihwankim/chaos-scheduler/pkg/reporting"
)

const DefaultStopFile = "/tmp/chaos-emergency-stop"

// Controller manages emergency stop functionality
type Controller struct {
	stopFile       string
	stopCh         chan struct{}
	stopped        bool
	reason         string
	mutex          sync.RWMutex
	callbacks      []func(reason string)
	pollInterval   time.Duration
	signalHandlers bool
	clock          clockwork.Clock
	logger         *reporting.Logger
}

// Config contains emergency controller configuration
type Config struct {
	// StopFile is the path to watch for emergency stop
	StopFile string

	// PollInterval for checking stop file
	PollInterval time.Duration

	// EnableSignalHandlers enables SIGINT/SIGTERM handling
	EnableSignalHandlers bool

	// Clock drives the stop file poll. Defaults to the real clock.
	Clock clockwork.Clock

	Logger *reporting.Logger
}

// New creates a new emergency controller
func New(config Config) *Controller {
	if config.StopFile == "" {
		config.StopFile = DefaultStopFile
	}
	if config.PollInterval <= 0 {
		config.PollInterval = time.Second
	}
	if config.Clock == nil {
		config.Clock = clockwork.NewRealClock()
	}
	if config.Logger == nil {
		config.Logger = reporting.Nop()
	}

	return &Controller{
		stopFile:       config.StopFile,
		stopCh:         make(chan struct{}),
		pollInterval:   config.PollInterval,
		signalHandlers: config.EnableSignalHandlers,
		clock:          config.Clock,
		logger:         config.Logger.Component("emergency"),
	}
}

// Start begins monitoring for emergency stop conditions until ctx is done
// or a stop is triggered.
func (c *Controller) Start(ctx context.Context) {
	go c.watchStopFile(ctx)

	if c.signalHandlers {
		go c.watchSignals(ctx)
	}
}

func (c *Controller) watchStopFile(ctx context.Context) {
	ticker := c.clock.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.Chan():
			if c.checkStopFile() {
				c.logger.Warn("Emergency stop file detected", "path", c.stopFile)
				c.triggerStop("stop file detected")
				return
			}
		}
	}
}

func (c *Controller) watchSignals(ctx context.Context) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
	case <-c.stopCh:
	case sig := <-sigCh:
		c.logger.Warn("Emergency stop signal received", "signal", sig.String())
		c.triggerStop(fmt.Sprintf("signal: %v", sig))
	}
}

func (c *Controller) checkStopFile() bool {
	_, err := os.Stat(c.stopFile)
	return err == nil
}

// triggerStop closes the stop channel and runs the callbacks once. Callbacks
// run outside the lock so they may query the controller.
func (c *Controller) triggerStop(reason string) {
	c.mutex.Lock()
	if c.stopped {
		c.mutex.Unlock()
		return
	}
	c.stopped = true
	c.reason = reason
	close(c.stopCh)
	callbacks := append([]func(string){}, c.callbacks...)
	c.mutex.Unlock()

	c.logger.Error("EMERGENCY STOP TRIGGERED", "reason", reason, "callbacks", len(callbacks))

	for _, callback := range callbacks {
		callback(reason)
	}
}

// Stop manually triggers an emergency stop
func (c *Controller) Stop(reason string) {
	c.triggerStop(reason)
}

// IsStopped returns true if emergency stop has been triggered
func (c *Controller) IsStopped() bool {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.stopped
}

// Reason returns why the stop was triggered, or "" while running.
func (c *Controller) Reason() string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return c.reason
}

// StopChannel returns a channel that closes when stop is triggered
func (c *Controller) StopChannel() <-chan struct{} {
	return c.stopCh
}

// OnStop registers a callback to execute when stop is triggered
func (c *Controller) OnStop(callback func(reason string)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.callbacks = append(c.callbacks, callback)
}

// CreateStopFile creates the emergency stop file
func (c *Controller) CreateStopFile() error {
	msg := fmt.Sprintf("Emergency stop requested at %s\n", time.Now().Format(time.RFC3339))
	if err := os.WriteFile(c.stopFile, []byte(msg), 0644); err != nil {
		return fmt.Errorf("failed to create stop file: %w", err)
	}
	return nil
}

// RemoveStopFile removes the emergency stop file
func (c *Controller) RemoveStopFile() error {
	err := os.Remove(c.stopFile)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove stop file: %w", err)
	}
	return nil
}

// GetStopFilePath returns the path to the stop file
func (c *Controller) GetStopFilePath() string {
	return c.stopFile
}
