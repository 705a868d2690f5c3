package scheduler

import (
	"errors"
	"fmt"
)

// ErrSchedulerFatal matches every SchedulerFatalError with errors.Is.
var ErrSchedulerFatal = errors.New("scheduler fatal error")

// ErrAlreadyStarted is returned by Start on a scheduler that already ran.
var ErrAlreadyStarted = errors.New("scheduler already started")

// SchedulerFatalError aborts a run. The final cleanup pass still runs.
type SchedulerFatalError struct {
	Err error
}

func (e *SchedulerFatalError) Error() string {
	return fmt.Sprintf("scheduler fatal: %v", e.Err)
}

func (e *SchedulerFatalError) Unwrap() error {
	return e.Err
}

func (e *SchedulerFatalError) Is(target error) bool {
	return target == ErrSchedulerFatal
}

func fatalf(format string, args ...interface{}) *SchedulerFatalError {
	return &SchedulerFatalError{Err: fmt.Errorf(format, args...)}
}
