package faults

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration matches every ConfigurationError via errors.Is.
	ErrConfiguration = errors.New("configuration error")

	// ErrFaultApplication matches every FaultApplicationError via errors.Is.
	ErrFaultApplication = errors.New("fault application error")
)

// ConfigurationError is returned when a fault, meta-fault, trigger or profile
// is declared with invalid parameters. It is raised at construction time,
// before any fault touches the system under test.
type ConfigurationError struct {
	Field  string
	Reason string
}

// Configf builds a ConfigurationError for field.
func Configf(field, format string, args ...interface{}) *ConfigurationError {
	return &ConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Reason)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// FaultApplicationError wraps a backend failure raised while applying or
// clearing a fault.
type FaultApplicationError struct {
	Fault string
	Op    string // "apply" or "clear"
	Err   error
}

func (e *FaultApplicationError) Error() string {
	return fmt.Sprintf("failed to %s fault %s: %v", e.Op, e.Fault, e.Err)
}

func (e *FaultApplicationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFaultApplication.
func (e *FaultApplicationError) Is(target error) bool {
	return target == ErrFaultApplication
}

// IsConfigurationError reports whether err is or wraps a ConfigurationError.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
