// Package errors consolidates error definitions for the guildlog project.
//
// This file provides:
// - Sentinel errors for all error conditions
// - Error category checking functions
// - Error wrapping utilities
//
// The store distinguishes two failure families: format errors (a partition
// filename or document that does not match the expected shape) and I/O
// errors (directory creation, read/write, delete). Format errors on load
// or append are fatal to that operation; the retention sweep downgrades
// them to skip-and-warn.
package errors

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel errors
// ============================================================================

var (
	// Format errors
	ErrBadPartitionName = errors.New("partition filename does not match YYYY-MM-DD.json")
	ErrCorruptPartition = errors.New("partition document failed to decode")
	ErrBadDate          = errors.New("unparsable date")
	ErrBadTimeOfDay     = errors.New("unparsable time of day")
	ErrBadEvent         = errors.New("unparsable event envelope")
	ErrUnknownEventType = errors.New("unknown event type")

	// Validation errors
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingField  = errors.New("missing required field")

	// State errors
	ErrAlreadyRunning = errors.New("already running")
	ErrNotRunning     = errors.New("not running")
	ErrClosed         = errors.New("closed")
)

// ============================================================================
// Helper functions for error checking
// ============================================================================

// Is is a convenience wrapper for errors.Is
var Is = errors.Is

// As is a convenience wrapper for errors.As
var As = errors.As

// New is a convenience wrapper for errors.New
var New = errors.New

// IsFormat returns true if err is a format error: something on disk or on
// the wire did not match the shape this system writes.
func IsFormat(err error) bool {
	return errors.Is(err, ErrBadPartitionName) ||
		errors.Is(err, ErrCorruptPartition) ||
		errors.Is(err, ErrBadDate) ||
		errors.Is(err, ErrBadTimeOfDay) ||
		errors.Is(err, ErrBadEvent) ||
		errors.Is(err, ErrUnknownEventType)
}

// IsValidation returns true if err is a configuration validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrInvalidConfig) ||
		errors.Is(err, ErrMissingField)
}

// ============================================================================
// Error wrapping utilities
// ============================================================================

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// ============================================================================
// Error constructors with context
// ============================================================================

// NewBadPartitionName creates a format error carrying the offending path.
func NewBadPartitionName(path string) error {
	return fmt.Errorf("%s: %w", path, ErrBadPartitionName)
}

// NewCorruptPartition creates a decode error carrying the offending path.
func NewCorruptPartition(path string, cause error) error {
	return fmt.Errorf("%s: %v: %w", path, cause, ErrCorruptPartition)
}

// NewValidation creates a validation error with context.
func NewValidation(field, reason string) error {
	return fmt.Errorf("invalid %s: %s: %w", field, reason, ErrInvalidConfig)
}

// NewMissingField creates a missing field error.
func NewMissingField(field string) error {
	return fmt.Errorf("%s: %w", field, ErrMissingField)
}
