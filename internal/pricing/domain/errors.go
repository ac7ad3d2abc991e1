package domain

import (
	"errors"
	"fmt"
)

// Error codes surfaced to the transport layer
const (
	ErrCodeInvalidDuration         = "INVALID_DURATION"
	ErrCodeUnknownStrategy         = "UNKNOWN_STRATEGY"
	ErrCodeIncompleteConfiguration = "INCOMPLETE_CONFIGURATION"
	ErrCodeNoMatchingTier          = "NO_MATCHING_TIER"
	ErrCodeNotFound                = "NOT_FOUND"
	ErrCodeInvalidInput            = "INVALID_INPUT"
)

// InvalidDurationError is returned when a rental spans less than one day
type InvalidDurationError struct {
	DurationDays int
}

// Error implements the error interface
func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("%s: rental duration must be at least 1 day, got %d", ErrCodeInvalidDuration, e.DurationDays)
}

// NewInvalidDurationError creates a new invalid duration error
func NewInvalidDurationError(durationDays int) *InvalidDurationError {
	return &InvalidDurationError{DurationDays: durationDays}
}

// UnknownStrategyError is returned when a rule carries an unrecognized strategy
type UnknownStrategyError struct {
	Strategy string
}

// Error implements the error interface
func (e *UnknownStrategyError) Error() string {
	return fmt.Sprintf("%s: pricing strategy %q is not recognized", ErrCodeUnknownStrategy, e.Strategy)
}

// NewUnknownStrategyError creates a new unknown strategy error
func NewUnknownStrategyError(strategy string) *UnknownStrategyError {
	return &UnknownStrategyError{Strategy: strategy}
}

// IncompleteConfigurationError is returned when a rule's calculation config
// is missing a field its strategy requires
type IncompleteConfigurationError struct {
	Strategy Strategy
	Field    string
}

// Error implements the error interface
func (e *IncompleteConfigurationError) Error() string {
	return fmt.Sprintf("%s: strategy %q requires config field %q", ErrCodeIncompleteConfiguration, e.Strategy, e.Field)
}

// NewIncompleteConfigurationError creates a new incomplete configuration error
func NewIncompleteConfigurationError(strategy Strategy, field string) *IncompleteConfigurationError {
	return &IncompleteConfigurationError{Strategy: strategy, Field: field}
}

// NoMatchingTierError is returned when a tiered rule has no tier covering
// the requested duration
type NoMatchingTierError struct {
	DurationDays int
}

// Error implements the error interface
func (e *NoMatchingTierError) Error() string {
	return fmt.Sprintf("%s: no tier covers a duration of %d days", ErrCodeNoMatchingTier, e.DurationDays)
}

// NewNoMatchingTierError creates a new no matching tier error
func NewNoMatchingTierError(durationDays int) *NoMatchingTierError {
	return &NoMatchingTierError{DurationDays: durationDays}
}

// NotFoundError is returned when a referenced entity does not exist
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s: %s %s not found", ErrCodeNotFound, e.Resource, e.ID)
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ErrorCode maps a domain error to its stable code, or ErrCodeInvalidInput
// for any other error
func ErrorCode(err error) string {
	var (
		invalidDuration *InvalidDurationError
		unknownStrategy *UnknownStrategyError
		incompleteCfg   *IncompleteConfigurationError
		noTier          *NoMatchingTierError
		notFound        *NotFoundError
	)
	switch {
	case errors.As(err, &invalidDuration):
		return ErrCodeInvalidDuration
	case errors.As(err, &unknownStrategy):
		return ErrCodeUnknownStrategy
	case errors.As(err, &incompleteCfg):
		return ErrCodeIncompleteConfiguration
	case errors.As(err, &noTier):
		return ErrCodeNoMatchingTier
	case errors.As(err, &notFound):
		return ErrCodeNotFound
	default:
		return ErrCodeInvalidInput
	}
}

// IsConfigurationError reports whether the error stems from tenant-authored
// rule data rather than a malformed request
func IsConfigurationError(err error) bool {
	code := ErrorCode(err)
	return code == ErrCodeIncompleteConfiguration || code == ErrCodeNoMatchingTier || code == ErrCodeUnknownStrategy
}
