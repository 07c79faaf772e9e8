package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInput         = errors.New("input error")
	ErrCapability    = errors.New("capability error")
	ErrConvergence   = errors.New("convergence failure")
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTransient     = errors.New("transient failure")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind is the coarse classification reported to callers and persisted
// in run history.
type FailureKind string

const (
	KindInput       FailureKind = "input"
	KindCapability  FailureKind = "capability"
	KindConvergence FailureKind = "convergence"
	KindInternal    FailureKind = "internal"
)

// Classify maps an error to the failure kind surfaced across the worker boundary.
func Classify(err error) FailureKind {
	switch {
	case err == nil:
		return KindInternal
	case errors.Is(err, ErrInput), errors.Is(err, ErrValidation), errors.Is(err, ErrNotFound):
		return KindInput
	case errors.Is(err, ErrCapability):
		return KindCapability
	case errors.Is(err, ErrConvergence):
		return KindConvergence
	default:
		return KindInternal
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
