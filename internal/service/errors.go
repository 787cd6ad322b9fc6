package service

import (
	"errors"
)

// Error taxonomy resolved at the HTTP boundary. Domain-rule decisions
// (claim win/loss, staleness) are typed results, not errors; these cover
// caller mistakes and storage failures only.
var (
	// ErrNotFound maps to 404.
	ErrNotFound = errors.New("not found")

	// ErrValidation maps to 400: missing or malformed input.
	ErrValidation = errors.New("validation failed")

	// ErrRuleViolation maps to 400 with a specific, user-facing
	// explanation distinct from generic validation failure.
	ErrRuleViolation = errors.New("rule violation")
)
