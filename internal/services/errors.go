package services

import "errors"

// Engine service errors
var (
	// ErrDistrictNotFound is the normal outcome for an unknown district id,
	// not an exceptional condition.
	ErrDistrictNotFound = errors.New("district not found")

	// ErrSourceUnavailable wraps a failed row-source fetch. The previous
	// snapshot stays installed; retry policy belongs to the caller.
	ErrSourceUnavailable = errors.New("row source unavailable")

	// ErrEstimatorUnavailable means the estimator is gated off by
	// configuration.
	ErrEstimatorUnavailable = errors.New("estimator disabled")

	// ErrInsufficientHistory means the estimator needed more data points
	// than the district's history provides.
	ErrInsufficientHistory = errors.New("insufficient history for estimate")
)
