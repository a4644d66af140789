package domain

import "errors"

var (
	// ErrInsufficientData is returned by AggregateLandUse when no weight could
	// be observed or inferred. Callers omit the land-use section.
	ErrInsufficientData = errors.New("insufficient land-use data")

	// ErrInvalidCoordinate reports a latitude/longitude outside WGS-84 range.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)
