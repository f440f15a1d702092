package services

import "errors"

var (
	// ErrEmptyResultSet means the selected quarter produced no joined rows.
	// It is an informational state, not a failure.
	ErrEmptyResultSet = errors.New("no data for this quarter")

	// ErrMissingSubdivisionData means the selected subdivision has no joined
	// row, or no foot-traffic rows to break down.
	ErrMissingSubdivisionData = errors.New("no data for this subdivision")

	ErrInvalidQuarter = errors.New("invalid quarter code")
)
