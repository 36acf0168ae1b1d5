// ABOUTME: Sentinel errors for the aggregation engine.
// ABOUTME: Store failures surface as ErrUnavailable instead of empty results.
package aggregate

import "errors"

var (
	// ErrUnavailable is returned when the record store cannot provide a
	// snapshot. It wraps the underlying store error.
	ErrUnavailable = errors.New("aggregation unavailable")
	// ErrNoSeries is returned for categories that have no chart projection.
	ErrNoSeries = errors.New("no chart series for category")
)
