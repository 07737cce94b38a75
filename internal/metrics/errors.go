package metrics

import "fmt"

// AggregationError reports a broken internal invariant of the aggregator.
// It indicates a bug; callers abort the run instead of reporting the metrics.
type AggregationError struct {
	Invariant string
	Detail    string
}

func (e *AggregationError) Error() string {
	return fmt.Sprintf("aggregation invariant %q violated: %s", e.Invariant, e.Detail)
}

func invariantError(invariant, format string, args ...any) *AggregationError {
	return &AggregationError{Invariant: invariant, Detail: fmt.Sprintf(format, args...)}
}
