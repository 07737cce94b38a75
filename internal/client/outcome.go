package client

import "time"

// ErrorKind classifies why a request failed. The zero value means success.
type ErrorKind string

const (
	KindNone       ErrorKind = ""
	KindConnection ErrorKind = "connection"
	KindHTTPStatus ErrorKind = "http_status"
	KindSchema     ErrorKind = "schema"
	KindSLABreach  ErrorKind = "sla_breach"
)

// ErrorKinds lists every failure kind in classification order.
var ErrorKinds = []ErrorKind{KindConnection, KindHTTPStatus, KindSchema, KindSLABreach}

// Check names, in report order.
const (
	CheckStatusOK  = "status is 200"
	CheckHasOrder  = "has order data"
	CheckWithinSLA = "response time < SLA"
)

// CheckNames lists the per-request checks in report order.
var CheckNames = []string{CheckStatusOK, CheckHasOrder, CheckWithinSLA}

// Checks holds the independent per-request assertions. Unlike ErrorKind,
// every check is evaluated even when an earlier one fails.
type Checks struct {
	StatusOK  bool
	HasOrder  bool
	WithinSLA bool
}

// Passed reports whether the named check passed
func (c Checks) Passed(name string) bool {
	switch name {
	case CheckStatusOK:
		return c.StatusOK
	case CheckHasOrder:
		return c.HasOrder
	case CheckWithinSLA:
		return c.WithinSLA
	default:
		return false
	}
}

// Outcome is the classified result of one request
type Outcome struct {
	Timestamp        time.Time
	Target           string
	Latency          time.Duration
	StatusCode       int
	Success          bool
	ErrorKind        ErrorKind
	Checks           Checks
	ConnectionReused bool
	Timing           TimingBreakdown
	Err              error
}
