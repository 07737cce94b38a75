package client

import (
	"crypto/tls"
	"net/http/httptrace"
	"time"
)

// TimingBreakdown holds the connection phases of one request
type TimingBreakdown struct {
	DNSLookup        Duration `json:"dns_lookup"`
	Connect          Duration `json:"connect"`
	TLSHandshake     Duration `json:"tls_handshake"`
	TimeToFirstByte  Duration `json:"time_to_first_byte"`
	Total            Duration `json:"total"`
	ConnectionReused bool     `json:"connection_reused"`
}

// Tracer captures phase timestamps during request execution.
// A Tracer serves a single request and is not safe for reuse.
type Tracer struct {
	dnsStart   time.Time
	dnsEnd     time.Time
	connStart  time.Time
	connEnd    time.Time
	tlsStart   time.Time
	tlsEnd     time.Time
	firstByte  time.Time
	totalStart time.Time
	totalEnd   time.Time

	timing TimingBreakdown
}

// NewTracer creates a new Tracer instance
func NewTracer() *Tracer {
	return &Tracer{}
}

// ClientTrace returns an httptrace.ClientTrace wired to this tracer
func (t *Tracer) ClientTrace() *httptrace.ClientTrace {
	return &httptrace.ClientTrace{
		DNSStart: func(_ httptrace.DNSStartInfo) {
			t.dnsStart = time.Now()
		},
		DNSDone: func(_ httptrace.DNSDoneInfo) {
			t.dnsEnd = time.Now()
		},
		ConnectStart: func(_, _ string) {
			t.connStart = time.Now()
		},
		ConnectDone: func(_, _ string, _ error) {
			t.connEnd = time.Now()
		},
		TLSHandshakeStart: func() {
			t.tlsStart = time.Now()
		},
		TLSHandshakeDone: func(_ tls.ConnectionState, _ error) {
			t.tlsEnd = time.Now()
		},
		GotConn: func(info httptrace.GotConnInfo) {
			t.timing.ConnectionReused = info.Reused
		},
		GotFirstResponseByte: func() {
			t.firstByte = time.Now()
		},
	}
}

// Start marks the beginning of the request
func (t *Tracer) Start() {
	t.totalStart = time.Now()
}

// End marks completion, after the body has been consumed
func (t *Tracer) End() {
	t.totalEnd = time.Now()
	t.calculateDurations()
}

func (t *Tracer) calculateDurations() {
	t.timing.DNSLookup = span(t.dnsStart, t.dnsEnd)
	t.timing.Connect = span(t.connStart, t.connEnd)
	t.timing.TLSHandshake = span(t.tlsStart, t.tlsEnd)
	t.timing.TimeToFirstByte = span(t.totalStart, t.firstByte)
	t.timing.Total = span(t.totalStart, t.totalEnd)
}

func span(start, end time.Time) Duration {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return Duration(end.Sub(start))
}

// Timing returns the captured breakdown
func (t *Tracer) Timing() TimingBreakdown {
	return t.timing
}
