package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultSLA is the latency a successful request must stay under.
	DefaultSLA = time.Second
	// DefaultMaxBodyBytes caps how much of a response body is read.
	DefaultMaxBodyBytes = 10 << 20
)

var (
	jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

	errBodyTooLarge = errors.New("response body exceeds size limit")
	errOrderMissing = errors.New("response has no order")
)

// ExecutorConfig configures request execution and classification
type ExecutorConfig struct {
	BaseURL      string
	SLA          time.Duration
	MaxBodyBytes int64
	RequestName  string
}

// Executor issues order lookups and classifies each response
type Executor struct {
	client  HTTPClient
	baseURL string
	sla     time.Duration
	maxBody int64
	name    string
}

// NewExecutor creates an executor that sends requests through client
func NewExecutor(client HTTPClient, cfg ExecutorConfig) *Executor {
	e := &Executor{
		client:  client,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		sla:     cfg.SLA,
		maxBody: cfg.MaxBodyBytes,
		name:    cfg.RequestName,
	}
	if e.sla <= 0 {
		e.sla = DefaultSLA
	}
	if e.maxBody <= 0 {
		e.maxBody = DefaultMaxBodyBytes
	}
	return e
}

// URL returns the order endpoint for targetID
func (e *Executor) URL(targetID string) string {
	return e.baseURL + "/order/" + url.PathEscape(targetID)
}

// Execute performs one GET for targetID. It always returns exactly one outcome;
// transport and protocol failures are folded into the outcome, never returned.
func (e *Executor) Execute(ctx context.Context, targetID string) Outcome {
	out := Outcome{Timestamp: time.Now(), Target: targetID}
	tracer := NewTracer()

	req, err := http.NewRequestWithContext(
		httptrace.WithClientTrace(ctx, tracer.ClientTrace()),
		http.MethodGet, e.URL(targetID), nil,
	)
	if err != nil {
		return e.finish(ctx, out, tracer, 0, nil, fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)

	tracer.Start()
	resp, err := e.client.Do(req)
	if err != nil {
		tracer.End()
		return e.finish(ctx, out, tracer, 0, nil, err)
	}

	body, err := readBody(resp.Body, e.maxBody)
	resp.Body.Close()
	tracer.End()

	return e.finish(ctx, out, tracer, resp.StatusCode, body, err)
}

// finish classifies the response and logs failures to the logger carried by
// ctx, if any.
func (e *Executor) finish(ctx context.Context, out Outcome, tracer *Tracer, status int, body []byte, err error) Outcome {
	timing := tracer.Timing()
	out.Timing = timing
	out.Latency = time.Duration(timing.Total)
	out.ConnectionReused = timing.ConnectionReused
	out.StatusCode = status

	out.ErrorKind, out.Checks, out.Err = Classify(status, body, err, out.Latency, e.sla)
	out.Success = out.ErrorKind == KindNone

	if !out.Success {
		log.Ctx(ctx).Debug().
			Str("request", e.name).
			Str("target", out.Target).
			Int("status", status).
			Str("error_kind", string(out.ErrorKind)).
			Dur("latency", out.Latency).
			Err(out.Err).
			Msg("request failed")
	}

	return out
}

// Classify derives the error kind and check results for a completed request.
// readErr is the transport or body read error, if any. The first failing
// condition in the order connection, http_status, schema, sla_breach wins.
func Classify(status int, body []byte, readErr error, latency, sla time.Duration) (ErrorKind, Checks, error) {
	checks := Checks{
		StatusOK:  status == http.StatusOK,
		WithinSLA: latency < sla,
	}

	if readErr != nil && !errors.Is(readErr, errBodyTooLarge) {
		return KindConnection, checks, readErr
	}

	var schemaErr error
	if readErr != nil {
		schemaErr = readErr
	} else {
		schemaErr = checkOrder(body)
	}
	checks.HasOrder = schemaErr == nil

	switch {
	case !checks.StatusOK:
		return KindHTTPStatus, checks, fmt.Errorf("unexpected status %d", status)
	case !checks.HasOrder:
		return KindSchema, checks, schemaErr
	case !checks.WithinSLA:
		return KindSLABreach, checks, fmt.Errorf("latency %s exceeds SLA %s", latency, sla)
	}

	return KindNone, checks, nil
}

type orderEnvelope struct {
	Order jsoniter.RawMessage `json:"order"`
	Error string              `json:"error,omitempty"`
}

// checkOrder requires a JSON object with a non-null "order" member
func checkOrder(body []byte) error {
	var env orderEnvelope
	if err := jsonAPI.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}

	raw := bytes.TrimSpace(env.Order)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		if env.Error != "" {
			return fmt.Errorf("%w: %s", errOrderMissing, env.Error)
		}
		return errOrderMissing
	}

	return nil
}

func readBody(r io.Reader, limit int64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, errBodyTooLarge
	}
	return body, nil
}
