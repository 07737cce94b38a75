package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Stage is one segment of the load profile. Concurrency ramps linearly from
// the previous stage's target to TargetConcurrency over the stage's duration.
type Stage struct {
	DurationSeconds   float64 `mapstructure:"durationSeconds" json:"durationSeconds" validate:"gte=0"`
	TargetConcurrency int     `mapstructure:"targetConcurrency" json:"targetConcurrency" validate:"gte=0"`
}

// Duration returns the stage length
func (s Stage) Duration() time.Duration {
	return seconds(s.DurationSeconds)
}

// Thresholds are the pass/fail criteria of a run. A negative value disables
// the corresponding threshold.
type Thresholds struct {
	MaxFailureRate  float64 `mapstructure:"maxFailureRate" json:"maxFailureRate" validate:"lte=1"`
	MaxP99LatencyMs float64 `mapstructure:"maxP99LatencyMs" json:"maxP99LatencyMs"`
}

// Config is the resolved run configuration
type Config struct {
	BaseURL                 string     `mapstructure:"baseUrl" json:"baseUrl" validate:"required,http_url"`
	TargetPool              []string   `mapstructure:"targetPool" json:"targetPool" validate:"required,min=1,dive,required"`
	TargetPoolFile          string     `mapstructure:"targetPoolFile" json:"targetPoolFile,omitempty"`
	Stages                  []Stage    `mapstructure:"stages" json:"stages" validate:"dive"`
	PostRequestSleepSeconds float64    `mapstructure:"postRequestSleepSeconds" json:"postRequestSleepSeconds" validate:"gte=0"`
	Thresholds              Thresholds `mapstructure:"thresholds" json:"thresholds"`

	SLAMs                   float64  `mapstructure:"slaMs" json:"slaMs" validate:"gt=0"`
	RequestTimeoutSeconds   float64  `mapstructure:"requestTimeoutSeconds" json:"requestTimeoutSeconds" validate:"gt=0"`
	GracePeriodSeconds      float64  `mapstructure:"gracePeriodSeconds" json:"gracePeriodSeconds" validate:"gte=0"`
	MaxRPS                  float64  `mapstructure:"maxRps" json:"maxRps" validate:"gte=0"`
	Seed                    uint64   `mapstructure:"seed" json:"seed"`
	TickMillis              int      `mapstructure:"tickMillis" json:"tickMillis" validate:"gt=0"`
	ProgressIntervalSeconds float64  `mapstructure:"progressIntervalSeconds" json:"progressIntervalSeconds" validate:"gte=0"`
	Insecure                bool     `mapstructure:"insecure" json:"insecure"`
	MaxBodyBytes            int64    `mapstructure:"maxBodyBytes" json:"maxBodyBytes" validate:"gt=0"`
	RequestName             string   `mapstructure:"requestName" json:"requestName"`
	Resolve                 []string `mapstructure:"resolve" json:"resolve,omitempty"`
}

// DefaultTargetPool holds the order UIDs of the reference scenario.
var DefaultTargetPool = []string{
	"b563feb7b2b84b6329608",
	"b563feb7b2b84b6127191",
	"b563feb7b2b84b6561978",
	"b563feb7b2b84b6102309",
	"b563feb7b2b84b6722539",
	"b563feb7b2b84b6454035",
	"b563feb7b2b84b6692043",
	"b563feb7b2b84b6951821",
	"b563feb7b2b84b6119540",
}

// Default returns the reference scenario: ramp to 100, 200 and 500 VUs,
// then back down, against the order service on the docker host.
func Default() *Config {
	return &Config{
		BaseURL:    "http://host.docker.internal:8081",
		TargetPool: append([]string(nil), DefaultTargetPool...),
		Stages: []Stage{
			{DurationSeconds: 10, TargetConcurrency: 100},
			{DurationSeconds: 60, TargetConcurrency: 200},
			{DurationSeconds: 120, TargetConcurrency: 500},
			{DurationSeconds: 30, TargetConcurrency: 100},
			{DurationSeconds: 10, TargetConcurrency: 0},
		},
		PostRequestSleepSeconds: 0.5,
		Thresholds: Thresholds{
			MaxFailureRate:  0.01,
			MaxP99LatencyMs: 1000,
		},
		SLAMs:                   1000,
		RequestTimeoutSeconds:   30,
		GracePeriodSeconds:      30,
		TickMillis:              100,
		ProgressIntervalSeconds: 5,
		MaxBodyBytes:            10 << 20,
		RequestName:             "GetOrder",
	}
}

// TotalDuration is the sum of all stage durations
func (c *Config) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range c.Stages {
		total += s.Duration()
	}
	return total
}

// SLA returns the per-request latency limit
func (c *Config) SLA() time.Duration { return millis(c.SLAMs) }

// RequestTimeout returns the HTTP client timeout
func (c *Config) RequestTimeout() time.Duration { return seconds(c.RequestTimeoutSeconds) }

// GracePeriod returns the drain window after the last stage
func (c *Config) GracePeriod() time.Duration { return seconds(c.GracePeriodSeconds) }

// PostRequestSleep returns the pause each worker takes after a request
func (c *Config) PostRequestSleep() time.Duration { return seconds(c.PostRequestSleepSeconds) }

// Tick returns the scheduler reconcile interval
func (c *Config) Tick() time.Duration { return time.Duration(c.TickMillis) * time.Millisecond }

// ProgressInterval returns the live progress log interval; zero disables it
func (c *Config) ProgressInterval() time.Duration { return seconds(c.ProgressIntervalSeconds) }

// ParseStage parses the "duration:target" flag form, e.g. "30s:100" or "1m30s:200"
func ParseStage(s string) (Stage, error) {
	dur, target, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return Stage{}, fmt.Errorf("invalid stage %q: expected duration:target", s)
	}

	d, err := time.ParseDuration(strings.TrimSpace(dur))
	if err != nil {
		return Stage{}, fmt.Errorf("invalid stage %q: %w", s, err)
	}

	n, err := strconv.Atoi(strings.TrimSpace(target))
	if err != nil {
		return Stage{}, fmt.Errorf("invalid stage %q: target must be an integer", s)
	}

	return Stage{DurationSeconds: d.Seconds(), TargetConcurrency: n}, nil
}

// ParseStages parses every flag value with ParseStage
func ParseStages(values []string) ([]Stage, error) {
	stages := make([]Stage, 0, len(values))
	for _, v := range values {
		st, err := ParseStage(v)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return stages, nil
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func millis(f float64) time.Duration {
	return time.Duration(f * float64(time.Millisecond))
}
