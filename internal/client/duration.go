package client

import (
	"encoding/json"
	"math"
	"time"
)

// Duration is a time.Duration that marshals to fractional milliseconds
type Duration time.Duration

// MarshalJSON emits milliseconds rounded to microsecond precision
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(math.Round(d.Millis()*1000) / 1000)
}

// Millis returns the duration in fractional milliseconds
func (d Duration) Millis() float64 {
	return float64(d) / float64(time.Millisecond)
}

// Milliseconds returns the duration as whole milliseconds
func (d Duration) Milliseconds() int64 {
	return time.Duration(d).Milliseconds()
}

// Seconds returns the duration as seconds
func (d Duration) Seconds() float64 {
	return time.Duration(d).Seconds()
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
