package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func requireConfigError(t *testing.T, err error) *Error {
	t.Helper()
	var cfgErr *Error
	require.True(t, errors.As(err, &cfgErr), "expected *config.Error, got %v", err)
	return cfgErr
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Validate())
	assert.Len(t, cfg.TargetPool, 9)
	assert.Equal(t, 230*time.Second, cfg.TotalDuration())
	assert.Equal(t, time.Second, cfg.SLA())
	assert.Equal(t, 500*time.Millisecond, cfg.PostRequestSleep())
	assert.Equal(t, 100*time.Millisecond, cfg.Tick())
}

func TestDefaultPoolIsCopied(t *testing.T) {
	cfg := Default()
	cfg.TargetPool[0] = "changed"

	assert.Equal(t, "b563feb7b2b84b6329608", DefaultTargetPool[0])
}

func TestValidateRejectsEmptyPool(t *testing.T) {
	cfg := Default()
	cfg.TargetPool = []string{}

	cfgErr := requireConfigError(t, cfg.Validate())
	assert.Contains(t, cfgErr.Error(), "targetPool")
}

func TestValidateRejectsBlankTarget(t *testing.T) {
	cfg := Default()
	cfg.TargetPool = []string{"uid", ""}

	cfgErr := requireConfigError(t, cfg.Validate())
	assert.Contains(t, cfgErr.Error(), "targetPool[1] is required")
}

func TestValidateStages(t *testing.T) {
	tests := []struct {
		name    string
		stages  []Stage
		wantErr bool
	}{
		{"empty list", nil, false},
		{"positive durations", []Stage{{10, 100}, {60, 200}}, false},
		{"terminal instant drain", []Stage{{10, 100}, {0, 0}}, false},
		{"zero duration mid-list", []Stage{{0, 100}, {10, 0}}, true},
		{"terminal zero duration to non-zero", []Stage{{10, 100}, {0, 50}}, true},
		{"negative duration", []Stage{{-1, 10}}, true},
		{"negative target", []Stage{{10, -5}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Stages = tt.stages
			err := cfg.Validate()
			if tt.wantErr {
				requireConfigError(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateCollectsAllProblems(t *testing.T) {
	cfg := Default()
	cfg.BaseURL = "not a url"
	cfg.SLAMs = 0
	cfg.Thresholds.MaxFailureRate = 2
	cfg.Resolve = []string{"bad"}

	cfgErr := requireConfigError(t, cfg.Validate())
	assert.Len(t, cfgErr.Problems, 4)
	assert.Contains(t, cfgErr.Error(), "baseUrl must be an http(s) URL")
	assert.Contains(t, cfgErr.Error(), "slaMs must be greater than 0")
	assert.Contains(t, cfgErr.Error(), "thresholds.maxFailureRate must be at most 1")
}

func TestParseStage(t *testing.T) {
	st, err := ParseStage("1m30s:200")
	require.NoError(t, err)
	assert.Equal(t, Stage{DurationSeconds: 90, TargetConcurrency: 200}, st)

	for _, bad := range []string{"30s", "abc:10", "30s:many", ""} {
		_, err := ParseStage(bad)
		assert.Errorf(t, err, "expected error for %q", bad)
	}

	stages, err := ParseStages([]string{"10s:100", "1m:200"})
	require.NoError(t, err)
	assert.Equal(t, []Stage{{10, 100}, {60, 200}}, stages)
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, Default(), cfg)
}

func TestLoadFromYAML(t *testing.T) {
	path := writeFile(t, "goload.yaml", `
baseUrl: http://orders.internal:8081
targetPool:
  - uid-1
  - uid-2
stages:
  - durationSeconds: 5
    targetConcurrency: 10
  - durationSeconds: 5
    targetConcurrency: 0
postRequestSleepSeconds: 0.25
thresholds:
  maxFailureRate: 0.05
  maxP99LatencyMs: 250
`)

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "http://orders.internal:8081", cfg.BaseURL)
	assert.Equal(t, []string{"uid-1", "uid-2"}, cfg.TargetPool)
	assert.Equal(t, []Stage{{5, 10}, {5, 0}}, cfg.Stages)
	assert.Equal(t, 0.25, cfg.PostRequestSleepSeconds)
	assert.Equal(t, Thresholds{MaxFailureRate: 0.05, MaxP99LatencyMs: 250}, cfg.Thresholds)
	// Unset keys keep their defaults
	assert.Equal(t, 1000.0, cfg.SLAMs)
	assert.Equal(t, "GetOrder", cfg.RequestName)
}

func TestLoadEmptyPoolFromFile(t *testing.T) {
	path := writeFile(t, "goload.yaml", "targetPool: []\n")

	_, err := Load(viper.New(), path)
	requireConfigError(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	requireConfigError(t, err)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("GOLOAD_BASEURL", "http://localhost:9000")
	t.Setenv("GOLOAD_THRESHOLDS_MAXP99LATENCYMS", "750")
	t.Setenv("GOLOAD_TARGETPOOL", "a,b,c")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:9000", cfg.BaseURL)
	assert.Equal(t, 750.0, cfg.Thresholds.MaxP99LatencyMs)
	assert.Equal(t, []string{"a", "b", "c"}, cfg.TargetPool)
}

func TestLoadExplicitValuesWin(t *testing.T) {
	t.Setenv("GOLOAD_BASEURL", "http://from-env:1")

	v := viper.New()
	v.Set("baseUrl", "http://from-flag:2")
	v.Set("stages", []Stage{{1, 1}})

	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, "http://from-flag:2", cfg.BaseURL)
	assert.Equal(t, []Stage{{1, 1}}, cfg.Stages)
}

func TestLoadTargetPoolFile(t *testing.T) {
	pool := writeFile(t, "targets.txt", "# orders\nuid-9\nuid-10\n")

	v := viper.New()
	v.Set("targetPoolFile", pool)

	cfg, err := Load(v, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"uid-9", "uid-10"}, cfg.TargetPool)
}

func TestLoadEmptyTargetPoolFile(t *testing.T) {
	pool := writeFile(t, "targets.txt", "# nothing here\n")

	v := viper.New()
	v.Set("targetPoolFile", pool)

	_, err := Load(v, "")
	cfgErr := requireConfigError(t, err)
	assert.Contains(t, cfgErr.Error(), "targetPoolFile "+pool+" contains no ids")
}
