package config

import (
	"fmt"
	"strings"

	"github.com/erfi/goload/internal/target"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. GOLOAD_BASEURL.
const EnvPrefix = "GOLOAD"

// Load resolves the configuration from, in increasing priority: defaults,
// the optional config file at path, GOLOAD_* environment variables, and any
// flags or values already bound on v. The result is validated.
func Load(v *viper.Viper, path string) (*Config, error) {
	setDefaults(v, Default())

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, NewError(err, fmt.Sprintf("read config file %s: %v", path, err))
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg, func(dc *mapstructure.DecoderConfig) {
		dc.ZeroFields = true
	}); err != nil {
		return nil, NewError(err, fmt.Sprintf("decode config: %v", err))
	}

	if cfg.TargetPoolFile != "" {
		reader := target.NewPoolReader()
		if err := reader.ReadFile(cfg.TargetPoolFile); err != nil {
			return nil, NewError(err, err.Error())
		}
		if reader.Count() == 0 {
			return nil, NewError(nil, fmt.Sprintf("targetPoolFile %s contains no ids", cfg.TargetPoolFile))
		}
		cfg.TargetPool = reader.IDs()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("baseUrl", d.BaseURL)
	v.SetDefault("targetPool", d.TargetPool)
	v.SetDefault("targetPoolFile", d.TargetPoolFile)
	v.SetDefault("stages", d.Stages)
	v.SetDefault("postRequestSleepSeconds", d.PostRequestSleepSeconds)
	v.SetDefault("thresholds.maxFailureRate", d.Thresholds.MaxFailureRate)
	v.SetDefault("thresholds.maxP99LatencyMs", d.Thresholds.MaxP99LatencyMs)
	v.SetDefault("slaMs", d.SLAMs)
	v.SetDefault("requestTimeoutSeconds", d.RequestTimeoutSeconds)
	v.SetDefault("gracePeriodSeconds", d.GracePeriodSeconds)
	v.SetDefault("maxRps", d.MaxRPS)
	v.SetDefault("seed", d.Seed)
	v.SetDefault("tickMillis", d.TickMillis)
	v.SetDefault("progressIntervalSeconds", d.ProgressIntervalSeconds)
	v.SetDefault("insecure", d.Insecure)
	v.SetDefault("maxBodyBytes", d.MaxBodyBytes)
	v.SetDefault("requestName", d.RequestName)
	// No default: an empty list would decode as a non-nil slice
	_ = v.BindEnv("resolve")
}
