package main

import (
	"fmt"
	"os"
	"time"

	"github.com/erfi/goload/internal/app"
	"github.com/erfi/goload/internal/config"
	"github.com/erfi/goload/internal/logging"
	"github.com/erfi/goload/internal/output"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// options holds the raw flag values of one invocation
type options struct {
	configFile   string
	outputFormat string
	noColor      bool
	verbose      bool
	quiet        bool
	logFormat    string

	baseURL        string
	targets        []string
	targetsFile    string
	stages         []string
	sleep          time.Duration
	sla            time.Duration
	timeout        time.Duration
	grace          time.Duration
	maxFailureRate float64
	maxP99         float64
	maxRPS         float64
	seed           uint64
	progress       time.Duration
	insecure       bool
	resolve        []string
	name           string
}

func newRootCmd() *cobra.Command {
	o := &options{}

	rootCmd := &cobra.Command{
		Use:   "goload [flags]",
		Short: "A staged HTTP load generator for order lookup services",
		Long: `goload drives a ramping population of virtual users against
GET {base-url}/order/{id}, picking ids uniformly from a target pool.

Each stage ramps the number of virtual users linearly to its target.
At the end of the run goload prints latency percentiles, check results
and a threshold verdict, and exits 0 on pass, 1 on a threshold violation
and 2 on a configuration error.`,
		Example: `  goload
  goload --base-url http://localhost:8081 --stage 30s:50 --stage 1m:50 --stage 10s:0
  goload -f scenario.yaml -o json
  goload -L ids.txt --max-p99 500 --max-failure-rate 0.05
  cat ids.txt | goload -L - -o prom > goload.prom
  goload validate -f scenario.yaml`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if o.noColor {
				color.NoColor = true
			}
			if err := logging.Setup(logging.Level(o.verbose, o.quiet), o.logFormat, cmd.ErrOrStderr()); err != nil {
				return config.NewError(err, err.Error())
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoadTest(cmd, o)
		},
	}

	// Global flags
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&o.configFile, "config", "f", "", "Config file (yaml, json or toml)")
	pf.StringVarP(&o.outputFormat, "output", "o", "table", "Output format: table|json|graph|prom")
	pf.BoolVar(&o.noColor, "no-color", false, "Disable colored output")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose output, including per-request failure logs")
	pf.BoolVarP(&o.quiet, "quiet", "q", false, "Only log warnings and errors")
	pf.StringVar(&o.logFormat, "log-format", logging.FormatAuto, "Log format: auto|console|json")

	// Scenario flags
	pf.StringVar(&o.baseURL, "base-url", "", "Base URL of the order service")
	pf.StringArrayVar(&o.targets, "target", nil, "Order id to request (repeatable, replaces the default pool)")
	pf.StringVarP(&o.targetsFile, "targets-file", "L", "", "File containing order ids (one per line), use '-' for stdin")
	pf.StringArrayVar(&o.stages, "stage", nil, "Stage as duration:target, e.g. 30s:100 (repeatable)")
	pf.DurationVar(&o.sleep, "sleep", 0, "Pause after each request")
	pf.DurationVar(&o.sla, "sla", 0, "Per-request latency limit")
	pf.DurationVar(&o.timeout, "timeout", 0, "HTTP request timeout")
	pf.DurationVar(&o.grace, "grace", 0, "Drain window after the last stage")
	pf.Float64Var(&o.maxFailureRate, "max-failure-rate", 0, "Failure rate the run must stay below, the limit itself fails (0..1, negative disables)")
	pf.Float64Var(&o.maxP99, "max-p99", 0, "p99 latency in milliseconds the run must stay below, the limit itself fails (negative disables)")
	pf.Float64Var(&o.maxRPS, "max-rps", 0, "Cap on aggregate requests per second (0 for no cap)")
	pf.Uint64Var(&o.seed, "seed", 0, "Seed for target selection (0 for time based)")
	pf.DurationVar(&o.progress, "progress", 0, "Progress log interval (0 disables)")
	pf.BoolVarP(&o.insecure, "insecure", "k", false, "Skip TLS verification")
	pf.StringArrayVar(&o.resolve, "resolve", nil, "Resolve host:port to address (format: host:port:addr)")
	pf.StringVar(&o.name, "name", "", "Request name used in logs and metric labels")

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return config.NewError(err, err.Error())
	})

	rootCmd.AddCommand(newValidateCmd(o))
	return rootCmd
}

func newValidateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and print the stage plan without sending requests",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, o)
			if err != nil {
				return err
			}
			output.WritePlan(cmd.OutOrStdout(), cfg)
			return nil
		},
	}
}

func runLoadTest(cmd *cobra.Command, o *options) error {
	cfg, err := loadConfig(cmd, o)
	if err != nil {
		return err
	}

	application, err := app.New(cfg, app.Options{
		OutputFormat: o.outputFormat,
		Verbose:      o.verbose,
		Out:          cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	ctx, cancel := app.SetupSignalHandler(cfg.GracePeriod() + 5*time.Second)
	defer cancel()

	_, err = application.Run(ctx)
	return err
}

// loadConfig resolves defaults, the config file, GOLOAD_* variables and the
// flags set on this invocation, in increasing priority
func loadConfig(cmd *cobra.Command, o *options) (*config.Config, error) {
	v := viper.New()
	if err := bindFlags(cmd.Flags(), v, o); err != nil {
		return nil, err
	}
	return config.Load(v, o.configFile)
}

func bindFlags(flags *pflag.FlagSet, v *viper.Viper, o *options) error {
	set := func(flag, key string, value any) {
		if flags.Changed(flag) {
			v.Set(key, value)
		}
	}

	set("base-url", "baseUrl", o.baseURL)
	set("target", "targetPool", o.targets)
	set("targets-file", "targetPoolFile", o.targetsFile)
	set("sleep", "postRequestSleepSeconds", o.sleep.Seconds())
	set("sla", "slaMs", float64(o.sla)/float64(time.Millisecond))
	set("timeout", "requestTimeoutSeconds", o.timeout.Seconds())
	set("grace", "gracePeriodSeconds", o.grace.Seconds())
	set("max-failure-rate", "thresholds.maxFailureRate", o.maxFailureRate)
	set("max-p99", "thresholds.maxP99LatencyMs", o.maxP99)
	set("max-rps", "maxRps", o.maxRPS)
	set("seed", "seed", o.seed)
	set("progress", "progressIntervalSeconds", o.progress.Seconds())
	set("insecure", "insecure", o.insecure)
	set("resolve", "resolve", o.resolve)
	set("name", "requestName", o.name)

	if flags.Changed("stage") {
		stages, err := config.ParseStages(o.stages)
		if err != nil {
			return config.NewError(err, err.Error())
		}
		v.Set("stages", stages)
	}

	return nil
}

// Execute runs the root command with the process arguments
func Execute() error {
	return newRootCmd().Execute()
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("Error:"), err)
}
