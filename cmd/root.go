package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inference-sim/cachesim/sim"
	"github.com/inference-sim/cachesim/sim/doccache"
	"github.com/inference-sim/cachesim/sim/scenario"
	"github.com/inference-sim/cachesim/sim/stats"
	"github.com/inference-sim/cachesim/sim/trace"
)

const envPrefix = "CACHESIM"

var (
	configFile   string // Runner settings file (yaml, json or toml)
	scenarioFile string // Scenario batch YAML
	policiesFile string // Policy bundle YAML replacing every scenario's policies
)

// runnerConfig holds the settings resolved from flags, CACHESIM_* env vars and the config file.
type runnerConfig struct {
	LogLevel    string
	Parallelism int
	TraceLevel  string
	MetricsOut  string
	Seed        int64
	SeedSet     bool
}

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "cachesim",
	Short: "Mobility-aware small-cell caching simulator",
}

// runCmd executes every scenario of the batch and prints per-policy statistics
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a batch of caching scenarios",
	Run: func(cmd *cobra.Command, args []string) {
		rc, err := loadRunnerConfig(cmd)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		level, err := logrus.ParseLevel(rc.LogLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", rc.LogLevel)
		}
		logrus.SetLevel(level)

		batch, err := loadScenarios(scenarioFile, policiesFile)
		if err != nil {
			logrus.Fatalf("%v", err)
		}
		if rc.SeedSet {
			for i := range batch.Scenarios {
				batch.Scenarios[i].Seed = rc.Seed
			}
		}

		startTime := time.Now()
		if err := runBatch(cmd.Context(), batch, rc, os.Stdout); err != nil {
			logrus.Fatalf("%v", err)
		}
		logrus.Infof("Simulation complete in %s.", time.Since(startTime).Round(time.Millisecond))
	},
}

// validateCmd checks the scenario and policy files without running anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate scenario and policy files",
	RunE: func(cmd *cobra.Command, args []string) error {
		batch, err := loadScenarios(scenarioFile, policiesFile)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d scenario(s) valid\n", len(batch.Scenarios))
		return nil
	},
}

// loadRunnerConfig resolves runner settings; flags take precedence over the
// environment, which takes precedence over the config file.
func loadRunnerConfig(cmd *cobra.Command) (*runnerConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return nil, fmt.Errorf("binding flags: %w", err)
	}
	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading runner config: %w", err)
		}
	}
	rc := &runnerConfig{
		LogLevel:    v.GetString("log"),
		Parallelism: v.GetInt("parallelism"),
		TraceLevel:  v.GetString("trace-level"),
		MetricsOut:  v.GetString("metrics-out"),
		Seed:        v.GetInt64("seed"),
		SeedSet:     v.IsSet("seed"),
	}
	if rc.Parallelism < 0 {
		return nil, fmt.Errorf("parallelism must be non-negative, got %d", rc.Parallelism)
	}
	if !trace.IsValidTraceLevel(rc.TraceLevel) {
		return nil, fmt.Errorf("unknown trace level %q", rc.TraceLevel)
	}
	return rc, nil
}

// loadScenarios reads the batch and, when policiesPath is set, replaces every
// scenario's policies with the bundle's before validating.
func loadScenarios(scenarioPath, policiesPath string) (*scenario.Batch, error) {
	if scenarioPath == "" {
		return nil, fmt.Errorf("--scenarios is required")
	}
	batch, err := scenario.LoadBatch(scenarioPath)
	if err != nil {
		return nil, err
	}
	if policiesPath != "" {
		bundle, err := sim.LoadPolicyBundle(policiesPath)
		if err != nil {
			return nil, err
		}
		if err := bundle.Validate(); err != nil {
			return nil, fmt.Errorf("policy bundle: %w", err)
		}
		for i := range batch.Scenarios {
			batch.Scenarios[i].Policies = bundle.Policies
		}
	}
	if err := batch.Validate(); err != nil {
		return nil, err
	}
	return batch, nil
}

// runBatch runs the scenarios and writes the report to out. Scenario failures
// are logged and reported; only a batch-fatal error is returned.
func runBatch(ctx context.Context, batch *scenario.Batch, rc *runnerConfig, out io.Writer) error {
	agg := stats.NewAggregator()
	sinks := stats.Fanout{agg}
	var registry *prometheus.Registry
	if rc.MetricsOut != "" {
		registry = prometheus.NewRegistry()
		promSink, err := stats.NewPrometheus(registry)
		if err != nil {
			return err
		}
		sinks = append(sinks, promSink)
	}

	docs := doccache.New()
	results, err := scenario.RunBatch(ctx, batch.Scenarios, rc.Parallelism, scenario.Options{
		Sink:       sinks,
		TraceLevel: trace.TraceLevel(rc.TraceLevel),
		Docs:       docs,
	})
	if err != nil {
		return err
	}

	agg.Print(out)
	for _, res := range results {
		printResult(out, res)
	}
	hits, misses := docs.Stats()
	logrus.Debugf("document cache: %d documents, %d hits, %d misses", docs.Len(), hits, misses)

	if registry != nil {
		if err := prometheus.WriteToTextfile(rc.MetricsOut, registry); err != nil {
			return fmt.Errorf("writing metrics: %w", err)
		}
		logrus.Infof("Metrics written to %s", rc.MetricsOut)
	}
	return nil
}

func printResult(out io.Writer, res scenario.Result) {
	if res.Err != nil {
		logrus.WithField("scenario", res.Name).Errorf("scenario failed: %v", res.Err)
		fmt.Fprintf(out, "=== Scenario %s: FAILED (%v) ===\n", res.Name, res.Err)
		return
	}
	fmt.Fprintf(out, "=== Scenario %s: %d requests ===\n", res.Name, res.Requests)
	for _, p := range sortedKeys(res.Utilization) {
		fmt.Fprintf(out, "%-16s: utilization=%.4f\n", p, res.Utilization[p])
	}
	if t := res.Trace; t != nil {
		fmt.Fprintf(out, "decisions=%d admitted=%d skipped=%d evictions=%d evicted_chunks=%d vetoes=%d\n",
			t.TotalDecisions, t.AdmittedCount, t.SkippedCount, t.EvictionSearches, t.EvictedChunks, t.Vetoes)
	}
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// addRunFlags declares the runner settings; their values are read back through viper.
func addRunFlags(c *cobra.Command) {
	c.Flags().StringVar(&configFile, "config", "", "Runner settings file (flags and "+envPrefix+"_* env vars take precedence)")
	c.Flags().String("log", "warn", "Log level (trace, debug, info, warn, error, fatal, panic)")
	c.Flags().Int("parallelism", 0, "Scenarios run concurrently (0 = all)")
	c.Flags().String("trace-level", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	c.Flags().String("metrics-out", "", "Write Prometheus metrics to this textfile")
	c.Flags().Int64("seed", 0, "Override every scenario's seed")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&scenarioFile, "scenarios", "", "Scenario batch YAML file")
	rootCmd.PersistentFlags().StringVar(&policiesFile, "policies", "", "Policy bundle YAML overriding every scenario's policies")

	addRunFlags(runCmd)

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(validateCmd)
}
