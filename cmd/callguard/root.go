package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jeeves-cluster-organization/callguard/coreengine/config"
)

// rootOptions holds global flags and the loaded configuration.
type rootOptions struct {
	cfgFile string
	format  string
	v       *viper.Viper
	cfg     *config.PipelineConfig
}

// validFormats defines the allowed output formats.
var validFormats = []string{"table", "json"}

// NewRootCommand creates the root command for the callguard CLI.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{v: viper.New()}
	defaults := config.DefaultPipelineConfig()

	cmd := &cobra.Command{
		Use:   "callguard",
		Short: "Failure-policy interception for method calls",
		Long: `callguard routes calls through an interception pipeline that applies a
per-method failure policy: record the failure, suppress it with a fallback
value, both, or neither.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.format, validFormats)
			}
			return opts.loadConfig()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "config file (yaml, json or toml)")
	flags.StringVar(&opts.format, "format", "table", "output format: table or json")
	flags.String("log-level", defaults.LogLevel, "log level: DEBUG, INFO, WARN or ERROR")
	flags.String("policy-file", defaults.PolicyFile, "YAML policy file (default: built-in sample policies)")
	flags.Int("record-buffer-size", defaults.RecordBufferSize, "failure record buffer, 0 records synchronously")
	flags.String("tracing-endpoint", defaults.TracingEndpoint, "OTLP gRPC collector endpoint, empty disables tracing")

	for _, name := range []string{"log-level", "policy-file", "record-buffer-size", "tracing-endpoint"} {
		_ = opts.v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flags.Lookup(name))
	}

	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newCallCommand(opts))
	cmd.AddCommand(newPoliciesCommand(opts))

	return cmd
}

// loadConfig merges defaults, config file, CALLGUARD_* env vars and flags,
// in increasing priority, and installs the result as the global config.
func (o *rootOptions) loadConfig() error {
	v := o.v
	for key, value := range config.DefaultPipelineConfig().ToMap() {
		v.SetDefault(key, value)
	}

	v.SetEnvPrefix("CALLGUARD")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if o.cfgFile != "" {
		v.SetConfigFile(o.cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := config.DefaultPipelineConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	o.cfg = cfg
	config.SetPipelineConfig(cfg)
	return nil
}

func (o *rootOptions) isJSON() bool {
	return o.format == "json"
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range validFormats {
		if f == format {
			return true
		}
	}
	return false
}
