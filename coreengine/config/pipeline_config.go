// Package config provides pipeline configuration.
//
// This module contains ONLY configuration the pipeline and its hosts read:
//   - Recording buffer and source
//   - Logging level
//   - Tracing, metrics and gRPC endpoints
//   - Policy file location
//
// Environment parsing happens in cmd via viper; this package never reads
// the environment itself.
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/jeeves-cluster-organization/callguard/coreengine/typeutil"
)

// PipelineConfig holds pipeline configuration.
type PipelineConfig struct {
	// Recording
	RecordBufferSize int    `json:"record_buffer_size" mapstructure:"record_buffer_size"` // 0 = record synchronously
	RecordSource     string `json:"record_source" mapstructure:"record_source"`

	// Logging
	LogLevel string `json:"log_level" mapstructure:"log_level"`

	// Observability
	ServiceName     string `json:"service_name" mapstructure:"service_name"`
	TracingEndpoint string `json:"tracing_endpoint" mapstructure:"tracing_endpoint"` // empty = tracing disabled
	MetricsAddr     string `json:"metrics_addr" mapstructure:"metrics_addr"`

	// Transport
	GRPCAddr string `json:"grpc_addr" mapstructure:"grpc_addr"`

	// Policies
	PolicyFile string `json:"policy_file" mapstructure:"policy_file"` // empty = built-in sample policies
}

// DefaultPipelineConfig returns a PipelineConfig with default values.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		RecordBufferSize: 256,
		RecordSource:     "Application",

		LogLevel: "INFO",

		ServiceName:     "callguard",
		TracingEndpoint: "",
		MetricsAddr:     ":9090",

		GRPCAddr: ":50051",

		PolicyFile: "",
	}
}

// PipelineConfigFromMap creates PipelineConfig from a map.
// Unknown keys are ignored.
func PipelineConfigFromMap(config map[string]any) *PipelineConfig {
	c := DefaultPipelineConfig()

	typeutil.SetInt(&c.RecordBufferSize, config["record_buffer_size"])
	typeutil.SetString(&c.RecordSource, config["record_source"])
	typeutil.SetString(&c.LogLevel, config["log_level"])
	typeutil.SetString(&c.ServiceName, config["service_name"])
	typeutil.SetString(&c.TracingEndpoint, config["tracing_endpoint"])
	typeutil.SetString(&c.MetricsAddr, config["metrics_addr"])
	typeutil.SetString(&c.GRPCAddr, config["grpc_addr"])
	typeutil.SetString(&c.PolicyFile, config["policy_file"])

	return c
}

// ToMap converts config to a map.
func (c *PipelineConfig) ToMap() map[string]any {
	return map[string]any{
		"record_buffer_size": c.RecordBufferSize,
		"record_source":      c.RecordSource,
		"log_level":          c.LogLevel,
		"service_name":       c.ServiceName,
		"tracing_endpoint":   c.TracingEndpoint,
		"metrics_addr":       c.MetricsAddr,
		"grpc_addr":          c.GRPCAddr,
		"policy_file":        c.PolicyFile,
	}
}

var validLogLevels = map[string]bool{"DEBUG": true, "INFO": true, "WARN": true, "ERROR": true}

// Validate checks the config for values the pipeline cannot run with.
func (c *PipelineConfig) Validate() error {
	if c.RecordBufferSize < 0 {
		return fmt.Errorf("record_buffer_size must be >= 0, got %d", c.RecordBufferSize)
	}
	if strings.TrimSpace(c.RecordSource) == "" {
		return fmt.Errorf("record_source is required")
	}
	if !validLogLevels[strings.ToUpper(c.LogLevel)] {
		return fmt.Errorf("log_level %q is not one of DEBUG, INFO, WARN, ERROR", c.LogLevel)
	}
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("service_name is required")
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG (set by cmd bootstrap)
// =============================================================================

var (
	globalPipelineConfig *PipelineConfig
	configMu             sync.RWMutex
)

// GetPipelineConfig gets the pipeline configuration instance.
// Returns the injected config or defaults.
func GetPipelineConfig() *PipelineConfig {
	configMu.RLock()
	defer configMu.RUnlock()

	if globalPipelineConfig == nil {
		return DefaultPipelineConfig()
	}
	return globalPipelineConfig
}

// SetPipelineConfig sets the pipeline configuration instance.
// Called by cmd bootstrap after viper has merged flags, env and file.
func SetPipelineConfig(config *PipelineConfig) {
	configMu.Lock()
	defer configMu.Unlock()

	globalPipelineConfig = config
}

// ResetPipelineConfig resets pipeline config to nil (useful for testing).
// After reset, GetPipelineConfig() will return defaults.
func ResetPipelineConfig() {
	configMu.Lock()
	defer configMu.Unlock()

	globalPipelineConfig = nil
}
