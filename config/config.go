// Package config loads agentlab configuration.
//
// Values are layered, lowest precedence first:
//  1. Built-in defaults (defaults.yaml)
//  2. An optional YAML file
//  3. Environment variables prefixed with AGENTLAB_
//
// Environment variables map to keys by splitting on the first underscore
// after the prefix: AGENTLAB_MEETING_ROUNDS sets meeting.rounds and
// AGENTLAB_AGENT_MAX_ITERATIONS sets agent.max_iterations.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment variable overrides.
const EnvPrefix = "AGENTLAB_"

const maxConfigFileSize = 1024 * 1024 // 1MB

//go:embed defaults.yaml
var defaultYAML []byte

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid config")

// Config holds the complete agentlab configuration.
type Config struct {
	Model     ModelConfig     `koanf:"model"`
	Agent     AgentConfig     `koanf:"agent"`
	Meeting   MeetingConfig   `koanf:"meeting"`
	Tools     ToolsConfig     `koanf:"tools"`
	Log       LogConfig       `koanf:"log"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Metrics   MetricsConfig   `koanf:"metrics"`
}

// ModelConfig selects and tunes the backend.
type ModelConfig struct {
	Provider    string  `koanf:"provider"` // openai, anthropic or scripted
	Name        string  `koanf:"name"`     // provider model name; empty uses the adapter default
	APIKey      string  `koanf:"api_key"`
	BaseURL     string  `koanf:"base_url"`
	Temperature float64 `koanf:"temperature"`
	MaxTokens   int64   `koanf:"max_tokens"`
	RateLimit   float64 `koanf:"rate_limit"` // requests per second; 0 disables throttling
	Burst       int     `koanf:"burst"`
}

// AgentConfig tunes the agent loop.
type AgentConfig struct {
	MaxIterations  int           `koanf:"max_iterations"`
	BackendRetries int           `koanf:"backend_retries"`
	BackendBackoff time.Duration `koanf:"backend_backoff"`
	BackendTimeout time.Duration `koanf:"backend_timeout"`
	ToolTimeout    time.Duration `koanf:"tool_timeout"`
	TaskTimeout    time.Duration `koanf:"task_timeout"`
	ParallelTools  int           `koanf:"parallel_tools"`
	Stream         bool          `koanf:"stream"`
}

// MeetingConfig tunes both meeting kinds.
type MeetingConfig struct {
	Rounds            int           `koanf:"rounds"`
	MaxTeamSize       int           `koanf:"max_team_size"`
	RedFlagRetries    int           `koanf:"red_flag_retries"`
	MaxSubtasks       int           `koanf:"max_subtasks"`
	SpecialistTimeout time.Duration `koanf:"specialist_timeout"`
}

// ToolsConfig configures the builtin tools.
type ToolsConfig struct {
	Workspace       string        `koanf:"workspace"`        // directory file tools are confined to
	Artifacts       string        `koanf:"artifacts"`        // artifact directory; empty keeps artifacts in memory
	Dataset         string        `koanf:"dataset"`          // SQLite file for query_dataset; empty disables it
	CodeInterpreter string        `koanf:"code_interpreter"` // command line for run_code; empty disables it
	CodeTimeout     time.Duration `koanf:"code_timeout"`
	MaxRows         int           `koanf:"max_rows"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level   string `koanf:"level"`
	Format  string `koanf:"format"`
	Backend string `koanf:"backend"`
}

// TelemetryConfig configures OpenTelemetry tracing.
type TelemetryConfig struct {
	Endpoint    string  `koanf:"endpoint"` // empty disables export
	Insecure    bool    `koanf:"insecure"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `koanf:"addr"` // listen address for /metrics; empty disables it
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(nil)
	if err != nil {
		panic(fmt.Sprintf("config: bad built-in defaults: %v", err)) // defaults.yaml is compiled in
	}

	return cfg
}

// Load reads defaults, the YAML file at path (skipped when path is empty)
// and AGENTLAB_ environment overrides, then validates the result.
func Load(path string) (*Config, error) {
	var content []byte

	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("stat config file: %w", err)
		}

		if info.Size() > maxConfigFileSize {
			return nil, fmt.Errorf("%w: config file too large: %d bytes (max %d)", ErrInvalidConfig, info.Size(), maxConfigFileSize)
		}

		content, err = io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg, err := load(content)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func load(file []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider(defaultYAML), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if len(file) > 0 {
		if err := k.Load(rawbytes.Provider(file), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: parse config file: %v", ErrInvalidConfig, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return &cfg, nil
}

// envKey maps AGENTLAB_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))

	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}

	return section + "." + field
}

// Validate checks value ranges. Errors wrap ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error

	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.Model.Provider {
	case "openai", "anthropic", "scripted":
	default:
		errs = append(errs, fmt.Errorf("model.provider must be openai, anthropic or scripted, got %q", c.Model.Provider))
	}

	check(c.Model.RateLimit >= 0, "model.rate_limit must not be negative")
	check(c.Model.RateLimit == 0 || c.Model.Burst >= 1, "model.burst must be at least 1 when rate_limit is set")
	check(c.Model.MaxTokens >= 0, "model.max_tokens must not be negative")

	check(c.Agent.MaxIterations >= 1, "agent.max_iterations must be at least 1, got %d", c.Agent.MaxIterations)
	check(c.Agent.BackendRetries >= 0, "agent.backend_retries must not be negative")
	check(c.Agent.BackendBackoff >= 0, "agent.backend_backoff must not be negative")
	check(c.Agent.BackendTimeout >= 0, "agent.backend_timeout must not be negative")
	check(c.Agent.ToolTimeout >= 0, "agent.tool_timeout must not be negative")
	check(c.Agent.TaskTimeout >= 0, "agent.task_timeout must not be negative")
	check(c.Agent.ParallelTools >= 1, "agent.parallel_tools must be at least 1")

	check(c.Meeting.Rounds >= 1, "meeting.rounds must be at least 1, got %d", c.Meeting.Rounds)
	check(c.Meeting.MaxTeamSize >= 2, "meeting.max_team_size must be at least 2, got %d", c.Meeting.MaxTeamSize)
	check(c.Meeting.RedFlagRetries >= 0, "meeting.red_flag_retries must not be negative")
	check(c.Meeting.MaxSubtasks >= 1, "meeting.max_subtasks must be at least 1")
	check(c.Meeting.SpecialistTimeout >= 0, "meeting.specialist_timeout must not be negative")

	check(c.Tools.CodeTimeout >= 0, "tools.code_timeout must not be negative")
	check(c.Tools.MaxRows >= 1, "tools.max_rows must be at least 1")

	check(c.Telemetry.SampleRate >= 0 && c.Telemetry.SampleRate <= 1, "telemetry.sample_rate must be within [0, 1]")

	if len(errs) == 0 {
		return nil
	}

	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}
