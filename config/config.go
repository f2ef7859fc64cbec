// Package config resolves agent configuration from defaults, an optional
// YAML file, and environment overrides, in that precedence order.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Environment variable names recognized by Load.
const (
	EnvConfigPath     = "LEGION_CONFIG"
	EnvTaskName       = "LEGION_TASK_NAME"
	EnvTaskNamespace  = "LEGION_TASK_NAMESPACE"
	EnvModel          = "LEGION_MODEL"
	EnvPIIEndpoint    = "LEGION_PII_ENDPOINT"
	EnvPIIWaitSeconds = "LEGION_PII_WAIT_SECONDS"
	EnvControllerBin  = "LEGION_CONTROLLER_BIN"
	EnvLogLevel       = "LEGION_LOG_LEVEL"
	EnvLogFormat      = "LEGION_LOG_FORMAT"
)

// Config is the resolved agent configuration.
type Config struct {
	// TaskName and Namespace identify this task to the controller.
	TaskName  string `yaml:"taskName"`
	Namespace string `yaml:"namespace"`

	// Model overrides the model id from the task descriptor.
	Model string `yaml:"model"`

	// PIIEndpoint, when set, must answer health probes before the run
	// starts. PIIWaitSeconds bounds the wait.
	PIIEndpoint    string `yaml:"piiEndpoint"`
	PIIWaitSeconds int    `yaml:"piiWaitSeconds"`

	// ControllerBin is the controller CLI used for spawn and report calls.
	ControllerBin string `yaml:"controllerBin"`

	// Wire paths. Fixed by the task contract; overridable for tests.
	TaskPath        string `yaml:"taskPath"`
	ResultPath      string `yaml:"resultPath"`
	UsagePath       string `yaml:"usagePath"`
	StatePath       string `yaml:"statePath"`
	ChildResultsDir string `yaml:"childResultsDir"`
	WorkDir         string `yaml:"workDir"`

	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		PIIWaitSeconds:  60,
		ControllerBin:   "legionctl",
		TaskPath:        "/inbox/task.json",
		ResultPath:      "/outbox/result.json",
		UsagePath:       "/outbox/usage.json",
		StatePath:       "/memory/state.json",
		ChildResultsDir: "/inbox/child-results",
		WorkDir:         "/workspace",
		LogLevel:        "info",
		LogFormat:       "json",
	}
}

// Load resolves configuration: defaults, then the YAML file named by
// LEGION_CONFIG if present, then environment overrides.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv(EnvConfigPath); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.TaskName, EnvTaskName)
	setString(&cfg.Namespace, EnvTaskNamespace)
	setString(&cfg.Model, EnvModel)
	setString(&cfg.PIIEndpoint, EnvPIIEndpoint)
	setString(&cfg.ControllerBin, EnvControllerBin)
	setString(&cfg.LogLevel, EnvLogLevel)
	setString(&cfg.LogFormat, EnvLogFormat)

	if v := os.Getenv(EnvPIIWaitSeconds); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			cfg.PIIWaitSeconds = secs
		}
	}
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}
