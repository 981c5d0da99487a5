// Package config loads and validates run configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/utils"
)

// Defaults applied to fields left empty in the file.
const (
	DefaultPollInterval   = 200 * time.Millisecond
	DefaultOutputDir      = "outputs"
	DefaultInputField     = "input"
	DefaultEvaluatorKind  = "llm"
	DefaultEvaluatorModel = "gpt-4o-mini"
	DefaultAPIKeyEnv      = "OPENAI_API_KEY"
	DefaultCallTimeout    = 60 * time.Second
	DefaultInitialBackoff = time.Second
	DefaultMaxBackoff     = 30 * time.Second
)

var validate = validator.New()

// Load reads a YAML run configuration, fills defaults and validates it.
func Load(path string) (model.RunConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.RunConfig{}, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes into a validated run configuration.
func Parse(data []byte) (model.RunConfig, error) {
	var cfg model.RunConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return model.RunConfig{}, fmt.Errorf("parse config: %w", err)
	}
	ApplyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return model.RunConfig{}, err
	}
	return cfg, nil
}

// ApplyDefaults fills zero-valued optional fields.
func ApplyDefaults(cfg *model.RunConfig) {
	if cfg.NumRepetitions == 0 {
		cfg.NumRepetitions = 1
	}
	if cfg.MaxConcurrency == 0 {
		cfg.MaxConcurrency = 1
	}
	if cfg.PollInterval == "" {
		cfg.PollInterval = DefaultPollInterval.String()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = DefaultOutputDir
	}
	if cfg.Evaluatee.InputField == "" {
		cfg.Evaluatee.InputField = DefaultInputField
	}
	if cfg.Evaluator.Kind == "" {
		cfg.Evaluator.Kind = DefaultEvaluatorKind
	}
	if cfg.Evaluator.Model == "" {
		cfg.Evaluator.Model = DefaultEvaluatorModel
	}
	if cfg.Evaluator.APIKeyEnv == "" {
		cfg.Evaluator.APIKeyEnv = DefaultAPIKeyEnv
	}
	if cfg.Worker.MaxAttempts == 0 {
		cfg.Worker.MaxAttempts = 1
	}
}

// Validate checks struct constraints and duration fields.
func Validate(cfg model.RunConfig) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	durations := map[string]string{
		"poll_interval":          cfg.PollInterval,
		"evaluatee.timeout":      cfg.Evaluatee.Timeout,
		"worker.initial_backoff": cfg.Worker.InitialBackoff,
		"worker.max_backoff":     cfg.Worker.MaxBackoff,
	}
	for name, value := range durations {
		if value == "" {
			continue
		}
		if d, err := time.ParseDuration(value); err != nil || d < 0 {
			return fmt.Errorf("invalid config: %s: bad duration %q", name, value)
		}
	}
	return nil
}

// PollInterval returns the queue wait used between shutdown checks.
func PollInterval(cfg model.RunConfig) time.Duration {
	d := utils.ParseDuration(cfg.PollInterval, DefaultPollInterval)
	if d <= 0 {
		return DefaultPollInterval
	}
	return d
}

// CallTimeout returns the evaluatee call timeout.
func CallTimeout(cfg model.RunConfig) time.Duration {
	return utils.ParseDuration(cfg.Evaluatee.Timeout, DefaultCallTimeout)
}

// Backoff returns the initial and maximum retry backoff.
func Backoff(cfg model.RunConfig) (initial, max time.Duration) {
	return utils.ParseDuration(cfg.Worker.InitialBackoff, DefaultInitialBackoff),
		utils.ParseDuration(cfg.Worker.MaxBackoff, DefaultMaxBackoff)
}
