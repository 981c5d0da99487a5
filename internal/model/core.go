package model

// DatasetConfig names one dataset source: a file holding a JSON array of records.
type DatasetConfig struct {
	Name string `yaml:"name" json:"name" validate:"required"`
}

// EvaluateeConfig describes how to invoke the system under test.
type EvaluateeConfig struct {
	URL        string            `yaml:"url" json:"url" validate:"required,url"`
	Timeout    string            `yaml:"timeout" json:"timeout"`         // e.g. "60s"
	InputField string            `yaml:"input_field" json:"input_field"` // record field sent as input
	Headers    map[string]string `yaml:"headers" json:"headers,omitempty"`
}

// EvaluatorConfig selects and configures the scorer. Options is passed through untouched.
type EvaluatorConfig struct {
	Kind              string                 `yaml:"kind" json:"kind" validate:"omitempty,oneof=llm exact"`
	Model             string                 `yaml:"model" json:"model"`
	BaseURL           string                 `yaml:"base_url" json:"base_url,omitempty" validate:"omitempty,url"`
	APIKeyEnv         string                 `yaml:"api_key_env" json:"api_key_env,omitempty"`
	RequestsPerSecond float64                `yaml:"requests_per_second" json:"requests_per_second" validate:"gte=0"`
	Options           map[string]interface{} `yaml:"options" json:"options,omitempty"`
}

// RunConfig defines an entire evaluation run
type RunConfig struct {
	Datasets       []DatasetConfig `yaml:"datasets" json:"datasets" validate:"required,min=1,dive"`
	NumRepetitions int             `yaml:"num_repetitions" json:"num_repetitions" validate:"gte=1"`
	MaxConcurrency int             `yaml:"max_concurrency" json:"max_concurrency" validate:"gte=1"`
	PollInterval   string          `yaml:"poll_interval" json:"poll_interval"` // e.g. "200ms"
	OutputDir      string          `yaml:"output_dir" json:"output_dir"`
	Ledger         string          `yaml:"ledger" json:"ledger"` // sqlite path, empty disables
	LogLevel       string          `yaml:"log_level" json:"log_level" validate:"omitempty,oneof=debug info warn error"`
	MetricsAddr    string          `yaml:"metrics_addr" json:"metrics_addr,omitempty"`
	Evaluatee      EvaluateeConfig `yaml:"evaluatee" json:"evaluatee"`
	Evaluator      EvaluatorConfig `yaml:"evaluator" json:"evaluator"`
	Worker         RetryConfig     `yaml:"worker" json:"worker"`
}
