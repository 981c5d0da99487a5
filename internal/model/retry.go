package model

// RetryConfig bounds the retries a worker makes inside a single unit.
// The queue itself never re-enqueues a unit.
type RetryConfig struct {
	MaxAttempts    int    `yaml:"max_attempts" json:"max_attempts" validate:"gte=0"`
	InitialBackoff string `yaml:"initial_backoff" json:"initial_backoff"` // e.g. "1s"
	MaxBackoff     string `yaml:"max_backoff" json:"max_backoff"`         // e.g. "30s"
}
