package evaluate

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"golang.org/x/time/rate"

	"go-eval-harness/internal/config"
	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// Chain invokes the evaluatee and hands its answer to the evaluator.
type Chain struct {
	evaluatee Evaluatee
	evaluator Evaluator
	limiter   *rate.Limiter
}

// NewChain composes an evaluatee and an evaluator. A nil limiter means no pacing.
func NewChain(evaluatee Evaluatee, evaluator Evaluator, limiter *rate.Limiter) *Chain {
	return &Chain{evaluatee: evaluatee, evaluator: evaluator, limiter: limiter}
}

// Evaluate runs one unit through the evaluatee and the evaluator. When scoring fails the
// returned verdict still carries the evaluatee output.
func (c *Chain) Evaluate(ctx context.Context, unit model.Unit) (model.Verdict, error) {
	output, err := c.evaluatee.Invoke(ctx, unit)
	if err != nil {
		return model.Verdict{}, err
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return model.Verdict{Output: output}, err
		}
	}
	verdict, err := c.evaluator.Score(ctx, unit, output)
	if err != nil {
		return model.Verdict{Output: output}, err
	}
	return verdict, nil
}

// New builds the chain described by cfg.
func New(cfg model.RunConfig) (*Chain, error) {
	evaluatee := &HTTPEvaluatee{
		URL:        cfg.Evaluatee.URL,
		InputField: cfg.Evaluatee.InputField,
		Headers:    cfg.Evaluatee.Headers,
		Client:     &http.Client{Timeout: config.CallTimeout(cfg)},
	}

	var evaluator Evaluator
	switch cfg.Evaluator.Kind {
	case "exact":
		ignoreCase, _ := cfg.Evaluator.Options["ignore_case"].(bool)
		evaluator = ExactMatch{IgnoreCase: ignoreCase}
	case "llm", "":
		apiKey := os.Getenv(cfg.Evaluator.APIKeyEnv)
		if apiKey == "" && cfg.Evaluator.BaseURL == "" {
			return nil, fmt.Errorf("evaluator: %s is not set", cfg.Evaluator.APIKeyEnv)
		}
		evaluator = NewLLMJudge(apiKey, cfg.Evaluator.BaseURL, cfg.Evaluator.Model, cfg.Evaluatee.InputField, cfg.Evaluator.Options)
	default:
		return nil, fmt.Errorf("evaluator: unknown kind %q", cfg.Evaluator.Kind)
	}

	var limiter *rate.Limiter
	if rps := cfg.Evaluator.RequestsPerSecond; rps > 0 {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}

	logging.Default.Infow("Evaluation pipeline ready",
		"evaluatee", cfg.Evaluatee.URL, "evaluator", cfg.Evaluator.Kind, "model", cfg.Evaluator.Model)
	return NewChain(evaluatee, evaluator, limiter), nil
}
