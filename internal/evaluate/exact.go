package evaluate

import (
	"context"
	"encoding/json"
	"strings"

	"go-eval-harness/internal/model"
)

// Evaluator scores an evaluatee answer for a unit.
type Evaluator interface {
	Score(ctx context.Context, unit model.Unit, output string) (model.Verdict, error)
}

// ExactMatch passes answers equal to the expected output after trimming.
type ExactMatch struct {
	IgnoreCase bool
}

// Score implements Evaluator. Units without a reference are not evaluated.
func (m ExactMatch) Score(_ context.Context, unit model.Unit, output string) (model.Verdict, error) {
	if !unit.Item.HasReference() {
		return model.Verdict{Output: output, Status: model.EvalStatusNotEvaluated}, nil
	}

	want := strings.TrimSpace(referenceText(unit.Item.ExpectedOutput))
	got := strings.TrimSpace(output)
	equal := got == want
	if m.IgnoreCase {
		equal = strings.EqualFold(got, want)
	}

	if equal {
		return model.Verdict{Output: output, Status: model.EvalStatusPassed, Score: 1}, nil
	}
	return model.Verdict{
		Output:    output,
		Status:    model.EvalStatusFailed,
		Rationale: "expected " + want,
	}, nil
}

// referenceText renders an expected output for comparison or prompting.
func referenceText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(data)
	}
}
