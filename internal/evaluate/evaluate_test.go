package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-eval-harness/internal/model"
)

func testUnit(t *testing.T, raw string) model.Unit {
	t.Helper()
	var rec model.Record
	require.NoError(t, json.Unmarshal([]byte(raw), &rec))
	return model.Unit{
		ID:          "ds#0/0",
		Dataset:     "ds",
		Item:        rec,
		Attachments: rec.Attachments,
		Criteria:    model.CriteriaFor(rec),
	}
}

func TestHTTPEvaluateeInvoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "secret", r.Header.Get("X-Token"))

		var req invokeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "what is 6*7?", req.Input)
		assert.Equal(t, []interface{}{"table.csv"}, req.Attachments)

		_, _ = io.WriteString(w, `{"output": "42"}`)
	}))
	defer srv.Close()

	e := &HTTPEvaluatee{URL: srv.URL, InputField: "question", Headers: map[string]string{"X-Token": "secret"}}
	unit := testUnit(t, `{"status":"ACTIVE","expected_output":"42","question":"what is 6*7?","attachments":["table.csv"]}`)

	out, err := e.Invoke(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, "42", out)
}

func TestHTTPEvaluateeStatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		retryable bool
	}{
		{"server error", http.StatusServiceUnavailable, true},
		{"rate limited", http.StatusTooManyRequests, true},
		{"bad request", http.StatusBadRequest, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.code)
			}))
			defer srv.Close()

			e := &HTTPEvaluatee{URL: srv.URL, InputField: "input"}
			_, err := e.Invoke(context.Background(), testUnit(t, `{"status":"ACTIVE","expected_output":"","input":"x"}`))

			var se *StatusError
			require.ErrorAs(t, err, &se)
			assert.Equal(t, tt.code, se.StatusCode)
			assert.Equal(t, tt.retryable, se.Retryable())
		})
	}
}

func TestHTTPEvaluateeMissingInput(t *testing.T) {
	e := &HTTPEvaluatee{URL: "http://127.0.0.1:1", InputField: "input"}
	_, err := e.Invoke(context.Background(), testUnit(t, `{"status":"ACTIVE","expected_output":"1"}`))

	var ie *InvalidUnitError
	require.ErrorAs(t, err, &ie)
	assert.False(t, ie.Retryable())
	assert.True(t, errors.Is(err, model.ErrMissingField))
}

func TestExactMatch(t *testing.T) {
	ctx := context.Background()
	unit := testUnit(t, `{"status":"ACTIVE","expected_output":"Paris"}`)

	v, err := ExactMatch{}.Score(ctx, unit, " Paris\n")
	require.NoError(t, err)
	assert.Equal(t, model.EvalStatusPassed, v.Status)
	assert.Equal(t, 1.0, v.Score)

	v, err = ExactMatch{}.Score(ctx, unit, "paris")
	require.NoError(t, err)
	assert.Equal(t, model.EvalStatusFailed, v.Status)

	v, err = ExactMatch{IgnoreCase: true}.Score(ctx, unit, "paris")
	require.NoError(t, err)
	assert.Equal(t, model.EvalStatusPassed, v.Status)

	numeric := testUnit(t, `{"status":"ACTIVE","expected_output":42}`)
	v, err = ExactMatch{}.Score(ctx, numeric, "42")
	require.NoError(t, err)
	assert.Equal(t, model.EvalStatusPassed, v.Status)
}

func TestExactMatchWithoutReference(t *testing.T) {
	for _, raw := range []string{
		`{"status":"ACTIVE","expected_output":""}`,
		`{"status":"ACTIVE","expected_output":null}`,
		`{"status":"ACTIVE","expected_output":[]}`,
	} {
		v, err := ExactMatch{}.Score(context.Background(), testUnit(t, raw), "anything")
		require.NoError(t, err)
		assert.Equal(t, model.EvalStatusNotEvaluated, v.Status, raw)
		assert.Equal(t, "anything", v.Output)
	}
}

type stubEvaluatee struct {
	out string
	err error
}

func (s stubEvaluatee) Invoke(context.Context, model.Unit) (string, error) { return s.out, s.err }

func TestChainEvaluate(t *testing.T) {
	unit := testUnit(t, `{"status":"ACTIVE","expected_output":"42"}`)

	v, err := NewChain(stubEvaluatee{out: "42"}, ExactMatch{}, nil).Evaluate(context.Background(), unit)
	require.NoError(t, err)
	assert.Equal(t, model.EvalStatusPassed, v.Status)
	assert.Equal(t, "42", v.Output)

	boom := errors.New("connection refused")
	_, err = NewChain(stubEvaluatee{err: boom}, ExactMatch{}, nil).Evaluate(context.Background(), unit)
	assert.ErrorIs(t, err, boom)

	judgeDown := errors.New("judge unavailable")
	v, err = NewChain(stubEvaluatee{out: "41"}, failingEvaluator{err: judgeDown}, nil).Evaluate(context.Background(), unit)
	assert.ErrorIs(t, err, judgeDown)
	assert.Equal(t, "41", v.Output)
}

type failingEvaluator struct{ err error }

func (f failingEvaluator) Score(context.Context, model.Unit, string) (model.Verdict, error) {
	return model.Verdict{}, f.err
}

func TestNewSelectsEvaluator(t *testing.T) {
	cfg := model.RunConfig{
		Evaluatee: model.EvaluateeConfig{URL: "http://localhost:8080/answer", InputField: "input"},
		Evaluator: model.EvaluatorConfig{Kind: "exact", RequestsPerSecond: 2},
	}
	c, err := New(cfg)
	require.NoError(t, err)
	assert.IsType(t, ExactMatch{}, c.evaluator)
	require.NotNil(t, c.limiter)

	cfg.Evaluator = model.EvaluatorConfig{Kind: "llm", Model: "gpt-4o-mini", APIKeyEnv: "EVALHARNESS_TEST_KEY"}
	t.Setenv("EVALHARNESS_TEST_KEY", "")
	_, err = New(cfg)
	assert.ErrorContains(t, err, "EVALHARNESS_TEST_KEY")

	t.Setenv("EVALHARNESS_TEST_KEY", "sk-test")
	c, err = New(cfg)
	require.NoError(t, err)
	assert.IsType(t, &LLMJudge{}, c.evaluator)
	assert.Nil(t, c.limiter)

	cfg.Evaluator.Kind = "regex"
	_, err = New(cfg)
	assert.Error(t, err)
}
