package evaluate

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-eval-harness/internal/model"
)

func chatServer(t *testing.T, reply string, prompts chan<- string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if prompts != nil && len(req.Messages) > 0 {
			prompts <- req.Messages[0].Content
		}

		resp := openai.ChatCompletionResponse{
			ID:     "chatcmpl-1",
			Object: "chat.completion",
			Model:  req.Model,
			Choices: []openai.ChatCompletionChoice{{
				Index:        0,
				Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: reply},
				FinishReason: openai.FinishReasonStop,
			}},
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestLLMJudgeScore(t *testing.T) {
	prompts := make(chan string, 1)
	srv := chatServer(t, "```json\n{\"score\": 0.9, \"passed\": true, \"rationale\": \" matches \"}\n```", prompts)
	defer srv.Close()

	judge := NewLLMJudge("sk-test", srv.URL+"/v1", "judge-model", "input", nil)
	unit := testUnit(t, `{"status":"ACTIVE","expected_output":"42","input":"6*7?"}`)

	v, err := judge.Score(context.Background(), unit, "forty-two")
	require.NoError(t, err)
	assert.Equal(t, model.EvalStatusPassed, v.Status)
	assert.Equal(t, 0.9, v.Score)
	assert.Equal(t, "matches", v.Rationale)
	assert.Equal(t, "forty-two", v.Output)

	prompt := <-prompts
	assert.Contains(t, prompt, model.CriteriaWithReference.Instructions)
	assert.Contains(t, prompt, "Question: 6*7?")
	assert.Contains(t, prompt, "Reference answer: 42")
	assert.Contains(t, prompt, "Answer to grade: forty-two")
}

func TestLLMJudgePromptWithoutReference(t *testing.T) {
	judge := NewLLMJudge("", "http://unused", "m", "input", nil)
	unit := testUnit(t, `{"status":"ACTIVE","expected_output":"","input":"summarize"}`)

	prompt, err := judge.buildPrompt(unit, "summary")
	require.NoError(t, err)
	assert.Contains(t, prompt, model.CriteriaWithoutReference.Instructions)
	assert.NotContains(t, prompt, "Reference answer")
}

func TestLLMJudgeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, `{"error": {"message": "overloaded", "type": "server_error"}}`)
	}))
	defer srv.Close()

	judge := NewLLMJudge("sk-test", srv.URL+"/v1", "m", "input", nil)
	_, err := judge.Score(context.Background(), testUnit(t, `{"status":"ACTIVE","expected_output":"1","input":"q"}`), "1")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusInternalServerError, se.StatusCode)
	assert.True(t, se.Retryable())
}

func TestParseReply(t *testing.T) {
	judge := NewLLMJudge("", "http://unused", "m", "input", map[string]interface{}{"pass_threshold": 0.7})

	tests := []struct {
		name    string
		content string
		status  model.EvalStatus
		score   float64
		wantErr bool
	}{
		{"score above threshold", `{"score": "0.8"}`, model.EvalStatusPassed, 0.8, false},
		{"score below threshold", `{"score": 0.6}`, model.EvalStatusFailed, 0.6, false},
		{"explicit passed wins", `{"score": 0.2, "passed": true}`, model.EvalStatusPassed, 0.2, false},
		{"prose around object", `Verdict: {"score": 1, "passed": false} done`, model.EvalStatusFailed, 1, false},
		{"braces after object", `Verdict: {"score":1,"passed":true,"rationale":"ok"} (format was {"score": n})`, model.EvalStatusPassed, 1, false},
		{"braces before object", `Using {score} format: {"score": 0.9}`, model.EvalStatusPassed, 0.9, false},
		{"code fence", "```json\n{\"score\": 0.1}\n```", model.EvalStatusFailed, 0.1, false},
		{"no object", `looks good to me`, "", 0, true},
		{"broken object", `{"score": }`, "", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := judge.parseReply(tt.content)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.status, v.Status)
			assert.InDelta(t, tt.score, v.Score, 1e-9)
		})
	}
}
