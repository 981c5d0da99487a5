package evaluate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/template"

	"github.com/sashabaranov/go-openai"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
	"go-eval-harness/pkg/utils"
)

const defaultPassThreshold = 0.5

var (
	judgePrompt = `{{.Instructions}}

Reply with a single JSON object and nothing else:
{"score": <number between 0 and 1>, "passed": <true|false>, "rationale": "<one or two sentences>"}

Question: {{.Input}}
{{- if .HasReference}}
Reference answer: {{.Reference}}
{{- end}}
Answer to grade: {{.Output}}
`
	judgePromptTemplate = template.Must(template.New("judgePrompt").Parse(judgePrompt))
)

type judgePromptData struct {
	Instructions string
	Input        string
	HasReference bool
	Reference    string
	Output       string
}

type judgeReply struct {
	Score     interface{} `json:"score"`
	Passed    *bool       `json:"passed"`
	Rationale string      `json:"rationale"`
}

// LLMJudge grades answers with an OpenAI-compatible chat model.
type LLMJudge struct {
	client        *openai.Client
	model         string
	inputField    string
	temperature   float32
	passThreshold float64
}

// NewLLMJudge creates a judge. baseURL may point at any OpenAI-compatible server.
// Recognized options: temperature, pass_threshold.
func NewLLMJudge(apiKey, baseURL, modelName, inputField string, options map[string]interface{}) *LLMJudge {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	j := &LLMJudge{
		client:        openai.NewClientWithConfig(cfg),
		model:         modelName,
		inputField:    inputField,
		passThreshold: defaultPassThreshold,
	}
	if v, ok := options["temperature"]; ok {
		j.temperature = float32(utils.Numeric(v))
	}
	if v, ok := options["pass_threshold"]; ok {
		j.passThreshold = utils.Numeric(v)
	}
	return j
}

// Score implements Evaluator.
func (j *LLMJudge) Score(ctx context.Context, unit model.Unit, output string) (model.Verdict, error) {
	prompt, err := j.buildPrompt(unit, output)
	if err != nil {
		return model.Verdict{}, &InvalidUnitError{UnitID: unit.ID, Err: err}
	}

	req := openai.ChatCompletionRequest{
		Model:       j.model,
		Temperature: j.temperature,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	}
	resp, err := j.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return model.Verdict{}, classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return model.Verdict{}, fmt.Errorf("judge returned no choices")
	}
	logging.Default.Debugw("Judge replied", "unit", unit.ID, "finish_reason", resp.Choices[0].FinishReason)

	verdict, err := j.parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		return model.Verdict{}, err
	}
	verdict.Output = output
	return verdict, nil
}

func (j *LLMJudge) buildPrompt(unit model.Unit, output string) (string, error) {
	input, _ := unit.Field(j.inputField)
	data := judgePromptData{
		Instructions: unit.Criteria.Instructions,
		Input:        referenceText(input),
		HasReference: unit.Item.HasReference(),
		Reference:    referenceText(unit.Item.ExpectedOutput),
		Output:       output,
	}
	var buf bytes.Buffer
	if err := judgePromptTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("execute judge prompt template: %w", err)
	}
	return buf.String(), nil
}

// parseReply extracts the verdict object from the judge reply.
func (j *LLMJudge) parseReply(content string) (model.Verdict, error) {
	reply, err := firstJSONObject(content)
	if err != nil {
		return model.Verdict{}, err
	}

	score := utils.Numeric(reply.Score)
	passed := score >= j.passThreshold
	if reply.Passed != nil {
		passed = *reply.Passed
	}
	status := model.EvalStatusFailed
	if passed {
		status = model.EvalStatusPassed
	}
	return model.Verdict{
		Status:    status,
		Score:     score,
		Rationale: strings.TrimSpace(reply.Rationale),
	}, nil
}

// firstJSONObject decodes the first JSON object in content. Replies may wrap it in prose or
// code fences, and text after the object is ignored.
func firstJSONObject(content string) (judgeReply, error) {
	var lastErr error
	for i := strings.IndexByte(content, '{'); i >= 0; {
		var reply judgeReply
		err := json.NewDecoder(strings.NewReader(content[i:])).Decode(&reply)
		if err == nil {
			return reply, nil
		}
		if lastErr == nil {
			lastErr = err
		}
		next := strings.IndexByte(content[i+1:], '{')
		if next < 0 {
			break
		}
		i += next + 1
	}
	if lastErr != nil {
		return judgeReply{}, fmt.Errorf("decode judge reply: %w", lastErr)
	}
	return judgeReply{}, fmt.Errorf("no JSON object in judge reply: %q", truncate(content, 200))
}

// classifyOpenAIError maps HTTP failures onto StatusError so the retry policy can see the code.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode != 0 {
		return &StatusError{URL: "judge", StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode != 0 {
		return &StatusError{URL: "judge", StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("judge call failed: %w", err)
}
