package harness

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"go-eval-harness/internal/model"
)

func TestBarDisplayRendersCounts(t *testing.T) {
	var buf bytes.Buffer
	d := NewBarDisplay(&buf, "Evaluating")

	d.Render(model.ProgressSnapshot{Total: 4, Completed: 1})
	d.Finish(model.ProgressSnapshot{Total: 4, Completed: 4, Failed: 1})

	out := buf.String()
	assert.Contains(t, out, "Evaluating: ")
	assert.Contains(t, out, "1/4")
	assert.Contains(t, out, "4/4 (failed 1)")
	assert.True(t, strings.HasSuffix(out, "\n"))
}

func TestNewDisplayFallsBackWithoutTerminal(t *testing.T) {
	d := NewDisplay(nil, "Evaluating")
	_, ok := d.(*logDisplay)
	assert.True(t, ok)
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, ratio(model.ProgressSnapshot{}))
	assert.Equal(t, 0.25, ratio(model.ProgressSnapshot{Total: 4, Completed: 1}))
}
