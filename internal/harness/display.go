package harness

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/mattn/go-isatty"

	"go-eval-harness/internal/model"
	"go-eval-harness/pkg/logging"
)

// Display renders progress for a human. Implementations are called from one goroutine.
type Display interface {
	Render(s model.ProgressSnapshot)
	Finish(s model.ProgressSnapshot)
}

// NewDisplay draws a progress bar when f is a terminal and falls back to log lines otherwise.
func NewDisplay(f *os.File, desc string) Display {
	if f != nil && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())) {
		return NewBarDisplay(f, desc)
	}
	return &logDisplay{desc: desc, lastLogged: -1}
}

// BarDisplay redraws a single progress line in place.
type BarDisplay struct {
	mu   sync.Mutex
	w    io.Writer
	desc string
	bar  progress.Model
}

// NewBarDisplay creates a bar writing to w.
func NewBarDisplay(w io.Writer, desc string) *BarDisplay {
	return &BarDisplay{
		w:    w,
		desc: desc,
		bar:  progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

// Render redraws the bar.
func (d *BarDisplay) Render(s model.ProgressSnapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintf(d.w, "\r%s: %s %d/%d (failed %d)", d.desc, d.bar.ViewAs(ratio(s)), s.Completed, s.Total, s.Failed)
}

// Finish draws the final state and ends the line.
func (d *BarDisplay) Finish(s model.ProgressSnapshot) {
	d.Render(s)
	d.mu.Lock()
	defer d.mu.Unlock()
	fmt.Fprintln(d.w)
}

type logDisplay struct {
	desc       string
	lastLogged int64
}

func (d *logDisplay) Render(s model.ProgressSnapshot) {
	if s.Completed == d.lastLogged {
		return
	}
	d.lastLogged = s.Completed
	logging.Default.Infow(d.desc, "completed", s.Completed, "total", s.Total, "failed", s.Failed)
}

func (d *logDisplay) Finish(s model.ProgressSnapshot) {
	d.lastLogged = -1
	d.Render(s)
}

func ratio(s model.ProgressSnapshot) float64 {
	if s.Total <= 0 {
		return 1
	}
	return float64(s.Completed) / float64(s.Total)
}
