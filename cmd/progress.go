package cmd

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/spaghettifunk/mapviewer/engine/math"
)

const progressWidth = 40

var (
	filledStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	labelStyle  = lipgloss.NewStyle().Bold(true)
)

// progressBar draws the aggregate fetch progress on a single terminal line.
// It satisfies systems.ProgressSink.
type progressBar struct {
	mu    sync.Mutex
	out   io.Writer
	label string
	last  int
	drawn bool
}

func newProgressBar(out io.Writer, label string) *progressBar {
	return &progressBar{out: out, label: label, last: -1}
}

func (p *progressBar) SetProgress(fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	filled := int(math.Clamp(fraction, 0, 1) * progressWidth)
	if filled == p.last {
		return
	}
	p.last = filled
	p.drawn = true
	fmt.Fprintf(p.out, "\r%s %s", labelStyle.Render(p.label), renderBar(filled, fraction))
}

// Done ends the progress line.
func (p *progressBar) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.drawn {
		fmt.Fprintln(p.out)
		p.drawn = false
	}
}

func renderBar(filled int, fraction float64) string {
	bar := filledStyle.Render(strings.Repeat("█", filled)) +
		emptyStyle.Render(strings.Repeat("░", progressWidth-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, math.Clamp(fraction, 0, 1)*100)
}
