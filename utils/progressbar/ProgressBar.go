// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// ProgressBar implement progress bar functionality that must be
// manually managed. That is, the Display() function must be called
// whenever an updated progress bar should be printed. The progress bar
// may be incremented and displayed from many goroutines.
type ProgressBar struct {
	mu              sync.Mutex
	width           int
	maxProgress     int
	currentProgress int
	bar             strings.Builder
	out             io.Writer
	clock           clock.PassiveClock
	startTime       time.Time
}

// New returns a new ProgressBar that is width characters wide, reaches
// 100% after max calls to Increment() and prints to out
func New(out io.Writer, width, max int, clk clock.PassiveClock) *ProgressBar {
	if clk == nil {
		clk = clock.RealClock{}
	}
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		width:       width,
		maxProgress: max,
		out:         out,
		clock:       clk,
		startTime:   clk.Now(),
	}
}

// Increment increments the interal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// String returns the current progress bar
func (p *ProgressBar) String() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.render()
}

func (p *ProgressBar) render() string {
	p.bar.Reset()
	p.bar.WriteString("|")

	filled := p.currentProgress * p.width / p.maxProgress
	p.bar.WriteString(strings.Repeat("█", filled))
	p.bar.WriteString(strings.Repeat(" ", p.width-filled))

	percent := float64(p.currentProgress) / float64(p.maxProgress) * 100
	elapsed := p.clock.Since(p.startTime).Truncate(time.Second)
	fmt.Fprintf(&p.bar, "| [%.2f%% | elapsed: %v]", percent, elapsed)
	return p.bar.String()
}

// Display redraws the progress bar on the current line
func (p *ProgressBar) Display() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, "\n\033[1A\033[K%v", p.render())
}

// Close moves past the progress bar so that later output starts on a
// new line
func (p *ProgressBar) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out)
}
