package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
)

// Unit renders a progress quantity.
type Unit func(int64) string

// UnitCount renders plain counts.
func UnitCount(n int64) string {
	return fmt.Sprintf("%d", n)
}

// UnitDuration renders nanoseconds as a duration rounded to 100ms.
func UnitDuration(n int64) string {
	return time.Duration(n).Round(100 * time.Millisecond).String()
}

// ProgressBar displays a single-line progress bar.
type ProgressBar struct {
	w       io.Writer
	title   string
	unit    Unit
	total   int64
	current int64
	suffix  string
	width   int
	mu      sync.Mutex
}

// NewProgressBar creates a new progress bar. A nil unit renders counts.
func NewProgressBar(w io.Writer, title string, unit Unit) *ProgressBar {
	if unit == nil {
		unit = UnitCount
	}
	return &ProgressBar{
		w:     w,
		title: title,
		unit:  unit,
		width: 30,
	}
}

// Update sets progress and redraws.
func (p *ProgressBar) Update(current, total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = current
	p.total = total
	p.render()
}

// SetSuffix sets text shown after the bar, such as a rate.
func (p *ProgressBar) SetSuffix(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.suffix = s
}

// Finish completes the progress bar.
func (p *ProgressBar) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current = p.total
	p.render()
	fmt.Fprintln(p.w)
}

func (p *ProgressBar) render() {
	var line string
	if p.total <= 0 {
		line = fmt.Sprintf("\r%s %s", p.title, p.unit(p.current))
	} else {
		percent := float64(p.current) / float64(p.total)
		if percent > 1 {
			percent = 1
		}
		filled := int(float64(p.width) * percent)
		bar := strings.Repeat("█", filled) + strings.Repeat("░", p.width-filled)
		line = fmt.Sprintf("\r%s [%s] %3.0f%% (%s/%s)",
			p.title, bar, percent*100, p.unit(p.current), p.unit(p.total))
	}
	if p.suffix != "" {
		line += " " + p.suffix
	}
	fmt.Fprint(p.w, line+"\033[K")
}
