package archive

import (
	"fmt"
	"io"
	"math"
	"strings"
	"sync"
	"time"
)

// LiveProgress is an Observer that redraws a single status line on a
// ticker. It is meant for terminals that do not run the TUI.
type LiveProgress struct {
	out   io.Writer
	index int
	total int
	label string

	mu      sync.Mutex
	pct     int
	started time.Time
	now     func() time.Time
	done    bool

	stop     chan struct{}
	loopDone chan struct{}
	stopOnce sync.Once
}

func NewLiveProgress(out io.Writer, index, total int, label string) *LiveProgress {
	return &LiveProgress{
		out:   out,
		index: index,
		total: total,
		label: label,
		now:   time.Now,
		stop:  make(chan struct{}),
	}
}

func (p *LiveProgress) Start() {
	p.mu.Lock()
	p.started = p.now()
	p.loopDone = make(chan struct{})
	loopDone := p.loopDone
	p.mu.Unlock()
	go func() {
		defer close(loopDone)
		t := time.NewTicker(700 * time.Millisecond)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				fmt.Fprintf(p.out, "\r\033[2K%s", p.render())
			}
		}
	}()
}

// Stop ends the redraw loop and prints final on its own line. Calling it
// more than once only prints the first time.
func (p *LiveProgress) Stop(final string) {
	p.stopOnce.Do(func() {
		close(p.stop)
		p.mu.Lock()
		loopDone := p.loopDone
		p.mu.Unlock()
		if loopDone != nil {
			<-loopDone
		}
		fmt.Fprintf(p.out, "\r\033[2K%s\n", final)
	})
}

func (p *LiveProgress) OnProgress(percent int) {
	p.mu.Lock()
	p.pct = percent
	p.mu.Unlock()
}

func (p *LiveProgress) OnComplete(string) {
	p.mu.Lock()
	p.pct = 100
	p.done = true
	p.mu.Unlock()
}

func (p *LiveProgress) render() string {
	p.mu.Lock()
	defer p.mu.Unlock()

	label := p.label
	if len(label) > 52 {
		label = label[:52] + "..."
	}

	parts := []string{}
	if p.total > 1 {
		parts = append(parts, fmt.Sprintf("[%d/%d]", p.index, p.total))
	}
	parts = append(parts, progressBar(p.pct, 24), fmt.Sprintf("%3d%%", p.pct))
	switch {
	case p.done:
		parts = append(parts, "finishing")
	case !p.started.IsZero():
		if eta := estimateETA(p.now().Sub(p.started), p.pct); eta != "" {
			parts = append(parts, "eta ~ "+eta)
		}
	}
	parts = append(parts, "| "+label)
	return strings.Join(parts, "  ")
}

func progressBar(pct, width int) string {
	if width <= 0 {
		return ""
	}
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := pct * width / 100
	return "[" + strings.Repeat("=", filled) + strings.Repeat(" ", width-filled) + "]"
}

// estimateETA extrapolates the remaining time linearly from elapsed and pct.
func estimateETA(elapsed time.Duration, pct int) string {
	if pct <= 0 || elapsed <= 0 {
		return ""
	}
	if pct >= 100 {
		return "0m"
	}
	remaining := elapsed.Seconds() * float64(100-pct) / float64(pct)
	return formatETASeconds(remaining)
}

func formatETASeconds(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	secs := int64(math.Round(seconds))
	if secs < 60 {
		return "<1m"
	}
	minutes := secs / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	remMinutes := minutes % 60
	if hours < 24 {
		if remMinutes == 0 {
			return fmt.Sprintf("%dh", hours)
		}
		return fmt.Sprintf("%dh %dm", hours, remMinutes)
	}
	days := hours / 24
	remHours := hours % 24
	if remHours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, remHours)
}
