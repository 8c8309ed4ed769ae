package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"zipshelf/internal/archive"
	"zipshelf/internal/jobs"
	"zipshelf/internal/model"
)

type archiveEventMsg model.Event

type archiveDoneMsg struct {
	outcome jobs.Outcome
	err     error
}

// progressModel is the single-bar program shown by `zip --ui tui`.
type progressModel struct {
	label   string
	bar     progress.Model
	percent int
	done    bool
	err     error
}

func newProgressModel(label string) progressModel {
	return progressModel{
		label: label,
		bar:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = clampInt(msg.Width-len(m.label)-12, 10, 60)
		return m, nil
	case archiveEventMsg:
		switch msg.Kind {
		case model.EventProgress:
			if msg.Percent > m.percent {
				m.percent = msg.Percent
			}
		case model.EventComplete:
			m.percent = 100
		}
		return m, nil
	case archiveDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// The archive cannot be cancelled; only the display stops.
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(m.bar.ViewAs(float64(m.percent) / 100))
	fmt.Fprintf(&b, " %3d%%  %s\n", m.percent, m.label)
	if m.done && m.err != nil {
		b.WriteString(errorStyle.Render("failed: "+m.err.Error()) + "\n")
	}
	return b.String()
}

// runWithProgressProgram runs the archive next to a bubbletea progress bar.
// Observer callbacks are forwarded into the program as messages.
func runWithProgressProgram(label string, run func(archive.Observer) (jobs.Outcome, error)) (jobs.Outcome, error) {
	p := tea.NewProgram(newProgressModel(label))

	var (
		outcome jobs.Outcome
		runErr  error
		g       errgroup.Group
	)
	g.Go(func() error {
		_, err := p.Run()
		return err
	})
	g.Go(func() error {
		outcome, runErr = run(archive.EventObserver(func(ev model.Event) {
			p.Send(archiveEventMsg(ev))
		}))
		p.Send(archiveDoneMsg{outcome: outcome, err: runErr})
		return nil
	})
	if err := g.Wait(); err != nil && runErr == nil {
		return outcome, fmt.Errorf("progress display: %w", err)
	}
	return outcome, runErr
}
