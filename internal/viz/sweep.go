package viz

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/boundembed/internal/experiment"
)

type stepStartedMsg struct{ index, points int }

type stepFinishedMsg experiment.Step

// SweepDoneMsg ends the live view.
type SweepDoneMsg struct{ Err error }

type tickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// SweepModel is a Bubble Tea view of a running sweep.
type SweepModel struct {
	title   string
	total   int
	current int
	steps   []experiment.Step
	started time.Time
	frame   int
	done    bool
	err     error
	cancel  context.CancelFunc
}

// NewSweepModel returns a view for a sweep over total sizes. cancel is
// invoked when the user quits early.
func NewSweepModel(title string, total int, cancel context.CancelFunc) SweepModel {
	return SweepModel{title: title, total: total, current: -1, started: time.Now(), cancel: cancel}
}

func (m SweepModel) Init() tea.Cmd { return tick() }

func (m SweepModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
	case stepStartedMsg:
		m.current = msg.points
	case stepFinishedMsg:
		m.steps = append(m.steps, experiment.Step(msg))
		m.current = -1
	case SweepDoneMsg:
		m.done = true
		m.err = msg.Err
		return m, tea.Quit
	case tickMsg:
		if m.done {
			return m, nil
		}
		m.frame++
		return m, tick()
	}
	return m, nil
}

func (m SweepModel) View() string {
	var b strings.Builder

	b.WriteString(Title.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(ProgressBar(len(m.steps), m.total, 40))
	b.WriteString(fmt.Sprintf(" %d/%d  %s\n\n", len(m.steps), m.total, Subtle.Render(time.Since(m.started).Round(time.Second).String())))

	for _, s := range m.steps {
		if s.Err != nil {
			b.WriteString(fmt.Sprintf("  n=%-6d %s %s\n", s.Points, StatusFailed.Render("failed"), Subtle.Render(s.Err.Error())))
			continue
		}
		b.WriteString(fmt.Sprintf("  n=%-6d %s  iters=%-7d err=%.3e  %s\n",
			s.Points, StatusBadge(s.Status), s.Iterations, s.FinalError, Subtle.Render(s.Elapsed.Round(time.Millisecond).String())))
	}

	if m.current >= 0 && !m.done {
		b.WriteString(fmt.Sprintf("  n=%-6d %s\n", m.current, Spinner(m.frame)))
	}

	if len(m.steps) > 1 {
		errs := make([]float64, 0, len(m.steps))
		for _, s := range m.steps {
			if s.Err == nil {
				errs = append(errs, s.FinalError)
			}
		}
		b.WriteString("\n" + MetricLabel.Render("final error") + Sparkline(errs, 40) + "\n")
	}

	if m.err != nil {
		b.WriteString("\n" + StatusFailed.Render(m.err.Error()) + "\n")
	}
	b.WriteString("\n" + KeyHint.Render("q: stop") + "\n")
	return b.String()
}

// Steps returns the steps received so far.
func (m SweepModel) Steps() []experiment.Step {
	return m.steps
}

// ProgramObserver forwards sweep progress to a running Bubble Tea program.
type ProgramObserver struct {
	p *tea.Program
}

func NewProgramObserver(p *tea.Program) *ProgramObserver {
	return &ProgramObserver{p: p}
}

func (o *ProgramObserver) StepStarted(index, points int) {
	o.p.Send(stepStartedMsg{index: index, points: points})
}

func (o *ProgramObserver) StepFinished(step experiment.Step) {
	o.p.Send(stepFinishedMsg(step))
}
