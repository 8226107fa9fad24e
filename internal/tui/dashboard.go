package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zenevo/shirodhara/internal/device"
	"github.com/zenevo/shirodhara/internal/session"
)

// commandTimeout bounds each command sent from the dashboard
const commandTimeout = 10 * time.Second

// Source delivers session status updates.
type Source interface {
	Status() session.Status
	Subscribe() (<-chan session.Status, func())
}

// Commands is the set of user intents the dashboard can issue.
type Commands interface {
	SetParameters(ctx context.Context, p session.Parameters) error
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Cancel(ctx context.Context) error
	Reset()
}

type statusMsg session.Status

type feedClosedMsg struct{}

type commandDoneMsg struct {
	name string
	err  error
}

// field identifies the parameter being edited
type field int

const (
	fieldDuration field = iota
	fieldTemperature
)

type dashboardKeyMap struct {
	Next   key.Binding
	Inc    key.Binding
	Dec    key.Binding
	Apply  key.Binding
	Start  key.Binding
	Stop   key.Binding
	Cancel key.Binding
	Reset  key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k dashboardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Apply, k.Start, k.Stop, k.Cancel, k.Reset, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k dashboardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Next, k.Inc, k.Dec},
		{k.Apply, k.Start, k.Stop},
		{k.Cancel, k.Reset, k.Quit},
	}
}

func newKeyMap() dashboardKeyMap {
	return dashboardKeyMap{
		Next: key.NewBinding(
			key.WithKeys("tab", "shift+tab"),
			key.WithHelp("tab", "switch field"),
		),
		Inc: key.NewBinding(
			key.WithKeys("up", "right", "+", "k"),
			key.WithHelp("↑/+", "increase"),
		),
		Dec: key.NewBinding(
			key.WithKeys("down", "left", "-", "j"),
			key.WithHelp("↓/-", "decrease"),
		),
		Apply: key.NewBinding(
			key.WithKeys("enter", "h"),
			key.WithHelp("enter", "heat"),
		),
		Start: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "start"),
		),
		Stop: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "stop"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc", "c"),
			key.WithHelp("esc", "cancel"),
		),
		Reset: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reset"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// Model is the treatment dashboard.
type Model struct {
	ctx      context.Context
	commands Commands
	updates  <-chan session.Status

	status  session.Status
	params  session.Parameters
	focus   field
	pending string // command in flight
	lastErr string

	Width   int
	Height  int
	Spinner spinner.Model
	Help    help.Model
	Keys    dashboardKeyMap
}

// NewModel creates a dashboard showing updates and sending commands.
// params seeds the parameter editor.
func NewModel(ctx context.Context, status session.Status, updates <-chan session.Status, commands Commands, params session.Parameters) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	if params.Validate() != nil {
		params = session.DefaultParameters()
	}

	width, height := terminalSize()
	return Model{
		ctx:      ctx,
		commands: commands,
		updates:  updates,
		status:   status,
		params:   params,
		Width:    width,
		Height:   height,
		Spinner:  s,
		Help:     help.New(),
		Keys:     newKeyMap(),
	}
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.Spinner.Tick, waitForStatus(m.updates))
}

// waitForStatus blocks until the next status update.
func waitForStatus(updates <-chan session.Status) tea.Cmd {
	return func() tea.Msg {
		st, ok := <-updates
		if !ok {
			return feedClosedMsg{}
		}
		return statusMsg(st)
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = clampWidth(msg.Width)
		m.Height = msg.Height
		m.Help.Width = m.Width
		return m, nil

	case statusMsg:
		m.status = session.Status(msg)
		return m, waitForStatus(m.updates)

	case feedClosedMsg:
		return m, tea.Quit

	case commandDoneMsg:
		m.pending = ""
		if msg.err != nil {
			m.lastErr = msg.err.Error()
		} else {
			m.lastErr = ""
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Spinner, cmd = m.Spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.Keys.Next):
		if m.focus == fieldDuration {
			m.focus = fieldTemperature
		} else {
			m.focus = fieldDuration
		}

	case key.Matches(msg, m.Keys.Inc):
		m.params = adjust(m.params, m.focus, 1)

	case key.Matches(msg, m.Keys.Dec):
		m.params = adjust(m.params, m.focus, -1)

	case key.Matches(msg, m.Keys.Reset):
		m.commands.Reset()
		m.lastErr = ""
	}

	if m.pending != "" {
		return m, nil
	}

	switch {
	case key.Matches(msg, m.Keys.Apply):
		p := m.params
		return m.run("set_parameters", func(ctx context.Context) error {
			return m.commands.SetParameters(ctx, p)
		})
	case key.Matches(msg, m.Keys.Start):
		return m.run("start", m.commands.Start)
	case key.Matches(msg, m.Keys.Stop):
		return m.run("stop", m.commands.Stop)
	case key.Matches(msg, m.Keys.Cancel):
		return m.run("cancel", m.commands.Cancel)
	}

	return m, nil
}

// run marks name as pending and returns a command executing fn.
func (m Model) run(name string, fn func(context.Context) error) (tea.Model, tea.Cmd) {
	m.pending = name
	parent := m.ctx
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, commandTimeout)
		defer cancel()
		return commandDoneMsg{name: name, err: fn(ctx)}
	}
}

// adjust steps the focused parameter, clamped to the accepted range.
// Duration moves in 5 minute steps.
func adjust(p session.Parameters, f field, dir int) session.Parameters {
	switch f {
	case fieldDuration:
		p.DurationMinutes = clamp(p.DurationMinutes+5*dir, session.MinDurationMinutes, session.MaxDurationMinutes)
	case fieldTemperature:
		p.TemperatureCelsius = clamp(p.TemperatureCelsius+dir, session.MinTemperatureCelsius, session.MaxTemperatureCelsius)
	}
	return p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Parameters returns the parameters in the editor
func (m Model) Parameters() session.Parameters {
	return m.params
}

// View implements tea.Model
func (m Model) View() string {
	return renderContainer(m.renderContent(), m.Help.View(m.Keys), m.Width)
}

func (m Model) renderContent() string {
	var b strings.Builder

	kind := m.status.State.Kind.String()
	banner := m.status.State.Label()
	if m.status.State.Kind == session.KindHeating || m.pending != "" {
		banner = m.Spinner.View() + " " + banner
	}
	b.WriteString(StateBannerStyle(kind, m.Width).Render(banner))
	b.WriteString("\n\n")

	b.WriteString(row("Connection", m.connection()))
	b.WriteString(row("Temperature", m.temperature()))
	b.WriteString(row("Target", m.target()))
	b.WriteString("\n")

	b.WriteString(TitleStyle.Render("Parameters"))
	b.WriteString("\n")
	b.WriteString(m.paramRow("Duration", fmt.Sprintf("%d min", m.params.DurationMinutes), fieldDuration))
	b.WriteString(m.paramRow("Temperature", fmt.Sprintf("%d°C", m.params.TemperatureCelsius), fieldTemperature))

	if m.status.State == session.InProgress {
		b.WriteString("\n")
		remaining := m.status.Health.Remaining(m.params.DurationSeconds())
		b.WriteString(TimerStyle.Render("Remaining " + device.FormatRemaining(remaining)))
		b.WriteString("\n")
	}

	if m.pending != "" {
		b.WriteString("\n")
		b.WriteString(SubtleStyle.Render("Sending " + m.pending + "..."))
		b.WriteString("\n")
	}
	if m.lastErr != "" {
		b.WriteString("\n")
		b.WriteString(ErrorTextStyle.Render("✗ " + m.lastErr))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) connection() string {
	if m.status.Connected {
		return lipgloss.NewStyle().Foreground(SuccessColor).Render("● connected")
	}
	text := "○ disconnected"
	if m.status.LastError != "" {
		text += " (" + m.status.LastError + ")"
	}
	return lipgloss.NewStyle().Foreground(ErrorColor).Render(text)
}

func (m Model) temperature() string {
	if m.status.Health == nil {
		return "--"
	}
	return fmt.Sprintf("%.1f°C", m.status.Health.Temperature)
}

func (m Model) target() string {
	if m.status.Health == nil {
		return "--"
	}
	return fmt.Sprintf("%d°C", m.status.Health.TargetTemperature)
}

func (m Model) paramRow(label, value string, f field) string {
	style := ValueStyle
	marker := "  "
	if m.focus == f {
		style = FocusedValueStyle
		marker = "→ "
	}
	return LabelStyle.Render(marker+label) + style.Render(value) + "\n"
}

func row(label, value string) string {
	return LabelStyle.Render(label) + ValueStyle.Render(value) + "\n"
}
