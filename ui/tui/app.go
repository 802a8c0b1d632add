package tui

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/harmonica"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"timestick/internal/client"
	"timestick/internal/engine"
	"timestick/internal/output"
	"timestick/ui/tui/components"
	"timestick/ui/tui/state"
	"timestick/ui/tui/views"
)

const (
	maxConsoleLogs  = 200
	controlTimeout  = 10 * time.Second
	menuDashboard   = 0
	menuAlerts      = 1
	menuConsole     = 2
	menuStart       = 3
	menuStop        = 4
	chartHeight     = 8
	defaultChartLen = 60
)

// Backend is the running server as seen by the viewer.
type Backend interface {
	Updates() <-chan client.Update
	Start(ctx context.Context) (string, error)
	Stop(ctx context.Context) (string, error)
	RequestData() error
}

// MainModel is the Bubble Tea Model acting as the Controller
type MainModel struct {
	backend        Backend
	config         engine.Config
	state          state.AppState
	spinner        spinner.Model
	offsetChart    *components.OffsetChart
	menuCursor     int
	animCursor     float64
	velocity       float64
	spring         harmonica.Spring
	consoleScrollY int
	mouseX         int
	mouseY         int
	quitting       bool
	width          int
	height         int
}

// Messages
type TickMsg time.Time
type AnimateMsg time.Time
type UpdateMsg client.Update
type StreamClosedMsg struct{}
type ControlResultMsg struct {
	Message string
	Err     error
}

func InitialModel(backend Backend, cfg engine.Config) MainModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("44"))

	// Frequency 12 and damping 0.9 settle quickly without overshoot.
	spring := harmonica.NewSpring(harmonica.FPS(60), 12.0, 0.9)

	return MainModel{
		backend:     backend,
		config:      cfg,
		spinner:     s,
		offsetChart: components.NewOffsetChart(defaultChartLen, chartHeight),
		spring:      spring,
		state: state.AppState{
			CurrentPage: state.PageMenu,
		},
	}
}

func (m *MainModel) Init() tea.Cmd {
	zone.NewGlobal()
	return tea.Batch(
		m.spinner.Tick,
		tickCmd(),
		animateCmd(),
		waitForUpdate(m.backend.Updates()),
	)
}

// Commands
func tickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func animateCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*16, func(t time.Time) tea.Msg {
		return AnimateMsg(t)
	})
}

func waitForUpdate(ch <-chan client.Update) tea.Cmd {
	return func() tea.Msg {
		u, ok := <-ch
		if !ok {
			return StreamClosedMsg{}
		}
		return UpdateMsg(u)
	}
}

func controlCmd(fn func(context.Context) (string, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), controlTimeout)
		defer cancel()
		msg, err := fn(ctx)
		return ControlResultMsg{Message: msg, Err: err}
	}
}

func (m *MainModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		if err := m.backend.RequestData(); err != nil {
			return ControlResultMsg{Err: fmt.Errorf("refresh: %w", err)}
		}
		return nil
	}
}

func (m *MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case AnimateMsg:
		return m.handleAnimateMsg(msg)

	case tea.WindowSizeMsg:
		return m.handleWindowSizeMsg(msg)

	case TickMsg:
		return m, tickCmd()

	case UpdateMsg:
		return m.handleUpdateMsg(msg)

	case StreamClosedMsg:
		m.state.Connected = false
		return m, nil

	case ControlResultMsg:
		return m.handleControlResult(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m.handleMouseMsg(msg)
	}

	return m, nil
}

func (m *MainModel) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "s":
		return m, controlCmd(m.backend.Start)
	case "x":
		return m, controlCmd(m.backend.Stop)
	case "r":
		return m, m.refreshCmd()
	}

	if m.state.CurrentPage == state.PageMenu {
		switch msg.String() {
		case "up", "k":
			if m.menuCursor > 0 {
				m.menuCursor--
			}
		case "down", "j":
			if m.menuCursor < len(views.MenuOptions)-1 {
				m.menuCursor++
			}
		case "enter":
			return m, m.navigateTo(m.menuCursor)
		}
		return m, nil
	}

	if m.state.CurrentPage == state.PageConsole {
		switch msg.String() {
		case "up", "k":
			if m.consoleScrollY > 0 {
				m.consoleScrollY--
			}
		case "down", "j":
			m.consoleScrollY++
		}
	}

	if msg.String() == "b" || msg.String() == "esc" || msg.String() == "backspace" {
		m.state.CurrentPage = state.PageMenu
		m.consoleScrollY = 0
		return m, nil
	}

	return m, nil
}

// navigateTo opens a page or, for the control entries, returns the request.
func (m *MainModel) navigateTo(cursor int) tea.Cmd {
	switch cursor {
	case menuDashboard:
		m.state.CurrentPage = state.PageDashboard
	case menuAlerts:
		m.state.CurrentPage = state.PageAlerts
	case menuConsole:
		m.state.CurrentPage = state.PageConsole
	case menuStart:
		return controlCmd(m.backend.Start)
	case menuStop:
		return controlCmd(m.backend.Stop)
	}
	return nil
}

func (m *MainModel) handleAnimateMsg(msg AnimateMsg) (tea.Model, tea.Cmd) {
	m.animCursor, m.velocity = m.spring.Update(m.animCursor, m.velocity, float64(m.menuCursor))
	return m, animateCmd()
}

func (m *MainModel) handleWindowSizeMsg(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	if w := msg.Width - 8; w > 10 {
		m.offsetChart.Resize(w, chartHeight)
	}
	return m, nil
}

func (m *MainModel) handleUpdateMsg(msg UpdateMsg) (tea.Model, tea.Cmd) {
	next := waitForUpdate(m.backend.Updates())
	if msg.Err != nil {
		m.state.Connected = false
		m.state.Err = msg.Err
		return m, next
	}
	if msg.Report == nil {
		return m, next
	}

	r := *msg.Report
	m.state.Connected = true
	m.state.Err = nil
	m.state.Report = r
	m.state.View = output.BuildDashboard(r, m.config)
	m.state.LastUpdate = time.Now()
	m.offsetChart.SetSeries(r.History.PTPOffset)

	logLine := fmt.Sprintf("[%s] offset: %d ns | pps: %.3f ms | rx: %.2f Mb/s | tx: %.2f Mb/s | cpu: %.1f%%",
		m.state.LastUpdate.Format(time.TimeOnly),
		r.TimeSync.CurrentOffsetNs,
		r.Pulse.PulseIntervalMs,
		r.Network.RxRateMbps,
		r.Network.TxRateMbps,
		r.System.CPUUsage,
	)
	m.state.ConsoleLogs = append(m.state.ConsoleLogs, logLine)
	if len(m.state.ConsoleLogs) > maxConsoleLogs {
		m.state.ConsoleLogs = m.state.ConsoleLogs[1:]
	}
	return m, next
}

func (m *MainModel) handleControlResult(msg ControlResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		m.state.Notice = "Error: " + msg.Err.Error()
		return m, nil
	}
	m.state.Notice = msg.Message
	return m, m.refreshCmd()
}

func (m *MainModel) handleMouseMsg(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	m.mouseX = msg.X
	m.mouseY = msg.Y

	if msg.Action != tea.MouseActionRelease {
		return m, nil
	}
	switch m.state.CurrentPage {
	case state.PageMenu:
		for i := range views.MenuOptions {
			if zone.Get(views.MenuZone(i)).InBounds(msg) {
				m.menuCursor = i
				return m, m.navigateTo(i)
			}
		}
	case state.PageDashboard:
		switch {
		case zone.Get(views.ZoneStart).InBounds(msg):
			return m, controlCmd(m.backend.Start)
		case zone.Get(views.ZoneStop).InBounds(msg):
			return m, controlCmd(m.backend.Stop)
		case zone.Get(views.ZoneRefresh).InBounds(msg):
			return m, m.refreshCmd()
		}
	}
	return m, nil
}

func (m *MainModel) View() string {
	if m.quitting {
		return "Bye!\n"
	}

	switch m.state.CurrentPage {
	case state.PageDashboard:
		return views.RenderDashboard(m.state, m.spinner.View(), m.offsetChart.View())
	case state.PageAlerts:
		return views.RenderAlerts(m.state, m.width)
	case state.PageConsole:
		return views.RenderRawConsole(m.state, m.width, m.height, m.consoleScrollY)
	default:
		return views.RenderMenu(m.state, m.width, m.height, m.menuCursor, m.animCursor, m.mouseX, m.mouseY)
	}
}

// Start runs the viewer against a server until the user quits.
func Start(ctx context.Context, c *client.Client, cfg engine.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.Run(ctx)

	m := InitialModel(c, cfg)
	p := tea.NewProgram(
		&m,
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}
