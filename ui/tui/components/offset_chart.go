package components

import (
	"fmt"

	"github.com/NimbleMarkets/ntcharts/canvas"
	"github.com/NimbleMarkets/ntcharts/linechart"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"timestick/ui/tui/styles"
)

// OffsetChart plots the time-sync offset history in nanoseconds.
type OffsetChart struct {
	Chart   linechart.Model
	History []float64
	Width   int
	Height  int
}

func NewOffsetChart(width, height int) *OffsetChart {
	return &OffsetChart{
		Chart:  linechart.New(width, height, 0, 1, -1, 1),
		Width:  width,
		Height: height,
	}
}

func (c *OffsetChart) Init() tea.Cmd {
	return nil
}

// SetSeries replaces the plotted points, oldest first.
func (c *OffsetChart) SetSeries(offsets []int64) {
	c.History = c.History[:0]
	for _, v := range offsets {
		c.History = append(c.History, float64(v))
	}
}

func (c *OffsetChart) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return c, nil
}

func (c *OffsetChart) Resize(w, h int) {
	c.Width = w
	c.Height = h
}

// bounds pads the y range so a flat series still draws inside the frame.
func (c *OffsetChart) bounds() (lo, hi float64) {
	if len(c.History) == 0 {
		return -1, 1
	}
	lo, hi = c.History[0], c.History[0]
	for _, v := range c.History[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	pad := (hi - lo) * 0.1
	if pad == 0 {
		pad = 1
	}
	return lo - pad, hi + pad
}

func (c *OffsetChart) View() string {
	lo, hi := c.bounds()
	maxX := float64(max(len(c.History)-1, 1))
	// Range changes with every sample, so the chart is rebuilt.
	c.Chart = linechart.New(c.Width, c.Height, 0, maxX, lo, hi)
	for i := 0; i < len(c.History)-1; i++ {
		c.Chart.DrawBrailleLine(
			canvas.Float64Point{X: float64(i), Y: c.History[i]},
			canvas.Float64Point{X: float64(i + 1), Y: c.History[i+1]},
		)
	}
	c.Chart.DrawXYAxisAndLabel()

	title := "Offset History"
	if n := len(c.History); n > 0 {
		title = fmt.Sprintf("Offset History (last %.0f ns)", c.History[n-1])
	}
	return styles.CardStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			lipgloss.NewStyle().Bold(true).Render(title),
			c.Chart.View(),
		),
	)
}

var _ Component = (*OffsetChart)(nil)
