package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Dicklesworthstone/sysmoni/internal/broadcast"
	"github.com/Dicklesworthstone/sysmoni/internal/model"
)

// Refresher builds an unsmoothed snapshot on request.
type Refresher interface {
	OnDemand() model.Snapshot
}

// Model renders aggregated snapshots from the publish hub.
type Model struct {
	latest    model.Snapshot
	stream    <-chan model.Snapshot
	source    Refresher
	ctxCancel context.CancelFunc
	refreshed bool
	topN      int
	width     int
	height    int
}

func New(sub *broadcast.Subscription, source Refresher, cancel context.CancelFunc, topN int) *Model {
	return &Model{
		stream:    sub.C,
		source:    source,
		ctxCancel: cancel,
		topN:      topN,
		width:     120,
		height:    40,
	}
}

// Messages
type (
	tickMsg    struct{}
	refreshMsg model.Snapshot
)

func tickCmd() tea.Cmd { return tea.Tick(time.Second/5, func(time.Time) tea.Msg { return tickMsg{} }) }

func (m *Model) refreshCmd() tea.Cmd {
	return func() tea.Msg { return refreshMsg(m.source.OnDemand()) }
}

func (m *Model) Init() tea.Cmd { return tickCmd() }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.ctxCancel()
			return m, tea.Quit
		case "r":
			if m.source != nil {
				return m, m.refreshCmd()
			}
		}
	case refreshMsg:
		m.latest = model.Snapshot(msg)
		m.refreshed = true
	case tickMsg:
		select {
		case samp, ok := <-m.stream:
			if ok {
				m.latest = samp
				m.refreshed = false
			}
		default:
		}
		return m, tickCmd()
	}
	return m, nil
}

// Styles
var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("45"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("81")).Bold(true)
	gaugeFill   = "█"
	gaugeEmpty  = "░"
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("60")).
			Padding(0, 1).
			MarginRight(1)
)

func (m *Model) View() string {
	s := m.latest
	status := "smoothed"
	if m.refreshed {
		status = "manual refresh"
	}
	header := titleStyle.Render("sysmoni") + "  " +
		subtleStyle.Render(s.Timestamp.Format("Mon Jan 2 15:04:05 MST 2006")+"  ["+status+"]  q quit · r refresh")

	cpuCard := card("CPU", cpuBody(s.CPU))

	memPct := pct(s.Mem.Used, s.Mem.Total)
	memLines := []string{
		fmt.Sprintf("%s  %.1f/%.1f GiB", gaugeBar(memPct, 28), bytesToGiB(s.Mem.Used), bytesToGiB(s.Mem.Total)),
		fmt.Sprintf("avail %.1f GiB | swap %3.0f%%", bytesToGiB(s.Mem.Available), pct(s.Mem.SwapUsed, s.Mem.SwapTotal)),
	}
	if s.Mem.Cached != nil && s.Mem.Buffers != nil {
		memLines = append(memLines, fmt.Sprintf("cached %.1f GiB | buffers %.1f GiB", bytesToGiB(*s.Mem.Cached), bytesToGiB(*s.Mem.Buffers)))
	}
	memCard := card("Memory", strings.Join(memLines, "\n"))

	diskCard := card("Disk", diskBody(s.Disk))
	netCard := card("Network", netBody(s.Net))

	topTable := card("Top CPU (EMA)", renderTable(s.CPU.Top, m.topN))

	line1 := lipgloss.JoinHorizontal(lipgloss.Top, cpuCard, memCard)
	line2 := lipgloss.JoinHorizontal(lipgloss.Top, diskCard, netCard)

	return lipgloss.JoinVertical(lipgloss.Left, header, line1, line2, topTable)
}

func cpuBody(c model.CPU) string {
	temp := "n/a"
	if c.TempC != nil {
		temp = fmt.Sprintf("%.0f°C", *c.TempC)
	}
	lines := []string{
		gaugeBar(c.Global, 28),
		fmt.Sprintf("%d cores @ %.2f GHz  temp %s", c.Cores, c.FreqGHz, temp),
	}
	var row []string
	for i, v := range c.PerCore {
		row = append(row, fmt.Sprintf("%2d %s", i, miniBar(v, 8)))
		if len(row) == 4 {
			lines = append(lines, strings.Join(row, " "))
			row = nil
		}
	}
	if len(row) > 0 {
		lines = append(lines, strings.Join(row, " "))
	}
	return strings.Join(lines, "\n")
}

func diskBody(d model.Disk) string {
	var b strings.Builder
	if d.ReadBps != nil && d.WriteBps != nil {
		fmt.Fprintf(&b, "R/W: %s / %s\n", humanRate(*d.ReadBps), humanRate(*d.WriteBps))
	} else {
		b.WriteString("R/W: n/a\n")
	}
	for i, p := range d.Parts {
		if i == 6 {
			break
		}
		fmt.Fprintf(&b, "%-14s %-6s %5.1f%% of %.0f GiB\n",
			truncate(p.Mount, 14), truncate(p.FS, 6), pct(p.Used, p.Total), bytesToGiB(p.Total))
	}
	return strings.TrimRight(b.String(), "\n")
}

func netBody(ifaces []model.Interface) string {
	if len(ifaces) == 0 {
		return "no interfaces"
	}
	var b strings.Builder
	for i, n := range ifaces {
		if i == 6 {
			break
		}
		addr := "-"
		if len(n.IPv4) > 0 {
			addr = n.IPv4[0]
		}
		speed := ""
		if n.SpeedMbps != nil {
			speed = fmt.Sprintf(" %dMb/s", *n.SpeedMbps)
		}
		fmt.Fprintf(&b, "%-10s %-15s ↓%s ↑%s%s\n",
			truncate(n.Name, 10), addr, humanRate(n.RxBps), humanRate(n.TxBps), speed)
	}
	return strings.TrimRight(b.String(), "\n")
}

// Helpers
func gaugeBar(pct float64, width int) string {
	pct = clampPct(pct)
	return fmt.Sprintf("[%s] %5.1f%%", miniBar(pct, width), pct)
}

func miniBar(pct float64, width int) string {
	filled := int((clampPct(pct) / 100) * float64(width))
	if filled > width {
		filled = width
	}
	return strings.Repeat(gaugeFill, filled) + strings.Repeat(gaugeEmpty, width-filled)
}

func clampPct(pct float64) float64 {
	if pct < 0 {
		return 0
	}
	if pct > 100 {
		return 100
	}
	return pct
}

func card(title, body string) string {
	titleStr := labelStyle.Render(title)
	content := titleStr + "\n" + body
	return cardStyle.Render(content)
}

func renderTable(rows []model.Process, limit int) string {
	max := min(limit, len(rows))
	var b strings.Builder
	fmt.Fprintf(&b, "%-24s %-8s %-7s %-9s\n", "name", "pid", "cpu", "rss")
	for i := 0; i < max; i++ {
		r := rows[i]
		fmt.Fprintf(&b, "%-24s %-8d %6.1f%% %6.0f MiB\n",
			truncate(r.Name, 24), r.PID, r.CPU, float64(r.Mem)/(1024*1024))
	}
	return strings.TrimRight(b.String(), "\n")
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func pct(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(used) * 100 / float64(total)
}

func bytesToGiB(b uint64) float64 { return float64(b) / (1024 * 1024 * 1024) }

func humanRate(bps float64) string {
	switch {
	case bps >= 1<<30:
		return fmt.Sprintf("%.1f GiB/s", bps/(1<<30))
	case bps >= 1<<20:
		return fmt.Sprintf("%.1f MiB/s", bps/(1<<20))
	case bps >= 1<<10:
		return fmt.Sprintf("%.1f KiB/s", bps/(1<<10))
	default:
		return fmt.Sprintf("%.0f B/s", bps)
	}
}

// RunTUI starts the Bubble Tea program.
func RunTUI(m *Model) error {
	prog := tea.NewProgram(m, tea.WithAltScreen())
	_, err := prog.Run()
	return err
}
