package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	psutil "github.com/shirou/gopsutil/v3/cpu"
	psmem "github.com/shirou/gopsutil/v3/mem"

	"fmrhost/internal/fmr"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(lipgloss.Color("#FFFF00")).
			Padding(0, 2).
			Bold(true)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#4B5563")).
			Padding(0, 2)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#9CA3AF")).
			Padding(0, 1)

	deviceNameStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#60A5FA")).
			Bold(true)

	boundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#34D399"))

	unboundStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#9CA3AF")).
			Italic(true)

	copyNoticeStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#10B981")).
			Foreground(lipgloss.Color("#FFFFFF")).
			Padding(0, 2).
			Bold(true)
)

type tickMsg time.Time

type resourceMsg string

// model renders a live snapshot of an fmr.Context: its registry of
// attached devices, every module ever bound through it, and each
// device's last error.
type model struct {
	rt *fmr.Context

	width, height int
	devicesView   viewport.Model

	resourceLine string
	showCopied   bool
	err          error
}

func newModel(rt *fmr.Context) model {
	vp := viewport.New(80, 20)
	return model{rt: rt, devicesView: vp}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(tick(), updateResources())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func updateResources() tea.Cmd {
	return func() tea.Msg {
		cpuPercent, _ := psutil.Percent(0, false)
		memInfo, _ := psmem.VirtualMemory()
		var cpu float64
		if len(cpuPercent) > 0 {
			cpu = cpuPercent[0]
		}
		var mem float64
		if memInfo != nil {
			mem = memInfo.UsedPercent
		}
		return resourceMsg(fmt.Sprintf("CPU: %.1f%% | RAM: %.1f%%", cpu, mem))
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.devicesView.Width = msg.Width - 4
		m.devicesView.Height = msg.Height - 8
		m.devicesView.SetContent(m.renderDevices())
		return m, nil

	case tickMsg:
		m.devicesView.SetContent(m.renderDevices())
		return m, tea.Batch(tick(), updateResources())

	case resourceMsg:
		m.resourceLine = string(msg)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "c":
			if err := m.copyLastError(); err != nil {
				m.err = err
			} else {
				m.showCopied = true
			}
			return m, clearCopyNotice()
		default:
			var cmd tea.Cmd
			m.devicesView, cmd = m.devicesView.Update(msg)
			return m, cmd
		}

	case clearCopyMsg:
		m.showCopied = false
		return m, nil
	}

	return m, nil
}

type clearCopyMsg struct{}

func clearCopyNotice() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg { return clearCopyMsg{} })
}

// copyLastError copies the last error of the first attached device found
// to have one (devices are visited in no particular order) to the system
// clipboard, falling back to the context-level last error if no attached
// device has recorded one of its own.
func (m model) copyLastError() error {
	for _, dev := range m.rt.Registry.Devices() {
		if err := dev.LastError(); err != nil {
			return clipboard.WriteAll(fmt.Sprintf("%s: %s", dev.Name(), err))
		}
	}
	if err := m.rt.LastError(); err != nil {
		return clipboard.WriteAll(err.Error())
	}
	return clipboard.WriteAll("no error recorded")
}

func (m model) View() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("fmrmonitor") + "\n\n")
	b.WriteString(panelStyle.Render(m.devicesView.View()) + "\n")

	footer := m.resourceLine
	if footer == "" {
		footer = "collecting host stats..."
	}
	b.WriteString(footerStyle.Render(footer) + "\n")

	if m.showCopied {
		b.WriteString(copyNoticeStyle.Render("copied last error to clipboard") + "\n")
	} else if m.err != nil {
		b.WriteString(errorStyle.Render("clipboard: "+m.err.Error()) + "\n")
	}

	b.WriteString(helpStyle.Render("q quit  •  c copy last error"))
	return b.String()
}

func (m model) renderDevices() string {
	devices := m.rt.Registry.Devices()
	if len(devices) == 0 {
		return unboundStyle.Render("no devices attached")
	}

	modulesByDevice := make(map[*fmr.Device][]*fmr.Module)
	for _, mod := range m.rt.Modules() {
		if mod.Bound() {
			modulesByDevice[mod.Device()] = append(modulesByDevice[mod.Device()], mod)
		}
	}

	var b strings.Builder
	for _, dev := range devices {
		cfg := dev.Configuration()
		b.WriteString(deviceNameStyle.Render(fmt.Sprintf("%s  (identifier=0x%04X, version=%d)", cfg.Name, cfg.Identifier, cfg.Version)))
		b.WriteString("\n")

		mods := modulesByDevice[dev]
		if len(mods) == 0 {
			b.WriteString("  " + unboundStyle.Render("no modules bound") + "\n")
		}
		for _, mod := range mods {
			b.WriteString(fmt.Sprintf("  %s\n", boundStyle.Render(fmt.Sprintf("%s @ index %d", mod.Name(), mod.Index()))))
		}

		if err := dev.LastError(); err != nil {
			b.WriteString("  " + errorStyle.Render("last error: "+err.Error()) + "\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}
