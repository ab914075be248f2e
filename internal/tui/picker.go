// Package tui provides terminal user interface components for surfbox
package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

// Action represents the action to take after picker selection
type Action int

const (
	ActionNone Action = iota
	ActionStatus
	ActionDown
	ActionQuit
)

// PickerResult holds the result of the picker
type PickerResult struct {
	Action   Action
	Instance *sandbox.Instance
}

// instanceItem implements list.Item for instance display
type instanceItem struct {
	inst *sandbox.Instance
}

func (i instanceItem) Title() string {
	return i.inst.Name
}

func (i instanceItem) Description() string {
	icon := "●"
	switch {
	case i.inst.HeartbeatLost:
		icon = "⚠"
	case i.inst.Status == sandbox.StatusRunning:
		icon = "✓"
	case i.inst.Status == sandbox.StatusError:
		icon = "✗"
	}

	return fmt.Sprintf("%s %s | %s | api :%d | up %s",
		icon,
		i.inst.Status,
		i.inst.Mode,
		i.inst.Ports.API,
		formatUptime(i.inst),
	)
}

func (i instanceItem) FilterValue() string {
	return i.inst.Name
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			MarginBottom(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			MarginTop(1)

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)
)

// Model is the bubbletea model for the instance picker
type Model struct {
	list     list.Model
	result   PickerResult
	quitting bool
	width    int
	height   int
}

// NewPicker creates a new instance picker
func NewPicker(instances []*sandbox.Instance) Model {
	items := make([]list.Item, len(instances))
	for i, inst := range instances {
		items[i] = instanceItem{inst: inst}
	}

	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = selectedStyle
	delegate.Styles.SelectedDesc = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))

	l := list.New(items, delegate, 80, 20)
	l.Title = "Surfbox - Select Sandbox"
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = titleStyle

	return Model{list: l}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(msg.Width, msg.Height-4)
		return m, nil

	case tea.KeyMsg:
		// Don't handle keys if filtering
		if m.list.FilterState() == list.Filtering {
			break
		}

		switch msg.String() {
		case "enter":
			if item, ok := m.list.SelectedItem().(instanceItem); ok {
				m.result = PickerResult{
					Action:   ActionStatus,
					Instance: item.inst,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "d":
			if item, ok := m.list.SelectedItem().(instanceItem); ok {
				m.result = PickerResult{
					Action:   ActionDown,
					Instance: item.inst,
				}
				m.quitting = true
				return m, tea.Quit
			}

		case "q", "esc":
			m.result = PickerResult{Action: ActionQuit}
			m.quitting = true
			return m, tea.Quit
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	help := helpStyle.Render("[enter] Status  [d] Down  [/] Filter  [q] Quit")

	return m.list.View() + "\n" + help
}

// Result returns the picker result
func (m Model) Result() PickerResult {
	return m.result
}

// RunPicker runs the interactive instance picker
func RunPicker(instances []*sandbox.Instance) (PickerResult, error) {
	if len(instances) == 0 {
		return PickerResult{Action: ActionQuit}, nil
	}

	m := NewPicker(instances)
	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return PickerResult{}, err
	}

	return finalModel.(Model).Result(), nil
}
