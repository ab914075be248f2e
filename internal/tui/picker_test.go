package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/surfbox-dev/surfbox/internal/sandbox"
)

func testInstance(name string, status sandbox.Status) *sandbox.Instance {
	inst := &sandbox.Instance{
		Name:      name,
		Status:    status,
		Mode:      sandbox.ModeHeadless,
		CreatedAt: time.Now().Add(-90 * time.Minute),
	}
	inst.Ports.API = 39000
	return inst
}

func TestInstanceItemMethods(t *testing.T) {
	item := instanceItem{inst: testInstance("web", sandbox.StatusRunning)}

	t.Run("Title", func(t *testing.T) {
		if got := item.Title(); got != "web" {
			t.Errorf("Title() = %q, want %q", got, "web")
		}
	})

	t.Run("FilterValue", func(t *testing.T) {
		if got := item.FilterValue(); got != "web" {
			t.Errorf("FilterValue() = %q, want %q", got, "web")
		}
	})

	t.Run("Description", func(t *testing.T) {
		desc := item.Description()
		if !strings.Contains(desc, "✓") {
			t.Error("Description should contain running status icon")
		}
		if !strings.Contains(desc, "headless") {
			t.Error("Description should contain browser mode")
		}
		if !strings.Contains(desc, ":39000") {
			t.Error("Description should contain the API port")
		}
		if !strings.Contains(desc, "1h30m") {
			t.Error("Description should contain uptime")
		}
	})
}

func TestInstanceItemStatusIcons(t *testing.T) {
	tests := []struct {
		name string
		inst *sandbox.Instance
		icon string
	}{
		{"running", testInstance("a", sandbox.StatusRunning), "✓"},
		{"errored", testInstance("b", sandbox.StatusError), "✗"},
		{"stopped", testInstance("c", sandbox.StatusStopped), "●"},
	}

	lost := testInstance("d", sandbox.StatusRunning)
	lost.HeartbeatLost = true
	tests = append(tests, struct {
		name string
		inst *sandbox.Instance
		icon string
	}{"heartbeat-lost", lost, "⚠"})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			desc := instanceItem{inst: tt.inst}.Description()
			if !strings.Contains(desc, tt.icon) {
				t.Errorf("Description %q should contain %q", desc, tt.icon)
			}
		})
	}
}

func TestFormatUptime(t *testing.T) {
	stopped := testInstance("a", sandbox.StatusStopped)
	if got := formatUptime(stopped); got != "-" {
		t.Errorf("formatUptime(stopped) = %q, want -", got)
	}

	short := testInstance("b", sandbox.StatusRunning)
	short.CreatedAt = time.Now().Add(-30 * time.Second)
	if got := formatUptime(short); !strings.HasSuffix(got, "s") {
		t.Errorf("formatUptime(30s old) = %q, want seconds form", got)
	}
}

func TestModelKeyHandling(t *testing.T) {
	instances := []*sandbox.Instance{
		testInstance("web", sandbox.StatusRunning),
		testInstance("work", sandbox.StatusRunning),
	}

	t.Run("enter selects status", func(t *testing.T) {
		m := NewPicker(instances)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
		result := updated.(Model).Result()
		if result.Action != ActionStatus {
			t.Errorf("Action = %v, want ActionStatus", result.Action)
		}
		if result.Instance == nil || result.Instance.Name != "web" {
			t.Errorf("Instance = %+v, want web", result.Instance)
		}
	})

	t.Run("d selects down", func(t *testing.T) {
		m := NewPicker(instances)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'d'}})
		result := updated.(Model).Result()
		if result.Action != ActionDown {
			t.Errorf("Action = %v, want ActionDown", result.Action)
		}
	})

	t.Run("q quits", func(t *testing.T) {
		m := NewPicker(instances)
		updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
		result := updated.(Model).Result()
		if result.Action != ActionQuit {
			t.Errorf("Action = %v, want ActionQuit", result.Action)
		}
	})

	t.Run("window resize", func(t *testing.T) {
		m := NewPicker(instances)
		updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
		if updated.(Model).width != 100 {
			t.Error("resize not applied")
		}
	})
}
