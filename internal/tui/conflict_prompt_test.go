package tui

import (
	"bytes"
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanSnow/skill-manager/internal/conflict"
)

func sampleConflict() conflict.Conflict {
	return conflict.Conflict{
		Key:        "linter@company",
		Base:       conflict.Declaration{Plugin: "linter", Marketplace: "company", Pin: conflict.Pin{Tag: "v4.0.0"}},
		Other:      conflict.Declaration{Plugin: "linter", Marketplace: "company", Pin: conflict.Pin{Tag: "v4.1.1"}},
		BaseLayer:  "global",
		OtherLayer: "project",
	}
}

func press(t *testing.T, m ConflictModel, msgs ...tea.KeyMsg) ConflictModel {
	t.Helper()
	var model tea.Model = m
	for _, msg := range msgs {
		model, _ = model.Update(msg)
	}
	out, ok := model.(ConflictModel)
	require.True(t, ok)
	return out
}

func TestConflictModelSelect(t *testing.T) {
	m := NewConflictModel(sampleConflict())
	assert.Equal(t, conflict.Aborted, m.Decision())

	m = press(t, m, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, conflict.Skipped, m.Decision())
	assert.Empty(t, m.View())
}

func TestConflictModelCursorBounds(t *testing.T) {
	m := NewConflictModel(sampleConflict())
	m = press(t, m, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 0, m.cursor)

	m = press(t, m,
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}},
		tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'j'}},
	)
	assert.Equal(t, 2, m.cursor)
}

func TestConflictModelShortcuts(t *testing.T) {
	tests := []struct {
		name string
		msg  tea.KeyMsg
		want conflict.Decision
	}{
		{"adopt", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'a'}}, conflict.Adopted},
		{"skip", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}}, conflict.Skipped},
		{"quit", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}}, conflict.Aborted},
		{"escape", tea.KeyMsg{Type: tea.KeyEsc}, conflict.Aborted},
		{"interrupt", tea.KeyMsg{Type: tea.KeyCtrlC}, conflict.Aborted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := press(t, NewConflictModel(sampleConflict()), tt.msg)
			assert.Equal(t, tt.want, m.Decision())
		})
	}
}

func TestConflictModelView(t *testing.T) {
	view := NewConflictModel(sampleConflict()).View()
	assert.Contains(t, view, "v4.0.0")
	assert.Contains(t, view, "v4.1.1")
	assert.Contains(t, view, "global")
}

func TestPromptDecide(t *testing.T) {
	p := &Prompt{In: bytes.NewBufferString("a"), Out: &bytes.Buffer{}}
	d, err := p.Decide(context.Background(), sampleConflict())
	require.NoError(t, err)
	assert.Equal(t, conflict.Adopted, d)
}

func TestDeciderWithoutTerminal(t *testing.T) {
	d := Decider(conflict.PreferOther)
	got, err := d.Decide(context.Background(), sampleConflict())
	require.NoError(t, err)
	assert.Equal(t, conflict.Adopted, got)
}
