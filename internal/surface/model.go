package surface

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"golang.design/x/clipboard"

	"github.com/codefionn/auswahl/internal/config"
	"github.com/codefionn/auswahl/internal/logger"
	"github.com/codefionn/auswahl/internal/protocol"
)

var (
	pickerItemStyle     = lipgloss.NewStyle().PaddingLeft(2)
	pickerSelectedStyle = lipgloss.NewStyle().PaddingLeft(0).Foreground(lipgloss.Color("170")).Bold(true)
)

// requestMsg delivers a client request through the program's message loop.
type requestMsg struct {
	req protocol.Request
}

// clipboardCopiedMsg reports the outcome of a copy-to-clipboard command.
type clipboardCopiedMsg struct {
	err error
}

// Model is the picker: a query input above a cursor-addressable choice list.
//
// Events are derived from state changes, not from key handlers: after every
// message the model diffs its input text and cursor position against the
// previous state and emits input_change and cursor_move accordingly. Enter
// emits select directly.
type Model struct {
	matcher protocol.MatcherKind
	events  chan<- protocol.Event

	input      textinput.Model
	choices    protocol.ChoiceSet
	maxVisible int
	width      int
	quitting   bool
}

// NewModel creates a picker model for one session.
func NewModel(cfg config.UIConfig, matcher protocol.MatcherKind, events chan<- protocol.Event) *Model {
	input := textinput.New()
	input.Placeholder = "Query..."
	input.Prompt = cfg.Prompt
	input.Focus()

	return &Model{
		matcher:    matcher,
		events:     events,
		input:      input,
		maxVisible: cfg.MaxVisible,
		width:      80,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	oldInput := m.input.Value()
	oldSelected := snapshotSelected(m.choices.Selected)

	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = inputWidth(msg.Width)

	case requestMsg:
		if quit := m.applyRequest(msg.req); quit {
			m.quitting = true
			return m, tea.Quit
		}

	case clipboardCopiedMsg:
		if msg.err != nil {
			logger.Warn("Clipboard copy failed: %v", msg.err)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		case "up":
			m.moveUp()
		case "down":
			m.moveDown()
		case "enter":
			m.emitSelection()
		case "ctrl+y":
			if choice, ok := m.choices.SelectedChoice(); ok {
				cmd = copyToClipboard(choice.Text)
			}
		default:
			m.input, cmd = m.input.Update(msg)
		}

	default:
		m.input, cmd = m.input.Update(msg)
	}

	m.emitChanges(oldInput, oldSelected)
	return m, cmd
}

// applyRequest mutates the model for one client request and reports whether
// the program should quit.
func (m *Model) applyRequest(req protocol.Request) bool {
	switch req := req.(type) {
	case protocol.StopRequest:
		return true

	case protocol.SetChoicesRequest:
		m.choices = req.Choices
		m.choices.Clamp()
		// Re-rank the fresh set against the query the user already typed.
		// The cursor stays where it is; positions matter, not identities.
		rescore(m.matcher, &m.choices, m.input.Value())

	case protocol.SetInputRequest:
		m.input.SetValue(req.Text)
	}

	return false
}

// emitChanges compares the model against its pre-update state and sends the
// resulting events. A fuzzy matcher additionally re-ranks the choices and
// pulls the cursor to the best match whenever the query text changed.
func (m *Model) emitChanges(oldInput string, oldSelected *int) {
	input := m.input.Value()

	if m.matcher == protocol.MatcherFuzzy && input != oldInput {
		rescore(m.matcher, &m.choices, input)
		if m.choices.IsEmpty() {
			m.choices.Selected = nil
		} else {
			m.choices.Selected = intPtr(0)
		}
	}

	if input != oldInput {
		m.emit(protocol.InputChangeEvent{Text: input})
	}

	if selectedChanged(oldSelected, m.choices.Selected) && m.choices.Selected != nil {
		m.emit(protocol.CursorMoveEvent{Index: *m.choices.Selected})
	}
}

// moveUp walks the cursor toward the top; stepping past the first entry
// clears the selection.
func (m *Model) moveUp() {
	switch {
	case m.choices.Selected == nil:
		if n := m.choices.Len(); n > 0 {
			m.choices.Selected = intPtr(n - 1)
		}
	case *m.choices.Selected == 0:
		m.choices.Selected = nil
	default:
		m.choices.Selected = intPtr(*m.choices.Selected - 1)
	}
}

// moveDown walks the cursor toward the bottom, stopping at the last entry.
func (m *Model) moveDown() {
	switch {
	case m.choices.Selected == nil:
		if !m.choices.IsEmpty() {
			m.choices.Selected = intPtr(0)
		}
	case *m.choices.Selected < m.choices.Len()-1:
		m.choices.Selected = intPtr(*m.choices.Selected + 1)
	}
}

// emitSelection reports the choice under the cursor, or an empty selection
// when no cursor is set. The picker stays open; closing is the client's call.
func (m *Model) emitSelection() {
	if m.choices.Selected == nil {
		m.emit(protocol.SelectEvent{ID: nil})
		return
	}

	choice, ok := m.choices.At(*m.choices.Selected)
	if !ok {
		logger.Error("Selection index %d is outside the choice set", *m.choices.Selected)
		m.choices.Selected = nil
		return
	}

	id := choice.ID
	m.emit(protocol.SelectEvent{ID: &id})
}

func (m *Model) emit(ev protocol.Event) {
	m.events <- ev
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.input.View())
	b.WriteString("\n")

	start, end := m.visibleRange()
	textWidth := itemWidth(m.width)
	for i := start; i < end; i++ {
		choice, ok := m.choices.At(i)
		if !ok {
			break
		}

		text := truncate.String(choice.Text, uint(textWidth))
		if m.choices.Selected != nil && *m.choices.Selected == i {
			b.WriteString(pickerSelectedStyle.Render(fmt.Sprintf("▸ %s", text)))
		} else {
			b.WriteString(pickerItemStyle.Render(text))
		}
		b.WriteString("\n")
	}

	return b.String()
}

// visibleRange returns the window of choices to render, scrolled so the
// cursor stays in view.
func (m *Model) visibleRange() (int, int) {
	n := m.choices.Len()
	if m.maxVisible <= 0 || n <= m.maxVisible {
		return 0, n
	}

	start := 0
	if m.choices.Selected != nil {
		start = *m.choices.Selected - m.maxVisible/2
	}
	if start > n-m.maxVisible {
		start = n - m.maxVisible
	}
	if start < 0 {
		start = 0
	}

	return start, start + m.maxVisible
}

// copyToClipboard copies content to the system clipboard.
func copyToClipboard(content string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.Init(); err != nil {
			return clipboardCopiedMsg{err: fmt.Errorf("failed to initialize clipboard: %w", err)}
		}

		clipboard.Write(clipboard.FmtText, []byte(content))
		return clipboardCopiedMsg{}
	}
}

func inputWidth(width int) int {
	w := width - 4
	if w < 10 {
		w = 10
	}
	return w
}

func itemWidth(width int) int {
	w := width - 4
	if w < 20 {
		w = 20
	}
	return w
}

func intPtr(v int) *int {
	return &v
}

func snapshotSelected(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func selectedChanged(a, b *int) bool {
	switch {
	case a == nil && b == nil:
		return false
	case a == nil || b == nil:
		return true
	default:
		return *a != *b
	}
}
