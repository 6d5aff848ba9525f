// Package prompt asks the single yes/no question shown before a merge run.
//
// The decision logic (Decide and Model.Update) is free of terminal I/O so it
// can be driven directly from tests; Confirm wires it to a bubbletea program.
package prompt

import (
	"fmt"
	"io"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// DefaultQuestion is shown when the caller passes an empty question.
const DefaultQuestion = "処理を選択してください\n\n「はい」: 新規マスタ作成（inputフォルダ内の全ファイル）\n「いいえ」: 終了"

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	choiceStyle   = lipgloss.NewStyle().Padding(0, 2)
	selectedStyle = lipgloss.NewStyle().Padding(0, 2).Bold(true).
			Foreground(lipgloss.Color("0")).Background(lipgloss.Color("39"))
	hintStyle = lipgloss.NewStyle().Faint(true).MarginTop(1)
)

var choices = [2]string{"はい", "いいえ"}

// Decide maps a typed answer to a decision. ok is false for anything that is
// neither a yes nor a no.
func Decide(answer string) (yes bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "はい":
		return true, true
	case "n", "no", "いいえ":
		return false, true
	}
	return false, false
}

// Model is the bubbletea model of the confirmation dialog.
type Model struct {
	question string
	cursor   int
	done     bool
	yes      bool
}

// New returns a model with "はい" preselected.
func New(question string) Model {
	if question == "" {
		question = DefaultQuestion
	}
	return Model{question: question}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}

	switch key.String() {
	case "left", "h", "shift+tab":
		m.cursor = 0
	case "right", "l":
		m.cursor = 1
	case "tab":
		m.cursor = 1 - m.cursor
	case "enter", " ":
		return m.finish(m.cursor == 0)
	case "esc", "ctrl+c", "q":
		return m.finish(false)
	default:
		if yes, ok := Decide(key.String()); ok {
			return m.finish(yes)
		}
	}
	return m, nil
}

func (m Model) finish(yes bool) (tea.Model, tea.Cmd) {
	m.done = true
	m.yes = yes
	return m, tea.Quit
}

func (m Model) View() string {
	if m.done {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.question))
	b.WriteString("\n")
	rendered := make([]string, len(choices))
	for i, c := range choices {
		if i == m.cursor {
			rendered[i] = selectedStyle.Render(c)
		} else {
			rendered[i] = choiceStyle.Render(c)
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
	b.WriteString("\n")
	b.WriteString(hintStyle.Render("←/→ で選択、Enter で決定 (y/n)"))
	b.WriteString("\n")
	return b.String()
}

// Answer returns the decision and whether one was made.
func (m Model) Answer() (yes bool, done bool) {
	return m.yes, m.done
}

// Confirm runs the dialog on the given terminal streams. Closing the input
// without answering counts as a refusal.
func Confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	p := tea.NewProgram(New(question), tea.WithInput(in), tea.WithOutput(out))
	final, err := p.Run()
	if err != nil {
		return false, fmt.Errorf("confirmation prompt: %w", err)
	}
	m, ok := final.(Model)
	if !ok {
		return false, nil
	}
	yes, _ := m.Answer()
	return yes, nil
}
