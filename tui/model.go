// Package tui is an interactive terminal front end for the answer flow.
package tui

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/smallnest/ragrouter/rag"
)

// EmptyQueryWarning is shown when a blank query is submitted.
const EmptyQueryWarning = "Please enter a query."

// Answerer answers a single query.
type Answerer interface {
	GetAnswer(ctx context.Context, query string) (rag.Answer, error)
}

// AnswerMsg carries the result of a submitted query.
type AnswerMsg struct {
	Query  string
	Answer rag.Answer
	Err    error
}

// Model is the bubbletea model: a query input above the latest answer.
type Model struct {
	ctx      context.Context
	answerer Answerer
	styles   *Styles

	input   textinput.Model
	spinner spinner.Model
	loading bool
	warning string
	answer  *rag.Answer
	err     error
	width   int
}

// New creates a Model.
func New(ctx context.Context, answerer Answerer) *Model {
	ti := textinput.New()
	ti.Placeholder = "Enter your query..."
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return &Model{
		ctx:      ctx,
		answerer: answerer,
		styles:   DefaultStyles(),
		input:    ti,
		spinner:  sp,
		width:    80,
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-4, 20)
		return m, nil
	case AnswerMsg:
		m.loading = false
		if msg.Err != nil {
			m.err = msg.Err
			m.answer = nil
			return m, nil
		}
		m.err = nil
		ans := msg.Answer
		m.answer = &ans
		return m, nil
	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		return m, tea.Quit
	case tea.KeyEnter:
		if m.loading {
			return m, nil
		}
		query := strings.TrimSpace(m.input.Value())
		if query == "" {
			m.warning = EmptyQueryWarning
			return m, nil
		}
		m.warning = ""
		m.err = nil
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, m.ask(query))
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) ask(query string) tea.Cmd {
	return func() tea.Msg {
		ans, err := m.answerer.GetAnswer(m.ctx, query)
		return AnswerMsg{Query: query, Answer: ans, Err: err}
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	sections := []string{
		m.styles.Title.Render("RAG Query Router"),
		m.input.View(),
	}

	switch {
	case m.warning != "":
		sections = append(sections, m.styles.Warning.Render(m.warning))
	case m.loading:
		sections = append(sections, m.spinner.View()+" Routing query...")
	case m.err != nil:
		sections = append(sections, m.styles.Error.Render("Error: "+m.err.Error()))
	case m.answer != nil:
		sections = append(sections, m.renderAnswer(*m.answer))
	}

	sections = append(sections, m.styles.Help.Render("enter: ask • esc: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...) + "\n"
}

func (m *Model) renderAnswer(ans rag.Answer) string {
	route := ans.Route
	if route == "" {
		route = "no source"
	}
	lines := []string{m.styles.Route.Render("Answered from " + route)}
	if src := ans.Source[rag.MetaSource]; src != nil {
		if s, ok := src.(string); ok && s != "" {
			lines = append(lines, m.styles.Source.Render(s))
		}
	}
	body := m.styles.Answer.Width(max(m.width-4, 20)).Render(ans.Content)
	lines = append(lines, body)
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

// Answer returns the latest answer, if any.
func (m *Model) Answer() *rag.Answer {
	return m.answer
}

// Warning returns the current warning message.
func (m *Model) Warning() string {
	return m.warning
}

// Loading reports whether a query is in flight.
func (m *Model) Loading() bool {
	return m.loading
}

// SetQuery sets the input value.
func (m *Model) SetQuery(q string) {
	m.input.SetValue(q)
}

// Run starts the program on the terminal and blocks until the user quits.
func Run(ctx context.Context, answerer Answerer) error {
	_, err := tea.NewProgram(New(ctx, answerer), tea.WithContext(ctx)).Run()
	return err
}
