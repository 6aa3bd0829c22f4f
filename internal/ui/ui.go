package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/ymgch/anisync/internal/repositories"
	"github.com/ymgch/anisync/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	ConfirmView ViewState = iota
	ImportView
	ResultView
	WorkListView
)

// WorkLister lists imported works for the browse view.
type WorkLister interface {
	ListWithThemes(userID string) ([]repositories.WorkRow, error)
	First() (string, error)
}

// Model represents the TUI application state.
type Model struct {
	ctx          context.Context
	view         ViewState
	engine       *tasks.ImportEngine
	lister       WorkLister
	statuses     []string
	width        int
	height       int
	workList     list.Model
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	result       *tasks.ImportRunResult
	err          error
	help         help.Model
	keys         keyMap
}

// keyMap defines the key bindings for the TUI.
type keyMap struct {
	up    key.Binding
	down  key.Binding
	enter key.Binding
	back  key.Binding
	yes   key.Binding
	no    key.Binding
	works key.Binding
	quit  key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		yes: key.NewBinding(
			key.WithKeys("y"),
			key.WithHelp("y", "yes"),
		),
		no: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "no"),
		),
		works: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "list works"),
		),
		quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter},
		{k.back, k.yes, k.no},
		{k.works, k.quit},
	}
}

// workItem wraps [repositories.WorkRow] to implement list.Item.
type workItem struct {
	work repositories.WorkRow
}

func (i workItem) FilterValue() string { return i.work.Title }
func (i workItem) Title() string       { return i.work.Title }
func (i workItem) Description() string {
	if len(i.work.Themes) == 0 {
		return "no theme songs"
	}

	parts := make([]string, 0, len(i.work.Themes))
	for _, song := range i.work.Themes {
		label := strings.ToUpper(string(song.Type))
		mark := "✗"
		if song.SpotifyURL != "" {
			mark = "✓"
		}
		parts = append(parts, fmt.Sprintf("%s %s %s", label, song.Title, mark))
	}
	return strings.Join(parts, " • ")
}

type progressUpdateMsg tasks.ProgressUpdate

type importCompleteMsg struct {
	result *tasks.ImportRunResult
	err    error
}

type worksFetchedMsg struct {
	works []repositories.WorkRow
	err   error
}

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, engine *tasks.ImportEngine, lister WorkLister, statuses []string) *Model {
	return &Model{
		ctx:      ctx,
		view:     ConfirmView,
		engine:   engine,
		lister:   lister,
		statuses: statuses,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init is a no-op; the first view waits for the user's confirmation.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if m.workList.Width() == 0 {
			m.workList.SetSize(msg.Width-4, msg.Height-8)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case ConfirmView:
			return m.handleConfirmKeys(msg)
		case ResultView:
			return m.handleResultKeys(msg)
		case WorkListView:
			return m.handleWorkListKeys(msg)
		}
		return m, nil

	case progressUpdateMsg:
		m.progress = tasks.ProgressUpdate(msg)
		return m, m.waitForProgress()

	case importCompleteMsg:
		m.result = msg.result
		m.err = msg.err
		m.view = ResultView
		m.progressChan = nil
		return m, nil

	case worksFetchedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.view = ResultView
			return m, nil
		}
		items := make([]list.Item, len(msg.works))
		for i, work := range msg.works {
			items[i] = workItem{work: work}
		}
		m.workList = list.New(items, list.NewDefaultDelegate(), 0, 0)
		m.workList.Title = "Imported Works"
		m.workList.SetSize(m.width-4, m.height-8)
		m.view = WorkListView
		return m, nil
	}

	if m.view == WorkListView {
		var cmd tea.Cmd
		m.workList, cmd = m.workList.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	if m.err != nil && m.view != ResultView {
		return styles.error.Render(fmt.Sprintf("Error: %v\n\nPress q to quit", m.err))
	}

	switch m.view {
	case ConfirmView:
		return m.renderConfirm()
	case ImportView:
		return m.renderImport()
	case ResultView:
		return m.renderResult()
	case WorkListView:
		return m.renderWorkList()
	default:
		return ""
	}
}

func (m *Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "n":
		return m, tea.Quit
	case "y", "enter":
		m.view = ImportView
		return m, m.startImport()
	}
	return m, nil
}

func (m *Model) handleResultKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "l":
		return m, m.fetchWorks()
	}
	return m, nil
}

func (m *Model) handleWorkListKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc":
		m.view = ResultView
		return m, nil
	}

	var cmd tea.Cmd
	m.workList, cmd = m.workList.Update(msg)
	return m, cmd
}

func (m *Model) startImport() tea.Cmd {
	m.progressChan = make(chan tasks.ProgressUpdate, 50)
	progressChan := m.progressChan

	go func() {
		result, err := m.engine.Run(m.ctx, progressChan, m.statuses)
		m.result = result
		m.err = err
		close(progressChan)
	}()

	return m.waitForProgress()
}

func (m *Model) waitForProgress() tea.Cmd {
	return func() tea.Msg {
		if m.progressChan == nil {
			return importCompleteMsg{result: m.result, err: m.err}
		}

		update, ok := <-m.progressChan
		if !ok {
			return importCompleteMsg{result: m.result, err: m.err}
		}
		return progressUpdateMsg(update)
	}
}

func (m *Model) fetchWorks() tea.Cmd {
	return func() tea.Msg {
		userID, err := m.lister.First()
		if err != nil {
			return worksFetchedMsg{err: err}
		}
		works, err := m.lister.ListWithThemes(userID)
		return worksFetchedMsg{works: works, err: err}
	}
}

func (m *Model) renderConfirm() string {
	title := styles.title.Render("Import watch history from Annict?")
	info := fmt.Sprintf("\nStatus filters: %s\n", strings.Join(m.statuses, ", "))

	helpKeys := []key.Binding{m.keys.yes, m.keys.no, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s\n%s", title, info, helpView)
}

func (m *Model) renderImport() string {
	title := styles.title.Render("Importing Watch History")

	var phase string
	switch m.progress.Phase {
	case tasks.FetchProfile:
		phase = "Fetching Annict profile..."
	case tasks.FetchLibrary:
		phase = "Fetching library..."
	case tasks.ImportWork:
		phase = fmt.Sprintf("Importing works (%d/%d)", m.progress.Step, m.progress.Total)
	case tasks.ResolveTrack:
		phase = "Searching Spotify..."
	default:
		phase = "Processing..."
	}

	return fmt.Sprintf("%s\n\n%s\n%s", title, phase, m.progress.Message)
}

func (m *Model) renderResult() string {
	if m.err != nil {
		return styles.error.Render(fmt.Sprintf("Import failed: %v\n\nPress q to quit", m.err))
	}

	if m.result == nil {
		return styles.error.Render("No result available\n\nPress q to quit")
	}

	title := styles.success.Render("✓ Import Complete!")
	info := fmt.Sprintf(
		"\nWorks: %d total\nImported: %d\nSkipped: %d\nTheme songs: %d (%d resolved)",
		m.result.Total,
		m.result.Imported,
		m.result.Skipped,
		m.result.Themes,
		m.result.Resolved,
	)

	var failed string
	if m.result.Failed > 0 {
		failed = fmt.Sprintf("\n\n%s", styles.warning.Render(fmt.Sprintf("Failed to import %d works:", m.result.Failed)))
		for _, work := range m.result.Works {
			if work.Error != "" {
				failed += fmt.Sprintf("\n  • %s: %s", work.Title, work.Error)
			}
		}
	}

	helpKeys := []key.Binding{m.keys.works, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n%s%s\n\n%s", title, info, failed, helpView)
}

func (m *Model) renderWorkList() string {
	helpKeys := []key.Binding{m.keys.back, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)
	return fmt.Sprintf("%s\n\n%s", m.workList.View(), helpView)
}
