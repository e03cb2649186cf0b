package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/jwulff/timetable/internal/daemon"
	"github.com/jwulff/timetable/internal/timetable"
	"github.com/jwulff/timetable/internal/ui"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	hourColumnWidth = 6
	minCellWidth    = 8
)

// Model is the root bubbletea model for the timetable TUI.
type Model struct {
	backend Backend

	// Connection state, remote mode only
	remote           bool
	socketPath       string
	client           *daemon.Client // command connection
	evClient         *daemon.Client // event subscription connection
	connected        bool
	connError        string
	reconnecting     bool
	reconnectAttempt int

	// Timetable
	snap timetable.Snapshot

	// Grid cursor
	cursorDay  int
	cursorHour int

	// Open editor, nil when the grid has focus
	form *Form

	// UI state
	width  int
	height int

	// Errors
	errorMessage   string
	errorTransient bool

	// Status
	statusText string
}

// New creates a Model editing backend directly.
func New(backend Backend) Model {
	return Model{
		backend:    backend,
		snap:       timetable.EmptySnapshot(),
		cursorHour: timetable.FirstHour,
		statusText: "Loading...",
	}
}

// NewRemote creates a Model that edits the timetable held by a daemon.
func NewRemote(socketPath string) Model {
	return Model{
		remote:     true,
		socketPath: socketPath,
		snap:       timetable.EmptySnapshot(),
		cursorHour: timetable.FirstHour,
		statusText: "Connecting to timetable daemon...",
	}
}

// Init loads the timetable, connecting to the daemon first in remote mode.
func (m Model) Init() tea.Cmd {
	if m.remote {
		return connectCmd(m.socketPath)
	}
	return loadSnapshotCmd(m.backend)
}

// connectCmd attempts to connect to the daemon with two connections:
// one for commands, one for event subscription.
func connectCmd(sockPath string) tea.Cmd {
	return func() tea.Msg {
		client, err := daemon.Connect(sockPath)
		if err != nil {
			return DaemonConnectErrorMsg{Err: err}
		}
		evClient, err := daemon.Connect(sockPath)
		if err != nil {
			client.Close()
			return DaemonConnectErrorMsg{Err: err}
		}
		return DaemonConnectedMsg{Client: client, EvClient: evClient}
	}
}

// subscribeCmd subscribes the event client and starts reading events.
func subscribeCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		if err := evClient.Subscribe(); err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return readEventCmd(evClient)()
	}
}

// readEventCmd reads the next event from the event client.
func readEventCmd(evClient *daemon.Client) tea.Cmd {
	return func() tea.Msg {
		ev, err := evClient.ReadEvent()
		if err != nil {
			return DaemonEventErrorMsg{Err: err}
		}
		return DaemonEventMsg{Event: ev}
	}
}

func loadSnapshotCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		snap, err := b.Snapshot()
		if err != nil {
			return SnapshotErrorMsg{Err: err}
		}
		return SnapshotLoadedMsg{Snapshot: snap}
	}
}

func insertCmd(b Backend, day timetable.Day, draft timetable.Draft) tea.Cmd {
	return func() tea.Msg {
		l, err := b.Insert(day, draft)
		return MutationResultMsg{Action: ActionInsert, Lecture: l, Err: err}
	}
}

func replaceCmd(b Backend, oldDay timetable.Day, id string, newDay timetable.Day, draft timetable.Draft) tea.Cmd {
	return func() tea.Msg {
		l, err := b.Replace(oldDay, id, newDay, draft)
		return MutationResultMsg{Action: ActionReplace, Lecture: l, Err: err}
	}
}

func deleteCmd(b Backend, day timetable.Day, l timetable.Lecture) tea.Cmd {
	return func() tea.Msg {
		ok, err := b.Delete(day, l.ID)
		return MutationResultMsg{Action: ActionDelete, Lecture: l, Deleted: ok, Err: err}
	}
}

// clearTransientErrorCmd fires after a delay to clear transient errors.
func clearTransientErrorCmd() tea.Cmd {
	return tea.Tick(5*time.Second, func(time.Time) tea.Msg {
		return ClearTransientErrorMsg{}
	})
}

// reconnectCmd schedules a reconnection attempt with exponential backoff.
func reconnectCmd(attempt int) tea.Cmd {
	delay := time.Duration(1<<min(attempt, 4)) * time.Second // 1s, 2s, 4s, 8s, 16s cap
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ReconnectTickMsg{}
	})
}

// Update handles incoming messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case DaemonConnectedMsg:
		m.client = msg.Client
		m.evClient = msg.EvClient
		m.backend = msg.Client
		m.connected = true
		m.connError = ""
		m.reconnecting = false
		m.reconnectAttempt = 0
		m.statusText = "Connected"
		// A restarted daemon counts versions from zero again.
		m.snap.Version = 0
		return m, tea.Batch(
			subscribeCmd(m.evClient),
			loadSnapshotCmd(m.client),
		)

	case DaemonConnectErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.reconnecting = true
		m.statusText = "Daemon not running. Reconnecting..."
		return m, reconnectCmd(m.reconnectAttempt)

	case DaemonEventMsg:
		cmd := m.handleEvent(msg.Event)
		return m, tea.Batch(cmd, readEventCmd(m.evClient))

	case DaemonEventErrorMsg:
		m.connected = false
		m.connError = msg.Err.Error()
		m.statusText = "Disconnected. Reconnecting..."
		m.reconnecting = true
		m.backend = nil
		if m.client != nil {
			m.client.Close()
			m.client = nil
		}
		if m.evClient != nil {
			m.evClient.Close()
			m.evClient = nil
		}
		return m, reconnectCmd(m.reconnectAttempt)

	case ReconnectTickMsg:
		m.reconnectAttempt++
		return m, connectCmd(m.socketPath)

	case SnapshotLoadedMsg:
		m.applySnapshot(msg.Snapshot)
		if m.statusText == "Loading..." {
			m.statusText = "Ready"
		}
		return m, nil

	case SnapshotErrorMsg:
		return m, m.setTransientError(msg.Err.Error())

	case MutationResultMsg:
		return m.handleMutation(msg)

	case ClearTransientErrorMsg:
		if m.errorTransient {
			m.errorMessage = ""
			m.errorTransient = false
		}
		return m, nil
	}

	return m, nil
}

// handleEvent processes a daemon event and returns any resulting command.
func (m *Model) handleEvent(ev daemon.Event) tea.Cmd {
	if ev.Event != daemon.EventChanged {
		return nil
	}
	if ev.Snapshot != nil {
		m.applySnapshot(*ev.Snapshot)
		return nil
	}
	if m.backend != nil {
		return loadSnapshotCmd(m.backend)
	}
	return nil
}

// applySnapshot installs snap unless it is older than what is shown.
func (m *Model) applySnapshot(snap timetable.Snapshot) {
	if snap.Days == nil {
		snap = timetable.EmptySnapshot()
	}
	if snap.Version < m.snap.Version {
		return
	}
	m.snap = snap
}

func (m Model) handleMutation(msg MutationResultMsg) (tea.Model, tea.Cmd) {
	if msg.Err != nil {
		if m.form != nil && msg.Action != ActionDelete {
			if rest := m.form.SetError(msg.Err); rest == nil {
				return m, nil
			}
		}
		if errors.Is(msg.Err, timetable.ErrOverlap) {
			return m, m.setTransientError(overlapAlert)
		}
		return m, m.setTransientError(msg.Err.Error())
	}

	switch msg.Action {
	case ActionDelete:
		if !msg.Deleted {
			return m, m.setTransientError("lecture was already removed")
		}
		m.statusText = fmt.Sprintf("Deleted %q", msg.Lecture.Name)
	default:
		m.form = nil
		m.statusText = fmt.Sprintf("%s %q", strings.ToUpper(string(msg.Action[:1]))+string(msg.Action[1:]), msg.Lecture.Name)
	}

	if m.backend == nil {
		return m, nil
	}
	return m, loadSnapshotCmd(m.backend)
}

func (m *Model) setTransientError(text string) tea.Cmd {
	m.errorMessage = text
	m.errorTransient = true
	return clearTransientErrorCmd()
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == KeyCtrlC {
		return m.quit()
	}
	if m.form != nil {
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case KeyQuit, KeyQuitUpper:
		return m.quit()

	case KeyUp, KeyK:
		if m.cursorHour > timetable.FirstHour {
			m.cursorHour--
		}
	case KeyDown, KeyJ:
		if m.cursorHour < timetable.LastHour-1 {
			m.cursorHour++
		}
	case KeyLeft, KeyH:
		if m.cursorDay > 0 {
			m.cursorDay--
		}
	case KeyRight, KeyL:
		if m.cursorDay < len(timetable.Days)-1 {
			m.cursorDay++
		}

	case KeyNew:
		if m.backend == nil {
			return m, nil
		}
		m.form = NewCreateForm(m.CursorDay(), m.cursorHour)

	case KeyEdit, KeyEnter:
		if m.backend == nil {
			return m, nil
		}
		day := m.CursorDay()
		if l, ok := m.snap.At(day, m.cursorHour); ok {
			m.form = NewEditForm(day, l)
		} else if msg.String() == KeyEnter {
			m.form = NewCreateForm(day, m.cursorHour)
		}

	case KeyDelete, KeyDeleteAlt:
		if m.backend == nil {
			return m, nil
		}
		day := m.CursorDay()
		if l, ok := m.snap.At(day, m.cursorHour); ok {
			return m, deleteCmd(m.backend, day, l)
		}
	}

	return m, nil
}

func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.form.HandleKey(msg) {
	case formCancel:
		m.form = nil
	case formSubmit:
		return m, m.submit()
	}
	return m, nil
}

// submit validates the form locally, then hands the write to the backend.
func (m Model) submit() tea.Cmd {
	f := m.form
	if err := f.Validate(); err != nil || m.backend == nil {
		return nil
	}

	draft := f.Draft()
	switch mode := f.Mode.(type) {
	case EditMode:
		return replaceCmd(m.backend, mode.Day, mode.Lecture.ID, f.Day, draft)
	default:
		return insertCmd(m.backend, f.Day, draft)
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.client != nil {
		m.client.Close()
	}
	if m.evClient != nil {
		m.evClient.Close()
	}
	return m, tea.Quit
}

// CursorDay is the day column under the cursor.
func (m Model) CursorDay() timetable.Day {
	return timetable.Days[m.cursorDay]
}

// CursorHour is the hour row under the cursor.
func (m Model) CursorHour() int { return m.cursorHour }

// Form returns the open editor, or nil.
func (m Model) Form() *Form { return m.form }

// Snapshot returns the timetable currently displayed.
func (m Model) Snapshot() timetable.Snapshot { return m.snap }

func (m Model) cellWidth() int {
	w := (m.width - hourColumnWidth) / len(timetable.Days)
	return max(w, minCellWidth)
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sections []string

	sections = append(sections, m.renderHeader())
	sections = append(sections, m.renderStatusBar())
	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.form != nil {
		sections = append(sections, m.form.View(m.width))
	} else {
		sections = append(sections, m.renderGrid())
	}

	sections = append(sections, ui.DividerStyle.Render(strings.Repeat("─", m.width)))

	if m.errorMessage != "" {
		sections = append(sections, m.renderErrorBar())
	}

	sections = append(sections, m.renderFooter())

	return strings.Join(sections, "\n")
}

func (m Model) renderHeader() string {
	title := ui.TitleStyle.Render("TIMETABLE")

	var mode string
	switch {
	case !m.remote:
		mode = ui.DimStyle.Render(" [local]")
	case m.connected:
		mode = " " + ui.RemoteBadgeStyle.Render("● daemon")
	default:
		mode = " " + ui.OfflineBadgeStyle.Render("○ offline")
	}

	count := ui.DimStyle.Render(fmt.Sprintf("  %d lectures", m.snap.Len()))
	return title + mode + count
}

func (m Model) renderStatusBar() string {
	status := ui.StatusStyle.Render(m.statusText)
	if m.reconnecting && m.connError != "" {
		status += ui.DimStyle.Render(" (" + m.connError + ")")
	}
	return truncateToWidth(status, m.width)
}

// renderGrid draws the week, one line per hour. Each block is painted in its
// colour; only its start row carries the name.
func (m Model) renderGrid() string {
	cw := m.cellWidth()

	header := padRight("", hourColumnWidth)
	for i, d := range timetable.Days {
		label := padRight(" "+d.Label(), cw)
		if i == m.cursorDay {
			header += ui.SelectedStyle.Render(label)
		} else {
			header += ui.HeaderStyle.Render(label)
		}
	}

	lines := []string{header}
	for _, hour := range timetable.Hours() {
		line := ui.HourStyle.Render(padRight(fmt.Sprintf("%02d:00", hour), hourColumnWidth))
		for i, d := range timetable.Days {
			line += m.renderCell(timetable.CellAt(m.snap.Day(d), hour), cw, i == m.cursorDay && hour == m.cursorHour)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderCell(c timetable.Cell, width int, cursor bool) string {
	var text string
	var style lipgloss.Style

	switch c.State {
	case timetable.CellStart:
		text = " " + c.Lecture.Name
		style = ui.BlockStyle(c.Lecture.Color)
	case timetable.CellContinuation:
		text = ""
		style = ui.BlockStyle(c.Lecture.Color)
	default:
		text = " ·"
		style = ui.EmptyCellStyle
	}

	text = padRight(truncateToWidth(text, width-1), width-1) + " "
	if cursor {
		style = style.Inherit(ui.CursorStyle).Reverse(true)
	}
	return style.Render(text)
}

func (m Model) renderErrorBar() string {
	return ui.ErrorStyle.Render("Error: ") + ui.ErrorTextStyle.Render(m.errorMessage)
}

func (m Model) renderFooter() string {
	if m.form != nil {
		return ui.FooterDescStyle.Render("Editing")
	}

	var parts []string
	if m.backend != nil {
		parts = append(parts, ui.FooterKeyStyle.Render("n")+ui.FooterDescStyle.Render(" New"))
		parts = append(parts, ui.FooterKeyStyle.Render("e")+ui.FooterDescStyle.Render(" Edit"))
		parts = append(parts, ui.FooterKeyStyle.Render("d")+ui.FooterDescStyle.Render(" Delete"))
		parts = append(parts, ui.FooterKeyStyle.Render("hjkl")+ui.FooterDescStyle.Render(" Move"))
	}
	parts = append(parts, ui.FooterKeyStyle.Render("q")+ui.FooterDescStyle.Render(" Quit"))

	return strings.Join(parts, "  ")
}

// Helpers

func padRight(s string, width int) string {
	// Get visible length (ignoring ANSI codes)
	visible := lipgloss.Width(s)
	if visible >= width {
		return s
	}
	return s + strings.Repeat(" ", width-visible)
}

func truncateToWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= width {
		return s
	}
	return ansi.Truncate(s, width, "…")
}
