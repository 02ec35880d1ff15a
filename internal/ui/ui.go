package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/gerak/internal/coach"
	"github.com/desertthunder/gerak/internal/models"
	"github.com/desertthunder/gerak/internal/shared"
	"github.com/desertthunder/gerak/internal/tasks"
)

// Model represents the TUI application state.
type Model struct {
	ctx     context.Context
	session *coach.Session
	width   int
	height  int
	list    list.Model
	spinner spinner.Model
	help    help.Model
	keys    keyMap
	alert   string
	status  string
	opener  func(string) error
}

// NewModel creates a new TUI model driving session.
func NewModel(ctx context.Context, session *coach.Session) *Model {
	l := list.New(movementItems(session.Catalog()), list.NewDefaultDelegate(), 0, 0)
	l.Title = "Gerakan"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return &Model{
		ctx:     ctx,
		session: session,
		list:    l,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		help:    help.New(),
		keys:    newKeyMap(),
		opener:  shared.OpenBrowser,
	}
}

// Init starts the spinner and the loop event reader.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.waitForEvent())
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.list.SetSize(max(msg.Width/3, 20), max(msg.Height-6, 8))
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.quit) {
		return m, tea.Quit
	}

	if m.alert != "" {
		if key.Matches(msg, m.keys.dismiss) {
			m.alert = ""
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.enter):
		if item, ok := m.list.SelectedItem().(movementItem); ok {
			return m, m.selectMovement(item.movement.ID)
		}
		return m, nil
	case key.Matches(msg, m.keys.camera):
		return m, m.toggleCamera()
	case key.Matches(msg, m.keys.open):
		return m, m.openReference()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgLoopEvent:
		if ev, ok := msg.data.(tasks.Event); ok {
			m.session.Apply(ev)
		}
		return m, m.waitForEvent()

	case MsgMovementSelected, MsgCameraToggled:
		m.status = ""
		if err := msg.Err(); err != nil {
			m.showError(err)
		}
		return m, nil

	case MsgBrowserOpened:
		if err := msg.Err(); err != nil {
			m.status = styles.warn.Render(fmt.Sprintf("Could not open browser: %v", err))
		}
		return m, nil
	}
	return m, nil
}

func (m *Model) showError(err error) {
	if text := coach.AlertText(err); text != "" {
		m.alert = text
		return
	}
	m.alert = err.Error()
}

func (m *Model) selectMovement(id string) tea.Cmd {
	return func() tea.Msg {
		return movementSelectedMsg(m.session.SelectMovement(m.ctx, id))
	}
}

func (m *Model) toggleCamera() tea.Cmd {
	if !m.session.Snapshot().CameraOn {
		m.status = styles.help.Render("Menyalakan kamera...")
	}
	return func() tea.Msg {
		return cameraToggledMsg(m.session.ToggleCamera(m.ctx))
	}
}

func (m *Model) openReference() tea.Cmd {
	snap := m.session.Snapshot()
	if snap.Movement == nil || snap.Movement.ImageURL == "" {
		return nil
	}
	url := snap.Movement.ImageURL
	return func() tea.Msg {
		return browserOpenedMsg(m.opener(url))
	}
}

// waitForEvent reads one loop event; Update re-arms it after applying.
func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case ev := <-m.session.Events():
			return loopEventMsg(ev)
		case <-m.ctx.Done():
			return nil
		}
	}
}

// View renders the list and the session panels side by side.
func (m *Model) View() string {
	snap := m.session.Snapshot()

	right := strings.Join([]string{
		m.renderReference(snap),
		m.renderCamera(snap),
		m.renderFeedback(snap),
		m.renderKeypoints(snap),
	}, "\n\n")

	body := lipgloss.JoinHorizontal(lipgloss.Top, m.list.View(), "  ", right)

	var footer []string
	if m.alert != "" {
		footer = append(footer, styles.alert.Render(m.alert))
	}
	if m.status != "" {
		footer = append(footer, m.status)
	}
	footer = append(footer, m.help.ShortHelpView(m.keys.ShortHelp()))

	return body + "\n\n" + strings.Join(footer, "\n")
}

func (m *Model) renderReference(snap coach.Snapshot) string {
	if snap.Movement == nil {
		return styles.title.Render("Ayo Bergerak!") + "\n" + styles.help.Render("Pilih gerakan dari daftar lalu tekan enter.")
	}
	mv := snap.Movement
	return fmt.Sprintf("%s\n%s\n%s", styles.title.Render(mv.Name), mv.Description, styles.help.Render(mv.ImageURL))
}

func (m *Model) renderCamera(snap coach.Snapshot) string {
	if !snap.CameraOn {
		return styles.warn.Render("● Kamera mati")
	}
	return styles.ok.Render("● Kamera menyala") + styles.help.Render(
		fmt.Sprintf("  %d analisa, %d gagal, %d dilewati", snap.Stats.Results, snap.Stats.Failures, snap.Stats.Skipped))
}

func (m *Model) renderFeedback(snap coach.Snapshot) string {
	text := coach.PanelText(snap)
	if snap.Panel == coach.PanelWaiting || (snap.Busy && snap.Panel != coach.PanelHasText) {
		text = m.spinner.View() + " " + text
	}
	width := max(m.width*2/3-6, 30)
	return styles.panel.Width(width).Render(text)
}

func (m *Model) renderKeypoints(snap coach.Snapshot) string {
	if snap.Result == nil {
		return ""
	}

	var lines []string
	for _, part := range models.BodyParts() {
		kp := snap.Result.Pose.Get(part)
		if !kp.Detected() {
			continue
		}
		label := part.String()
		if s, ok := snap.Result.Feedback.Status(part); ok {
			label += ": " + string(s)
		}
		lines = append(lines, styles.status(snap.Result.Feedback, part).Render("● "+label))
	}
	if len(lines) == 0 {
		return styles.help.Render("Tidak ada titik tubuh yang terdeteksi.")
	}
	return strings.Join(lines, "\n")
}
