package ui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/gerak/internal/tasks"
)

// MsgKind enumerates all message types in the application.
type MsgKind int

// Msg represents all possible messages in the TUI (Elm-style message union).
type Msg struct {
	kind MsgKind
	data any
}

var (
	_ tea.Msg = Msg{}
)

const (
	MsgLoopEvent MsgKind = iota
	MsgMovementSelected
	MsgCameraToggled
	MsgBrowserOpened
)

// loopEventMsg is the constructor for [MsgLoopEvent]
func loopEventMsg(ev tasks.Event) Msg {
	return Msg{kind: MsgLoopEvent, data: ev}
}

// movementSelectedMsg is the constructor for [MsgMovementSelected]
func movementSelectedMsg(err error) Msg {
	return Msg{kind: MsgMovementSelected, data: err}
}

// cameraToggledMsg is the constructor for [MsgCameraToggled]
func cameraToggledMsg(err error) Msg {
	return Msg{kind: MsgCameraToggled, data: err}
}

// browserOpenedMsg is the constructor for [MsgBrowserOpened]
func browserOpenedMsg(err error) Msg {
	return Msg{kind: MsgBrowserOpened, data: err}
}

// Err returns the error carried by command results, if any.
func (m Msg) Err() error {
	if err, ok := m.data.(error); ok {
		return err
	}
	return nil
}
