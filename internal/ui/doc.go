// Package ui implements the interactive terminal shell using bubbletea's Elm architecture.
//
// The screen has two columns:
//   - the movement list (bubbles/list); enter selects the highlighted movement
//   - the reference display (name, description, demonstration URL, o opens it in a browser),
//     the camera status, the feedback panel and the per-keypoint verdicts coloured like the overlay
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern, receiving messages via the Msg union type.
// Session commands (select, toggle camera) run as tea.Cmd so opening the camera never blocks rendering.
// Capture loop events are read from the session's event channel one at a time by a tea.Cmd and applied in Update.
//
// Precondition and permission errors show as a modal alert line dismissed with esc or enter.
package ui
