// Package coach holds the state of a coaching session: the selected movement, the camera
// switch, the current analysis and the feedback panel.
//
// Shells (the terminal UI, the web preview) drive a [Session] through [Session.SelectMovement]
// and [Session.ToggleCamera], feed loop events back through [Session.Apply] and render from
// [Session.Snapshot].
//
// # Generations
//
// Every movement change and camera toggle bumps a generation counter, and the capture loop tags
// its events with the generation it was started with. Apply drops events from any other
// generation, so a response that arrives after the user switched movement or turned the camera
// off never reaches the panel.
package coach
