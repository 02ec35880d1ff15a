package coach

import (
	"errors"

	"github.com/desertthunder/gerak/internal/shared"
)

// Panel copy shown to the child.
const (
	IdleText        = "Yuk, nyalakan kamera dan tirukan gerakannya! Asisten akan memberimu semangat!"
	WaitingText     = "Asisten sedang melihat gerakanmu... Sabar ya!"
	FallbackText    = "Oops, ada masalah saat menganalisa. Coba lagi ya."
	NoMovementAlert = "Pilih salah satu gerakan dulu ya sebelum menyalakan kamera!"
	CameraAlert     = "Tidak bisa mengakses kamera. Pastikan kamu sudah memberikan izin."
	NotFoundAlert   = "Gerakan tidak ditemukan."
)

// PanelState is the feedback panel's display mode.
type PanelState int

const (
	PanelIdle PanelState = iota
	PanelWaiting
	PanelHasText
)

func (p PanelState) String() string {
	switch p {
	case PanelIdle:
		return "idle"
	case PanelWaiting:
		return "waiting"
	case PanelHasText:
		return "has_text"
	default:
		return ""
	}
}

// MarshalText encodes the state by name for JSON views.
func (p PanelState) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// PanelText returns the text the feedback panel shows for snap.
func PanelText(snap Snapshot) string {
	switch {
	case snap.Panel == PanelHasText && snap.Text != "":
		return snap.Text
	case snap.Panel == PanelWaiting || snap.Busy:
		return WaitingText
	default:
		return IdleText
	}
}

// AlertText maps user-facing errors to modal alert copy. Other errors return "".
func AlertText(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, shared.ErrNoMovementSelected):
		return NoMovementAlert
	case errors.Is(err, shared.ErrCameraUnavailable):
		return CameraAlert
	case errors.Is(err, shared.ErrMovementNotFound):
		return NotFoundAlert
	default:
		return ""
	}
}
