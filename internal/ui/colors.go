package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/gerak/internal/models"
)

var styles = NewPalette("#0284C7", "#22C55E", "#EF4444", "#3B82F6", "#FFA500", "#626262")

// struct Palette is a simple stylesheet built with named [lipgloss.Style] fields
type Palette struct {
	title   lipgloss.Style
	ok      lipgloss.Style
	err     lipgloss.Style
	unknown lipgloss.Style
	warn    lipgloss.Style
	help    lipgloss.Style
	panel   lipgloss.Style
	alert   lipgloss.Style
}

func NewPalette(t, s, e, u, w, h string) *Palette {
	return &Palette{
		title:   NewBold(t).MarginBottom(1),
		ok:      NewBold(s),
		err:     NewBold(e),
		unknown: NewStyle(u),
		warn:    NewStyle(w),
		help:    NewEm(h),
		panel:   lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color(t)).Padding(0, 1),
		alert:   lipgloss.NewStyle().Border(lipgloss.DoubleBorder()).BorderForeground(lipgloss.Color(e)).Padding(0, 1).Bold(true),
	}
}

// status picks the keypoint style matching the overlay colours.
func (p *Palette) status(feedback models.PoseFeedback, part models.BodyPart) lipgloss.Style {
	s, ok := feedback.Status(part)
	switch {
	case ok && s == models.StatusCorrect:
		return p.ok
	case ok && s == models.StatusIncorrect:
		return p.err
	default:
		return p.unknown
	}
}

func NewStyle(fg string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(fg))
}

func NewBold(fg string) lipgloss.Style {
	return NewStyle(fg).Bold(true)
}

func NewEm(fg string) lipgloss.Style {
	return NewStyle(fg).Italic(true)
}
