package ui

import (
	"github.com/charmbracelet/bubbles/list"
	"github.com/desertthunder/gerak/internal/models"
)

var _ list.Item = movementItem{}

// movementItem wraps [models.Movement] to implement [list.Item].
type movementItem struct {
	movement models.Movement
}

func (i movementItem) FilterValue() string { return i.movement.Name }
func (i movementItem) Title() string       { return i.movement.Name }
func (i movementItem) Description() string { return i.movement.Description }

func movementItems(catalog []models.Movement) []list.Item {
	items := make([]list.Item, len(catalog))
	for i, m := range catalog {
		items[i] = movementItem{movement: m}
	}
	return items
}
