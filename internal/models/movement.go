package models

import (
	"fmt"
	"strings"

	"github.com/desertthunder/gerak/internal/shared"
)

// Movement is a locomotor exercise the coach can teach.
type Movement struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	ImageURL    string `json:"image"`
}

// DefaultMovements returns the built-in catalog.
func DefaultMovements() []Movement {
	return []Movement{
		{
			ID:          "berjalan",
			Name:        "Berjalan",
			Description: "Gerakan melangkahkan kaki secara bergantian ke depan dengan badan tegap.",
			ImageURL:    "https://media.baamboozle.com/uploads/images/149503/1618903719_38491_gif-url.gif",
		},
		{
			ID:          "berlari",
			Name:        "Berlari",
			Description: "Gerakan melangkahkan kaki dengan cepat, ada saatnya kedua kaki tidak menapak tanah.",
			ImageURL:    "https://i.pinimg.com/originals/1a/39/3c/1a393c3b5d1912c9b216c52b343c16e7.gif",
		},
		{
			ID:          "melompat",
			Name:        "Melompat",
			Description: "Gerakan menolakkan badan ke atas dengan satu atau kedua kaki, lalu mendarat dengan kedua kaki.",
			ImageURL:    "https://static.wixstatic.com/media/253305_a8728ed5c8084a919316035e4b786f4a~mv2.gif",
		},
	}
}

// NewCatalog validates movements and returns a copy usable as a catalog.
//
// An empty input yields [DefaultMovements].
func NewCatalog(movements []Movement) ([]Movement, error) {
	if len(movements) == 0 {
		return DefaultMovements(), nil
	}

	seen := make(map[string]bool, len(movements))
	catalog := make([]Movement, 0, len(movements))
	for i, m := range movements {
		m.ID = strings.TrimSpace(m.ID)
		m.Name = strings.TrimSpace(m.Name)
		if m.ID == "" || m.Name == "" {
			return nil, fmt.Errorf("%w: movement %d needs an id and a name", shared.ErrInvalidConfig, i)
		}
		if seen[m.ID] {
			return nil, fmt.Errorf("%w: duplicate movement id %q", shared.ErrInvalidConfig, m.ID)
		}
		seen[m.ID] = true
		catalog = append(catalog, m)
	}
	return catalog, nil
}

// FindMovement looks a movement up by id.
func FindMovement(catalog []Movement, id string) (Movement, error) {
	for _, m := range catalog {
		if m.ID == id {
			return m, nil
		}
	}
	return Movement{}, fmt.Errorf("%w: %q", shared.ErrMovementNotFound, id)
}
