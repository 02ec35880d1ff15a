// package services defines interface Analyzer for the hosted pose model
package services

import (
	"context"

	"github.com/desertthunder/gerak/internal/models"
)

// Analyzer estimates a pose and coaching feedback for a single frame.
type Analyzer interface {
	// Analyze sends one encoded image and the target movement name to the model.
	// Returns an error if the call fails or the payload cannot be decoded.
	Analyze(ctx context.Context, image []byte, mimeType, movementName string) (*models.AnalysisResponse, error)

	// Name returns the name of the backing service (e.g., "Gemini")
	Name() string
}
