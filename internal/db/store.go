// Package db persists analyzed feedback. Every ResultRecord the engine
// emits is appended to a ResultStore; the engine itself defines no schema.
package db

import (
	"context"

	"github.com/spacesedan/aspectflow/internal/models"
)

// ResultStore is the append side shared by every backend.
type ResultStore interface {
	AppendResults(ctx context.Context, feedback []models.AnalyzedFeedback) error
}
