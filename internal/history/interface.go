package history

import (
	"context"

	"codeberg.org/mutker/dcrmctl/internal/analysis"
)

// Recorder defines the core domain interface
type Recorder interface {
	Record(ctx context.Context, a *analysis.Analysis) error
	Recent(ctx context.Context, limit int) ([]analysis.Analysis, error)
	Enabled() bool
	Close() error
}

// Repository defines the interface for analysis storage
type Repository interface {
	Record(a *analysis.Analysis) error
	Recent(ctx context.Context, limit int) ([]analysis.Analysis, error)
	Close() error
}
