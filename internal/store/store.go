package store

import (
	"context"

	"github.com/sells-group/poi-admin/internal/model"
)

// PoIFilter specifies criteria for listing catalog entries. Search is an
// exact match against the internal or external id.
type PoIFilter struct {
	Category string `json:"category,omitempty"`
	Search   string `json:"search,omitempty"`
	Limit    int    `json:"limit,omitempty"`
	Offset   int    `json:"offset,omitempty"`
}

// Store defines the persistence interface for the PoI catalog.
type Store interface {
	// Catalog
	FindByExternalID(ctx context.Context, externalID string) (*model.PoI, error)
	Insert(ctx context.Context, p *model.PoI) (string, error)
	Update(ctx context.Context, p *model.PoI) error
	GetPoI(ctx context.Context, id string) (*model.PoI, error)
	ListPoIs(ctx context.Context, filter PoIFilter) ([]model.PoI, error)
	CountPoIs(ctx context.Context, filter PoIFilter) (int, error)
	DeleteAllPoIs(ctx context.Context) (int, error)

	// Import log
	RecordImportRun(ctx context.Context, f *model.FileSummary) error
	ListImportRuns(ctx context.Context, limit int) ([]model.ImportRun, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
