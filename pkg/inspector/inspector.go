package inspector

import (
	"context"

	"github.com/DrSkyle/idlewatch/pkg/finding"
)

// Inspector lists one resource category and classifies unused members.
// Implementations are strictly read-only against the provider.
type Inspector interface {
	Name() string
	Category() finding.ResourceType
	// Inspect returns the unused findings for the category. Resources with
	// missing data are skipped, not errored; an error means the listing
	// itself failed.
	Inspect(ctx context.Context) ([]finding.Finding, error)
}
