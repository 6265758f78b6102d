package sheets

import (
	"context"

	"conti/internal/core"
)

// Ports for outbound export destinations.
type (
	// SummaryWriter publishes a finished month summary to an external
	// destination. Writes are idempotent: exporting the same month twice
	// replaces the previous snapshot.
	SummaryWriter interface {
		WriteMonthSummary(ctx context.Context, s core.MonthSummary) error
	}
)
