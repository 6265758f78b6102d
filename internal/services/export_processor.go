package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"conti/internal/sheets"
	"conti/internal/store"
)

// ExportProcessorConfig holds configuration for the export processor
type ExportProcessorConfig struct {
	// PollInterval is how often to check for pending months (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of months to export per cycle (default: 10)
	BatchSize int

	// MaxRetries is the maximum attempts before marking a month as failed (default: 3)
	MaxRetries int

	// StaleAge is how long an item may sit in processing before it is
	// considered orphaned by a crash and reset to pending (default: 10m)
	StaleAge time.Duration

	// CleanupInterval is how often to clean up completed items (default: 1h)
	CleanupInterval time.Duration

	// CleanupAge is how old completed items must be before cleanup (default: 24h)
	CleanupAge time.Duration
}

// DefaultExportProcessorConfig returns sensible defaults
func DefaultExportProcessorConfig() ExportProcessorConfig {
	return ExportProcessorConfig{
		PollInterval:    30 * time.Second,
		BatchSize:       10,
		MaxRetries:      3,
		StaleAge:        10 * time.Minute,
		CleanupInterval: 1 * time.Hour,
		CleanupAge:      24 * time.Hour,
	}
}

// ExportProcessor drains the durable export queue: for every queued month it
// recomputes the summary and pushes it to the spreadsheet. The DB queue is
// the source of truth; AMQP messages only make it drain sooner via Kick.
type ExportProcessor struct {
	store     store.Store
	summaries *SummaryService
	writer    sheets.SummaryWriter
	config    ExportProcessorConfig

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	kickCh  chan struct{}
}

// NewExportProcessor creates a new export processor
func NewExportProcessor(
	st store.Store,
	summaries *SummaryService,
	writer sheets.SummaryWriter,
	config ExportProcessorConfig,
) *ExportProcessor {
	return &ExportProcessor{
		store:     st,
		summaries: summaries,
		writer:    writer,
		config:    config,
		kickCh:    make(chan struct{}, 1),
	}
}

// Start begins the processing loop. Returns an error if already running.
func (p *ExportProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("export processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	// Reset any processing items orphaned by a previous crash
	if n, err := p.store.ResetStaleExports(ctx, p.config.StaleAge); err != nil {
		slog.WarnContext(ctx, "Failed to reset stale export items", "error", err)
	} else if n > 0 {
		slog.InfoContext(ctx, "Reset stale export items", "count", n)
	}

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Export processor started",
		"poll_interval", p.config.PollInterval,
		"batch_size", p.config.BatchSize)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *ExportProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Export processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// IsRunning returns whether the processor is currently running
func (p *ExportProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// Kick asks the loop to run a batch now instead of waiting for the next
// poll tick. Safe to call from any goroutine; extra kicks coalesce.
func (p *ExportProcessor) Kick() {
	select {
	case p.kickCh <- struct{}{}:
	default:
	}
}

// runLoop is the main processing loop
func (p *ExportProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	pollTicker := time.NewTicker(p.config.PollInterval)
	defer pollTicker.Stop()

	cleanupTicker := time.NewTicker(p.config.CleanupInterval)
	defer cleanupTicker.Stop()

	// Process immediately on startup
	p.processBatch(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-pollTicker.C:
			p.processBatch(ctx)
		case <-p.kickCh:
			p.processBatch(ctx)
		case <-cleanupTicker.C:
			p.cleanupCompleted(ctx)
		}
	}
}

// processBatch exports a single batch of queued months
func (p *ExportProcessor) processBatch(ctx context.Context) {
	// Dequeue marks the items processing and bumps their attempt counters
	items, err := p.store.DequeueExportBatch(ctx, p.config.BatchSize)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to dequeue export batch", "error", err)
		return
	}

	if len(items) == 0 {
		return
	}

	slog.DebugContext(ctx, "Processing export batch", "count", len(items))

	for _, item := range items {
		// Check if we should stop
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.exportMonth(ctx, item); err != nil {
			p.handleFailure(ctx, item, err)
		} else {
			p.handleSuccess(ctx, item)
		}
	}
}

// exportMonth recomputes one month's summary and writes it out
func (p *ExportProcessor) exportMonth(ctx context.Context, item store.ExportItem) error {
	summary, err := p.summaries.MonthSummary(ctx, item.Year, item.Month, false)
	if err != nil {
		return fmt.Errorf("build summary for %04d-%02d: %w", item.Year, item.Month, err)
	}

	if err := p.writer.WriteMonthSummary(ctx, summary); err != nil {
		return fmt.Errorf("write summary for %04d-%02d: %w", item.Year, item.Month, err)
	}

	slog.InfoContext(ctx, "Month summary exported",
		"year", item.Year,
		"month", item.Month,
		"expenses_cents", summary.TotalExpenses.Cents,
		"income_cents", summary.TotalIncome.Cents)

	return nil
}

// handleSuccess marks an item as completed
func (p *ExportProcessor) handleSuccess(ctx context.Context, item store.ExportItem) {
	if err := p.store.MarkExportCompleted(ctx, item.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark export complete",
			"id", item.ID, "error", err)
	}
}

// handleFailure parks or requeues a failed export depending on attempts
func (p *ExportProcessor) handleFailure(ctx context.Context, item store.ExportItem, processErr error) {
	slog.WarnContext(ctx, "Export processing failed",
		"id", item.ID,
		"year", item.Year,
		"month", item.Month,
		"attempt", item.Attempts,
		"error", processErr)

	if item.Attempts >= p.config.MaxRetries {
		if err := p.store.MarkExportFailed(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to mark export as failed",
				"id", item.ID, "error", err)
		}

		slog.ErrorContext(ctx, "Export failed permanently after max retries",
			"id", item.ID,
			"year", item.Year,
			"month", item.Month,
			"attempts", item.Attempts)
	} else {
		if err := p.store.RequeueExport(ctx, item.ID, processErr.Error()); err != nil {
			slog.ErrorContext(ctx, "Failed to requeue export",
				"id", item.ID, "error", err)
		}
	}
}

// cleanupCompleted removes old completed items
func (p *ExportProcessor) cleanupCompleted(ctx context.Context) {
	if _, err := p.store.CleanupCompletedExports(ctx, p.config.CleanupAge); err != nil {
		slog.ErrorContext(ctx, "Failed to cleanup completed exports", "error", err)
	}
}
