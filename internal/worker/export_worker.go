// Package worker ties the AMQP consumer to the export processor. The DB
// export queue stays the source of truth; consumed messages only pull
// the next drain forward, so losing a message costs latency, not data.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"conti/internal/amqp"
	"conti/internal/services"
	"conti/internal/store"
)

// ExportWorker consumes export request messages and nudges the processor.
type ExportWorker struct {
	store     store.Store
	processor *services.ExportProcessor
	client    *amqp.Client
}

// NewExportWorker creates a worker. client may be nil, in which case the
// processor drains the queue on its poll timer alone.
func NewExportWorker(st store.Store, processor *services.ExportProcessor, client *amqp.Client) *ExportWorker {
	return &ExportWorker{
		store:     st,
		processor: processor,
		client:    client,
	}
}

// HandleExportMessage processes a single export request message from AMQP.
func (w *ExportWorker) HandleExportMessage(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	if !msg.Valid() {
		return fmt.Errorf("invalid export request: year=%d month=%d", msg.Year, msg.Month)
	}

	slog.InfoContext(ctx, "Processing export request",
		"year", msg.Year,
		"month", msg.Month)

	// Enqueueing is idempotent while the month is already pending, and
	// covers messages whose queue row was lost or already completed.
	if err := w.store.EnqueueExport(ctx, msg.Year, msg.Month); err != nil {
		return fmt.Errorf("enqueue export: %w", err)
	}

	w.processor.Kick()
	return nil
}

// Run starts the processor and consumes export requests until the context
// is cancelled. It returns the consume error, or the context error when
// running without AMQP.
func (w *ExportWorker) Run(ctx context.Context) error {
	if err := w.processor.Start(ctx); err != nil {
		return fmt.Errorf("start export processor: %w", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.processor.Stop(stopCtx); err != nil {
			slog.Error("Failed to stop export processor cleanly", "error", err)
		}
	}()

	if w.client == nil {
		slog.InfoContext(ctx, "No AMQP client configured, draining export queue on timer only")
		<-ctx.Done()
		return ctx.Err()
	}

	slog.InfoContext(ctx, "Consuming export requests")
	return w.client.ConsumeExportRequests(ctx, func(msg *amqp.ExportRequestMessage) error {
		return w.HandleExportMessage(ctx, msg)
	})
}
