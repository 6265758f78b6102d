package worker

import (
	"context"
	"testing"

	"conti/internal/amqp"
	"conti/internal/services"
	sheetsmem "conti/internal/sheets/memory"
	storemem "conti/internal/store/memory"
)

func newTestWorker(t *testing.T) (*ExportWorker, *storemem.Store) {
	t.Helper()
	ms := storemem.New()
	processor := services.NewExportProcessor(ms, services.NewSummaryService(ms), sheetsmem.New(), services.DefaultExportProcessorConfig())
	return NewExportWorker(ms, processor, nil), ms
}

func TestHandleExportMessage_EnqueuesAndKicks(t *testing.T) {
	w, ms := newTestWorker(t)
	ctx := context.Background()

	msg := amqp.NewExportRequestMessage(2025, 3)
	if err := w.HandleExportMessage(ctx, msg); err != nil {
		t.Fatalf("HandleExportMessage failed: %v", err)
	}

	items, err := ms.DequeueExportBatch(ctx, 10)
	if err != nil {
		t.Fatalf("DequeueExportBatch failed: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 queued item, got %d", len(items))
	}
	if items[0].Year != 2025 || items[0].Month != 3 {
		t.Errorf("queued item is %04d-%02d, want 2025-03", items[0].Year, items[0].Month)
	}
}

func TestHandleExportMessage_InvalidMonth(t *testing.T) {
	w, ms := newTestWorker(t)
	ctx := context.Background()

	msg := &amqp.ExportRequestMessage{Year: 2025, Month: 13}
	if err := w.HandleExportMessage(ctx, msg); err == nil {
		t.Fatal("expected error for invalid month")
	}

	items, err := ms.DequeueExportBatch(ctx, 10)
	if err != nil {
		t.Fatalf("DequeueExportBatch failed: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("invalid message must not be enqueued, got %d items", len(items))
	}
}

func TestHandleExportMessage_DuplicatesCollapse(t *testing.T) {
	w, ms := newTestWorker(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := w.HandleExportMessage(ctx, amqp.NewExportRequestMessage(2025, 3)); err != nil {
			t.Fatalf("HandleExportMessage %d failed: %v", i, err)
		}
	}

	items, err := ms.DequeueExportBatch(ctx, 10)
	if err != nil {
		t.Fatalf("DequeueExportBatch failed: %v", err)
	}
	if len(items) != 1 {
		t.Errorf("expected duplicate messages to collapse into 1 item, got %d", len(items))
	}
}
