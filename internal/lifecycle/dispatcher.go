package lifecycle

import (
	"context"
	"fmt"
	"time"

	"docanalyzer/internal/documents"
	"docanalyzer/internal/queue"
	"docanalyzer/internal/shared/telemetry"
)

// Dispatcher serves the HTTP layer. With a nil Queue every process request
// runs inline; otherwise it is handed to the queue backend.
type Dispatcher struct {
	Coordinator *Coordinator
	Queue       queue.Client
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(coord *Coordinator, q queue.Client) *Dispatcher {
	return &Dispatcher{Coordinator: coord, Queue: q}
}

// Process runs the pipeline synchronously.
func (d *Dispatcher) Process(ctx context.Context, id string) (documents.Document, error) {
	return d.Coordinator.Process(ctx, id)
}

// Dispatch processes inline or enqueues. A queued document is returned as it
// was when enqueued.
func (d *Dispatcher) Dispatch(ctx context.Context, id string) (documents.Document, bool, error) {
	if d.Queue == nil {
		doc, err := d.Coordinator.Process(ctx, id)
		return doc, false, err
	}

	doc, err := d.Coordinator.Repo.GetByID(ctx, id)
	if err != nil {
		return documents.Document{}, false, err
	}

	msg := queue.Message{
		DocumentID: doc.ID,
		RequestID:  telemetry.RequestID(ctx),
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    queue.MessageVersion,
	}
	if err := d.Queue.Send(ctx, msg); err != nil {
		return doc, false, fmt.Errorf("enqueue %s: %w", doc.ID, err)
	}
	telemetry.Info("document.enqueued", map[string]any{
		"document_id": doc.ID,
		"request_id":  msg.RequestID,
	})
	return doc, true, nil
}

// Act delegates to the coordinator.
func (d *Dispatcher) Act(ctx context.Context, id, instruction string) (string, error) {
	return d.Coordinator.Act(ctx, id, instruction)
}

var _ documents.Processor = (*Dispatcher)(nil)
