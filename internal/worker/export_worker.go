// Package worker consumes change notifications in the background.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"kobo/internal/amqp"
	"kobo/internal/cache"
	"kobo/internal/core"
	"kobo/internal/export"
	"kobo/internal/log"
	"kobo/internal/syncer"
)

// exportedTTL bounds how long an exported record is remembered for
// redelivery deduplication.
const exportedTTL = time.Hour

// ExportWorker appends newly created sales and expenses to an external
// ledger as change notifications arrive.
type ExportWorker struct {
	snapshots syncer.SnapshotFetcher
	writer    export.RowWriter
	exported  *cache.LRUCache[string]
	logger    *slog.Logger
}

func NewExportWorker(snapshots syncer.SnapshotFetcher, writer export.RowWriter, logger *slog.Logger) *ExportWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExportWorker{
		snapshots: snapshots,
		writer:    writer,
		exported:  cache.NewLRUCache[string](1000, exportedTTL),
		logger:    logger.With(log.FieldComponent, log.ComponentWorker),
	}
}

// Exported exposes the deduplication cache so callers can register it for
// periodic cleanup.
func (w *ExportWorker) Exported() *cache.LRUCache[string] {
	return w.exported
}

// HandleChange processes one change message. Returning an error requeues it.
func (w *ExportWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	if msg.Action != amqp.ActionCreated || (msg.Entity != amqp.EntitySale && msg.Entity != amqp.EntityExpense) {
		w.logger.DebugContext(ctx, "Ignoring change message",
			log.FieldEntity, msg.Entity,
			"action", msg.Action,
			log.FieldEntityID, msg.EntityID)
		return nil
	}

	key := msg.Entity + ":" + msg.EntityID
	if ref, ok := w.exported.Get(key); ok {
		w.logger.InfoContext(ctx, "Record already exported, skipping",
			log.FieldEntity, msg.Entity,
			log.FieldEntityID, msg.EntityID,
			"sheets_ref", ref)
		return nil
	}

	raw, err := w.snapshots.FetchSnapshot(ctx)
	if err != nil {
		return fmt.Errorf("fetch snapshot: %w", err)
	}
	snap := syncer.ToSnapshot(raw)

	var ref string
	switch msg.Entity {
	case amqp.EntitySale:
		sale, ok := findSale(snap, msg.EntityID)
		if !ok {
			w.notFound(ctx, msg)
			return nil
		}
		ref, err = w.writer.AppendSale(ctx, sale)
	case amqp.EntityExpense:
		expense, ok := findExpense(snap, msg.EntityID)
		if !ok {
			w.notFound(ctx, msg)
			return nil
		}
		ref, err = w.writer.AppendExpense(ctx, expense)
	}
	if err != nil {
		return fmt.Errorf("export %s %s: %w", msg.Entity, msg.EntityID, err)
	}

	w.exported.Set(key, ref)
	w.logger.InfoContext(ctx, "Successfully exported record",
		log.FieldEntity, msg.Entity,
		log.FieldEntityID, msg.EntityID,
		"sheets_ref", ref)
	return nil
}

// notFound covers records deleted or replaced before the message arrived.
func (w *ExportWorker) notFound(ctx context.Context, msg *amqp.ChangeMessage) {
	w.logger.WarnContext(ctx, "Record no longer in store, skipping export",
		log.FieldEntity, msg.Entity,
		log.FieldEntityID, msg.EntityID)
}

func findSale(s *core.Snapshot, id string) (core.Sale, bool) {
	for _, sale := range s.Sales {
		if sale.ID == id {
			return sale, true
		}
	}
	return core.Sale{}, false
}

func findExpense(s *core.Snapshot, id string) (core.Expense, bool) {
	for _, e := range s.Expenses {
		if e.ID == id {
			return e, true
		}
	}
	return core.Expense{}, false
}
