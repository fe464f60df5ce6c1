// Package worker turns expenditure change events into audit ledger rows.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"teamspend/internal/amqp"
	"teamspend/internal/core"
	"teamspend/internal/sheets"
)

// LedgerWorker consumes expenditure events and appends one ledger row per
// event. Rows are never edited; a deletion shows up as a marker row
// referencing the expenditure id.
type LedgerWorker struct {
	ledger sheets.LedgerAppender
}

func NewLedgerWorker(ledger sheets.LedgerAppender) *LedgerWorker {
	return &LedgerWorker{ledger: ledger}
}

// HandleEvent processes a single expenditure event. Returning an error makes
// the consumer requeue the message.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenditureEvent) error {
	slog.InfoContext(ctx, "Processing expenditure event",
		"message_id", ev.MessageID,
		"kind", ev.Kind,
		"expenditure_id", ev.Expenditure.ID)

	entry := buildEntry(ev)
	ref, err := w.ledger.Append(ctx, entry)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	slog.InfoContext(ctx, "Ledger row appended",
		"message_id", ev.MessageID,
		"row_ref", ref)
	return nil
}

func buildEntry(ev *amqp.ExpenditureEvent) sheets.LedgerEntry {
	entry := sheets.LedgerEntry{
		Timestamp:     ev.Timestamp.UTC().Format(time.RFC3339),
		Kind:          string(ev.Kind),
		ExpenditureID: ev.Expenditure.ID,
	}
	if ev.Kind == amqp.ExpenditureDeleted {
		// Deletion markers carry only the reference.
		return entry
	}

	e := ev.Expenditure
	entry.Date = e.Date
	entry.TeamName = e.TeamNameHistorical
	entry.MemberName = e.MemberNameHistorical
	if entry.MemberName == "" {
		entry.MemberName = core.UnassignedLabel
	}
	entry.Description = e.Description
	entry.Quantity = e.Quantity
	entry.UnitPrice = e.UnitPrice.Units()
	entry.Amount = e.Amount.Units()
	return entry
}
