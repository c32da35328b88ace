// Package batch accumulates target rows per warehouse table and writes them
// out in bulk.
package batch

import (
	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/rowmap"
)

// FlushThreshold is the queue length at which a table's rows are written.
const FlushThreshold = 100

// auditTable rows are failure records; they are not counted as saved rows.
const auditTable = "exceptions"

// Notifier is told about every row queued for a warehouse table.
type Notifier interface {
	RowQueued(table string)
}

// Writer queues rows per target table and flushes a queue once it reaches
// FlushThreshold. FlushAll drains the remainder at end of run, in table
// insertion order.
type Writer struct {
	store    dwh.Store
	notifier Notifier
	log      zerolog.Logger

	queues map[string][]rowmap.Row
	order  []string
}

func NewWriter(store dwh.Store, notifier Notifier, log zerolog.Logger) *Writer {
	return &Writer{
		store:    store,
		notifier: notifier,
		log:      log,
		queues:   make(map[string][]rowmap.Row),
	}
}

// Enqueue normalizes row to the full column set of table, missing columns
// set to null, and appends it to the table's queue. Batched inserts need
// every row in a statement to share one shape.
func (w *Writer) Enqueue(row rowmap.Row, table string) error {
	columns, err := w.store.GetColumns(table)
	if err != nil {
		return err
	}
	normalized := row.Clone()
	for _, col := range columns {
		if !normalized.Has(col) {
			normalized[col] = rowmap.Null()
		}
	}

	if _, ok := w.queues[table]; !ok {
		w.order = append(w.order, table)
	}
	w.queues[table] = append(w.queues[table], normalized)

	if w.notifier != nil && table != auditTable {
		w.notifier.RowQueued(table)
	}

	if len(w.queues[table]) >= FlushThreshold {
		return w.flush(table)
	}
	return nil
}

// FlushAll drains every non-empty queue. Call once when processing is done.
func (w *Writer) FlushAll() error {
	for _, table := range w.order {
		if len(w.queues[table]) == 0 {
			continue
		}
		if err := w.flush(table); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) flush(table string) error {
	rows := w.queues[table]
	if err := w.store.SaveRows(rows, table); err != nil {
		return err
	}
	w.queues[table] = nil
	w.log.Debug().
		Str("table", table).
		Int("rows", len(rows)).
		Msg("Flushed batch")
	return nil
}
