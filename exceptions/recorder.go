// Package exceptions records recoverable transformation failures twice: a
// human-readable line in a dated log file and a structured audit row in the
// warehouse's exceptions table.
package exceptions

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/fault"
	"github.com/clinregistry/dwhetl/rowmap"
)

// RowQueue receives the audit rows.
type RowQueue interface {
	Enqueue(row rowmap.Row, table string) error
}

// FailNotifier is told about every candidate row that failed for a target
// table.
type FailNotifier interface {
	RowFailed(table string)
}

// Context identifies where in the run a failure happened.
type Context struct {
	SourceTable   string
	TargetTable   string
	SourceColumns []string
}

type Recorder struct {
	dir      string
	queue    RowQueue
	notifier FailNotifier
	log      zerolog.Logger
}

func NewRecorder(dir string, queue RowQueue, notifier FailNotifier, log zerolog.Logger) *Recorder {
	return &Recorder{
		dir:      dir,
		queue:    queue,
		notifier: notifier,
		log:      log,
	}
}

// Record writes the failure to the log file and queues the matching audit
// row. sourceRow is the registry row being processed, partialRow whatever
// had been assembled for the target table when the failure hit.
func (r *Recorder) Record(ctx Context, sourceRow, partialRow rowmap.Row, f *fault.Fault) error {
	rowJSON, err := json.Marshal(partialRow)
	if err != nil {
		return fmt.Errorf("failed to serialize partial row: %w", err)
	}

	var message string
	var targetCol, sourceCol rowmap.Value
	switch f.Kind {
	case fault.KindNotNullColumn:
		targetCol = rowmap.Text(f.Column)
		sourceCol = rowmap.Null()
		message = fmt.Sprintf("Validation failed for '%s', '%s' is missing: %s\n",
			ctx.TargetTable, f.Column, rowJSON)
	default:
		targetCol = rowmap.Null()
		sourceCol = rowmap.Text(f.Column)
		fieldType := "field"
		if f.Kind == fault.KindMandatoryField {
			fieldType = "mandatory field"
		}
		message = fmt.Sprintf("For '%s', the %s '%s' is missing in: Table: '%s' Original row: (%s)\n",
			ctx.TargetTable, fieldType, f.Column, ctx.SourceTable,
			formatSourceRow(sourceRow, ctx.SourceColumns))
	}

	index, err := writeToLogFile(r.dir, message)
	if err != nil {
		return err
	}

	audit := rowmap.Row{
		"log_file_id":  rowmap.Number(float64(index)),
		"target_table": rowmap.Text(ctx.TargetTable),
		"org_table":    rowmap.Text(ctx.SourceTable),
		"target_col":   targetCol,
		"org_col":      sourceCol,
		"row_json":     rowmap.Text(string(rowJSON)),
	}
	if err := r.queue.Enqueue(audit, "exceptions"); err != nil {
		return err
	}

	if r.notifier != nil {
		r.notifier.RowFailed(ctx.TargetTable)
	}
	r.log.Debug().
		Str("target_table", ctx.TargetTable).
		Str("org_table", ctx.SourceTable).
		Int("log_file_id", index).
		Msg(strings.TrimRight(f.Error(), "\n"))
	return nil
}

// formatSourceRow renders the source row in its column order, for the log
// line.
func formatSourceRow(row rowmap.Row, columns []string) string {
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, fmt.Sprintf("%s: %s", col, row.Get(col)))
	}
	return strings.Join(parts, ", ")
}
