// Package progress prints run progress to the console: per-table and total
// percentages while rows are processed, and per-target success/failure
// counts when a table finishes. This is interactive output rewritten in
// place with carriage returns; structured logging stays with zerolog.
package progress

import (
	"fmt"
	"io"
	"os"
	"time"
)

const (
	colorBlue   = "\033[94m"
	colorYellow = "\033[93m"
	colorReset  = "\033[0m"
)

// Reporter tracks counts for one run. All methods are called from the single
// processing goroutine.
type Reporter struct {
	out io.Writer

	totalRows      int
	processedRows  int
	runStart       time.Time
	tableStart     time.Time
	currentTable   string
	tableProcessed int
	tableTotals    map[string]int

	// saved and failed count rows per target table, keyed by the source
	// table being processed when they were queued.
	saved  map[string]map[string]int
	failed map[string]map[string]int
}

// NewReporter creates a Reporter for a run over totalRows source rows.
func NewReporter(totalRows int) *Reporter {
	return &Reporter{
		out:         os.Stdout,
		totalRows:   totalRows,
		tableTotals: make(map[string]int),
		saved:       make(map[string]map[string]int),
		failed:      make(map[string]map[string]int),
	}
}

// SetOutput redirects the reporter, used by tests.
func (r *Reporter) SetOutput(out io.Writer) {
	r.out = out
}

func (r *Reporter) RunStarted() {
	r.runStart = time.Now()
	fmt.Fprintf(r.out, "Total rows to process: %d\n", r.totalRows)
}

func (r *Reporter) TableStarted(table string, rows int) {
	r.tableStart = time.Now()
	r.currentTable = table
	r.tableTotals[table] = rows
	r.tableProcessed = 0
	r.saved[table] = make(map[string]int)
	r.failed[table] = make(map[string]int)
	fmt.Fprintf(r.out, "%sWorking on %s%s- %d row to process.\n", colorBlue, table, colorReset, rows)
}

// RowQueued counts a row queued for targetTable under the source table
// currently processing.
func (r *Reporter) RowQueued(targetTable string) {
	if counts, ok := r.saved[r.currentTable]; ok {
		counts[targetTable]++
	}
}

// RowFailed counts a candidate row for targetTable that was dropped.
func (r *Reporter) RowFailed(targetTable string) {
	if counts, ok := r.failed[r.currentTable]; ok {
		counts[targetTable]++
	}
}

// RowProcessed advances both percentages and rewrites the progress line.
func (r *Reporter) RowProcessed() {
	r.processedRows++
	r.tableProcessed++
	total := r.tableTotals[r.currentTable]
	minutes, seconds := splitDuration(time.Since(r.runStart))
	fmt.Fprintf(r.out, "Table process on: \t%s%.2f%%%s,\tTotal ETL process on: %s%.2f%%%s, already running for %d:%02d minutes.\r",
		colorBlue, percent(r.tableProcessed, total), colorReset,
		colorYellow, percent(r.processedRows, r.totalRows), colorReset,
		minutes, seconds)
}

func (r *Reporter) TableEnded(table string) {
	minutes, seconds := splitDuration(time.Since(r.tableStart))
	summary := ""
	summary += r.statusSummary(table, r.saved[table], "new rows created in")
	summary += r.statusSummary(table, r.failed[table], "rows failed to enter")
	fmt.Fprintf(r.out, "Done with %s. Time taken: %d:%02d minutes.\n| Out of %d medical records %s\n",
		table, minutes, seconds, r.tableTotals[table], summary)
	fmt.Fprintf(r.out, "%s%.2f%%%s\n\n", colorYellow, percent(r.processedRows, r.totalRows), colorReset)
}

func (r *Reporter) RunEnded() {
	minutes, seconds := splitDuration(time.Since(r.runStart))
	fmt.Fprintf(r.out, "Process original table into DWH complete- runtime: %d:%02d minutes.\n", minutes, seconds)
}

// Saved returns how many rows were queued for targetTable while sourceTable
// was processing.
func (r *Reporter) Saved(sourceTable, targetTable string) int {
	return r.saved[sourceTable][targetTable]
}

// Failed returns how many candidate rows for targetTable were dropped while
// sourceTable was processing.
func (r *Reporter) Failed(sourceTable, targetTable string) int {
	return r.failed[sourceTable][targetTable]
}

func (r *Reporter) statusSummary(table string, counts map[string]int, verb string) string {
	if len(counts) == 0 {
		return ""
	}
	total := 0
	lines := ""
	for name, count := range counts {
		total += count
		lines += fmt.Sprintf("|\t'%s': \t%d\n", name, count)
	}
	return fmt.Sprintf("\n| %d %s the data warehouse:\n%s", total, verb, lines)
}

func percent(done, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(done) / float64(total) * 100
}

func splitDuration(d time.Duration) (int, int) {
	seconds := int(d.Seconds())
	return seconds / 60, seconds % 60
}
