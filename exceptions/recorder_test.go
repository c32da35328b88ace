package exceptions

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/fault"
	"github.com/clinregistry/dwhetl/rowmap"
)

type captureQueue struct {
	rows   []rowmap.Row
	tables []string
}

func (q *captureQueue) Enqueue(row rowmap.Row, table string) error {
	q.rows = append(q.rows, row)
	q.tables = append(q.tables, table)
	return nil
}

type captureNotifier struct {
	failed []string
}

func (n *captureNotifier) RowFailed(table string) {
	n.failed = append(n.failed, table)
}

func readLogFile(t *testing.T, dir string) string {
	t.Helper()
	name := fmt.Sprintf("%s-exceptions.log", time.Now().Format("2006-01-02"))
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	return string(data)
}

func TestRecordMandatoryFieldMissing(t *testing.T) {
	dir := t.TempDir()
	queue := &captureQueue{}
	notifier := &captureNotifier{}
	recorder := NewRecorder(dir, queue, notifier, zerolog.Nop())

	ctx := Context{
		SourceTable:   "visits",
		TargetTable:   "concept_dimension",
		SourceColumns: []string{"patient_id", "concept_desc"},
	}
	sourceRow := rowmap.Row{
		"patient_id":   rowmap.Null(),
		"concept_desc": rowmap.Text("fever"),
	}
	err := recorder.Record(ctx, sourceRow, rowmap.Row{}, fault.MandatoryFieldMissing("patient_id"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content := readLogFile(t, dir)
	want := "1. For 'concept_dimension', the mandatory field 'patient_id' is missing in: " +
		"Table: 'visits' Original row: (patient_id: None, concept_desc: fever)\n"
	if content != want {
		t.Errorf("log content = %q, want %q", content, want)
	}

	if len(queue.rows) != 1 || queue.tables[0] != "exceptions" {
		t.Fatalf("expected one audit row, got %v", queue.tables)
	}
	audit := queue.rows[0]
	if audit["log_file_id"].Number != 1 {
		t.Errorf("log_file_id = %v, want 1", audit["log_file_id"])
	}
	if audit["org_col"].Text != "patient_id" || !audit["target_col"].IsNull() {
		t.Errorf("unexpected column references: %v", audit)
	}
	if audit["target_table"].Text != "concept_dimension" || audit["org_table"].Text != "visits" {
		t.Errorf("unexpected table references: %v", audit)
	}

	if len(notifier.failed) != 1 || notifier.failed[0] != "concept_dimension" {
		t.Errorf("expected one failure notification, got %v", notifier.failed)
	}
}

func TestRecordNotNullColumnMissing(t *testing.T) {
	dir := t.TempDir()
	queue := &captureQueue{}
	recorder := NewRecorder(dir, queue, nil, zerolog.Nop())

	ctx := Context{SourceTable: "visits", TargetTable: "observation_fact"}
	partial := rowmap.Row{
		"encounter_num": rowmap.Number(4),
		"import_date":   rowmap.Time(time.Date(2024, 5, 1, 9, 30, 0, 0, time.UTC)),
	}
	err := recorder.Record(ctx, rowmap.Row{}, partial, fault.NotNullColumnMissing("concept_cd"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	content := readLogFile(t, dir)
	if !strings.HasPrefix(content, "1. Validation failed for 'observation_fact', 'concept_cd' is missing: ") {
		t.Errorf("unexpected log content: %q", content)
	}

	audit := queue.rows[0]
	if audit["target_col"].Text != "concept_cd" || !audit["org_col"].IsNull() {
		t.Errorf("unexpected column references: %v", audit)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(audit["row_json"].Text), &decoded); err != nil {
		t.Fatalf("row_json is not valid JSON: %v", err)
	}
	if decoded["import_date"] != "2024-05-01 09:30:00" {
		t.Errorf("timestamps must serialize as YYYY-MM-DD HH:MM:SS, got %v", decoded["import_date"])
	}
}

func TestLogIndexCountsExistingLines(t *testing.T) {
	dir := t.TempDir()
	queue := &captureQueue{}
	recorder := NewRecorder(dir, queue, nil, zerolog.Nop())
	ctx := Context{SourceTable: "visits", TargetTable: "patient_dimension"}

	for i := 0; i < 3; i++ {
		err := recorder.Record(ctx, rowmap.Row{}, rowmap.Row{}, fault.NotNullColumnMissing("patient_num"))
		if err != nil {
			t.Fatalf("unexpected error on record %d: %v", i, err)
		}
	}

	lines := strings.Split(strings.TrimRight(readLogFile(t, dir), "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 log lines, got %d", len(lines))
	}
	for i, line := range lines {
		prefix := fmt.Sprintf("%d. ", i+1)
		if !strings.HasPrefix(line, prefix) {
			t.Errorf("line %d = %q, want prefix %q", i, line, prefix)
		}
	}
	if queue.rows[2]["log_file_id"].Number != 3 {
		t.Errorf("third audit row log_file_id = %v, want 3", queue.rows[2]["log_file_id"])
	}
}
