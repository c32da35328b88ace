package translate

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/rowmap"
)

type fakeStore struct {
	dictionary *dwh.ResultSet
	fetches    int
}

func (s *fakeStore) GetColumns(string) ([]string, error)        { return nil, nil }
func (s *fakeStore) GetNotNullColumns(string) ([]string, error) { return nil, nil }
func (s *fakeStore) SaveRows([]rowmap.Row, string) error        { return nil }
func (s *fakeStore) Dispose() error                             { return nil }
func (s *fakeStore) FetchRows(string, ...interface{}) (*dwh.ResultSet, error) {
	s.fetches++
	if s.dictionary == nil {
		return &dwh.ResultSet{}, nil
	}
	return s.dictionary, nil
}

type fakeRemote struct {
	calls        int
	translations map[string]string
}

func (r *fakeRemote) Translate(text string) (string, error) {
	r.calls++
	return r.translations[text], nil
}

type captureQueue struct {
	rows   []rowmap.Row
	tables []string
}

func (q *captureQueue) Enqueue(row rowmap.Row, table string) error {
	q.rows = append(q.rows, row)
	q.tables = append(q.tables, table)
	return nil
}

func TestTranslateRowReplacesHebrewText(t *testing.T) {
	remote := &fakeRemote{translations: map[string]string{"כאב": "pain"}}
	queue := &captureQueue{}
	cache := NewCache(&fakeStore{}, remote, queue, zerolog.Nop())

	row := rowmap.Row{
		"name_char":   rowmap.Text("כאב"),
		"patient_num": rowmap.Text("P1"),
		"nval_num":    rowmap.Number(3),
	}
	got, err := cache.TranslateRow(row)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["name_char"].Text != "pain" {
		t.Errorf("expected translated name_char, got %v", got["name_char"])
	}
	if got["patient_num"].Text != "P1" || got["nval_num"].Number != 3 {
		t.Errorf("non-Hebrew values must pass through unchanged: %v", got)
	}
	// The original row is never mutated.
	if row["name_char"].Text != "כאב" {
		t.Errorf("source row was mutated: %v", row)
	}

	if len(queue.rows) != 1 || queue.tables[0] != "dictionary" {
		t.Fatalf("expected one dictionary row queued, got %v", queue.tables)
	}
	if queue.rows[0]["he"].Text != "כאב" || queue.rows[0]["en"].Text != "pain" {
		t.Errorf("unexpected dictionary row: %v", queue.rows[0])
	}
}

func TestTranslateRowIsIdempotentWithinRun(t *testing.T) {
	remote := &fakeRemote{translations: map[string]string{"שלום": "hello"}}
	queue := &captureQueue{}
	store := &fakeStore{}
	cache := NewCache(store, remote, queue, zerolog.Nop())

	for i := 0; i < 2; i++ {
		got, err := cache.TranslateRow(rowmap.Row{"name_char": rowmap.Text("שלום")})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got["name_char"].Text != "hello" {
			t.Errorf("unexpected translation on pass %d: %v", i, got)
		}
	}

	if remote.calls != 1 {
		t.Errorf("remote called %d times, want 1", remote.calls)
	}
	if len(queue.rows) != 1 {
		t.Errorf("dictionary rows queued %d times, want 1", len(queue.rows))
	}
	if store.fetches != 1 {
		t.Errorf("dictionary loaded %d times, want 1", store.fetches)
	}
}

func TestTranslateRowUsesPersistedDictionary(t *testing.T) {
	remote := &fakeRemote{}
	queue := &captureQueue{}
	store := &fakeStore{dictionary: &dwh.ResultSet{
		Columns: []string{"he", "en"},
		Rows: []rowmap.Row{
			{"he": rowmap.Text("כאב"), "en": rowmap.Text("pain")},
		},
	}}
	cache := NewCache(store, remote, queue, zerolog.Nop())

	got, err := cache.TranslateRow(rowmap.Row{"name_char": rowmap.Text("כאב")})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["name_char"].Text != "pain" {
		t.Errorf("expected dictionary hit, got %v", got["name_char"])
	}
	if remote.calls != 0 {
		t.Errorf("remote called %d times for a known word", remote.calls)
	}
	if len(queue.rows) != 0 {
		t.Errorf("known word must not be re-queued, got %v", queue.rows)
	}
}
