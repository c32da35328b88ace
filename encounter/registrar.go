// Package encounter assigns the date-keyed encounter numbers the fact table
// requires to group observations into care events.
package encounter

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/rowmap"
)

const dateLayout = "2006-01-02"

// RowQueue receives newly created encounter rows for persistence.
type RowQueue interface {
	Enqueue(row rowmap.Row, table string) error
}

// Registrar maintains the date to encounter_num mapping. The encounters
// table is loaded lazily on first use; ids for unseen dates are assigned as
// max(existing)+1. Single-threaded use assumed.
type Registrar struct {
	store dwh.Store
	queue RowQueue
	log   zerolog.Logger

	byDate map[string]int64
	maxID  int64
	loaded bool
}

func NewRegistrar(store dwh.Store, queue RowQueue, log zerolog.Logger) *Registrar {
	return &Registrar{
		store:  store,
		queue:  queue,
		log:    log,
		byDate: make(map[string]int64),
	}
}

// Assign returns the encounter number for date, creating and queueing a new
// encounters row when the date has not been seen before.
func (r *Registrar) Assign(date time.Time) (int64, error) {
	if !r.loaded {
		if err := r.load(); err != nil {
			return 0, err
		}
	}

	key := date.Format(dateLayout)
	if id, ok := r.byDate[key]; ok {
		return id, nil
	}

	id := r.maxID + 1
	r.maxID = id
	r.byDate[key] = id

	day, _ := time.Parse(dateLayout, key)
	entry := rowmap.Row{
		"date":          rowmap.Time(day),
		"encounter_num": rowmap.Number(float64(id)),
	}
	if err := r.queue.Enqueue(entry, "encounters"); err != nil {
		return 0, err
	}
	r.log.Debug().
		Str("date", key).
		Int64("encounter_num", id).
		Msg("New encounter created")
	return id, nil
}

func (r *Registrar) load() error {
	result, err := r.store.FetchRows("SELECT date, encounter_num FROM encounters")
	if err != nil {
		return fmt.Errorf("failed to load encounters: %w", err)
	}
	for _, row := range result.Rows {
		key, ok := dateKey(row.Get("date"))
		if !ok {
			continue
		}
		id := int64(row.Get("encounter_num").Number)
		r.byDate[key] = id
		if id > r.maxID {
			r.maxID = id
		}
	}
	r.loaded = true
	r.log.Debug().
		Int("encounters", len(r.byDate)).
		Msg("Encounters table loaded")
	return nil
}

func dateKey(v rowmap.Value) (string, bool) {
	switch v.Kind {
	case rowmap.KindTime:
		return v.Time.Format(dateLayout), true
	case rowmap.KindText:
		if t, err := time.Parse(dateLayout, v.Text); err == nil {
			return t.Format(dateLayout), true
		}
	}
	return "", false
}
