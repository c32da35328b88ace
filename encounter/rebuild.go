package encounter

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/rowmap"
)

// Rebuild recreates the encounters table from scratch: it collects every
// Entry_Date across the pulled source tables, deduplicates and sorts the
// dates, and saves them with encounter numbers 1..N. Meant as a one-off
// maintenance step before a run, not part of normal processing.
func Rebuild(store dwh.Store, tables map[string]*dwh.ResultSet, log zerolog.Logger) error {
	seen := make(map[string]bool)
	var dates []string
	for _, table := range tables {
		if !slices.Contains(table.Columns, "Entry_Date") {
			continue
		}
		for _, row := range table.Rows {
			key, ok := dateKey(row.Get("Entry_Date"))
			if !ok || seen[key] {
				continue
			}
			seen[key] = true
			dates = append(dates, key)
		}
	}
	slices.Sort(dates)

	rows := make([]rowmap.Row, len(dates))
	for i, date := range dates {
		rows[i] = rowmap.Row{
			"date":          rowmap.Text(date),
			"encounter_num": rowmap.Number(float64(i + 1)),
		}
	}
	if err := store.SaveRows(rows, "encounters"); err != nil {
		return fmt.Errorf("failed to rebuild encounters: %w", err)
	}
	log.Info().
		Int("encounters", len(rows)).
		Msg("Encounters table updated")
	return nil
}
