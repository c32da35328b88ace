package catalog

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/clinregistry/dwhetl/dwh"
)

// Rows flagged for ignore or standby, or with an incomplete target, never
// take part in a run.
const catalogQuery = `SELECT * FROM data_catalog
	WHERE sw_ignore = 0 AND stand_by = 0
	AND target_table IS NOT NULL AND target_column IS NOT NULL`

// Repository loads the data catalog from the warehouse.
type Repository struct {
	store dwh.Store
	log   zerolog.Logger
}

func NewRepository(store dwh.Store, log zerolog.Logger) *Repository {
	return &Repository{store: store, log: log}
}

// Load fetches the relevant catalog rows, sorted by target table.
func (repo *Repository) Load() (*Catalog, error) {
	result, err := repo.store.FetchRows(catalogQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to load data catalog: %w", err)
	}

	rules := make([]Rule, 0, len(result.Rows))
	for _, row := range result.Rows {
		rule := Rule{
			SourceTable:  row.Get("table_name").Text,
			SourceColumn: row.Get("column_name").Text,
			TargetTable:  row.Get("target_table").Text,
			TargetColumn: row.Get("target_column").Text,
			ConceptCode:  row.Get("concept_cd"),
			ModifierCode: row.Get("modifier_cd"),
		}
		if rule.SourceTable == "" || rule.SourceColumn == "" {
			return nil, fmt.Errorf("malformed catalog row: %v", row)
		}
		rules = append(rules, rule)
	}

	slices.SortStableFunc(rules, func(a, b Rule) int {
		switch {
		case a.TargetTable < b.TargetTable:
			return -1
		case a.TargetTable > b.TargetTable:
			return 1
		default:
			return 0
		}
	})

	repo.log.Info().
		Int("rules", len(rules)).
		Msg("Data catalog received")
	return New(rules), nil
}
