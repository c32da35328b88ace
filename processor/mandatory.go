package processor

import (
	"time"

	"github.com/clinregistry/dwhetl/catalog"
	"github.com/clinregistry/dwhetl/fault"
	"github.com/clinregistry/dwhetl/rowmap"
)

// mandatoryColumns seeds the system-computed columns and copies every field
// an unconditional catalog rule names, renamed to its target column. A null
// or absent source field fails the whole (source row, target table) pair
// with a mandatory-field fault.
func (p *Processor) mandatoryColumns(rules []catalog.Rule, row rowmap.Row) (rowmap.Row, error) {
	now := rowmap.Time(time.Now())
	mandatory := rowmap.Row{
		"update_date":     now,
		"download_date":   now,
		"import_date":     now,
		"sourcesystem_cd": rowmap.Text(p.sourceSystem),
		"upload_id":       rowmap.Number(float64(p.uploadID)),
	}
	for _, rule := range rules {
		if !rule.IsMandatory() {
			continue
		}
		value := row.Get(rule.SourceColumn)
		if value.IsNull() {
			return nil, fault.MandatoryFieldMissing(rule.SourceColumn)
		}
		mandatory[rule.TargetColumn] = value
	}
	return mandatory, nil
}
