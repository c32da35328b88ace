package processor

import (
	"github.com/clinregistry/dwhetl/fault"
	"github.com/clinregistry/dwhetl/rowmap"
)

// validateRow checks that every NOT-NULL column of targetTable carries a
// value, failing on the first gap. The check uses the falsy test: empty
// strings and numeric zero count as missing (see rowmap.Value.IsMissing).
func (p *Processor) validateRow(row rowmap.Row, targetTable string) error {
	notNull, err := p.store.GetNotNullColumns(targetTable)
	if err != nil {
		return err
	}
	for _, col := range notNull {
		if !row.Has(col) || row.Get(col).IsMissing() {
			return fault.NotNullColumnMissing(col)
		}
	}
	return nil
}
