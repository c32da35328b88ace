// Package catalog loads and indexes the data catalog: the declarative rules
// describing how registry columns map onto warehouse columns.
package catalog

import (
	"github.com/clinregistry/dwhetl/rowmap"
)

// NoModifier is the sentinel modifier code marking a rule whose source field
// is merged into the in-flight row when present, instead of producing an
// independent fact row.
const NoModifier = "@"

// Rule is one row of the data catalog.
type Rule struct {
	SourceTable  string
	SourceColumn string
	TargetTable  string
	TargetColumn string
	ConceptCode  rowmap.Value
	ModifierCode rowmap.Value
}

// IsMandatory reports whether the rule maps a field that must be present in
// the source row. A rule carrying neither concept nor modifier code is
// unconditional.
func (r Rule) IsMandatory() bool {
	return r.ConceptCode.IsNull() && r.ModifierCode.IsNull()
}

// IsMerge reports whether the rule contributes an optional merged field.
func (r Rule) IsMerge() bool {
	return r.ModifierCode.Kind == rowmap.KindText && r.ModifierCode.Text == NoModifier
}

// IsFanOut reports whether the rule produces an independent fact row.
func (r Rule) IsFanOut() bool {
	return !r.ModifierCode.IsNull() && !r.IsMerge()
}

// Catalog indexes the loaded rules. Rules are read-only after Load.
type Catalog struct {
	rules []Rule
}

func New(rules []Rule) *Catalog {
	return &Catalog{rules: rules}
}

// SourceTables returns the distinct source table names, in first-seen order.
func (c *Catalog) SourceTables() []string {
	return c.distinct(func(r Rule) string { return r.SourceTable })
}

// TargetTables returns the distinct target tables fed by sourceTable, in
// first-seen order. The repository sorts rules by target table on load, so
// the order is stable across runs.
func (c *Catalog) TargetTables(sourceTable string) []string {
	return c.distinct(func(r Rule) string {
		if r.SourceTable != sourceTable {
			return ""
		}
		return r.TargetTable
	})
}

// RulesFor returns the rules mapping sourceTable into targetTable.
func (c *Catalog) RulesFor(sourceTable, targetTable string) []Rule {
	var out []Rule
	for _, r := range c.rules {
		if r.SourceTable == sourceTable && r.TargetTable == targetTable {
			out = append(out, r)
		}
	}
	return out
}

func (c *Catalog) distinct(key func(Rule) string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, r := range c.rules {
		k := key(r)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
