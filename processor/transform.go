package processor

import (
	"fmt"

	"github.com/clinregistry/dwhetl/catalog"
	"github.com/clinregistry/dwhetl/exceptions"
	"github.com/clinregistry/dwhetl/fault"
	"github.com/clinregistry/dwhetl/rowmap"
)

// processConcept builds the single concept_dimension candidate row: the
// concept description doubles as the display name.
func (p *Processor) processConcept(ctx exceptions.Context, mandatory, sourceRow rowmap.Row) error {
	if desc, ok := mandatory["concept_desc"]; ok {
		mandatory["name_char"] = desc
	}
	return p.translateValidateEnqueue(ctx, mandatory, sourceRow)
}

// processPatient merges every no-modifier rule's field into one row; patient
// rows do not fan out. Absent source fields are skipped, not errors.
func (p *Processor) processPatient(ctx exceptions.Context, mandatory, sourceRow rowmap.Row, rules []catalog.Rule) error {
	for _, rule := range rules {
		if !rule.IsMerge() {
			continue
		}
		if value := sourceRow.Get(rule.SourceColumn); !value.IsNull() {
			mandatory[rule.TargetColumn] = value
		}
	}
	return p.translateValidateEnqueue(ctx, mandatory, sourceRow)
}

// processObservation attaches the encounter number, then produces one
// candidate row per contributing catalog rule. A failure in one rule never
// touches its siblings.
func (p *Processor) processObservation(ctx exceptions.Context, mandatory, sourceRow rowmap.Row, rules []catalog.Rule) error {
	mandatory, err := p.attachEncounter(mandatory)
	if err != nil {
		return err
	}
	// TODO: merge catalog rules that share a concept_cd into one fact row.
	for _, rule := range rules {
		if !rule.IsMerge() {
			continue
		}
		if err := p.applyObservationRule(ctx, mandatory, sourceRow, rule); err != nil {
			return err
		}
	}
	for _, rule := range rules {
		if !rule.IsFanOut() {
			continue
		}
		if err := p.applyObservationRule(ctx, mandatory, sourceRow, rule); err != nil {
			return err
		}
	}
	return nil
}

// applyObservationRule builds one observation_fact candidate from base plus
// a single catalog rule. Returned errors are unrecoverable; rule-level
// failures are recorded and swallowed here.
func (p *Processor) applyObservationRule(ctx exceptions.Context, base, sourceRow rowmap.Row, rule catalog.Rule) error {
	newRow := base.Clone()

	value := sourceRow.Get(rule.SourceColumn)
	if value.IsNull() {
		return p.recorder.Record(ctx, sourceRow, newRow, fault.OriginalDataFieldMissing(rule.SourceColumn))
	}
	newRow[rule.TargetColumn] = value
	newRow["concept_cd"] = rule.ConceptCode
	newRow["modifier_cd"] = rule.ModifierCode

	// valtype_cd marks the value column in use; a text value wins when both
	// are somehow present.
	if newRow.Has("tval_char") {
		newRow["valtype_cd"] = rowmap.Text("t")
	} else if newRow.Has("nval_num") {
		newRow["valtype_cd"] = rowmap.Text("n")
	}

	return p.translateValidateEnqueue(ctx, newRow, sourceRow)
}

// attachEncounter sets encounter_num from the registrar, keyed by the date
// part of start_date. A row heading to observation_fact without a usable
// start_date is a catalog defect and aborts the run.
func (p *Processor) attachEncounter(mandatory rowmap.Row) (rowmap.Row, error) {
	start := mandatory.Get("start_date")
	if start.Kind != rowmap.KindTime {
		return nil, fmt.Errorf("observation_fact row has no start_date to assign an encounter from")
	}
	id, err := p.encounters.Assign(start.Time)
	if err != nil {
		return nil, err
	}
	mandatory["encounter_num"] = rowmap.Number(float64(id))
	return mandatory, nil
}
