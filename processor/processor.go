// Package processor drives the run: for every registry row it decides which
// warehouse tables receive derived rows, assembles them from the catalog
// rules, and hands them to the batch writer. Recoverable failures go to the
// exception recorder without stopping the run.
package processor

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/clinregistry/dwhetl/batch"
	"github.com/clinregistry/dwhetl/catalog"
	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/encounter"
	"github.com/clinregistry/dwhetl/exceptions"
	"github.com/clinregistry/dwhetl/fault"
	"github.com/clinregistry/dwhetl/progress"
	"github.com/clinregistry/dwhetl/rowmap"
	"github.com/clinregistry/dwhetl/translate"
)

const (
	conceptDimension = "concept_dimension"
	patientDimension = "patient_dimension"
	observationFact  = "observation_fact"
)

// SourceTable is one pulled registry table with its rows.
type SourceTable struct {
	Name string
	Data *dwh.ResultSet
}

// Processor owns all run-scoped state; nothing here is ambient or static.
type Processor struct {
	log        zerolog.Logger
	store      dwh.Store
	catalog    *catalog.Catalog
	translator *translate.Cache
	encounters *encounter.Registrar
	batch      *batch.Writer
	recorder   *exceptions.Recorder
	reporter   *progress.Reporter

	sourceSystem string
	uploadID     int
}

func New(
	log zerolog.Logger,
	store dwh.Store,
	cat *catalog.Catalog,
	translator *translate.Cache,
	encounters *encounter.Registrar,
	writer *batch.Writer,
	recorder *exceptions.Recorder,
	reporter *progress.Reporter,
	sourceSystem string,
	uploadID int,
) *Processor {
	return &Processor{
		log:          log,
		store:        store,
		catalog:      cat,
		translator:   translator,
		encounters:   encounters,
		batch:        writer,
		recorder:     recorder,
		reporter:     reporter,
		sourceSystem: sourceSystem,
		uploadID:     uploadID,
	}
}

// Run processes every source table row by row and drains the batch queues
// when done. Any error returned here is unrecoverable and should abort the
// process; recoverable row-level failures have already been recorded.
func (p *Processor) Run(tables []SourceTable) error {
	p.reporter.RunStarted()
	for _, table := range tables {
		p.reporter.TableStarted(table.Name, len(table.Data.Rows))
		p.log.Info().
			Str("table", table.Name).
			Int("rows", len(table.Data.Rows)).
			Msg("Processing source table")
		for _, row := range table.Data.Rows {
			if err := p.processRow(table, row); err != nil {
				return fmt.Errorf("processing %s: %w", table.Name, err)
			}
			p.reporter.RowProcessed()
		}
		p.reporter.TableEnded(table.Name)
	}
	if err := p.batch.FlushAll(); err != nil {
		return err
	}
	p.reporter.RunEnded()
	return nil
}

// processRow routes one source row to every warehouse table the catalog maps
// it to. A missing mandatory field skips only the current target table.
func (p *Processor) processRow(table SourceTable, row rowmap.Row) error {
	for _, target := range p.catalog.TargetTables(table.Name) {
		rules := p.catalog.RulesFor(table.Name, target)
		ctx := exceptions.Context{
			SourceTable:   table.Name,
			TargetTable:   target,
			SourceColumns: table.Data.Columns,
		}

		mandatory, err := p.mandatoryColumns(rules, row)
		if err != nil {
			if f, ok := fault.As(err); ok {
				if err := p.recorder.Record(ctx, row, rowmap.Row{}, f); err != nil {
					return err
				}
				continue
			}
			return err
		}

		switch target {
		case conceptDimension:
			err = p.processConcept(ctx, mandatory, row)
		case patientDimension:
			err = p.processPatient(ctx, mandatory, row, rules)
		case observationFact:
			err = p.processObservation(ctx, mandatory, row, rules)
		default:
			p.log.Warn().
				Str("target_table", target).
				Msg("Catalog maps to an unknown target table")
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// translateValidateEnqueue is the shared tail of every transformer: pass the
// row through the dictionary, check NOT-NULL completeness, queue on success,
// record on validation failure.
func (p *Processor) translateValidateEnqueue(ctx exceptions.Context, row, sourceRow rowmap.Row) error {
	translated, err := p.translator.TranslateRow(row)
	if err != nil {
		return err
	}
	if err := p.validateRow(translated, ctx.TargetTable); err != nil {
		if f, ok := fault.As(err); ok {
			return p.recorder.Record(ctx, sourceRow, translated, f)
		}
		return err
	}
	return p.batch.Enqueue(translated, ctx.TargetTable)
}
