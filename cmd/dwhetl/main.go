package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"golang.org/x/exp/slices"

	"github.com/clinregistry/dwhetl/batch"
	"github.com/clinregistry/dwhetl/catalog"
	"github.com/clinregistry/dwhetl/config"
	"github.com/clinregistry/dwhetl/dwh"
	"github.com/clinregistry/dwhetl/encounter"
	"github.com/clinregistry/dwhetl/exceptions"
	"github.com/clinregistry/dwhetl/processor"
	"github.com/clinregistry/dwhetl/progress"
	"github.com/clinregistry/dwhetl/translate"
)

func main() {
	rebuildEncounters := flag.Bool("rebuild-encounters", false,
		"recreate the encounters table from the source tables' Entry_Date columns before processing")
	flag.Parse()

	startTime := time.Now()
	log := zerolog.New(zerolog.NewConsoleWriter(func(w *zerolog.ConsoleWriter) { w.Out = os.Stdout })).With().Timestamp().Caller().Logger()

	if err := godotenv.Load(".env"); err != nil {
		log.Debug().Msg("No .env file found, using environment as-is")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	warehouse, err := dwh.Connect(cfg.WarehouseDSN(), log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to the data warehouse")
	}

	cat, err := catalog.NewRepository(warehouse, log).Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load the data catalog")
	}

	tables, err := pullSourceTables(cfg, cat, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to pull source tables")
	}
	log.Info().Int("tables", len(tables)).Msg("Original tables received")

	if *rebuildEncounters {
		byName := make(map[string]*dwh.ResultSet, len(tables))
		for _, table := range tables {
			byName[table.Name] = table.Data
		}
		if err := encounter.Rebuild(warehouse, byName, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to rebuild encounters")
		}
	}

	totalRows := 0
	for _, table := range tables {
		totalRows += len(table.Data.Rows)
	}

	reporter := progress.NewReporter(totalRows)
	writer := batch.NewWriter(warehouse, reporter, log)
	recorder := exceptions.NewRecorder(cfg.LogDir, writer, reporter, log)
	client := translate.NewClient(cfg.TranslatorEndpoint, cfg.TranslatorKey, cfg.TranslatorLocation, log)
	translator := translate.NewCache(warehouse, client, writer, log)
	registrar := encounter.NewRegistrar(warehouse, writer, log)

	proc := processor.New(log, warehouse, cat, translator, registrar, writer, recorder, reporter,
		cfg.SourceSystem, cfg.UploadID)
	if err := proc.Run(tables); err != nil {
		log.Fatal().Err(err).Msg("Run aborted")
	}

	if err := warehouse.Dispose(); err != nil {
		log.Error().Err(err).Msg("Failed to dispose the warehouse engine")
	}
	log.Info().Dur("duration", time.Since(startTime)).Msg("Run complete")
}

// pullSourceTables fetches every registry table the catalog references,
// excluding soft-deleted rows when the table carries a Delete_Date column.
func pullSourceTables(cfg *config.Config, cat *catalog.Catalog, log zerolog.Logger) ([]processor.SourceTable, error) {
	registry, err := dwh.Connect(cfg.RegistryDSN(), log)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the registry database: %w", err)
	}
	defer registry.Dispose()

	var tables []processor.SourceTable
	for _, name := range cat.SourceTables() {
		columns, err := registry.GetColumns(name)
		if err != nil {
			return nil, err
		}
		query := fmt.Sprintf("SELECT * FROM %s", pq.QuoteIdentifier(name))
		if slices.Contains(columns, "Delete_Date") {
			query += ` WHERE "Delete_Date" IS NULL`
		}
		data, err := registry.FetchRows(query)
		if err != nil {
			return nil, err
		}
		tables = append(tables, processor.SourceTable{Name: name, Data: data})
	}
	return tables, nil
}
