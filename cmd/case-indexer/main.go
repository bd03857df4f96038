// Package main is the batch reference-case indexer. It ingests resolved
// cases from a CSV file, or re-indexes every stored reference case after
// an encoder or schema change.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"biocup-api/internal/config"
	"biocup-api/internal/domain/entity"
	"biocup-api/internal/infrastructure/persistence/postgres"
	"biocup-api/internal/wire"
	"biocup-api/pkg/logger"
)

const listPageSize = 200

func main() {
	var (
		csvPath = flag.String("csv", "", "CSV file with columns case_id,primary_site,cancer_type,cancer_subtype,patient_id,report_text")
		reindex = flag.Bool("reindex", false, "re-index every stored reference case instead of ingesting a CSV")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Init(
		cfg.Observability.Logging.Level,
		cfg.Observability.Logging.Format,
	)

	ctx := context.Background()

	if *csvPath == "" && !*reindex {
		fmt.Println("usage: case-indexer -csv <file> | case-indexer -reindex")
		os.Exit(2)
	}

	app, cleanup, err := wire.InitializeIndexerApp(ctx, cfg)
	if err != nil {
		logger.Fatal(ctx, "failed to initialize indexer", err)
	}
	defer cleanup()

	if *reindex {
		if err := reindexAll(ctx, app); err != nil {
			logger.Fatal(ctx, "reindex failed", err)
		}
		return
	}

	if err := ingestCSV(ctx, app, *csvPath); err != nil {
		logger.Fatal(ctx, "csv ingestion failed", err)
	}
}

// ingestCSV stores and indexes each row as a resolved reference case.
// Rows that fail are logged and skipped.
func ingestCSV(ctx context.Context, app *wire.App, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open csv: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return fmt.Errorf("failed to read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, required := range []string{"case_id", "primary_site", "report_text"} {
		if _, ok := col[required]; !ok {
			return fmt.Errorf("csv is missing required column %q", required)
		}
	}

	var ingested, failed int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return fmt.Errorf("failed to read csv row: %w", err)
		}

		site := field(record, col, "primary_site")
		report := &entity.PathologyReport{
			CaseID:        field(record, col, "case_id"),
			PatientID:     field(record, col, "patient_id"),
			RawText:       field(record, col, "report_text"),
			PrimarySite:   &site,
			CancerType:    field(record, col, "cancer_type"),
			CancerSubtype: field(record, col, "cancer_subtype"),
		}

		if _, _, err := app.Service.CreateReference(ctx, report); err != nil {
			logger.Warn(ctx, "failed to ingest reference case",
				"case_id", report.CaseID, "error", err.Error())
			failed++
			continue
		}
		ingested++
	}

	logger.Info(ctx, "csv ingestion finished", "ingested", ingested, "failed", failed)
	if ingested == 0 && failed > 0 {
		return fmt.Errorf("all %d rows failed", failed)
	}
	return nil
}

// reindexAll walks every stored reference case and rebuilds its points.
func reindexAll(ctx context.Context, app *wire.App) error {
	reports := postgres.NewReportRepo(app.PgClient)

	var total, failed int
	for offset := 0; ; offset += listPageSize {
		page, err := reports.ListReference(ctx, listPageSize, offset)
		if err != nil {
			return err
		}
		if len(page) == 0 {
			break
		}

		indexed, pageFailed, err := app.Indexer.IndexReports(ctx, page)
		if err != nil {
			return err
		}
		total += indexed
		failed += pageFailed
	}

	logger.Info(ctx, "reindex finished", "indexed", total, "failed", failed)
	if total == 0 && failed > 0 {
		return fmt.Errorf("all %d reference cases failed", failed)
	}
	return nil
}

func field(record []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}
