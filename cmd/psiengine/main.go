// Command psiengine drives one batch evaluation of the PSI 05-15
// rules engine end to end: config, record/appendix ingestion, the
// evaluator fan-out, and result output (spec.md §4.L).
package main

import (
	"context"
	_ "embed"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"psiengine/internal/appendixio"
	"psiengine/internal/batch"
	"psiengine/internal/codeset"
	"psiengine/internal/config"
	"psiengine/internal/encounter"
	"psiengine/internal/psi"
	"psiengine/internal/recordio"
	"psiengine/internal/resultio"
)

//go:embed sql/schema.sql
var schema string

func main() {
	configPath := flag.String("config", "", "YAML batch config file")
	inputPath := flag.String("input", "", "Encounter record file (CSV or JSON), overrides config")
	appendixPath := flag.String("appendix", "", "Appendix code-set file (CSV or JSON), overrides config")
	outPath := flag.String("out", "", "Output Parquet path, overrides config")
	pgDSN := flag.String("pg", "", "PostgreSQL DSN, overrides config")
	initSchema := flag.Bool("init", false, "Create the PostgreSQL schema; exits unless -config or -input is also given")
	psiFilter := flag.String("psi", "", "Comma-separated PSI filter (e.g. PSI_05,PSI_08), overrides config")
	debug := flag.Bool("debug", false, "Enable debug_mode, overrides config")
	showExclusions := flag.Bool("show-exclusions", false, "Include Exclusion rows in output, overrides config")
	noTiming := flag.Bool("no-timing", false, "Disable validate_timing, overrides config")
	flag.Parse()

	ctx := context.Background()

	if *initSchema {
		if *pgDSN == "" {
			fmt.Fprintln(os.Stderr, "Usage: psiengine -init -pg 'postgres://...'")
			os.Exit(1)
		}
		if err := runInitSchema(ctx, *pgDSN); err != nil {
			log.Fatalf("schema init failed: %v", err)
		}
		log.Println("Schema initialized successfully")
		if *configPath == "" && *inputPath == "" {
			return
		}
	}

	cfg := loadConfig(*configPath, *inputPath, *appendixPath, *outPath, *pgDSN, *psiFilter, *debug, *showExclusions, *noTiming)

	if err := config.RequireSink(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "Usage: psiengine -config batch.yaml [-out results.parquet] [-pg dsn]")
		flag.PrintDefaults()
		log.Fatal(err)
	}

	if err := run(ctx, cfg); err != nil {
		log.Fatal(err)
	}
}

func loadConfig(configPath, inputPath, appendixPath, outPath, pgDSN, psiFilter string, debug, showExclusions, noTiming bool) *config.Config {
	var cfg *config.Config
	if configPath != "" {
		c, err := config.Load(configPath)
		if err != nil {
			log.Fatalf("loading config: %v", err)
		}
		cfg = c
	} else {
		cfg = &config.Config{ValidateTiming: true}
	}

	if inputPath != "" {
		cfg.InputPath = inputPath
	}
	if appendixPath != "" {
		cfg.AppendixPath = appendixPath
	}
	if outPath != "" {
		cfg.OutputParquetPath = outPath
	}
	if pgDSN != "" {
		cfg.PostgresDSN = pgDSN
	}
	if psiFilter != "" {
		cfg.SelectedPSIs = strings.Split(psiFilter, ",")
	}
	if debug {
		cfg.DebugMode = true
	}
	if showExclusions {
		cfg.ShowExclusions = true
	}
	if noTiming {
		cfg.ValidateTiming = false
	}
	if len(cfg.SelectedPSIs) == 0 {
		cfg.SelectedPSIs = []string{
			"PSI_05", "PSI_06", "PSI_07", "PSI_08", "PSI_09",
			"PSI_10", "PSI_11", "PSI_12", "PSI_13", "PSI_14", "PSI_15",
		}
	}
	return cfg
}

func runInitSchema(ctx context.Context, dsn string) error {
	sink, err := resultio.NewPostgresSink(ctx, dsn)
	if err != nil {
		return err
	}
	defer sink.Close(ctx)
	return resultio.InitSchema(ctx, sink.Pool(), schema)
}

func run(ctx context.Context, cfg *config.Config) error {
	start := time.Now()

	fmt.Printf("Input:    %s\n", cfg.InputPath)
	fmt.Printf("Appendix: %s\n", cfg.AppendixPath)
	fmt.Printf("PSIs:     %s\n", strings.Join(cfg.SelectedPSIs, ","))
	fmt.Println()

	columns, err := loadAppendix(cfg.AppendixPath)
	if err != nil {
		return fmt.Errorf("loading appendix: %w", err)
	}
	reg := codeset.NewRegistry(columns)
	if cfg.DebugMode {
		log.Printf("registry: loaded code sets from %s", cfg.AppendixPath)
	}

	rawRecords, err := loadRecords(cfg.InputPath)
	if err != nil {
		return fmt.Errorf("loading records: %w", err)
	}

	records := make([]*encounter.Encounter, len(rawRecords))
	for i, raw := range rawRecords {
		records[i] = encounter.Normalize(raw, i)
	}
	fmt.Printf("Encounters: %d\n", len(records))

	names := make([]psi.Name, 0, len(cfg.SelectedPSIs))
	for _, n := range cfg.SelectedPSIs {
		names = append(names, psi.Name(n))
	}

	out := batch.Run(records, reg, batch.Options{
		SelectedPSIs: names,
		Flags: psi.Flags{
			ValidateTiming: cfg.ValidateTiming,
			DebugMode:      cfg.DebugMode,
		},
		Workers: cfg.Workers,
	})

	if err := writeOutput(ctx, cfg, out); err != nil {
		return err
	}

	elapsed := time.Since(start)
	fmt.Println()
	fmt.Printf("Done in %s\n", elapsed.Round(time.Millisecond))
	fmt.Printf("  %-10s %8s %10s %10s %10s %12s\n", "PSI", "cases", "inclusion", "exclusion", "denom-only", "rate/1000")
	for _, s := range out.Summaries {
		fmt.Printf("  %-10s %8d %10d %10d %10d %12.2f\n",
			s.PSIName, s.TotalCases, s.Inclusions, s.Exclusions, s.DenominatorOnly, s.RatePer1000)
	}
	return nil
}

func loadAppendix(path string) (map[string][]string, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return appendixio.ReadJSON(path)
	}
	return appendixio.ReadCSV(path)
}

func loadRecords(path string) ([]encounter.RawRecord, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return recordio.ReadAllJSONRecords(path)
	}
	return recordio.ReadAllCSVRecords(path)
}

func writeOutput(ctx context.Context, cfg *config.Config, out batch.Output) error {
	if cfg.OutputParquetPath != "" {
		w, err := resultio.NewParquetWriter(cfg.OutputParquetPath)
		if err != nil {
			return err
		}
		for i, r := range out.Results {
			if r.Status == psi.Exclusion && !cfg.ShowExclusions {
				continue
			}
			if err := w.WriteResult(resultio.ToRow(out.RowIndex[i], r)); err != nil {
				w.Close()
				return err
			}
		}
		for _, s := range out.Summaries {
			w.WriteSummary(resultio.ToSummaryRow(s))
		}
		if err := w.Close(); err != nil {
			return err
		}
		fmt.Printf("Wrote %d result rows to %s\n", w.Count(), cfg.OutputParquetPath)
	}

	if cfg.PostgresDSN != "" {
		sink, err := resultio.NewPostgresSink(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		defer sink.Close(ctx)

		for i, r := range out.Results {
			if r.Status == psi.Exclusion && !cfg.ShowExclusions {
				continue
			}
			if err := sink.WriteResult(ctx, resultio.ToRow(out.RowIndex[i], r)); err != nil {
				return err
			}
		}
		summaryRows := make([]resultio.SummaryRow, len(out.Summaries))
		for i, s := range out.Summaries {
			summaryRows[i] = resultio.ToSummaryRow(s)
		}
		if err := sink.WriteSummaries(ctx, summaryRows); err != nil {
			return err
		}
		fmt.Printf("Wrote result rows to PostgreSQL\n")
	}

	return nil
}
