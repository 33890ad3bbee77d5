// Command summary-export computes the monthly summaries of one owner and
// appends them to a Google Sheet.
//
//	summary-export -owner U1 -month 2024-03
//	summary-export -owner U1 -recent 6 -dry-run
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"spendwise/internal/backend"
	"spendwise/internal/cli"
	"spendwise/internal/config"
	"spendwise/internal/core"
	"spendwise/internal/services"
	"spendwise/internal/sheets/google"
	sheetmem "spendwise/internal/sheets/memory"
)

func main() {
	owner := flag.String("owner", "", "owner id whose summaries are exported")
	monthList := flag.String("month", "", "comma-separated YYYY-MM months")
	recent := flag.Int("recent", 0, "export the last N months, current month included")
	dryRun := flag.Bool("dry-run", false, "print the rows instead of writing the sheet")
	flag.Parse()

	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))

	validate := (*config.Config).ValidateExport
	if *dryRun {
		validate = (*config.Config).ValidateStore
	}
	cfg := cli.LoadAndValidateConfig(logger, validate)

	months := selectMonths(*monthList, *recent, time.Now())
	if *owner == "" || len(months) == 0 {
		fmt.Fprintln(os.Stderr, "usage: summary-export -owner ID (-month YYYY-MM[,YYYY-MM] | -recent N) [-dry-run]")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	// Change events are not needed for a read-only export.
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	var exporter services.SummaryExporter
	var recorder *sheetmem.Exporter
	if *dryRun {
		recorder = sheetmem.NewExporter()
		exporter = recorder
	} else {
		client, err := google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSummarySheetName,
			CredentialsFile: cfg.GoogleCredentialsFile,
			CredentialsJSON: cfg.GoogleCredentialsJSON,
		})
		if err != nil {
			logger.Error("Failed to initialize Google Sheets client", "error", err)
			os.Exit(1)
		}
		exporter = client
	}

	summarizer := services.NewMonthSummarizer(res.Store, services.NewCategoryResolver(res.Store))
	report, err := services.NewSummaryExportJob(summarizer, exporter).Run(ctx, *owner, months)
	if err != nil {
		logger.Error("Export failed", "error", err, "owner_id", *owner)
		os.Exit(1)
	}

	if recorder != nil {
		for _, row := range recorder.Rows() {
			fmt.Println(strings.Join(row, "\t"))
		}
	}
	logger.Info("Export complete",
		"owner_id", *owner,
		"months", report.Months,
		"rows", report.Rows,
		"dry_run", *dryRun)
}

// selectMonths prefers explicit months over -recent.
func selectMonths(list string, recent int, now time.Time) []string {
	var months []string
	for _, m := range strings.Split(list, ",") {
		if m = strings.TrimSpace(m); m != "" {
			months = append(months, m)
		}
	}
	if len(months) > 0 {
		return months
	}
	for _, m := range core.RecentMonths(now, recent) {
		months = append(months, m.String())
	}
	return months
}
