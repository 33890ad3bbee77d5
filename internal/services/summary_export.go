package services

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"spendwise/internal/core"
)

const maxConcurrentSummaries = 4

// ExportReport tells what a SummaryExportJob wrote.
type ExportReport struct {
	Months []string
	Rows   int
}

// SummaryExportJob computes the summaries of several months and hands them to
// an exporter in month order.
type SummaryExportJob struct {
	summarizer *MonthSummarizer
	exporter   SummaryExporter
}

func NewSummaryExportJob(summarizer *MonthSummarizer, exporter SummaryExporter) *SummaryExportJob {
	return &SummaryExportJob{summarizer: summarizer, exporter: exporter}
}

// Run summarizes every month concurrently, then exports them one by one. No
// month is exported unless every summary succeeded.
func (j *SummaryExportJob) Run(ctx context.Context, ownerID string, months []string) (ExportReport, error) {
	if len(months) == 0 {
		return ExportReport{}, core.NewValidationError("month", fmt.Errorf("%w: no month to export", core.ErrInvalidMonth))
	}
	for _, m := range months {
		if _, err := core.ParseMonth(m); err != nil {
			return ExportReport{}, err
		}
	}

	summaries := make([]core.SummaryResult, len(months))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentSummaries)
	for i, m := range months {
		g.Go(func() error {
			s, err := j.summarizer.Summarize(gctx, ownerID, m)
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ExportReport{}, err
	}

	var report ExportReport
	for _, s := range summaries {
		n, err := j.exporter.ExportSummary(ctx, ownerID, s)
		if err != nil {
			return report, fmt.Errorf("export %s: %w", s.Month, err)
		}
		report.Months = append(report.Months, s.Month)
		report.Rows += n
		slog.InfoContext(ctx, "Month exported", "owner_id", ownerID, "month", s.Month, "rows", n)
	}
	return report, nil
}
