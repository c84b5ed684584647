package scheduler

import (
	"context"
	"time"

	"github.com/lutivix/financeiro/internal/pipeline"
	"github.com/lutivix/financeiro/internal/report"
)

// IngestJob runs one full pipeline pass.
type IngestJob struct {
	Pipeline *pipeline.Pipeline
	Options  pipeline.Options
	Timeout  time.Duration
}

func (j *IngestJob) Name() string { return "ingest" }

func (j *IngestJob) Run() error {
	timeout := j.Timeout
	if timeout == 0 {
		timeout = 10 * time.Minute
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := j.Pipeline.Run(ctx, j.Options)
	return err
}

// ReportJob regenerates the spending workbook.
type ReportJob struct {
	Generator *report.Generator
}

func (j *ReportJob) Name() string { return "report" }

func (j *ReportJob) Run() error {
	_, err := j.Generator.Generate()
	return err
}
