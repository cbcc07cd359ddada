// Package processor composes one extraction run: extract the record,
// append it to the user's spreadsheet, and finalize the usage log.
package processor

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/invoicetosheet/ocr-service/internal/models"
)

// Extractor is an extraction backend. Both the local pipeline
// (internal/ocr) and the AI-vision backend (internal/ai) satisfy it.
type Extractor interface {
	Extract(ctx context.Context, data []byte, filename, contentType string) (*models.InvoiceRecord, *models.ProcessingStats, error)
}

// SheetWriter appends a record to a spreadsheet and returns the
// destination tab name.
type SheetWriter interface {
	AppendInvoice(ctx context.Context, spreadsheetID string, record *models.InvoiceRecord) (string, error)
}

// UsageRecorder finalizes the usage-log row created before the run.
type UsageRecorder interface {
	MarkSuccess(ctx context.Context, extractedJSON string, elapsedMS int64, tokens int) error
	MarkFailed(ctx context.Context, message string, elapsedMS int64) error
}

// Job is one upload to process.
type Job struct {
	Data        []byte
	Filename    string
	ContentType string

	// SheetID is the target spreadsheet; Sheets is authorized for the
	// uploading user. Both may be unset when sheet delivery is disabled.
	SheetID string
	Sheets  SheetWriter

	// Usage may be nil when the service runs without persistence.
	Usage UsageRecorder
}

// Processor runs jobs against a fixed extraction backend.
type Processor struct {
	extractor Extractor
	backend   string
}

// New builds a processor. backend is the name reported in results
// ("ocr" or "ai").
func New(extractor Extractor, backend string) *Processor {
	return &Processor{extractor: extractor, backend: backend}
}

// Process runs the full pipeline for one job. The returned error keeps
// its extraction sentinel type so the HTTP boundary can map it; the
// usage log is finalized either way.
func (p *Processor) Process(ctx context.Context, job Job) (*models.ProcessResult, error) {
	start := time.Now()

	record, stats, err := p.extractor.Extract(ctx, job.Data, job.Filename, job.ContentType)
	if err != nil {
		p.markFailed(ctx, job, err, start)
		return nil, err
	}

	var tabName string
	if job.Sheets != nil && job.SheetID != "" {
		tabName, err = job.Sheets.AppendInvoice(ctx, job.SheetID, record)
		if err != nil {
			p.markFailed(ctx, job, err, start)
			return nil, err
		}
	}

	elapsed := time.Since(start).Milliseconds()
	if job.Usage != nil {
		extractedJSON := "{}"
		if b, merr := json.Marshal(record); merr == nil {
			extractedJSON = string(b)
		}
		tokens := 0
		if stats != nil {
			tokens = stats.TotalTokens
		}
		if uerr := job.Usage.MarkSuccess(ctx, extractedJSON, elapsed, tokens); uerr != nil {
			log.Warn().Err(uerr).Msg("failed to finalize usage log")
		}
	}

	return &models.ProcessResult{
		Success:          true,
		Record:           record,
		Stats:            stats,
		TabName:          tabName,
		ProcessingTimeMS: elapsed,
		Backend:          p.backend,
	}, nil
}

func (p *Processor) markFailed(ctx context.Context, job Job, cause error, start time.Time) {
	if job.Usage == nil {
		return
	}
	elapsed := time.Since(start).Milliseconds()
	if err := job.Usage.MarkFailed(ctx, cause.Error(), elapsed); err != nil {
		log.Warn().Err(err).Msg("failed to finalize usage log")
	}
}
