package ocr

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/invoicetosheet/ocr-service/internal/extract"
	"github.com/invoicetosheet/ocr-service/internal/models"
	"github.com/invoicetosheet/ocr-service/internal/services"
)

// receiptAcceptChars is the minimum trimmed yield at which the primary
// engine's result is accepted without falling back.
const receiptAcceptChars = 10

// embeddedTextMinChars decides whether a PDF's text layer is real
// content or just a few stray glyphs on an otherwise scanned document.
const embeddedTextMinChars = 50

// Service turns uploaded invoice and receipt files into structured
// records. It owns the full pipeline: classification, quality gating,
// geometry correction, text recognition and field extraction.
type Service struct {
	cfg       models.OCRConfig
	engines   []Engine
	extractor *extract.Extractor
}

// NewService builds a Service with the default engine chain for the
// configured language. Rule tables from the config overlay the shipped
// defaults; tables the config omits stay at their default values.
func NewService(cfg models.OCRConfig) *Service {
	rules := extract.DefaultRules()
	if !cfg.Rules.IsZero() {
		if err := cfg.Rules.Decode(rules); err != nil {
			log.Warn().Err(err).Msg("invalid extraction rules in config, using defaults")
		}
	}
	return &Service{
		cfg:       cfg,
		engines:   EnginesFor(cfg.Language),
		extractor: extract.New(rules),
	}
}

// Extract processes one uploaded file into a validated invoice record.
// The returned stats are valid even on some failures (pages processed
// before the error, recognition timing).
func (s *Service) Extract(ctx context.Context, data []byte, filename, contentType string) (*models.InvoiceRecord, *models.ProcessingStats, error) {
	stats := &models.ProcessingStats{}

	fileType, err := ClassifyFile(filename, contentType, data)
	if err != nil {
		return nil, stats, err
	}

	start := time.Now()
	var text string
	switch fileType {
	case FileTypePDF:
		text, err = s.textFromPDF(ctx, data, stats)
	default:
		text, err = s.textFromImage(ctx, data, filename, stats)
	}
	stats.OCRDuration = time.Since(start).Seconds()
	if err != nil {
		return nil, stats, err
	}

	if strings.TrimSpace(text) == "" {
		return nil, stats, ErrRecognitionFailed
	}

	record := s.extractor.Extract(text)
	services.ValidateAndNormalize(record)

	log.Info().
		Str("file", filename).
		Str("document_type", string(record.DocumentType)).
		Str("engine", stats.Engine).
		Int("pages", stats.PagesProcessed).
		Bool("validation_error", record.ValidationError).
		Msg("extraction complete")

	return record, stats, nil
}

func (s *Service) textFromImage(ctx context.Context, data []byte, filename string, stats *models.ProcessingStats) (string, error) {
	img, err := DecodeImage(data, filename)
	if err != nil {
		return "", ErrUnsupportedInput
	}

	text, err := s.recognizePage(ctx, img, stats)
	if err != nil {
		return "", err
	}
	stats.PagesProcessed = 1
	return text, nil
}

// recognizePage runs the per-page pipeline on one image: quality gate,
// geometry normalization, then the engine chain. Rasterized PDF pages
// go through the same gate as direct photo uploads.
func (s *Service) recognizePage(ctx context.Context, img image.Image, stats *models.ProcessingStats) (string, error) {
	if !s.cfg.SkipQualityGate {
		if qerr := CheckQuality(img); qerr != nil {
			return "", qerr
		}
	}

	prepared := PrepareForRecognition(img)
	png, err := EncodePNG(prepared)
	if err != nil {
		return "", err
	}
	return s.recognize(ctx, png, stats)
}

func (s *Service) textFromPDF(ctx context.Context, data []byte, stats *models.ProcessingStats) (string, error) {
	// Digital PDFs carry their own text layer; recognition is only for
	// scans.
	if text, pages, err := ExtractEmbeddedText(data, s.cfg.MaxPages); err == nil {
		if len(strings.TrimSpace(text)) >= embeddedTextMinChars {
			stats.PagesProcessed = pages
			stats.Engine = "embedded-text"
			return text, nil
		}
	} else {
		log.Warn().Err(err).Msg("embedded text extraction failed, rasterizing")
	}

	images, err := RasterizePages(data, s.cfg.MaxPages, s.cfg.RenderDPI)
	if err != nil {
		return "", ErrUnsupportedInput
	}

	var sb strings.Builder
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		text, err := s.recognizePage(ctx, img, stats)
		if err != nil {
			return "", err
		}
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(text)
		stats.PagesProcessed++
	}
	return sb.String(), nil
}

// recognize runs the engine chain: the first engine whose result clears
// its acceptance bar wins. The receipt-tuned engine needs more than a
// handful of characters to be trusted; the document engine's result is
// taken as-is since it is the last resort.
func (s *Service) recognize(ctx context.Context, png []byte, stats *models.ProcessingStats) (string, error) {
	available := 0
	var best string
	var bestEngine string

	for i, engine := range s.engines {
		if !engine.Available() {
			continue
		}
		available++

		text, err := engine.Recognize(ctx, png)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Warn().Err(err).Str("engine", engine.Name()).Msg("recognition attempt failed")
			continue
		}

		trimmed := strings.TrimSpace(text)
		last := i == len(s.engines)-1
		if len(trimmed) > receiptAcceptChars || (last && trimmed != "") {
			stats.Engine = engine.Name()
			return text, nil
		}
		if len(trimmed) > len(strings.TrimSpace(best)) {
			best, bestEngine = text, engine.Name()
		}
	}

	if available == 0 {
		return "", ErrRecognitionUnavailable
	}
	if strings.TrimSpace(best) == "" {
		return "", ErrRecognitionFailed
	}
	stats.Engine = bestEngine
	return best, nil
}
