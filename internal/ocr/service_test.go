package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/invoicetosheet/ocr-service/internal/extract"
	"github.com/invoicetosheet/ocr-service/internal/models"
)

type stubEngine struct {
	name      string
	available bool
	text      string
	err       error
	calls     int
}

func (s *stubEngine) Name() string    { return s.name }
func (s *stubEngine) Available() bool { return s.available }

func (s *stubEngine) Recognize(_ context.Context, _ []byte) (string, error) {
	s.calls++
	return s.text, s.err
}

func newTestService(engines ...Engine) *Service {
	return &Service{
		cfg:       models.OCRConfig{SkipQualityGate: true, MaxPages: 3, RenderDPI: 300},
		engines:   engines,
		extractor: extract.New(nil),
	}
}

func testImagePNG(t *testing.T) []byte {
	t.Helper()
	png, err := EncodePNG(checkerImage(50, 50, 0, 255))
	require.NoError(t, err)
	return png
}

// Rule tables set in the YAML config must reach the extractor, and
// tables the config omits fall back to the shipped defaults.
func TestNewServiceRulesFromConfig(t *testing.T) {
	doc := `
ocr:
  language: fra+eng
  skip_quality_gate: true
  rules:
    gross_total_labels: ["MONTANT DU"]
`
	var cfg models.Config
	require.NoError(t, yaml.Unmarshal([]byte(doc), &cfg))

	svc := NewService(cfg.OCR)
	rec := svc.extractor.Extract("MONTANT DU : 99,00 €\nTOTAL HT 82,50 €")

	assert.Equal(t, "99.00", rec.TotalTTC.StringFixed(2))
	// NetTotalLabels was omitted from the config and kept its defaults
	assert.Equal(t, "82.50", rec.TotalHT.StringFixed(2))
}

func TestNewServiceDefaultRules(t *testing.T) {
	svc := NewService(models.OCRConfig{Language: "fra+eng"})
	rec := svc.extractor.Extract("TOTAL TTC 12,50 €")
	assert.Equal(t, "12.50", rec.TotalTTC.StringFixed(2))
}

const recognizedInvoice = `FACTURE N° 77
Fourni par
Electra SAS
TOTAL HT 10,42 €
TVA 20% 2,08 €
TOTAL TTC 12,50 €`

func TestExtractUsesPrimaryEngine(t *testing.T) {
	primary := &stubEngine{name: "primary", available: true, text: recognizedInvoice}
	fallback := &stubEngine{name: "fallback", available: true, text: "should not run"}
	svc := newTestService(primary, fallback)

	rec, stats, err := svc.Extract(context.Background(), testImagePNG(t), "scan.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "primary", stats.Engine)
	assert.Equal(t, 1, stats.PagesProcessed)
	assert.Zero(t, fallback.calls)
	assert.Equal(t, models.DocumentInvoice, rec.DocumentType)
	assert.Equal(t, "Electra SAS", rec.ShopName)
	assert.Equal(t, "12.50", rec.TotalTTC.StringFixed(2))
	assert.False(t, rec.ValidationError)
}

func TestExtractFallsBackOnSparsePrimary(t *testing.T) {
	primary := &stubEngine{name: "primary", available: true, text: "x"}
	fallback := &stubEngine{name: "fallback", available: true, text: recognizedInvoice}
	svc := newTestService(primary, fallback)

	_, stats, err := svc.Extract(context.Background(), testImagePNG(t), "scan.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "fallback", stats.Engine)
	assert.Equal(t, 1, primary.calls)
}

func TestExtractSkipsUnavailableEngines(t *testing.T) {
	missing := &stubEngine{name: "missing", available: false}
	fallback := &stubEngine{name: "fallback", available: true, text: recognizedInvoice}
	svc := newTestService(missing, fallback)

	_, stats, err := svc.Extract(context.Background(), testImagePNG(t), "scan.png", "image/png")
	require.NoError(t, err)

	assert.Equal(t, "fallback", stats.Engine)
	assert.Zero(t, missing.calls)
}

func TestExtractNoEngineAvailable(t *testing.T) {
	svc := newTestService(&stubEngine{name: "missing", available: false})

	_, _, err := svc.Extract(context.Background(), testImagePNG(t), "scan.png", "image/png")
	assert.ErrorIs(t, err, ErrRecognitionUnavailable)
}

func TestExtractAllEnginesEmpty(t *testing.T) {
	svc := newTestService(
		&stubEngine{name: "a", available: true, text: "  "},
		&stubEngine{name: "b", available: true, text: ""},
	)

	_, _, err := svc.Extract(context.Background(), testImagePNG(t), "scan.png", "image/png")
	assert.ErrorIs(t, err, ErrRecognitionFailed)
}

func TestExtractEngineErrorFallsThrough(t *testing.T) {
	broken := &stubEngine{name: "broken", available: true, err: errors.New("boom")}
	fallback := &stubEngine{name: "fallback", available: true, text: recognizedInvoice}
	svc := newTestService(broken, fallback)

	_, stats, err := svc.Extract(context.Background(), testImagePNG(t), "scan.png", "image/png")
	require.NoError(t, err)
	assert.Equal(t, "fallback", stats.Engine)
}

func TestExtractUnsupportedInput(t *testing.T) {
	svc := newTestService(&stubEngine{name: "primary", available: true, text: recognizedInvoice})

	_, _, err := svc.Extract(context.Background(), []byte("plain text"), "notes.txt", "text/plain")
	assert.ErrorIs(t, err, ErrUnsupportedInput)
}

func TestExtractQualityGateBlocksBlurryImage(t *testing.T) {
	engine := &stubEngine{name: "primary", available: true, text: recognizedInvoice}
	svc := newTestService(engine)
	svc.cfg.SkipQualityGate = false

	png, err := EncodePNG(flatImage(50, 50, 128))
	require.NoError(t, err)

	_, _, err = svc.Extract(context.Background(), png, "scan.png", "image/png")
	assert.Equal(t, "blurry", qualityReason(t, err))
	assert.Zero(t, engine.calls, "recognition must not run on rejected images")
}

// recognizePage is the shared per-page step for photo uploads and
// rasterized PDF pages alike: both must hit the quality gate.
func TestRecognizePageAppliesQualityGate(t *testing.T) {
	engine := &stubEngine{name: "primary", available: true, text: recognizedInvoice}
	svc := newTestService(engine)
	svc.cfg.SkipQualityGate = false

	stats := &models.ProcessingStats{}
	_, err := svc.recognizePage(context.Background(), flatImage(50, 50, 128), stats)
	assert.Equal(t, "blurry", qualityReason(t, err))
	assert.Zero(t, engine.calls)

	text, err := svc.recognizePage(context.Background(), checkerImage(50, 50, 0, 255), stats)
	require.NoError(t, err)
	assert.Equal(t, recognizedInvoice, text)
	assert.Equal(t, 1, engine.calls)
}

func TestExtractCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	svc := newTestService(&stubEngine{name: "primary", available: true, err: ctx.Err()})
	_, _, err := svc.Extract(ctx, testImagePNG(t), "scan.png", "image/png")
	assert.ErrorIs(t, err, context.Canceled)
}
