package ocr

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog/log"
)

// Engine is a text recognition backend. Implementations must be safe for
// concurrent use; the gosseract-backed ones achieve this by creating one
// client per call.
type Engine interface {
	// Name identifies the engine in logs and processing stats.
	Name() string

	// Available reports whether the engine can run in this environment
	// (native library present, language data installed).
	Available() bool

	// Recognize extracts text from a PNG-encoded image.
	Recognize(ctx context.Context, png []byte) (string, error)
}

// receiptEngine is tuned for tickets and receipts: sparse page
// segmentation copes with the ragged column layout of register output.
type receiptEngine struct {
	language string
}

func (e *receiptEngine) Name() string { return "tesseract-receipt" }

func (e *receiptEngine) Available() bool { return languageAvailable(e.language) }

func (e *receiptEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	return runTesseract(ctx, e.language, gosseract.PSM_SPARSE_TEXT, png)
}

// documentEngine is the general-purpose fallback: uniform-block
// segmentation first, then sparse and column modes when the first pass
// comes back nearly empty.
type documentEngine struct {
	language string
}

func (e *documentEngine) Name() string { return "tesseract-document" }

func (e *documentEngine) Available() bool { return languageAvailable(e.language) }

// retryMinChars is the yield below which the document engine tries
// alternative segmentation modes.
const retryMinChars = 50

func (e *documentEngine) Recognize(ctx context.Context, png []byte) (string, error) {
	text, err := runTesseract(ctx, e.language, gosseract.PSM_SINGLE_BLOCK, png)
	if err != nil {
		return "", err
	}
	best := text
	if len(strings.TrimSpace(best)) >= retryMinChars {
		return best, nil
	}

	for _, psm := range []gosseract.PageSegMode{gosseract.PSM_SPARSE_TEXT, gosseract.PSM_SINGLE_COLUMN} {
		if ctx.Err() != nil {
			return best, ctx.Err()
		}
		retry, err := runTesseract(ctx, e.language, psm, png)
		if err != nil {
			log.Debug().Err(err).Int("psm", int(psm)).Msg("segmentation retry failed")
			continue
		}
		// Only adopt a retry that is meaningfully longer; marginal gains
		// are usually just extra noise.
		if float64(len(retry)) >= float64(len(best))*1.2 {
			best = retry
		}
	}
	return best, nil
}

func runTesseract(ctx context.Context, language string, psm gosseract.PageSegMode, png []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return "", fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(psm); err != nil {
		return "", fmt.Errorf("failed to set segmentation mode: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("text recognition failed: %w", err)
	}
	return text, nil
}

var (
	languageMu    sync.Mutex
	languageCache = map[string]bool{}
)

// languageAvailable checks whether the tesseract installation can load
// the given language pack, caching the result across calls.
func languageAvailable(language string) bool {
	languageMu.Lock()
	defer languageMu.Unlock()

	if ok, seen := languageCache[language]; seen {
		return ok
	}

	ok := func() (ok bool) {
		defer func() {
			if recover() != nil {
				ok = false
			}
		}()
		client := gosseract.NewClient()
		defer client.Close()
		return client.SetLanguage(strings.Split(language, "+")...) == nil
	}()

	languageCache[language] = ok
	return ok
}

var (
	enginesMu    sync.Mutex
	enginesCache = map[string][]Engine{}
)

// EnginesFor returns the engine chain for a language: the receipt-tuned
// engine first, the general document engine as fallback. Chains are
// cached per language.
func EnginesFor(language string) []Engine {
	enginesMu.Lock()
	defer enginesMu.Unlock()

	if chain, ok := enginesCache[language]; ok {
		return chain
	}
	chain := []Engine{
		&receiptEngine{language: language},
		&documentEngine{language: language},
	}
	enginesCache[language] = chain
	return chain
}
