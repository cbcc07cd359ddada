package ocr

import (
	"errors"
	"fmt"
)

// ErrUnsupportedInput is returned when the uploaded file is neither a
// supported image format nor a PDF.
var ErrUnsupportedInput = errors.New("unsupported input format")

// ErrRecognitionUnavailable is returned when no text recognition engine
// can be constructed (missing language data, missing native libraries).
var ErrRecognitionUnavailable = errors.New("no recognition engine available")

// ErrRecognitionFailed is returned when every engine and retry produced
// no usable text.
var ErrRecognitionFailed = errors.New("text recognition failed")

// QualityError reports that an image failed the capture quality gate.
// Reason is one of "blurry", "too_dark", "too_bright"; Measured and
// Threshold carry the metric that tripped the gate so the caller can
// show the user how far off the capture was.
type QualityError struct {
	Reason    string
	Measured  float64
	Threshold float64
}

func (e *QualityError) Error() string {
	return fmt.Sprintf("image quality too low: %s (measured %.1f, threshold %.0f)", e.Reason, e.Measured, e.Threshold)
}

// Remediation is the user-facing advice for retaking the photo.
func (e *QualityError) Remediation() string {
	switch e.Reason {
	case "blurry":
		return "Image too blurry. Please retake the photo with better focus, holding the camera steady."
	case "too_dark":
		return "Image too dark. Please retake with better lighting or enable the flash."
	case "too_bright":
		return "Image too bright. Please retake with less direct light on the document."
	default:
		return "Please retake the photo with the document flat and evenly lit."
	}
}

// IsQualityError reports whether err wraps a QualityError.
func IsQualityError(err error) bool {
	var qe *QualityError
	return errors.As(err, &qe)
}
