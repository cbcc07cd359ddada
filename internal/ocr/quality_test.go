package ocr

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flatImage is maximally blurry: zero edge energy everywhere.
func flatImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: v})
		}
	}
	return img
}

// checkerImage alternates two values per pixel, giving very high edge
// energy and a mean halfway between the two values.
func checkerImage(w, h int, a, b uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: a})
			} else {
				img.SetGray(x, y, color.Gray{Y: b})
			}
		}
	}
	return img
}

func qualityReason(t *testing.T, err error) string {
	t.Helper()
	var qe *QualityError
	require.True(t, errors.As(err, &qe), "expected QualityError, got %v", err)
	return qe.Reason
}

func TestCheckQualityBlurry(t *testing.T) {
	err := CheckQuality(flatImage(64, 64, 128))
	assert.Equal(t, "blurry", qualityReason(t, err))
}

func TestCheckQualityTooDark(t *testing.T) {
	err := CheckQuality(checkerImage(64, 64, 0, 60))
	assert.Equal(t, "too_dark", qualityReason(t, err))
}

func TestCheckQualityTooBright(t *testing.T) {
	err := CheckQuality(checkerImage(64, 64, 200, 255))
	assert.Equal(t, "too_bright", qualityReason(t, err))
}

func TestCheckQualitySharpWellExposed(t *testing.T) {
	assert.NoError(t, CheckQuality(checkerImage(64, 64, 0, 255)))
}

// blur takes precedence: a dark flat image reports the blur, since
// retaking the photo fixes both problems at once.
func TestCheckQualityBlurBeforeExposure(t *testing.T) {
	err := CheckQuality(flatImage(64, 64, 10))
	assert.Equal(t, "blurry", qualityReason(t, err))
}

func TestLaplacianVarianceOrdering(t *testing.T) {
	sharp := laplacianVariance(checkerImage(64, 64, 0, 255))
	soft := laplacianVariance(checkerImage(64, 64, 120, 136))
	flat := laplacianVariance(flatImage(64, 64, 128))

	assert.Greater(t, sharp, soft)
	assert.Greater(t, soft, flat)
	assert.Less(t, flat, blurVarianceThreshold)
	assert.Greater(t, sharp, blurVarianceThreshold)
}

func TestMeanLuminance(t *testing.T) {
	assert.InDelta(t, 128, meanLuminance(flatImage(8, 8, 128)), 0.001)
	assert.InDelta(t, 127.5, meanLuminance(checkerImage(8, 8, 0, 255)), 0.5)
}

// Gate failures must carry the measured metric and the threshold so the
// response can tell the user how far off the capture was.
func TestCheckQualityReportsMeasurement(t *testing.T) {
	var qe *QualityError
	require.ErrorAs(t, CheckQuality(flatImage(64, 64, 128)), &qe)
	assert.Equal(t, blurVarianceThreshold, qe.Threshold)
	assert.Less(t, qe.Measured, qe.Threshold)
	assert.Contains(t, qe.Error(), "threshold 100")

	require.ErrorAs(t, CheckQuality(checkerImage(64, 64, 0, 60)), &qe)
	assert.Equal(t, minMeanLuminance, qe.Threshold)
	assert.InDelta(t, 30, qe.Measured, 1)
}

func TestQualityErrorRemediation(t *testing.T) {
	tests := []struct {
		reason string
		want   string
	}{
		{"blurry", "holding the camera steady"},
		{"too_dark", "better lighting"},
		{"too_bright", "less direct light"},
	}
	for _, tt := range tests {
		qe := &QualityError{Reason: tt.reason}
		assert.Contains(t, qe.Remediation(), "retake", tt.reason)
		assert.Contains(t, qe.Remediation(), tt.want, tt.reason)
	}
}

func TestIsQualityError(t *testing.T) {
	assert.True(t, IsQualityError(&QualityError{Reason: "blurry"}))
	assert.False(t, IsQualityError(ErrRecognitionFailed))
}
