package ocr

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeHomographyIdentity(t *testing.T) {
	square := [4]point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	h, ok := computeHomography(square, square)
	require.True(t, ok)

	for _, p := range []point{{0, 0}, {50, 50}, {100, 100}, {25, 75}} {
		x, y := applyHomography(h, p.X, p.Y)
		assert.InDelta(t, p.X, x, 1e-6)
		assert.InDelta(t, p.Y, y, 1e-6)
	}
}

func TestComputeHomographyMapsCorners(t *testing.T) {
	src := [4]point{{0, 0}, {100, 0}, {100, 100}, {0, 100}}
	dst := [4]point{{10, 5}, {90, 15}, {95, 110}, {5, 95}}
	h, ok := computeHomography(src, dst)
	require.True(t, ok)

	for i := range src {
		x, y := applyHomography(h, src[i].X, src[i].Y)
		assert.InDelta(t, dst[i].X, x, 1e-6)
		assert.InDelta(t, dst[i].Y, y, 1e-6)
	}
}

func TestComputeHomographyDegenerate(t *testing.T) {
	// collinear corners have no projective solution
	line := [4]point{{0, 0}, {1, 1}, {2, 2}, {3, 3}}
	_, ok := computeHomography(line, line)
	assert.False(t, ok)
}

func TestExtremeCornersOrdering(t *testing.T) {
	pts := []point{{50, 90}, {10, 10}, {90, 12}, {8, 88}, {92, 94}}
	c := extremeCorners(pts)

	assert.Equal(t, point{10, 10}, c[0]) // top-left
	assert.Equal(t, point{90, 12}, c[1]) // top-right
	assert.Equal(t, point{92, 94}, c[2]) // bottom-right
	assert.Equal(t, point{8, 88}, c[3])  // bottom-left
}

func TestQuadArea(t *testing.T) {
	unit := [4]point{{0, 0}, {10, 0}, {10, 10}, {0, 10}}
	assert.InDelta(t, 100, quadArea(unit), 1e-9)
}

func TestAdaptiveThresholdSeparatesText(t *testing.T) {
	// white page with one dark stroke
	img := image.NewGray(image.Rect(0, 0, 40, 40))
	for y := 0; y < 40; y++ {
		for x := 0; x < 40; x++ {
			img.SetGray(x, y, color.Gray{Y: 240})
		}
	}
	for x := 10; x < 30; x++ {
		img.SetGray(x, 20, color.Gray{Y: 20})
	}

	bin := adaptiveThreshold(img, 25, 10)
	assert.Equal(t, uint8(0), bin.GrayAt(20, 20).Y)
	assert.Equal(t, uint8(255), bin.GrayAt(20, 5).Y)
}

func TestEstimateSkewFlatImage(t *testing.T) {
	assert.Zero(t, estimateSkew(flatImage(200, 200, 255)))
}

func TestEstimateSkewHorizontalText(t *testing.T) {
	// straight dark lines on a white page should need no rotation
	img := image.NewGray(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for _, row := range []int{40, 80, 120, 160} {
		for x := 5; x < 195; x++ {
			img.SetGray(x, row, color.Gray{Y: 0})
		}
	}
	assert.LessOrEqual(t, math.Abs(estimateSkew(img)), 0.5)
}

func TestEstimateSkewDetectsTilt(t *testing.T) {
	// ten gently tilted text lines: rising roughly 0.57 degrees
	img := image.NewGray(image.Rect(0, 0, 400, 400))
	for y := 0; y < 400; y++ {
		for x := 0; x < 400; x++ {
			img.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	for base := 30; base <= 300; base += 30 {
		for x := 0; x < 400; x++ {
			yy := base + int(0.01*float64(x))
			img.SetGray(x, yy, color.Gray{Y: 0})
			img.SetGray(x, yy+1, color.Gray{Y: 0})
		}
	}

	skew := estimateSkew(img)
	assert.InDelta(t, 0.57, skew, 0.3)
}

// A narrow band of gray levels filling each tile should be stretched
// over a wider range, while pixel ordering is preserved.
func TestEqualizeContrastStretchesNarrowBand(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8(112 + (x+y)%16)})
		}
	}

	out := equalizeContrast(img)
	lo, hi := uint8(255), uint8(0)
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			v := out.GrayAt(x, y).Y
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	assert.GreaterOrEqual(t, int(hi)-int(lo), 30, "range should stretch beyond the input's 15")

	// darker input pixels never end up brighter than lighter ones in
	// the same neighborhood
	assert.Less(t, out.GrayAt(10, 10).Y, out.GrayAt(10, 15).Y)
}

func TestEqualizeContrastTinyImagePassthrough(t *testing.T) {
	img := flatImage(10, 10, 77)
	out := equalizeContrast(img)
	assert.Equal(t, uint8(77), out.GrayAt(5, 5).Y)
}

func TestPrepareForRecognitionNeverNil(t *testing.T) {
	out := PrepareForRecognition(flatImage(10, 10, 128))
	require.NotNil(t, out)
	assert.Equal(t, 10, out.Bounds().Dx())
}
