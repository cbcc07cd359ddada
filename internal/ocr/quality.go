package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	// blurVarianceThreshold is the minimum Laplacian variance for an
	// image to count as sharp. Values below it mean the edges are too
	// soft for reliable character recognition.
	blurVarianceThreshold = 100.0

	// minMeanLuminance / maxMeanLuminance bound acceptable exposure on
	// a 0-255 scale.
	minMeanLuminance = 50.0
	maxMeanLuminance = 200.0
)

// CheckQuality runs the capture quality gate on an image. It returns a
// *QualityError when the image is too blurry, too dark or too bright,
// in that order of precedence. nil means the image is usable.
func CheckQuality(img image.Image) error {
	gray := toGray(img)

	if v := laplacianVariance(gray); v < blurVarianceThreshold {
		return &QualityError{Reason: "blurry", Measured: v, Threshold: blurVarianceThreshold}
	}

	mean := meanLuminance(gray)
	if mean < minMeanLuminance {
		return &QualityError{Reason: "too_dark", Measured: mean, Threshold: minMeanLuminance}
	}
	if mean > maxMeanLuminance {
		return &QualityError{Reason: "too_bright", Measured: mean, Threshold: maxMeanLuminance}
	}
	return nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	src := imaging.Grayscale(img)
	b := src.Bounds()
	gray := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			// imaging.Grayscale leaves an NRGBA with equal channels
			r, _, _, _ := src.At(x, y).RGBA()
			gray.SetGray(x, y, color.Gray{Y: uint8(r >> 8)})
		}
	}
	return gray
}

// laplacianVariance convolves the image with the 4-neighbour Laplacian
// kernel and returns the variance of the response. Sharp images have
// strong edge responses and therefore high variance.
func laplacianVariance(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	var sum, sumSq float64
	n := 0
	at := func(x, y int) float64 {
		return float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			lap := at(x-1, y) + at(x+1, y) + at(x, y-1) + at(x, y+1) - 4*at(x, y)
			sum += lap
			sumSq += lap * lap
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

func meanLuminance(gray *image.Gray) float64 {
	b := gray.Bounds()
	var sum float64
	n := 0
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			sum += float64(gray.GrayAt(x, y).Y)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
