package ocr

import (
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/disintegration/imaging"
)

// PrepareForRecognition runs the geometry and illumination pipeline on a
// photographed document: perspective correction when a document quad is
// found, rotation correction when the text baseline is skewed, local
// contrast equalization, then adaptive binarization. Every stage is
// best-effort; when a stage cannot improve the image it passes the
// previous result through, so the worst case is a plain grayscale
// conversion.
func PrepareForRecognition(img image.Image) *image.Gray {
	gray := toGray(img)

	if quad, ok := findDocumentQuad(gray); ok {
		gray = warpPerspective(gray, quad)
	}

	if angle := estimateSkew(gray); math.Abs(angle) > 0.5 {
		rotated := imaging.Rotate(gray, angle, color.White)
		gray = toGray(rotated)
	}

	return adaptiveThreshold(equalizeContrast(gray), 25, 10)
}

type point struct{ X, Y float64 }

// findDocumentQuad looks for the document outline: it computes a Sobel
// edge map, walks the strongest edge pixel per border scan line inward
// from each side and fits the four extreme corners. It refuses quads
// covering less than a third of the frame since those are more likely a
// logo or a table cell than the page itself.
func findDocumentQuad(gray *image.Gray) ([4]point, bool) {
	var quad [4]point
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 40 || h < 40 {
		return quad, false
	}

	mag := sobelMagnitude(gray)
	threshold := edgeThreshold(mag, w, h)

	var pts []point
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if mag[y*w+x] >= threshold {
				pts = append(pts, point{float64(x), float64(y)})
				break
			}
		}
		for x := w - 1; x >= 0; x-- {
			if mag[y*w+x] >= threshold {
				pts = append(pts, point{float64(x), float64(y)})
				break
			}
		}
	}
	if len(pts) < 8 {
		return quad, false
	}

	quad = extremeCorners(pts)

	area := quadArea(quad)
	if area < float64(w*h)/3 {
		return quad, false
	}
	return quad, true
}

func sobelMagnitude(gray *image.Gray) []float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	mag := make([]float64, w*h)
	at := func(x, y int) float64 {
		if x < 0 {
			x = 0
		}
		if y < 0 {
			y = 0
		}
		if x >= w {
			x = w - 1
		}
		if y >= h {
			y = h - 1
		}
		return float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -at(x-1, y-1) - 2*at(x-1, y) - at(x-1, y+1) +
				at(x+1, y-1) + 2*at(x+1, y) + at(x+1, y+1)
			gy := -at(x-1, y-1) - 2*at(x, y-1) - at(x+1, y-1) +
				at(x-1, y+1) + 2*at(x, y+1) + at(x+1, y+1)
			mag[y*w+x] = math.Hypot(gx, gy)
		}
	}
	return mag
}

// edgeThreshold picks a magnitude cutoff at roughly the 90th percentile
// so the edge map adapts to contrast instead of using a fixed constant.
func edgeThreshold(mag []float64, w, h int) float64 {
	sample := make([]float64, 0, 4096)
	step := len(mag)/4096 + 1
	for i := 0; i < len(mag); i += step {
		sample = append(sample, mag[i])
	}
	sort.Float64s(sample)
	t := sample[len(sample)*9/10]
	if t < 32 {
		t = 32
	}
	return t
}

// extremeCorners picks the points with minimal/maximal coordinate sum and
// difference, yielding corner candidates already ordered top-left,
// top-right, bottom-right, bottom-left.
func extremeCorners(pts []point) [4]point {
	tl, br, tr, bl := pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}
	return [4]point{tl, tr, br, bl}
}

func quadArea(q [4]point) float64 {
	// shoelace formula
	var s float64
	for i := 0; i < 4; i++ {
		j := (i + 1) % 4
		s += q[i].X*q[j].Y - q[j].X*q[i].Y
	}
	return math.Abs(s) / 2
}

// warpPerspective maps the detected quad to an axis-aligned rectangle
// sized by the quad's edge lengths, sampling the source bilinearly
// through the inverse homography.
func warpPerspective(gray *image.Gray, quad [4]point) *image.Gray {
	tl, tr, br, bl := quad[0], quad[1], quad[2], quad[3]

	width := int(math.Max(dist(tl, tr), dist(bl, br)))
	height := int(math.Max(dist(tl, bl), dist(tr, br)))
	if width < 20 || height < 20 {
		return gray
	}

	dst := [4]point{
		{0, 0},
		{float64(width - 1), 0},
		{float64(width - 1), float64(height - 1)},
		{0, float64(height - 1)},
	}

	// homography from destination back to source so each output pixel
	// samples the input
	h, ok := computeHomography(dst, quad)
	if !ok {
		return gray
	}

	b := gray.Bounds()
	out := image.NewGray(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			sx, sy := applyHomography(h, float64(x), float64(y))
			out.SetGray(x, y, color.Gray{Y: bilinearSample(gray, b, sx, sy)})
		}
	}
	return out
}

func dist(a, b point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// computeHomography solves for the 8 parameters of the projective map
// taking each src[i] to dst[i], via Gaussian elimination of the standard
// 8x8 system.
func computeHomography(src, dst [4]point) ([9]float64, bool) {
	var h [9]float64
	var m [8][9]float64
	for i := 0; i < 4; i++ {
		sx, sy := src[i].X, src[i].Y
		dx, dy := dst[i].X, dst[i].Y
		m[2*i] = [9]float64{sx, sy, 1, 0, 0, 0, -dx * sx, -dx * sy, dx}
		m[2*i+1] = [9]float64{0, 0, 0, sx, sy, 1, -dy * sx, -dy * sy, dy}
	}

	for col := 0; col < 8; col++ {
		pivot := col
		for r := col + 1; r < 8; r++ {
			if math.Abs(m[r][col]) > math.Abs(m[pivot][col]) {
				pivot = r
			}
		}
		if math.Abs(m[pivot][col]) < 1e-10 {
			return h, false
		}
		m[col], m[pivot] = m[pivot], m[col]
		for r := 0; r < 8; r++ {
			if r == col {
				continue
			}
			f := m[r][col] / m[col][col]
			for c := col; c < 9; c++ {
				m[r][c] -= f * m[col][c]
			}
		}
	}
	for i := 0; i < 8; i++ {
		h[i] = m[i][8] / m[i][i]
	}
	h[8] = 1
	return h, true
}

func applyHomography(h [9]float64, x, y float64) (float64, float64) {
	w := h[6]*x + h[7]*y + h[8]
	if w == 0 {
		return 0, 0
	}
	return (h[0]*x + h[1]*y + h[2]) / w, (h[3]*x + h[4]*y + h[5]) / w
}

func bilinearSample(gray *image.Gray, b image.Rectangle, x, y float64) uint8 {
	w, h := b.Dx(), b.Dy()
	if x < 0 || y < 0 || x > float64(w-1) || y > float64(h-1) {
		return 255
	}
	x0, y0 := int(x), int(y)
	x1, y1 := x0+1, y0+1
	if x1 >= w {
		x1 = w - 1
	}
	if y1 >= h {
		y1 = h - 1
	}
	fx, fy := x-float64(x0), y-float64(y0)
	at := func(px, py int) float64 {
		return float64(gray.GrayAt(b.Min.X+px, b.Min.Y+py).Y)
	}
	top := at(x0, y0)*(1-fx) + at(x1, y0)*fx
	bot := at(x0, y1)*(1-fx) + at(x1, y1)*fx
	return uint8(top*(1-fy) + bot*fy + 0.5)
}

const (
	// contrastTiles x contrastTiles is the equalization grid.
	contrastTiles = 8
	// contrastClipLimit caps each histogram bin at this multiple of the
	// uniform bin height, bounding noise amplification in flat regions.
	contrastClipLimit = 2.0
)

// equalizeContrast applies contrast-limited adaptive histogram
// equalization: each tile gets a clipped equalization mapping and every
// pixel interpolates bilinearly between the four surrounding tile
// mappings, so shadows and washed-out regions are stretched locally
// without visible tile seams.
func equalizeContrast(gray *image.Gray) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < contrastTiles*4 || h < contrastTiles*4 {
		return gray
	}

	luts := make([][256]uint8, contrastTiles*contrastTiles)
	for ty := 0; ty < contrastTiles; ty++ {
		for tx := 0; tx < contrastTiles; tx++ {
			x0, x1 := tx*w/contrastTiles, (tx+1)*w/contrastTiles
			y0, y1 := ty*h/contrastTiles, (ty+1)*h/contrastTiles
			n := (x1 - x0) * (y1 - y0)

			var hist [256]int
			for y := y0; y < y1; y++ {
				for x := x0; x < x1; x++ {
					hist[gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y]++
				}
			}

			clip := int(contrastClipLimit * float64(n) / 256)
			if clip < 1 {
				clip = 1
			}
			excess := 0
			for i := range hist {
				if hist[i] > clip {
					excess += hist[i] - clip
					hist[i] = clip
				}
			}
			// clipped mass is redistributed evenly across all bins
			add, rem := excess/256, excess%256
			cum := 0
			lut := &luts[ty*contrastTiles+tx]
			for i := 0; i < 256; i++ {
				cum += hist[i] + add
				if i < rem {
					cum++
				}
				lut[i] = uint8(min(255, cum*255/n))
			}
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		fy := float64(y)*contrastTiles/float64(h) - 0.5
		ty0 := int(math.Floor(fy))
		wy := fy - float64(ty0)
		ty1 := min(max(ty0+1, 0), contrastTiles-1)
		ty0 = min(max(ty0, 0), contrastTiles-1)
		for x := 0; x < w; x++ {
			fx := float64(x)*contrastTiles/float64(w) - 0.5
			tx0 := int(math.Floor(fx))
			wx := fx - float64(tx0)
			tx1 := min(max(tx0+1, 0), contrastTiles-1)
			tx0 = min(max(tx0, 0), contrastTiles-1)

			v := gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y
			top := (1-wx)*float64(luts[ty0*contrastTiles+tx0][v]) + wx*float64(luts[ty0*contrastTiles+tx1][v])
			bot := (1-wx)*float64(luts[ty1*contrastTiles+tx0][v]) + wx*float64(luts[ty1*contrastTiles+tx1][v])
			out.SetGray(x, y, color.Gray{Y: uint8((1-wy)*top + wy*bot + 0.5)})
		}
	}
	return out
}

// maxSkewAngle bounds the local slopes fed into the median; anything
// steeper is a table rule or a misdetected edge, not a text baseline.
const maxSkewAngle = 45.0

// estimateSkew measures the dominant text angle by tracing near-horizontal
// runs of dark pixels and taking the median of the slopes within
// maxSkewAngle. The result is in degrees, positive meaning the image
// should rotate counter-clockwise.
func estimateSkew(gray *image.Gray) float64 {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 100 || h < 100 {
		return 0
	}

	bin := adaptiveThreshold(gray, 25, 10)

	// For each sampled column pair, find dark-pixel centroids and derive
	// the local slope between them.
	span := w / 4
	var angles []float64
	step := h / 64
	if step < 1 {
		step = 1
	}
	for y := 0; y < h; y += step {
		lx, lok := darkCentroid(bin, 0, span, y, step)
		rx, rok := darkCentroid(bin, w-span, w, y, step)
		if !lok || !rok {
			continue
		}
		dy := rx - lx
		angle := math.Atan2(dy, float64(w-span)) * 180 / math.Pi
		if math.Abs(angle) < maxSkewAngle {
			angles = append(angles, angle)
		}
	}
	if len(angles) < 8 {
		return 0
	}
	sort.Float64s(angles)
	return angles[len(angles)/2]
}

// darkCentroid returns the mean row index of dark pixels in the given
// horizontal band of a binarized image.
func darkCentroid(bin *image.Gray, x0, x1, y0, band int) (float64, bool) {
	b := bin.Bounds()
	var sum float64
	n := 0
	for y := y0; y < y0+band && y < b.Dy(); y++ {
		for x := x0; x < x1 && x < b.Dx(); x++ {
			if bin.GrayAt(b.Min.X+x, b.Min.Y+y).Y < 128 {
				sum += float64(y)
				n++
			}
		}
	}
	if n < 4 {
		return 0, false
	}
	return sum / float64(n), true
}

// adaptiveThreshold binarizes with a mean filter over a window square,
// using an integral image so the cost is independent of window size.
// Pixels darker than the local mean minus offset become black.
func adaptiveThreshold(gray *image.Gray, window, offset int) *image.Gray {
	b := gray.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}

	// integral[y][x] holds the sum of all pixels above-left of (x, y)
	integral := make([]uint64, (w+1)*(h+1))
	for y := 0; y < h; y++ {
		var rowSum uint64
		for x := 0; x < w; x++ {
			rowSum += uint64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			integral[(y+1)*(w+1)+x+1] = integral[y*(w+1)+x+1] + rowSum
		}
	}

	half := window / 2
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-half), min(h-1, y+half)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-half), min(w-1, x+half)
			count := uint64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[(y1+1)*(w+1)+x1+1] - integral[y0*(w+1)+x1+1] -
				integral[(y1+1)*(w+1)+x0] + integral[y0*(w+1)+x0]
			mean := float64(sum) / float64(count)
			v := float64(gray.GrayAt(b.Min.X+x, b.Min.Y+y).Y)
			if v < mean-float64(offset) {
				out.SetGray(x, y, color.Gray{Y: 0})
			} else {
				out.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return out
}
