// Package quality implements the document quality gate: a pure,
// deterministic verdict on an uploaded image before any expensive
// processing is attempted.
package quality

import (
	"bytes"
	"image"
	"sort"

	_ "image/jpeg" // register decoders
	_ "image/png"

	"sahel/internal/config"
)

// Failure reasons surfaced to the uploader.
const (
	ReasonUnreadable = "unreadable"
	ReasonTooSmall   = "resolution too low"
	ReasonTooBlurry  = "too blurry"
	ReasonTooNoisy   = "too noisy"
	ReasonTooDark    = "too dark"
	ReasonTooBright  = "too bright"
)

// Result is the gate verdict. When OK is false, Reason names the first
// failed check.
type Result struct {
	OK     bool
	Reason string
}

// Gate runs the ordered quality checks against configured thresholds.
type Gate struct {
	cfg config.QualityConfig
}

// NewGate creates a quality gate. Zero thresholds fall back to defaults
// so a partially populated config stays usable.
func NewGate(cfg config.QualityConfig) *Gate {
	if cfg.MinWidth == 0 {
		cfg.MinWidth = 800
	}
	if cfg.MinHeight == 0 {
		cfg.MinHeight = 600
	}
	if cfg.MinSharpness == 0 {
		cfg.MinSharpness = 100
	}
	if cfg.MaxNoise == 0 {
		cfg.MaxNoise = 20
	}
	if cfg.MinBrightness == 0 {
		cfg.MinBrightness = 50
	}
	if cfg.MaxBrightness == 0 {
		cfg.MaxBrightness = 220
	}
	return &Gate{cfg: cfg}
}

// Check validates the image bytes. Checks run in order and short-circuit
// on the first failure. Identical input always yields an identical result.
func (g *Gate) Check(imageBytes []byte) Result {
	img, _, err := image.Decode(bytes.NewReader(imageBytes))
	if err != nil {
		return Result{OK: false, Reason: ReasonUnreadable}
	}

	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < g.cfg.MinWidth || h < g.cfg.MinHeight {
		return Result{OK: false, Reason: ReasonTooSmall}
	}

	gray := toGray(img)

	if laplacianVariance(gray, w, h) < g.cfg.MinSharpness {
		return Result{OK: false, Reason: ReasonTooBlurry}
	}

	if noiseLevel(gray, w, h) > g.cfg.MaxNoise {
		return Result{OK: false, Reason: ReasonTooNoisy}
	}

	mean := meanBrightness(gray)
	if mean < g.cfg.MinBrightness {
		return Result{OK: false, Reason: ReasonTooDark}
	}
	if mean > g.cfg.MaxBrightness {
		return Result{OK: false, Reason: ReasonTooBright}
	}

	return Result{OK: true}
}

// toGray flattens the image to a row-major luma plane.
func toGray(img image.Image) []float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	gray := make([]float64, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			// ITU-R BT.601 luma, 16-bit channels scaled to [0,255].
			gray[y*w+x] = (0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)) / 257.0
		}
	}
	return gray
}

// laplacianVariance measures sharpness as the variance of the 4-neighbor
// Laplacian. Blurred images have weak second derivatives everywhere.
func laplacianVariance(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	n := 0
	sum, sumSq := 0.0, 0.0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			l := gray[(y-1)*w+x] + gray[(y+1)*w+x] +
				gray[y*w+x-1] + gray[y*w+x+1] - 4*gray[y*w+x]
			sum += l
			sumSq += l * l
			n++
		}
	}
	mean := sum / float64(n)
	return sumSq/float64(n) - mean*mean
}

// noiseLevel is the mean absolute difference between the image and a
// median-denoised copy. The 3x3 median preserves edges, so document
// structure does not count as noise while salt-and-pepper grain does.
func noiseLevel(gray []float64, w, h int) float64 {
	if w < 3 || h < 3 {
		return 0
	}
	window := make([]float64, 0, 9)
	total := 0.0
	n := 0
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			window = window[:0]
			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					window = append(window, gray[(y+dy)*w+x+dx])
				}
			}
			sort.Float64s(window)
			diff := gray[y*w+x] - window[4]
			if diff < 0 {
				diff = -diff
			}
			total += diff
			n++
		}
	}
	return total / float64(n)
}

func meanBrightness(gray []float64) float64 {
	sum := 0.0
	for _, v := range gray {
		sum += v
	}
	return sum / float64(len(gray))
}
