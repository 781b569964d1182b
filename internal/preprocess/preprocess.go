package preprocess

import (
	"bytes"
	"image"
	"image/draw"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	apperrors "go-card-scanner/internal/errors"
)

// Variant labels, in pipeline order.
const (
	VariantOriginal  = "original"
	VariantGrayscale = "grayscale"
	VariantThreshold = "adaptive-threshold"
	VariantDenoised  = "denoised-contrast"
	VariantUpscaled  = "upscaled-2x"
)

// Upscaling is skipped for images already wider than this; the variant then
// degrades to plain grayscale instead of failing.
const maxUpscaleWidth = 2000

// Variant is one enhanced rendition of the input image. Immutable once
// produced; owned by the scan that created it.
type Variant struct {
	Label string
	Image image.Image
}

// Preprocessor turns raw image bytes into a fixed, ordered set of enhanced
// variants so that at least one is machine-readable.
type Preprocessor struct{}

func NewPreprocessor() *Preprocessor {
	return &Preprocessor{}
}

// Decode parses raw bytes into an image. Tries the registered stdlib/x-image
// decoders first, then an explicit WebP decode, the same fallback chain the
// byte-oriented loaders in the analyzer tooling use.
func (p *Preprocessor) Decode(data []byte) (image.Image, error) {
	if img, _, err := image.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	return nil, apperrors.NewDecodeError("input is not a parseable raster image", nil)
}

// Variants produces exactly 5 ordered variants for a validly decoded image.
// Enhancement steps never fail; a step whose preconditions are not met falls
// back to the closest variant it can produce.
func (p *Preprocessor) Variants(img image.Image) []Variant {
	gray := toGray(img)

	return []Variant{
		{Label: VariantOriginal, Image: img},
		{Label: VariantGrayscale, Image: gray},
		{Label: VariantThreshold, Image: adaptiveThreshold(gray, 15, 8)},
		{Label: VariantDenoised, Image: contrastStretch(toGray(imaging.Blur(gray, 0.6)))},
		{Label: VariantUpscaled, Image: upscale(gray)},
	}
}

// Run decodes and enhances in one call.
func (p *Preprocessor) Run(data []byte) ([]Variant, error) {
	img, err := p.Decode(data)
	if err != nil {
		return nil, err
	}
	return p.Variants(img), nil
}

func toGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	bounds := img.Bounds()
	gray := image.NewGray(bounds)
	draw.Draw(gray, bounds, img, bounds.Min, draw.Src)
	return gray
}

func upscale(gray *image.Gray) image.Image {
	w := gray.Bounds().Dx()
	if w == 0 || w > maxUpscaleWidth {
		return gray
	}
	return imaging.Resize(gray, w*2, 0, imaging.Lanczos)
}

// adaptiveThreshold binarizes against the mean of a local window (side
// 2*radius+1) minus a fixed offset. Uses an integral image so the window
// mean is O(1) per pixel.
func adaptiveThreshold(gray *image.Gray, radius, offset int) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return gray
	}

	// integral[y][x] = sum of pixels in [0,x) x [0,y)
	integral := make([][]int64, h+1)
	for y := range integral {
		integral[y] = make([]int64, w+1)
	}
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			integral[y+1][x+1] = integral[y][x+1] + rowSum
		}
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-radius), min(h-1, y+radius)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-radius), min(w-1, x+radius)
			area := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			sum := integral[y1+1][x1+1] - integral[y0][x1+1] - integral[y1+1][x0] + integral[y0][x0]
			mean := sum / area

			idx := out.PixOffset(x, y)
			if int64(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y) > mean-int64(offset) {
				out.Pix[idx] = 255
			} else {
				out.Pix[idx] = 0
			}
		}
	}
	return out
}

// contrastStretch linearly maps the 2nd..98th percentile of the histogram to
// the full 0..255 range. A flat image (no spread) is returned untouched.
func contrastStretch(gray *image.Gray) *image.Gray {
	bounds := gray.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	total := w * h
	if total == 0 {
		return gray
	}

	var hist [256]int
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			hist[gray.GrayAt(x, y).Y]++
		}
	}

	lo, hi := percentile(hist[:], total, 2), percentile(hist[:], total, 98)
	if hi <= lo {
		return gray
	}

	out := image.NewGray(image.Rect(0, 0, w, h))
	scale := 255.0 / float64(hi-lo)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := int(gray.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y)
			stretched := int(float64(v-lo) * scale)
			if stretched < 0 {
				stretched = 0
			} else if stretched > 255 {
				stretched = 255
			}
			out.Pix[out.PixOffset(x, y)] = uint8(stretched)
		}
	}
	return out
}

func percentile(hist []int, total, pct int) int {
	target := total * pct / 100
	cum := 0
	for v, count := range hist {
		cum += count
		if cum >= target {
			return v
		}
	}
	return 255
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
