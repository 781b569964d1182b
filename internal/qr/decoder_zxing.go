package qr

import (
	"context"
	"image"
	"math"

	"github.com/makiuchi-d/gozxing"
	zxingqr "github.com/makiuchi-d/gozxing/qrcode"

	"go-card-scanner/pkg/models"
)

// zxingDecoder wraps the zxing-port symbology library. Second in priority:
// slower than goqr but better at low-contrast prints.
type zxingDecoder struct {
	reader gozxing.Reader
	hints  map[gozxing.DecodeHintType]interface{}
}

func NewZXingDecoder() Decoder {
	return &zxingDecoder{
		reader: zxingqr.NewQRCodeReader(),
		hints: map[gozxing.DecodeHintType]interface{}{
			gozxing.DecodeHintType_TRY_HARDER: true,
		},
	}
}

func (d *zxingDecoder) Name() string { return "zxing" }

func (d *zxingDecoder) Priority() int { return 1 }

func (d *zxingDecoder) Available() bool { return true }

func (d *zxingDecoder) OriginalOnly() bool { return false }

func (d *zxingDecoder) Decode(_ context.Context, img image.Image) ([]models.QRDetection, error) {
	src := gozxing.NewLuminanceSourceFromImage(img)
	bmp, err := gozxing.NewBinaryBitmap(gozxing.NewHybridBinarizer(src))
	if err != nil {
		return nil, err
	}

	result, err := d.reader.Decode(bmp, d.hints)
	if err != nil {
		// NotFoundException and friends mean "no code here", not a failure
		return nil, nil
	}
	if result.GetText() == "" {
		return nil, nil
	}

	return []models.QRDetection{{
		Payload:   result.GetText(),
		Symbology: models.SymbologyQR,
		Rect:      boundingRect(result.GetResultPoints()),
	}}, nil
}

// boundingRect approximates a box around the finder-pattern points the
// reader located.
func boundingRect(points []gozxing.ResultPoint) models.Rect {
	if len(points) == 0 {
		return models.Rect{}
	}

	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, p := range points {
		minX = math.Min(minX, p.GetX())
		minY = math.Min(minY, p.GetY())
		maxX = math.Max(maxX, p.GetX())
		maxY = math.Max(maxY, p.GetY())
	}

	return models.Rect{
		X:      int(minX),
		Y:      int(minY),
		Width:  int(maxX - minX),
		Height: int(maxY - minY),
	}
}
