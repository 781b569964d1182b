package qr

import (
	"context"
	"image"

	"github.com/liyue201/goqr"

	"go-card-scanner/pkg/models"
)

// goqrDecoder is the pure-Go optics-based recognizer. It runs first: no
// network, no cgo, and it handles skewed codes well.
type goqrDecoder struct{}

func NewGoQRDecoder() Decoder {
	return &goqrDecoder{}
}

func (d *goqrDecoder) Name() string { return "goqr" }

func (d *goqrDecoder) Priority() int { return 0 }

func (d *goqrDecoder) Available() bool { return true }

func (d *goqrDecoder) OriginalOnly() bool { return false }

func (d *goqrDecoder) Decode(_ context.Context, img image.Image) ([]models.QRDetection, error) {
	codes, err := goqr.Recognize(img)
	if err != nil {
		// "not found" is the common case for card photos without codes
		return nil, nil
	}

	detections := make([]models.QRDetection, 0, len(codes))
	for _, code := range codes {
		payload := string(code.Payload)
		if payload == "" {
			continue
		}
		detections = append(detections, models.QRDetection{
			Payload:   payload,
			Symbology: models.SymbologyQR,
		})
	}
	return detections, nil
}
