package qr

import (
	"context"
	"image"
	"sort"

	"github.com/sirupsen/logrus"

	"go-card-scanner/internal/logger"
	"go-card-scanner/internal/preprocess"
	"go-card-scanner/pkg/models"
)

// Decoder is one independent QR recognizer: a pure decode function plus a
// priority integer. Lower priority runs first and wins deduplication.
type Decoder interface {
	Name() string
	Priority() int
	Available() bool
	// OriginalOnly limits a decoder to the first (unmodified) variant.
	// Network decoders set this so one request covers the whole scan.
	OriginalOnly() bool
	Decode(ctx context.Context, img image.Image) ([]models.QRDetection, error)
}

// Engine runs every available decoder over every image variant and returns
// the deduplicated detections. A decoder that is unavailable or fails is
// skipped and logged; it never aborts the engine. Zero detections is a
// normal outcome, not an error.
type Engine struct {
	decoders []Decoder
}

func NewEngine(decoders ...Decoder) *Engine {
	ordered := make([]Decoder, len(decoders))
	copy(ordered, decoders)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority() < ordered[j].Priority()
	})
	return &Engine{decoders: ordered}
}

// Detect iterates decoders in priority order and variants in pipeline order,
// deduplicating by exact payload string. The first occurrence keeps its
// method label.
func (e *Engine) Detect(ctx context.Context, variants []preprocess.Variant) []models.QRDetection {
	seen := make(map[string]struct{})
	detections := []models.QRDetection{}

	for _, decoder := range e.decoders {
		if !decoder.Available() {
			logger.WithField("decoder", decoder.Name()).Debug("QR decoder unavailable, skipping")
			continue
		}

		eligible := variants
		if decoder.OriginalOnly() && len(variants) > 1 {
			eligible = variants[:1]
		}

		for _, variant := range eligible {
			if ctx.Err() != nil {
				return detections
			}

			found, err := decoder.Decode(ctx, variant.Image)
			if err != nil {
				logger.WithError(err).WithFields(logrus.Fields{
					"decoder": decoder.Name(),
					"variant": variant.Label,
				}).Debug("QR decode attempt failed")
				continue
			}

			for _, det := range found {
				if _, dup := seen[det.Payload]; dup {
					continue
				}
				seen[det.Payload] = struct{}{}
				det.Method = decoder.Name() + " (" + variant.Label + ")"
				detections = append(detections, det)
			}
		}
	}

	logger.WithField("count", len(detections)).Debug("QR detection completed")
	return detections
}
