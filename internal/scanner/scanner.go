package scanner

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"go-card-scanner/internal/extract"
	"go-card-scanner/internal/logger"
	"go-card-scanner/internal/preprocess"
	"go-card-scanner/internal/qr"
	"go-card-scanner/pkg/models"
)

// QRDetector finds machine-readable codes across image variants.
type QRDetector interface {
	Detect(ctx context.Context, variants []preprocess.Variant) []models.QRDetection
}

// TextRecognizer reconciles OCR attempts into a single best reading.
type TextRecognizer interface {
	Run(ctx context.Context, variants []preprocess.Variant) models.OCRResult
}

// Scanner runs the full pipeline: decode, enhance, recognize, extract.
// Decode failure is the only error a scan can return; everything after a
// successful decode degrades to empty results instead of failing.
type Scanner struct {
	preprocessor *preprocess.Preprocessor
	qrDetector   QRDetector
	recognizer   TextRecognizer
	extractor    *extract.Extractor
	pool         *WorkerPool
}

func New(pre *preprocess.Preprocessor, detector QRDetector, recognizer TextRecognizer, extractor *extract.Extractor, pool *WorkerPool) *Scanner {
	return &Scanner{
		preprocessor: pre,
		qrDetector:   detector,
		recognizer:   recognizer,
		extractor:    extractor,
		pool:         pool,
	}
}

// Scan processes one image end to end. The QR branch and the OCR branch
// read the same immutable variants concurrently; neither can fail the scan.
func (s *Scanner) Scan(ctx context.Context, data []byte) (*models.ScanResult, error) {
	start := time.Now()

	variants, err := s.preprocessor.Run(data)
	if err != nil {
		return nil, err
	}

	var (
		detections []models.QRDetection
		ocrResult  models.OCRResult
	)

	var wg sync.WaitGroup
	wg.Add(2)
	s.pool.Submit(func() {
		defer wg.Done()
		detections = s.qrDetector.Detect(ctx, variants)
	})
	s.pool.Submit(func() {
		defer wg.Done()
		ocrResult = s.recognizer.Run(ctx, variants)
	})
	wg.Wait()

	parsed := make([]models.ParsedDetection, 0, len(detections))
	for _, det := range detections {
		parsed = append(parsed, models.ParsedDetection{
			QRDetection: det,
			Parsed:      qr.Parse(det.Payload),
		})
	}

	contact := s.extractor.Extract(ocrResult, pickHint(parsed))

	result := &models.ScanResult{
		OCR:               ocrResult,
		QRCodes:           parsed,
		Contact:           &contact,
		Timestamp:         start.UTC(),
		ProcessingTimeSec: time.Since(start).Seconds(),
	}

	logger.WithFields(logrus.Fields{
		"qr_codes":   len(parsed),
		"ocr_engine": ocrResult.EngineLabel,
		"confidence": contact.ConfidenceScore,
		"elapsed":    result.ProcessingTimeSec,
	}).Info("scan completed")

	return result, nil
}

// ScanText runs the pipeline without the contact extraction step, for
// callers that only want raw recognition output.
func (s *Scanner) ScanText(ctx context.Context, data []byte) (*models.ScanResult, error) {
	start := time.Now()

	variants, err := s.preprocessor.Run(data)
	if err != nil {
		return nil, err
	}

	ocrResult := s.recognizer.Run(ctx, variants)

	return &models.ScanResult{
		OCR:               ocrResult,
		QRCodes:           []models.ParsedDetection{},
		Timestamp:         start.UTC(),
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

// ScanQR runs only the decode and QR branch.
func (s *Scanner) ScanQR(ctx context.Context, data []byte) (*models.ScanResult, error) {
	start := time.Now()

	variants, err := s.preprocessor.Run(data)
	if err != nil {
		return nil, err
	}

	detections := s.qrDetector.Detect(ctx, variants)
	parsed := make([]models.ParsedDetection, 0, len(detections))
	for _, det := range detections {
		parsed = append(parsed, models.ParsedDetection{
			QRDetection: det,
			Parsed:      qr.Parse(det.Payload),
		})
	}

	return &models.ScanResult{
		QRCodes:           parsed,
		Timestamp:         start.UTC(),
		ProcessingTimeSec: time.Since(start).Seconds(),
	}, nil
}

// pickHint selects the QR payload most useful to contact extraction.
// A vcard beats everything; otherwise the first url/email/phone detection
// is used. Wifi and plain text payloads carry no contact fields.
func pickHint(detections []models.ParsedDetection) *models.ParsedQRContent {
	var fallback *models.ParsedQRContent
	for i := range detections {
		parsed := detections[i].Parsed
		switch parsed.Kind {
		case models.ContentVCard:
			return &parsed
		case models.ContentURL, models.ContentEmail, models.ContentPhone:
			if fallback == nil {
				fallback = &parsed
			}
		}
	}
	return fallback
}
