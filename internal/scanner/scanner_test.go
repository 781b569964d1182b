package scanner

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"sync/atomic"
	"testing"

	apperrors "go-card-scanner/internal/errors"
	"go-card-scanner/internal/extract"
	"go-card-scanner/internal/preprocess"
	"go-card-scanner/pkg/models"
)

type fakeDetector struct {
	detections []models.QRDetection
	calls      int32
}

func (f *fakeDetector) Detect(_ context.Context, _ []preprocess.Variant) []models.QRDetection {
	atomic.AddInt32(&f.calls, 1)
	return f.detections
}

type fakeRecognizer struct {
	result models.OCRResult
	calls  int32
}

func (f *fakeRecognizer) Run(_ context.Context, _ []preprocess.Variant) models.OCRResult {
	atomic.AddInt32(&f.calls, 1)
	return f.result
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 32, 32))); err != nil {
		t.Fatalf("encoding fixture: %v", err)
	}
	return buf.Bytes()
}

func newTestScanner(detector QRDetector, recognizer TextRecognizer) (*Scanner, *WorkerPool) {
	pool := NewWorkerPool(2)
	pool.Start()
	return New(preprocess.NewPreprocessor(), detector, recognizer, extract.NewExtractor(), pool), pool
}

func TestScan_UndecodableInputFailsBeforeRecognition(t *testing.T) {
	detector := &fakeDetector{}
	recognizer := &fakeRecognizer{}
	s, pool := newTestScanner(detector, recognizer)
	defer pool.Close()

	_, err := s.Scan(context.Background(), []byte("not an image"))
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !apperrors.IsType(err, apperrors.ErrorTypeDecode) {
		t.Errorf("error type = %v, want decode", err)
	}
	if detector.calls != 0 || recognizer.calls != 0 {
		t.Error("recognizers must not run on undecodable input")
	}
}

func TestScan_QROnlyCardYieldsHintedContact(t *testing.T) {
	detector := &fakeDetector{detections: []models.QRDetection{{
		Payload:   "tel:+14155550100",
		Symbology: models.SymbologyQR,
		Method:    "goqr (original)",
	}}}
	recognizer := &fakeRecognizer{result: models.OCRResult{Text: "", Confidence: 0.0}}
	s, pool := newTestScanner(detector, recognizer)
	defer pool.Close()

	result, err := s.Scan(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if len(result.QRCodes) != 1 {
		t.Fatalf("qr codes = %d, want 1", len(result.QRCodes))
	}
	if result.QRCodes[0].Parsed.Kind != models.ContentPhone {
		t.Errorf("kind = %q, want phone", result.QRCodes[0].Parsed.Kind)
	}
	if result.Contact == nil || result.Contact.Phone != "+14155550100" {
		t.Errorf("contact = %+v, want phone filled from the QR hint", result.Contact)
	}
	if result.OCR.Text != "" {
		t.Errorf("ocr text = %q, want empty", result.OCR.Text)
	}
}

func TestScan_VCardHintFusesWithOCR(t *testing.T) {
	detector := &fakeDetector{detections: []models.QRDetection{{
		Payload:   "BEGIN:VCARD\nVERSION:3.0\nFN:Jane A. Doe\nORG:Acme Corp\nEND:VCARD",
		Symbology: models.SymbologyQR,
	}}}
	recognizer := &fakeRecognizer{result: models.OCRResult{
		Text:        "Jane Doe\nCEO\njane@acme.com\n+1 415 555 0100",
		Confidence:  0.8,
		EngineLabel: "tesseract",
	}}
	s, pool := newTestScanner(detector, recognizer)
	defer pool.Close()

	result, err := s.Scan(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("Scan() error: %v", err)
	}

	if result.Contact.Name != "Jane A. Doe" {
		t.Errorf("name = %q, vcard value must win", result.Contact.Name)
	}
	if result.Contact.Company != "Acme Corp" {
		t.Errorf("company = %q", result.Contact.Company)
	}
	if result.Contact.Email != "jane@acme.com" {
		t.Errorf("email = %q, OCR field absent from vcard must survive", result.Contact.Email)
	}
	if result.ProcessingTimeSec < 0 {
		t.Errorf("processing time = %v", result.ProcessingTimeSec)
	}
}

func TestScanQR_SkipsOCR(t *testing.T) {
	detector := &fakeDetector{detections: []models.QRDetection{{Payload: "https://acme.com"}}}
	recognizer := &fakeRecognizer{}
	s, pool := newTestScanner(detector, recognizer)
	defer pool.Close()

	result, err := s.ScanQR(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("ScanQR() error: %v", err)
	}
	if recognizer.calls != 0 {
		t.Error("OCR must not run for a QR-only scan")
	}
	if len(result.QRCodes) != 1 || result.QRCodes[0].Parsed.Kind != models.ContentURL {
		t.Errorf("qr codes = %+v", result.QRCodes)
	}
}

func TestScanText_SkipsQRAndExtraction(t *testing.T) {
	detector := &fakeDetector{}
	recognizer := &fakeRecognizer{result: models.OCRResult{Text: "hello", Confidence: 0.6}}
	s, pool := newTestScanner(detector, recognizer)
	defer pool.Close()

	result, err := s.ScanText(context.Background(), pngBytes(t))
	if err != nil {
		t.Fatalf("ScanText() error: %v", err)
	}
	if detector.calls != 0 {
		t.Error("QR detection must not run for a text-only scan")
	}
	if result.OCR.Text != "hello" || result.Contact != nil {
		t.Errorf("result = %+v", result)
	}
}

func TestPickHint_VCardBeatsEarlierURL(t *testing.T) {
	detections := []models.ParsedDetection{
		{Parsed: models.ParsedQRContent{Kind: models.ContentURL, Details: map[string]string{"url": "https://a.com"}}},
		{Parsed: models.ParsedQRContent{Kind: models.ContentVCard, Details: map[string]string{"name": "Jane"}}},
	}

	hint := pickHint(detections)
	if hint == nil || hint.Kind != models.ContentVCard {
		t.Errorf("hint = %+v, want the vcard", hint)
	}
}

func TestPickHint_WifiCarriesNoContactFields(t *testing.T) {
	detections := []models.ParsedDetection{
		{Parsed: models.ParsedQRContent{Kind: models.ContentWiFi, Details: map[string]string{"ssid": "guest"}}},
	}
	if hint := pickHint(detections); hint != nil {
		t.Errorf("hint = %+v, want nil", hint)
	}
}

func TestWorkerPool_RunsEverySubmittedJob(t *testing.T) {
	pool := NewWorkerPool(3)
	pool.Start()
	defer pool.Close()

	var ran int32
	for i := 0; i < 20; i++ {
		pool.Submit(func() { atomic.AddInt32(&ran, 1) })
	}
	pool.Wait()

	if ran != 20 {
		t.Errorf("ran = %d, want 20", ran)
	}
}
