package models

import "time"

// ContentKind classifies what a decoded QR payload contains.
type ContentKind string

const (
	ContentURL   ContentKind = "url"
	ContentEmail ContentKind = "email"
	ContentPhone ContentKind = "phone"
	ContentVCard ContentKind = "vcard"
	ContentWiFi  ContentKind = "wifi"
	ContentPlain ContentKind = "plain_text"
)

// Symbology is the encoding standard of a scannable code.
type Symbology string

const (
	SymbologyQR    Symbology = "QRCODE"
	SymbologyOther Symbology = "OTHER"
)

// Rect is a bounding box in pixel coordinates. A zero Rect means the decoder
// did not report a location.
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// QRDetection is one decoded code. Payload is the uniqueness key; Method
// names the decoder and image variant that found it.
type QRDetection struct {
	Payload   string    `json:"data"`
	Symbology Symbology `json:"type"`
	Rect      Rect      `json:"rect"`
	Method    string    `json:"method"`
}

// ParsedQRContent is the typed interpretation of a QR payload. Details holds
// kind-specific fields; malformed sub-fields are simply absent.
type ParsedQRContent struct {
	Kind    ContentKind       `json:"content_kind"`
	Details map[string]string `json:"details"`
}

// ParsedDetection pairs a detection with its parsed content.
type ParsedDetection struct {
	QRDetection
	Parsed ParsedQRContent `json:"parsed"`
}

// OCRAttempt is one engine's output for one image variant.
type OCRAttempt struct {
	Text         string  `json:"text"`
	Confidence   float64 `json:"confidence"`
	EngineLabel  string  `json:"engine"`
	VariantLabel string  `json:"variant"`
}

// OCRResult is the reconciled outcome across all attempts. Confidence is the
// winning attempt's own confidence, or 0.0 when no attempt produced text.
// Agreement, when present, is 1-WER between the two best attempts.
type OCRResult struct {
	Text        string   `json:"text"`
	Confidence  float64  `json:"confidence"`
	EngineLabel string   `json:"engine"`
	Agreement   *float64 `json:"agreement,omitempty"`
}

// ScanResult is the full pipeline outcome for one image.
type ScanResult struct {
	OCR               OCRResult          `json:"ocr"`
	QRCodes           []ParsedDetection  `json:"qr_codes"`
	Contact           *StructuredContact `json:"structured_data,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
	ProcessingTimeSec float64            `json:"processing_time_sec"`
}
