package extract

import (
	"reflect"
	"testing"

	"go-card-scanner/pkg/models"
)

func TestExtract_FullCard(t *testing.T) {
	ocr := models.OCRResult{
		Text:       "Jane Doe\nCEO\nAcme Corp\njane@acme.com\n+1 415 555 0100",
		Confidence: 0.8,
	}

	contact := NewExtractor().Extract(ocr, nil)

	if contact.Name != "Jane Doe" {
		t.Errorf("name = %q, want Jane Doe", contact.Name)
	}
	if contact.Title != "CEO" {
		t.Errorf("title = %q, want CEO", contact.Title)
	}
	if contact.Company != "Acme Corp" {
		t.Errorf("company = %q, want Acme Corp", contact.Company)
	}
	if contact.Email != "jane@acme.com" {
		t.Errorf("email = %q", contact.Email)
	}
	if contact.Phone != "+1 415 555 0100" {
		t.Errorf("phone = %q", contact.Phone)
	}
	if contact.ConfidenceScore <= 0.5 {
		t.Errorf("confidence = %v, want > 0.5 for a complete extraction", contact.ConfidenceScore)
	}
}

func TestExtract_FieldRules(t *testing.T) {
	tests := []struct {
		name string
		text string
		want models.StructuredContact
	}{
		{
			name: "website not confused with email",
			text: "Jane Doe\njane@acme.com\nwww.acme.com",
			want: models.StructuredContact{Name: "Jane Doe", Email: "jane@acme.com", Website: "www.acme.com"},
		},
		{
			name: "five digits read as postal code, not phone",
			text: "Jane Doe\n12345",
			want: models.StructuredContact{Name: "Jane Doe", Address: "12345"},
		},
		{
			name: "address by street tokens",
			text: "Jane Doe\nCEO\n123 Market St Suite 400",
			want: models.StructuredContact{Name: "Jane Doe", Title: "CEO", Address: "123 Market St Suite 400"},
		},
		{
			name: "company suffix preferred over line order",
			text: "Globex LLC\nJane Doe",
			want: models.StructuredContact{Name: "Jane Doe", Company: "Globex LLC"},
		},
		{
			name: "ocr-mangled suffix still matches",
			text: "Jane Doe\nGlobex Lnc",
			want: models.StructuredContact{Name: "Jane Doe", Company: "Globex Lnc"},
		},
		{
			name: "digit-heavy second line is not a title",
			text: "Jane Doe\nBadge 9271\nCEO",
			want: models.StructuredContact{Name: "Jane Doe", Title: "CEO", OtherInfo: []string{"Badge 9271"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewExtractor().Extract(models.OCRResult{Text: tt.text, Confidence: 0.8}, nil)
			got.ConfidenceScore = 0
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Extract() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestExtract_VCardHintOverridesOCR(t *testing.T) {
	ocr := models.OCRResult{
		Text:       "Jane Doe\n+1 415 555 0100\njane@acme.com",
		Confidence: 0.7,
	}
	hint := &models.ParsedQRContent{
		Kind: models.ContentVCard,
		Details: map[string]string{
			"phone": "+1 650 555 9999",
			"name":  "Jane A. Doe",
		},
	}

	contact := NewExtractor().Extract(ocr, hint)

	if contact.Phone != "+1 650 555 9999" {
		t.Errorf("phone = %q, QR vcard value must win over OCR", contact.Phone)
	}
	if contact.Name != "Jane A. Doe" {
		t.Errorf("name = %q, QR vcard value must win over OCR", contact.Name)
	}
	if contact.Email != "jane@acme.com" {
		t.Errorf("email = %q, fields absent from the vcard keep OCR values", contact.Email)
	}
}

func TestExtract_NonVCardHintsOnlyFillGaps(t *testing.T) {
	ocr := models.OCRResult{Text: "Jane Doe\nwww.acme.com", Confidence: 0.6}
	hint := &models.ParsedQRContent{
		Kind:    models.ContentURL,
		Details: map[string]string{"url": "https://other.example.com"},
	}

	contact := NewExtractor().Extract(ocr, hint)

	if contact.Website != "www.acme.com" {
		t.Errorf("website = %q, a url hint must not override an OCR website", contact.Website)
	}
}

func TestExtract_IncompletePenalty(t *testing.T) {
	// only a name: fewer than 2 of {name, phone, email}
	sparse := NewExtractor().Extract(models.OCRResult{Text: "Jane Doe", Confidence: 0.8}, nil)
	if sparse.ConfidenceScore != 0.8*incompletePenalty {
		t.Errorf("sparse confidence = %v, want %v", sparse.ConfidenceScore, 0.8*incompletePenalty)
	}

	// name + email: no penalty
	full := NewExtractor().Extract(models.OCRResult{Text: "Jane Doe\njane@acme.com", Confidence: 0.8}, nil)
	if full.ConfidenceScore != 0.8 {
		t.Errorf("confidence = %v, want unchanged 0.8", full.ConfidenceScore)
	}
}

func TestExtract_EmptyText(t *testing.T) {
	contact := NewExtractor().Extract(models.OCRResult{Text: "", Confidence: 0.0}, nil)

	if contact.Name != "" || contact.Email != "" || len(contact.OtherInfo) != 0 {
		t.Errorf("empty text must extract nothing, got %+v", contact)
	}
	if contact.ConfidenceScore != 0.0 {
		t.Errorf("confidence = %v, want 0.0", contact.ConfidenceScore)
	}
}

func TestExtract_AdversarialLines(t *testing.T) {
	// multi-line mess: nothing should panic, leftovers keep their order
	text := "???\n@@@@\n++++++++\n12 34"
	contact := NewExtractor().Extract(models.OCRResult{Text: text, Confidence: 0.4}, nil)

	if contact.Name != "???" {
		t.Errorf("name = %q, first unmatched line becomes the name", contact.Name)
	}
	if contact.ConfidenceScore >= 0.4 {
		t.Errorf("confidence = %v, incomplete extraction must be penalized", contact.ConfidenceScore)
	}
}

func TestScoreConfidence_Bounds(t *testing.T) {
	for _, c := range []float64{0.0, 0.3, 1.0} {
		got := scoreConfidence(c, models.StructuredContact{})
		if got < 0 || got > 1 {
			t.Errorf("scoreConfidence(%v) = %v, out of [0,1]", c, got)
		}
	}
}
