package qr

import (
	"reflect"
	"testing"

	"go-card-scanner/pkg/models"
)

func TestParse_Classification(t *testing.T) {
	tests := []struct {
		name     string
		payload  string
		wantKind models.ContentKind
		wantKeys map[string]string
	}{
		{
			name:     "phone link",
			payload:  "tel:+14155550123",
			wantKind: models.ContentPhone,
			wantKeys: map[string]string{"number": "+14155550123"},
		},
		{
			name:     "email link",
			payload:  "mailto:jane@acme.com",
			wantKind: models.ContentEmail,
			wantKeys: map[string]string{"address": "jane@acme.com"},
		},
		{
			name:     "email link with subject",
			payload:  "mailto:jane@acme.com?subject=Hello",
			wantKind: models.ContentEmail,
			wantKeys: map[string]string{"address": "jane@acme.com"},
		},
		{
			name:     "wifi credential",
			payload:  "WIFI:T:WPA;S:OfficeNet;P:s3cret;;",
			wantKind: models.ContentWiFi,
			wantKeys: map[string]string{"security": "WPA", "ssid": "OfficeNet", "password": "s3cret"},
		},
		{
			name:     "wifi lowercase prefix",
			payload:  "wifi:S:Guest;;",
			wantKind: models.ContentWiFi,
			wantKeys: map[string]string{"ssid": "Guest"},
		},
		{
			name:     "https url",
			payload:  "https://acme.com/jane",
			wantKind: models.ContentURL,
			wantKeys: map[string]string{"url": "https://acme.com/jane"},
		},
		{
			name:     "bare www url",
			payload:  "www.acme.com",
			wantKind: models.ContentURL,
			wantKeys: map[string]string{"url": "www.acme.com"},
		},
		{
			name:     "plain text",
			payload:  "see you at booth 42",
			wantKind: models.ContentPlain,
			wantKeys: map[string]string{"text": "see you at booth 42"},
		},
		{
			name:     "empty payload",
			payload:  "",
			wantKind: models.ContentPlain,
			wantKeys: map[string]string{"text": ""},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Parse(tt.payload)
			if got.Kind != tt.wantKind {
				t.Errorf("Parse(%q).Kind = %q, want %q", tt.payload, got.Kind, tt.wantKind)
			}
			if !reflect.DeepEqual(got.Details, tt.wantKeys) {
				t.Errorf("Parse(%q).Details = %v, want %v", tt.payload, got.Details, tt.wantKeys)
			}
		})
	}
}

func TestParse_VCard(t *testing.T) {
	payload := "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nTITLE:CEO\r\nORG:Acme Corp\r\nTEL;TYPE=WORK:+1 415 555 0100\r\nEMAIL:jane@acme.com\r\nURL:https://acme.com\r\nADR:;;123 Market St;San Francisco;CA;94103;USA\r\nEND:VCARD"

	got := Parse(payload)
	if got.Kind != models.ContentVCard {
		t.Fatalf("Kind = %q, want vcard", got.Kind)
	}

	want := map[string]string{
		"name":    "Jane Doe",
		"title":   "CEO",
		"company": "Acme Corp",
		"phone":   "+1 415 555 0100",
		"email":   "jane@acme.com",
		"website": "https://acme.com",
		"address": "123 Market St, San Francisco, CA, 94103, USA",
	}
	if !reflect.DeepEqual(got.Details, want) {
		t.Errorf("Details = %v, want %v", got.Details, want)
	}
}

func TestParse_VCardMalformedFieldsOmitted(t *testing.T) {
	payload := "begin:vcard\nFN:\nTEL\nEMAIL:jane@acme.com\nNOTE:ignored\nend:vcard"

	got := Parse(payload)
	if got.Kind != models.ContentVCard {
		t.Fatalf("Kind = %q, want vcard (structural prefix matched)", got.Kind)
	}

	want := map[string]string{"email": "jane@acme.com"}
	if !reflect.DeepEqual(got.Details, want) {
		t.Errorf("Details = %v, want %v", got.Details, want)
	}
}

func TestParse_VCardKeepsFirstOccurrence(t *testing.T) {
	payload := "BEGIN:VCARD\nTEL:+1111111\nTEL:+2222222\nEND:VCARD"

	got := Parse(payload)
	if got.Details["phone"] != "+1111111" {
		t.Errorf("phone = %q, want first TEL value", got.Details["phone"])
	}
}

func TestParse_Deterministic(t *testing.T) {
	payloads := []string{
		"tel:+14155550123",
		"WIFI:T:WPA;S:net;P:pw;;",
		"BEGIN:VCARD\nFN:Jane\nEND:VCARD",
		"random text",
	}
	for _, p := range payloads {
		first := Parse(p)
		second := Parse(p)
		if first.Kind != second.Kind || !reflect.DeepEqual(first.Details, second.Details) {
			t.Errorf("Parse(%q) is not deterministic", p)
		}
	}
}
