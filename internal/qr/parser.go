package qr

import (
	"strings"

	"go-card-scanner/pkg/models"
)

// Parse classifies a raw QR payload into a typed content record. The rules
// run in fixed priority order so the result is deterministic for any input.
// Malformed sub-fields are omitted from Details; the kind only degrades to
// plain_text when no structural prefix matched at all.
func Parse(payload string) models.ParsedQRContent {
	lower := strings.ToLower(payload)

	switch {
	case strings.HasPrefix(payload, "tel:"):
		return parseTel(payload)
	case strings.HasPrefix(payload, "mailto:"):
		return parseMailto(payload)
	case strings.HasPrefix(lower, "wifi:"):
		return parseWiFi(payload)
	case strings.HasPrefix(lower, "begin:vcard"):
		return parseVCard(payload)
	case isURL(payload, lower):
		return models.ParsedQRContent{
			Kind:    models.ContentURL,
			Details: map[string]string{"url": payload},
		}
	default:
		return models.ParsedQRContent{
			Kind:    models.ContentPlain,
			Details: map[string]string{"text": payload},
		}
	}
}

func isURL(payload, lower string) bool {
	return strings.HasPrefix(lower, "http://") ||
		strings.HasPrefix(lower, "https://") ||
		strings.HasPrefix(lower, "www.")
}

func parseTel(payload string) models.ParsedQRContent {
	details := map[string]string{}
	if number := strings.TrimSpace(strings.TrimPrefix(payload, "tel:")); number != "" {
		details["number"] = number
	}
	return models.ParsedQRContent{Kind: models.ContentPhone, Details: details}
}

func parseMailto(payload string) models.ParsedQRContent {
	details := map[string]string{}
	addr := strings.TrimPrefix(payload, "mailto:")
	// strip mailto query parameters (?subject=...)
	if i := strings.IndexByte(addr, '?'); i >= 0 {
		addr = addr[:i]
	}
	if addr = strings.TrimSpace(addr); addr != "" {
		details["address"] = addr
	}
	return models.ParsedQRContent{Kind: models.ContentEmail, Details: details}
}

// parseWiFi handles the WIFI:T:WPA;S:ssid;P:password;; credential format.
func parseWiFi(payload string) models.ParsedQRContent {
	details := map[string]string{}
	body := payload[len("wifi:"):]

	for _, segment := range strings.Split(body, ";") {
		key, value, found := strings.Cut(segment, ":")
		if !found || value == "" {
			continue
		}
		switch strings.ToUpper(strings.TrimSpace(key)) {
		case "T":
			details["security"] = value
		case "S":
			details["ssid"] = value
		case "P":
			details["password"] = value
		}
	}
	return models.ParsedQRContent{Kind: models.ContentWiFi, Details: details}
}

// vCard property lines to detail keys. Property parameters (TEL;TYPE=WORK:)
// are ignored; only the first occurrence of each property is kept.
var vcardFields = map[string]string{
	"FN":    "name",
	"TEL":   "phone",
	"EMAIL": "email",
	"ORG":   "company",
	"TITLE": "title",
	"URL":   "website",
	"ADR":   "address",
}

func parseVCard(payload string) models.ParsedQRContent {
	details := map[string]string{}

	for _, line := range strings.Split(payload, "\n") {
		line = strings.TrimRight(line, "\r")
		prop, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		// strip property parameters: TEL;TYPE=WORK -> TEL
		if i := strings.IndexByte(prop, ';'); i >= 0 {
			prop = prop[:i]
		}
		prop = strings.ToUpper(strings.TrimSpace(prop))

		key, wanted := vcardFields[prop]
		if !wanted {
			continue
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if prop == "ADR" {
			// ADR components are semicolon-separated; keep the non-empty ones
			value = joinADR(value)
			if value == "" {
				continue
			}
		}
		if _, exists := details[key]; !exists {
			details[key] = value
		}
	}
	return models.ParsedQRContent{Kind: models.ContentVCard, Details: details}
}

func joinADR(raw string) string {
	var parts []string
	for _, component := range strings.Split(raw, ";") {
		if component = strings.TrimSpace(component); component != "" {
			parts = append(parts, component)
		}
	}
	return strings.Join(parts, ", ")
}
