package extract

import (
	"regexp"
	"strings"

	"github.com/arbovm/levenshtein"

	"go-card-scanner/pkg/models"
)

// incompletePenalty scales the confidence score down when fewer than 2 of
// {name, phone, email} were populated. The factor is a tunable heuristic,
// not a correctness requirement; 0.7 keeps a perfect OCR read of a sparse
// card above the 0.5 "usable" line while flagging it as incomplete.
const incompletePenalty = 0.7

var (
	emailRe = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRe = regexp.MustCompile(`\+?[0-9][0-9\s().\-/]{5,}[0-9]`)
	urlRe   = regexp.MustCompile(`(?i)\b(https?://[^\s]+|www\.[^\s]+|[a-z0-9\-]+\.(com|net|org|io|co|ai|de|uk|us|biz|info)\b[^\s]*)`)

	streetRe = regexp.MustCompile(`(?i)\b\d+\s+.*\b(st|street|ave|avenue|road|rd|blvd|boulevard|suite|ste|drive|dr|lane|ln|court|ct|way|floor|fl)\b`)
	postalRe = regexp.MustCompile(`\b\d{5}(-\d{4})?\b|\b[A-Z]\d[A-Z]\s?\d[A-Z]\d\b`)
	digitRe  = regexp.MustCompile(`\d`)
)

// Company suffixes matched with levenshtein distance <= 1 to absorb OCR
// character swaps ("lnc", "L1C"). "Co" stays exact-only: it is one edit away
// from too many real words.
var fuzzyCompanySuffixes = []string{"inc", "llc", "ltd", "corp", "gmbh"}
var exactCompanySuffixes = []string{"co"}

// Extractor turns free-form OCR text into a normalized contact record,
// optionally fused with a parsed QR payload. Line rules run in specificity
// order; QR-derived values win over OCR-derived ones because they are
// exact-decoded, not recognized.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract applies the line rules to ocr.Text and fuses in the QR hint.
func (e *Extractor) Extract(ocr models.OCRResult, hint *models.ParsedQRContent) models.StructuredContact {
	contact := models.StructuredContact{}

	lines := splitLines(ocr.Text)
	consumed := make([]bool, len(lines))

	// 1-3: email, phone, website — first matching line each
	for i, line := range lines {
		if contact.Email == "" {
			if m := emailRe.FindString(line); m != "" {
				contact.Email = m
				consumed[i] = true
				continue
			}
		}
		if contact.Phone == "" && !consumed[i] {
			if m := phoneRe.FindString(line); m != "" && significantDigits(m) >= 7 {
				contact.Phone = strings.TrimSpace(m)
				consumed[i] = true
				continue
			}
		}
		if contact.Website == "" && !consumed[i] && !strings.Contains(line, "@") {
			if m := urlRe.FindString(line); m != "" {
				contact.Website = strings.TrimRight(m, ".,;")
				consumed[i] = true
			}
		}
	}

	// 4: name / title / company from the remaining lines
	for i, line := range lines {
		if consumed[i] || contact.Company != "" {
			continue
		}
		if hasCompanySuffix(line) {
			contact.Company = line
			consumed[i] = true
		}
	}
	for i, line := range lines {
		if consumed[i] {
			continue
		}
		if contact.Name == "" {
			contact.Name = line
			consumed[i] = true
			continue
		}
		if contact.Title == "" {
			if len(line) <= 60 && !digitRe.MatchString(line) {
				contact.Title = line
			} else if !digitRe.MatchString(line) {
				// overlong clean line reads as a continuation of the name
				contact.Name = contact.Name + " " + line
			} else {
				continue
			}
			consumed[i] = true
		}
	}

	// 5: address from whatever is left
	for i, line := range lines {
		if consumed[i] || contact.Address != "" {
			continue
		}
		if streetRe.MatchString(line) || postalRe.MatchString(line) {
			contact.Address = line
			consumed[i] = true
		}
	}

	// 6: leftovers, original order
	for i, line := range lines {
		if !consumed[i] {
			contact.OtherInfo = append(contact.OtherInfo, line)
		}
	}

	e.fuseHint(&contact, hint)
	contact.ConfidenceScore = scoreConfidence(ocr.Confidence, contact)
	return contact
}

// fuseHint applies QR-derived values. vCard fields override OCR results
// outright; url/email/phone payloads only fill gaps.
func (e *Extractor) fuseHint(contact *models.StructuredContact, hint *models.ParsedQRContent) {
	if hint == nil {
		return
	}

	switch hint.Kind {
	case models.ContentVCard:
		setIfPresent(hint.Details, "name", &contact.Name)
		setIfPresent(hint.Details, "title", &contact.Title)
		setIfPresent(hint.Details, "company", &contact.Company)
		setIfPresent(hint.Details, "phone", &contact.Phone)
		setIfPresent(hint.Details, "email", &contact.Email)
		setIfPresent(hint.Details, "website", &contact.Website)
		setIfPresent(hint.Details, "address", &contact.Address)
	case models.ContentURL:
		if contact.Website == "" {
			contact.Website = hint.Details["url"]
		}
	case models.ContentEmail:
		if contact.Email == "" {
			contact.Email = hint.Details["address"]
		}
	case models.ContentPhone:
		if contact.Phone == "" {
			contact.Phone = hint.Details["number"]
		}
	}
}

func setIfPresent(details map[string]string, key string, field *string) {
	if v, ok := details[key]; ok && v != "" {
		*field = v
	}
}

// scoreConfidence reflects extraction completeness, not just OCR quality.
func scoreConfidence(ocrConfidence float64, contact models.StructuredContact) float64 {
	populated := 0
	for _, v := range []string{contact.Name, contact.Phone, contact.Email} {
		if v != "" {
			populated++
		}
	}

	score := ocrConfidence
	if populated < 2 {
		score *= incompletePenalty
	}
	if score < 0 {
		score = 0
	} else if score > 1 {
		score = 1
	}
	return score
}

func splitLines(text string) []string {
	var lines []string
	for _, raw := range strings.Split(text, "\n") {
		if line := strings.TrimSpace(raw); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func significantDigits(s string) int {
	count := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			count++
		}
	}
	return count
}

func hasCompanySuffix(line string) bool {
	for _, token := range strings.Fields(line) {
		normalized := strings.ToLower(strings.Trim(token, ".,;()"))

		for _, suffix := range exactCompanySuffixes {
			if normalized == suffix {
				return true
			}
		}
		if len(normalized) < 3 {
			continue
		}
		for _, suffix := range fuzzyCompanySuffixes {
			if levenshtein.Distance(normalized, suffix) <= 1 {
				return true
			}
		}
	}
	return false
}
