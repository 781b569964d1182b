package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/png"
	"net/http"
	"time"

	"go-card-scanner/internal/preprocess"
	"go-card-scanner/pkg/models"
)

// visionEngine is the optional secondary engine backed by a hosted vision
// API. Availability is decided once at startup from configuration: without
// an API key the engine is permanently unavailable for the process lifetime.
type visionEngine struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

func NewVisionEngine(endpoint, apiKey string, timeout time.Duration) Engine {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &visionEngine{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
	}
}

func (e *visionEngine) Name() string { return "vision-api" }

func (e *visionEngine) Priority() int { return 1 }

func (e *visionEngine) Available() bool { return e.apiKey != "" && e.endpoint != "" }

func (e *visionEngine) OriginalOnly() bool { return true }

type visionImage struct {
	Content string `json:"content"`
}

type visionFeature struct {
	Type string `json:"type"`
}

type visionAnnotateRequest struct {
	Image    visionImage     `json:"image"`
	Features []visionFeature `json:"features"`
}

type visionRequest struct {
	Requests []visionAnnotateRequest `json:"requests"`
}

type visionResponse struct {
	Responses []struct {
		FullTextAnnotation *struct {
			Text  string `json:"text"`
			Pages []struct {
				Confidence float64 `json:"confidence"`
			} `json:"pages"`
		} `json:"fullTextAnnotation"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	} `json:"responses"`
}

func (e *visionEngine) Recognize(ctx context.Context, variant preprocess.Variant) (models.OCRAttempt, error) {
	var imgBuf bytes.Buffer
	if err := png.Encode(&imgBuf, variant.Image); err != nil {
		return models.OCRAttempt{}, fmt.Errorf("encoding %s variant: %w", variant.Label, err)
	}

	reqBody := visionRequest{
		Requests: []visionAnnotateRequest{{
			Image:    visionImage{Content: base64.StdEncoding.EncodeToString(imgBuf.Bytes())},
			Features: []visionFeature{{Type: "DOCUMENT_TEXT_DETECTION"}},
		}},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return models.OCRAttempt{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"?key="+e.apiKey, bytes.NewReader(payload))
	if err != nil {
		return models.OCRAttempt{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return models.OCRAttempt{}, fmt.Errorf("vision service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return models.OCRAttempt{}, fmt.Errorf("vision service returned status %d", resp.StatusCode)
	}

	var parsed visionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return models.OCRAttempt{}, fmt.Errorf("malformed vision response: %w", err)
	}
	if len(parsed.Responses) == 0 {
		return models.OCRAttempt{}, fmt.Errorf("empty vision response")
	}
	first := parsed.Responses[0]
	if first.Error != nil {
		return models.OCRAttempt{}, fmt.Errorf("vision service error: %s", first.Error.Message)
	}
	if first.FullTextAnnotation == nil {
		// no text in the image; a valid empty attempt
		return models.OCRAttempt{EngineLabel: e.Name(), VariantLabel: variant.Label}, nil
	}

	confidence := 0.9 // provider default when pages carry no figure
	if len(first.FullTextAnnotation.Pages) > 0 {
		sum := 0.0
		for _, page := range first.FullTextAnnotation.Pages {
			sum += page.Confidence
		}
		confidence = sum / float64(len(first.FullTextAnnotation.Pages))
	}
	if confidence < 0 {
		confidence = 0
	} else if confidence > 1 {
		confidence = 1
	}

	return models.OCRAttempt{
		Text:         first.FullTextAnnotation.Text,
		Confidence:   confidence,
		EngineLabel:  e.Name(),
		VariantLabel: variant.Label,
	}, nil
}
