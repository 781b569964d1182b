package qr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"time"

	"go-card-scanner/pkg/models"
)

// remoteDecoder proxies to a goQR.me-compatible read-qr-code endpoint. It
// runs last: network latency, and the service is optional. Any non-2xx
// response, timeout, or malformed body counts as zero detections for this
// decoder; network errors never reach the engine's caller.
type remoteDecoder struct {
	endpoint string
	client   *http.Client
}

// NewRemoteDecoder builds the external-service decoder. An empty endpoint
// yields a permanently unavailable decoder.
func NewRemoteDecoder(endpoint string, timeout time.Duration) Decoder {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &remoteDecoder{
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:          4,
				MaxIdleConnsPerHost:   2,
				IdleConnTimeout:       30 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 10 * time.Second,
			},
		},
	}
}

func (d *remoteDecoder) Name() string { return "goqr-api" }

func (d *remoteDecoder) Priority() int { return 2 }

func (d *remoteDecoder) Available() bool { return d.endpoint != "" }

func (d *remoteDecoder) OriginalOnly() bool { return true }

// remote response shape: [{"type":"qrcode","symbol":[{"seq":0,"data":"...","error":null}]}]
type remoteSymbol struct {
	Data  *string `json:"data"`
	Error *string `json:"error"`
}

type remoteEntry struct {
	Symbol []remoteSymbol `json:"symbol"`
}

func (d *remoteDecoder) Decode(ctx context.Context, img image.Image) ([]models.QRDetection, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding upload image: %w", err)
	}

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("file", "scan.png")
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(buf.Bytes()); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote QR service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("remote QR service returned status %d", resp.StatusCode)
	}

	var entries []remoteEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		// malformed body counts as zero detections
		return nil, nil
	}

	var detections []models.QRDetection
	for _, entry := range entries {
		for _, sym := range entry.Symbol {
			if sym.Data == nil || *sym.Data == "" || (sym.Error != nil && *sym.Error != "") {
				continue
			}
			detections = append(detections, models.QRDetection{
				Payload:   *sym.Data,
				Symbology: models.SymbologyQR,
			})
		}
	}
	return detections, nil
}
