package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"time"
)

// RemoteOCR calls an OCR service over HTTP: the image is posted as PNG bytes
// and the service answers with the recognized fragments in reading order.
// Designed around easyocr-style servers.
type RemoteOCR struct {
	endpoint string
	client   *http.Client
}

func NewRemoteOCR(endpoint string, timeout time.Duration) *RemoteOCR {
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	return &RemoteOCR{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (r *RemoteOCR) Recognize(ctx context.Context, img image.Image) ([]string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("building ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "image/png")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling ocr service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("ocr service returned %s: %s", resp.Status, body)
	}

	var payload struct {
		Fragments []string `json:"fragments"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding ocr response: %w", err)
	}

	return payload.Fragments, nil
}
