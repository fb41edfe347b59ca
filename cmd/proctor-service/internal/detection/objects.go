package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Prediction is one detected object as reported by the hosted model.
// Width and height are in image pixels; the bounding-box area is their
// product.
type Prediction struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// Area returns the bounding-box area in pixel units.
func (p Prediction) Area() float64 {
	return p.Width * p.Height
}

// ObjectDetector submits an encoded frame to an object-detection capability
// and returns the detections in service order. A transport or decode failure
// is an error, distinct from an empty prediction list.
type ObjectDetector interface {
	Detect(ctx context.Context, frame []byte) ([]Prediction, error)
}

// HostedDetector calls a Roboflow-style hosted inference endpoint:
// POST {baseURL}/{modelID}?api_key=...&confidence=50&overlap=30 with the
// frame as a multipart "file" part.
type HostedDetector struct {
	baseURL string
	apiKey  string
	modelID string
	client  *http.Client
}

// NewHostedDetector configures the client with an explicit timeout so one
// slow inference call cannot stall frame processing for a room.
func NewHostedDetector(baseURL, apiKey, modelID string, timeout time.Duration) *HostedDetector {
	return &HostedDetector{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		modelID: modelID,
		client:  &http.Client{Timeout: timeout},
	}
}

func (d *HostedDetector) Detect(ctx context.Context, frame []byte) ([]Prediction, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", "frame.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}
	if _, err := part.Write(frame); err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}

	query := url.Values{}
	query.Set("api_key", d.apiKey)
	query.Set("confidence", "50")
	query.Set("overlap", "30")
	endpoint := fmt.Sprintf("%s/%s?%s", d.baseURL, d.modelID, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to build detection request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("object detection call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("object detection returned status %d: %s", resp.StatusCode, string(payload))
	}

	var parsed struct {
		Predictions []Prediction `json:"predictions"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("object detection returned malformed response: %w", err)
	}
	return parsed.Predictions, nil
}
