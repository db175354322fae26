package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/kozaktomas/faceauth/internal/database"
)

const defaultEmbeddingURL = "http://localhost:8000"

// HTTPProvider calls a face-embedding server exposing POST /embed/face.
type HTTPProvider struct {
	baseURL  string
	minScore float64
	client   *http.Client
}

// NewHTTPProvider creates a provider for the server at baseURL.
func NewHTTPProvider(baseURL string, minScore float64, timeout time.Duration) *HTTPProvider {
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}
	return &HTTPProvider{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		minScore: minScore,
		client:   &http.Client{Timeout: timeout},
	}
}

// Name identifies the provider.
func (p *HTTPProvider) Name() string {
	return "http(" + p.baseURL + ")"
}

// Probe checks the server's health endpoint.
func (p *HTTPProvider) Probe(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// postImage sends imageData as the multipart field "file" and returns the body.
func (p *HTTPProvider) postImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", "face.jpg")
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// Extract detects the single face in image and returns its embedding.
func (p *HTTPProvider) Extract(ctx context.Context, image []byte) (database.FeatureVector, error) {
	body, err := p.postImage(ctx, "/embed/face", image)
	if err != nil {
		return nil, err
	}

	var faceResp FaceResponse
	if err := json.Unmarshal(body, &faceResp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return selectFace(&faceResp, p.minScore)
}
