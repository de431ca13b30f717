package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"
)

// UploadResult is what the media collaborator hands back. The core only
// ever stores the URL and resource type on a message, never raw bytes.
type UploadResult struct {
	URL          string `json:"url"`
	ResourceType string `json:"resourceType"`
}

// Uploader is the media upload collaborator boundary.
type Uploader interface {
	Upload(ctx context.Context, filename, contentType string, data []byte) (*UploadResult, error)
}

// httpUploader forwards the payload to an external media service over
// multipart POST and relays its {url, resourceType} answer.
type httpUploader struct {
	endpoint string
	client   *http.Client
}

func NewHTTPUploader(endpoint string) Uploader {
	return &httpUploader{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

func (u *httpUploader) Upload(ctx context.Context, filename, contentType string, data []byte) (*UploadResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if err := writer.WriteField("contentType", contentType); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("media upload failed: status %d: %s", resp.StatusCode, snippet)
	}

	var result UploadResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &result, nil
}
