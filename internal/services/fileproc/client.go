package fileproc

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

// Client talks to the external file-processing service. Uploads are
// fail-closed: any transport or processor error aborts the whole request
// and no local row is written. Delete notifications are best effort.
type Client struct {
	HTTP    *http.Client
	BaseURL string
}

func New(baseURL string) *Client {
	return &Client{
		HTTP:    &http.Client{Timeout: 15 * time.Second},
		BaseURL: baseURL,
	}
}

// UploadResult is the processor's view of a stored file. Raw keeps the
// full response body so it can be persisted as the opaque metadata blob.
type UploadResult struct {
	Filename         string `json:"filename"`
	OriginalFilename string `json:"original_filename"`
	FilePath         string `json:"file_path"`
	ContentType      string `json:"content_type"`
	FileSize         int64  `json:"file_size"`

	Raw json.RawMessage `json:"-"`
}

func (c *Client) Upload(ctx context.Context, filename, contentType string, content []byte) (*UploadResult, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := fw.Write(content); err != nil {
		return nil, err
	}
	meta, _ := json.Marshal(map[string]any{
		"filename":     filename,
		"content_type": contentType,
		"file_size":    len(content),
	})
	if err := mw.WriteField("metadata", string(meta)); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/files/upload", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("file processor returned %d: %s", resp.StatusCode, raw)
	}

	var result UploadResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("decode processor response: %w", err)
	}
	if result.Filename == "" {
		result.Filename = filename
	}
	result.Raw = raw
	return &result, nil
}

// Delete notifies the processor that a file is gone. Callers treat a
// failure here as log-and-continue; the local row is removed regardless.
func (c *Client) Delete(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.BaseURL+"/api/files/"+id, nil)
	if err != nil {
		return err
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("file processor returned %d", resp.StatusCode)
	}
	return nil
}
