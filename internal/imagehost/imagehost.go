// Package imagehost uploads cover and profile images to the image host and
// returns their public URL.
package imagehost

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"bookcourier/internal/apperr"
	"bookcourier/internal/util"

	"go.uber.org/zap"
)

// Uploader is implemented by Client; screens depend on this.
type Uploader interface {
	Upload(ctx context.Context, filename string, r io.Reader) (string, error)
}

type Client struct {
	endpoint   string
	apiKey     string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(endpoint, apiKey string) *Client {
	return &Client{
		endpoint:   endpoint,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     util.GetLogger(),
	}
}

type uploadResponse struct {
	Success bool `json:"success"`
	Data    struct {
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
	} `json:"data"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Upload posts the image as multipart field "image" and returns its display URL.
func (c *Client) Upload(ctx context.Context, filename string, r io.Reader) (string, error) {
	ctx, span := util.StartSpan(ctx, "ImageHost.Upload")
	defer span.End()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	if err != nil {
		return "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return "", fmt.Errorf("failed to read image: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finish multipart body: %w", err)
	}

	endpoint := c.endpoint + "?key=" + url.QueryEscape(c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Network(err)
	}
	defer resp.Body.Close()

	var out uploadResponse
	decodeErr := json.NewDecoder(resp.Body).Decode(&out)
	if resp.StatusCode >= 300 {
		c.logger.Warn("Image upload rejected", zap.Int("status", resp.StatusCode), zap.String("error", out.Error.Message))
		return "", apperr.Status(resp.StatusCode, out.Error.Message)
	}
	if decodeErr != nil {
		return "", apperr.Decode(resp.StatusCode, decodeErr)
	}

	link := out.Data.DisplayURL
	if link == "" {
		link = out.Data.URL
	}
	if link == "" {
		return "", apperr.Decode(resp.StatusCode, fmt.Errorf("upload response has no url"))
	}
	return link, nil
}
