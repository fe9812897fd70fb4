package imghost

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

	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/rs/zerolog"
)

// DefaultUploadURL is the imgbb upload endpoint
const DefaultUploadURL = "https://api.imgbb.com/1/upload"

// uploadResponse is the subset of the imgbb response used here
type uploadResponse struct {
	Data struct {
		ID         string `json:"id"`
		URL        string `json:"url"`
		DisplayURL string `json:"display_url"`
		DeleteURL  string `json:"delete_url"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
	Error   struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Imgbb uploads images to imgbb.com.
type Imgbb struct {
	uploadURL  string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewImgbb creates an uploader. An empty uploadURL selects the public API.
func NewImgbb(uploadURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *Imgbb {
	if uploadURL == "" {
		uploadURL = DefaultUploadURL
	}
	return &Imgbb{
		uploadURL:  uploadURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Upload posts the base64 image as multipart field "image" and returns the
// hosted URL.
func (u *Imgbb) Upload(ctx context.Context, imageBase64, name string) (domain.HostedAsset, error) {
	const op = "imgbb.upload"

	endpoint, err := url.Parse(u.uploadURL)
	if err != nil {
		return domain.HostedAsset{}, domain.E(domain.KindInternal, op, fmt.Errorf("invalid upload URL: %w", err))
	}
	q := endpoint.Query()
	q.Set("name", name)
	q.Set("key", u.apiKey)
	endpoint.RawQuery = q.Encode()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("image", imageBase64); err != nil {
		return domain.HostedAsset{}, domain.E(domain.KindInternal, op, fmt.Errorf("failed to write form field: %w", err))
	}
	if err := writer.Close(); err != nil {
		return domain.HostedAsset{}, domain.E(domain.KindInternal, op, fmt.Errorf("failed to close multipart writer: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), &body)
	if err != nil {
		return domain.HostedAsset{}, domain.E(domain.KindInternal, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return domain.HostedAsset{}, domain.E(domain.KindTransport, op, fmt.Errorf("upload request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.HostedAsset{}, domain.E(domain.KindTransport, op, fmt.Errorf("failed to read response: %w", err))
	}

	var parsed uploadResponse
	parseErr := json.Unmarshal(data, &parsed)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(data))
		if parseErr == nil && parsed.Error.Message != "" {
			msg = parsed.Error.Message
		}
		return domain.HostedAsset{}, domain.E(domain.KindRemote, op,
			fmt.Errorf("image host returned status %d: %s", resp.StatusCode, msg))
	}
	if parseErr != nil {
		return domain.HostedAsset{}, domain.E(domain.KindRemote, op, fmt.Errorf("failed to parse response: %w", parseErr))
	}
	if parsed.Data.URL == "" {
		return domain.HostedAsset{}, domain.E(domain.KindRemote, op, fmt.Errorf("image host response has no URL"))
	}

	u.logger.Debug().Str("url", parsed.Data.URL).Str("name", name).Msg("image uploaded")

	return domain.HostedAsset{URL: parsed.Data.URL}, nil
}
