package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/rs/zerolog"
)

// DefaultHuggingFaceURL is the Stable Diffusion 2.1 inference endpoint
const DefaultHuggingFaceURL = "https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-2-1"

type inferenceRequest struct {
	Inputs  string           `json:"inputs"`
	Options inferenceOptions `json:"options"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

// HuggingFace generates images through the Hugging Face inference API.
type HuggingFace struct {
	modelURL   string
	apiKey     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewHuggingFace creates a generator for modelURL. An empty URL selects
// Stable Diffusion 2.1.
func NewHuggingFace(modelURL, apiKey string, timeout time.Duration, logger zerolog.Logger) *HuggingFace {
	if modelURL == "" {
		modelURL = DefaultHuggingFaceURL
	}
	return &HuggingFace{
		modelURL:   modelURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Generate sends one inference request and returns the image bytes.
func (h *HuggingFace) Generate(ctx context.Context, description string) (domain.GeneratedArtifact, error) {
	const op = "huggingface.generate"

	body, err := json.Marshal(inferenceRequest{
		Inputs:  description,
		Options: inferenceOptions{WaitForModel: true},
	})
	if err != nil {
		return domain.GeneratedArtifact{}, domain.E(domain.KindInternal, op, fmt.Errorf("failed to marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.modelURL, bytes.NewReader(body))
	if err != nil {
		return domain.GeneratedArtifact{}, domain.E(domain.KindInternal, op, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Authorization", "Bearer "+h.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := h.httpClient.Do(req)
	if err != nil {
		return domain.GeneratedArtifact{}, domain.E(domain.KindTransport, op, fmt.Errorf("inference request failed: %w", err))
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.GeneratedArtifact{}, domain.E(domain.KindTransport, op, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.GeneratedArtifact{}, domain.E(domain.KindRemote, op,
			fmt.Errorf("inference API returned status %d: %s", resp.StatusCode, extractErrorMessage(data)))
	}

	mimeType := resp.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}
	if mediaType, _, err := mime.ParseMediaType(mimeType); err == nil {
		mimeType = mediaType
	}
	if !strings.HasPrefix(mimeType, "image/") {
		return domain.GeneratedArtifact{}, domain.E(domain.KindRemote, op,
			fmt.Errorf("inference API returned %s instead of an image: %s", mimeType, extractErrorMessage(data)))
	}

	h.logger.Debug().
		Int("bytes", len(data)).
		Str("mime", mimeType).
		Dur("elapsed", time.Since(start)).
		Msg("image generated")

	return domain.GeneratedArtifact{
		ImageBase64: base64.StdEncoding.EncodeToString(data),
		MimeType:    mimeType,
	}, nil
}

// extractErrorMessage pulls a readable message out of an error body
func extractErrorMessage(body []byte) string {
	var payload struct {
		Error   interface{} `json:"error"`
		Message string      `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Message != "" {
			return payload.Message
		}
		switch e := payload.Error.(type) {
		case string:
			if e != "" {
				return e
			}
		case map[string]interface{}:
			if msg, ok := e["message"].(string); ok && msg != "" {
				return msg
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200] + "..."
	}
	return msg
}
