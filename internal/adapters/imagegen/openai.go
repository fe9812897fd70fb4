package imagegen

import (
	"context"
	"errors"
	"fmt"

	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

// imageCreator is the part of the OpenAI client used here.
type imageCreator interface {
	CreateImage(ctx context.Context, request openai.ImageRequest) (openai.ImageResponse, error)
}

// OpenAI generates images with the OpenAI images API.
type OpenAI struct {
	client imageCreator
	model  string
	logger zerolog.Logger
}

// NewOpenAI creates a generator. baseURL may be empty for the public API.
func NewOpenAI(apiKey, baseURL, model string, logger zerolog.Logger) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = openai.CreateImageModelDallE2
	}
	return &OpenAI{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		logger: logger,
	}
}

// Generate requests a single base64 encoded PNG.
func (o *OpenAI) Generate(ctx context.Context, description string) (domain.GeneratedArtifact, error) {
	const op = "openai.generate"

	resp, err := o.client.CreateImage(ctx, openai.ImageRequest{
		Prompt:         description,
		Model:          o.model,
		N:              1,
		Size:           openai.CreateImageSize512x512,
		ResponseFormat: openai.CreateImageResponseFormatB64JSON,
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return domain.GeneratedArtifact{}, domain.E(domain.KindRemote, op,
				fmt.Errorf("image API returned status %d: %s", apiErr.HTTPStatusCode, apiErr.Message))
		}
		var reqErr *openai.RequestError
		if errors.As(err, &reqErr) {
			return domain.GeneratedArtifact{}, domain.E(domain.KindRemote, op,
				fmt.Errorf("image API returned status %d: %w", reqErr.HTTPStatusCode, err))
		}
		return domain.GeneratedArtifact{}, domain.E(domain.KindTransport, op, fmt.Errorf("image request failed: %w", err))
	}

	if len(resp.Data) == 0 || resp.Data[0].B64JSON == "" {
		return domain.GeneratedArtifact{}, domain.E(domain.KindRemote, op, errors.New("image API returned no image"))
	}

	o.logger.Debug().Str("model", o.model).Msg("image generated")

	return domain.GeneratedArtifact{
		ImageBase64: resp.Data[0].B64JSON,
		MimeType:    "image/png",
	}, nil
}
