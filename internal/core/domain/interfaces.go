package domain

import "context"

// ImageGenerator turns a text prompt into an image.
type ImageGenerator interface {
	// Generate performs a single inference request. No retry.
	Generate(ctx context.Context, description string) (GeneratedArtifact, error)
}

// ImageUploader publishes a base64 image and returns its public URL.
type ImageUploader interface {
	Upload(ctx context.Context, imageBase64, name string) (HostedAsset, error)
}

// Minter mints a token whose URI is tokenURI and waits for confirmation.
type Minter interface {
	Mint(ctx context.Context, req MintRequest) (*MintReceipt, error)
}

// SubmissionLock serialises submissions that sign with the same wallet.
type SubmissionLock interface {
	// TryAcquire returns ok=false when another holder has the lock.
	TryAcquire(ctx context.Context) (release func(), ok bool, err error)
}
