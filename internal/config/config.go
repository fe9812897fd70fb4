package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Image providers accepted by IMAGE_PROVIDER.
const (
	ProviderHuggingFace = "huggingface"
	ProviderOpenAI      = "openai"
)

// Config contains all configuration parameters for the service.
type Config struct {
	ListenAddr string `envconfig:"LISTEN_ADDR" default:":3000"`
	AppEnv     string `envconfig:"APP_ENV" default:"production"`

	// Chain
	RPCEndpoint         string        `envconfig:"RPC_ENDPOINT" default:"http://127.0.0.1:8545"`
	PrivateKey          string        `envconfig:"PRIVATE_KEY"`
	KeystoreDir         string        `envconfig:"KEYSTORE_DIR"`
	KeystorePassphrase  string        `envconfig:"KEYSTORE_PASSPHRASE"`
	AddressBookPath     string        `envconfig:"ADDRESS_BOOK_PATH"`
	MintFeeEther        string        `envconfig:"MINT_FEE_ETHER" default:"1"`
	MintConfirmTimeout  time.Duration `envconfig:"MINT_CONFIRM_TIMEOUT" default:"5m"`
	NetworkPollInterval time.Duration `envconfig:"NETWORK_POLL_INTERVAL" default:"15s"`
	JournalDir          string        `envconfig:"JOURNAL_DIR" default:".text2nft/journal"`

	// Image generation
	ImageProvider       string        `envconfig:"IMAGE_PROVIDER" default:"huggingface"`
	HuggingFaceAPIKey   string        `envconfig:"HUGGING_FACE_API_KEY"`
	HuggingFaceModelURL string        `envconfig:"HUGGING_FACE_MODEL_URL" default:"https://api-inference.huggingface.co/models/stabilityai/stable-diffusion-2-1"`
	OpenAIAPIKey        string        `envconfig:"OPENAI_API_KEY"`
	OpenAIBaseURL       string        `envconfig:"OPENAI_BASE_URL"`
	OpenAIImageModel    string        `envconfig:"OPENAI_IMAGE_MODEL" default:"dall-e-2"`
	InferenceTimeout    time.Duration `envconfig:"INFERENCE_TIMEOUT" default:"3m"`

	// Image hosting
	ImgbbAPIKey    string        `envconfig:"IMGBB_API_KEY"`
	ImgbbUploadURL string        `envconfig:"IMGBB_UPLOAD_URL" default:"https://api.imgbb.com/1/upload"`
	UploadTimeout  time.Duration `envconfig:"UPLOAD_TIMEOUT" default:"60s"`

	// Submission lock shared by replicas signing with the same wallet.
	// The holder renews it every LOCK_TTL/3.
	RedisURL string        `envconfig:"REDIS_URL"`
	LockTTL  time.Duration `envconfig:"LOCK_TTL" default:"1m"`

	// UI session cookie
	SessionSecret string        `envconfig:"SESSION_SECRET"`
	SessionTTL    time.Duration `envconfig:"SESSION_TTL" default:"24h"`
}

// Load reads an optional .env file and processes the environment.
func Load() (*Config, error) {
	_ = godotenv.Load() // Load .env if present

	cfg := &Config{}
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that cannot be expressed as struct tags.
// Missing API keys are not an error: they surface as a remote
// authentication failure on first use.
func (c *Config) Validate() error {
	switch c.ImageProvider {
	case ProviderHuggingFace, ProviderOpenAI:
	default:
		return fmt.Errorf("unknown IMAGE_PROVIDER %q (want %q or %q)", c.ImageProvider, ProviderHuggingFace, ProviderOpenAI)
	}
	if c.PrivateKey == "" && c.KeystoreDir == "" {
		return fmt.Errorf("no wallet configured: set PRIVATE_KEY or KEYSTORE_DIR")
	}
	if c.MintConfirmTimeout <= 0 {
		return fmt.Errorf("MINT_CONFIRM_TIMEOUT must be positive")
	}
	if c.RedisURL != "" && c.LockTTL < 3*time.Second {
		return fmt.Errorf("LOCK_TTL must be at least 3s when REDIS_URL is set")
	}
	return nil
}

// IsDevelopment reports whether APP_ENV selects development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// MissingSecrets lists API keys that are empty for the selected providers.
func (c *Config) MissingSecrets() []string {
	var missing []string
	switch c.ImageProvider {
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			missing = append(missing, "OPENAI_API_KEY")
		}
	default:
		if c.HuggingFaceAPIKey == "" {
			missing = append(missing, "HUGGING_FACE_API_KEY")
		}
	}
	if c.ImgbbAPIKey == "" {
		missing = append(missing, "IMGBB_API_KEY")
	}
	return missing
}
