package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/nftforge/text2nft/internal/adapters/chain"
	"github.com/nftforge/text2nft/internal/adapters/imagegen"
	"github.com/nftforge/text2nft/internal/adapters/imghost"
	"github.com/nftforge/text2nft/internal/adapters/lock"
	"github.com/nftforge/text2nft/internal/config"
	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/nftforge/text2nft/internal/core/service"
	"github.com/nftforge/text2nft/internal/logger"
	"github.com/nftforge/text2nft/pkg/nft"
	"github.com/nftforge/text2nft/pkg/wallet"
)

// journalMaxAge bounds how long an unresolved mint stays in the journal
const journalMaxAge = 7 * 24 * time.Hour

// Stack is the wired application: wallet session, minter and form.
type Stack struct {
	Connector *wallet.Connector
	Minter    *nft.Minter
	Form      *service.FormController

	stopWatch context.CancelFunc
	closers   []func()
}

// Build connects the wallet and wires every component from cfg. Errors
// are fatal startup failures.
func Build(ctx context.Context, cfg *config.Config, log logger.Logger) (*Stack, error) {
	fee, err := nft.ParseEther(cfg.MintFeeEther)
	if err != nil {
		return nil, fmt.Errorf("invalid MINT_FEE_ETHER: %w", err)
	}

	book, err := nft.LoadAddressBook(cfg.AddressBookPath)
	if err != nil {
		return nil, err
	}

	connector, err := wallet.Connect(ctx, wallet.Config{
		RPCEndpoint:        cfg.RPCEndpoint,
		PrivateKey:         cfg.PrivateKey,
		KeystoreDir:        cfg.KeystoreDir,
		KeystorePassphrase: cfg.KeystorePassphrase,
		PollInterval:       cfg.NetworkPollInterval,
	}, book, logger.Component(log, "wallet"))
	if err != nil {
		return nil, fmt.Errorf("wallet connection failed: %w", err)
	}
	watchCtx, stopWatch := context.WithCancel(ctx)
	s := &Stack{Connector: connector, stopWatch: stopWatch}
	s.closers = append(s.closers, connector.Close)
	connector.Watch(watchCtx)

	journal := nft.NewJournal(cfg.JournalDir)
	s.Minter = nft.NewMinter(connector.Session(), nft.MinterConfig{
		Fee:            fee,
		ConfirmTimeout: cfg.MintConfirmTimeout,
		Journal:        journal,
		Logger:         logger.Component(log, "minter"),
	})

	submissionLock, err := newLock(ctx, cfg, log)
	if err != nil {
		s.Close()
		return nil, err
	}
	if closer, ok := submissionLock.(*lock.Redis); ok {
		s.closers = append(s.closers, func() { _ = closer.Close() })
	}

	s.Form = service.NewFormController(
		newGenerator(cfg, log),
		imghost.NewImgbb(cfg.ImgbbUploadURL, cfg.ImgbbAPIKey, cfg.UploadTimeout, logger.Component(log, "imgbb")),
		chain.NewEthereumMinter(s.Minter),
		submissionLock,
		logger.Component(log, "form"),
	)

	if summary, err := s.Minter.Recover(ctx); err != nil {
		log.Warn().Err(err).Msg("failed to recover journaled mints")
	} else if summary != (nft.RecoverySummary{}) {
		log.Info().
			Int("confirmed", summary.Confirmed).
			Int("reverted", summary.Reverted).
			Int("pending", summary.Pending).
			Msg("recovered journaled mints")
	}
	if n, err := journal.CleanupOld(journalMaxAge); err == nil && n > 0 {
		log.Warn().Int("deleted", n).Msg("dropped stale journal entries")
	}

	return s, nil
}

func newGenerator(cfg *config.Config, log logger.Logger) domain.ImageGenerator {
	if cfg.ImageProvider == config.ProviderOpenAI {
		return imagegen.NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIImageModel, logger.Component(log, "openai"))
	}
	return imagegen.NewHuggingFace(cfg.HuggingFaceModelURL, cfg.HuggingFaceAPIKey, cfg.InferenceTimeout, logger.Component(log, "huggingface"))
}

func newLock(ctx context.Context, cfg *config.Config, log logger.Logger) (domain.SubmissionLock, error) {
	if cfg.RedisURL == "" {
		return lock.NewLocal(), nil
	}

	r, err := lock.NewRedis(cfg.RedisURL, "", cfg.LockTTL, logger.Component(log, "lock"))
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return r, nil
}

// Close stops the wallet listeners and releases connections in reverse
// order of creation.
func (s *Stack) Close() {
	s.stopWatch()
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
