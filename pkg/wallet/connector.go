package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/nftforge/text2nft/pkg/nft"
	"github.com/rs/zerolog"
)

// Config selects the provider endpoint and the signer.
type Config struct {
	RPCEndpoint        string
	PrivateKey         string
	KeystoreDir        string
	KeystorePassphrase string
	PollInterval       time.Duration
}

type chainIDReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
}

// Connector owns the provider connection and feeds wallet events into the
// session.
type Connector struct {
	client       *ethclient.Client
	network      chainIDReader
	signer       Signer
	session      *Session
	pollInterval time.Duration
	logger       zerolog.Logger

	watchOnce sync.Once
	wg        sync.WaitGroup
}

// Connect dials the provider, opens the signer and resolves the initial
// network and account. Failure here is fatal for the caller.
func Connect(ctx context.Context, cfg Config, book nft.AddressBook, logger zerolog.Logger) (*Connector, error) {
	signer, err := openSigner(cfg)
	if err != nil {
		return nil, err
	}

	client, err := ethclient.DialContext(ctx, cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to get chain ID: %w", err)
	}

	session := NewSession(client, book, signer, logger)
	session.Dispatch(NetworkChanged{ChainID: chainID})
	session.Dispatch(AccountChanged{Accounts: accountStrings(signer.Accounts())})

	return &Connector{
		client:       client,
		network:      client,
		signer:       signer,
		session:      session,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}, nil
}

func openSigner(cfg Config) (Signer, error) {
	switch {
	case cfg.PrivateKey != "":
		return NewKeySigner(cfg.PrivateKey)
	case cfg.KeystoreDir != "":
		return OpenKeystore(cfg.KeystoreDir, cfg.KeystorePassphrase)
	}
	return nil, fmt.Errorf("no wallet configured: set a private key or keystore directory")
}

// Session returns the session fed by this connector.
func (c *Connector) Session() *Session {
	return c.session
}

// Watch starts the account and network listeners. Only the first call
// registers them; they stop when ctx is cancelled.
func (c *Connector) Watch(ctx context.Context) {
	c.watchOnce.Do(func() {
		if notifier, ok := c.signer.(accountNotifier); ok {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.watchAccounts(ctx, notifier)
			}()
		}
		if c.pollInterval > 0 && c.network != nil {
			c.wg.Add(1)
			go func() {
				defer c.wg.Done()
				c.watchNetwork(ctx)
			}()
		}
	})
}

func (c *Connector) watchAccounts(ctx context.Context, notifier accountNotifier) {
	events := make(chan accounts.WalletEvent, 16)
	sub := notifier.Subscribe(events)
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-sub.Err():
			if err != nil {
				c.logger.Error().Err(err).Msg("account subscription failed")
			}
			return
		case ev := <-events:
			c.logger.Debug().Str("wallet", ev.Wallet.URL().String()).Int("kind", int(ev.Kind)).Msg("wallet event")
			c.session.Dispatch(AccountChanged{Accounts: accountStrings(c.signer.Accounts())})
		}
	}
}

func (c *Connector) watchNetwork(ctx context.Context) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.pollNetwork(ctx)
		}
	}
}

// pollNetwork dispatches NetworkChanged when the provider reports a chain
// id different from the session's.
func (c *Connector) pollNetwork(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	chainID, err := c.network.ChainID(pollCtx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to poll chain ID")
		return
	}
	if current := c.session.ChainID(); current != nil && current.Cmp(chainID) == 0 {
		return
	}
	c.session.Dispatch(NetworkChanged{ChainID: chainID})
}

// Close waits for the listeners to stop and closes the provider.
// Cancel the context passed to Watch first.
func (c *Connector) Close() {
	c.wg.Wait()
	if c.client != nil {
		c.client.Close()
	}
}
