package wallet

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/nftforge/text2nft/pkg/nft"
	"github.com/rs/zerolog"
)

// Event is a wallet notification dispatched into a Session.
type Event interface {
	walletEvent()
}

// AccountChanged carries the accounts the wallet currently exposes, in
// wallet order. The first one becomes the active account.
type AccountChanged struct {
	Accounts []string
}

// NetworkChanged carries the chain id the provider is connected to.
type NetworkChanged struct {
	ChainID *big.Int
}

func (AccountChanged) walletEvent() {}
func (NetworkChanged) walletEvent() {}

// Info is a read-only view of the session for display.
type Info struct {
	Account         string `json:"account,omitempty"`
	ChainID         string `json:"chain_id,omitempty"`
	ContractAddress string `json:"contract_address,omitempty"`
	BindError       string `json:"bind_error,omitempty"`
}

// Session owns the provider, the active account, the network id and the
// contract bound for that network. It changes only through Dispatch.
type Session struct {
	backend nft.Backend
	book    nft.AddressBook
	signer  Signer
	logger  zerolog.Logger

	mu       sync.RWMutex
	chainID  *big.Int
	account  *common.Address
	contract *nft.Contract
	bindErr  error
}

// NewSession creates a session with no network and no account yet.
func NewSession(backend nft.Backend, book nft.AddressBook, signer Signer, logger zerolog.Logger) *Session {
	return &Session{
		backend: backend,
		book:    book,
		signer:  signer,
		logger:  logger,
		bindErr: fmt.Errorf("%w: network not resolved", nft.ErrUnsupportedNetwork),
	}
}

// Dispatch applies a wallet event.
func (s *Session) Dispatch(ev Event) {
	switch e := ev.(type) {
	case AccountChanged:
		s.setAccounts(e.Accounts)
	case NetworkChanged:
		s.setNetwork(e.ChainID)
	}
}

func (s *Session) setAccounts(list []string) {
	var active *common.Address
	if len(list) > 0 {
		if common.IsHexAddress(list[0]) {
			addr := common.HexToAddress(list[0])
			active = &addr
		} else {
			s.logger.Warn().Str("account", list[0]).Msg("wallet reported an invalid account")
		}
	}

	s.mu.Lock()
	s.account = active
	s.mu.Unlock()

	if active == nil {
		s.logger.Warn().Msg("no wallet account available")
		return
	}
	s.logger.Info().Str("account", active.Hex()).Msg("active account changed")
}

func (s *Session) setNetwork(chainID *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if chainID != nil && s.chainID != nil && s.chainID.Cmp(chainID) == 0 {
		return
	}
	if chainID != nil {
		s.chainID = new(big.Int).Set(chainID)
	} else {
		s.chainID = nil
	}

	contract, err := nft.Bind(s.book, chainID, s.backend)
	s.contract, s.bindErr = contract, err
	if err != nil {
		s.logger.Warn().Err(err).Msg("no contract for network")
		return
	}
	s.logger.Info().
		Str("chain_id", chainID.String()).
		Str("contract", contract.Address().Hex()).
		Msg("network changed")
}

// Backend returns the chain provider.
func (s *Session) Backend() nft.Backend {
	return s.backend
}

// ChainID returns the current network id, or nil before it is resolved.
func (s *Session) ChainID() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.chainID == nil {
		return nil
	}
	return new(big.Int).Set(s.chainID)
}

// Account returns the active account.
func (s *Session) Account() (common.Address, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.account == nil {
		return common.Address{}, false
	}
	return *s.account, true
}

// Contract returns the contract bound for the current network.
func (s *Session) Contract() (*nft.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.contract, s.bindErr
}

// Transactor returns signing options for the active account.
func (s *Session) Transactor(ctx context.Context) (*bind.TransactOpts, error) {
	s.mu.RLock()
	account, chainID := s.account, s.chainID
	s.mu.RUnlock()

	if account == nil {
		return nil, nft.ErrNoAccount
	}
	if chainID == nil {
		return nil, fmt.Errorf("%w: network not resolved", nft.ErrUnsupportedNetwork)
	}

	opts, err := s.signer.TransactOpts(*account, chainID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", nft.ErrRejected, err)
	}
	opts.Context = ctx
	return opts, nil
}

// Info returns the session state for display.
func (s *Session) Info() Info {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var info Info
	if s.account != nil {
		info.Account = s.account.Hex()
	}
	if s.chainID != nil {
		info.ChainID = s.chainID.String()
	}
	if s.contract != nil {
		info.ContractAddress = s.contract.Address().Hex()
	}
	if s.bindErr != nil {
		info.BindError = s.bindErr.Error()
	}
	return info
}

// accountStrings renders addresses for an AccountChanged event.
func accountStrings(addrs []common.Address) []string {
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		out = append(out, a.Hex())
	}
	return out
}
