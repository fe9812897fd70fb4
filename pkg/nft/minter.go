package nft

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// Mint failure causes. Returned errors wrap one of these.
var (
	ErrNoAccount         = errors.New("no wallet account available")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRejected          = errors.New("transaction rejected by signer")
	ErrReverted          = errors.New("transaction reverted")
)

// Backend is the chain access needed to mint and confirm.
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
}

// Session supplies the provider, the bound contract and a signer for the
// active account.
type Session interface {
	Backend() Backend
	ChainID() *big.Int
	Contract() (*Contract, error)
	Transactor(ctx context.Context) (*bind.TransactOpts, error)
}

// Receipt describes a confirmed mint.
type Receipt struct {
	TxHash      common.Hash
	BlockNumber uint64
	TokenID     *big.Int // nil when no Transfer log was found
}

// MinterConfig configures a Minter.
type MinterConfig struct {
	Fee            *big.Int      // wei sent with every mint, defaults to 1 ether
	ConfirmTimeout time.Duration // bound on waiting for the receipt
	Journal        *Journal      // optional record of broadcast transactions
	Logger         zerolog.Logger
}

// Minter sends payable mint(tokenURI) transactions and waits for them.
type Minter struct {
	session        Session
	fee            *big.Int
	confirmTimeout time.Duration
	journal        *Journal
	logger         zerolog.Logger
}

// NewMinter creates a minter signing through session.
func NewMinter(session Session, cfg MinterConfig) *Minter {
	fee := cfg.Fee
	if fee == nil {
		fee = DefaultMintFee()
	}
	timeout := cfg.ConfirmTimeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Minter{
		session:        session,
		fee:            new(big.Int).Set(fee),
		confirmTimeout: timeout,
		journal:        cfg.Journal,
		logger:         cfg.Logger,
	}
}

// Fee returns the wei value sent with each mint.
func (m *Minter) Fee() *big.Int {
	return new(big.Int).Set(m.fee)
}

// Mint mints tokenURI paying the configured fee and blocks until the
// transaction is mined.
func (m *Minter) Mint(ctx context.Context, tokenURI string) (*Receipt, error) {
	return m.MintWithValue(ctx, tokenURI, nil)
}

// MintWithValue is Mint paying value wei. A nil value pays the configured fee.
func (m *Minter) MintWithValue(ctx context.Context, tokenURI string, value *big.Int) (*Receipt, error) {
	if value == nil {
		value = m.fee
	}
	if value.Sign() < 0 {
		return nil, fmt.Errorf("negative mint value %s", value)
	}

	contract, err := m.session.Contract()
	if err != nil {
		return nil, err
	}

	opts, err := m.session.Transactor(ctx)
	if err != nil {
		return nil, err
	}
	opts.Context = ctx
	opts.Value = new(big.Int).Set(value)

	backend := m.session.Backend()

	balance, err := backend.BalanceAt(ctx, opts.From, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Cmp(value) < 0 {
		return nil, fmt.Errorf("%w: have %s wei, need %s wei for mint", ErrInsufficientFunds, balance, value)
	}

	tx, err := contract.Mint(opts, tokenURI)
	if err != nil {
		return nil, classifySendError(err)
	}
	txHash := tx.Hash()

	m.logger.Info().
		Str("tx_hash", txHash.Hex()).
		Str("account", opts.From.Hex()).
		Str("token_uri", tokenURI).
		Msg("mint transaction sent")

	m.record(&JournalEntry{
		TxHash:          txHash.Hex(),
		TokenURI:        tokenURI,
		Account:         opts.From.Hex(),
		ChainID:         chainIDString(m.session.ChainID()),
		ContractAddress: contract.Address().Hex(),
		ValueWei:        value.String(),
		State:           JournalStatePending,
	})

	waitCtx, cancel := context.WithTimeout(ctx, m.confirmTimeout)
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, backend, tx)
	if err != nil {
		// The journal entry stays so a restart can resolve the outcome
		return nil, fmt.Errorf("failed waiting for mint transaction %s: %w", txHash.Hex(), err)
	}
	m.forget(txHash)

	if receipt.Status == types.ReceiptStatusFailed {
		return nil, fmt.Errorf("%w: mint transaction %s", ErrReverted, txHash.Hex())
	}

	result := &Receipt{
		TxHash:      txHash,
		BlockNumber: receipt.BlockNumber.Uint64(),
		TokenID:     contract.TokenIDFromReceipt(receipt),
	}

	evt := m.logger.Info().Str("tx_hash", txHash.Hex()).Uint64("block", result.BlockNumber)
	if result.TokenID != nil {
		evt = evt.Str("token_id", result.TokenID.String())
	}
	evt.Msg("mint confirmed")

	return result, nil
}

// RecoverySummary counts the journal entries resolved by Recover.
type RecoverySummary struct {
	Confirmed int
	Reverted  int
	Pending   int
}

// Recover checks the receipt of every journaled transaction. Mined entries
// are logged and removed; transactions the node does not know yet stay.
func (m *Minter) Recover(ctx context.Context) (RecoverySummary, error) {
	var summary RecoverySummary
	if m.journal == nil {
		return summary, nil
	}

	entries, err := m.journal.List()
	if err != nil {
		return summary, err
	}

	backend := m.session.Backend()
	for _, entry := range entries {
		hash := common.HexToHash(entry.TxHash)
		receipt, err := backend.TransactionReceipt(ctx, hash)
		if errors.Is(err, ethereum.NotFound) {
			summary.Pending++
			m.logger.Warn().Str("tx_hash", entry.TxHash).Str("token_uri", entry.TokenURI).Msg("journaled mint still pending")
			continue
		}
		if err != nil {
			return summary, fmt.Errorf("failed to get receipt for %s: %w", entry.TxHash, err)
		}

		if receipt.Status == types.ReceiptStatusFailed {
			summary.Reverted++
			m.logger.Warn().Str("tx_hash", entry.TxHash).Str("token_uri", entry.TokenURI).Msg("journaled mint reverted")
		} else {
			summary.Confirmed++
			m.logger.Info().Str("tx_hash", entry.TxHash).Str("token_uri", entry.TokenURI).Msg("journaled mint confirmed")
		}
		m.forget(hash)
	}

	return summary, nil
}

func (m *Minter) record(entry *JournalEntry) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Save(entry); err != nil {
		m.logger.Warn().Err(err).Str("tx_hash", entry.TxHash).Msg("failed to journal mint")
	}
}

func (m *Minter) forget(hash common.Hash) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Delete(hash.Hex()); err != nil {
		m.logger.Warn().Err(err).Str("tx_hash", hash.Hex()).Msg("failed to clear journal entry")
	}
}

// classifySendError maps node and signer errors to the mint failure causes.
func classifySendError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, keystore.ErrLocked),
		strings.Contains(msg, "rejected"),
		strings.Contains(msg, "denied"):
		return fmt.Errorf("%w: %w", ErrRejected, err)
	case strings.Contains(msg, "insufficient funds"):
		return fmt.Errorf("%w: %w", ErrInsufficientFunds, err)
	case strings.Contains(msg, "revert"):
		return fmt.Errorf("%w: %w", ErrReverted, err)
	case strings.Contains(msg, "no contract code"):
		return fmt.Errorf("%w: %w", ErrUnsupportedNetwork, err)
	}
	return fmt.Errorf("failed to send mint transaction: %w", err)
}

func chainIDString(id *big.Int) string {
	if id == nil {
		return ""
	}
	return id.String()
}
