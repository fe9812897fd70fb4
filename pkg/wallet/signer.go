package wallet

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/event"
)

// Signer holds the accounts that can sign mint transactions.
type Signer interface {
	Accounts() []common.Address
	TransactOpts(account common.Address, chainID *big.Int) (*bind.TransactOpts, error)
}

// accountNotifier is implemented by signers whose account set can change.
type accountNotifier interface {
	Subscribe(sink chan<- accounts.WalletEvent) event.Subscription
}

// KeySigner signs with a single raw private key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key, with or without 0x prefix.
func NewKeySigner(privateKeyHex string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(privateKeyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Accounts returns the key's address.
func (s *KeySigner) Accounts() []common.Address {
	return []common.Address{s.address}
}

// TransactOpts returns a keyed transactor for account.
func (s *KeySigner) TransactOpts(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if account != s.address {
		return nil, fmt.Errorf("unknown account %s", account.Hex())
	}
	return bind.NewKeyedTransactorWithChainID(s.key, chainID)
}

// KeystoreSigner signs with accounts from an encrypted keystore directory.
// Accounts added to the directory later are unlocked on first use.
type KeystoreSigner struct {
	store      *keystore.KeyStore
	passphrase string

	mu       sync.Mutex
	unlocked map[common.Address]bool
}

// OpenKeystore opens dir and unlocks every account with passphrase.
func OpenKeystore(dir, passphrase string) (*KeystoreSigner, error) {
	ks := keystore.NewKeyStore(dir, keystore.StandardScryptN, keystore.StandardScryptP)
	s := &KeystoreSigner{store: ks, passphrase: passphrase, unlocked: make(map[common.Address]bool)}

	for _, account := range ks.Accounts() {
		if err := s.unlock(account.Address); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Accounts returns the keystore accounts in keystore order.
func (s *KeystoreSigner) Accounts() []common.Address {
	list := s.store.Accounts()
	addrs := make([]common.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, a.Address)
	}
	return addrs
}

// Subscribe forwards keystore wallet events (accounts arriving or leaving).
func (s *KeystoreSigner) Subscribe(sink chan<- accounts.WalletEvent) event.Subscription {
	return s.store.Subscribe(sink)
}

// TransactOpts returns a keystore transactor for account, unlocking it if needed.
func (s *KeystoreSigner) TransactOpts(account common.Address, chainID *big.Int) (*bind.TransactOpts, error) {
	if !s.store.HasAddress(account) {
		return nil, fmt.Errorf("unknown account %s", account.Hex())
	}
	if err := s.unlock(account); err != nil {
		return nil, err
	}
	return bind.NewKeyStoreTransactorWithChainID(s.store, accounts.Account{Address: account}, chainID)
}

func (s *KeystoreSigner) unlock(address common.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unlocked[address] {
		return nil
	}
	if err := s.store.Unlock(accounts.Account{Address: address}, s.passphrase); err != nil {
		return fmt.Errorf("%w: failed to unlock %s: %w", keystore.ErrLocked, address.Hex(), err)
	}
	s.unlocked[address] = true
	return nil
}
