package wallet

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nftforge/text2nft/pkg/nft"
	"github.com/rs/zerolog"
)

// Hardhat account #0
const (
	testPrivateKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress    = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func testBook(t *testing.T) nft.AddressBook {
	t.Helper()
	book, err := nft.ParseAddressBook([]byte(`{
		"31337": {"nft": {"address": "0x5FbDB2315678afecb367f032d93F642f64180aa3"}},
		"11155111": {"nft": {"address": "0x00000000000000000000000000000000000000aa"}}
	}`))
	if err != nil {
		t.Fatalf("ParseAddressBook() error = %v", err)
	}
	return book
}

func newTestSession(t *testing.T) *Session {
	t.Helper()
	signer, err := NewKeySigner(testPrivateKey)
	if err != nil {
		t.Fatalf("NewKeySigner() error = %v", err)
	}
	return NewSession(nil, testBook(t), signer, zerolog.Nop())
}

func TestSession_AccountChanged(t *testing.T) {
	session := newTestSession(t)

	if _, ok := session.Account(); ok {
		t.Fatal("new session should have no account")
	}

	// Lowercase input is normalised to checksum form
	session.Dispatch(AccountChanged{Accounts: []string{
		"0xf39fd6e51aad88f6f4ce6ab8827279cfffb92266",
		"0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	}})

	account, ok := session.Account()
	if !ok {
		t.Fatal("Account() not set after AccountChanged")
	}
	if account.Hex() != testAddress {
		t.Errorf("Account() = %s, want %s", account.Hex(), testAddress)
	}

	session.Dispatch(AccountChanged{Accounts: nil})
	if _, ok := session.Account(); ok {
		t.Error("Account() should be absent when the wallet reports none")
	}

	session.Dispatch(AccountChanged{Accounts: []string{"not-an-address"}})
	if _, ok := session.Account(); ok {
		t.Error("Account() should be absent for an invalid account")
	}
}

func TestSession_NetworkChanged(t *testing.T) {
	session := newTestSession(t)

	if _, err := session.Contract(); !errors.Is(err, nft.ErrUnsupportedNetwork) {
		t.Fatalf("Contract() before network = %v, want ErrUnsupportedNetwork", err)
	}

	session.Dispatch(NetworkChanged{ChainID: big.NewInt(31337)})
	contract, err := session.Contract()
	if err != nil {
		t.Fatalf("Contract() error = %v", err)
	}
	if contract.Address() != common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3") {
		t.Errorf("Contract().Address() = %s", contract.Address().Hex())
	}

	// Rebinds to the deployment of the new network
	session.Dispatch(NetworkChanged{ChainID: big.NewInt(11155111)})
	contract, err = session.Contract()
	if err != nil {
		t.Fatalf("Contract() error = %v", err)
	}
	if contract.Address() != common.HexToAddress("0xaa") {
		t.Errorf("Contract().Address() = %s, want 0x..aa", contract.Address().Hex())
	}

	// Unknown network is recoverable: the binding error is reported, not fatal
	session.Dispatch(NetworkChanged{ChainID: big.NewInt(1)})
	if _, err := session.Contract(); !errors.Is(err, nft.ErrUnsupportedNetwork) {
		t.Errorf("Contract() on unknown network = %v, want ErrUnsupportedNetwork", err)
	}
	info := session.Info()
	if info.ChainID != "1" || info.BindError == "" || info.ContractAddress != "" {
		t.Errorf("Info() = %+v", info)
	}
}

func TestSession_Transactor(t *testing.T) {
	session := newTestSession(t)
	session.Dispatch(NetworkChanged{ChainID: big.NewInt(31337)})

	if _, err := session.Transactor(context.Background()); !errors.Is(err, nft.ErrNoAccount) {
		t.Fatalf("Transactor() without account = %v, want ErrNoAccount", err)
	}

	session.Dispatch(AccountChanged{Accounts: []string{testAddress}})
	opts, err := session.Transactor(context.Background())
	if err != nil {
		t.Fatalf("Transactor() error = %v", err)
	}
	if opts.From.Hex() != testAddress {
		t.Errorf("From = %s, want %s", opts.From.Hex(), testAddress)
	}

	// An account the signer does not hold cannot sign
	session.Dispatch(AccountChanged{Accounts: []string{"0x70997970C51812dc3A010C7d01b50e0d17dc79C8"}})
	if _, err := session.Transactor(context.Background()); !errors.Is(err, nft.ErrRejected) {
		t.Errorf("Transactor() for foreign account = %v, want ErrRejected", err)
	}
}

type stubNetwork struct {
	chainID *big.Int
	calls   int
}

func (s *stubNetwork) ChainID(ctx context.Context) (*big.Int, error) {
	s.calls++
	return s.chainID, nil
}

func TestConnector_PollNetwork(t *testing.T) {
	session := newTestSession(t)
	session.Dispatch(NetworkChanged{ChainID: big.NewInt(31337)})

	network := &stubNetwork{chainID: big.NewInt(31337)}
	c := &Connector{network: network, session: session, logger: zerolog.Nop()}

	c.pollNetwork(context.Background())
	if got := session.ChainID(); got.Int64() != 31337 {
		t.Errorf("ChainID() = %v, want 31337", got)
	}

	network.chainID = big.NewInt(11155111)
	c.pollNetwork(context.Background())
	if got := session.ChainID(); got.Int64() != 11155111 {
		t.Errorf("ChainID() after switch = %v, want 11155111", got)
	}
	if network.calls != 2 {
		t.Errorf("ChainID calls = %d, want 2", network.calls)
	}
}
