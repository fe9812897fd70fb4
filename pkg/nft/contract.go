package nft

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// Contract ABI methods
const (
	MethodMint     = "mint"
	MethodTokenURI = "tokenURI"
	MethodOwnerOf  = "ownerOf"
	EventTransfer  = "Transfer"
)

const contractABI = `[
	{
		"name": "mint",
		"type": "function",
		"inputs": [
			{"name": "tokenURI", "type": "string"}
		],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "payable"
	},
	{
		"name": "tokenURI",
		"type": "function",
		"inputs": [
			{"name": "tokenId", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "string"}],
		"stateMutability": "view"
	},
	{
		"name": "ownerOf",
		"type": "function",
		"inputs": [
			{"name": "tokenId", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "address"}],
		"stateMutability": "view"
	},
	{
		"name": "Transfer",
		"type": "event",
		"anonymous": false,
		"inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "tokenId", "type": "uint256", "indexed": true}
		]
	}
]`

// transferEventSig is keccak256("Transfer(address,address,uint256)")
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ParseABI returns the ABI of the NFT contract
func ParseABI() (abi.ABI, error) {
	return abi.JSON(strings.NewReader(contractABI))
}

// ErrUnsupportedNetwork is returned when the address book has no
// deployment for the connected chain.
var ErrUnsupportedNetwork = errors.New("unsupported network")

//go:embed addresses.json
var defaultAddressBook []byte

// Deployment is the address book entry for one chain.
type Deployment struct {
	NFT struct {
		Address string `json:"address"`
	} `json:"nft"`
}

// AddressBook maps chain ids (decimal strings) to contract deployments.
type AddressBook map[string]Deployment

// DefaultAddressBook returns the built-in address book (local Hardhat node).
func DefaultAddressBook() AddressBook {
	book, err := ParseAddressBook(defaultAddressBook)
	if err != nil {
		panic(fmt.Sprintf("nft: invalid embedded address book: %v", err))
	}
	return book
}

// LoadAddressBook reads an address book from path, or returns the default
// when path is empty.
func LoadAddressBook(path string) (AddressBook, error) {
	if path == "" {
		return DefaultAddressBook(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read address book: %w", err)
	}
	return ParseAddressBook(data)
}

// ParseAddressBook decodes the JSON address book.
func ParseAddressBook(data []byte) (AddressBook, error) {
	var book AddressBook
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("failed to parse address book: %w", err)
	}
	for id := range book {
		if _, err := strconv.ParseUint(id, 10, 64); err != nil {
			return nil, fmt.Errorf("invalid chain id %q in address book", id)
		}
	}
	return book, nil
}

// Lookup returns the NFT contract address deployed on chainID.
func (b AddressBook) Lookup(chainID *big.Int) (common.Address, error) {
	if chainID == nil {
		return common.Address{}, fmt.Errorf("%w: chain id unknown", ErrUnsupportedNetwork)
	}
	entry, ok := b[chainID.String()]
	if !ok {
		return common.Address{}, fmt.Errorf("%w: no contract for chain %s", ErrUnsupportedNetwork, chainID)
	}
	if !common.IsHexAddress(entry.NFT.Address) {
		return common.Address{}, fmt.Errorf("%w: invalid contract address %q for chain %s", ErrUnsupportedNetwork, entry.NFT.Address, chainID)
	}
	return common.HexToAddress(entry.NFT.Address), nil
}

// Contract is a bound handle to the deployed NFT contract.
type Contract struct {
	address  common.Address
	abi      abi.ABI
	contract *bind.BoundContract
}

// Bind resolves the deployment for chainID and binds it to backend.
func Bind(book AddressBook, chainID *big.Int, backend bind.ContractBackend) (*Contract, error) {
	address, err := book.Lookup(chainID)
	if err != nil {
		return nil, err
	}
	return NewContract(address, backend)
}

// NewContract binds the NFT ABI at address.
func NewContract(address common.Address, backend bind.ContractBackend) (*Contract, error) {
	parsed, err := ParseABI()
	if err != nil {
		return nil, fmt.Errorf("failed to parse contract ABI: %w", err)
	}
	return &Contract{
		address:  address,
		abi:      parsed,
		contract: bind.NewBoundContract(address, parsed, backend, backend, backend),
	}, nil
}

// Address returns the contract address.
func (c *Contract) Address() common.Address {
	return c.address
}

// Mint sends mint(tokenURI) with the value carried by opts.
func (c *Contract) Mint(opts *bind.TransactOpts, tokenURI string) (*types.Transaction, error) {
	return c.contract.Transact(opts, MethodMint, tokenURI)
}

// TokenURI reads the URI stored for tokenID.
func (c *Contract) TokenURI(ctx context.Context, tokenID *big.Int) (string, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodTokenURI, tokenID); err != nil {
		return "", fmt.Errorf("failed to call tokenURI: %w", err)
	}
	if len(out) == 0 {
		return "", fmt.Errorf("tokenURI returned no data")
	}
	uri, ok := out[0].(string)
	if !ok {
		return "", fmt.Errorf("unexpected tokenURI result type %T", out[0])
	}
	return uri, nil
}

// OwnerOf reads the owner of tokenID.
func (c *Contract) OwnerOf(ctx context.Context, tokenID *big.Int) (common.Address, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, MethodOwnerOf, tokenID); err != nil {
		return common.Address{}, fmt.Errorf("failed to call ownerOf: %w", err)
	}
	if len(out) == 0 {
		return common.Address{}, fmt.Errorf("ownerOf returned no data")
	}
	owner, ok := out[0].(common.Address)
	if !ok {
		return common.Address{}, fmt.Errorf("unexpected ownerOf result type %T", out[0])
	}
	return owner, nil
}

// TokenIDFromReceipt extracts the minted token id from the ERC-721
// Transfer log emitted by the contract. Returns nil when none is found.
func (c *Contract) TokenIDFromReceipt(receipt *types.Receipt) *big.Int {
	for _, log := range receipt.Logs {
		// Transfer(from, to, tokenId) has all three arguments indexed
		if len(log.Topics) < 4 || log.Address != c.address {
			continue
		}
		if log.Topics[0] == transferEventSig {
			return new(big.Int).SetBytes(log.Topics[3].Bytes())
		}
	}
	return nil
}
