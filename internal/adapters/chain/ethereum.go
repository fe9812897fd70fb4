package chain

import (
	"context"
	"errors"
	"math/big"

	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/nftforge/text2nft/pkg/nft"
)

// mintSender is satisfied by *nft.Minter.
type mintSender interface {
	MintWithValue(ctx context.Context, tokenURI string, value *big.Int) (*nft.Receipt, error)
}

// EthereumMinter implements domain.Minter on an EVM chain.
type EthereumMinter struct {
	minter mintSender
}

// NewEthereumMinter adapts an nft minter to the domain interface.
func NewEthereumMinter(minter mintSender) *EthereumMinter {
	return &EthereumMinter{minter: minter}
}

// Mint sends the request and converts the receipt and error kinds.
func (m *EthereumMinter) Mint(ctx context.Context, req domain.MintRequest) (*domain.MintReceipt, error) {
	receipt, err := m.minter.MintWithValue(ctx, req.TokenURI, req.Value)
	if err != nil {
		return nil, domain.E(classify(err), "mint", err)
	}
	return &domain.MintReceipt{
		TxHash:      receipt.TxHash.Hex(),
		BlockNumber: receipt.BlockNumber,
		TokenID:     receipt.TokenID,
	}, nil
}

func classify(err error) domain.Kind {
	switch {
	case errors.Is(err, nft.ErrUnsupportedNetwork):
		return domain.KindUnsupportedNetwork
	case errors.Is(err, nft.ErrNoAccount):
		return domain.KindNoAccount
	case errors.Is(err, nft.ErrInsufficientFunds):
		return domain.KindInsufficientFunds
	case errors.Is(err, nft.ErrRejected):
		return domain.KindRejected
	case errors.Is(err, nft.ErrReverted):
		return domain.KindReverted
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return domain.KindTransport
	}
	return domain.KindRemote
}
