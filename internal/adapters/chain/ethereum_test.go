package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/nftforge/text2nft/pkg/nft"
)

type stubSender struct {
	receipt *nft.Receipt
	err     error
	uri     string
	value   *big.Int
}

func (s *stubSender) MintWithValue(ctx context.Context, tokenURI string, value *big.Int) (*nft.Receipt, error) {
	s.uri = tokenURI
	s.value = value
	return s.receipt, s.err
}

func TestEthereumMinter_Mint(t *testing.T) {
	sender := &stubSender{receipt: &nft.Receipt{
		TxHash:      common.HexToHash("0x01"),
		BlockNumber: 12,
		TokenID:     big.NewInt(3),
	}}

	req := domain.MintRequest{TokenURI: "https://img.example/abc123", Value: big.NewInt(5)}
	receipt, err := NewEthereumMinter(sender).Mint(context.Background(), req)
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}
	if sender.uri != "https://img.example/abc123" {
		t.Errorf("tokenURI = %v", sender.uri)
	}
	if sender.value == nil || sender.value.Int64() != 5 {
		t.Errorf("value = %v, want 5", sender.value)
	}
	if receipt.TxHash != common.HexToHash("0x01").Hex() || receipt.BlockNumber != 12 || receipt.TokenID.Int64() != 3 {
		t.Errorf("receipt = %+v", receipt)
	}
}

func TestEthereumMinter_ErrorKinds(t *testing.T) {
	tests := []struct {
		err  error
		want domain.Kind
	}{
		{fmt.Errorf("%w: chain 5", nft.ErrUnsupportedNetwork), domain.KindUnsupportedNetwork},
		{nft.ErrNoAccount, domain.KindNoAccount},
		{fmt.Errorf("%w: have 0 wei", nft.ErrInsufficientFunds), domain.KindInsufficientFunds},
		{fmt.Errorf("%w: locked", nft.ErrRejected), domain.KindRejected},
		{fmt.Errorf("%w: tx 0x01", nft.ErrReverted), domain.KindReverted},
		{fmt.Errorf("wait: %w", context.DeadlineExceeded), domain.KindTransport},
		{errors.New("nonce too low"), domain.KindRemote},
	}

	for _, tt := range tests {
		_, err := NewEthereumMinter(&stubSender{err: tt.err}).Mint(context.Background(), domain.MintRequest{TokenURI: "uri"})
		if got := domain.KindOf(err); got != tt.want {
			t.Errorf("KindOf(%v) = %v, want %v", tt.err, got, tt.want)
		}
		if !errors.Is(err, tt.err) {
			t.Errorf("error %v does not wrap %v", err, tt.err)
		}
	}
}
