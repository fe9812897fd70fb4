package nft

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/params"
)

// DefaultMintFee returns the default mint fee (1 ether)
func DefaultMintFee() *big.Int {
	return big.NewInt(params.Ether)
}

// ParseEther converts a decimal ether amount such as "1" or "0.05" to wei.
func ParseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty ether amount")
	}

	whole, frac, _ := strings.Cut(s, ".")
	if len(frac) > 18 {
		return nil, fmt.Errorf("ether amount %q has more than 18 decimals", s)
	}
	if whole == "" {
		whole = "0"
	}
	frac += strings.Repeat("0", 18-len(frac))

	wei, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || wei.Sign() < 0 || strings.ContainsAny(s, "+-") {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	return wei, nil
}
