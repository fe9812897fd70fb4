package bootstrap

import (
	"context"
	"testing"

	"github.com/nftforge/text2nft/internal/adapters/imagegen"
	"github.com/nftforge/text2nft/internal/adapters/lock"
	"github.com/nftforge/text2nft/internal/config"
	"github.com/nftforge/text2nft/internal/logger"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		provider string
		check    func(any) bool
	}{
		{config.ProviderHuggingFace, func(g any) bool { _, ok := g.(*imagegen.HuggingFace); return ok }},
		{config.ProviderOpenAI, func(g any) bool { _, ok := g.(*imagegen.OpenAI); return ok }},
	}

	for _, tt := range tests {
		g := newGenerator(&config.Config{ImageProvider: tt.provider}, logger.Nop())
		if !tt.check(g) {
			t.Errorf("newGenerator(%s) = %T", tt.provider, g)
		}
	}
}

func TestNewLock_LocalWithoutRedis(t *testing.T) {
	l, err := newLock(context.Background(), &config.Config{}, logger.Nop())
	if err != nil {
		t.Fatalf("newLock() error = %v", err)
	}
	if _, ok := l.(*lock.Local); !ok {
		t.Errorf("newLock() = %T, want *lock.Local", l)
	}
}

func TestBuild_InvalidFee(t *testing.T) {
	cfg := &config.Config{MintFeeEther: "one", PrivateKey: "0x01"}
	if _, err := Build(context.Background(), cfg, logger.Nop()); err == nil {
		t.Error("Build() should reject an invalid fee")
	}
}
