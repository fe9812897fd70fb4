package main

import (
	"github.com/spf13/cobra"

	"github.com/nftforge/text2nft/internal/config"
	"github.com/nftforge/text2nft/internal/logger"
)

var rootCmd = &cobra.Command{
	Use:           "mint",
	Short:         "Generate an image from text, host it on imgbb and mint it as an NFT",
	SilenceUsage:  true,
	SilenceErrors: false,
}

// loadConfig reads the same environment as the server.
func loadConfig() (*config.Config, logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, logger.Nop(), err
	}
	return cfg, logger.New(cfg.AppEnv), nil
}
