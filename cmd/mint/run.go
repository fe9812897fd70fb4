package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nftforge/text2nft/internal/bootstrap"
	"github.com/nftforge/text2nft/internal/core/domain"
)

var (
	runName        string
	runDescription string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one submission end to end",
	Example: `mint run --name "Sunset" --description "a red sunset over the sea"
mint run -n "Cat" -d "a cat in a space suit"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := loadConfig()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		stack, err := bootstrap.Build(ctx, cfg, log)
		if err != nil {
			return err
		}
		defer stack.Close()

		form := stack.Form
		if err := form.SetDraft(domain.Draft{Name: runName, Description: runDescription}); err != nil {
			return err
		}

		updates, cancel := form.Subscribe()
		done := make(chan struct{})
		go func() {
			last := ""
			for {
				select {
				case snap := <-updates:
					if snap.StatusMessage != "" && snap.StatusMessage != last {
						fmt.Fprintln(cmd.ErrOrStderr(), snap.StatusMessage)
					}
					last = snap.StatusMessage
				case <-done:
					return
				}
			}
		}()

		runErr := form.Submit(ctx)
		close(done)
		cancel()

		out, err := json.MarshalIndent(form.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(out))
		return runErr
	},
}

func init() {
	runCmd.Flags().StringVarP(&runName, "name", "n", "", "NFT name")
	runCmd.Flags().StringVarP(&runDescription, "description", "d", "", "prompt used to generate the image")
	rootCmd.AddCommand(runCmd)
}
