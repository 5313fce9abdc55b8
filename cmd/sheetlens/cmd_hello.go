package main

import (
	"encoding/json"
	"fmt"

	"sheetlens/models"

	"github.com/spf13/cobra"
)

func newHelloCmd(a *app) *cobra.Command {
	var model string
	var prompt string

	cmd := &cobra.Command{
		Use:   "hello",
		Short: "Send one prompt to check the API key and connectivity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateModel(model); err != nil {
				return err
			}
			an, err := a.newAnalyst(cmd.Context())
			if err != nil {
				return err
			}
			result, err := an.Hello(cmd.Context(), prompt, model)
			if err != nil {
				return err
			}

			meta, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(meta))
			fmt.Fprintln(out, "\n--- assistant ---")
			fmt.Fprintln(out, result.Reply)
			return nil
		},
	}
	cmd.Flags().StringVar(&model, "model", models.ModelSmall, "model size to use (small or large)")
	cmd.Flags().StringVar(&prompt, "prompt", "Hello, world!", "prompt to send")
	return cmd
}
