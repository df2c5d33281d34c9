package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"ctctracker"
	"ctctracker/storage"
)

const maxMaskStars = 20

func newKeyCommand(ctx *commandContext) *cobra.Command {
	keyCmd := &cobra.Command{
		Use:   "key",
		Short: "Manage the YouTube Data API key",
	}

	keyCmd.AddCommand(&cobra.Command{
		Use:   "set <key>",
		Short: "Store the API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *ctctracker.App) error {
				if err := app.Store.SetAPIKey(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "API key saved: %s\n", maskKey(strings.TrimSpace(args[0])))
				return nil
			})
		},
	})

	keyCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the stored API key, masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *ctctracker.App) error {
				key, err := app.Store.APIKey(cmd.Context())
				if errors.Is(err, storage.ErrNotFound) {
					fmt.Fprintln(cmd.OutOrStdout(), "No API key stored")
					return nil
				}
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), maskKey(key))
				return nil
			})
		},
	})

	return keyCmd
}

// maskKey hides all but the last four characters. Keys of eight characters
// or fewer are hidden entirely.
func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	stars := min(len(key)-4, maxMaskStars)
	return strings.Repeat("*", stars) + "..." + key[len(key)-4:]
}
