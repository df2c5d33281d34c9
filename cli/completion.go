package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"ctctracker"
	"ctctracker/youtube"
)

func newCompletionCommand(ctx *commandContext, name string, completed bool) *cobra.Command {
	short := "Mark a video as completed"
	if !completed {
		short = "Mark a video as not completed"
	}

	return &cobra.Command{
		Use:   name + " <video-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := youtube.VideoID(args[0])
			return ctx.withApp(cmd.Context(), func(app *ctctracker.App) error {
				if err := setCompletion(cmd.Context(), app, id, completed); err != nil {
					return err
				}
				state := "completed"
				if !completed {
					state = "not completed"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s marked as %s\n", id, state)
				return nil
			})
		},
	}
}

// setCompletion goes through the same flag loader and background writer a
// display consumer uses, then waits for the write and reads it back, since
// the writer only logs its failures.
func setCompletion(ctx context.Context, app *ctctracker.App, id youtube.VideoID, completed bool) error {
	res := <-app.Service.LoadCompletionFlags(ctx)
	if res.Err != nil {
		return fmt.Errorf("load completion flags: %w", res.Err)
	}
	// only ids that already carry a flag can be toggled
	if _, ok := res.Flags[id]; !ok {
		return fmt.Errorf("unknown video %q; run 'ctctracker list' to synchronize first", id)
	}

	app.Service.SetCompletionFlag(ctx, id, completed)
	app.Service.Wait()

	row, err := app.Store.GetCompletion(ctx, string(id))
	if err != nil {
		return fmt.Errorf("read back completion flag: %w", err)
	}
	if row.Completed != completed {
		return fmt.Errorf("completion flag for %q was not written", id)
	}
	return nil
}
