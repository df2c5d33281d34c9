package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"ctctracker"
	"ctctracker/tracker"
	"ctctracker/youtube"
)

const noPuzzleLink = "No puzzle link found"

func newListCommand(ctx *commandContext) *cobra.Command {
	var filter tracker.Filter
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Synchronize the catalog and list videos",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withApp(cmd.Context(), func(app *ctctracker.App) error {
				if interval <= 0 {
					interval = app.Config.TickInterval
				}
				tr := app.NewTracker()
				if err := waitReady(cmd.Context(), tr, interval); err != nil {
					return err
				}
				return printCatalog(cmd.OutOrStdout(), tr, filter)
			})
		},
	}

	cmd.Flags().BoolVar(&filter.ShowCompleted, "completed", false, "Include completed videos")
	cmd.Flags().BoolVar(&filter.ShowWithoutLinks, "without-links", false, "Include videos without a puzzle link")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Polling interval while loading (default from config)")
	return cmd
}

// waitReady drives the tracker the way a render loop would until both
// loading phases have completed.
func waitReady(ctx context.Context, tr *tracker.Tracker, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	tr.Start(ctx)
	for !tr.Ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		tr.Tick(ctx)
		if err := tr.Err(); err != nil {
			return fmt.Errorf("load completion flags: %w", err)
		}
	}
	return nil
}

func printCatalog(out io.Writer, tr *tracker.Tracker, filter tracker.Filter) error {
	videos := tr.Visible(filter)

	rows := make([][]string, 0, len(videos))
	for _, v := range videos {
		rows = append(rows, videoRow(v, tr.Completed(v.ID)))
	}

	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable(catalogColumns, rows))
	}
	fmt.Fprintf(out, "%d of %d videos shown\n", len(videos), len(tr.Videos()))

	if res := tr.LastResult(); res != nil {
		fmt.Fprintf(out, "sync: %d new, %d pages, stopped on %s\n", res.NewVideos, res.PagesFetched, res.StopReason)
	}
	if err := tr.CredentialError(); err != nil {
		fmt.Fprintln(out, "The YouTube API key is missing or invalid; set one with: ctctracker key set <key>")
	} else if res := tr.LastResult(); res != nil && errors.Is(res.Err, youtube.ErrQuotaExceeded) {
		fmt.Fprintln(out, "The YouTube API quota is exhausted; showing cached videos")
	}
	return nil
}

func videoRow(v youtube.Video, completed bool) []string {
	puzzle := noPuzzleLink
	if v.HasLinks() {
		puzzle = v.ExtractedLinks[0]
	}
	done := ""
	if completed {
		done = "yes"
	}
	return []string{
		string(v.ID),
		v.Title,
		youtube.FormatDate(v.PublishedAt),
		youtube.FormatDuration(v.DurationSeconds),
		youtube.WatchURL(v.ID),
		puzzle,
		done,
	}
}
