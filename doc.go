// Package ctctracker tracks which videos of a YouTube channel (by default
// Cracking the Cryptic) have been completed.
//
// Overview
//
// The catalog is synchronized incrementally from the YouTube Data API v3 into
// a local SQLite database. A pass fetches the channel's uploads newest-first
// and stops at the first page containing an already ingested video, merges
// the new videos with the cached catalog and records a "not completed" flag
// for each of them. Results are delivered over channels so that a render
// loop can poll them without blocking.
//
// Quick Start
//
//	cfg, err := config.Load("")
//	if err != nil {
//		log.Fatal(err)
//	}
//	app, err := ctctracker.Open(ctx, cfg, nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer app.Close()
//
//	tr := app.NewTracker()
//	tr.Start(ctx)
//	for !tr.Ready() {
//		time.Sleep(cfg.TickInterval)
//		tr.Tick(ctx)
//	}
//	for _, v := range tr.Visible(tracker.Filter{}) {
//		fmt.Println(v.Title, youtube.WatchURL(v.ID))
//	}
//
// Packages
//
//   - config: configuration from defaults, YAML, .env and environment
//   - storage: SQLite record store and process lock
//   - youtube: YouTube Data API client, link extraction, display helpers
//   - catalog: synchronization passes and background delivery
//   - tracker: consumer state machine driven by a render loop
//   - http: rate limited, circuit breaking HTTP transport
//
// Error Handling
//
// See errors.go for the error types and sentinels re-exported here.
package ctctracker
