// Package tracker holds the display consumer's view of the catalog: a
// two-phase loader (completion flags, then the catalog) polled from a
// render loop, plus optimistic completion toggles.
package tracker

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"ctctracker/catalog"
	"ctctracker/internal/logging"
	"ctctracker/youtube"
)

// Phase is the loading phase of a Tracker.
type Phase int

const (
	// PhaseIdle means nothing has been requested yet.
	PhaseIdle Phase = iota
	// PhaseLoadingFlags waits for the completion flags.
	PhaseLoadingFlags
	// PhaseLoadingCatalog waits for a synchronization pass.
	PhaseLoadingCatalog
	// PhaseReady means both loads completed.
	PhaseReady
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoadingFlags:
		return "loading-flags"
	case PhaseLoadingCatalog:
		return "loading-catalog"
	case PhaseReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Loader runs the background loads and writes.
type Loader interface {
	LoadCompletionFlags(ctx context.Context) <-chan catalog.FlagsResult
	LoadCatalog(ctx context.Context, frontier catalog.Frontier) <-chan catalog.CatalogResult
	SetCompletionFlag(ctx context.Context, id youtube.VideoID, completed bool)
}

// Filter selects which videos Visible returns.
type Filter struct {
	// ShowCompleted includes videos marked as completed.
	ShowCompleted bool
	// ShowWithoutLinks includes videos whose description has no puzzle link.
	ShowWithoutLinks bool
}

// Tracker is owned by a single render loop and is not safe for concurrent use.
type Tracker struct {
	loader Loader
	logger *zap.Logger

	phase     Phase
	flagsCh   <-chan catalog.FlagsResult
	catalogCh <-chan catalog.CatalogResult

	flags    catalog.Flags
	frontier catalog.Frontier
	videos   []youtube.Video

	flagsLoaded   bool
	catalogLoaded bool
	syncing       bool

	lastResult *catalog.Result
	loadErr    error
	credErr    error
}

// New creates a tracker in PhaseIdle.
func New(loader Loader, logger *zap.Logger) *Tracker {
	logger = logging.OrNop(logger)
	return &Tracker{
		loader: loader,
		logger: logger,
		flags:  make(catalog.Flags),
	}
}

// Start requests the completion flags. It does nothing unless the tracker is idle.
func (t *Tracker) Start(ctx context.Context) bool {
	if t.phase != PhaseIdle {
		return false
	}
	t.loadErr = nil
	t.flagsCh = t.loader.LoadCompletionFlags(ctx)
	t.phase = PhaseLoadingFlags
	return true
}

// Tick polls pending loads without blocking and reports whether state changed.
// The catalog load is only issued after the flags have been applied.
func (t *Tracker) Tick(ctx context.Context) bool {
	changed := false

	if t.flagsCh != nil {
		select {
		case res, ok := <-t.flagsCh:
			t.flagsCh = nil
			if ok {
				t.applyFlags(ctx, res)
				changed = true
			}
		default:
		}
	}

	if t.catalogCh != nil {
		select {
		case res, ok := <-t.catalogCh:
			t.catalogCh = nil
			if ok {
				t.applyCatalog(res)
				changed = true
			}
		default:
		}
	}

	return changed
}

func (t *Tracker) applyFlags(ctx context.Context, res catalog.FlagsResult) {
	if res.Err != nil {
		// Without the flags every stored video would look new and its
		// completion state would be reset, so the catalog load is not issued.
		t.logger.Error("completion flags unavailable", zap.Error(res.Err))
		t.loadErr = res.Err
		t.phase = PhaseIdle
		return
	}

	for id, done := range res.Flags {
		t.flags[id] = done
	}
	t.frontier = res.Flags.Frontier()
	t.flagsLoaded = true
	t.startCatalog(ctx)
}

func (t *Tracker) applyCatalog(res catalog.CatalogResult) {
	t.syncing = false
	t.catalogLoaded = true
	t.phase = PhaseReady
	t.videos = res.Videos

	for _, v := range res.Videos {
		if _, ok := t.flags[v.ID]; !ok {
			t.flags[v.ID] = false
		}
	}

	t.lastResult = res.Result
	t.credErr = nil
	if res.Result != nil {
		if res.Result.Frontier != nil {
			t.frontier = res.Result.Frontier
		}
		if errors.Is(res.Result.Err, youtube.ErrInvalidCredential) {
			t.credErr = res.Result.Err
		}
	}
	t.logger.Debug("catalog applied", zap.Int("count", len(t.videos)))
}

func (t *Tracker) startCatalog(ctx context.Context) {
	t.catalogCh = t.loader.LoadCatalog(ctx, t.frontier)
	t.syncing = true
	t.phase = PhaseLoadingCatalog
}

// Refresh starts another synchronization pass. It is rejected until the
// flags are loaded and while a pass is still running.
func (t *Tracker) Refresh(ctx context.Context) bool {
	if !t.flagsLoaded || t.syncing {
		return false
	}
	t.startCatalog(ctx)
	return true
}

// Toggle sets the completion flag of a known video and writes it in the
// background. Unknown ids are rejected without a write.
func (t *Tracker) Toggle(ctx context.Context, id youtube.VideoID, completed bool) bool {
	if _, ok := t.flags[id]; !ok {
		return false
	}
	t.flags[id] = completed
	t.loader.SetCompletionFlag(ctx, id, completed)
	return true
}

// Ready reports whether the flags and at least one catalog pass have been applied.
func (t *Tracker) Ready() bool {
	return t.flagsLoaded && t.catalogLoaded
}

// Phase returns the current loading phase.
func (t *Tracker) Phase() Phase { return t.phase }

// Syncing reports whether a synchronization pass is in flight.
func (t *Tracker) Syncing() bool { return t.syncing }

// Videos returns a copy of the current catalog.
func (t *Tracker) Videos() []youtube.Video {
	out := make([]youtube.Video, len(t.videos))
	copy(out, t.videos)
	return out
}

// Flags returns a copy of the completion flags.
func (t *Tracker) Flags() catalog.Flags {
	return t.flags.Clone()
}

// Completed reports whether id is marked as completed.
func (t *Tracker) Completed(id youtube.VideoID) bool {
	return t.flags[id]
}

// Visible returns the videos passing filter, in catalog order.
func (t *Tracker) Visible(filter Filter) []youtube.Video {
	var out []youtube.Video
	for _, v := range t.videos {
		if !filter.ShowCompleted && t.flags[v.ID] {
			continue
		}
		if !filter.ShowWithoutLinks && !v.HasLinks() {
			continue
		}
		out = append(out, v)
	}
	return out
}

// LastResult returns the summary of the most recent pass, nil before the first.
func (t *Tracker) LastResult() *catalog.Result { return t.lastResult }

// CredentialError returns the error of the last pass if it failed on the API key.
func (t *Tracker) CredentialError() error { return t.credErr }

// Err returns the error of a failed flag load; Start may be called again.
func (t *Tracker) Err() error { return t.loadErr }
