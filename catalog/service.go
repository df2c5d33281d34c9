package catalog

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"ctctracker/internal/logging"
	"ctctracker/youtube"
)

// FlagsResult delivers the completion flags read from the store.
type FlagsResult struct {
	Flags Flags
	Err   error
}

// CatalogResult delivers the outcome of one synchronization pass.
type CatalogResult struct {
	Videos []youtube.Video
	Result *Result
}

// Service runs loads and writes off the caller's goroutine. Each load
// returns a channel with capacity one that receives exactly one value and
// is then closed, so a consumer can poll it with a non-blocking receive.
type Service struct {
	store  Store
	sync   *Synchronizer
	logger *zap.Logger
	wg     sync.WaitGroup
}

// NewService creates a service around store and synchronizer.
func NewService(store Store, synchronizer *Synchronizer, logger *zap.Logger) *Service {
	logger = logging.OrNop(logger)
	return &Service{
		store:  store,
		sync:   synchronizer,
		logger: logger,
	}
}

// LoadCompletionFlags reads every completion flag in the background.
func (s *Service) LoadCompletionFlags(ctx context.Context) <-chan FlagsResult {
	out := make(chan FlagsResult, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)

		rows, err := s.store.ListCompletions(ctx)
		if err != nil {
			s.logger.Error("load completion flags failed", zap.Error(err))
			out <- FlagsResult{Err: err}
			return
		}

		flags := make(Flags, len(rows))
		for _, row := range rows {
			flags[youtube.VideoID(row.ID)] = row.Completed
		}
		s.logger.Debug("completion flags loaded", zap.Int("count", len(flags)))
		out <- FlagsResult{Flags: flags}
	}()
	return out
}

// LoadCatalog runs one synchronization pass against frontier in the background.
func (s *Service) LoadCatalog(ctx context.Context, frontier Frontier) <-chan CatalogResult {
	out := make(chan CatalogResult, 1)
	frontier = frontier.Clone()
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(out)

		res := s.sync.Sync(ctx, frontier)
		out <- CatalogResult{Videos: res.Videos, Result: res}
	}()
	return out
}

// SetCompletionFlag writes one flag in the background. Failures are logged.
// The write outlives cancellation of ctx so a toggle issued just before
// shutdown is not lost; use Wait to flush.
func (s *Service) SetCompletionFlag(ctx context.Context, id youtube.VideoID, completed bool) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.store.SetCompletion(ctx, string(id), completed); err != nil {
			s.logger.Error("write completion flag failed",
				zap.String("video_id", string(id)),
				zap.Bool("completed", completed),
				zap.Error(err))
		}
	}()
}

// Wait blocks until every background task has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}
