package catalog

import (
	"context"
	"errors"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ctctracker/internal/logging"
	"ctctracker/youtube"
)

// StopReason records why paging ended.
type StopReason string

const (
	// StopKnownVideo means a page contained an already ingested video.
	StopKnownVideo StopReason = "known-video"
	// StopLastPage means the playlist has no further pages.
	StopLastPage StopReason = "last-page"
	// StopPageError means a page request failed; earlier pages are kept.
	StopPageError StopReason = "page-error"
)

// Result is the outcome of one synchronization pass.
type Result struct {
	// RunID correlates the log lines of one pass.
	RunID uuid.UUID
	// Videos is the merged catalog sorted by ascending duration.
	Videos []youtube.Video
	// PagesFetched counts successful page requests.
	PagesFetched int
	// NewVideos counts videos outside the frontier.
	NewVideos int
	// Persisted counts new videos whose row and flag were both written.
	Persisted int
	// StopReason records why paging ended.
	StopReason StopReason
	// Frontier is the input frontier plus every id persisted by this pass.
	Frontier Frontier
	// Err joins the page, detail and store failures of the pass.
	Err error
}

// Synchronizer runs synchronization passes for one channel.
type Synchronizer struct {
	client    Client
	store     Store
	channelID string
	logger    *zap.Logger
}

// NewSynchronizer creates a synchronizer for channelID.
func NewSynchronizer(client Client, store Store, channelID string, logger *zap.Logger) *Synchronizer {
	logger = logging.OrNop(logger)
	return &Synchronizer{
		client:    client,
		store:     store,
		channelID: channelID,
		logger:    logger,
	}
}

// Sync fetches pages newest-first until a page contains a video from the
// frontier, the playlist ends or a request fails. Newly seen videos are
// merged with the stored catalog and persisted together with a false
// completion flag. Failures never abort the pass; they are logged and
// joined into Result.Err.
func (s *Synchronizer) Sync(ctx context.Context, frontier Frontier) *Result {
	res := &Result{RunID: uuid.New()}
	log := s.logger.With(zap.String("run_id", res.RunID.String()))

	fetched, errs := s.fetchNew(ctx, log, frontier, res)
	merged, err := s.mergeWithStore(ctx, fetched)
	if err != nil {
		log.Warn("load stored videos failed", zap.Error(err))
		errs = append(errs, err)
	}

	res.Frontier = frontier.Clone()
	errs = append(errs, s.persistNew(ctx, log, merged, frontier, res)...)

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].DurationSeconds < merged[j].DurationSeconds
	})

	res.Videos = merged
	res.Err = errors.Join(errs...)
	log.Info("sync finished",
		zap.Int("page", res.PagesFetched),
		zap.Int("count", len(res.Videos)),
		zap.Int("new", res.NewVideos),
		zap.Int("persisted", res.Persisted),
		zap.String("stop_reason", string(res.StopReason)))
	return res
}

// fetchNew pages through the uploads playlist and returns videos not yet known.
func (s *Synchronizer) fetchNew(ctx context.Context, log *zap.Logger, frontier Frontier, res *Result) ([]youtube.Video, []error) {
	var (
		videos []youtube.Video
		errs   []error
	)
	known := frontier.Clone()
	token := ""

	for {
		page, err := s.client.FetchPage(ctx, s.channelID, token)
		if err != nil {
			log.Warn("fetch page failed", zap.Int("page", res.PagesFetched+1), zap.Error(err))
			errs = append(errs, err)
			res.StopReason = StopPageError
			return videos, errs
		}
		res.PagesFetched++

		stopPaging := false
		var unknown []youtube.VideoID
		for _, id := range page.IDs() {
			if known.Contains(id) {
				stopPaging = true
				continue
			}
			unknown = append(unknown, id)
		}

		if len(unknown) > 0 {
			details, err := s.client.FetchDetails(ctx, unknown)
			if err != nil {
				log.Warn("fetch details failed", zap.Int("page", res.PagesFetched), zap.Error(err))
				errs = append(errs, err)
			}
			for _, v := range details {
				if known.Contains(v.ID) {
					continue
				}
				known.Add(v.ID)
				videos = append(videos, v)
			}
		}

		log.Debug("page processed",
			zap.Int("page", res.PagesFetched),
			zap.Int("count", len(page.Items)),
			zap.Bool("known_video", stopPaging))

		switch {
		case stopPaging:
			res.StopReason = StopKnownVideo
			return videos, errs
		case page.NextPageToken == "":
			res.StopReason = StopLastPage
			return videos, errs
		}
		token = page.NextPageToken
	}
}

// mergeWithStore appends every stored video not already in fetched.
func (s *Synchronizer) mergeWithStore(ctx context.Context, fetched []youtube.Video) ([]youtube.Video, error) {
	merged := make([]youtube.Video, 0, len(fetched))
	seen := make(map[youtube.VideoID]struct{}, len(fetched))
	for _, v := range fetched {
		seen[v.ID] = struct{}{}
		merged = append(merged, v)
	}

	rows, err := s.store.ListVideos(ctx)
	if err != nil {
		return merged, err
	}
	for _, row := range rows {
		v := fromRow(row)
		if _, dup := seen[v.ID]; dup {
			continue
		}
		seen[v.ID] = struct{}{}
		merged = append(merged, v)
	}
	return merged, nil
}

// persistNew writes the row and a false flag for every video outside the
// original frontier. A failed row write skips the flag so the video is
// retried on the next pass.
func (s *Synchronizer) persistNew(ctx context.Context, log *zap.Logger, videos []youtube.Video, frontier Frontier, res *Result) []error {
	var errs []error
	for _, v := range videos {
		if frontier.Contains(v.ID) {
			continue
		}
		res.NewVideos++

		if err := s.store.PutVideo(ctx, toRow(v)); err != nil {
			log.Warn("persist video failed", zap.String("video_id", string(v.ID)), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		if err := s.store.SetCompletion(ctx, string(v.ID), false); err != nil {
			log.Warn("persist completion flag failed", zap.String("video_id", string(v.ID)), zap.Error(err))
			errs = append(errs, err)
			continue
		}
		res.Persisted++
		res.Frontier.Add(v.ID)
	}
	return errs
}
