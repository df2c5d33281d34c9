// Package catalog synchronizes a channel's uploads with the local record
// store and delivers results to a consumer without blocking it.
package catalog

import (
	"context"

	"ctctracker/storage"
	"ctctracker/youtube"
)

// Client is the subset of the catalog client used by the synchronizer.
type Client interface {
	FetchPage(ctx context.Context, channelID, pageToken string) (*youtube.Page, error)
	FetchDetails(ctx context.Context, ids []youtube.VideoID) ([]youtube.Video, error)
}

// Store is the subset of the record store used by this package.
type Store interface {
	ListVideos(ctx context.Context) ([]*storage.VideoRow, error)
	PutVideo(ctx context.Context, video *storage.VideoRow) error
	ListCompletions(ctx context.Context) ([]*storage.CompletionRow, error)
	SetCompletion(ctx context.Context, id string, completed bool) error
}

// Flags maps video ids to their completion state. A missing id is unknown;
// false means known but not completed.
type Flags map[youtube.VideoID]bool

// Frontier returns the key set of f.
func (f Flags) Frontier() Frontier {
	frontier := make(Frontier, len(f))
	for id := range f {
		frontier[id] = struct{}{}
	}
	return frontier
}

// Clone returns a copy of f.
func (f Flags) Clone() Flags {
	out := make(Flags, len(f))
	for id, done := range f {
		out[id] = done
	}
	return out
}

// Frontier is the set of video ids already ingested before a pass.
type Frontier map[youtube.VideoID]struct{}

// Contains reports whether id is in the frontier.
func (f Frontier) Contains(id youtube.VideoID) bool {
	_, ok := f[id]
	return ok
}

// Add inserts id.
func (f Frontier) Add(id youtube.VideoID) {
	f[id] = struct{}{}
}

// Clone returns a copy of f. A nil frontier clones to an empty one.
func (f Frontier) Clone() Frontier {
	out := make(Frontier, len(f))
	for id := range f {
		out[id] = struct{}{}
	}
	return out
}

func toRow(v youtube.Video) *storage.VideoRow {
	return &storage.VideoRow{
		ID:          string(v.ID),
		Title:       v.Title,
		Description: v.Description,
		Date:        v.PublishedAt,
		Duration:    int64(v.DurationSeconds),
	}
}

func fromRow(row *storage.VideoRow) youtube.Video {
	var seconds uint64
	if row.Duration > 0 {
		seconds = uint64(row.Duration)
	}
	return youtube.NewVideo(youtube.VideoID(row.ID), row.Title, row.Description, row.Date, seconds)
}
