package catalog

import (
	"context"
	"errors"
	"sort"
	"sync"

	"ctctracker/storage"
	"ctctracker/youtube"
)

// fakeClient serves a fixed uploads playlist.
type fakeClient struct {
	mu sync.Mutex

	// pages maps a page token ("" for the first page) to its page.
	pages map[string]*youtube.Page
	// videos holds the details returned by FetchDetails.
	videos map[youtube.VideoID]youtube.Video
	// pageErrs fails FetchPage for the given tokens.
	pageErrs map[string]error
	// detailErr is returned alongside the surviving details when any
	// requested id is in failDetails.
	detailErr   error
	failDetails map[youtube.VideoID]bool

	pageCalls    int
	detailCalls  int
	requestedIDs []youtube.VideoID
}

func newFakeClient() *fakeClient {
	return &fakeClient{
		pages:       make(map[string]*youtube.Page),
		videos:      make(map[youtube.VideoID]youtube.Video),
		pageErrs:    make(map[string]error),
		failDetails: make(map[youtube.VideoID]bool),
	}
}

// addPage registers a page of videos; each video gets the given duration.
func (c *fakeClient) addPage(token, next string, videos ...youtube.Video) {
	page := &youtube.Page{NextPageToken: next}
	for _, v := range videos {
		page.Items = append(page.Items, youtube.PageItem{ID: v.ID, Title: v.Title})
		c.videos[v.ID] = v
	}
	c.pages[token] = page
}

func (c *fakeClient) FetchPage(ctx context.Context, channelID, pageToken string) (*youtube.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pageCalls++
	if err, ok := c.pageErrs[pageToken]; ok {
		return nil, err
	}
	page, ok := c.pages[pageToken]
	if !ok {
		return nil, errors.New("unknown page token " + pageToken)
	}
	return page, nil
}

func (c *fakeClient) FetchDetails(ctx context.Context, ids []youtube.VideoID) ([]youtube.Video, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detailCalls++
	c.requestedIDs = append(c.requestedIDs, ids...)

	var (
		out    []youtube.Video
		failed bool
	)
	for _, id := range ids {
		if c.failDetails[id] {
			failed = true
			continue
		}
		if v, ok := c.videos[id]; ok && !youtube.IsDenylisted(v.Title) {
			out = append(out, v)
		}
	}
	if failed {
		return out, c.detailErr
	}
	return out, nil
}

// memStore is an in-memory Store.
type memStore struct {
	mu         sync.Mutex
	videos     map[string]storage.VideoRow
	flags      map[string]bool
	failPut    map[string]bool
	failList   error
	failFlags  error
	putCalls   int
	flagWrites int
}

func newMemStore() *memStore {
	return &memStore{
		videos:  make(map[string]storage.VideoRow),
		flags:   make(map[string]bool),
		failPut: make(map[string]bool),
	}
}

func (s *memStore) ListVideos(ctx context.Context) ([]*storage.VideoRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failList != nil {
		return nil, s.failList
	}
	rows := make([]*storage.VideoRow, 0, len(s.videos))
	for _, row := range s.videos {
		row := row
		rows = append(rows, &row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Date != rows[j].Date {
			return rows[i].Date > rows[j].Date
		}
		return rows[i].ID < rows[j].ID
	})
	return rows, nil
}

func (s *memStore) PutVideo(ctx context.Context, video *storage.VideoRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.putCalls++
	if s.failPut[video.ID] {
		return &storage.StorageError{Op: "put", Entity: "video", ID: video.ID, Err: errors.New("disk full")}
	}
	s.videos[video.ID] = *video
	return nil
}

func (s *memStore) ListCompletions(ctx context.Context) ([]*storage.CompletionRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failFlags != nil {
		return nil, s.failFlags
	}
	rows := make([]*storage.CompletionRow, 0, len(s.flags))
	for id, done := range s.flags {
		rows = append(rows, &storage.CompletionRow{ID: id, Completed: done})
	}
	return rows, nil
}

func (s *memStore) SetCompletion(ctx context.Context, id string, completed bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flagWrites++
	s.flags[id] = completed
	return nil
}

func (s *memStore) frontier() Frontier {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := make(Frontier, len(s.flags))
	for id := range s.flags {
		f.Add(youtube.VideoID(id))
	}
	return f
}

func video(id string, duration uint64, published int64) youtube.Video {
	return youtube.NewVideo(youtube.VideoID(id), "Puzzle "+id, "https://sudokupad.app/"+id, published, duration)
}

func ids(videos []youtube.Video) []youtube.VideoID {
	out := make([]youtube.VideoID, 0, len(videos))
	for _, v := range videos {
		out = append(out, v.ID)
	}
	return out
}
