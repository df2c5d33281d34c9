// Package youtube is the catalog client for the YouTube Data API v3: paged
// listing of a channel's uploads, batched detail lookup, and the display
// helpers shared by consumers.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sosodev/duration"
	"go.uber.org/zap"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"ctctracker/internal/logging"
	"ctctracker/internal/retry"
)

const (
	// MaxIDsPerCall is the API limit on ids per videos.list call.
	MaxIDsPerCall = 50
	// MaxPageSize is the API limit on items per playlistItems.list page.
	MaxPageSize = 50
)

var (
	playlistParts = []string{"snippet", "contentDetails"}
	videoParts    = []string{"snippet", "contentDetails"}
)

// ClientConfig configures a Client.
type ClientConfig struct {
	// APIKey is sent with every call. An empty key fails calls with ErrInvalidCredential.
	APIKey string
	// HTTPClient carries the requests; nil uses http.DefaultClient.
	HTTPClient *http.Client
	// Endpoint overrides the API base URL (tests).
	Endpoint string
	// PageSize is the number of playlist items per page, capped at MaxPageSize.
	PageSize int
	// Retry controls retries of transport and 5xx failures.
	Retry retry.Config
	// Logger receives call diagnostics; nil disables logging.
	Logger *zap.Logger
}

// Client wraps the generated YouTube Data API service.
type Client struct {
	service  *youtube.Service
	apiKey   string
	pageSize int64
	retry    retry.Config
	logger   *zap.Logger
}

// NewClient creates a catalog client.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(cfg.Endpoint))
	}

	service, err := youtube.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	pageSize := cfg.PageSize
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	logger := logging.OrNop(cfg.Logger)
	retryCfg := cfg.Retry
	if retryCfg.OnRetry == nil {
		retryCfg.OnRetry = func(attempt int, err error, wait time.Duration) {
			logger.Debug("retrying api call",
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(err))
		}
	}

	return &Client{
		service:  service,
		apiKey:   cfg.APIKey,
		pageSize: int64(pageSize),
		retry:    retryCfg,
		logger:   logger,
	}, nil
}

// FetchPage fetches one page of the channel's uploads playlist. An empty
// pageToken requests the first (newest) page.
func (c *Client) FetchPage(ctx context.Context, channelID, pageToken string) (*Page, error) {
	const op = "playlistItems.list"
	if err := c.checkKey(op); err != nil {
		return nil, err
	}

	playlistID := UploadsPlaylistID(channelID)
	var resp *youtube.PlaylistItemListResponse

	err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
		call := c.service.PlaylistItems.List(playlistParts).
			PlaylistId(playlistID).
			MaxResults(c.pageSize).
			Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		r, err := call.Do(googleapi.QueryParameter("key", c.apiKey))
		if err != nil {
			return classifyError(op, err)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, unwrapRetry(err)
	}

	page := &Page{NextPageToken: resp.NextPageToken}
	for _, item := range resp.Items {
		id := playlistItemVideoID(item)
		if id == "" {
			continue
		}
		entry := PageItem{ID: VideoID(id)}
		if item.Snippet != nil {
			entry.Title = item.Snippet.Title
			entry.PublishedAt = parsePublishedAt(item.Snippet.PublishedAt)
		}
		page.Items = append(page.Items, entry)
	}

	c.logger.Debug("fetched playlist page",
		zap.String("playlist_id", playlistID),
		zap.Int("count", len(page.Items)),
		zap.Bool("last", page.NextPageToken == ""))
	return page, nil
}

// FetchDetails fetches full metadata for ids in batches of MaxIDsPerCall.
// Videos without a title and denylisted titles are dropped silently. A
// failing batch is skipped and its error joined into the returned error;
// the videos of the other batches are still returned.
func (c *Client) FetchDetails(ctx context.Context, ids []VideoID) ([]Video, error) {
	const op = "videos.list"
	if len(ids) == 0 {
		return nil, nil
	}
	if err := c.checkKey(op); err != nil {
		return nil, err
	}

	var (
		videos []Video
		errs   []error
	)
	for start := 0; start < len(ids); start += MaxIDsPerCall {
		end := min(start+MaxIDsPerCall, len(ids))
		batch := make([]string, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, string(id))
		}

		var resp *youtube.VideoListResponse
		err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
			r, err := c.service.Videos.List(videoParts).
				Id(batch...).
				Context(ctx).
				Do(googleapi.QueryParameter("key", c.apiKey))
			if err != nil {
				return classifyError(op, err)
			}
			resp = r
			return nil
		})
		if err != nil {
			err = unwrapRetry(err)
			c.logger.Warn("video details batch failed", zap.Int("count", len(batch)), zap.Error(err))
			errs = append(errs, err)
			continue
		}

		for _, item := range resp.Items {
			if video, ok := c.toVideo(item); ok {
				videos = append(videos, video)
			}
		}
	}

	return videos, errors.Join(errs...)
}

func (c *Client) toVideo(item *youtube.Video) (Video, bool) {
	if item == nil || item.Snippet == nil || item.Snippet.Title == "" {
		return Video{}, false
	}
	if IsDenylisted(item.Snippet.Title) {
		return Video{}, false
	}

	var seconds uint64
	if item.ContentDetails != nil && item.ContentDetails.Duration != "" {
		d, err := duration.Parse(item.ContentDetails.Duration)
		if err != nil {
			c.logger.Debug("unparseable duration",
				zap.String("video_id", item.Id),
				zap.String("duration", item.ContentDetails.Duration))
		} else if secs := d.ToTimeDuration().Seconds(); secs > 0 {
			seconds = uint64(secs)
		}
	}

	return NewVideo(
		VideoID(item.Id),
		item.Snippet.Title,
		item.Snippet.Description,
		parsePublishedAt(item.Snippet.PublishedAt),
		seconds,
	), true
}

func (c *Client) checkKey(op string) error {
	if c.apiKey == "" {
		return &APIError{Op: op, Reason: "keyMissing", Message: "no API key configured"}
	}
	return nil
}

func playlistItemVideoID(item *youtube.PlaylistItem) string {
	if item == nil {
		return ""
	}
	if item.Snippet != nil && item.Snippet.ResourceId != nil && item.Snippet.ResourceId.VideoId != "" {
		return item.Snippet.ResourceId.VideoId
	}
	if item.ContentDetails != nil {
		return item.ContentDetails.VideoId
	}
	return ""
}

// parsePublishedAt converts an RFC 3339 timestamp to ms since the epoch, 0 if unparseable.
func parsePublishedAt(value string) int64 {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}

// unwrapRetry strips the retry wrapper so callers see the typed API errors.
func unwrapRetry(err error) error {
	var retryErr *retry.RetryableError
	if errors.As(err, &retryErr) {
		return retryErr.Err
	}
	return err
}
