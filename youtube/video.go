package youtube

import "strings"

// VideoID is the YouTube video id, used as the dedup and store key.
type VideoID string

// Video is one catalog entry. ExtractedLinks is always derived from
// Description; construct values with NewVideo.
type Video struct {
	ID              VideoID
	Title           string
	Description     string
	PublishedAt     int64 // ms since the Unix epoch
	DurationSeconds uint64
	ExtractedLinks  []string
}

// NewVideo builds a Video and derives its puzzle links from description.
func NewVideo(id VideoID, title, description string, publishedAt int64, durationSeconds uint64) Video {
	return Video{
		ID:              id,
		Title:           title,
		Description:     description,
		PublishedAt:     publishedAt,
		DurationSeconds: durationSeconds,
		ExtractedLinks:  ExtractLinks(description),
	}
}

// HasLinks reports whether the description links to at least one puzzle.
func (v Video) HasLinks() bool {
	return len(v.ExtractedLinks) > 0
}

// PageItem is the minimal snippet of one playlist entry.
type PageItem struct {
	ID          VideoID
	Title       string
	PublishedAt int64
}

// Page is one page of a channel's uploads playlist.
type Page struct {
	Items []PageItem
	// NextPageToken is empty on the last page.
	NextPageToken string
}

// IDs returns the ids of the page's items in order.
func (p *Page) IDs() []VideoID {
	ids := make([]VideoID, 0, len(p.Items))
	for _, item := range p.Items {
		ids = append(ids, item.ID)
	}
	return ids
}

// titleDenylist holds markers for uploads unrelated to puzzle solves.
var titleDenylist = []string{"Wordle", "Plusword", "Quordle"}

// IsDenylisted reports whether title contains a denylisted marker (case-sensitive).
func IsDenylisted(title string) bool {
	for _, marker := range titleDenylist {
		if strings.Contains(title, marker) {
			return true
		}
	}
	return false
}

// UploadsPlaylistID derives the uploads playlist of a channel by replacing
// the "UC" prefix with "UU".
func UploadsPlaylistID(channelID string) string {
	if len(channelID) < 2 {
		return "UU"
	}
	return "UU" + channelID[2:]
}
