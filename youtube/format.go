package youtube

import (
	"fmt"
	"time"
)

const watchURLPrefix = "https://www.youtube.com/watch?v="

// WatchURL returns the public watch page for a video.
func WatchURL(id VideoID) string {
	return watchURLPrefix + string(id)
}

// FormatDuration renders a length as whole minutes below one hour and
// whole hours otherwise ("42m", "2h").
func FormatDuration(seconds uint64) string {
	if seconds < 3600 {
		return fmt.Sprintf("%dm", seconds/60)
	}
	return fmt.Sprintf("%dh", seconds/3600)
}

// FormatDate renders a ms epoch timestamp as a UTC calendar date.
func FormatDate(ms int64) string {
	return time.Unix(ms/1000, 0).UTC().Format("2006-01-02")
}
