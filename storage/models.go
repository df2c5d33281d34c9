package storage

// VideoRow is a cached video as stored in the video_data table.
type VideoRow struct {
	// ID is the YouTube video id.
	ID string `db:"id"`
	// Title is the video title.
	Title string `db:"title"`
	// Description is the full video description; links are derived from it on load.
	Description string `db:"description"`
	// Date is the publish time in milliseconds since the Unix epoch.
	Date int64 `db:"date"`
	// Duration is the video length in seconds.
	Duration int64 `db:"duration"`
}

// CompletionRow is a completion flag as stored in the video_completion table.
type CompletionRow struct {
	ID        string `db:"id"`
	Completed bool   `db:"completed"`
}

// settingAPIKey is the settings row holding the YouTube Data API key.
const settingAPIKey = "api_key"
