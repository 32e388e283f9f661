package models

import (
	"time"
)

// Video is one ingested asset. Rows are created once per successful
// ingestion and never updated afterwards.
type Video struct {
	ID              string    `json:"id"`
	Filename        string    `json:"filename"`
	OriginalName    string    `json:"original_name"`
	DurationSeconds float64   `json:"duration_seconds"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	CreatedAt       time.Time `json:"created_at"`
}

// Segment is a fixed-length playable slice of a Video. For one video the
// segments are contiguous, non-overlapping, and cover [0, duration).
type Segment struct {
	ID                 int64   `json:"id"`
	VideoID            string  `json:"video_id"`
	StartOffsetSeconds float64 `json:"start_offset_seconds"`
	DurationSeconds    float64 `json:"duration_seconds"`
	StoragePath        string  `json:"storage_path"`
}

// Cue is a single caption entry. Times are always milliseconds, regardless
// of the source caption format.
type Cue struct {
	ID      int64  `json:"id"`
	VideoID string `json:"video_id"`
	Text    string `json:"text"`
	StartMS int64  `json:"start_ms"`
	EndMS   int64  `json:"end_ms"`
}

// SearchResult is one matching cue joined with the owning video's names so
// a player can resolve the playback target directly.
type SearchResult struct {
	VideoID      string `json:"video_id"`
	Text         string `json:"text"`
	StartMS      int64  `json:"start_ms"`
	EndMS        int64  `json:"end_ms"`
	Filename     string `json:"filename"`
	OriginalName string `json:"original_name"`
}
