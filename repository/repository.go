package repository

import (
	"context"

	"phrasevid/models"
)

// VideoRepository is the persistence contract for ingestion and search.
// SaveIngestion is all-or-nothing: either every row of the unit of work is
// visible afterwards or none is.
type VideoRepository interface {
	SaveIngestion(ctx context.Context, video *models.Video, segments []models.Segment, cues []models.Cue) error
	FindVideo(ctx context.Context, id string) (*models.Video, error)
	SearchCues(ctx context.Context, phrase string, exact bool) ([]models.SearchResult, error)
	Ping(ctx context.Context) error
	Close() error
}
