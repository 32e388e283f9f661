// Package search answers phrase queries over persisted cue text.
package search

import (
	"context"

	"github.com/rs/zerolog"

	"phrasevid/models"
	"phrasevid/repository"
)

type Service interface {
	Search(ctx context.Context, phrase string, exact bool) ([]models.SearchResult, error)
}

type service struct {
	repo   repository.VideoRepository
	logger zerolog.Logger
}

func NewService(repo repository.VideoRepository, logger zerolog.Logger) Service {
	return &service{
		repo:   repo,
		logger: logger.With().Str("component", "search").Logger(),
	}
}

// Search returns matching cues ordered by video identity, then start time.
// An empty phrase with exact=false legitimately matches every cue; it is
// not an error.
func (s *service) Search(ctx context.Context, phrase string, exact bool) ([]models.SearchResult, error) {
	results, err := s.repo.SearchCues(ctx, phrase, exact)
	if err != nil {
		s.logger.Error().Err(err).Str("phrase", phrase).Msg("Search query failed")
		return nil, err
	}

	s.logger.Debug().
		Str("phrase", phrase).
		Bool("exact", exact).
		Int("results", len(results)).
		Msg("Search completed")

	return results, nil
}
