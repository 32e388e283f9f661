package sqlite

import (
	"context"
	"database/sql"
	"strings"

	"phrasevid/errors"
	"phrasevid/models"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) (*Repository, error) {
	return &Repository{db: db}, nil
}

// SaveIngestion persists one ingestion's Video, Segment, and Cue rows in a
// single transaction. Any insert failure rolls the whole unit back; readers
// never observe a video without its segments and cues.
func (r *Repository) SaveIngestion(
	ctx context.Context,
	video *models.Video,
	segments []models.Segment,
	cues []models.Cue,
) error {
	const op = "SQLiteRepository.SaveIngestion"

	err := WithTransaction(ctx, r.db, func(tx Executor) error {
		if _, err := tx.ExecContext(ctx, insertVideoQuery,
			video.ID,
			video.Filename,
			video.OriginalName,
			video.DurationSeconds,
			video.Width,
			video.Height,
			video.CreatedAt,
		); err != nil {
			return err
		}

		for _, segment := range segments {
			if _, err := tx.ExecContext(ctx, insertSegmentQuery,
				video.ID,
				segment.StartOffsetSeconds,
				segment.DurationSeconds,
				segment.StoragePath,
			); err != nil {
				return err
			}
		}

		for _, cue := range cues {
			if _, err := tx.ExecContext(ctx, insertCueQuery,
				video.ID,
				cue.Text,
				cue.StartMS,
				cue.EndMS,
			); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return errors.Persistence(op, err, "failed to persist ingestion")
	}

	return nil
}

func (r *Repository) FindVideo(ctx context.Context, id string) (*models.Video, error) {
	const op = "SQLiteRepository.FindVideo"

	video := &models.Video{}
	err := r.db.QueryRowContext(ctx, getVideoQuery, id).Scan(
		&video.ID,
		&video.Filename,
		&video.OriginalName,
		&video.DurationSeconds,
		&video.Width,
		&video.Height,
		&video.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.AssetNotFound(op, nil, "Video not found")
	}
	if err != nil {
		return nil, errors.Persistence(op, err, "failed to query video")
	}

	return video, nil
}

// SearchCues runs the phrase query. Exact matches are case-sensitive;
// substring matches are case-insensitive. An empty phrase with exact=false
// matches every cue.
func (r *Repository) SearchCues(
	ctx context.Context,
	phrase string,
	exact bool,
) ([]models.SearchResult, error) {
	const op = "SQLiteRepository.SearchCues"

	var rows *sql.Rows
	var err error
	if exact {
		rows, err = r.db.QueryContext(ctx, searchExactQuery, phrase)
	} else {
		rows, err = r.db.QueryContext(ctx, searchSubstringQuery, substringPattern(phrase))
	}
	if err != nil {
		return nil, errors.Persistence(op, err, "failed to query cues")
	}
	defer rows.Close()

	results := []models.SearchResult{}
	for rows.Next() {
		var res models.SearchResult
		if err := rows.Scan(
			&res.VideoID,
			&res.Text,
			&res.StartMS,
			&res.EndMS,
			&res.Filename,
			&res.OriginalName,
		); err != nil {
			return nil, errors.Persistence(op, err, "failed to scan search result")
		}
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Persistence(op, err, "failed to iterate search results")
	}

	return results, nil
}

// substringPattern builds the LIKE pattern for a case-insensitive substring
// match, escaping LIKE metacharacters in the phrase itself.
func substringPattern(phrase string) string {
	escaped := strings.NewReplacer(
		`\`, `\\`,
		`%`, `\%`,
		`_`, `\_`,
	).Replace(strings.ToLower(phrase))
	return "%" + escaped + "%"
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}
