package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"phrasevid/errors"
	"phrasevid/models"
)

func newTestRepository(t *testing.T) *Repository {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := InitDB(dbPath, DefaultDBConfig())
	if err != nil {
		t.Fatalf("failed to initialize database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewRepository(db)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	return repo
}

func testVideo(id string) *models.Video {
	return &models.Video{
		ID:              id,
		Filename:        id + ".mp4",
		OriginalName:    "original-" + id + ".mp4",
		DurationSeconds: 95.5,
		Width:           1920,
		Height:          1080,
		CreatedAt:       time.Now().UTC(),
	}
}

func TestSaveIngestionCommits(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	video := testVideo("video-1")
	segments := []models.Segment{
		{StartOffsetSeconds: 0, DurationSeconds: 10, StoragePath: "/cache/s0.mp4"},
		{StartOffsetSeconds: 10, DurationSeconds: 10, StoragePath: "/cache/s10.mp4"},
	}
	cues := []models.Cue{
		{Text: "hello world", StartMS: 0, EndMS: 2000},
		{Text: "goodbye", StartMS: 2000, EndMS: 4000},
	}

	if err := repo.SaveIngestion(ctx, video, segments, cues); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}

	found, err := repo.FindVideo(ctx, "video-1")
	if err != nil {
		t.Fatalf("FindVideo failed: %v", err)
	}
	if found.Filename != video.Filename || found.Width != 1920 {
		t.Errorf("unexpected video row: %+v", found)
	}

	results, err := repo.SearchCues(ctx, "", false)
	if err != nil {
		t.Fatalf("SearchCues failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("expected 2 cues visible, got %d", len(results))
	}
}

func TestSaveIngestionRollsBackAtomically(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	video := testVideo("video-atomic")
	cues := []models.Cue{
		{Text: "valid one", StartMS: 0, EndMS: 1000},
		{Text: "valid two", StartMS: 1000, EndMS: 2000},
		// Violates the end_ms > start_ms constraint, failing mid-batch.
		{Text: "broken", StartMS: 3000, EndMS: 3000},
	}

	err := repo.SaveIngestion(ctx, video, nil, cues)
	if err == nil {
		t.Fatal("expected persistence failure")
	}
	if kind := errors.KindOf(err); kind != errors.KindPersistence {
		t.Errorf("expected kind %q, got %q", errors.KindPersistence, kind)
	}

	// Full rollback: neither the video nor the valid cues are visible.
	if _, err := repo.FindVideo(ctx, "video-atomic"); err == nil {
		t.Error("video row should not exist after rollback")
	}

	results, err := repo.SearchCues(ctx, "", false)
	if err != nil {
		t.Fatalf("SearchCues failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected 0 cues after rollback, got %d", len(results))
	}
}

func TestFindVideoNotFound(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.FindVideo(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown video")
	}
	if kind := errors.KindOf(err); kind != errors.KindAssetNotFound {
		t.Errorf("expected kind %q, got %q", errors.KindAssetNotFound, kind)
	}
}

func TestSearchOrdering(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	// Insertion order deliberately scrambled against the expected output.
	if err := repo.SaveIngestion(ctx, testVideo("a-video"), nil, []models.Cue{
		{Text: "match late", StartMS: 2000, EndMS: 3000},
		{Text: "match early", StartMS: 500, EndMS: 700},
	}); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}
	if err := repo.SaveIngestion(ctx, testVideo("b-video"), nil, []models.Cue{
		{Text: "match other", StartMS: 100, EndMS: 200},
	}); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}

	results, err := repo.SearchCues(ctx, "match", false)
	if err != nil {
		t.Fatalf("SearchCues failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}

	expected := []struct {
		videoID string
		startMS int64
	}{
		{"a-video", 500},
		{"a-video", 2000},
		{"b-video", 100},
	}
	for i, want := range expected {
		if results[i].VideoID != want.videoID || results[i].StartMS != want.startMS {
			t.Errorf("position %d: expected %s@%d, got %s@%d",
				i, want.videoID, want.startMS, results[i].VideoID, results[i].StartMS)
		}
	}
}

func TestSearchExactVersusSubstring(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveIngestion(ctx, testVideo("v1"), nil, []models.Cue{
		{Text: "The cat sat", StartMS: 0, EndMS: 1000},
		{Text: "cat", StartMS: 1000, EndMS: 2000},
		{Text: "dog", StartMS: 2000, EndMS: 3000},
	}); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}

	tests := []struct {
		name    string
		phrase  string
		exact   bool
		expects []string
	}{
		{
			name:    "substring matches containment case-insensitively",
			phrase:  "CAT",
			exact:   false,
			expects: []string{"The cat sat", "cat"},
		},
		{
			name:    "exact requires verbatim text",
			phrase:  "cat",
			exact:   true,
			expects: []string{"cat"},
		},
		{
			name:    "exact is case-sensitive",
			phrase:  "CAT",
			exact:   true,
			expects: []string{},
		},
		{
			name:    "empty phrase matches every cue",
			phrase:  "",
			exact:   false,
			expects: []string{"The cat sat", "cat", "dog"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results, err := repo.SearchCues(ctx, tt.phrase, tt.exact)
			if err != nil {
				t.Fatalf("SearchCues failed: %v", err)
			}
			if len(results) != len(tt.expects) {
				t.Fatalf("expected %d results, got %d", len(tt.expects), len(results))
			}
			for i, text := range tt.expects {
				if results[i].Text != text {
					t.Errorf("position %d: expected %q, got %q", i, text, results[i].Text)
				}
			}
		})
	}
}

func TestSearchEscapesLikeWildcards(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	if err := repo.SaveIngestion(ctx, testVideo("v1"), nil, []models.Cue{
		{Text: "100% done", StartMS: 0, EndMS: 1000},
		{Text: "100x done", StartMS: 1000, EndMS: 2000},
	}); err != nil {
		t.Fatalf("SaveIngestion failed: %v", err)
	}

	results, err := repo.SearchCues(ctx, "100%", false)
	if err != nil {
		t.Fatalf("SearchCues failed: %v", err)
	}
	if len(results) != 1 || results[0].Text != "100% done" {
		t.Errorf("LIKE wildcard leaked into pattern: %+v", results)
	}
}
