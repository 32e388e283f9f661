package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"phrasevid/cache"
	"phrasevid/captions"
	"phrasevid/errors"
	"phrasevid/models"
	"phrasevid/transcode"
)

const validSRT = `1
00:00:01,000 --> 00:00:02,000
hello

2
00:00:03,000 --> 00:00:04,000
world
`

type fakeOrchestrator struct {
	probeInfo  transcode.ProbeInfo
	probeErr   error
	produce    int
	extractErr error

	probeCalls   int
	extractCalls int
}

func (f *fakeOrchestrator) Probe(ctx context.Context, assetPath string) (transcode.ProbeInfo, error) {
	f.probeCalls++
	if f.probeErr != nil {
		return transcode.ProbeInfo{}, f.probeErr
	}
	return f.probeInfo, nil
}

func (f *fakeOrchestrator) ExtractAll(
	ctx context.Context,
	assetPath string,
	duration float64,
	outputDir, prefix string,
) ([]transcode.SegmentFile, error) {
	f.extractCalls++

	produced := make([]transcode.SegmentFile, 0, f.produce)
	for i := 0; i < f.produce; i++ {
		start := float64(i) * 10
		path := filepath.Join(outputDir, fmt.Sprintf("%s_segment_%g.mp4", prefix, start))
		if err := os.WriteFile(path, []byte("segment"), 0644); err != nil {
			return produced, err
		}
		produced = append(produced, transcode.SegmentFile{
			Start:    start,
			Duration: 10,
			Path:     path,
		})
	}

	return produced, f.extractErr
}

type savedIngestion struct {
	video    *models.Video
	segments []models.Segment
	cues     []models.Cue
}

type fakeRepo struct {
	saveErr error
	saved   *savedIngestion
}

func (f *fakeRepo) SaveIngestion(ctx context.Context, video *models.Video, segments []models.Segment, cues []models.Cue) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = &savedIngestion{video: video, segments: segments, cues: cues}
	return nil
}

func (f *fakeRepo) FindVideo(ctx context.Context, id string) (*models.Video, error) {
	return nil, errors.AssetNotFound("fakeRepo.FindVideo", nil, "not found")
}

func (f *fakeRepo) SearchCues(ctx context.Context, phrase string, exact bool) ([]models.SearchResult, error) {
	return nil, nil
}

func (f *fakeRepo) Ping(ctx context.Context) error { return nil }
func (f *fakeRepo) Close() error                   { return nil }

func newTestService(t *testing.T, orch *fakeOrchestrator, repo *fakeRepo) (*service, *cache.Cache, string) {
	t.Helper()

	cacheDir := t.TempDir()
	artifacts := cache.New(cacheDir, zerolog.Nop())

	svc := &service{
		repo:      repo,
		orch:      orch,
		artifacts: artifacts,
		normalize: captions.Normalize,
		config: Config{
			CacheDir: cacheDir,
			SweepTTL: 24 * time.Hour,
		},
		logger: zerolog.Nop(),
	}
	return svc, artifacts, cacheDir
}

func validRequest(t *testing.T) Request {
	t.Helper()

	assetPath := filepath.Join(t.TempDir(), "upload.mp4")
	if err := os.WriteFile(assetPath, []byte("video"), 0644); err != nil {
		t.Fatalf("failed to write asset: %v", err)
	}

	return Request{
		AssetPath:      assetPath,
		StoredName:     "stored.mp4",
		OriginalName:   "holiday.mp4",
		CaptionContent: []byte(validSRT),
		CaptionFormat:  ".srt",
	}
}

func TestIngestSuccess(t *testing.T) {
	orch := &fakeOrchestrator{
		probeInfo: transcode.ProbeInfo{DurationSeconds: 25, Width: 1280, Height: 720},
		produce:   3,
	}
	repo := &fakeRepo{}
	svc, artifacts, _ := newTestService(t, orch, repo)

	result, err := svc.Ingest(context.Background(), validRequest(t))
	if err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	if result.VideoID == "" {
		t.Error("expected a video ID")
	}
	if result.Info.DurationSeconds != 25 {
		t.Errorf("expected probe info passed through, got %+v", result.Info)
	}

	if repo.saved == nil {
		t.Fatal("nothing persisted")
	}
	if repo.saved.video.ID != result.VideoID {
		t.Error("persisted video ID does not match result")
	}
	if len(repo.saved.segments) != 3 {
		t.Errorf("expected 3 segments, got %d", len(repo.saved.segments))
	}
	if len(repo.saved.cues) != 2 {
		t.Errorf("expected 2 cues, got %d", len(repo.saved.cues))
	}
	for _, cue := range repo.saved.cues {
		if cue.VideoID != result.VideoID {
			t.Errorf("cue not bound to video: %+v", cue)
		}
	}

	if artifacts.Len() != 3 {
		t.Errorf("expected 3 tracked artifacts, got %d", artifacts.Len())
	}
}

func TestIngestMissingInput(t *testing.T) {
	orch := &fakeOrchestrator{}
	svc, _, _ := newTestService(t, orch, &fakeRepo{})

	_, err := svc.Ingest(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errors.KindOf(err); kind != errors.KindMissingInput {
		t.Errorf("expected kind %q, got %q", errors.KindMissingInput, kind)
	}
	if orch.probeCalls != 0 {
		t.Error("transcoder must not be invoked without both inputs")
	}
}

func TestIngestProbeFailure(t *testing.T) {
	orch := &fakeOrchestrator{
		probeErr: errors.Probe("test", nil, "probe blew up"),
	}
	repo := &fakeRepo{}
	svc, artifacts, _ := newTestService(t, orch, repo)

	_, err := svc.Ingest(context.Background(), validRequest(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errors.KindOf(err); kind != errors.KindProbe {
		t.Errorf("expected kind %q, got %q", errors.KindProbe, kind)
	}

	if orch.extractCalls != 0 {
		t.Error("segmentation must not run after a failed probe")
	}
	if repo.saved != nil {
		t.Error("nothing may be persisted after a failed probe")
	}
	if artifacts.Len() != 0 {
		t.Errorf("expected no artifacts, got %d", artifacts.Len())
	}
}

func TestIngestTranscodeFailureCleansUpArtifacts(t *testing.T) {
	orch := &fakeOrchestrator{
		probeInfo:  transcode.ProbeInfo{DurationSeconds: 50, Width: 1280, Height: 720},
		produce:    2,
		extractErr: errors.Transcode("test", nil, "cut failed"),
	}
	repo := &fakeRepo{}
	svc, artifacts, cacheDir := newTestService(t, orch, repo)

	_, err := svc.Ingest(context.Background(), validRequest(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errors.KindOf(err); kind != errors.KindTranscode {
		t.Errorf("expected kind %q, got %q", errors.KindTranscode, kind)
	}

	if repo.saved != nil {
		t.Error("nothing may be persisted after a failed segmentation")
	}
	if artifacts.Len() != 0 {
		t.Errorf("expected compensating cleanup, %d artifacts still tracked", artifacts.Len())
	}

	entries, readErr := os.ReadDir(cacheDir)
	if readErr != nil {
		t.Fatalf("failed to read cache dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty cache dir after cleanup, found %d files", len(entries))
	}
}

func TestIngestMalformedCaptionsCleansUpArtifacts(t *testing.T) {
	orch := &fakeOrchestrator{
		probeInfo: transcode.ProbeInfo{DurationSeconds: 25, Width: 1280, Height: 720},
		produce:   3,
	}
	repo := &fakeRepo{}
	svc, artifacts, _ := newTestService(t, orch, repo)

	req := validRequest(t)
	req.CaptionContent = []byte("not a caption file at all")

	_, err := svc.Ingest(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errors.KindOf(err); kind != errors.KindMalformedCaption {
		t.Errorf("expected kind %q, got %q", errors.KindMalformedCaption, kind)
	}

	if repo.saved != nil {
		t.Error("nothing may be persisted after a caption failure")
	}
	if artifacts.Len() != 0 {
		t.Errorf("expected compensating cleanup, %d artifacts still tracked", artifacts.Len())
	}
}

func TestIngestUnsupportedCaptionFormat(t *testing.T) {
	orch := &fakeOrchestrator{
		probeInfo: transcode.ProbeInfo{DurationSeconds: 25, Width: 1280, Height: 720},
		produce:   1,
	}
	svc, _, _ := newTestService(t, orch, &fakeRepo{})

	req := validRequest(t)
	req.CaptionFormat = ".ass"

	_, err := svc.Ingest(context.Background(), req)
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errors.KindOf(err); kind != errors.KindUnsupportedFormat {
		t.Errorf("expected kind %q, got %q", errors.KindUnsupportedFormat, kind)
	}
}

func TestIngestPersistenceFailureCleansUpArtifacts(t *testing.T) {
	orch := &fakeOrchestrator{
		probeInfo: transcode.ProbeInfo{DurationSeconds: 25, Width: 1280, Height: 720},
		produce:   3,
	}
	repo := &fakeRepo{
		saveErr: errors.Persistence("test", nil, "insert failed"),
	}
	svc, artifacts, cacheDir := newTestService(t, orch, repo)

	_, err := svc.Ingest(context.Background(), validRequest(t))
	if err == nil {
		t.Fatal("expected error")
	}
	if kind := errors.KindOf(err); kind != errors.KindPersistence {
		t.Errorf("expected kind %q, got %q", errors.KindPersistence, kind)
	}

	if artifacts.Len() != 0 {
		t.Errorf("expected compensating cleanup, %d artifacts still tracked", artifacts.Len())
	}
	entries, readErr := os.ReadDir(cacheDir)
	if readErr != nil {
		t.Fatalf("failed to read cache dir: %v", readErr)
	}
	if len(entries) != 0 {
		t.Errorf("expected empty cache dir after cleanup, found %d files", len(entries))
	}
}

func TestIngestSegmentsOrderedAndContiguous(t *testing.T) {
	orch := &fakeOrchestrator{
		probeInfo: transcode.ProbeInfo{DurationSeconds: 30, Width: 640, Height: 480},
		produce:   3,
	}
	repo := &fakeRepo{}
	svc, _, _ := newTestService(t, orch, repo)

	if _, err := svc.Ingest(context.Background(), validRequest(t)); err != nil {
		t.Fatalf("Ingest failed: %v", err)
	}

	var cursor float64
	for i, segment := range repo.saved.segments {
		if segment.StartOffsetSeconds != cursor {
			t.Errorf("segment %d starts at %g, expected %g", i, segment.StartOffsetSeconds, cursor)
		}
		cursor += segment.DurationSeconds
	}
}
