package transcode

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
)

// Interval is one planned segment cut.
type Interval struct {
	Start    float64
	Duration float64
}

// SegmentFile is an interval that was actually written to disk.
type SegmentFile struct {
	Start    float64
	Duration float64
	Path     string
}

// Intervals plans the ordered cut list for a given duration: steps of
// segmentLength from zero, with the final interval truncated to the
// remainder. Covers [0, duration) exactly once.
func Intervals(duration, segmentLength float64) []Interval {
	var intervals []Interval
	for start := 0.0; start < duration; start += segmentLength {
		length := segmentLength
		if remaining := duration - start; remaining < length {
			length = remaining
		}
		intervals = append(intervals, Interval{Start: start, Duration: length})
	}
	return intervals
}

// ExtractAll cuts every planned segment of the asset into outputDir under a
// worker pool bounded by Config.Workers. The first failure cancels the
// remaining cuts. The returned slice lists every file actually produced,
// ordered by start offset, including files written before an abort — the
// caller owns compensating cleanup.
func (o *Orchestrator) ExtractAll(
	ctx context.Context,
	assetPath string,
	duration float64,
	outputDir string,
	prefix string,
) ([]SegmentFile, error) {
	intervals := Intervals(duration, o.config.SegmentSeconds)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan Interval)
	produced := make([]SegmentFile, 0, len(intervals))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)

	for i := 0; i < o.config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for iv := range jobs {
				if ctx.Err() != nil {
					continue
				}

				path := filepath.Join(outputDir,
					fmt.Sprintf("%s_segment_%g.mp4", prefix, iv.Start))
				if err := o.ExtractSegment(ctx, assetPath, iv.Start, iv.Duration, path); err != nil {
					mu.Lock()
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					continue
				}

				mu.Lock()
				produced = append(produced, SegmentFile{
					Start:    iv.Start,
					Duration: iv.Duration,
					Path:     path,
				})
				mu.Unlock()
			}
		}()
	}

	for _, iv := range intervals {
		jobs <- iv
	}
	close(jobs)
	wg.Wait()

	// Workers finish out of order.
	sort.Slice(produced, func(i, j int) bool {
		return produced[i].Start < produced[j].Start
	})

	return produced, firstErr
}
