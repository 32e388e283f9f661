package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"phrasevid/errors"
	"phrasevid/streaming"
)

// StreamVideo serves one chunk of the original upload. Only open-ended
// "bytes=<start>-" ranges are accepted; the response span is capped at the
// configured chunk size. Segment files in the cache are transient seek
// artifacts with a TTL, so the original asset is the streaming source — it
// outlives every sweep. The asset is leased for the duration of the
// transfer.
func (h *VideoHandler) StreamVideo(c *fiber.Ctx) error {
	const op = "VideoHandler.StreamVideo"

	videoID := c.Params("videoId")
	timestamp, err := strconv.ParseFloat(c.Params("timestamp"), 64)
	if err != nil || timestamp < 0 {
		return errors.InvalidInput(op, err, "timestamp must be a non-negative number of seconds")
	}

	video, err := h.repo.FindVideo(c.Context(), videoID)
	if err != nil {
		return err
	}
	if timestamp >= video.DurationSeconds {
		return errors.AssetNotFound(op, nil,
			fmt.Sprintf("timestamp %g beyond video duration %g", timestamp, video.DurationSeconds))
	}

	assetPath := filepath.Join(h.config.UploadDir, video.Filename)
	info, err := os.Stat(assetPath)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.AssetNotFound(op, err, "video asset missing")
		}
		return errors.CacheIO(op, err, "failed to stat video asset")
	}

	plan, err := streaming.ParseRange(c.Get(fiber.HeaderRange), info.Size(), h.config.Stream.ChunkSize)
	if err != nil {
		return err
	}

	h.artifacts.Acquire(assetPath)
	span, err := streaming.OpenSpan(assetPath, plan, func() {
		h.artifacts.Release(assetPath)
	})
	if err != nil {
		h.artifacts.Release(assetPath)
		return err
	}

	// fasthttp closes the body stream when the transfer ends, which in
	// turn returns the lease.
	c.Set(fiber.HeaderContentRange, plan.ContentRange())
	c.Set(fiber.HeaderAcceptRanges, "bytes")
	c.Set(fiber.HeaderContentLength, strconv.FormatInt(plan.Length(), 10))
	c.Set(fiber.HeaderContentType, "video/mp4")
	c.Status(fiber.StatusPartialContent)
	return c.SendStream(span, int(plan.Length()))
}
