package handlers

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"phrasevid/errors"
)

// Thumbnail captures a still frame from the original upload at the
// requested timestamp. Each call forks an ffmpeg process, so requests wait
// on the thumbnail limiter before the capture starts.
func (h *VideoHandler) Thumbnail(c *fiber.Ctx) error {
	const op = "VideoHandler.Thumbnail"

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

	if err := h.thumbLimiter.Wait(c.Context()); err != nil {
		return errors.Internal(op, err, "request cancelled while waiting for thumbnail slot")
	}

	assetPath := filepath.Join(h.config.UploadDir, video.Filename)
	thumbPath, err := h.thumbs.CaptureThumbnail(c.Context(), assetPath, timestamp, h.config.CacheDir)
	if err != nil {
		return err
	}
	h.artifacts.Store(thumbPath)

	data, err := os.ReadFile(thumbPath)
	if err != nil {
		return errors.CacheIO(op, err, "failed to read generated thumbnail")
	}

	c.Set(fiber.HeaderContentType, "image/jpeg")
	return c.Send(data)
}
