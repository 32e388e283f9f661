package handlers

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"phrasevid/errors"
	"phrasevid/services/ingest"
)

// Upload accepts the multipart video+subtitles pair and runs the ingestion
// pipeline synchronously, answering with the new video's identity and
// probed metadata.
func (h *VideoHandler) Upload(c *fiber.Ctx) error {
	const op = "VideoHandler.Upload"

	videoFile, err := c.FormFile("video")
	if err != nil {
		return errors.MissingInput(op, err, "video file is required")
	}
	captionFile, err := c.FormFile("subtitles")
	if err != nil {
		return errors.MissingInput(op, err, "subtitles file is required")
	}

	if err := h.validator.ValidateUpload(videoFile.Filename, videoFile.Size, captionFile.Filename); err != nil {
		return err
	}

	storedName := uuid.New().String() + filepath.Ext(videoFile.Filename)
	assetPath := filepath.Join(h.config.UploadDir, storedName)
	if err := c.SaveFile(videoFile, assetPath); err != nil {
		return errors.Internal(op, err, "failed to store uploaded video")
	}

	captionContent, err := readMultipart(captionFile)
	if err != nil {
		h.discardAsset(assetPath)
		return errors.Internal(op, err, "failed to read subtitles upload")
	}

	result, err := h.ingest.Ingest(c.Context(), ingest.Request{
		AssetPath:      assetPath,
		StoredName:     storedName,
		OriginalName:   videoFile.Filename,
		CaptionContent: captionContent,
		CaptionFormat:  filepath.Ext(captionFile.Filename),
	})
	if err != nil {
		h.discardAsset(assetPath)
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"video_id": result.VideoID,
		"info":     result.Info,
	})
}

func readMultipart(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// discardAsset removes an uploaded original after its ingestion failed; a
// file no row references is unreachable anyway.
func (h *VideoHandler) discardAsset(assetPath string) {
	if err := os.Remove(assetPath); err != nil && !os.IsNotExist(err) {
		h.logger.Error().Err(err).Str("path", assetPath).Msg("Failed to remove orphaned upload")
	}
}
