package validation

import (
	"fmt"
	"path/filepath"
	"strings"

	"phrasevid/config"
	"phrasevid/errors"
)

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

var captionExtensions = map[string]bool{
	".srt": true,
	".vtt": true,
}

type Validator struct {
	config *config.Config
}

func NewValidator(cfg *config.Config) *Validator {
	return &Validator{config: cfg}
}

// ValidateUpload checks both multipart fields before any transcoder work
// starts.
func (v *Validator) ValidateUpload(videoName string, videoSize int64, captionName string) error {
	const op = "Validator.ValidateUpload"

	if videoName == "" {
		return errors.MissingInput(op, nil, "video file is required")
	}
	if captionName == "" {
		return errors.MissingInput(op, nil, "subtitles file is required")
	}

	if ext := strings.ToLower(filepath.Ext(videoName)); !videoExtensions[ext] {
		return errors.UnsupportedFormat(op, nil,
			fmt.Sprintf("unsupported video format: %q", ext))
	}
	if ext := strings.ToLower(filepath.Ext(captionName)); !captionExtensions[ext] {
		return errors.UnsupportedFormat(op, nil,
			fmt.Sprintf("unsupported caption format: %q", ext))
	}

	if videoSize > v.config.MaxUploadSize {
		return errors.InvalidInput(op, nil,
			fmt.Sprintf("video exceeds maximum upload size of %d bytes", v.config.MaxUploadSize))
	}

	return nil
}
