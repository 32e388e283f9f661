// Package captions normalizes time-coded caption files into a single cue
// representation with millisecond timestamps.
package captions

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"phrasevid/errors"
	"phrasevid/models"
)

// Normalize parses raw caption content into cues ordered by ascending start
// time. The format hint is the file extension, with or without the leading
// dot. A single malformed cue rejects the whole file.
func Normalize(raw []byte, formatHint string) ([]models.Cue, error) {
	const op = "captions.Normalize"

	hint := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(formatHint), "."))

	var (
		cues []models.Cue
		err  error
	)
	switch hint {
	case "srt":
		cues, err = parseSRT(raw)
	case "vtt":
		cues, err = parseVTT(raw)
	default:
		return nil, errors.UnsupportedFormat(op, nil,
			fmt.Sprintf("unsupported caption format: %q", formatHint))
	}
	if err != nil {
		return nil, errors.MalformedCaption(op, err, "failed to parse caption file")
	}

	for _, cue := range cues {
		if cue.StartMS < 0 || cue.StartMS >= cue.EndMS {
			return nil, errors.MalformedCaption(op, nil,
				fmt.Sprintf("non-monotonic cue range %d-%dms", cue.StartMS, cue.EndMS))
		}
	}

	sort.SliceStable(cues, func(i, j int) bool {
		return cues[i].StartMS < cues[j].StartMS
	})

	return cues, nil
}

// parseSRT handles the sequence-number/time-range/text block format with
// HH:MM:SS,mmm timestamps.
func parseSRT(raw []byte) ([]models.Cue, error) {
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("empty caption file")
	}

	var cues []models.Cue
	for _, block := range strings.Split(content, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}

		lines := strings.Split(block, "\n")

		// Optional numeric index line.
		if _, err := strconv.Atoi(strings.TrimSpace(lines[0])); err == nil {
			lines = lines[1:]
		}
		if len(lines) == 0 || !strings.Contains(lines[0], "-->") {
			return nil, fmt.Errorf("cue block missing timestamp line: %q", block)
		}

		startMS, endMS, err := parseSRTRange(lines[0])
		if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(strings.Join(lines[1:], "\n"))
		if text == "" {
			return nil, fmt.Errorf("cue at %dms has no text", startMS)
		}

		cues = append(cues, models.Cue{
			Text:    text,
			StartMS: startMS,
			EndMS:   endMS,
		})
	}

	return cues, nil
}

func parseSRTRange(line string) (int64, int64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timestamp line %q", line)
	}
	start, err := parseSRTTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}
	end, err := parseSRTTimestamp(parts[1])
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// parseSRTTimestamp converts HH:MM:SS,mmm to milliseconds. A period is
// accepted in place of the comma.
func parseSRTTimestamp(value string) (int64, error) {
	value = strings.TrimSpace(value)
	value = strings.ReplaceAll(value, ".", ",")

	timeParts := strings.Split(value, ",")
	if len(timeParts) != 2 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}
	hms := strings.Split(timeParts[0], ":")
	if len(hms) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	hours, errH := strconv.Atoi(hms[0])
	minutes, errM := strconv.Atoi(hms[1])
	seconds, errS := strconv.Atoi(hms[2])
	millis, errMS := strconv.Atoi(timeParts[1])
	if errH != nil || errM != nil || errS != nil || errMS != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	return int64(hours)*3600_000 + int64(minutes)*60_000 + int64(seconds)*1000 + int64(millis), nil
}

// parseVTT handles WEBVTT cue trees. Timestamps are fractional seconds,
// rounded to whole milliseconds.
func parseVTT(raw []byte) ([]models.Cue, error) {
	content := strings.ReplaceAll(string(raw), "\r\n", "\n")
	content = strings.TrimPrefix(content, "\ufeff")
	content = strings.TrimSpace(content)

	lines := strings.Split(content, "\n")
	if len(lines) == 0 || !strings.HasPrefix(lines[0], "WEBVTT") {
		return nil, fmt.Errorf("missing WEBVTT header")
	}

	var cues []models.Cue
	blocks := strings.Split(strings.Join(lines[1:], "\n"), "\n\n")
	for _, block := range blocks {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		if strings.HasPrefix(block, "NOTE") || strings.HasPrefix(block, "STYLE") ||
			strings.HasPrefix(block, "REGION") {
			continue
		}

		blockLines := strings.Split(block, "\n")

		// Optional cue identifier line.
		if !strings.Contains(blockLines[0], "-->") {
			blockLines = blockLines[1:]
		}
		if len(blockLines) == 0 || !strings.Contains(blockLines[0], "-->") {
			return nil, fmt.Errorf("cue block missing timestamp line: %q", block)
		}

		startSec, endSec, err := parseVTTRange(blockLines[0])
		if err != nil {
			return nil, err
		}

		text := strings.TrimSpace(strings.Join(blockLines[1:], "\n"))
		if text == "" {
			return nil, fmt.Errorf("cue at %.3fs has no text", startSec)
		}

		cues = append(cues, models.Cue{
			Text:    text,
			StartMS: int64(math.Round(startSec * 1000)),
			EndMS:   int64(math.Round(endSec * 1000)),
		})
	}

	return cues, nil
}

func parseVTTRange(line string) (float64, float64, error) {
	parts := strings.Split(line, "-->")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid timestamp line %q", line)
	}

	start, err := parseVTTTimestamp(parts[0])
	if err != nil {
		return 0, 0, err
	}

	// Cue settings may follow the end timestamp.
	endField := strings.Fields(strings.TrimSpace(parts[1]))
	if len(endField) == 0 {
		return 0, 0, fmt.Errorf("invalid timestamp line %q", line)
	}
	end, err := parseVTTTimestamp(endField[0])
	if err != nil {
		return 0, 0, err
	}

	return start, end, nil
}

// parseVTTTimestamp converts [HH:]MM:SS.mmm to fractional seconds.
func parseVTTTimestamp(value string) (float64, error) {
	value = strings.TrimSpace(value)
	parts := strings.Split(value, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	seconds, err := strconv.ParseFloat(parts[len(parts)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	minutes, err := strconv.Atoi(parts[len(parts)-2])
	if err != nil {
		return 0, fmt.Errorf("invalid timestamp %q", value)
	}

	var hours int
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("invalid timestamp %q", value)
		}
	}

	return float64(hours)*3600 + float64(minutes)*60 + seconds, nil
}
