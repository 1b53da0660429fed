package parser

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/miwamasa/smolagentUIWrapper/models"
	"go.uber.org/zap"
)

var (
	quotedImagePattern = regexp.MustCompile(`(?i)["']([\w./\\-]+\.(?:png|jpe?g|gif|bmp|svg))["']`)
	bareImagePattern   = regexp.MustCompile(`(?i)[\w./\\-]+\.(?:png|jpe?g|gif|bmp|svg)\b`)
	dataURIPattern     = regexp.MustCompile(`data:image/(\w+);base64,([A-Za-z0-9+/=]+)`)
)

// extractImages finds images in three places: save targets quoted inside
// executed code, bare filenames in the transcript, and inline data URIs.
// File references are probed against ImageRoots; a path that resolves
// nowhere is skipped with a warning and produces no event.
func (e *Engine) extractImages(raw *models.RawAgentOutput, led *ledger) []models.Event {
	var events []models.Event

	for _, step := range raw.CodeSteps {
		for _, m := range quotedImagePattern.FindAllStringSubmatch(step.Code, -1) {
			if ev := e.imageFromPath(m[1], led); ev != nil {
				events = append(events, ev)
			}
		}
	}

	for _, path := range bareImagePattern.FindAllString(raw.RawOutput, -1) {
		if ev := e.imageFromPath(path, led); ev != nil {
			events = append(events, ev)
		}
	}

	// Inline data URIs are taken verbatim, no disk probe.
	for _, m := range dataURIPattern.FindAllStringSubmatch(raw.RawOutput, -1) {
		format, data := m[1], m[2]
		if !led.mark(models.EventImage, data) {
			continue
		}
		events = append(events, models.NewImageEvent(data, format, ""))
	}

	return events
}

func (e *Engine) imageFromPath(path string, led *ledger) models.Event {
	resolved, ok := e.resolveImagePath(path)
	if !ok {
		e.Logger.Warn("referenced image not found", zap.String("path", path))
		return nil
	}
	if !led.mark(models.EventImage, resolved) {
		return nil
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		e.Logger.Warn("failed to read image", zap.String("path", resolved), zap.Error(err))
		return nil
	}
	format := strings.TrimPrefix(strings.ToLower(filepath.Ext(resolved)), ".")
	return models.NewImageEvent(base64.StdEncoding.EncodeToString(data), format, resolved)
}

// resolveImagePath probes the configured roots in order and returns the
// first existing regular file.
func (e *Engine) resolveImagePath(path string) (string, bool) {
	for _, root := range e.ImageRoots {
		candidate := path
		if root != "" {
			candidate = filepath.Join(root, path)
		}
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, true
		}
	}
	return "", false
}

// extractHighlightRooms matches registry rooms as whole words in the
// final answer, case-insensitively. "Kitchen" matches "the Kitchen area"
// but not "Kitchenette".
func (e *Engine) extractHighlightRooms(raw *models.RawAgentOutput, led *ledger) []models.Event {
	if raw.Text == "" {
		return nil
	}
	var rooms []string
	for _, room := range e.Rooms {
		pattern := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(room) + `\b`)
		if pattern.MatchString(raw.Text) && led.mark(models.EventHighlightRoom, room) {
			rooms = append(rooms, room)
		}
	}
	if len(rooms) == 0 {
		return nil
	}
	return []models.Event{models.NewHighlightRoomEvent(rooms)}
}
