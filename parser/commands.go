package parser

import (
	"regexp"
	"strings"

	"github.com/miwamasa/smolagentUIWrapper/models"
	"go.uber.org/zap"
)

// Markers the agent uses to drive the map. The function forms appear in
// executed code, the uppercase tags anywhere in the transcript or the
// final answer.
const (
	clearArrowsCall = "clear_arrows("
	clearArrowsTag  = "CLEAR_ARROWS_COMMAND"
	clearMapCall    = "clear_map("
	clearMapTag     = "CLEAR_MAP_COMMAND"
	mapCommandTag   = "MAP_COMMAND:"
)

var (
	arrowCallPattern = regexp.MustCompile(`draw_arrow\(\s*room_name=["']([^"']+)["']\s*,\s*direction=["']([^"']+)["']\s*\)`)
	arrowTagPattern  = regexp.MustCompile(`(?i)ARROW_COMMAND:\s*room=([^,\n]+),\s*direction=(\w+)`)
)

var arrowDirections = map[string]struct{}{
	"up":    {},
	"down":  {},
	"left":  {},
	"right": {},
}

// extractArrows reads both arrow forms. Direction is normalized to
// lowercase; anything outside up/down/left/right yields no event.
func (e *Engine) extractArrows(raw *models.RawAgentOutput, led *ledger) []models.Event {
	var events []models.Event
	emit := func(room, direction string) {
		room = strings.TrimSpace(room)
		direction = strings.ToLower(strings.TrimSpace(direction))
		if room == "" {
			return
		}
		if _, ok := arrowDirections[direction]; !ok {
			e.Logger.Debug("arrow with unknown direction skipped",
				zap.String("room", room), zap.String("direction", direction))
			return
		}
		if !led.mark(models.EventArrow, room+"\x00"+direction) {
			return
		}
		events = append(events, models.NewArrowEvent(room, direction))
	}

	for _, step := range raw.CodeSteps {
		for _, m := range arrowCallPattern.FindAllStringSubmatch(step.Code, -1) {
			emit(m[1], m[2])
		}
	}
	for _, m := range arrowTagPattern.FindAllStringSubmatch(combinedOutput(raw), -1) {
		emit(m[1], m[2])
	}
	return events
}

// extractClearArrows is a presence test; repeats collapse to one event.
func (e *Engine) extractClearArrows(raw *models.RawAgentOutput, _ *ledger) []models.Event {
	if e.hasMarker(raw, clearArrowsCall, clearArrowsTag) {
		return []models.Event{models.NewClearArrowsEvent()}
	}
	return nil
}

// extractClearMap is a presence test; repeats collapse to one event.
func (e *Engine) extractClearMap(raw *models.RawAgentOutput, _ *ledger) []models.Event {
	if e.hasMarker(raw, clearMapCall, clearMapTag) {
		return []models.Event{models.NewClearMapEvent()}
	}
	return nil
}

func (e *Engine) hasMarker(raw *models.RawAgentOutput, call, tag string) bool {
	for _, step := range raw.CodeSteps {
		if strings.Contains(step.Code, call) {
			return true
		}
	}
	return strings.Contains(combinedOutput(raw), tag)
}

// extractMapCommand parses the JSON payload of the last MAP_COMMAND tag.
// Earlier tags are superseded; a malformed last payload drops the event
// entirely, it does not fall back to an earlier one.
func (e *Engine) extractMapCommand(raw *models.RawAgentOutput, _ *ledger) []models.Event {
	combined := combinedOutput(raw)
	idx := strings.LastIndex(combined, mapCommandTag)
	if idx < 0 {
		return nil
	}
	body, ok := carveJSONObject(combined[idx+len(mapCommandTag):])
	if !ok {
		e.Logger.Warn("map command tag without a complete JSON object")
		return nil
	}
	payload, err := models.ParseMapCommandPayload([]byte(body))
	if err != nil {
		e.Logger.Warn("dropping malformed map command", zap.Error(err))
		return nil
	}
	return []models.Event{models.NewMapCommandEvent(*payload)}
}

// carveJSONObject returns the first balanced {...} object in s. Go's
// regexp cannot match nested braces, so this is a small string-aware
// scan that ignores braces inside JSON strings.
func carveJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
