package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Overlay and position variants accepted in map commands.
const (
	OverlayTypeBitmap = "bitmap"
	OverlayTypeText   = "text"

	PositionTypeCoordinate = "coordinate"
	PositionTypeRectangle  = "rectangle"
)

// MapCommandPayload is the JSON body of a MAP_COMMAND tag. Payloads are
// validated on parse; an invalid payload never becomes an event.
type MapCommandPayload struct {
	FloorID    string             `json:"floorId"`
	Timestamp  string             `json:"timestamp"`
	Rectangles []CommandRectangle `json:"rectangles,omitempty"`
	Overlays   []Overlay          `json:"overlays,omitempty"`
}

// CommandRectangle styles one named floor region.
type CommandRectangle struct {
	Name          string  `json:"name"`
	Color         string  `json:"color"`
	StrokeOpacity float64 `json:"strokeOpacity"`
	FillOpacity   float64 `json:"fillOpacity"`
	ShowName      bool    `json:"showName"`
}

// Overlay places a bitmap or a text label on the map. Exactly the fields
// of the tagged variant must be set: bitmap overlays carry BitmapID,
// text overlays carry Text.
type Overlay struct {
	Type     string          `json:"type"`
	BitmapID string          `json:"bitmapId,omitempty"`
	Text     string          `json:"text,omitempty"`
	Position OverlayPosition `json:"position"`
}

// OverlayPosition is either an explicit virtual coordinate or a
// reference to a named rectangle. X and Y are pointers so that a
// missing coordinate is distinguishable from zero.
type OverlayPosition struct {
	Type string   `json:"type"`
	X    *float64 `json:"x,omitempty"`
	Y    *float64 `json:"y,omitempty"`
	Name string   `json:"name,omitempty"`
}

// ParseMapCommandPayload unmarshals and validates a map command body.
func ParseMapCommandPayload(data []byte) (*MapCommandPayload, error) {
	var payload MapCommandPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("map command is not valid JSON: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return nil, err
	}
	return &payload, nil
}

// Validate checks the payload schema. Referential checks against a
// loaded floor plan happen later and are warnings, not errors.
func (p *MapCommandPayload) Validate() error {
	if p.FloorID == "" {
		return fmt.Errorf("map command missing floorId")
	}
	if p.Timestamp == "" {
		return fmt.Errorf("map command missing timestamp")
	}
	if _, err := time.Parse(time.RFC3339, p.Timestamp); err != nil {
		return fmt.Errorf("map command timestamp %q is not RFC 3339: %w", p.Timestamp, err)
	}
	for i, r := range p.Rectangles {
		if r.Name == "" {
			return fmt.Errorf("map command rectangle %d missing name", i)
		}
	}
	for i, o := range p.Overlays {
		if err := o.Validate(); err != nil {
			return fmt.Errorf("map command overlay %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks the overlay variant and its position.
func (o *Overlay) Validate() error {
	switch o.Type {
	case OverlayTypeBitmap:
		if o.BitmapID == "" {
			return fmt.Errorf("bitmap overlay missing bitmapId")
		}
	case OverlayTypeText:
		if o.Text == "" {
			return fmt.Errorf("text overlay missing text")
		}
	default:
		return fmt.Errorf("unknown overlay type %q", o.Type)
	}
	return o.Position.Validate()
}

// Validate checks the position variant.
func (p *OverlayPosition) Validate() error {
	switch p.Type {
	case PositionTypeCoordinate:
		if p.X == nil || p.Y == nil {
			return fmt.Errorf("coordinate position missing x or y")
		}
	case PositionTypeRectangle:
		if p.Name == "" {
			return fmt.Errorf("rectangle position missing name")
		}
	default:
		return fmt.Errorf("unknown position type %q", p.Type)
	}
	return nil
}
