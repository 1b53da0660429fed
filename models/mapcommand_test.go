package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMapCommandPayload_Valid(t *testing.T) {
	payload, err := ParseMapCommandPayload([]byte(`{
		"floorId": "1F",
		"timestamp": "2025-01-02T03:04:05Z",
		"rectangles": [
			{"name": "Kitchen", "color": "#00ff00", "strokeOpacity": 1, "fillOpacity": 0.5, "showName": true}
		],
		"overlays": [
			{"type": "bitmap", "bitmapId": "arrow_up", "position": {"type": "rectangle", "name": "Kitchen"}},
			{"type": "text", "text": "32.1C", "position": {"type": "coordinate", "x": 0, "y": 2.5}}
		]
	}`))

	require.NoError(t, err)
	assert.Equal(t, "1F", payload.FloorID)
	require.Len(t, payload.Rectangles, 1)
	assert.Equal(t, "#00ff00", payload.Rectangles[0].Color)
	assert.True(t, payload.Rectangles[0].ShowName)
	require.Len(t, payload.Overlays, 2)
	assert.Equal(t, "arrow_up", payload.Overlays[0].BitmapID)
	assert.Equal(t, "Kitchen", payload.Overlays[0].Position.Name)
	// x: 0 must parse as present, not missing.
	require.NotNil(t, payload.Overlays[1].Position.X)
	assert.Equal(t, 0.0, *payload.Overlays[1].Position.X)
}

func TestParseMapCommandPayload_Invalid(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"not json", `{"floorId": }`},
		{"missing floorId", `{"timestamp": "2025-01-02T03:04:05Z"}`},
		{"missing timestamp", `{"floorId": "1F"}`},
		{"timestamp not RFC3339", `{"floorId": "1F", "timestamp": "yesterday"}`},
		{"rectangle without name", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "rectangles": [{"color": "#fff"}]}`},
		{"unknown overlay type", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "overlays": [{"type": "blink", "position": {"type": "rectangle", "name": "Kitchen"}}]}`},
		{"bitmap overlay without bitmapId", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "overlays": [{"type": "bitmap", "position": {"type": "rectangle", "name": "Kitchen"}}]}`},
		{"text overlay without text", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "overlays": [{"type": "text", "position": {"type": "rectangle", "name": "Kitchen"}}]}`},
		{"coordinate position missing y", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "overlays": [{"type": "text", "text": "hi", "position": {"type": "coordinate", "x": 1}}]}`},
		{"rectangle position without name", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "overlays": [{"type": "text", "text": "hi", "position": {"type": "rectangle"}}]}`},
		{"unknown position type", `{"floorId": "1F", "timestamp": "2025-01-02T03:04:05Z", "overlays": [{"type": "text", "text": "hi", "position": {"type": "polar"}}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseMapCommandPayload([]byte(tc.body))
			assert.Error(t, err)
		})
	}
}

func TestEventFrames_CarryLegacyTypes(t *testing.T) {
	frame := NewTextEvent("hi").Frame()
	assert.Equal(t, "text", frame.Type)
	assert.Equal(t, "hi", frame.Content)

	frame = NewArrowEvent("Kitchen", "up").Frame()
	assert.Equal(t, "arrow", frame.Type)

	frame = NewClearArrowsEvent().Frame()
	assert.Equal(t, "clear_arrows", frame.Type)

	frame = NewMapCommandEvent(MapCommandPayload{FloorID: "1F"}).Frame()
	assert.Equal(t, "map", frame.Type)
	payload, ok := frame.Content.(MapCommandPayload)
	require.True(t, ok)
	assert.Equal(t, "1F", payload.FloorID)
}
