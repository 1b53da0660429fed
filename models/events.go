package models

// EventKind identifies the renderable type of an extracted event. The
// values double as the legacy frame type on the wire.
type EventKind string

const (
	EventText          EventKind = "text"
	EventCode          EventKind = "code"
	EventImage         EventKind = "image"
	EventArrow         EventKind = "arrow"
	EventClearArrows   EventKind = "clear_arrows"
	EventHighlightRoom EventKind = "highlight_room"
	EventMapCommand    EventKind = "map"
	EventClearMap      EventKind = "clear_map"
	EventError         EventKind = "error"
)

// Event is one typed, UI-renderable item extracted from raw agent output.
// The order of events in a slice is extraction pass order, not the
// chronological order within the agent run.
type Event interface {
	Kind() EventKind
	// Frame returns the legacy per-event wire frame.
	Frame() Message
}

// TextEvent carries the agent's final prose answer.
type TextEvent struct {
	Content string `json:"content"`
}

func NewTextEvent(content string) *TextEvent { return &TextEvent{Content: content} }

func (e *TextEvent) Kind() EventKind { return EventText }
func (e *TextEvent) Frame() Message  { return Message{Type: string(EventText), Content: e.Content} }

// ErrorEvent carries the description of a failed agent invocation.
type ErrorEvent struct {
	Content string `json:"content"`
}

func NewErrorEvent(content string) *ErrorEvent { return &ErrorEvent{Content: content} }

func (e *ErrorEvent) Kind() EventKind { return EventError }
func (e *ErrorEvent) Frame() Message  { return Message{Type: string(EventError), Content: e.Content} }

// CodeEvent is one code block, either executed by the agent or quoted in
// its transcript.
type CodeEvent struct {
	Code     string `json:"code"`
	Step     string `json:"step,omitempty"`
	Language string `json:"language"`
}

func NewCodeEvent(code, step, language string) *CodeEvent {
	return &CodeEvent{Code: code, Step: step, Language: language}
}

func (e *CodeEvent) Kind() EventKind { return EventCode }
func (e *CodeEvent) Frame() Message  { return Message{Type: string(EventCode), Content: e} }

// ImageEvent is a base64-encoded image referenced or embedded by the
// agent. Path is empty for inline data URIs.
type ImageEvent struct {
	Data   string `json:"data"`
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
}

func NewImageEvent(data, format, path string) *ImageEvent {
	return &ImageEvent{Data: data, Format: format, Path: path}
}

func (e *ImageEvent) Kind() EventKind { return EventImage }
func (e *ImageEvent) Frame() Message  { return Message{Type: string(EventImage), Content: e} }

// HighlightRoomEvent lists registry rooms mentioned in the final answer,
// in registry order.
type HighlightRoomEvent struct {
	Rooms []string `json:"rooms"`
}

func NewHighlightRoomEvent(rooms []string) *HighlightRoomEvent {
	return &HighlightRoomEvent{Rooms: rooms}
}

func (e *HighlightRoomEvent) Kind() EventKind { return EventHighlightRoom }
func (e *HighlightRoomEvent) Frame() Message {
	return Message{Type: string(EventHighlightRoom), Content: e}
}

// ArrowEvent places a directional arrow on a room. Direction is one of
// up, down, left, right (already normalized to lowercase).
type ArrowEvent struct {
	Room      string `json:"room"`
	Direction string `json:"direction"`
}

func NewArrowEvent(room, direction string) *ArrowEvent {
	return &ArrowEvent{Room: room, Direction: direction}
}

func (e *ArrowEvent) Kind() EventKind { return EventArrow }
func (e *ArrowEvent) Frame() Message  { return Message{Type: string(EventArrow), Content: e} }

// ClearArrowsEvent removes all arrows from the map. Idempotent.
type ClearArrowsEvent struct{}

func NewClearArrowsEvent() *ClearArrowsEvent { return &ClearArrowsEvent{} }

func (e *ClearArrowsEvent) Kind() EventKind { return EventClearArrows }
func (e *ClearArrowsEvent) Frame() Message {
	return Message{Type: string(EventClearArrows), Content: struct{}{}}
}

// MapCommandEvent carries a validated MAP_COMMAND payload.
type MapCommandEvent struct {
	Payload MapCommandPayload `json:"payload"`
}

func NewMapCommandEvent(payload MapCommandPayload) *MapCommandEvent {
	return &MapCommandEvent{Payload: payload}
}

func (e *MapCommandEvent) Kind() EventKind { return EventMapCommand }
func (e *MapCommandEvent) Frame() Message {
	return Message{Type: string(EventMapCommand), Content: e.Payload}
}

// ClearMapEvent resets the map to its base state. Idempotent.
type ClearMapEvent struct{}

func NewClearMapEvent() *ClearMapEvent { return &ClearMapEvent{} }

func (e *ClearMapEvent) Kind() EventKind { return EventClearMap }
func (e *ClearMapEvent) Frame() Message {
	return Message{Type: string(EventClearMap), Content: struct{}{}}
}
