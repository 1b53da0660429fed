package models

// Message is the wire frame for every outbound websocket message.
type Message struct {
	Type    string      `json:"type"`
	Content interface{} `json:"content"`
}

// Frame types that are not tied to a single extracted event.
const (
	MessageMapDefinition   = "map_definition"
	MessageUserMessage     = "user_message"
	MessageDebug           = "debug"
	MessageUnifiedResponse = "unified_response"
	MessageError           = "error"
)

// DebugInfo is the content of the debug frame sent after each processed
// request: the untouched agent output next to what was extracted from it.
type DebugInfo struct {
	AgentResponse *RawAgentOutput `json:"agent_response"`
	ParsedOutputs []Message       `json:"parsed_outputs"`
	OutputCount   int             `json:"output_count"`
}

// ErrorContent is the content of an error frame.
type ErrorContent struct {
	Message string `json:"message"`
}
