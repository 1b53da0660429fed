package models

// AgentName labels every unified response with the producing agent.
const AgentName = "smolAgent"

// UnifiedResponse is the single aggregated document the visualization
// client renders for one processed request.
type UnifiedResponse struct {
	Message string            `json:"message"`
	Agent   string            `json:"agent"`
	Images  []ImageAttachment `json:"images,omitempty"`
	Map2D   *MapView          `json:"2d_map,omitempty"`
}

// ImageAttachment is one image in a unified response. Type is the file
// format (png, jpg, ...).
type ImageAttachment struct {
	Title string `json:"title"`
	Data  string `json:"data"`
	Type  string `json:"type"`
}

// MapView is the 2d_map section of a unified response.
type MapView struct {
	Floor string  `json:"floor"`
	Area  MapArea `json:"area"`
}

// MapArea wraps the drawable map content. Type is always "map".
type MapArea struct {
	Type    string         `json:"type"`
	Content MapAreaContent `json:"content"`
}

// MapAreaContent is what the client draws on the floor plan.
type MapAreaContent struct {
	Timestamp  string             `json:"timestamp"`
	Rectangles []CommandRectangle `json:"rectangles"`
	Overlays   []Overlay          `json:"overlays"`
}
