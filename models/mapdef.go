package models

// DefaultFloorID is the floor used when a map view is synthesized
// without an explicit floor (room highlights).
const DefaultFloorID = "1F"

// DefaultRooms returns the fixed room registry used for highlight
// matching and for the agent's tool documentation.
func DefaultRooms() []string {
	return []string{"Room1", "Room2", "Bathroom", "Kitchen", "Toilet", "Level1", "Level2"}
}

// MapDefinition is the complete floor-plan description sent to the
// client once per connection.
type MapDefinition struct {
	Floors  []Floor  `json:"floors"`
	Bitmaps []Bitmap `json:"bitmaps"`
}

// Floor is one floor image with its coordinate system and named regions.
type Floor struct {
	FloorID          string           `json:"floorId"`
	FloorName        string           `json:"floorName"`
	FloorImage       string           `json:"floorImage"`
	CoordinateSystem CoordinateSystem `json:"coordinateSystem"`
	Rectangles       []Rectangle      `json:"rectangles"`
}

// CoordinateSystem anchors the floor image to virtual map coordinates.
// The two axes scale independently; this is not a general affine
// transform.
type CoordinateSystem struct {
	TopLeft     AnchorPoint `json:"topLeft"`
	BottomRight AnchorPoint `json:"bottomRight"`
	ScaleX      float64     `json:"scaleX"`
	ScaleY      float64     `json:"scaleY"`
}

// AnchorPoint ties one image pixel (px, py) to one virtual point (x, y).
type AnchorPoint struct {
	PX float64 `json:"px"`
	PY float64 `json:"py"`
	X  float64 `json:"x"`
	Y  float64 `json:"y"`
}

// Rectangle is a named region in virtual coordinates. Width and Height
// are stored redundantly with the corners and are preserved as read,
// never recomputed.
type Rectangle struct {
	Name        string     `json:"name"`
	TopLeft     Coordinate `json:"topLeft"`
	BottomRight Coordinate `json:"bottomRight"`
	Width       float64    `json:"width"`
	Height      float64    `json:"height"`
}

// Center returns the rectangle's midpoint, computed from the corners.
func (r Rectangle) Center() Coordinate {
	return Coordinate{
		X: (r.TopLeft.X + r.BottomRight.X) / 2,
		Y: (r.TopLeft.Y + r.BottomRight.Y) / 2,
	}
}

// Coordinate is a point in virtual map coordinates.
type Coordinate struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Bitmap is an overlay image available to map commands.
type Bitmap struct {
	BitmapID   string `json:"bitmapId"`
	BitmapName string `json:"bitmapName"`
	BitmapFile string `json:"bitmapFile"`
}
