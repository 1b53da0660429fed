package floorplan

import "github.com/miwamasa/smolagentUIWrapper/models"

// PixelToVirtual converts a floor-image pixel to virtual map
// coordinates. Each axis scales independently around the topLeft anchor;
// scaleX/scaleY are virtual units per pixel.
func PixelToVirtual(cs models.CoordinateSystem, px, py float64) (x, y float64) {
	x = cs.TopLeft.X + (px-cs.TopLeft.PX)*cs.ScaleX
	y = cs.TopLeft.Y + (py-cs.TopLeft.PY)*cs.ScaleY
	return x, y
}

// VirtualToPixel is the inverse of PixelToVirtual. The caller must not
// pass a degenerate coordinate system (zero scale); LoadLegacyData
// rejects those.
func VirtualToPixel(cs models.CoordinateSystem, x, y float64) (px, py float64) {
	px = cs.TopLeft.PX + (x-cs.TopLeft.X)/cs.ScaleX
	py = cs.TopLeft.PY + (y-cs.TopLeft.Y)/cs.ScaleY
	return px, py
}
