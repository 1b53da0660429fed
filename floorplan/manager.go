package floorplan

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"github.com/miwamasa/smolagentUIWrapper/models"
	"go.uber.org/zap"
)

// bitmapCatalog maps the overlay files probed at load time to their id
// and display name.
var bitmapCatalog = []struct {
	file string
	id   string
	name string
}{
	{"arrow_up.bmp", "arrow_up", "上向き矢印"},
	{"arrow_down.bmp", "arrow_down", "下向き矢印"},
	{"arrow_left.bmp", "arrow_left", "左向き矢印"},
	{"arrow_right.bmp", "arrow_right", "右向き矢印"},
}

const geometryTolerance = 1e-6

// LoadError wraps any failure to read or parse a floor-plan source. The
// host treats it as non-fatal and runs with map features disabled.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load floor plan %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// Manager owns the map definition for the process: loading, the
// per-connection definition frame, and referential checks on incoming
// map commands. A Manager without a loaded definition is disabled; all
// methods stay callable.
type Manager struct {
	DataDir string
	Logger  *zap.Logger

	def *models.MapDefinition
}

func NewManager(dataDir string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.L()
	}
	return &Manager{DataDir: dataDir, Logger: logger}
}

// legacyPlan mirrors the persisted rectangles file.
type legacyPlan struct {
	CoordinateSystem models.CoordinateSystem `json:"coordinateSystem"`
	Rectangles       []models.Rectangle      `json:"rectangles"`
}

// LoadLegacyData reads the rectangles file from DataDir and builds a
// single-floor definition around it. All numeric values are kept exactly
// as read; disagreements between stored sizes and corners are flagged
// but never resolved.
func (m *Manager) LoadLegacyData(floorImage, rectanglesFile, floorID, floorName string) (*models.MapDefinition, error) {
	path := filepath.Join(m.DataDir, rectanglesFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	var plan legacyPlan
	if err := json.Unmarshal(data, &plan); err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	if plan.CoordinateSystem.ScaleX == 0 || plan.CoordinateSystem.ScaleY == 0 {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("coordinate system missing or degenerate")}
	}
	m.flagRectangleMismatches(plan.Rectangles)

	def := &models.MapDefinition{
		Floors: []models.Floor{{
			FloorID:          floorID,
			FloorName:        floorName,
			FloorImage:       floorImage,
			CoordinateSystem: plan.CoordinateSystem,
			Rectangles:       plan.Rectangles,
		}},
		Bitmaps: m.scanBitmaps(),
	}
	m.def = def
	m.Logger.Info("floor plan loaded",
		zap.String("floor_id", floorID),
		zap.Int("rectangles", len(plan.Rectangles)),
		zap.Int("bitmaps", len(def.Bitmaps)))
	return def, nil
}

func (m *Manager) flagRectangleMismatches(rectangles []models.Rectangle) {
	for _, r := range rectangles {
		w := math.Abs(r.BottomRight.X - r.TopLeft.X)
		h := math.Abs(r.BottomRight.Y - r.TopLeft.Y)
		if math.Abs(w-r.Width) > geometryTolerance || math.Abs(h-r.Height) > geometryTolerance {
			m.Logger.Warn("rectangle size disagrees with its corners, keeping stored values",
				zap.String("name", r.Name),
				zap.Float64("stored_width", r.Width),
				zap.Float64("corner_width", w),
				zap.Float64("stored_height", r.Height),
				zap.Float64("corner_height", h))
		}
	}
}

// scanBitmaps probes the catalog against the bitmaps directory next to
// DataDir and keeps only files that exist.
func (m *Manager) scanBitmaps() []models.Bitmap {
	dir := filepath.Join(m.DataDir, "..", "bitmaps")
	var bitmaps []models.Bitmap
	for _, entry := range bitmapCatalog {
		path := filepath.Join(dir, entry.file)
		if _, err := os.Stat(path); err != nil {
			continue
		}
		bitmaps = append(bitmaps, models.Bitmap{
			BitmapID:   entry.id,
			BitmapName: entry.name,
			BitmapFile: entry.file,
		})
	}
	return bitmaps
}

// Enabled reports whether a definition is loaded. Nil-safe.
func (m *Manager) Enabled() bool {
	return m != nil && m.def != nil
}

// Definition returns the loaded map definition, or nil when disabled.
func (m *Manager) Definition() *models.MapDefinition {
	if m == nil {
		return nil
	}
	return m.def
}

// DefinitionMessage builds the frame sent once per connection.
func (m *Manager) DefinitionMessage() models.Message {
	return models.Message{Type: models.MessageMapDefinition, Content: m.Definition()}
}

func (m *Manager) findFloor(floorID string) *models.Floor {
	if !m.Enabled() {
		return nil
	}
	for i := range m.def.Floors {
		if m.def.Floors[i].FloorID == floorID {
			return &m.def.Floors[i]
		}
	}
	return nil
}

// ValidateCommand cross-checks a parsed map command against the loaded
// definition. It returns warnings, never errors: unknown references are
// logged by the caller and the command passes through unmodified.
func (m *Manager) ValidateCommand(cmd *models.MapCommandPayload) []string {
	if !m.Enabled() {
		return nil
	}
	var warnings []string

	floor := m.findFloor(cmd.FloorID)
	if floor == nil {
		warnings = append(warnings, fmt.Sprintf("unknown floor %q", cmd.FloorID))
	}

	knownRects := make(map[string]bool)
	if floor != nil {
		for _, r := range floor.Rectangles {
			knownRects[r.Name] = true
		}
	}
	knownBitmaps := make(map[string]bool)
	for _, b := range m.def.Bitmaps {
		knownBitmaps[b.BitmapID] = true
	}

	for _, r := range cmd.Rectangles {
		if floor != nil && !knownRects[r.Name] {
			warnings = append(warnings, fmt.Sprintf("rectangle %q not on floor %q", r.Name, cmd.FloorID))
		}
	}
	for i, o := range cmd.Overlays {
		if o.Type == models.OverlayTypeBitmap && !knownBitmaps[o.BitmapID] {
			warnings = append(warnings, fmt.Sprintf("overlay %d references unknown bitmap %q", i, o.BitmapID))
		}
		if o.Position.Type == models.PositionTypeRectangle && floor != nil && !knownRects[o.Position.Name] {
			warnings = append(warnings, fmt.Sprintf("overlay %d positioned on unknown rectangle %q", i, o.Position.Name))
		}
	}
	return warnings
}

// ResolveOverlayPosition turns an overlay position into a concrete
// virtual coordinate: explicit coordinates pass through, rectangle
// references resolve to the rectangle's center.
func (m *Manager) ResolveOverlayPosition(floorID string, overlay models.Overlay) (models.Coordinate, error) {
	switch overlay.Position.Type {
	case models.PositionTypeCoordinate:
		if overlay.Position.X == nil || overlay.Position.Y == nil {
			return models.Coordinate{}, fmt.Errorf("coordinate position missing x or y")
		}
		return models.Coordinate{X: *overlay.Position.X, Y: *overlay.Position.Y}, nil
	case models.PositionTypeRectangle:
		floor := m.findFloor(floorID)
		if floor == nil {
			return models.Coordinate{}, fmt.Errorf("unknown floor %q", floorID)
		}
		for _, r := range floor.Rectangles {
			if r.Name == overlay.Position.Name {
				return r.Center(), nil
			}
		}
		return models.Coordinate{}, fmt.Errorf("unknown rectangle %q on floor %q", overlay.Position.Name, floorID)
	default:
		return models.Coordinate{}, fmt.Errorf("unknown position type %q", overlay.Position.Type)
	}
}
