package parser

import (
	"github.com/miwamasa/smolagentUIWrapper/models"
	"go.uber.org/zap"
)

// Engine turns raw agent output into typed events and folds events into
// unified responses. It is stateless across invocations; every Extract
// call gets a fresh dedup ledger.
type Engine struct {
	// Rooms is the registry matched against the final answer for
	// highlight events.
	Rooms []string
	// ImageRoots is the probe order for image paths mentioned by the
	// agent: "" means the path as given, the rest are prepended
	// directories. First existing file wins.
	ImageRoots []string
	Logger     *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.L()
	}
	return &Engine{
		Rooms:      models.DefaultRooms(),
		ImageRoots: []string{"", ".", "data", ".."},
		Logger:     logger,
	}
}

// extractor is one pass of the pipeline. Passes share the ledger so a
// later pass never re-emits what an earlier one already produced.
type extractor struct {
	name string
	run  func(raw *models.RawAgentOutput, led *ledger) []models.Event
}

// pipeline returns the extraction passes in their fixed order. Event
// order in Extract's result is exactly this order; it is part of the
// protocol, not an implementation detail.
func (e *Engine) pipeline() []extractor {
	return []extractor{
		{"code", e.extractCode},
		{"text", e.extractText},
		{"image", e.extractImages},
		{"highlight_room", e.extractHighlightRooms},
		{"arrow", e.extractArrows},
		{"clear_arrows", e.extractClearArrows},
		{"map", e.extractMapCommand},
		{"clear_map", e.extractClearMap},
	}
}

// Extract runs every pass over the raw output. A pass that finds nothing
// contributes nothing; a pass that hits malformed input logs and moves
// on, it never aborts the others.
func (e *Engine) Extract(raw *models.RawAgentOutput) []models.Event {
	led := newLedger()
	var events []models.Event
	for _, pass := range e.pipeline() {
		found := pass.run(raw, led)
		if len(found) > 0 {
			e.Logger.Debug("extraction pass matched",
				zap.String("pass", pass.name),
				zap.Int("events", len(found)))
		}
		events = append(events, found...)
	}
	return events
}

// combinedOutput joins the transcript and the final answer for passes
// that scan both.
func combinedOutput(raw *models.RawAgentOutput) string {
	return raw.RawOutput + "\n" + raw.Text
}
