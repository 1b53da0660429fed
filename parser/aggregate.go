package parser

import (
	"strings"
	"time"

	"github.com/miwamasa/smolagentUIWrapper/models"
)

const (
	// Style applied to rectangles synthesized from room highlights.
	highlightColor         = "#ff0000"
	highlightStrokeOpacity = 1.0
	highlightFillOpacity   = 0.3

	// Title for images that arrived without a path (inline data URIs).
	inlineImageTitle = "generated_image"

	// Message of last resort when neither events nor the raw text
	// produced any prose.
	emptyMessageFallback = "(no response)"
)

// timeNow is swapped out in tests for deterministic timestamps.
var timeNow = time.Now

// Aggregate folds an ordered event slice into the single response
// document the client renders. It never fails: malformed inputs were
// already filtered during extraction.
func (e *Engine) Aggregate(raw *models.RawAgentOutput, events []models.Event) *models.UnifiedResponse {
	resp := &models.UnifiedResponse{Agent: models.AgentName}

	for _, ev := range events {
		switch t := ev.(type) {
		case *models.TextEvent:
			resp.Message = t.Content
		case *models.ErrorEvent:
			resp.Message = t.Content
		case *models.CodeEvent:
			block := fenceCodeBlock(t)
			if resp.Message == "" {
				resp.Message = block
			} else {
				resp.Message += "\n\n" + block
			}
		case *models.ImageEvent:
			title := t.Path
			if title == "" {
				title = inlineImageTitle
			}
			resp.Images = append(resp.Images, models.ImageAttachment{
				Title: title,
				Data:  t.Data,
				Type:  t.Format,
			})
		case *models.MapCommandEvent:
			// Map commands always win; they overwrite a highlight view
			// and each other (last one stands).
			resp.Map2D = mapViewFromCommand(&t.Payload)
		case *models.HighlightRoomEvent:
			if resp.Map2D == nil {
				resp.Map2D = mapViewFromRooms(t.Rooms)
			}
		}
	}

	if resp.Message == "" {
		if raw != nil && strings.TrimSpace(raw.Text) != "" {
			resp.Message = raw.Text
		} else {
			resp.Message = emptyMessageFallback
		}
	}
	return resp
}

// fenceCodeBlock renders a code event as a fenced markdown block. The
// fence is labelled with the step tag when the block was executed,
// otherwise with its language.
func fenceCodeBlock(ev *models.CodeEvent) string {
	label := ev.Step
	if label == "" {
		label = ev.Language
	}
	return "```" + label + "\n" + strings.TrimRight(ev.Code, "\n") + "\n```"
}

func mapViewFromCommand(payload *models.MapCommandPayload) *models.MapView {
	rectangles := payload.Rectangles
	if rectangles == nil {
		rectangles = []models.CommandRectangle{}
	}
	overlays := payload.Overlays
	if overlays == nil {
		overlays = []models.Overlay{}
	}
	return &models.MapView{
		Floor: payload.FloorID,
		Area: models.MapArea{
			Type: "map",
			Content: models.MapAreaContent{
				Timestamp:  payload.Timestamp,
				Rectangles: rectangles,
				Overlays:   overlays,
			},
		},
	}
}

// mapViewFromRooms synthesizes a highlight view on the default floor,
// one rectangle per room in the fixed highlight style.
func mapViewFromRooms(rooms []string) *models.MapView {
	rectangles := make([]models.CommandRectangle, 0, len(rooms))
	for _, room := range rooms {
		rectangles = append(rectangles, models.CommandRectangle{
			Name:          room,
			Color:         highlightColor,
			StrokeOpacity: highlightStrokeOpacity,
			FillOpacity:   highlightFillOpacity,
			ShowName:      true,
		})
	}
	return &models.MapView{
		Floor: models.DefaultFloorID,
		Area: models.MapArea{
			Type: "map",
			Content: models.MapAreaContent{
				Timestamp:  timeNow().UTC().Format(time.RFC3339),
				Rectangles: rectangles,
				Overlays:   []models.Overlay{},
			},
		},
	}
}
