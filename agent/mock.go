package agent

import (
	"context"

	"github.com/miwamasa/smolagentUIWrapper/models"
)

// MockRunner echoes the user message without calling any model. It keeps
// the whole pipeline usable when no API key is configured.
type MockRunner struct{}

func (MockRunner) Run(_ context.Context, userMessage string) (*models.RawAgentOutput, error) {
	text := "Echo (mock mode): " + userMessage
	return &models.RawAgentOutput{Text: text, RawOutput: text}, nil
}
