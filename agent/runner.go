package agent

import (
	"context"

	"github.com/miwamasa/smolagentUIWrapper/models"
)

// Runner is one external agent. A Run covers a single user message and
// returns everything captured from the invocation. Implementations must
// honor ctx; the session wraps every run in a timeout.
type Runner interface {
	Run(ctx context.Context, userMessage string) (*models.RawAgentOutput, error)
}

// FailedOutput shapes an invocation error so the normal extraction and
// aggregation path still produces a renderable response.
func FailedOutput(err error) *models.RawAgentOutput {
	return &models.RawAgentOutput{
		Text:      "Error running agent: " + err.Error(),
		RawOutput: err.Error(),
		Failed:    true,
	}
}
