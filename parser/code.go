package parser

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/miwamasa/smolagentUIWrapper/models"
)

var (
	// One scan pairs opening and closing fences in document order; the
	// optional tag decides which pass a block belongs to.
	fencePattern = regexp.MustCompile("(?s)```([A-Za-z][\\w+-]*)?\\n(.*?)```")

	labeledCodePattern = regexp.MustCompile(`(?:Executing code:|Running code:|Code:)[ \t]*\n((?:[ \t]+[^\n]+\n?)+)`)
)

type fencedBlock struct {
	language string
	code     string
}

func fencedBlocks(s string) (tagged, plain []fencedBlock) {
	for _, m := range fencePattern.FindAllStringSubmatch(s, -1) {
		code := strings.TrimSpace(m[2])
		if code == "" {
			continue
		}
		if m[1] != "" {
			tagged = append(tagged, fencedBlock{language: m[1], code: code})
		} else {
			plain = append(plain, fencedBlock{code: code})
		}
	}
	return tagged, plain
}

// extractCode collects code blocks from four sources, in priority order:
// executed code steps, fenced transcript blocks with a language tag,
// "Code:"-labelled indented blocks, and untagged fenced blocks. The
// ledger keys on trimmed code text so the same block never appears twice.
func (e *Engine) extractCode(raw *models.RawAgentOutput, led *ledger) []models.Event {
	var events []models.Event

	// Executed steps are authoritative: emitted verbatim with their step
	// label, identities marked so the transcript passes below cannot
	// re-emit the same block.
	for i, step := range raw.CodeSteps {
		label := step.Step
		if label == "" {
			label = fmt.Sprintf("Step %d", i+1)
		}
		led.mark(models.EventCode, strings.TrimSpace(step.Code))
		events = append(events, models.NewCodeEvent(step.Code, label, "python"))
	}

	tagged, plain := fencedBlocks(raw.RawOutput)
	for _, block := range tagged {
		if !led.mark(models.EventCode, block.code) {
			continue
		}
		events = append(events, models.NewCodeEvent(block.code, "", block.language))
	}

	for _, m := range labeledCodePattern.FindAllStringSubmatch(raw.RawOutput, -1) {
		code := strings.TrimSpace(m[1])
		if code == "" || !led.mark(models.EventCode, code) {
			continue
		}
		events = append(events, models.NewCodeEvent(code, "", "python"))
	}

	for _, block := range plain {
		if !led.mark(models.EventCode, block.code) {
			continue
		}
		events = append(events, models.NewCodeEvent(block.code, "", "python"))
	}

	return events
}

// extractText passes the final answer through as a single event. A
// failed invocation becomes an error event instead.
func (e *Engine) extractText(raw *models.RawAgentOutput, _ *ledger) []models.Event {
	if raw.Failed {
		msg := raw.Text
		if msg == "" {
			msg = raw.RawOutput
		}
		return []models.Event{models.NewErrorEvent(msg)}
	}
	if strings.TrimSpace(raw.Text) == "" {
		return nil
	}
	return []models.Event{models.NewTextEvent(raw.Text)}
}
