package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/miwamasa/smolagentUIWrapper/models"
	"github.com/miwamasa/smolagentUIWrapper/storage"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

const defaultMaxSteps = 6

const geminiSystemPrompt = `You are smolAgent, a data assistant behind a smart-home visualization UI.

Work in steps. At every step reply with ONE fenced python code block that
calls the tools below, then wait for the observation before continuing.

Tools:
- sql_engine("<SQL>"): run a read-only SELECT against the sensor history
  database and observe the rows. The schema:
%s
- draw_arrow(room_name="<room>", direction="<up|down|left|right>"): point an
  arrow at a room on the floor plan.
- clear_arrows(): remove all arrows from the floor plan.
- clear_map(): reset the floor plan to its base state.
- final_answer("<text>"): finish the run with the answer shown to the user.

Rooms on the floor plan: %s.

To restyle the floor plan directly, print one line of the form
MAP_COMMAND: {"floorId": "1F", "timestamp": "<RFC3339 UTC>", "rectangles": [], "overlays": []}

Always end the run with final_answer(...).`

var (
	geminiFencePattern = regexp.MustCompile("(?s)```(?:[A-Za-z][\\w+-]*)?\\n(.*?)```")
	finalAnswerPattern = regexp.MustCompile(`(?s)final_answer\(\s*(?:"""(.*?)"""|"((?:[^"\\]|\\.)*)"|'([^']*)')\s*\)`)
	sqlCallPattern     = regexp.MustCompile(`(?s)sql_engine\(\s*(?:"""(.*?)"""|"((?:[^"\\]|\\.)*)"|'([^']*)')\s*\)`)
)

// generateFunc produces one model reply for the accumulated contents.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error)

// GeminiRunner drives a Gemini-backed code agent: the model emits python
// tool calls step by step, sql_engine calls are executed against the
// measurement store, and the observation is fed back until the model
// produces final_answer or the step limit is hit.
type GeminiRunner struct {
	Model    string
	MaxSteps int
	Store    *storage.MeasurementStore
	Logger   *zap.Logger

	client *genai.Client
	// generate, when set, replaces the client call; tests script it.
	generate     generateFunc
	systemPrompt string
}

func NewGeminiRunner(ctx context.Context, apiKey, model string, store *storage.MeasurementStore, logger *zap.Logger) (*GeminiRunner, error) {
	if logger == nil {
		logger = zap.L()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	schema := "(measurement database unavailable)"
	if store != nil {
		if s, err := store.TableDescription(ctx); err == nil {
			schema = s
		} else {
			logger.Warn("measurement schema unavailable for agent prompt", zap.Error(err))
		}
	}

	return &GeminiRunner{
		Model:        model,
		MaxSteps:     defaultMaxSteps,
		Store:        store,
		Logger:       logger,
		client:       client,
		systemPrompt: fmt.Sprintf(geminiSystemPrompt, schema, strings.Join(models.DefaultRooms(), ", ")),
	}, nil
}

func (r *GeminiRunner) Run(ctx context.Context, userMessage string) (*models.RawAgentOutput, error) {
	contents := []*genai.Content{
		{Role: "user", Parts: []*genai.Part{{Text: userMessage}}},
	}
	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: r.systemPrompt}}},
	}

	var transcript strings.Builder
	var steps []models.CodeStep
	var logs []string

	for step := 1; step <= r.maxSteps(); step++ {
		reply, err := r.generateText(ctx, contents, config)
		if err != nil {
			return nil, fmt.Errorf("gemini generate (step %d): %w", step, err)
		}
		transcript.WriteString(reply)
		if !strings.HasSuffix(reply, "\n") {
			transcript.WriteString("\n")
		}

		code, ok := firstFencedBlock(reply)
		if !ok {
			// No code block means the model answered in prose.
			logs = append(logs, fmt.Sprintf("Step %d: prose reply, taken as final answer", step))
			return r.finish(transcript.String(), strings.TrimSpace(reply), steps, logs), nil
		}
		label := fmt.Sprintf("Step %d", step)
		steps = append(steps, models.CodeStep{Step: label, Code: code})

		if answer, done := findFinalAnswer(code); done {
			logs = append(logs, label+": final_answer")
			return r.finish(transcript.String(), answer, steps, logs), nil
		}

		queries := findSQLCalls(code)
		logs = append(logs, fmt.Sprintf("%s: %d sql call(s)", label, len(queries)))
		observation := r.observe(ctx, queries)
		transcript.WriteString("Observation:\n" + observation + "\n")
		contents = append(contents,
			&genai.Content{Role: "model", Parts: []*genai.Part{{Text: reply}}},
			&genai.Content{Role: "user", Parts: []*genai.Part{{Text: "Observation:\n" + observation}}},
		)
	}

	logs = append(logs, fmt.Sprintf("step limit (%d) reached without final_answer", r.maxSteps()))
	r.Logger.Warn("agent hit step limit", zap.Int("max_steps", r.maxSteps()))
	return r.finish(transcript.String(), "", steps, logs), nil
}

func (r *GeminiRunner) generateText(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	if r.generate != nil {
		return r.generate(ctx, r.Model, contents, config)
	}
	result, err := r.client.Models.GenerateContent(ctx, r.Model, contents, config)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}

func (r *GeminiRunner) maxSteps() int {
	if r.MaxSteps > 0 {
		return r.MaxSteps
	}
	return defaultMaxSteps
}

func (r *GeminiRunner) finish(transcript, answer string, steps []models.CodeStep, logs []string) *models.RawAgentOutput {
	return &models.RawAgentOutput{
		Text:      answer,
		RawOutput: transcript,
		CodeSteps: steps,
		Logs:      logs,
	}
}

// observe executes the sql_engine calls of one step and renders what the
// model gets to see. Query errors are observations too, not failures.
func (r *GeminiRunner) observe(ctx context.Context, queries []string) string {
	if len(queries) == 0 {
		return `Code noted. Use final_answer("...") to finish.`
	}
	if r.Store == nil {
		return "query error: no measurement database configured"
	}
	parts := make([]string, 0, len(queries))
	for _, q := range queries {
		result, err := r.Store.Query(ctx, q)
		if err != nil {
			result = "query error: " + err.Error()
		}
		parts = append(parts, result)
	}
	return strings.Join(parts, "\n\n")
}

func firstFencedBlock(reply string) (string, bool) {
	m := geminiFencePattern.FindStringSubmatch(reply)
	if m == nil {
		return "", false
	}
	code := strings.TrimSpace(m[1])
	return code, code != ""
}

// findFinalAnswer returns the argument of the first final_answer call.
// The empty string is a valid answer, hence the bool.
func findFinalAnswer(code string) (string, bool) {
	m := finalAnswerPattern.FindStringSubmatchIndex(code)
	if m == nil {
		return "", false
	}
	return quotedArg(code, m), true
}

func findSQLCalls(code string) []string {
	var queries []string
	for _, m := range sqlCallPattern.FindAllStringSubmatchIndex(code, -1) {
		queries = append(queries, quotedArg(code, m))
	}
	return queries
}

// quotedArg picks whichever quoting alternative participated in the
// match and unescapes the usual python escapes.
func quotedArg(s string, m []int) string {
	for g := 1; g <= 3; g++ {
		if m[2*g] >= 0 {
			return pythonUnescape(s[m[2*g]:m[2*g+1]])
		}
	}
	return ""
}

var pythonEscapes = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\"`, `"`, `\'`, `'`, `\\`, `\`)

func pythonUnescape(s string) string {
	if !strings.Contains(s, `\`) {
		return s
	}
	return pythonEscapes.Replace(s)
}
