package agent

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/miwamasa/smolagentUIWrapper/storage"
)

func TestFirstFencedBlock(t *testing.T) {
	code, ok := firstFencedBlock("thinking first\n```python\nsql_engine(\"SELECT 1\")\n```\nmore prose")
	require.True(t, ok)
	assert.Equal(t, `sql_engine("SELECT 1")`, code)

	_, ok = firstFencedBlock("no code at all")
	assert.False(t, ok)

	// An empty block is not a step.
	_, ok = firstFencedBlock("```python\n\n```")
	assert.False(t, ok)
}

func TestFindFinalAnswer_QuoteVariants(t *testing.T) {
	answer, ok := findFinalAnswer(`final_answer("The Kitchen is warmest.")`)
	require.True(t, ok)
	assert.Equal(t, "The Kitchen is warmest.", answer)

	answer, ok = findFinalAnswer(`final_answer('single quoted')`)
	require.True(t, ok)
	assert.Equal(t, "single quoted", answer)

	answer, ok = findFinalAnswer(`final_answer("""multi
line""")`)
	require.True(t, ok)
	assert.Equal(t, "multi\nline", answer)

	// Escapes inside double quotes are unescaped.
	answer, ok = findFinalAnswer(`final_answer("It is \"hot\"\nreally")`)
	require.True(t, ok)
	assert.Equal(t, "It is \"hot\"\nreally", answer)

	// The empty answer is still an answer.
	answer, ok = findFinalAnswer(`final_answer("")`)
	require.True(t, ok)
	assert.Equal(t, "", answer)

	_, ok = findFinalAnswer(`sql_engine("SELECT 1")`)
	assert.False(t, ok)
}

func TestFindSQLCalls(t *testing.T) {
	code := `a = sql_engine("SELECT 1")
b = sql_engine("""SELECT roomname
FROM measurement""")
c = sql_engine('SELECT 3')
final_answer("done")`

	queries := findSQLCalls(code)

	require.Len(t, queries, 3)
	assert.Equal(t, "SELECT 1", queries[0])
	assert.Equal(t, "SELECT roomname\nFROM measurement", queries[1])
	assert.Equal(t, "SELECT 3", queries[2])
}

func TestPythonUnescape(t *testing.T) {
	assert.Equal(t, "line1\nline2", pythonUnescape(`line1\nline2`))
	assert.Equal(t, "a\tb", pythonUnescape(`a\tb`))
	assert.Equal(t, `say "hi"`, pythonUnescape(`say \"hi\"`))
	assert.Equal(t, `C:\temp`, pythonUnescape(`C:\\temp`))
	assert.Equal(t, "untouched", pythonUnescape("untouched"))
}

func TestObserve(t *testing.T) {
	store, err := storage.OpenMeasurementStore(filepath.Join(t.TempDir(), "m.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()

	r := &GeminiRunner{Store: store, Logger: zap.NewNop()}

	// No tool calls: nudge the model toward final_answer.
	obs := r.observe(context.Background(), nil)
	assert.Contains(t, obs, "final_answer")

	obs = r.observe(context.Background(), []string{"SELECT 1 AS one"})
	assert.Equal(t, "one\n1", obs)

	// A failing query is an observation, not a run failure.
	obs = r.observe(context.Background(), []string{"DROP TABLE measurement"})
	assert.Contains(t, obs, "query error:")

	r.Store = nil
	obs = r.observe(context.Background(), []string{"SELECT 1"})
	assert.Contains(t, obs, "no measurement database")
}

func TestMaxSteps_Default(t *testing.T) {
	r := &GeminiRunner{}
	assert.Equal(t, defaultMaxSteps, r.maxSteps())

	r.MaxSteps = 2
	assert.Equal(t, 2, r.maxSteps())
}

func TestRun_ScriptedToolLoop(t *testing.T) {
	store, err := storage.OpenMeasurementStore(filepath.Join(t.TempDir(), "m.db"), zap.NewNop())
	require.NoError(t, err)
	defer store.Close()
	csvPath := filepath.Join(t.TempDir(), "rows.csv")
	require.NoError(t, os.WriteFile(csvPath,
		[]byte("Brightness,Humidity,SetpointHistory,Temperature,roomname,date\n"+
			"123.0,45.2,22.0,21.5,Kitchen,2015-02-07 00:00:00\n"), 0o644))
	_, err = store.LoadCSV(context.Background(), csvPath)
	require.NoError(t, err)

	replies := []string{
		"Checking the data.\n```python\nrows = sql_engine(\"SELECT roomname, Temperature FROM measurement\")\n```",
		"```python\nfinal_answer(\"Kitchen is at 21.5\")\n```",
	}
	var calls [][]*genai.Content
	r := &GeminiRunner{
		Model:  "scripted",
		Store:  store,
		Logger: zap.NewNop(),
		generate: func(_ context.Context, _ string, contents []*genai.Content, _ *genai.GenerateContentConfig) (string, error) {
			calls = append(calls, contents)
			return replies[len(calls)-1], nil
		},
	}

	out, err := r.Run(context.Background(), "which room is warmest?")

	require.NoError(t, err)
	assert.Equal(t, "Kitchen is at 21.5", out.Text)
	assert.False(t, out.Failed)
	require.Len(t, out.CodeSteps, 2)
	assert.Equal(t, "Step 1", out.CodeSteps[0].Step)
	assert.Contains(t, out.CodeSteps[0].Code, "sql_engine")
	assert.Equal(t, "Step 2", out.CodeSteps[1].Step)

	// The second round trip carries the model reply and the query
	// observation back to the model.
	require.Len(t, calls, 2)
	require.Len(t, calls[1], 3)
	assert.Equal(t, "model", calls[1][1].Role)
	assert.Contains(t, calls[1][2].Parts[0].Text, "Kitchen | 21.5")

	assert.Contains(t, out.RawOutput, "Observation:\nroomname | Temperature\nKitchen | 21.5")
}

func TestRun_ProseReplyIsFinal(t *testing.T) {
	r := &GeminiRunner{
		Model:  "scripted",
		Logger: zap.NewNop(),
		generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
			return "No code needed, the answer is 42.", nil
		},
	}

	out, err := r.Run(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "No code needed, the answer is 42.", out.Text)
	assert.Empty(t, out.CodeSteps)
}

func TestRun_StepLimit(t *testing.T) {
	r := &GeminiRunner{
		Model:    "scripted",
		MaxSteps: 1,
		Logger:   zap.NewNop(),
		generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
			return "```python\nx = 1\n```", nil
		},
	}

	out, err := r.Run(context.Background(), "hi")

	require.NoError(t, err)
	assert.Equal(t, "", out.Text)
	require.Len(t, out.CodeSteps, 1)
}

func TestRun_GenerateErrorPropagates(t *testing.T) {
	r := &GeminiRunner{
		Model:  "scripted",
		Logger: zap.NewNop(),
		generate: func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (string, error) {
			return "", errors.New("quota exhausted")
		},
	}

	_, err := r.Run(context.Background(), "hi")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota exhausted")
}
