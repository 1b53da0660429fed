package models

// RawAgentOutput is everything captured from one agent invocation. It is
// immutable once produced; the extraction pipeline only reads it.
type RawAgentOutput struct {
	// Text is the agent's final natural-language answer.
	Text string `json:"text"`
	// RawOutput is the full free-form transcript of the run (model
	// replies, tool observations, stray markers).
	RawOutput string `json:"raw_output"`
	// CodeSteps are the code blocks the agent actually executed, in
	// execution order. They take priority over anything re-printed
	// inside RawOutput.
	CodeSteps []CodeStep `json:"code_steps,omitempty"`
	// Logs are human-readable step summaries.
	Logs []string `json:"logs,omitempty"`
	// Failed marks an invocation that ended in an error; Text then
	// carries the error description.
	Failed bool `json:"error,omitempty"`
}

// CodeStep is one executed code block with its step label ("Step 1", ...).
type CodeStep struct {
	Step string `json:"step"`
	Code string `json:"code"`
}
