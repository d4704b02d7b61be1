package models

// StepResult is the handler return contract. Handlers never raise; every
// internal fault is reported through Success=false and Error.
type StepResult struct {
	Success bool           `json:"success"`
	Output  map[string]any `json:"output,omitempty"`
	Error   string         `json:"error,omitempty"`

	// NextSteps redirects control flow: step IDs a branching step wants to
	// run next. The executor jumps to the first ID that exists in the
	// workflow and discards the rest.
	NextSteps []string `json:"next_steps,omitempty"`

	// Deferred marks a result whose continuation was handed off, as a delay
	// step does when it parks the rest of the run on the durable queue. The
	// executor ends the current walk here; advancing would run the remaining
	// steps now and again when the queue delivers.
	Deferred bool `json:"deferred,omitempty"`
}

// Succeeded returns a successful result carrying the given output.
func Succeeded(output map[string]any) *StepResult {
	return &StepResult{Success: true, Output: output}
}

// Failed returns a failed result carrying the given error message.
func Failed(message string) *StepResult {
	return &StepResult{Success: false, Error: message}
}
