package model

// ValidationResult is the outcome of payload validation.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Passed returns a successful validation result.
func Passed() ValidationResult {
	return ValidationResult{Valid: true, Errors: []string{}}
}

// Failed returns a failed validation result carrying errs.
func Failed(errs ...string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// Status is the terminal state of a generation call.
type Status string

const (
	StatusOK    Status = "ok"
	StatusError Status = "error"
)

// Timings holds per-stage durations in milliseconds.
type Timings map[string]int64

// GenerationResult is returned by every generation call. Failures are
// reported through Status and Errors, never as a Go error.
type GenerationResult struct {
	Status       Status           `json:"status"`
	Source       Source           `json:"source"`
	Mode         Mode             `json:"mode"`
	UserID       string           `json:"user_id"`
	TasksGroupID string           `json:"tasks_group_id,omitempty"`
	Model        string           `json:"model,omitempty"`
	Tasks        []Task           `json:"tasks,omitempty"`
	Validation   ValidationResult `json:"validation"`
	Timings      Timings          `json:"timings"`
	Errors       []string         `json:"errors,omitempty"`
	RawOutput    string           `json:"raw_output,omitempty"`
}

// OK reports whether the call produced a validated payload.
func (r *GenerationResult) OK() bool {
	return r != nil && r.Status == StatusOK
}
