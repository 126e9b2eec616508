package domain

import "time"

// DiagnosticStatus indicates whether one converter-environment check passed.
type DiagnosticStatus string

const (
	DiagnosticStatusPass DiagnosticStatus = "pass"
	DiagnosticStatusFail DiagnosticStatus = "fail"
)

// DiagnosticItem is the result of one startup check, such as resolving the
// dnglab executable or probing the output folder for write access.
// FixAvailable marks items the app can remediate itself.
type DiagnosticItem struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       DiagnosticStatus `json:"status"`
	Message      string           `json:"message"`
	Hint         string           `json:"hint,omitempty"`
	FixAvailable bool             `json:"fixAvailable,omitempty"`
}

// DiagnosticReport aggregates the converter and output-folder checks.
// HasFailures gates whether a batch should be allowed to start.
type DiagnosticReport struct {
	GeneratedAt time.Time        `json:"generatedAt"`
	HasFailures bool             `json:"hasFailures"`
	Items       []DiagnosticItem `json:"items"`
}
