package internal

import (
	"time"

	"github.com/valpere/speechjudge/internal/transcriber"
)

// EvaluationRequest describes one evaluation run, from the CLI or the API.
type EvaluationRequest struct {
	ID        string                   `json:"id"`
	Inputs    []transcriber.AudioInput `json:"inputs"`
	Language  string                   `json:"language,omitempty"`
	Format    string                   `json:"format"`
	Timestamp time.Time                `json:"timestamp"`
}
