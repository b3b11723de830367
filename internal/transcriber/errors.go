package transcriber

import (
	"errors"
	"fmt"
)

var (
	ErrNoAudio          = errors.New("no audio inputs")
	ErrEmptyPath        = errors.New("audio input has no path")
	ErrDuplicateSegment = errors.New("duplicate segment id")
	ErrInvalidOptions   = errors.New("invalid transcription options")
	ErrNoEngine         = errors.New("transcription engine is required")
)

// TranscriptionError reports an engine failure on one input. The engine's
// own error is kept as the cause.
type TranscriptionError struct {
	Engine string
	Input  AudioInput
	Err    error
}

func (e *TranscriptionError) Error() string {
	return fmt.Sprintf("transcription failed (%s, segment %q, %s): %v", e.Engine, e.Input.ID, e.Input.Path, e.Err)
}

func (e *TranscriptionError) Unwrap() error { return e.Err }
