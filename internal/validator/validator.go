// Package validator checks that a transcript is in the language the speech
// was expected to be delivered in.
package validator

import (
	"fmt"
	"strings"

	"github.com/valpere/speechjudge/internal/detector"
	"github.com/valpere/speechjudge/internal/transcriber"
)

// minValidationLength is the minimum rune count required to attempt language detection.
// Shorter texts produce unreliable results and are accepted without validation.
const minValidationLength = 20

// MismatchError reports a transcript whose detected language differs from the
// language hint.
type MismatchError struct {
	Expected string
	Detected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("expected %s speech but transcript looks like %s", e.Expected, e.Detected)
}

// Validator compares transcripts against language hints.
// The underlying language detector is expensive to build; reuse the instance.
type Validator struct {
	det *detector.Detector
}

// New creates a Validator backed by the lingua-go language detector.
func New(det *detector.Detector) *Validator {
	if det == nil {
		det = detector.New()
	}
	return &Validator{det: det}
}

// Transcript detects the transcript language and compares it with hint, a
// BCP 47 tag. The detected ISO 639-1 code is returned whenever detection
// succeeds, even on mismatch.
//
// An empty hint, a short transcript or an undetectable language pass without
// error. A mismatch returns *MismatchError.
func (v *Validator) Transcript(text, hint string) (string, error) {
	text = strings.TrimSpace(text)
	if len([]rune(text)) < minValidationLength {
		return "", nil
	}

	detected, ok := v.det.DetectISO(text)
	if !ok {
		return "", nil
	}

	expected := transcriber.BaseLanguage(hint)
	if expected == "" {
		return detected, nil
	}
	if !strings.EqualFold(detected, expected) {
		return detected, &MismatchError{Expected: expected, Detected: detected}
	}
	return detected, nil
}
