package transcriber

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/text/language"
)

// DefaultModel is the speech model used when none is configured.
const DefaultModel = "canary_1b_flash"

// Device selects where the speech model runs.
type Device string

const (
	DeviceAuto Device = "auto"
	DeviceCPU  Device = "cpu"
	DeviceCUDA Device = "cuda"
)

// ParseDevice accepts "auto", "cpu", "cuda" and "gpu" (alias of cuda).
// An empty string means auto.
func ParseDevice(s string) (Device, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(DeviceAuto):
		return DeviceAuto, nil
	case string(DeviceCPU):
		return DeviceCPU, nil
	case string(DeviceCUDA), "gpu":
		return DeviceCUDA, nil
	default:
		return "", fmt.Errorf("unknown device %q (supported: auto, cpu, cuda)", s)
	}
}

// AudioInput is one audio source to transcribe.
type AudioInput struct {
	// ID keys the transcribed text in Segments. Empty means the zero-padded
	// position of the input.
	ID   string `json:"id"`
	Path string `json:"path"`
}

// Options are the per-call transcription settings understood by all engines.
type Options struct {
	// Language is a BCP 47 hint such as "en" or "en-US". Empty lets the
	// engine detect the language.
	Language string `json:"language,omitempty"`
	// SampleRate in Hz the audio should be resampled to. 0 keeps the
	// engine default.
	SampleRate int `json:"sample_rate,omitempty"`
	// Timestamps requests segment timings in the raw output.
	Timestamps bool `json:"timestamps,omitempty"`
}

const (
	minSampleRate = 8000
	maxSampleRate = 48000
)

// Validate checks the language tag and sample rate.
func (o Options) Validate() error {
	if o.Language != "" {
		if _, err := language.Parse(o.Language); err != nil {
			return fmt.Errorf("%w: language %q: %v", ErrInvalidOptions, o.Language, err)
		}
	}
	if o.SampleRate != 0 && (o.SampleRate < minSampleRate || o.SampleRate > maxSampleRate) {
		return fmt.Errorf("%w: sample rate %d outside %d..%d", ErrInvalidOptions, o.SampleRate, minSampleRate, maxSampleRate)
	}
	return nil
}

// BaseLanguage returns the ISO 639-1 code of the language hint ("en" for
// "en-US"), or "" when no valid hint is set.
func (o Options) BaseLanguage() string {
	return BaseLanguage(o.Language)
}

// BaseLanguage reduces a BCP 47 tag to its base language code.
func BaseLanguage(tag string) string {
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, _ := t.Base()
	return base.String()
}

// EngineRequest is what the adapter hands to an engine for one input.
type EngineRequest struct {
	Model  string
	Device Device
	Options
}

// Segment is a time-aligned piece of a single input's transcript.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Result is an engine's output for one audio input.
type Result struct {
	Input    AudioInput `json:"input"`
	Text     string     `json:"text"`
	Language string     `json:"language,omitempty"`
	Duration float64    `json:"duration,omitempty"`
	Segments []Segment  `json:"segments,omitempty"`
}

// RawOutput is everything the engine returned for a Transcribe call, in
// input order.
type RawOutput struct {
	Engine  string   `json:"engine"`
	Model   string   `json:"model"`
	Device  Device   `json:"device"`
	Results []Result `json:"results"`
}

// Segments maps a segment id to its transcribed text.
type Segments map[string]string

// minIDWidth is the smallest zero padding of a positional segment id.
const minIDWidth = 4

// PositionalID returns the default id of input i out of n. Ids are zero
// padded to the width of n-1 (at least four digits), so lexicographic order
// equals input order for any n.
func PositionalID(i, n int) string {
	width := len(strconv.Itoa(n - 1))
	if width < minIDWidth {
		width = minIDWidth
	}
	return fmt.Sprintf("%0*d", width, i)
}

// IDs returns the segment ids in lexicographic order.
func (s Segments) IDs() []string {
	ids := make([]string, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Engine is a speech-to-text backend.
type Engine interface {
	Name() string
	IsAvailable(ctx context.Context) bool
	Transcribe(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error)
}

// AcceleratorProbe is implemented by engines that can report whether the
// host they run on has a usable accelerator.
type AcceleratorProbe interface {
	HasAccelerator(ctx context.Context) (bool, error)
}
