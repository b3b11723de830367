// Package transcriber wraps an external speech-to-text engine behind a
// single call that turns audio inputs into a map of segment id to text.
package transcriber

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/valpere/speechjudge/internal/logging"
)

// Adapter binds an engine to a model and a resolved device. It holds no
// mutable state and is safe for concurrent use when the engine is.
type Adapter struct {
	engine Engine
	model  string
	device Device
	log    zerolog.Logger
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// New creates an Adapter. An empty model selects DefaultModel. The device
// is resolved once, here: if the engine implements AcceleratorProbe it is
// asked whether an accelerator exists, and cuda falls back to cpu without
// one.
func New(ctx context.Context, engine Engine, model string, device Device, opts ...Option) (*Adapter, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	if model == "" {
		model = DefaultModel
	}
	if device == "" {
		device = DeviceAuto
	}

	a := &Adapter{
		engine: engine,
		model:  model,
		log:    logging.Component("transcriber"),
	}
	for _, o := range opts {
		o(a)
	}

	probe, _ := engine.(AcceleratorProbe)
	a.device = ResolveDevice(ctx, device, probe, a.log)

	a.log.Debug().
		Str("engine", engine.Name()).
		Str("model", a.model).
		Str("requested_device", string(device)).
		Str("device", string(a.device)).
		Msg("transcriber ready")

	return a, nil
}

// Engine returns the wrapped engine.
func (a *Adapter) Engine() Engine { return a.engine }

// Model returns the configured model name.
func (a *Adapter) Model() string { return a.model }

// Device returns the resolved device.
func (a *Adapter) Device() Device { return a.device }

// Transcribe runs the engine over every input in order. The first engine
// failure aborts the call with a *TranscriptionError; no partial segments
// are returned.
func (a *Adapter) Transcribe(ctx context.Context, inputs []AudioInput, opts Options) (Segments, *RawOutput, error) {
	if len(inputs) == 0 {
		return nil, nil, ErrNoAudio
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	normalized, err := normalizeInputs(inputs)
	if err != nil {
		return nil, nil, err
	}

	req := EngineRequest{Model: a.model, Device: a.device, Options: opts}
	raw := &RawOutput{
		Engine:  a.engine.Name(),
		Model:   a.model,
		Device:  a.device,
		Results: make([]Result, 0, len(normalized)),
	}
	segments := make(Segments, len(normalized))

	for _, in := range normalized {
		start := time.Now()
		res, err := a.engine.Transcribe(ctx, in, req)
		if err != nil {
			return nil, nil, &TranscriptionError{Engine: a.engine.Name(), Input: in, Err: err}
		}
		if res == nil {
			return nil, nil, &TranscriptionError{Engine: a.engine.Name(), Input: in, Err: fmt.Errorf("engine returned no result")}
		}
		res.Input = in

		a.log.Info().
			Str("segment", in.ID).
			Int("chars", len(res.Text)).
			Float64("audio_sec", res.Duration).
			Int64(logging.FieldDuration, logging.Since(start)).
			Msg("segment transcribed")

		segments[in.ID] = res.Text
		raw.Results = append(raw.Results, *res)
	}

	return segments, raw, nil
}

func normalizeInputs(inputs []AudioInput) ([]AudioInput, error) {
	out := make([]AudioInput, len(inputs))
	seen := make(map[string]bool, len(inputs))

	for i, in := range inputs {
		if strings.TrimSpace(in.Path) == "" {
			return nil, fmt.Errorf("%w (input %d)", ErrEmptyPath, i)
		}
		if in.ID == "" {
			in.ID = PositionalID(i, len(inputs))
		}
		if seen[in.ID] {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateSegment, in.ID)
		}
		seen[in.ID] = true
		out[i] = in
	}
	return out, nil
}
