package transcriber

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
)

type mockEngine struct {
	nameVal        string
	transcribeFunc func(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error)
	probeFunc      func(ctx context.Context) (bool, error)
	callCount      atomic.Int32
	lastReq        EngineRequest
}

func (m *mockEngine) Name() string {
	if m.nameVal != "" {
		return m.nameVal
	}
	return "mock"
}

func (m *mockEngine) IsAvailable(ctx context.Context) bool { return true }

func (m *mockEngine) Transcribe(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error) {
	m.callCount.Add(1)
	m.lastReq = req
	if m.transcribeFunc != nil {
		return m.transcribeFunc(ctx, in, req)
	}
	return &Result{Text: "text of " + in.Path}, nil
}

// probingEngine adds AcceleratorProbe to mockEngine.
type probingEngine struct {
	mockEngine
}

func (p *probingEngine) HasAccelerator(ctx context.Context) (bool, error) {
	return p.probeFunc(ctx)
}

func newTestAdapter(t *testing.T, e Engine, model string, device Device) *Adapter {
	t.Helper()
	a, err := New(context.Background(), e, model, device, WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return a
}

func TestNew_NilEngine(t *testing.T) {
	_, err := New(context.Background(), nil, "", DeviceAuto)
	if !errors.Is(err, ErrNoEngine) {
		t.Errorf("expected ErrNoEngine, got %v", err)
	}
}

func TestNew_Defaults(t *testing.T) {
	a := newTestAdapter(t, &mockEngine{}, "", "")

	if a.Model() != DefaultModel {
		t.Errorf("expected model %q, got %q", DefaultModel, a.Model())
	}
	if a.Device() != DeviceCPU {
		t.Errorf("expected cpu without a probe, got %q", a.Device())
	}
}

func TestNew_AutoUsesAccelerator(t *testing.T) {
	e := &probingEngine{}
	e.probeFunc = func(ctx context.Context) (bool, error) { return true, nil }

	a := newTestAdapter(t, e, "canary_1b_flash", DeviceAuto)
	if a.Device() != DeviceCUDA {
		t.Errorf("expected cuda, got %q", a.Device())
	}
}

func TestNew_CUDAFallsBackToCPU(t *testing.T) {
	e := &probingEngine{}
	e.probeFunc = func(ctx context.Context) (bool, error) { return false, nil }

	a := newTestAdapter(t, e, "", DeviceCUDA)
	if a.Device() != DeviceCPU {
		t.Errorf("expected cpu fallback, got %q", a.Device())
	}
}

func TestNew_ProbeErrorMeansCPU(t *testing.T) {
	e := &probingEngine{}
	e.probeFunc = func(ctx context.Context) (bool, error) { return true, errors.New("probe down") }

	a := newTestAdapter(t, e, "", DeviceAuto)
	if a.Device() != DeviceCPU {
		t.Errorf("expected cpu when probe fails, got %q", a.Device())
	}
}

func TestNew_CPUSkipsProbe(t *testing.T) {
	e := &probingEngine{}
	called := false
	e.probeFunc = func(ctx context.Context) (bool, error) {
		called = true
		return true, nil
	}

	a := newTestAdapter(t, e, "", DeviceCPU)
	if a.Device() != DeviceCPU {
		t.Errorf("expected cpu, got %q", a.Device())
	}
	if called {
		t.Error("expected probe not to be called for explicit cpu")
	}
}

func TestAdapter_Transcribe(t *testing.T) {
	e := &mockEngine{}
	a := newTestAdapter(t, e, "canary_1b_flash", DeviceCPU)

	segments, raw, err := a.Transcribe(context.Background(), []AudioInput{
		{ID: "opening", Path: "a.wav"},
		{ID: "closing", Path: "b.wav"},
	}, Options{Language: "en"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(segments))
	}
	if segments["opening"] != "text of a.wav" {
		t.Errorf("unexpected opening text %q", segments["opening"])
	}
	if segments["closing"] != "text of b.wav" {
		t.Errorf("unexpected closing text %q", segments["closing"])
	}

	if raw == nil {
		t.Fatal("expected raw output")
	}
	if raw.Engine != "mock" || raw.Model != "canary_1b_flash" || raw.Device != DeviceCPU {
		t.Errorf("unexpected raw header: %+v", raw)
	}
	if len(raw.Results) != 2 || raw.Results[0].Input.ID != "opening" || raw.Results[1].Input.ID != "closing" {
		t.Errorf("expected results in input order, got %+v", raw.Results)
	}

	if e.lastReq.Model != "canary_1b_flash" || e.lastReq.Language != "en" {
		t.Errorf("unexpected engine request: %+v", e.lastReq)
	}
}

func TestAdapter_Transcribe_DefaultIDs(t *testing.T) {
	a := newTestAdapter(t, &mockEngine{}, "", DeviceCPU)

	segments, _, err := a.Transcribe(context.Background(), []AudioInput{
		{Path: "first.wav"},
		{Path: "second.wav"},
	}, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ids := segments.IDs()
	if len(ids) != 2 || ids[0] != "0000" || ids[1] != "0001" {
		t.Errorf("expected ids [0000 0001], got %v", ids)
	}
}

func TestAdapter_Transcribe_NoInputs(t *testing.T) {
	e := &mockEngine{}
	a := newTestAdapter(t, e, "", DeviceCPU)

	_, _, err := a.Transcribe(context.Background(), nil, Options{})
	if !errors.Is(err, ErrNoAudio) {
		t.Errorf("expected ErrNoAudio, got %v", err)
	}
	if e.callCount.Load() != 0 {
		t.Error("engine should not be called")
	}
}

func TestAdapter_Transcribe_InvalidInputs(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []AudioInput
		opts    Options
		wantErr error
	}{
		{
			name:    "empty path",
			inputs:  []AudioInput{{ID: "a", Path: " "}},
			wantErr: ErrEmptyPath,
		},
		{
			name:    "duplicate id",
			inputs:  []AudioInput{{ID: "a", Path: "1.wav"}, {ID: "a", Path: "2.wav"}},
			wantErr: ErrDuplicateSegment,
		},
		{
			name:    "explicit id clashes with default",
			inputs:  []AudioInput{{Path: "1.wav"}, {ID: "0000", Path: "2.wav"}},
			wantErr: ErrDuplicateSegment,
		},
		{
			name:    "bad language",
			inputs:  []AudioInput{{Path: "1.wav"}},
			opts:    Options{Language: "not a language"},
			wantErr: ErrInvalidOptions,
		},
		{
			name:    "bad sample rate",
			inputs:  []AudioInput{{Path: "1.wav"}},
			opts:    Options{SampleRate: 100},
			wantErr: ErrInvalidOptions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &mockEngine{}
			a := newTestAdapter(t, e, "", DeviceCPU)

			_, _, err := a.Transcribe(context.Background(), tt.inputs, tt.opts)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
			if e.callCount.Load() != 0 {
				t.Error("engine should not be called")
			}
		})
	}
}

func TestAdapter_Transcribe_EngineFailure(t *testing.T) {
	engineErr := errors.New("CUDA out of memory")
	e := &mockEngine{
		nameVal: "sidecar",
		transcribeFunc: func(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error) {
			if in.ID == "b" {
				return nil, engineErr
			}
			return &Result{Text: "ok"}, nil
		},
	}
	a := newTestAdapter(t, e, "", DeviceCPU)

	segments, raw, err := a.Transcribe(context.Background(), []AudioInput{
		{ID: "a", Path: "a.wav"},
		{ID: "b", Path: "b.wav"},
		{ID: "c", Path: "c.wav"},
	}, Options{})

	if segments != nil || raw != nil {
		t.Error("expected no partial results")
	}

	var te *TranscriptionError
	if !errors.As(err, &te) {
		t.Fatalf("expected *TranscriptionError, got %T", err)
	}
	if te.Engine != "sidecar" || te.Input.ID != "b" {
		t.Errorf("unexpected error details: %+v", te)
	}
	if !errors.Is(err, engineErr) {
		t.Error("expected engine diagnostic to be preserved")
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Errorf("expected diagnostic in message, got %q", err.Error())
	}
	if e.callCount.Load() != 2 {
		t.Errorf("expected transcription to stop after failure, got %d calls", e.callCount.Load())
	}
}

func TestAdapter_Transcribe_NilResult(t *testing.T) {
	e := &mockEngine{
		transcribeFunc: func(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error) {
			return nil, nil
		},
	}
	a := newTestAdapter(t, e, "", DeviceCPU)

	_, _, err := a.Transcribe(context.Background(), []AudioInput{{Path: "a.wav"}}, Options{})
	var te *TranscriptionError
	if !errors.As(err, &te) {
		t.Errorf("expected *TranscriptionError, got %v", err)
	}
}
