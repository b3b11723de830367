package transcriber

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAudio(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("RIFF....WAVEfmt "), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return path
}

func TestNewSidecarEngine_Defaults(t *testing.T) {
	e := NewSidecarEngine("", 0)

	if e.baseURL != DefaultSidecarURL {
		t.Errorf("expected default URL, got %q", e.baseURL)
	}
	if e.client.Timeout != defaultSidecarTimeout {
		t.Errorf("expected default timeout, got %v", e.client.Timeout)
	}
	if e.Name() != "sidecar" {
		t.Errorf("expected name 'sidecar', got %q", e.Name())
	}
}

func TestNewSidecarEngine_TrimsSlash(t *testing.T) {
	e := NewSidecarEngine("http://asr:9000/", time.Second)
	if e.baseURL != "http://asr:9000" {
		t.Errorf("expected trailing slash trimmed, got %q", e.baseURL)
	}
}

func TestSidecarEngine_Transcribe_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/transcribe" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if got := r.FormValue("model"); got != "canary_1b_flash" {
			t.Errorf("expected model canary_1b_flash, got %q", got)
		}
		if got := r.FormValue("device"); got != "cuda" {
			t.Errorf("expected device cuda, got %q", got)
		}
		if got := r.FormValue("language"); got != "en" {
			t.Errorf("expected base language en, got %q", got)
		}
		if got := r.FormValue("sample_rate"); got != "16000" {
			t.Errorf("expected sample_rate 16000, got %q", got)
		}
		if got := r.FormValue("timestamps"); got != "true" {
			t.Errorf("expected timestamps true, got %q", got)
		}

		f, fh, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("expected audio file: %v", err)
		}
		defer f.Close()
		if fh.Filename != "speech.wav" {
			t.Errorf("expected filename speech.wav, got %q", fh.Filename)
		}
		data, _ := io.ReadAll(f)
		if !strings.HasPrefix(string(data), "RIFF") {
			t.Error("expected audio bytes to be forwarded")
		}

		json.NewEncoder(w).Encode(map[string]any{
			"text":     " This house would ban zoos. ",
			"language": "en",
			"segments": []map[string]any{
				{"start": 0.0, "end": 1.5, "text": "This house"},
				{"start": 1.5, "end": 3.25, "text": "would ban zoos."},
			},
		})
	}))
	defer server.Close()

	e := &SidecarEngine{baseURL: server.URL, client: server.Client()}
	in := AudioInput{ID: "0000", Path: writeAudio(t, "speech.wav")}

	res, err := e.Transcribe(context.Background(), in, EngineRequest{
		Model:   "canary_1b_flash",
		Device:  DeviceCUDA,
		Options: Options{Language: "en-GB", SampleRate: 16000, Timestamps: true},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Text != " This house would ban zoos. " {
		t.Errorf("expected text returned untouched, got %q", res.Text)
	}
	if res.Language != "en" {
		t.Errorf("expected language en, got %q", res.Language)
	}
	if len(res.Segments) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(res.Segments))
	}
	if res.Duration != 3.25 {
		t.Errorf("expected duration from last segment, got %v", res.Duration)
	}
	if res.Input.ID != "0000" {
		t.Errorf("expected input echoed, got %+v", res.Input)
	}
}

func TestSidecarEngine_Transcribe_MinimalFields(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		for _, field := range []string{"language", "sample_rate", "timestamps"} {
			if _, ok := r.MultipartForm.Value[field]; ok {
				t.Errorf("expected %s to be omitted", field)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"text": "hello", "duration": 2.0})
	}))
	defer server.Close()

	e := &SidecarEngine{baseURL: server.URL, client: server.Client()}
	res, err := e.Transcribe(context.Background(), AudioInput{Path: writeAudio(t, "a.wav")}, EngineRequest{Model: "m", Device: DeviceCPU})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Duration != 2.0 || res.Segments != nil {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestSidecarEngine_Transcribe_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"unsupported audio format","detail":"expected wav or flac"}`))
	}))
	defer server.Close()

	e := &SidecarEngine{baseURL: server.URL, client: server.Client()}
	_, err := e.Transcribe(context.Background(), AudioInput{Path: writeAudio(t, "a.mp4")}, EngineRequest{})
	if err == nil {
		t.Fatal("expected error for non-OK status")
	}
	if !strings.Contains(err.Error(), "422") || !strings.Contains(err.Error(), "unsupported audio format expected wav or flac") {
		t.Errorf("expected status and diagnostic in error, got %q", err.Error())
	}
}

func TestSidecarEngine_Transcribe_PlainError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	e := &SidecarEngine{baseURL: server.URL, client: server.Client()}
	_, err := e.Transcribe(context.Background(), AudioInput{Path: writeAudio(t, "a.wav")}, EngineRequest{})
	if err == nil || !strings.Contains(err.Error(), "model not loaded") {
		t.Errorf("expected plain-text diagnostic, got %v", err)
	}
}

func TestSidecarEngine_Transcribe_MissingFile(t *testing.T) {
	e := NewSidecarEngine("http://localhost:1", time.Second)
	_, err := e.Transcribe(context.Background(), AudioInput{Path: filepath.Join(t.TempDir(), "missing.wav")}, EngineRequest{})
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSidecarEngine_IsAvailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	e := &SidecarEngine{baseURL: server.URL, client: server.Client()}
	if !e.IsAvailable(context.Background()) {
		t.Error("expected sidecar to be available")
	}
}

func TestSidecarEngine_IsAvailable_NotRunning(t *testing.T) {
	e := &SidecarEngine{
		baseURL: "http://localhost:19998",
		client:  &http.Client{Timeout: 100 * time.Millisecond},
	}
	if e.IsAvailable(context.Background()) {
		t.Error("expected sidecar to be unavailable")
	}
}

func TestSidecarEngine_HasAccelerator(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		want    bool
		wantErr bool
	}{
		{"cuda present", http.StatusOK, `{"cuda": true}`, true, false},
		{"cpu only", http.StatusOK, `{"cuda": false}`, false, false},
		{"bad status", http.StatusNotFound, ``, false, true},
		{"bad body", http.StatusOK, `not json`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/devices" {
					t.Errorf("unexpected path %q", r.URL.Path)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			e := &SidecarEngine{baseURL: server.URL, client: server.Client()}
			got, err := e.HasAccelerator(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
