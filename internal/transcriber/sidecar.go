package transcriber

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	SidecarName = "sidecar"

	DefaultSidecarURL     = "http://localhost:8387"
	defaultSidecarTimeout = 10 * time.Minute
)

// SidecarEngine talks to an HTTP service hosting the speech model (a NeMo
// canary or faster-whisper server). The service owns model loading and
// device memory.
type SidecarEngine struct {
	baseURL string
	client  *http.Client
}

func NewSidecarEngine(baseURL string, timeout time.Duration) *SidecarEngine {
	if baseURL == "" {
		baseURL = DefaultSidecarURL
	}
	if timeout <= 0 {
		timeout = defaultSidecarTimeout
	}
	return &SidecarEngine{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *SidecarEngine) Name() string {
	return SidecarName
}

func (s *SidecarEngine) IsAvailable(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/health", http.NoBody)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// HasAccelerator asks the sidecar whether it can see a CUDA device.
func (s *SidecarEngine) HasAccelerator(ctx context.Context) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/devices", http.NoBody)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("device probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("device probe returned status %d", resp.StatusCode)
	}

	var devices struct {
		CUDA bool `json:"cuda"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&devices); err != nil {
		return false, fmt.Errorf("failed to decode device probe: %w", err)
	}
	return devices.CUDA, nil
}

type sidecarResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Duration float64          `json:"duration"`
	Segments []sidecarSegment `json:"segments"`
}

type sidecarSegment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

type sidecarError struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func (s *SidecarEngine) Transcribe(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error) {
	f, err := os.Open(in.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("audio", filepath.Base(in.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(fw, f); err != nil {
		return nil, fmt.Errorf("failed to read audio: %w", err)
	}

	fields := map[string]string{
		"model":  req.Model,
		"device": string(req.Device),
	}
	if req.Language != "" {
		fields["language"] = req.BaseLanguage()
	}
	if req.SampleRate > 0 {
		fields["sample_rate"] = strconv.Itoa(req.SampleRate)
	}
	if req.Timestamps {
		fields["timestamps"] = "true"
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return nil, fmt.Errorf("failed to write field %s: %w", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish multipart body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/transcribe", &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sidecar request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var se sidecarError
		if json.Unmarshal(b, &se) == nil && (se.Error != "" || se.Detail != "") {
			return nil, fmt.Errorf("sidecar returned status %d: %s", resp.StatusCode, strings.TrimSpace(se.Error+" "+se.Detail))
		}
		return nil, fmt.Errorf("sidecar returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var sr sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	res := &Result{
		Input:    in,
		Text:     sr.Text,
		Language: sr.Language,
		Duration: sr.Duration,
	}
	if len(sr.Segments) > 0 {
		res.Segments = make([]Segment, len(sr.Segments))
		for i, seg := range sr.Segments {
			res.Segments[i] = Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
		}
		if res.Duration == 0 {
			res.Duration = sr.Segments[len(sr.Segments)-1].End
		}
	}
	return res, nil
}
