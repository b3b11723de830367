package transcriber

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const OpenAIName = "openai"

// OpenAIEngine uses the hosted OpenAI audio transcription endpoint. It has
// no device of its own; the resolved device is ignored.
type OpenAIEngine struct {
	client *openai.Client
}

func NewOpenAIEngine(client *openai.Client) *OpenAIEngine {
	return &OpenAIEngine{client: client}
}

func (e *OpenAIEngine) Name() string {
	return OpenAIName
}

func (e *OpenAIEngine) IsAvailable(ctx context.Context) bool {
	if e.client == nil {
		return false
	}
	_, err := e.client.ListModels(ctx)
	return err == nil
}

func (e *OpenAIEngine) Transcribe(ctx context.Context, in AudioInput, req EngineRequest) (*Result, error) {
	if e.client == nil {
		return nil, fmt.Errorf("openai client not configured")
	}

	model := req.Model
	if model == "" || model == DefaultModel {
		model = openai.Whisper1
	}

	format := openai.AudioResponseFormatJSON
	if req.Timestamps {
		format = openai.AudioResponseFormatVerboseJSON
	}

	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    model,
		FilePath: in.Path,
		Language: req.BaseLanguage(),
		Format:   format,
	})
	if err != nil {
		return nil, err
	}

	res := &Result{
		Input:    in,
		Text:     resp.Text,
		Language: resp.Language,
		Duration: resp.Duration,
	}
	if len(resp.Segments) > 0 {
		res.Segments = make([]Segment, len(resp.Segments))
		for i, seg := range resp.Segments {
			res.Segments[i] = Segment{Start: seg.Start, End: seg.End, Text: seg.Text}
		}
	}
	return res, nil
}
