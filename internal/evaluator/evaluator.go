// Package evaluator turns recorded speech into a judged evaluation: it
// transcribes the audio, joins the segments into one transcript, wraps it in
// the rubric prompt and sends the message pair to a chat-completion service.
//
// Every failure is returned to the caller as produced by the transcriber or
// the chat service. There are no retries and no partial results.
package evaluator

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	"github.com/valpere/speechjudge/internal/logging"
	"github.com/valpere/speechjudge/internal/prompt"
	"github.com/valpere/speechjudge/internal/transcriber"
)

// DefaultModel is the chat model used when Config.Model is empty.
const DefaultModel = openai.GPT4o

var (
	ErrNoTranscriber = errors.New("evaluator: transcriber is required")
	ErrNoChatService = errors.New("evaluator: chat service is required")
)

// Transcriber produces segment texts from audio inputs.
// *transcriber.Adapter satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, inputs []transcriber.AudioInput, opts transcriber.Options) (transcriber.Segments, *transcriber.RawOutput, error)
}

// ChatService is the chat-completion boundary. *openai.Client satisfies it.
type ChatService interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Config is captured by New and never changes afterwards.
type Config struct {
	Model        string
	SystemPrompt string
	// Temperature is sent only when set. nil leaves the provider default.
	Temperature *float32
}

// Evaluation carries the artefacts of one pipeline run.
type Evaluation struct {
	Segments   transcriber.Segments
	Transcript string
	Messages   []openai.ChatCompletionMessage
	Response   openai.ChatCompletionResponse
	Elapsed    time.Duration
}

// Evaluator runs the speech evaluation pipeline. It is safe for concurrent
// use when its collaborators are.
type Evaluator struct {
	transcriber Transcriber
	chat        ChatService
	config      Config
	log         zerolog.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithLogger overrides the component logger.
func WithLogger(l zerolog.Logger) Option {
	return func(e *Evaluator) { e.log = l }
}

// New creates an Evaluator. An empty Model selects DefaultModel and an empty
// SystemPrompt selects prompt.SystemRubric.
func New(t Transcriber, chat ChatService, cfg Config, opts ...Option) (*Evaluator, error) {
	if t == nil {
		return nil, ErrNoTranscriber
	}
	if chat == nil {
		return nil, ErrNoChatService
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if strings.TrimSpace(cfg.SystemPrompt) == "" {
		cfg.SystemPrompt = prompt.SystemRubric
	}

	e := &Evaluator{
		transcriber: t,
		chat:        chat,
		config:      cfg,
		log:         logging.Component("evaluator"),
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// Config returns the configuration captured at construction.
func (e *Evaluator) Config() Config { return e.config }

// TranscribeAudio delegates to the transcriber and keeps only the segment
// texts.
func (e *Evaluator) TranscribeAudio(ctx context.Context, inputs []transcriber.AudioInput, opts transcriber.Options) (transcriber.Segments, error) {
	segments, _, err := e.transcriber.Transcribe(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}
	return segments, nil
}

// TranscribedText joins segments into one transcript. See JoinSegments.
func (e *Evaluator) TranscribedText(segments transcriber.Segments) string {
	return JoinSegments(segments)
}

// JoinSegments concatenates the segment texts in lexicographic segment id
// order, each trimmed and preceded by a single space, and trims the result.
// An empty map yields "".
func JoinSegments(segments transcriber.Segments) string {
	var b strings.Builder
	for _, id := range segments.IDs() {
		b.WriteByte(' ')
		b.WriteString(strings.TrimSpace(segments[id]))
	}
	return strings.TrimSpace(b.String())
}

// GenerateMessages returns the system rubric followed by the user message
// embedding text verbatim.
func (e *Evaluator) GenerateMessages(text string) []openai.ChatCompletionMessage {
	return []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: e.config.SystemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: prompt.UserContent(text)},
	}
}

// GetResponse sends messages to the chat service with the configured model.
// The response and any error are returned unmodified.
func (e *Evaluator) GetResponse(ctx context.Context, messages []openai.ChatCompletionMessage) (openai.ChatCompletionResponse, error) {
	start := time.Now()
	req := openai.ChatCompletionRequest{
		Model:    e.config.Model,
		Messages: messages,
	}
	if t := e.config.Temperature; t != nil {
		req.Temperature = *t
		// go-openai omits a zero temperature from the request body.
		if req.Temperature == 0 {
			req.Temperature = math.SmallestNonzeroFloat32
		}
	}
	resp, err := e.chat.CreateChatCompletion(ctx, req)
	if err != nil {
		e.log.Debug().Err(err).Str("model", e.config.Model).Msg("chat completion failed")
		return resp, err
	}

	e.log.Info().
		Str("model", e.config.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Int64(logging.FieldDuration, logging.Since(start)).
		Msg("evaluation received")
	return resp, nil
}

// Evaluate runs the whole pipeline and returns its intermediate artefacts.
// When transcription fails the chat service is not called. When the chat
// call fails the returned Evaluation still holds the transcript and the
// messages that were sent.
func (e *Evaluator) Evaluate(ctx context.Context, inputs []transcriber.AudioInput, opts transcriber.Options) (*Evaluation, error) {
	start := time.Now()

	segments, err := e.TranscribeAudio(ctx, inputs, opts)
	if err != nil {
		return nil, err
	}

	ev := &Evaluation{Segments: segments}
	ev.Transcript = e.TranscribedText(segments)
	ev.Messages = e.GenerateMessages(ev.Transcript)

	e.log.Debug().
		Int("segments", len(segments)).
		Int("transcript_chars", len(ev.Transcript)).
		Msg("transcript composed")

	ev.Response, err = e.GetResponse(ctx, ev.Messages)
	ev.Elapsed = time.Since(start)
	if err != nil {
		return ev, err
	}
	return ev, nil
}

// EvaluateSpeech is the end-to-end entry point: transcribe, join, compose
// and call the chat service. The response is returned unmodified.
func (e *Evaluator) EvaluateSpeech(ctx context.Context, inputs []transcriber.AudioInput, opts transcriber.Options) (openai.ChatCompletionResponse, error) {
	ev, err := e.Evaluate(ctx, inputs, opts)
	if ev == nil {
		return openai.ChatCompletionResponse{}, err
	}
	return ev.Response, err
}
