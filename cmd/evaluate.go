/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/valpere/speechjudge/internal"
	"github.com/valpere/speechjudge/internal/detector"
	"github.com/valpere/speechjudge/internal/logging"
	"github.com/valpere/speechjudge/internal/report"
	"github.com/valpere/speechjudge/internal/transcriber"
	"github.com/valpere/speechjudge/internal/validator"
)

var (
	segments       map[string]string
	outputFile     string
	outputFormat   string
	rawResponse    bool
	transcriptOnly bool
	detectLanguage bool
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate [audio files...]",
	Short: "Transcribe a speech and score it against the rubric",
	Long: `Transcribe one or more audio recordings of a single speech, join the
segments into one transcript and ask the judge model to score it.

Positional files become segments 0000, 0001, ... in argument order.
Use --segment id=path for explicit ids instead; segments are joined in
lexicographic id order. The two forms cannot be combined.

Output formats: text, markdown, html, json`,
	Example: `  speechjudge evaluate opening.wav
  speechjudge evaluate part1.wav part2.wav --language en -f markdown -o report.md
  speechjudge evaluate --segment a=intro.flac --segment b=body.flac --raw`,
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := buildRequest(args)
		if err != nil {
			return err
		}

		format, err := report.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		req.Format = string(format)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log := logging.Component("cli")
		ev, err := buildEvaluator(ctx, appConfig)
		if err != nil {
			return err
		}

		opts := appConfig.Options()
		log.Info().Str("id", req.ID).Int("segments", len(req.Inputs)).Str("language", opts.Language).Msg("evaluation started")

		if transcriptOnly {
			segs, err := ev.TranscribeAudio(ctx, req.Inputs, opts)
			if err != nil {
				return describeFailure(err)
			}
			return writeOutput(outputFile, func(w io.Writer) error {
				_, err := fmt.Fprintln(w, ev.TranscribedText(segs))
				return err
			})
		}

		if rawResponse {
			resp, err := ev.EvaluateSpeech(ctx, req.Inputs, opts)
			if err != nil {
				return describeFailure(err)
			}
			return writeOutput(outputFile, func(w io.Writer) error {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(resp)
			})
		}

		result, err := ev.Evaluate(ctx, req.Inputs, opts)
		if err != nil {
			return describeFailure(err)
		}

		rep, err := report.Build(req.ID, result)
		if err != nil {
			return describeFailure(err)
		}
		if detectLanguage {
			checkTranscriptLanguage(rep, opts.Language)
		}

		if err := writeOutput(outputFile, func(w io.Writer) error {
			return rep.Render(w, format)
		}); err != nil {
			return err
		}

		log.Info().Str("id", req.ID).Int64(logging.FieldDuration, result.Elapsed.Milliseconds()).Msg("evaluation finished")
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Report written to %s\n", outputFile)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringToStringVar(&segments, "segment", nil, "Audio segment as id=path (repeatable)")
	evaluateCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")
	evaluateCmd.Flags().StringVarP(&outputFormat, "format", "f", string(report.FormatText), "Output format: text, markdown, html, json")
	evaluateCmd.Flags().BoolVar(&rawResponse, "raw", false, "Print the raw chat-completion response as JSON")
	evaluateCmd.Flags().BoolVar(&transcriptOnly, "transcript-only", false, "Transcribe and print the joined transcript without judging")
	evaluateCmd.Flags().BoolVar(&detectLanguage, "detect-language", true, "Detect the transcript language and warn when it differs from --language")

	evaluateCmd.Flags().String("engine", "", "Transcription engine: sidecar or openai")
	evaluateCmd.Flags().String("asr-model", "", "Transcription model name")
	evaluateCmd.Flags().String("asr-url", "", "Transcription service base URL")
	evaluateCmd.Flags().String("device", "", "Transcription device: auto, cpu, cuda")
	evaluateCmd.Flags().StringP("language", "l", "", "Spoken language hint (BCP 47, e.g. en or en-US)")
	evaluateCmd.Flags().Int("sample-rate", 0, "Sample rate hint in Hz")
	evaluateCmd.Flags().Bool("timestamps", false, "Request word timestamps from the engine")
	evaluateCmd.Flags().String("provider", "", "Judge provider: openai, openrouter, ollama")
	evaluateCmd.Flags().StringP("model", "m", "", "Judge chat model")
	evaluateCmd.Flags().String("base-url", "", "Judge API base URL")
	evaluateCmd.Flags().String("rubric-file", "", "File with a replacement system prompt")
	evaluateCmd.Flags().Float32("temperature", 0, "Judge sampling temperature")

	evaluateCmd.MarkFlagsMutuallyExclusive("raw", "transcript-only")
}

// buildRequest turns positional files and --segment pairs into one request.
func buildRequest(args []string) (internal.EvaluationRequest, error) {
	req := internal.EvaluationRequest{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
	}

	if len(args) > 0 && len(segments) > 0 {
		return req, errMixedInputs
	}

	for i, path := range args {
		req.Inputs = append(req.Inputs, transcriber.AudioInput{ID: transcriber.PositionalID(i, len(args)), Path: path})
	}

	ids := make([]string, 0, len(segments))
	for id := range segments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		req.Inputs = append(req.Inputs, transcriber.AudioInput{ID: strings.TrimSpace(id), Path: segments[id]})
	}

	if len(req.Inputs) == 0 {
		return req, errNoInputs
	}
	if appConfig != nil {
		req.Language = appConfig.Transcription.Language
	}
	return req, nil
}

func checkTranscriptLanguage(rep *report.Report, hint string) {
	detected, err := validator.New(detector.New()).Transcript(rep.Transcript, hint)
	rep.Language = detected
	var mm *validator.MismatchError
	if errors.As(err, &mm) {
		rep.LanguageWarning = mm.Error()
		fmt.Fprintf(os.Stderr, "Warning: %s\n", mm.Error())
	}
}

// writeOutput writes to path, or to stdout when path is empty.
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return f.Close()
}
