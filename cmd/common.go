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
	"context"
	"errors"
	"fmt"

	"github.com/valpere/speechjudge/internal/config"
	"github.com/valpere/speechjudge/internal/evaluator"
	"github.com/valpere/speechjudge/internal/judge"
	"github.com/valpere/speechjudge/internal/transcriber"
)

// buildEngine constructs the speech-to-text engine named in the config.
func buildEngine(cfg *config.Config) (transcriber.Engine, error) {
	t := cfg.Transcription
	switch t.Engine {
	case config.EngineSidecar:
		return transcriber.NewSidecarEngine(t.URL, t.Timeout), nil
	case config.EngineOpenAI:
		// The hosted engine reuses the judge credentials but always talks to
		// OpenAI itself unless an explicit URL is configured.
		client, err := judge.NewClient(judge.Config{
			Provider: judge.ProviderOpenAI,
			APIKey:   cfg.Judge.APIKey,
			BaseURL:  t.URL,
			Timeout:  t.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create transcription client: %w", err)
		}
		return transcriber.NewOpenAIEngine(client), nil
	default:
		return nil, fmt.Errorf("unknown transcription engine: %s", t.Engine)
	}
}

// buildAdapter binds the engine to the configured model and device.
func buildAdapter(ctx context.Context, cfg *config.Config) (*transcriber.Adapter, error) {
	engine, err := buildEngine(cfg)
	if err != nil {
		return nil, err
	}
	device, err := cfg.Device()
	if err != nil {
		return nil, err
	}
	return transcriber.New(ctx, engine, cfg.Transcription.ModelName, device)
}

// buildEvaluator wires the transcriber and the judge client into an
// evaluator.
func buildEvaluator(ctx context.Context, cfg *config.Config) (*evaluator.Evaluator, error) {
	adapter, err := buildAdapter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	client, err := judge.NewClient(cfg.Judge)
	if err != nil {
		return nil, fmt.Errorf("failed to create judge client: %w", err)
	}

	systemPrompt, err := cfg.EffectiveSystemPrompt()
	if err != nil {
		return nil, err
	}

	return evaluator.New(adapter, client, evaluator.Config{
		Model:        cfg.Judge.Model,
		SystemPrompt: systemPrompt,
		Temperature:  cfg.Judge.Temperature,
	})
}

// describeFailure prefixes err with an operator-facing explanation of its
// kind. The original error stays reachable through errors.Is/As.
func describeFailure(err error) error {
	if err == nil {
		return nil
	}
	kind := judge.Classify(err)
	if kind == judge.KindUnknown {
		return err
	}
	return fmt.Errorf("%s: %w", judge.Describe(kind), err)
}

var (
	errNoInputs    = errors.New("no audio files given (pass files as arguments or use --segment id=path)")
	errMixedInputs = errors.New("pass audio files either as arguments or with --segment id=path, not both")
)
