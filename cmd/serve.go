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
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/valpere/speechjudge/internal/detector"
	"github.com/valpere/speechjudge/internal/server"
	"github.com/valpere/speechjudge/internal/validator"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the evaluation HTTP API",
	Long: `Serve the evaluator over HTTP.

Endpoints:
  GET  /healthz          liveness probe
  GET  /v1/rubric        active system prompt and criteria
  POST /v1/evaluations   multipart upload, field "audio" (repeatable),
                         optional "language" and "format" (json or html)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		ev, err := buildEvaluator(ctx, appConfig)
		if err != nil {
			return err
		}

		srv, err := server.New(ev, server.Config{
			Addr:         appConfig.Server.Addr,
			MaxUploadMB:  appConfig.Server.MaxUploadMB,
			Options:      appConfig.Options(),
			SystemPrompt: ev.Config().SystemPrompt,
		}, server.WithLanguageChecker(validator.New(detector.New())))
		if err != nil {
			return err
		}
		return srv.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "Listen address (default :8080)")
	serveCmd.Flags().Int64("max-upload", 0, "Maximum upload size in MB")
	serveCmd.Flags().String("engine", "", "Transcription engine: sidecar or openai")
	serveCmd.Flags().String("asr-url", "", "Transcription service base URL")
	serveCmd.Flags().String("device", "", "Transcription device: auto, cpu, cuda")
	serveCmd.Flags().StringP("language", "l", "", "Default spoken language hint")
	serveCmd.Flags().String("provider", "", "Judge provider: openai, openrouter, ollama")
	serveCmd.Flags().StringP("model", "m", "", "Judge chat model")
	serveCmd.Flags().String("rubric-file", "", "File with a replacement system prompt")
}
