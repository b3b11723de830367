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
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/valpere/speechjudge/internal/config"
	"github.com/valpere/speechjudge/internal/logging"
)

var version = "0.1.0"

var (
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	appConfig *config.Config
)

// flagKeys maps command-line flags onto configuration keys. A flag given on
// the command line overrides the config file and the environment.
var flagKeys = map[string]string{
	"log-level":   "logging.level",
	"log-format":  "logging.format",
	"engine":      "transcription.engine",
	"asr-model":   "transcription.model_name",
	"device":      "transcription.device",
	"asr-url":     "transcription.url",
	"language":    "transcription.language",
	"sample-rate": "transcription.sample_rate",
	"timestamps":  "transcription.timestamps",
	"provider":    "judge.provider",
	"model":       "judge.model",
	"base-url":    "judge.base_url",
	"rubric-file": "judge.system_prompt_file",
	"temperature": "judge.temperature",
	"addr":        "server.addr",
	"max-upload":  "server.max_upload_mb",
}

var rootCmd = &cobra.Command{
	Use:   "speechjudge",
	Short: "CLI Debate Speech Evaluator",
	Long: `A CLI application that transcribes recorded debate speeches and asks a
chat-completion model to score them against a seven-criterion rubric.

Transcription engines: sidecar (NeMo canary / faster-whisper over HTTP), openai (whisper-1)
Judge providers: OpenAI, OpenRouter, Ollama

Use "speechjudge evaluate --help" for evaluation options.`,
	Version:           version,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default: ./speechjudge.yaml or ~/.config/speechjudge/speechjudge.yaml)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (default: ./.env if present)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: console or json")
}

// loadConfig runs before every subcommand. Flags the user actually set are
// passed to the loader as overrides.
func loadConfig(cmd *cobra.Command, _ []string) error {
	overrides := make(map[string]any)
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil || !f.Changed {
			continue
		}
		overrides[key] = f.Value.String()
	}

	cfg, err := config.Load(config.LoadOptions{
		ConfigFile: cfgFile,
		EnvFile:    envFile,
		Overrides:  overrides,
	})
	if err != nil {
		return err
	}
	if err := logging.Init(cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialise logging: %w", err)
	}
	appConfig = cfg
	return nil
}
