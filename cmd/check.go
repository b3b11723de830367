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
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/valpere/speechjudge/internal/config"
	"github.com/valpere/speechjudge/internal/judge"
)

const checkTimeout = 15 * time.Second

var pingJudge bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Report configuration and backend availability",
	Long: `Print the resolved configuration and probe the transcription engine.
With --ping the judge provider is queried for its model list.

Exits with an error when a backend is unreachable or a required API key
is missing.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
		defer cancel()

		out := cmd.OutOrStdout()
		var problems int

		if used := config.ConfigFileUsed(config.LoadOptions{ConfigFile: cfgFile}); used != "" {
			fmt.Fprintf(out, "Config file:    %s\n", used)
		} else {
			fmt.Fprintf(out, "Config file:    (none)\n")
		}

		t := appConfig.Transcription
		adapter, err := buildAdapter(ctx, appConfig)
		if err != nil {
			return err
		}
		status := "available"
		if !adapter.Engine().IsAvailable(ctx) {
			status = "UNAVAILABLE"
			problems++
		}
		fmt.Fprintf(out, "Transcription:  %s (%s) model=%s device=%s->%s\n",
			t.Engine, status, adapter.Model(), t.Device, adapter.Device())
		if t.URL != "" {
			fmt.Fprintf(out, "  URL:          %s\n", t.URL)
		}

		j := appConfig.Judge
		temperature := "provider default"
		if j.Temperature != nil {
			temperature = fmt.Sprintf("%.2f", *j.Temperature)
		}
		fmt.Fprintf(out, "Judge:          %s model=%s temperature=%s\n", j.Provider, j.Model, temperature)
		switch {
		case j.APIKey != "":
			fmt.Fprintf(out, "  API key:      set\n")
		case j.NeedsAPIKey():
			fmt.Fprintf(out, "  API key:      MISSING (set OPENAI_API_KEY or judge.api_key)\n")
			problems++
		default:
			fmt.Fprintf(out, "  API key:      not required\n")
		}

		if pingJudge {
			client, err := judge.NewClient(j)
			if err != nil {
				return err
			}
			if _, err := client.ListModels(ctx); err != nil {
				fmt.Fprintf(out, "  Reachable:    no (%v)\n", describeFailure(err))
				problems++
			} else {
				fmt.Fprintf(out, "  Reachable:    yes\n")
			}
		}

		if problems > 0 {
			return fmt.Errorf("%d problem(s) found", problems)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVar(&pingJudge, "ping", false, "Query the judge provider for its model list")
	checkCmd.Flags().String("engine", "", "Transcription engine: sidecar or openai")
	checkCmd.Flags().String("asr-url", "", "Transcription service base URL")
	checkCmd.Flags().String("device", "", "Transcription device: auto, cpu, cuda")
	checkCmd.Flags().String("provider", "", "Judge provider: openai, openrouter, ollama")
}
