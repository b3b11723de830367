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

	"github.com/spf13/cobra"

	"github.com/valpere/speechjudge/internal/prompt"
)

var listCriteria bool

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "Print the system prompt sent to the judge",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		if listCriteria {
			for i, c := range prompt.Criteria() {
				fmt.Fprintf(out, "%d. %s (%d points)\n", i+1, c, prompt.PointsPerCriterion)
			}
			fmt.Fprintf(out, "Total: %d points\n", prompt.MaxScore)
			return nil
		}

		systemPrompt, err := appConfig.EffectiveSystemPrompt()
		if err != nil {
			return err
		}
		fmt.Fprintln(out, systemPrompt)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rubricCmd)

	rubricCmd.Flags().BoolVar(&listCriteria, "criteria", false, "List the built-in criteria instead of the full prompt")
	rubricCmd.Flags().String("rubric-file", "", "File with a replacement system prompt")
}
