package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spacesedan/aspectflow/internal/app"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/ingest"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/service"
	"github.com/spf13/cobra"
)

func analyzeCmd() *cobra.Command {
	var (
		explain bool
		save    bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [text]",
		Short: "Analyze one piece of feedback",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := ingest.Validate(strings.Join(args, " "))
			if err != nil {
				return err
			}

			analyzer, scorer, err := app.NewAnalyzer()
			if err != nil {
				return err
			}
			defer classifier.Close(scorer)

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)

			if explain {
				analysis, err := analyzer.AnalyzeDetailed(cmd.Context(), text)
				if err != nil {
					return err
				}
				return enc.Encode(analysis)
			}

			if !save {
				results, err := analyzer.Analyze(cmd.Context(), text)
				if err != nil {
					return err
				}
				return enc.Encode(results)
			}

			store, err := getStore()
			if err != nil {
				return err
			}
			defer store.Close()

			sub, err := ingest.NewSubmission(text, models.FeedbackSourceCLI)
			if err != nil {
				return err
			}
			analyzed, err := service.New(analyzer, service.WithStore(store)).Process(cmd.Context(), sub)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Saved feedback: %s\n", analyzed.FeedbackID)
			return enc.Encode(analyzed.Results)
		},
	}

	cmd.Flags().BoolVar(&explain, "explain", false, "print per-aspect evaluations")
	cmd.Flags().BoolVar(&save, "save", false, "store the result in the local database")
	return cmd
}
