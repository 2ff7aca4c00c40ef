package main

import (
	"fmt"
	"strings"
	"text/tabwriter"
	"unicode/utf8"

	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spf13/cobra"
)

func recordsCmd() *cobra.Command {
	var limit, offset int

	cmd := &cobra.Command{
		Use:   "records",
		Short: "List stored feedback, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := getStore()
			if err != nil {
				return err
			}
			defer store.Close()

			total, err := store.Count(cmd.Context())
			if err != nil {
				return err
			}
			feedback, err := store.ListRecent(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tANALYZED\tASPECTS\tTEXT")
			for _, f := range feedback {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					shortID(f.FeedbackID),
					f.AnalyzedAt.Local().Format("2006-01-02 15:04"),
					formatResults(f.Results),
					truncate(f.CleanText, 60))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "\nShowing %d-%d of %d\n", min(offset+1, total), min(offset+len(feedback), total), total)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "rows per page")
	cmd.Flags().IntVar(&offset, "offset", 0, "rows to skip")
	return cmd
}

func formatResults(results []models.ResultRecord) string {
	if len(results) == 0 {
		return "-"
	}
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("%s:%s", r.Aspect, r.Sentiment)
	}
	return strings.Join(parts, ",")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
