package main

import (
	"fmt"
	"os"

	"github.com/spacesedan/aspectflow/internal/app"
	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spacesedan/aspectflow/internal/clients/kafka_client"
	"github.com/spacesedan/aspectflow/internal/ingest"
	"github.com/spacesedan/aspectflow/internal/models"
	"github.com/spacesedan/aspectflow/internal/service"
	"github.com/spacesedan/aspectflow/internal/utils"
	"github.com/spf13/cobra"
)

func uploadCmd() *cobra.Command {
	var publish bool

	cmd := &cobra.Command{
		Use:   "upload [file.csv]",
		Short: "Analyze and store a CSV of feedback, or publish it to Kafka",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("open upload: %w", err)
			}
			defer f.Close()

			result, err := ingest.ReadCSV(f)
			if err != nil {
				return err
			}
			for _, rejected := range result.Rejected {
				fmt.Fprintf(cmd.ErrOrStderr(), "  skipped %v\n", rejected)
			}

			if publish {
				n, err := publishSubmissions(result.Submissions)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Published %d feedback to %s\n", n, kafka_client.KAFKA_TOPIC_FEEDBACK_SUBMITTED)
				return nil
			}

			analyzer, scorer, err := app.NewAnalyzer()
			if err != nil {
				return err
			}
			defer classifier.Close(scorer)

			store, err := getStore()
			if err != nil {
				return err
			}
			defer store.Close()

			svc := service.New(analyzer, service.WithStore(store))
			analyzed, err := svc.ProcessBatch(cmd.Context(), result.Submissions)
			if err != nil {
				return err
			}

			discussed := 0
			for _, a := range analyzed {
				if len(a.Results) > 0 {
					discussed++
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Stored %d feedback (%d with aspects, %d rejected)\n",
				len(analyzed), discussed, len(result.Rejected))
			return nil
		},
	}

	cmd.Flags().BoolVar(&publish, "publish", false, "publish to Kafka instead of analyzing locally")
	return cmd
}

// publishSubmissions sends submissions in BATCH_SIZE chunks, one message
// per chunk.
func publishSubmissions(subs []models.FeedbackSubmission) (int, error) {
	if err := kafka_client.InitProducer(kafka_client.GetKafkaConfig()); err != nil {
		return 0, err
	}
	defer kafka_client.CloseProducer()

	sent := 0
	for i := 0; i < len(subs); i += utils.BATCH_SIZE {
		chunk := subs[i:min(i+utils.BATCH_SIZE, len(subs))]
		if err := kafka_client.PublishToKafka(kafka_client.KAFKA_TOPIC_FEEDBACK_SUBMITTED, chunk[0].FeedbackID, chunk); err != nil {
			return sent, err
		}
		sent += len(chunk)
	}
	return sent, nil
}
