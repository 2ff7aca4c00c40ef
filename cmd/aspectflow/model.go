package main

import (
	"fmt"

	"github.com/spacesedan/aspectflow/internal/classifier"
	"github.com/spf13/cobra"
)

func modelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model",
		Short: "Manage the local pair classifier",
	}
	cmd.AddCommand(modelPullCmd())
	return cmd
}

func modelPullCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "pull [huggingface-repo]",
		Short: "Download an ONNX pair model for the hugot backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := classifier.DownloadModel(args[0], dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Model saved to %s\nSet HUGOT_MODEL_PATH=%s\n", path, path)
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "./models", "download directory")
	return cmd
}
