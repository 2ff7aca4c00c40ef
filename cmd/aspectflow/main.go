package main

import (
	"os"

	"github.com/spacesedan/aspectflow/config"
	"github.com/spacesedan/aspectflow/internal/app"
	"github.com/spacesedan/aspectflow/internal/db"
	"github.com/spacesedan/aspectflow/internal/logging"
	"github.com/spf13/cobra"
)

var dbPath string

func main() {
	rootCmd := &cobra.Command{
		Use:           "aspectflow",
		Short:         "Aspect-based sentiment analysis for student feedback",
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			config.LoadEnv(config.AppEnv())
			logging.InitLogger()
		},
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite database path (default $SQLITE_PATH)")

	rootCmd.AddCommand(analyzeCmd())
	rootCmd.AddCommand(uploadCmd())
	rootCmd.AddCommand(recordsCmd())
	rootCmd.AddCommand(backupCmd())
	rootCmd.AddCommand(restoreCmd())
	rootCmd.AddCommand(modelCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func getStore() (*db.SQLiteStore, error) {
	path := dbPath
	if path == "" {
		path = config.Store().SQLitePath
	}
	return app.OpenSQLite(path)
}
