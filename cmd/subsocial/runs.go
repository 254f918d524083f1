package main

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/config"
	"github.com/F3Joule/subsocial-v2/internal/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newRunsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List the most recent persisted apply runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runRuns(cmd.Context(), appConfig, logger, limit, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Number of runs to list")
	return cmd
}

func runRuns(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger, limit int, out io.Writer) error {
	db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	store, err := database.NewSnapshotStore(database.StoreConfig{Database: db, Logger: logger})
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "RUN\tSTARTED\tOPERATIONS\tFAILURES\tSCRIPT")
	for _, run := range runs {
		started := time.Unix(0, run.StartedAtNanos).UTC().Format(time.RFC3339)
		fmt.Fprintf(writer, "%s\t%s\t%d\t%d\t%s\n", run.RunID, started, run.Operations, run.Failures, run.Script)
	}
	return writer.Flush()
}
