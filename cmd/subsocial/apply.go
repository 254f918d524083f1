package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/auth"
	"github.com/F3Joule/subsocial-v2/internal/config"
	"github.com/F3Joule/subsocial-v2/internal/database"
	"github.com/F3Joule/subsocial-v2/internal/metrics"
	"github.com/F3Joule/subsocial-v2/internal/script"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type applyOptions struct {
	failFast   bool
	dryRun     bool
	idProvider database.IDProvider
	clock      func() time.Time
}

func newApplyCommand() *cobra.Command {
	options := applyOptions{}
	cmd := &cobra.Command{
		Use:   "apply <script.yaml>",
		Short: "Apply an operation script to the stored ledger",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runApply(cmd.Context(), appConfig, logger, args[0], options, cmd.OutOrStdout())
		},
	}
	cmd.Flags().BoolVar(&options.failFast, "fail-fast", false, "Stop at the first failed operation and persist nothing")
	cmd.Flags().BoolVar(&options.dryRun, "dry-run", false, "Run the script without persisting the result")
	return cmd
}

func runApply(ctx context.Context, appConfig config.AppConfig, logger *zap.Logger, scriptPath string, options applyOptions, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if options.idProvider == nil {
		options.idProvider = database.NewUUIDProvider()
	}
	if options.clock == nil {
		options.clock = time.Now
	}

	operations, err := script.Load(scriptPath)
	if err != nil {
		return err
	}

	var verifier script.ActorVerifier
	if appConfig.RequireTokens || appConfig.SigningSecret != "" {
		signingKey, err := appConfig.SigningKey()
		if err != nil {
			return err
		}
		verifier, err = auth.NewActorVerifier(auth.ActorVerifierConfig{
			SigningSecret: signingKey,
			Issuer:        appConfig.TokenIssuer,
			Clock:         options.clock,
		})
		if err != nil {
			return err
		}
	}

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

	recorder := metrics.NewRecorder()
	ledgerConfig := appConfig.LedgerConfig()
	ledgerConfig.Clock = options.clock
	ledgerConfig.Events = script.FanOut(recorder, script.EventLogger(logger))
	ledger, err := store.LoadLedger(ctx, ledgerConfig)
	if err != nil {
		return err
	}

	runner, err := script.NewRunner(script.RunnerConfig{
		Ledger:        ledger,
		Verifier:      verifier,
		RequireTokens: appConfig.RequireTokens,
		FailFast:      options.failFast,
		Observer:      recorder,
		Logger:        logger,
		Clock:         options.clock,
	})
	if err != nil {
		return err
	}

	started := options.clock()
	report, err := runner.Run(ctx, operations)
	writeReport(out, report)
	if err != nil {
		return err
	}

	snapshot := ledger.Snapshot()
	recorder.ObserveSnapshot(snapshot)

	if options.dryRun {
		fmt.Fprintln(out, "dry run: nothing persisted")
	} else {
		runID, err := options.idProvider.NewID()
		if err != nil {
			return err
		}
		run := database.ApplyRun{
			RunID:           runID,
			Script:          scriptPath,
			StartedAtNanos:  started.UTC().UnixNano(),
			FinishedAtNanos: options.clock().UTC().UnixNano(),
			Operations:      len(report.Results),
			Failures:        report.Rejected + report.Denied,
		}
		if err := store.Save(ctx, snapshot, run); err != nil {
			return err
		}
		fmt.Fprintf(out, "run %s persisted\n", runID)
	}

	if appConfig.MetricsTextfile != "" {
		if err := recorder.WriteTextfile(appConfig.MetricsTextfile); err != nil {
			return err
		}
		logger.Info("metrics written", zap.String("path", appConfig.MetricsTextfile))
	}
	return nil
}

func writeReport(out io.Writer, report script.Report) {
	for _, result := range report.Results {
		if result.Err == nil {
			continue
		}
		fmt.Fprintf(out, "#%d %s (%s): %s: %v\n", result.Index, result.Operation, result.Actor, result.Outcome, result.Err)
	}
	fmt.Fprintf(out, "applied %d, rejected %d, denied %d\n", report.Applied, report.Rejected, report.Denied)
}
