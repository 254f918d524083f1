package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/F3Joule/subsocial-v2/internal/scoring"
	"github.com/spf13/cobra"
)

func newFactorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "factor <magnitude> <action>",
		Short: "Print the score diff an action is worth at a given reputation",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			appConfig, logger, err := loadRuntime()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return runFactor(appConfig.Weights, args[0], args[1], cmd.OutOrStdout())
		},
	}
}

func runFactor(weights scoring.Weights, rawMagnitude, rawAction string, out io.Writer) error {
	magnitude, err := strconv.ParseUint(rawMagnitude, 10, 32)
	if err != nil {
		return fmt.Errorf("magnitude: %w", err)
	}
	action, err := scoring.ParseAction(rawAction)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "factor %d\nweight %d\ndiff %d\n",
		scoring.Factor(uint32(magnitude)),
		weights.Weight(action),
		weights.ScoreDiff(uint32(magnitude), action),
	)
	return nil
}
