// Package cli implements the mmectl command line tool.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/drfirst/go-mme/internal/domain/mme"
	"github.com/drfirst/go-mme/internal/observability/logging"
)

var (
	version = "dev"

	tablePath string
	logLevel  string

	// set by the root PersistentPreRunE
	table  *mme.Table
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "mmectl",
	Short: "Calculate morphine milligram equivalents",
	Long: `mmectl computes total daily morphine milligram equivalents (MME) for an
opioid regimen, classifies overdose risk and converts doses between opioids.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		l, err := logging.New(logLevel, "console", "")
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger = l

		if tablePath == "" {
			table = mme.DefaultTable()
			return nil
		}
		table, err = mme.LoadTableFile(tablePath, mme.DefaultTable())
		if err != nil {
			return err
		}
		logger.Debug("loaded conversion table", zap.String("path", tablePath), zap.Int("entries", table.Len()))
		return nil
	},
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&tablePath, "table", "", "YAML file of additional opioids")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
}

// Execute runs the root command
func Execute() error {
	rootCmd.SetOut(os.Stdout)
	return rootCmd.Execute()
}

// SetVersion sets the version reported by the version command
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}
