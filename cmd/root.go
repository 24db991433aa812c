package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/census-geocode/internal/config"
)

var (
	cfg     *config.Config
	logger  = zap.NewNop()
	cfgFile string
)

var rootCmd = &cobra.Command{
	Use:   "census-geocode",
	Short: "Batch geocode address tables with the US Census Bureau geocoder",
	Long: "Reads a CSV or XLSX table of addresses, resolves each one to coordinates and census " +
		"state/county/tract codes through the Census geographies API, and writes the augmented table.",
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(cfgFile)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		l, err := config.NewLogger(cfg.Log)
		if err != nil {
			return eris.Wrap(err, "init logger")
		}
		logger = l

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		logger.Error("census-geocode failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}
