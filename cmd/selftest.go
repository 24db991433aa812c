package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sells-group/census-geocode/pkg/geocode"
)

var selftestCmd = &cobra.Command{
	Use:   "selftest",
	Short: "Check that the Census geocoder answers a known address correctly",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := newGeocodeClient(cfg, logger)
		if err := geocode.SelfTest(cmd.Context(), client, geocode.SelfTestOptions{
			Address:       cfg.SelfTest.Address,
			ExpectedTract: cfg.SelfTest.ExpectedTract,
			Logger:        logger,
		}); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "ok")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(selftestCmd)
}
