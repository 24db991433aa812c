package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/census-geocode/internal/output"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <address>",
	Short: "Geocode a single address and print the result as JSON",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := strings.Join(args, " ")
		res, err := newGeocodeClient(cfg, logger).Geocode(cmd.Context(), address)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(output.NewRow(*res)); err != nil {
			return eris.Wrap(err, "lookup: encode result")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
