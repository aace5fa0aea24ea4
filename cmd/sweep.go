package cmd

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the streak sweep once and print the JSON summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		sum := a.runner(nil).Run(cmd.Context(), time.Now())
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(sum); err != nil {
			return err
		}
		if !sum.Success {
			return errors.New("sweep did not complete")
		}
		return nil
	},
}
