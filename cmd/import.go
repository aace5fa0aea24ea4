package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/flashstack/internal/excel"
)

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a stack's cards from an .xlsx or .csv file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		userID, _ := cmd.Flags().GetInt64("user")
		stackName, _ := cmd.Flags().GetString("stack")
		sheet, _ := cmd.Flags().GetString("sheet")
		startRow, _ := cmd.Flags().GetInt("start-row")

		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if _, err := a.repos.Users.GetByID(cmd.Context(), userID); err != nil {
			return fmt.Errorf("user %d: %w", userID, err)
		}

		cfg := excel.DefaultImportConfig()
		cfg.FilePath = args[0]
		cfg.UserID = userID
		cfg.StackName = stackName
		cfg.SheetName = sheet
		cfg.StartRow = startRow

		res, err := excel.NewImporter(a.repos).Import(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		a.log.Info("import finished",
			"stack_id", res.StackID,
			"created", res.Created,
			"updated", res.Updated,
			"skipped", res.Skipped,
			"errors", len(res.Errors),
		)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	importCmd.Flags().Int64("user", 0, "Owner user ID")
	importCmd.Flags().String("stack", "", "Stack name (created if missing)")
	importCmd.Flags().String("sheet", "", "Sheet name for .xlsx files (default: first sheet)")
	importCmd.Flags().Int("start-row", 2, "First data row, 1-based")
	_ = importCmd.MarkFlagRequired("user")
	_ = importCmd.MarkFlagRequired("stack")
}
