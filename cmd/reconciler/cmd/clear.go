package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-advice-reconciler/cmd/reconciler/config"
	"payment-advice-reconciler/internal/store"
	"payment-advice-reconciler/pkg/logger"
)

var (
	clearConfirm  bool
	clearDatabase string
)

// clearCmd represents the clear command
var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all payment records and reconciliation results",
	Long: `Clear wipes the local database: every payment record and every stored
reconciliation result is deleted. The external ledger is never touched.

The operation is destructive and requires --confirm.

Examples:
  reconciler clear --confirm`,

	RunE: runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)

	clearCmd.Flags().BoolVar(&clearConfirm, "confirm", false, "confirm the destructive clear")
	clearCmd.Flags().StringVar(&clearDatabase, "database", "", "path to the SQLite database (default: reconciler.db)")
}

func runClear(cmd *cobra.Command, args []string) error {
	if !clearConfirm {
		return fmt.Errorf("clear is destructive; re-run with --confirm")
	}

	dbPath := clearDatabase
	if dbPath == "" {
		dbPath = viper.GetString("database")
	}

	db, err := store.Open(config.ResolveDatabasePath(dbPath), logger.GetGlobalLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ClearAll(cmd.Context()); err != nil {
		return err
	}

	fmt.Fprintln(os.Stdout, "All payment records and results cleared")
	return nil
}
