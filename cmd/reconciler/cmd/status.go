package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-advice-reconciler/cmd/reconciler/config"
	"payment-advice-reconciler/internal/models"
	"payment-advice-reconciler/internal/store"
	"payment-advice-reconciler/pkg/logger"
)

var statusDatabase string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show payment record counts by status",
	Long: `Status summarizes the local database: how many payment records are
pending, reconciled, awaiting review, not found or unmatched.

Examples:
  reconciler status`,

	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVar(&statusDatabase, "database", "", "path to the SQLite database (default: reconciler.db)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	dbPath := statusDatabase
	if dbPath == "" {
		dbPath = viper.GetString("database")
	}

	db, err := store.Open(config.ResolveDatabasePath(dbPath), logger.GetGlobalLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	counts, err := db.CountRecordsByStatus(cmd.Context())
	if err != nil {
		return err
	}

	total := 0
	fmt.Fprintln(os.Stdout, "Payment records by status")
	fmt.Fprintln(os.Stdout, "-------------------------")
	for _, status := range []models.RecordStatus{
		models.StatusPending,
		models.StatusReconciled,
		models.StatusReviewRequired,
		models.StatusNotFound,
		models.StatusUnmatched,
	} {
		count := counts[status]
		total += count
		fmt.Fprintf(os.Stdout, "  %-16s %d\n", status, count)
	}
	fmt.Fprintf(os.Stdout, "  %-16s %d\n", "TOTAL", total)

	return nil
}
