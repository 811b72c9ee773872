package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-advice-reconciler/cmd/reconciler/config"
	"payment-advice-reconciler/internal/ledger"
	"payment-advice-reconciler/internal/matcher"
	"payment-advice-reconciler/internal/reconciler"
	"payment-advice-reconciler/internal/reporter"
	"payment-advice-reconciler/internal/store"
	"payment-advice-reconciler/pkg/logger"
)

// Flags for the run command
var (
	runDatabasePath    string
	runLedgerURL       string
	runLedgerTimeout   int
	runLedgerStartPage int
	runLedgerMaxPages  int
	runAmountTolerance float64
	runAutoResolve     bool
	runOutputFormat    string
	runOutputFile      string
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Reconcile pending payment records against the ledger",
	Long: `Run executes one reconciliation pass. The ledger's open invoices are
synced into a fresh cache, every pending payment record is scored against
them, and each record's outcome is stored with its discrepancy notes.

With --auto-resolve, fully matched payments are also recorded back in the
ledger. Write-back requires an exact amount match within the tolerance and an
invoice that is not already paid.

Examples:
  # Score pending records, console summary
  reconciler run --ledger-url https://ledger.example.com

  # Record matched payments in the ledger
  reconciler run --ledger-url https://ledger.example.com --auto-resolve

  # JSON summary to a file
  reconciler run --output-format json --output-file run.json`,

	PreRunE: validateRunFlags,
	RunE:    runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runDatabasePath, "database", "", "path to the SQLite database (default: reconciler.db)")
	runCmd.Flags().StringVar(&runLedgerURL, "ledger-url", "", "base URL of the ledger API")
	runCmd.Flags().IntVar(&runLedgerTimeout, "ledger-timeout", 30, "ledger request timeout in seconds")
	runCmd.Flags().IntVar(&runLedgerStartPage, "ledger-start-page", 1, "first page of the unpaid-invoice listing")
	runCmd.Flags().IntVar(&runLedgerMaxPages, "ledger-max-pages", 200, "maximum pages fetched per sync")
	runCmd.Flags().Float64VarP(&runAmountTolerance, "amount-tolerance", "a", 10, "absolute amount tolerance for a full match")
	runCmd.Flags().BoolVar(&runAutoResolve, "auto-resolve", false, "record fully matched payments back in the ledger")
	runCmd.Flags().StringVarP(&runOutputFormat, "output-format", "f", "text", "output format: text, json")
	runCmd.Flags().StringVarP(&runOutputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Bind flags to viper
	viper.BindPFlag("database", runCmd.Flags().Lookup("database"))
	viper.BindPFlag("ledger-url", runCmd.Flags().Lookup("ledger-url"))
	viper.BindPFlag("ledger-timeout", runCmd.Flags().Lookup("ledger-timeout"))
	viper.BindPFlag("ledger-start-page", runCmd.Flags().Lookup("ledger-start-page"))
	viper.BindPFlag("ledger-max-pages", runCmd.Flags().Lookup("ledger-max-pages"))
	viper.BindPFlag("amount-tolerance", runCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("auto-resolve", runCmd.Flags().Lookup("auto-resolve"))
	viper.BindPFlag("output-format", runCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", runCmd.Flags().Lookup("output-file"))
}

func validateRunFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file or env)
	runDatabasePath = viper.GetString("database")
	runLedgerURL = viper.GetString("ledger-url")
	runLedgerTimeout = viper.GetInt("ledger-timeout")
	runLedgerStartPage = viper.GetInt("ledger-start-page")
	runLedgerMaxPages = viper.GetInt("ledger-max-pages")
	runAmountTolerance = viper.GetFloat64("amount-tolerance")
	runAutoResolve = viper.GetBool("auto-resolve")
	runOutputFormat = viper.GetString("output-format")
	runOutputFile = viper.GetString("output-file")

	if runLedgerURL == "" {
		return fmt.Errorf("ledger-url is required (flag or RECONCILER_LEDGER_URL)")
	}
	if runAmountTolerance < 0 {
		return fmt.Errorf("amount tolerance cannot be negative")
	}
	if _, err := reporter.ParseFormat(runOutputFormat); err != nil {
		return err
	}
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.GetGlobalLogger()

	matchingConfig := config.CreateMatchingConfig(runAmountTolerance, runAutoResolve)
	ledgerConfig, err := config.CreateLedgerConfig(runLedgerURL, viper.GetString("ledger-token"), runLedgerTimeout)
	if err != nil {
		return err
	}
	if runLedgerStartPage > 0 {
		ledgerConfig.StartPage = runLedgerStartPage
	}
	if runLedgerMaxPages > 0 {
		ledgerConfig.MaxPages = runLedgerMaxPages
	}
	if err := config.ValidateConfig(matchingConfig, ledgerConfig); err != nil {
		return err
	}

	db, err := store.Open(config.ResolveDatabasePath(runDatabasePath), log)
	if err != nil {
		return err
	}
	defer db.Close()

	client := ledger.NewClient(ledgerConfig, log)
	cache := matcher.NewInvoiceCache(log)

	var writer matcher.ResolutionWriter
	if runAutoResolve {
		writer = client
	}
	engine := matcher.NewMatchEngine(matchingConfig, cache, writer, log)

	runner := reconciler.NewRunner(db, client, cache, engine, log)
	summary, err := runner.Run(ctx)
	if err != nil {
		return err
	}

	format, _ := reporter.ParseFormat(runOutputFormat)
	output := os.Stdout
	if runOutputFile != "" {
		output, err = os.Create(runOutputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	}

	return reporter.New(output, format).Report(summary)
}
