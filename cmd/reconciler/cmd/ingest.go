package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"payment-advice-reconciler/cmd/reconciler/config"
	"payment-advice-reconciler/internal/advice"
	"payment-advice-reconciler/internal/models"
	"payment-advice-reconciler/internal/store"
	"payment-advice-reconciler/pkg/logger"
)

// Flags for the ingest command
var (
	ingestFile       string
	ingestStructured bool
	ingestSourceID   string
	ingestBankName   string
	ingestPayerName  string
	ingestReference  string
	ingestDatabase   string
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Extract payment records from a payment-advice document",
	Long: `Ingest reads a payment-advice document, extracts its invoice numbers and
amount triads, and stores one pending payment record per invoice. Records are
picked up by the next 'run'.

The input is either the advice's extracted text, or a structured JSON payload
(--structured) with "invoices" and "common_details" sections as produced by a
structured extractor.

Re-ingesting a document is safe: records whose source and invoice number
already exist are skipped.

Examples:
  reconciler ingest --file advice.txt
  reconciler ingest --file advice.json --structured
  reconciler ingest --file advice.txt --bank-name "HDFC" --payer "Acme Ltd"`,

	PreRunE: validateIngestFlags,
	RunE:    runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVarP(&ingestFile, "file", "i", "", "path to the payment-advice document (required)")
	ingestCmd.Flags().BoolVar(&ingestStructured, "structured", false, "treat the input as a structured JSON payload")
	ingestCmd.Flags().StringVar(&ingestSourceID, "source-id", "", "source identifier (default: file name)")
	ingestCmd.Flags().StringVar(&ingestBankName, "bank-name", "", "remitting bank name")
	ingestCmd.Flags().StringVar(&ingestPayerName, "payer", "", "payer name")
	ingestCmd.Flags().StringVar(&ingestReference, "bank-reference", "", "bank transaction reference (UTR)")
	ingestCmd.Flags().StringVar(&ingestDatabase, "database", "", "path to the SQLite database (default: reconciler.db)")

	ingestCmd.MarkFlagRequired("file")
}

func validateIngestFlags(cmd *cobra.Command, args []string) error {
	if ingestFile == "" {
		return fmt.Errorf("file is required")
	}

	info, err := os.Stat(ingestFile)
	if os.IsNotExist(err) {
		return fmt.Errorf("input file does not exist: %s", ingestFile)
	}
	if err != nil {
		return fmt.Errorf("error accessing input file: %w", err)
	}
	if info.IsDir() {
		return fmt.Errorf("input is a directory, expected a file: %s", ingestFile)
	}

	if ingestSourceID == "" {
		ingestSourceID = filepath.Base(ingestFile)
	}
	return nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	log := logger.GetGlobalLogger()

	data, err := os.ReadFile(ingestFile)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	meta := advice.SourceMeta{
		SourceID: ingestSourceID,
		Document: filepath.Base(ingestFile),
	}
	common := advice.CommonFields{
		BankName:      ingestBankName,
		PayerName:     ingestPayerName,
		BankReference: ingestReference,
	}

	pipeline := advice.NewPipeline(nil, nil, log)

	var records []*models.PaymentRecord
	if ingestStructured {
		result, err := advice.DecodeStructured(data)
		if err != nil {
			return err
		}
		structuredCommon := result.CommonFields()
		mergeCommonFields(&structuredCommon, common)
		records = advice.BuildRecords(result.Rows(), structuredCommon, meta, "")
	} else {
		records = pipeline.ProcessText(string(data), common, meta)
	}

	dbPath := ingestDatabase
	if dbPath == "" {
		dbPath = viper.GetString("database")
	}
	db, err := store.Open(config.ResolveDatabasePath(dbPath), log)
	if err != nil {
		return err
	}
	defer db.Close()

	inserted, err := db.InsertRecords(cmd.Context(), records)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Ingested %d of %d extracted records from %s\n",
		inserted, len(records), meta.Document)
	if inserted < len(records) {
		fmt.Fprintf(os.Stdout, "%d duplicate records were skipped\n", len(records)-inserted)
	}
	return nil
}

// mergeCommonFields fills structured-extraction gaps with flag-supplied values
func mergeCommonFields(target *advice.CommonFields, overrides advice.CommonFields) {
	if target.BankName == "" {
		target.BankName = overrides.BankName
	}
	if target.PayerName == "" {
		target.PayerName = overrides.PayerName
	}
	if target.BankReference == "" {
		target.BankReference = overrides.BankReference
	}
}
