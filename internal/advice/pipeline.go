package advice

import (
	"context"

	"payment-advice-reconciler/internal/models"
	recerrors "payment-advice-reconciler/pkg/errors"
	"payment-advice-reconciler/pkg/logger"
)

// TextExtractor converts a source document to plain text for the regex
// extraction path.
type TextExtractor interface {
	ExtractText(ctx context.Context, data []byte) (string, error)
}

// StructuredExtractor converts a source document directly to structured
// invoice data, bypassing the regex path.
type StructuredExtractor interface {
	ExtractInvoices(ctx context.Context, data []byte) (*StructuredResult, error)
}

// Pipeline turns a payment-advice document into pending payment records.
// The structured extractor is preferred when configured; the text path is
// the fallback, and also the only path when no structured extractor is set.
type Pipeline struct {
	structured StructuredExtractor
	text       TextExtractor
	logger     logger.Logger
}

// NewPipeline creates an extraction pipeline. Either extractor may be nil;
// at least one must be set for Process to succeed.
func NewPipeline(structured StructuredExtractor, text TextExtractor, log logger.Logger) *Pipeline {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &Pipeline{
		structured: structured,
		text:       text,
		logger:     log.WithComponent("advice-pipeline"),
	}
}

// Process extracts payment records from a raw document. The structured path
// runs first; on any structured failure the text path takes over, so a flaky
// structured extractor degrades to regex extraction instead of failing the
// document.
func (p *Pipeline) Process(ctx context.Context, data []byte, meta SourceMeta) ([]*models.PaymentRecord, error) {
	if p.structured != nil {
		records, err := p.processStructured(ctx, data, meta)
		if err == nil {
			return records, nil
		}
		p.logger.WithError(err).WithField("source_id", meta.SourceID).
			Warn("Structured extraction failed, falling back to text extraction")
	}

	if p.text == nil {
		return nil, recerrors.ExtractionError(recerrors.CodeEmptyText,
			"no extraction path available for document", nil).
			WithContext("source_id", meta.SourceID)
	}

	text, err := p.text.ExtractText(ctx, data)
	if err != nil {
		return nil, recerrors.ExtractionError(recerrors.CodeEmptyText,
			"text extraction failed", err).
			WithContext("source_id", meta.SourceID)
	}

	return p.ProcessText(text, CommonFields{}, meta), nil
}

func (p *Pipeline) processStructured(ctx context.Context, data []byte, meta SourceMeta) ([]*models.PaymentRecord, error) {
	result, err := p.structured.ExtractInvoices(ctx, data)
	if err != nil {
		return nil, err
	}

	rows := result.Rows()
	p.logger.WithFields(logger.Fields{
		"source_id": meta.SourceID,
		"invoices":  len(rows),
	}).Info("Structured extraction complete")

	return BuildRecords(rows, result.CommonFields(), meta, ""), nil
}

// ProcessText runs the regex extraction path over already-extracted text:
// identifier tiers, row attribution, then record assembly. Supplied common
// fields are merged into every record.
func (p *Pipeline) ProcessText(text string, common CommonFields, meta SourceMeta) []*models.PaymentRecord {
	identifiers := FindAllIdentifiers(text)
	rows := ExtractRows(text, identifiers)

	p.logger.WithFields(logger.Fields{
		"source_id":   meta.SourceID,
		"identifiers": len(identifiers),
		"rows":        len(rows),
	}).Info("Text extraction complete")

	return BuildRecords(rows, common, meta, text)
}
