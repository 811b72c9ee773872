package matcher

import (
	"strings"
	"sync"

	"payment-advice-reconciler/internal/models"
	"payment-advice-reconciler/pkg/logger"
)

// InvoiceCache is a run-scoped, identifier-keyed snapshot of the ledger's
// open invoices. It is rebuilt wholesale at the start of each reconciliation
// run; lookups during a run always see a single consistent snapshot.
//
// Rebuild replaces the whole map in one step, so a rebuild that fails
// upstream leaves the previous snapshot intact rather than a half-filled
// one. Duplicate identifiers in the snapshot resolve last-write-wins.
type InvoiceCache struct {
	mu       sync.RWMutex
	invoices map[string]*models.LedgerInvoice
	built    bool
	logger   logger.Logger
}

// NewInvoiceCache creates an empty, unbuilt cache. Lookups against an
// unbuilt cache report a miss for every identifier.
func NewInvoiceCache(log logger.Logger) *InvoiceCache {
	if log == nil {
		log = logger.GetGlobalLogger()
	}
	return &InvoiceCache{
		logger: log.WithComponent("invoice-cache"),
	}
}

// Rebuild replaces the cache contents with a fresh ledger snapshot. Keys are
// the normalized (uppercased, whitespace-stripped) invoice identifiers.
// Invoices with empty identifiers are skipped.
func (c *InvoiceCache) Rebuild(invoices []*models.LedgerInvoice) {
	next := make(map[string]*models.LedgerInvoice, len(invoices))
	skipped := 0
	for _, invoice := range invoices {
		key := cacheKey(invoice.Identifier)
		if key == "" {
			skipped++
			continue
		}
		next[key] = invoice
	}

	c.mu.Lock()
	c.invoices = next
	c.built = true
	c.mu.Unlock()

	c.logger.WithFields(logger.Fields{
		"invoices": len(next),
		"skipped":  skipped,
	}).Info("Invoice cache rebuilt")
}

// Lookup returns the cached invoice for an identifier, or false on a miss.
// The identifier is normalized before lookup, so extraction-side and
// ledger-side spellings of the same invoice number meet in the middle.
func (c *InvoiceCache) Lookup(identifier string) (*models.LedgerInvoice, bool) {
	key := cacheKey(identifier)
	if key == "" {
		return nil, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	invoice, ok := c.invoices[key]
	return invoice, ok
}

// Built reports whether the cache has been populated for the current run
func (c *InvoiceCache) Built() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.built
}

// Size returns the number of cached invoices
func (c *InvoiceCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.invoices)
}

// Clear drops the snapshot and marks the cache unbuilt
func (c *InvoiceCache) Clear() {
	c.mu.Lock()
	c.invoices = nil
	c.built = false
	c.mu.Unlock()
}

func cacheKey(identifier string) string {
	return strings.Join(strings.Fields(strings.ToUpper(identifier)), "")
}
