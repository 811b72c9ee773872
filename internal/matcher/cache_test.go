package matcher

import (
	"testing"

	"github.com/shopspring/decimal"

	"payment-advice-reconciler/internal/models"
)

func testInvoice(identifier, status, total string) *models.LedgerInvoice {
	amount, _ := decimal.NewFromString(total)
	return &models.LedgerInvoice{
		Identifier:  identifier,
		TotalAmount: amount,
		Status:      status,
	}
}

func TestInvoiceCacheRebuildAndLookup(t *testing.T) {
	cache := NewInvoiceCache(nil)

	if cache.Built() {
		t.Error("new cache reports built")
	}
	if _, ok := cache.Lookup("23EXT2526/2834"); ok {
		t.Error("unbuilt cache returned a hit")
	}

	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("23EXT2526/2834", "unpaid", "8644.00"),
		testInvoice("24EXT2526/2901", "overdue", "1200.00"),
	})

	if !cache.Built() {
		t.Error("rebuilt cache reports unbuilt")
	}
	if cache.Size() != 2 {
		t.Errorf("Size = %d, want 2", cache.Size())
	}

	invoice, ok := cache.Lookup("23EXT2526/2834")
	if !ok {
		t.Fatal("Lookup missed a cached invoice")
	}
	if invoice.Status != "unpaid" {
		t.Errorf("Status = %s, want unpaid", invoice.Status)
	}

	if _, ok := cache.Lookup("unknown"); ok {
		t.Error("Lookup returned a hit for an unknown identifier")
	}
}

func TestInvoiceCacheLookupNormalizes(t *testing.T) {
	cache := NewInvoiceCache(nil)
	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("23ext2526 / 2834", "unpaid", "8644.00"),
	})

	if _, ok := cache.Lookup("23EXT2526/2834"); !ok {
		t.Error("normalized lookup missed a differently spelled cached invoice")
	}
}

func TestInvoiceCacheLastWriteWins(t *testing.T) {
	cache := NewInvoiceCache(nil)
	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("23EXT2526/2834", "unpaid", "100.00"),
		testInvoice("23EXT2526/2834", "paid", "200.00"),
	})

	if cache.Size() != 1 {
		t.Fatalf("Size = %d, want 1", cache.Size())
	}
	invoice, _ := cache.Lookup("23EXT2526/2834")
	if invoice.Status != "paid" {
		t.Errorf("Status = %s, want the later entry's status", invoice.Status)
	}
}

func TestInvoiceCacheRebuildReplacesSnapshot(t *testing.T) {
	cache := NewInvoiceCache(nil)
	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("23EXT2526/2834", "unpaid", "100.00"),
	})
	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("24EXT2526/2901", "unpaid", "200.00"),
	})

	if _, ok := cache.Lookup("23EXT2526/2834"); ok {
		t.Error("old snapshot entry survived a rebuild")
	}
	if _, ok := cache.Lookup("24EXT2526/2901"); !ok {
		t.Error("new snapshot entry missing after rebuild")
	}
}

func TestInvoiceCacheSkipsEmptyIdentifiers(t *testing.T) {
	cache := NewInvoiceCache(nil)
	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("", "unpaid", "100.00"),
		testInvoice("23EXT2526/2834", "unpaid", "200.00"),
	})

	if cache.Size() != 1 {
		t.Errorf("Size = %d, want 1", cache.Size())
	}
}

func TestInvoiceCacheClear(t *testing.T) {
	cache := NewInvoiceCache(nil)
	cache.Rebuild([]*models.LedgerInvoice{
		testInvoice("23EXT2526/2834", "unpaid", "100.00"),
	})
	cache.Clear()

	if cache.Built() || cache.Size() != 0 {
		t.Errorf("cleared cache: built=%v size=%d", cache.Built(), cache.Size())
	}
}
