package store

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/model"
)

// MemStore is an in-memory Store, used by tests and dry runs.
type MemStore struct {
	company          string
	accounts         []model.Account
	accountsByID     map[string]model.Account
	accountsByName   map[string]model.Account
	customers        map[string]model.Customer
	suppliers        map[string]model.Supplier
	itemsByName      map[string]model.Item
	itemsByID        map[string]model.Item
	journalEntries   map[string]model.JournalEntry
	salesInvoices    map[string]model.SalesInvoice
	purchaseInvoices map[string]model.PurchaseInvoice
}

// NewMemStore creates an empty in-memory store for a company.
func NewMemStore(company string) *MemStore {
	return &MemStore{
		company:          company,
		accountsByID:     make(map[string]model.Account),
		accountsByName:   make(map[string]model.Account),
		customers:        make(map[string]model.Customer),
		suppliers:        make(map[string]model.Supplier),
		itemsByName:      make(map[string]model.Item),
		itemsByID:        make(map[string]model.Item),
		journalEntries:   make(map[string]model.JournalEntry),
		salesInvoices:    make(map[string]model.SalesInvoice),
		purchaseInvoices: make(map[string]model.PurchaseInvoice),
	}
}

// InsertAccount persists an account.
func (s *MemStore) InsertAccount(a model.Account) error {
	if _, ok := s.accountsByName[a.Name]; ok {
		return fmt.Errorf("account %q: %w", a.Name, ErrExists)
	}
	s.accounts = append(s.accounts, a)
	if a.SourceID != "" {
		s.accountsByID[a.SourceID] = a
	}
	s.accountsByName[a.Name] = a
	return nil
}

// AccountBySourceID looks up an account by its external identity.
func (s *MemStore) AccountBySourceID(sourceID string) (model.Account, bool) {
	a, ok := s.accountsByID[sourceID]
	return a, ok
}

// AccountByName looks up an account by ledger name.
func (s *MemStore) AccountByName(name string) (model.Account, bool) {
	a, ok := s.accountsByName[name]
	return a, ok
}

// TaxAccountByRate returns the first tax-type account carrying the rate.
func (s *MemStore) TaxAccountByRate(rate decimal.Decimal) (model.Account, bool) {
	for _, a := range s.accounts {
		if a.Type == model.AccountTypeTax && a.TaxRate.Equal(rate) {
			return a, true
		}
	}
	return model.Account{}, false
}

// ReceivableAccountByCurrency returns the first receivable account in the
// given currency.
func (s *MemStore) ReceivableAccountByCurrency(currency string) (model.Account, bool) {
	return s.accountByTypeCurrency(model.AccountTypeReceivable, currency)
}

// PayableAccountByCurrency returns the first payable account in the given
// currency.
func (s *MemStore) PayableAccountByCurrency(currency string) (model.Account, bool) {
	return s.accountByTypeCurrency(model.AccountTypePayable, currency)
}

func (s *MemStore) accountByTypeCurrency(t model.AccountType, currency string) (model.Account, bool) {
	for _, a := range s.accounts {
		if a.Type == t && a.Currency == currency && !a.IsGroup {
			return a, true
		}
	}
	return model.Account{}, false
}

// InsertCustomer persists a customer.
func (s *MemStore) InsertCustomer(c model.Customer) error {
	if _, ok := s.customers[c.SourceID]; ok {
		return fmt.Errorf("customer %s: %w", c.SourceID, ErrExists)
	}
	s.customers[c.SourceID] = c
	return nil
}

// CustomerBySourceID looks up a customer by external id.
func (s *MemStore) CustomerBySourceID(sourceID string) (model.Customer, bool) {
	c, ok := s.customers[sourceID]
	return c, ok
}

// InsertSupplier persists a supplier.
func (s *MemStore) InsertSupplier(sp model.Supplier) error {
	if _, ok := s.suppliers[sp.SourceID]; ok {
		return fmt.Errorf("supplier %s: %w", sp.SourceID, ErrExists)
	}
	s.suppliers[sp.SourceID] = sp
	return nil
}

// SupplierBySourceID looks up a supplier by external id.
func (s *MemStore) SupplierBySourceID(sourceID string) (model.Supplier, bool) {
	sp, ok := s.suppliers[sourceID]
	return sp, ok
}

// InsertItem persists an item.
func (s *MemStore) InsertItem(i model.Item) error {
	if _, ok := s.itemsByName[i.Name]; ok {
		return fmt.Errorf("item %q: %w", i.Name, ErrExists)
	}
	s.itemsByName[i.Name] = i
	s.itemsByID[i.SourceID] = i
	return nil
}

// ItemByName looks up an item by its full name.
func (s *MemStore) ItemByName(name string) (model.Item, bool) {
	i, ok := s.itemsByName[name]
	return i, ok
}

// ItemBySourceID looks up an item by external id.
func (s *MemStore) ItemBySourceID(sourceID string) (model.Item, bool) {
	i, ok := s.itemsByID[sourceID]
	return i, ok
}

// InsertJournalEntry validates and persists a journal entry.
func (s *MemStore) InsertJournalEntry(e model.JournalEntry) error {
	if _, ok := s.journalEntries[e.SourceKey]; ok {
		return fmt.Errorf("journal entry %q: %w", e.SourceKey, ErrExists)
	}
	if err := ValidateBalanced(e.Lines); err != nil {
		return fmt.Errorf("journal entry %q: %w", e.SourceKey, err)
	}
	s.journalEntries[e.SourceKey] = e
	return nil
}

// JournalEntryByKey looks up a journal entry by source key.
func (s *MemStore) JournalEntryByKey(key string) (model.JournalEntry, bool) {
	e, ok := s.journalEntries[key]
	return e, ok
}

// InsertSalesInvoice persists a sales invoice.
func (s *MemStore) InsertSalesInvoice(inv model.SalesInvoice) error {
	if _, ok := s.salesInvoices[inv.SourceKey]; ok {
		return fmt.Errorf("sales invoice %q: %w", inv.SourceKey, ErrExists)
	}
	s.salesInvoices[inv.SourceKey] = inv
	return nil
}

// SalesInvoiceByKey looks up a sales invoice by source key.
func (s *MemStore) SalesInvoiceByKey(key string) (model.SalesInvoice, bool) {
	inv, ok := s.salesInvoices[key]
	return inv, ok
}

// SettleSalesInvoice reduces an invoice's outstanding amount.
func (s *MemStore) SettleSalesInvoice(key string, amount decimal.Decimal) error {
	inv, ok := s.salesInvoices[key]
	if !ok {
		return fmt.Errorf("sales invoice %q: %w", key, ErrNotFound)
	}
	inv.Outstanding = inv.Outstanding.Sub(amount)
	s.salesInvoices[key] = inv
	return nil
}

// InsertPurchaseInvoice persists a purchase invoice.
func (s *MemStore) InsertPurchaseInvoice(inv model.PurchaseInvoice) error {
	if _, ok := s.purchaseInvoices[inv.SourceKey]; ok {
		return fmt.Errorf("purchase invoice %q: %w", inv.SourceKey, ErrExists)
	}
	s.purchaseInvoices[inv.SourceKey] = inv
	return nil
}

// PurchaseInvoiceByKey looks up a purchase invoice by source key.
func (s *MemStore) PurchaseInvoiceByKey(key string) (model.PurchaseInvoice, bool) {
	inv, ok := s.purchaseInvoices[key]
	return inv, ok
}

// SettlePurchaseInvoice reduces an invoice's outstanding amount.
func (s *MemStore) SettlePurchaseInvoice(key string, amount decimal.Decimal) error {
	inv, ok := s.purchaseInvoices[key]
	if !ok {
		return fmt.Errorf("purchase invoice %q: %w", key, ErrNotFound)
	}
	inv.Outstanding = inv.Outstanding.Sub(amount)
	s.purchaseInvoices[key] = inv
	return nil
}
