// Package store is the persistence collaborator of the migration engine.
// All lookups and inserts are scoped to a single company; the only durable
// cross-run state is the set of created records keyed by source key.
package store

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/model"
)

var (
	// ErrExists reports an insert for a key that is already persisted.
	ErrExists = errors.New("record already exists")
	// ErrNotFound reports a lookup miss on a settlement or update.
	ErrNotFound = errors.New("record not found")
	// ErrUnbalanced is the validation failure surfaced when a journal
	// entry's debits and credits do not balance after exchange-rate
	// normalization.
	ErrUnbalanced = errors.New("entry debits and credits do not balance")
)

// Store persists migrated records for one company.
type Store interface {
	// Accounts.
	InsertAccount(a model.Account) error
	AccountBySourceID(sourceID string) (model.Account, bool)
	AccountByName(name string) (model.Account, bool)
	TaxAccountByRate(rate decimal.Decimal) (model.Account, bool)
	ReceivableAccountByCurrency(currency string) (model.Account, bool)
	PayableAccountByCurrency(currency string) (model.Account, bool)

	// Parties and items.
	InsertCustomer(c model.Customer) error
	CustomerBySourceID(sourceID string) (model.Customer, bool)
	InsertSupplier(s model.Supplier) error
	SupplierBySourceID(sourceID string) (model.Supplier, bool)
	InsertItem(i model.Item) error
	ItemByName(name string) (model.Item, bool)
	ItemBySourceID(sourceID string) (model.Item, bool)

	// Documents. Inserts are final: records are considered submitted, not
	// draft. InsertJournalEntry validates balance and returns ErrUnbalanced
	// without persisting anything on violation.
	InsertJournalEntry(e model.JournalEntry) error
	JournalEntryByKey(key string) (model.JournalEntry, bool)
	InsertSalesInvoice(inv model.SalesInvoice) error
	SalesInvoiceByKey(key string) (model.SalesInvoice, bool)
	SettleSalesInvoice(key string, amount decimal.Decimal) error
	InsertPurchaseInvoice(inv model.PurchaseInvoice) error
	PurchaseInvoiceByKey(key string) (model.PurchaseInvoice, bool)
	SettlePurchaseInvoice(key string, amount decimal.Decimal) error
}

// ValidateBalanced checks the double-entry invariant: the debit and credit
// totals, converted to home currency by each line's exchange rate, must be
// equal to two decimal places.
func ValidateBalanced(lines []model.NormalizedLine) error {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, line := range lines {
		totalDebit = totalDebit.Add(line.Debit.Mul(line.Rate()))
		totalCredit = totalCredit.Add(line.Credit.Mul(line.Rate()))
	}
	if !totalDebit.Round(2).Equal(totalCredit.Round(2)) {
		return ErrUnbalanced
	}
	return nil
}
