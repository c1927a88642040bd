package store

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/booksbridge/booksbridge/internal/model"
)

// accountRecord is the persisted form of a ledger account.
type accountRecord struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	Company  string       `gorm:"not null;index;uniqueIndex:ux_accounts_company_name,priority:1"`
	SourceID string       `gorm:"index"`
	Name     string       `gorm:"not null;uniqueIndex:ux_accounts_company_name,priority:2"`
	RootType string       `gorm:"not null"`
	Type     string
	Currency string
	Parent   string
	IsGroup  bool
	TaxRate  string
}

func (accountRecord) TableName() string { return "accounts" }

// partyRecord persists customers and suppliers; Kind discriminates.
type partyRecord struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	Company  string       `gorm:"not null;index"`
	Kind     string       `gorm:"not null;uniqueIndex:ux_parties_kind_source,priority:1"`
	SourceID string       `gorm:"not null;uniqueIndex:ux_parties_kind_source,priority:2"`
	Name     string       `gorm:"not null"`
	Currency string
	Account  string
}

func (partyRecord) TableName() string { return "parties" }

// itemRecord is the persisted form of an item.
type itemRecord struct {
	ID       snowflake.ID `gorm:"primaryKey"`
	Company  string       `gorm:"not null;uniqueIndex:ux_items_company_name,priority:1"`
	SourceID string       `gorm:"index"`
	Name     string       `gorm:"not null;uniqueIndex:ux_items_company_name,priority:2"`
	Payload  datatypes.JSON
}

func (itemRecord) TableName() string { return "items" }

// documentRecord persists submitted documents; Kind discriminates journal
// entries from sales and purchase invoices, Payload holds the full document.
type documentRecord struct {
	ID        snowflake.ID `gorm:"primaryKey"`
	Company   string       `gorm:"not null;index"`
	Kind      string       `gorm:"not null;uniqueIndex:ux_documents_kind_key,priority:1"`
	SourceKey string       `gorm:"not null;uniqueIndex:ux_documents_kind_key,priority:2"`
	Payload   datatypes.JSON
}

func (documentRecord) TableName() string { return "documents" }

const (
	docJournalEntry    = "journal_entry"
	docSalesInvoice    = "sales_invoice"
	docPurchaseInvoice = "purchase_invoice"

	partyCustomer = "customer"
	partySupplier = "supplier"
)

// GormStore is a Store persisted to sqlite through gorm. It assumes the
// engine's single-writer run model; no row locking is used.
type GormStore struct {
	db      *gorm.DB
	node    *snowflake.Node
	company string
}

// OpenGorm opens (or creates) a sqlite-backed store for a company.
func OpenGorm(path, company string) (*GormStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening store db: %w", err)
	}
	if err := db.AutoMigrate(&accountRecord{}, &partyRecord{}, &itemRecord{}, &documentRecord{}); err != nil {
		return nil, fmt.Errorf("migrating store schema: %w", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("creating id node: %w", err)
	}
	return &GormStore{db: db, node: node, company: company}, nil
}

// InsertAccount persists an account.
func (s *GormStore) InsertAccount(a model.Account) error {
	if _, ok := s.AccountByName(a.Name); ok {
		return fmt.Errorf("account %q: %w", a.Name, ErrExists)
	}
	rec := accountRecord{
		ID:       s.node.Generate(),
		Company:  s.company,
		SourceID: a.SourceID,
		Name:     a.Name,
		RootType: string(a.RootType),
		Type:     string(a.Type),
		Currency: a.Currency,
		Parent:   a.Parent,
		IsGroup:  a.IsGroup,
		TaxRate:  a.TaxRate.String(),
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting account %q: %w", a.Name, err)
	}
	return nil
}

// AccountBySourceID looks up an account by external identity.
func (s *GormStore) AccountBySourceID(sourceID string) (model.Account, bool) {
	var rec accountRecord
	err := s.db.Where("company = ? AND source_id = ?", s.company, sourceID).First(&rec).Error
	if err != nil {
		return model.Account{}, false
	}
	return accountFromRecord(rec), true
}

// AccountByName looks up an account by ledger name.
func (s *GormStore) AccountByName(name string) (model.Account, bool) {
	var rec accountRecord
	err := s.db.Where("company = ? AND name = ?", s.company, name).First(&rec).Error
	if err != nil {
		return model.Account{}, false
	}
	return accountFromRecord(rec), true
}

// TaxAccountByRate returns the first tax-type account carrying the rate.
func (s *GormStore) TaxAccountByRate(rate decimal.Decimal) (model.Account, bool) {
	var recs []accountRecord
	err := s.db.Where("company = ? AND type = ?", s.company, string(model.AccountTypeTax)).
		Order("id").Find(&recs).Error
	if err != nil {
		return model.Account{}, false
	}
	for _, rec := range recs {
		if r, err := decimal.NewFromString(rec.TaxRate); err == nil && r.Equal(rate) {
			return accountFromRecord(rec), true
		}
	}
	return model.Account{}, false
}

// ReceivableAccountByCurrency returns the first receivable account in the
// given currency.
func (s *GormStore) ReceivableAccountByCurrency(currency string) (model.Account, bool) {
	return s.accountByTypeCurrency(model.AccountTypeReceivable, currency)
}

// PayableAccountByCurrency returns the first payable account in the given
// currency.
func (s *GormStore) PayableAccountByCurrency(currency string) (model.Account, bool) {
	return s.accountByTypeCurrency(model.AccountTypePayable, currency)
}

func (s *GormStore) accountByTypeCurrency(t model.AccountType, currency string) (model.Account, bool) {
	var rec accountRecord
	err := s.db.Where("company = ? AND type = ? AND currency = ? AND is_group = ?",
		s.company, string(t), currency, false).
		Order("id").First(&rec).Error
	if err != nil {
		return model.Account{}, false
	}
	return accountFromRecord(rec), true
}

func accountFromRecord(rec accountRecord) model.Account {
	rate, err := decimal.NewFromString(rec.TaxRate)
	if err != nil {
		rate = decimal.Zero
	}
	return model.Account{
		SourceID: rec.SourceID,
		Name:     rec.Name,
		RootType: model.RootType(rec.RootType),
		Type:     model.AccountType(rec.Type),
		Currency: rec.Currency,
		Parent:   rec.Parent,
		IsGroup:  rec.IsGroup,
		TaxRate:  rate,
	}
}

// InsertCustomer persists a customer.
func (s *GormStore) InsertCustomer(c model.Customer) error {
	if _, ok := s.party(partyCustomer, c.SourceID); ok {
		return fmt.Errorf("customer %s: %w", c.SourceID, ErrExists)
	}
	rec := partyRecord{
		ID:       s.node.Generate(),
		Company:  s.company,
		Kind:     partyCustomer,
		SourceID: c.SourceID,
		Name:     c.Name,
		Currency: c.Currency,
		Account:  c.ReceivableAccount,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting customer %s: %w", c.SourceID, err)
	}
	return nil
}

// CustomerBySourceID looks up a customer by external id.
func (s *GormStore) CustomerBySourceID(sourceID string) (model.Customer, bool) {
	rec, ok := s.party(partyCustomer, sourceID)
	if !ok {
		return model.Customer{}, false
	}
	return model.Customer{
		SourceID:          rec.SourceID,
		Name:              rec.Name,
		Currency:          rec.Currency,
		ReceivableAccount: rec.Account,
	}, true
}

// InsertSupplier persists a supplier.
func (s *GormStore) InsertSupplier(sp model.Supplier) error {
	if _, ok := s.party(partySupplier, sp.SourceID); ok {
		return fmt.Errorf("supplier %s: %w", sp.SourceID, ErrExists)
	}
	rec := partyRecord{
		ID:       s.node.Generate(),
		Company:  s.company,
		Kind:     partySupplier,
		SourceID: sp.SourceID,
		Name:     sp.Name,
		Currency: sp.Currency,
		Account:  sp.PayableAccount,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting supplier %s: %w", sp.SourceID, err)
	}
	return nil
}

// SupplierBySourceID looks up a supplier by external id.
func (s *GormStore) SupplierBySourceID(sourceID string) (model.Supplier, bool) {
	rec, ok := s.party(partySupplier, sourceID)
	if !ok {
		return model.Supplier{}, false
	}
	return model.Supplier{
		SourceID:       rec.SourceID,
		Name:           rec.Name,
		Currency:       rec.Currency,
		PayableAccount: rec.Account,
	}, true
}

func (s *GormStore) party(kind, sourceID string) (partyRecord, bool) {
	var rec partyRecord
	err := s.db.Where("company = ? AND kind = ? AND source_id = ?", s.company, kind, sourceID).
		First(&rec).Error
	if err != nil {
		return partyRecord{}, false
	}
	return rec, true
}

// InsertItem persists an item.
func (s *GormStore) InsertItem(i model.Item) error {
	if _, ok := s.ItemByName(i.Name); ok {
		return fmt.Errorf("item %q: %w", i.Name, ErrExists)
	}
	payload, err := json.Marshal(i)
	if err != nil {
		return fmt.Errorf("encoding item %q: %w", i.Name, err)
	}
	rec := itemRecord{
		ID:       s.node.Generate(),
		Company:  s.company,
		SourceID: i.SourceID,
		Name:     i.Name,
		Payload:  payload,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting item %q: %w", i.Name, err)
	}
	return nil
}

// ItemByName looks up an item by full name.
func (s *GormStore) ItemByName(name string) (model.Item, bool) {
	var rec itemRecord
	err := s.db.Where("company = ? AND name = ?", s.company, name).First(&rec).Error
	if err != nil {
		return model.Item{}, false
	}
	return itemFromRecord(rec)
}

// ItemBySourceID looks up an item by external id.
func (s *GormStore) ItemBySourceID(sourceID string) (model.Item, bool) {
	var rec itemRecord
	err := s.db.Where("company = ? AND source_id = ?", s.company, sourceID).First(&rec).Error
	if err != nil {
		return model.Item{}, false
	}
	return itemFromRecord(rec)
}

func itemFromRecord(rec itemRecord) (model.Item, bool) {
	var item model.Item
	if err := json.Unmarshal(rec.Payload, &item); err != nil {
		return model.Item{}, false
	}
	return item, true
}

// InsertJournalEntry validates and persists a journal entry.
func (s *GormStore) InsertJournalEntry(e model.JournalEntry) error {
	if err := ValidateBalanced(e.Lines); err != nil {
		return fmt.Errorf("journal entry %q: %w", e.SourceKey, err)
	}
	return s.insertDocument(docJournalEntry, e.SourceKey, e)
}

// JournalEntryByKey looks up a journal entry by source key.
func (s *GormStore) JournalEntryByKey(key string) (model.JournalEntry, bool) {
	var entry model.JournalEntry
	if !s.loadDocument(docJournalEntry, key, &entry) {
		return model.JournalEntry{}, false
	}
	return entry, true
}

// InsertSalesInvoice persists a sales invoice.
func (s *GormStore) InsertSalesInvoice(inv model.SalesInvoice) error {
	return s.insertDocument(docSalesInvoice, inv.SourceKey, inv)
}

// SalesInvoiceByKey looks up a sales invoice by source key.
func (s *GormStore) SalesInvoiceByKey(key string) (model.SalesInvoice, bool) {
	var inv model.SalesInvoice
	if !s.loadDocument(docSalesInvoice, key, &inv) {
		return model.SalesInvoice{}, false
	}
	return inv, true
}

// SettleSalesInvoice reduces an invoice's outstanding amount.
func (s *GormStore) SettleSalesInvoice(key string, amount decimal.Decimal) error {
	inv, ok := s.SalesInvoiceByKey(key)
	if !ok {
		return fmt.Errorf("sales invoice %q: %w", key, ErrNotFound)
	}
	inv.Outstanding = inv.Outstanding.Sub(amount)
	return s.updateDocument(docSalesInvoice, key, inv)
}

// InsertPurchaseInvoice persists a purchase invoice.
func (s *GormStore) InsertPurchaseInvoice(inv model.PurchaseInvoice) error {
	return s.insertDocument(docPurchaseInvoice, inv.SourceKey, inv)
}

// PurchaseInvoiceByKey looks up a purchase invoice by source key.
func (s *GormStore) PurchaseInvoiceByKey(key string) (model.PurchaseInvoice, bool) {
	var inv model.PurchaseInvoice
	if !s.loadDocument(docPurchaseInvoice, key, &inv) {
		return model.PurchaseInvoice{}, false
	}
	return inv, true
}

// SettlePurchaseInvoice reduces an invoice's outstanding amount.
func (s *GormStore) SettlePurchaseInvoice(key string, amount decimal.Decimal) error {
	inv, ok := s.PurchaseInvoiceByKey(key)
	if !ok {
		return fmt.Errorf("purchase invoice %q: %w", key, ErrNotFound)
	}
	inv.Outstanding = inv.Outstanding.Sub(amount)
	return s.updateDocument(docPurchaseInvoice, key, inv)
}

func (s *GormStore) insertDocument(kind, key string, doc any) error {
	var existing documentRecord
	err := s.db.Where("company = ? AND kind = ? AND source_key = ?", s.company, kind, key).
		First(&existing).Error
	if err == nil {
		return fmt.Errorf("%s %q: %w", kind, key, ErrExists)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("checking %s %q: %w", kind, key, err)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %q: %w", kind, key, err)
	}
	rec := documentRecord{
		ID:        s.node.Generate(),
		Company:   s.company,
		Kind:      kind,
		SourceKey: key,
		Payload:   payload,
	}
	if err := s.db.Create(&rec).Error; err != nil {
		return fmt.Errorf("inserting %s %q: %w", kind, key, err)
	}
	return nil
}

func (s *GormStore) loadDocument(kind, key string, out any) bool {
	var rec documentRecord
	err := s.db.Where("company = ? AND kind = ? AND source_key = ?", s.company, kind, key).
		First(&rec).Error
	if err != nil {
		return false
	}
	return json.Unmarshal(rec.Payload, out) == nil
}

func (s *GormStore) updateDocument(kind, key string, doc any) error {
	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s %q: %w", kind, key, err)
	}
	err = s.db.Model(&documentRecord{}).
		Where("company = ? AND kind = ? AND source_key = ?", s.company, kind, key).
		Update("payload", datatypes.JSON(payload)).Error
	if err != nil {
		return fmt.Errorf("updating %s %q: %w", kind, key, err)
	}
	return nil
}
