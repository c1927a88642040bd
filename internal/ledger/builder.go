// Package ledger turns normalized posting lines and structured documents into
// persisted ledger records. Submission is idempotent on source key: a record
// that already exists is skipped, never updated.
package ledger

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/store"
)

// Result reports what a submission did.
type Result int

const (
	// Created means a new record was persisted.
	Created Result = iota
	// AlreadyExists means a record with the same source key was found and
	// the submission was skipped.
	AlreadyExists
)

var hundred = decimal.NewFromInt(100)

// Builder submits documents for one company.
type Builder struct {
	store   store.Store
	company string
	log     *zap.Logger
}

// NewBuilder creates a builder writing to the given store.
func NewBuilder(s store.Store, company string, log *zap.Logger) *Builder {
	return &Builder{store: s, company: company, log: log}
}

// SubmitJournalEntry persists a journal entry built from normalized lines.
// Balance is not checked here; the store validates on insert and an
// unbalanced entry surfaces as its error.
func (b *Builder) SubmitJournalEntry(key string, postingDate time.Time, lines []model.NormalizedLine) (Result, error) {
	if _, ok := b.store.JournalEntryByKey(key); ok {
		b.log.Debug("journal entry already migrated", zap.String("key", key))
		return AlreadyExists, nil
	}

	entry := model.JournalEntry{
		SourceKey:     key,
		Company:       b.company,
		PostingDate:   postingDate,
		Lines:         lines,
		MultiCurrency: multiCurrency(lines),
	}
	if err := b.store.InsertJournalEntry(entry); err != nil {
		return 0, fmt.Errorf("submitting journal entry %q: %w", key, err)
	}
	b.log.Info("journal entry created", zap.String("key", key), zap.Int("lines", len(lines)))
	return Created, nil
}

// SubmitSalesInvoice totals and persists a sales invoice. GrandTotal and
// Outstanding are computed here; callers fill everything else.
func (b *Builder) SubmitSalesInvoice(inv model.SalesInvoice) (Result, error) {
	if _, ok := b.store.SalesInvoiceByKey(inv.SourceKey); ok {
		b.log.Debug("sales invoice already migrated", zap.String("key", inv.SourceKey))
		return AlreadyExists, nil
	}

	inv.Company = b.company
	inv.GrandTotal = grandTotal(inv.Items, inv.Taxes, inv.DiscountAmount)

	paid := decimal.Zero
	for _, p := range inv.Payments {
		paid = paid.Add(p.Amount)
	}
	inv.Outstanding = inv.GrandTotal.Sub(paid)

	if err := b.store.InsertSalesInvoice(inv); err != nil {
		return 0, fmt.Errorf("submitting sales invoice %q: %w", inv.SourceKey, err)
	}
	b.log.Info("sales invoice created",
		zap.String("key", inv.SourceKey),
		zap.String("grand_total", inv.GrandTotal.String()))
	return Created, nil
}

// SubmitPurchaseInvoice totals and persists a purchase invoice.
func (b *Builder) SubmitPurchaseInvoice(inv model.PurchaseInvoice) (Result, error) {
	if _, ok := b.store.PurchaseInvoiceByKey(inv.SourceKey); ok {
		b.log.Debug("purchase invoice already migrated", zap.String("key", inv.SourceKey))
		return AlreadyExists, nil
	}

	inv.Company = b.company
	inv.GrandTotal = grandTotal(inv.Items, inv.Taxes, decimal.Zero)
	inv.Outstanding = inv.GrandTotal

	if err := b.store.InsertPurchaseInvoice(inv); err != nil {
		return 0, fmt.Errorf("submitting purchase invoice %q: %w", inv.SourceKey, err)
	}
	b.log.Info("purchase invoice created",
		zap.String("key", inv.SourceKey),
		zap.String("grand_total", inv.GrandTotal.String()))
	return Created, nil
}

// grandTotal is net items plus evaluated tax rows minus discount, rounded to
// two decimal places. Tax rows are evaluated in order so On Previous Row
// charges can reference earlier rows by their 1-based id.
func grandTotal(items []model.InvoiceItem, taxes []model.TaxCharge, discount decimal.Decimal) decimal.Decimal {
	net := decimal.Zero
	for _, item := range items {
		net = net.Add(item.Amount())
	}

	total := net
	rowAmounts := make([]decimal.Decimal, 0, len(taxes))
	for _, tax := range taxes {
		var amount decimal.Decimal
		switch tax.ChargeType {
		case model.ChargeOnPreviousRow:
			if tax.RowID >= 1 && tax.RowID <= len(rowAmounts) {
				amount = rowAmounts[tax.RowID-1].Mul(tax.Rate).Div(hundred)
			}
		default:
			amount = net.Mul(tax.Rate).Div(hundred)
		}
		rowAmounts = append(rowAmounts, amount)
		total = total.Add(amount)
	}

	return total.Sub(discount).Round(2)
}

func multiCurrency(lines []model.NormalizedLine) bool {
	one := decimal.NewFromInt(1)
	for _, line := range lines {
		if !line.ExchangeRate.IsZero() && !line.ExchangeRate.Equal(one) {
			return true
		}
	}
	return false
}
