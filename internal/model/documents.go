package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is a persisted double-entry record. SourceKey is the
// idempotency key derived from the source kind and external id.
type JournalEntry struct {
	SourceKey     string
	Company       string
	PostingDate   time.Time
	Lines         []NormalizedLine
	MultiCurrency bool
}

// ChargeType says how a tax charge row computes its amount.
type ChargeType string

const (
	ChargeOnNetTotal    ChargeType = "On Net Total"
	ChargeOnPreviousRow ChargeType = "On Previous Row Amount"
)

// TaxCharge is one ordered tax row on an invoice. RowID is the 1-based index
// of the parent row for ChargeOnPreviousRow charges; row numbering follows
// emission order, so the slice order is significant.
type TaxCharge struct {
	ChargeType  ChargeType
	RowID       int
	AccountHead string
	Rate        decimal.Decimal
	CostCenter  string
	Description string
}

// InvoiceItem is one item line on a sales or purchase invoice. Synthetic
// lines (shipping, account-based expenses) carry an ItemName and accounts
// instead of an ItemCode.
type InvoiceItem struct {
	ItemCode       string
	ItemName       string
	Description    string
	Qty            decimal.Decimal
	Rate           decimal.Decimal
	UOM            string
	IncomeAccount  string
	ExpenseAccount string
	CostCenter     string
	Warehouse      string
	MarginPercent  decimal.Decimal
	ItemTaxes      map[string]decimal.Decimal
}

// Amount returns the line amount including any margin annotation.
func (i InvoiceItem) Amount() decimal.Decimal {
	amount := i.Qty.Mul(i.Rate)
	if !i.MarginPercent.IsZero() {
		hundred := decimal.NewFromInt(100)
		amount = amount.Add(amount.Mul(i.MarginPercent).Div(hundred))
	}
	return amount
}

// InvoicePayment is a payment row settled at submission time (POS sales).
type InvoicePayment struct {
	Mode    string
	Account string
	Amount  decimal.Decimal
}

// SalesInvoice is a persisted structured sales document.
type SalesInvoice struct {
	SourceKey       string
	Company         string
	Customer        string
	Currency        string
	ConversionRate  decimal.Decimal
	PostingDate     time.Time
	DueDate         time.Time
	DebitTo         string
	IsReturn        bool
	IsPOS           bool
	Items           []InvoiceItem
	Taxes           []TaxCharge
	Payments        []InvoicePayment
	ApplyDiscountOn string
	DiscountAmount  decimal.Decimal
	GrandTotal      decimal.Decimal
	Outstanding     decimal.Decimal
}

// PurchaseInvoice is a persisted structured purchase document.
type PurchaseInvoice struct {
	SourceKey      string
	Company        string
	Supplier       string
	Currency       string
	ConversionRate decimal.Decimal
	PostingDate    time.Time
	DueDate        time.Time
	CreditTo       string
	IsReturn       bool
	Items          []InvoiceItem
	Taxes          []TaxCharge
	GrandTotal     decimal.Decimal
	Outstanding    decimal.Decimal
}

// Customer is a migrated customer record.
type Customer struct {
	SourceID          string
	Name              string
	Currency          string
	ReceivableAccount string
}

// Supplier is a migrated supplier record.
type Supplier struct {
	SourceID       string
	Name           string
	Currency       string
	PayableAccount string
}

// Item is a migrated stock or service item.
type Item struct {
	SourceID       string
	Name           string
	Description    string
	UOM            string
	IncomeAccount  string
	ExpenseAccount string
}
