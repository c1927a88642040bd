package model

import "github.com/shopspring/decimal"

// PartyType tags a posting line with the kind of counterparty it settles.
type PartyType string

const (
	PartyCustomer PartyType = "Customer"
	PartySupplier PartyType = "Supplier"
)

// LedgerLine is one flattened row of the General Ledger report, tagged with
// the account section it was found under. Amounts are as reported: Debit and
// Credit in transaction currency, DebitHome and CreditHome in the company's
// home currency.
type LedgerLine struct {
	Account      string
	Date         string
	TxnType      string
	TxnID        string
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Customer     string
	Vendor       string
	Memo         string
	Currency     string
	ExchangeRate decimal.Decimal
	DebitHome    decimal.Decimal
	CreditHome   decimal.Decimal
}

// NormalizedLine is one posting leg handed to the journal builder. Amounts
// are in the account's currency; ExchangeRate converts them to home currency
// (zero means 1).
type NormalizedLine struct {
	Account       string
	Debit         decimal.Decimal
	Credit        decimal.Decimal
	ExchangeRate  decimal.Decimal
	PartyType     PartyType
	Party         string
	ReferenceType string
	ReferenceName string
	CostCenter    string
	Remark        string
}

// Rate returns the line's exchange rate, defaulting to 1.
func (l NormalizedLine) Rate() decimal.Decimal {
	if l.ExchangeRate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return l.ExchangeRate
}
