package model

import "github.com/shopspring/decimal"

// RootType classifies accounts under one of the five balance-sheet roots.
type RootType string

const (
	RootAsset     RootType = "Asset"
	RootLiability RootType = "Liability"
	RootEquity    RootType = "Equity"
	RootIncome    RootType = "Income"
	RootExpense   RootType = "Expense"
)

// AccountType marks accounts with ledger-significant behavior. Most accounts
// carry no type at all.
type AccountType string

const (
	AccountTypeNone       AccountType = ""
	AccountTypeReceivable AccountType = "Receivable"
	AccountTypePayable    AccountType = "Payable"
	AccountTypeBank       AccountType = "Bank"
	AccountTypeCash       AccountType = "Cash"
	AccountTypeTax        AccountType = "Tax"
)

// Account is a migrated ledger account.
//
// SourceID is the external identity used for resolution: the raw QuickBooks
// id for posting (leaf) accounts, "Group - <id>" for the group half of a
// group/leaf pair, and "TaxRate - <id>" for tax heads. Root accounts carry
// no SourceID.
type Account struct {
	SourceID string
	Name     string
	RootType RootType
	Type     AccountType
	Currency string
	Parent   string
	IsGroup  bool
	TaxRate  decimal.Decimal
}
