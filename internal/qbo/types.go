package qbo

import "github.com/shopspring/decimal"

// Ref is the ubiquitous {value, name} reference shape of the API.
type Ref struct {
	Value string `json:"value"`
	Name  string `json:"name"`
}

// RawAccount is an account record as returned by the query API.
type RawAccount struct {
	ID             string `json:"Id"`
	Name           string `json:"Name"`
	SubAccount     bool   `json:"SubAccount"`
	ParentRef      Ref    `json:"ParentRef"`
	AccountType    string `json:"AccountType"`
	AccountSubType string `json:"AccountSubType"`
	CurrencyRef    Ref    `json:"CurrencyRef"`
}

// RawTaxRate is a tax rate record.
type RawTaxRate struct {
	ID        string          `json:"Id"`
	Name      string          `json:"Name"`
	RateValue decimal.Decimal `json:"RateValue"`
}

// TaxRateDetail is one rate reference inside a tax code's rate list.
// TaxOrder and TaxOnTaxOrder encode cascading ("tax-on-tax") dependencies.
type TaxRateDetail struct {
	TaxRateRef        Ref    `json:"TaxRateRef"`
	TaxTypeApplicable string `json:"TaxTypeApplicable"`
	TaxOrder          *int   `json:"TaxOrder"`
	TaxOnTaxOrder     *int   `json:"TaxOnTaxOrder"`
}

// TaxRateList wraps the ordered rate details of one applicability direction.
type TaxRateList struct {
	TaxRateDetail []TaxRateDetail `json:"TaxRateDetail"`
}

// RawTaxCode is a tax code record with its sales and purchase rate lists.
type RawTaxCode struct {
	ID                  string       `json:"Id"`
	Name                string       `json:"Name"`
	SalesTaxRateList    *TaxRateList `json:"SalesTaxRateList"`
	PurchaseTaxRateList *TaxRateList `json:"PurchaseTaxRateList"`
}

// RawCustomer is a customer record.
type RawCustomer struct {
	ID          string `json:"Id"`
	DisplayName string `json:"DisplayName"`
	CurrencyRef Ref    `json:"CurrencyRef"`
}

// RawVendor is a vendor record.
type RawVendor struct {
	ID          string `json:"Id"`
	DisplayName string `json:"DisplayName"`
	CurrencyRef Ref    `json:"CurrencyRef"`
}

// RawItem is an item record.
type RawItem struct {
	ID                 string `json:"Id"`
	Type               string `json:"Type"`
	FullyQualifiedName string `json:"FullyQualifiedName"`
	Description        string `json:"Description"`
	IncomeAccountRef   *Ref   `json:"IncomeAccountRef"`
	ExpenseAccountRef  *Ref   `json:"ExpenseAccountRef"`
}

// RawPreferences carries the company preference record; only the sales-form
// shipping default matters to the migration.
type RawPreferences struct {
	SalesFormsPrefs struct {
		AllowShipping          bool   `json:"AllowShipping"`
		DefaultShippingAccount string `json:"DefaultShippingAccount"`
	} `json:"SalesFormsPrefs"`
}

// LinkedTxn links a record to another transaction.
type LinkedTxn struct {
	TxnID   string `json:"TxnId"`
	TxnType string `json:"TxnType"`
}

// TaxLine is one computed tax amount on a transaction.
type TaxLine struct {
	Amount        decimal.Decimal `json:"Amount"`
	TaxLineDetail struct {
		TaxRateRef Ref             `json:"TaxRateRef"`
		TaxPercent decimal.Decimal `json:"TaxPercent"`
	} `json:"TaxLineDetail"`
}

// TxnTaxDetail carries a transaction's tax code and computed tax lines.
type TxnTaxDetail struct {
	TxnTaxCodeRef *Ref      `json:"TxnTaxCodeRef"`
	TaxLine       []TaxLine `json:"TaxLine"`
}

// SalesItemLineDetail describes an item line on a sales-side document.
type SalesItemLineDetail struct {
	ItemRef    Ref             `json:"ItemRef"`
	Qty        decimal.Decimal `json:"Qty"`
	UnitPrice  decimal.Decimal `json:"UnitPrice"`
	TaxCodeRef Ref             `json:"TaxCodeRef"`
}

// DiscountLineDetail describes a document-level discount line.
type DiscountLineDetail struct {
	Amount *decimal.Decimal `json:"Amount"`
}

// InvoiceLine is one detail line of a sales-side document.
type InvoiceLine struct {
	DetailType          string               `json:"DetailType"`
	Amount              decimal.Decimal      `json:"Amount"`
	Description         string               `json:"Description"`
	SalesItemLineDetail *SalesItemLineDetail `json:"SalesItemLineDetail"`
	DiscountLineDetail  *DiscountLineDetail  `json:"DiscountLineDetail"`
}

// Invoice covers Invoice, CreditMemo, SalesReceipt and RefundReceipt records;
// the kinds share one line shape and differ only in return/POS semantics.
type Invoice struct {
	ID                    string          `json:"Id"`
	CurrencyRef           Ref             `json:"CurrencyRef"`
	ExchangeRate          decimal.Decimal `json:"ExchangeRate"`
	TxnDate               string          `json:"TxnDate"`
	DueDate               string          `json:"DueDate"`
	CustomerRef           Ref             `json:"CustomerRef"`
	DepositToAccountRef   *Ref            `json:"DepositToAccountRef"`
	Line                  []InvoiceLine   `json:"Line"`
	TxnTaxDetail          TxnTaxDetail    `json:"TxnTaxDetail"`
	LinkedTxn             []LinkedTxn     `json:"LinkedTxn"`
	ApplyTaxAfterDiscount bool            `json:"ApplyTaxAfterDiscount"`
	TotalAmt              decimal.Decimal `json:"TotalAmt"`
}

// ItemBasedExpenseLineDetail describes an item line on a purchase-side
// document.
type ItemBasedExpenseLineDetail struct {
	ItemRef    Ref             `json:"ItemRef"`
	Qty        decimal.Decimal `json:"Qty"`
	UnitPrice  decimal.Decimal `json:"UnitPrice"`
	TaxCodeRef Ref             `json:"TaxCodeRef"`
}

// AccountBasedExpenseLineDetail describes an expense line posted straight to
// an account.
type AccountBasedExpenseLineDetail struct {
	AccountRef Ref `json:"AccountRef"`
	TaxCodeRef Ref `json:"TaxCodeRef"`
}

// PurchaseLine is one detail line of a purchase-side document.
type PurchaseLine struct {
	DetailType                    string                         `json:"DetailType"`
	Amount                        decimal.Decimal                `json:"Amount"`
	Description                   string                         `json:"Description"`
	ItemBasedExpenseLineDetail    *ItemBasedExpenseLineDetail    `json:"ItemBasedExpenseLineDetail"`
	AccountBasedExpenseLineDetail *AccountBasedExpenseLineDetail `json:"AccountBasedExpenseLineDetail"`
}

// Bill covers Bill and VendorCredit records.
type Bill struct {
	ID           string          `json:"Id"`
	CurrencyRef  Ref             `json:"CurrencyRef"`
	ExchangeRate decimal.Decimal `json:"ExchangeRate"`
	TxnDate      string          `json:"TxnDate"`
	DueDate      string          `json:"DueDate"`
	VendorRef    Ref             `json:"VendorRef"`
	APAccountRef Ref             `json:"APAccountRef"`
	Line         []PurchaseLine  `json:"Line"`
	TxnTaxDetail TxnTaxDetail    `json:"TxnTaxDetail"`
}

// JournalEntryLineDetail describes one posting of a manual journal entry.
type JournalEntryLineDetail struct {
	PostingType string `json:"PostingType"`
	AccountRef  Ref    `json:"AccountRef"`
	Entity      *struct {
		Type      string `json:"Type"`
		EntityRef Ref    `json:"EntityRef"`
	} `json:"Entity"`
}

// JournalLine is one detail line of a manual journal entry.
type JournalLine struct {
	DetailType             string                  `json:"DetailType"`
	Amount                 decimal.Decimal         `json:"Amount"`
	Description            string                  `json:"Description"`
	JournalEntryLineDetail *JournalEntryLineDetail `json:"JournalEntryLineDetail"`
}

// JournalEntry is a manual journal entry record.
type JournalEntry struct {
	ID           string          `json:"Id"`
	CurrencyRef  Ref             `json:"CurrencyRef"`
	ExchangeRate decimal.Decimal `json:"ExchangeRate"`
	TxnDate      string          `json:"TxnDate"`
	Line         []JournalLine   `json:"Line"`
	TxnTaxDetail TxnTaxDetail    `json:"TxnTaxDetail"`
}

// PaymentLine links an applied amount to the transactions it settles.
type PaymentLine struct {
	Amount    decimal.Decimal `json:"Amount"`
	LinkedTxn []LinkedTxn     `json:"LinkedTxn"`
}

// Payment is a customer payment record.
type Payment struct {
	ID                  string          `json:"Id"`
	CurrencyRef         Ref             `json:"CurrencyRef"`
	ExchangeRate        decimal.Decimal `json:"ExchangeRate"`
	TxnDate             string          `json:"TxnDate"`
	TotalAmt            decimal.Decimal `json:"TotalAmt"`
	DepositToAccountRef *Ref            `json:"DepositToAccountRef"`
	Line                []PaymentLine   `json:"Line"`
}

// BillPayment is a vendor payment record; PayType selects which bank or card
// account absorbs the credit leg.
type BillPayment struct {
	ID           string          `json:"Id"`
	CurrencyRef  Ref             `json:"CurrencyRef"`
	ExchangeRate decimal.Decimal `json:"ExchangeRate"`
	TxnDate      string          `json:"TxnDate"`
	TotalAmt     decimal.Decimal `json:"TotalAmt"`
	PayType      string          `json:"PayType"`
	CheckPayment *struct {
		BankAccountRef *Ref `json:"BankAccountRef"`
	} `json:"CheckPayment"`
	CreditCardPayment *struct {
		CCAccountRef *Ref `json:"CCAccountRef"`
	} `json:"CreditCardPayment"`
	Line []PaymentLine `json:"Line"`
}

// Purchase is a direct expense or disbursement record. Credit marks a refund
// that flips every posting.
type Purchase struct {
	ID           string          `json:"Id"`
	AccountRef   Ref             `json:"AccountRef"`
	CurrencyRef  Ref             `json:"CurrencyRef"`
	ExchangeRate decimal.Decimal `json:"ExchangeRate"`
	TxnDate      string          `json:"TxnDate"`
	TotalAmt     decimal.Decimal `json:"TotalAmt"`
	Credit       bool            `json:"Credit"`
	PrivateNote  string          `json:"PrivateNote"`
	Line         []PurchaseLine  `json:"Line"`
	TxnTaxDetail *TxnTaxDetail   `json:"TxnTaxDetail"`
}

// DepositLineDetail describes a deposit line not linked to a prior
// transaction.
type DepositLineDetail struct {
	AccountRef Ref `json:"AccountRef"`
	Entity     *struct {
		Type string `json:"Type"`
		Name string `json:"Name"`
	} `json:"Entity"`
}

// DepositLine is one detail line of a deposit.
type DepositLine struct {
	Amount            decimal.Decimal    `json:"Amount"`
	Description       string             `json:"Description"`
	LinkedTxn         []LinkedTxn        `json:"LinkedTxn"`
	DepositLineDetail *DepositLineDetail `json:"DepositLineDetail"`
}

// Deposit is a bank deposit record.
type Deposit struct {
	ID                  string          `json:"Id"`
	DepositToAccountRef Ref             `json:"DepositToAccountRef"`
	CurrencyRef         Ref             `json:"CurrencyRef"`
	ExchangeRate        decimal.Decimal `json:"ExchangeRate"`
	TxnDate             string          `json:"TxnDate"`
	TotalAmt            decimal.Decimal `json:"TotalAmt"`
	PrivateNote         string          `json:"PrivateNote"`
	Line                []DepositLine   `json:"Line"`
	CashBack            *struct {
		AccountRef Ref             `json:"AccountRef"`
		Amount     decimal.Decimal `json:"Amount"`
	} `json:"CashBack"`
}
