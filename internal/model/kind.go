package model

import "fmt"

// SourceKind enumerates the QuickBooks transaction kinds the engine migrates.
// Kinds at the end of the list have no structured API representation and are
// rebuilt from the General Ledger report.
type SourceKind int

const (
	KindInvoice SourceKind = iota
	KindCreditMemo
	KindSalesReceipt
	KindRefundReceipt
	KindJournalEntry
	KindBill
	KindVendorCredit
	KindPayment
	KindBillPayment
	KindPurchase
	KindDeposit
	KindSupplierCredit
	KindAdvancePayment
	KindTaxPayment
	KindSalesTaxPayment
	KindPurchaseTaxPayment
	KindInventoryAdjust
)

// QueryName returns the entity name used in API SELECT queries, or "" for
// kinds that are only present in the General Ledger report.
func (k SourceKind) QueryName() string {
	switch k {
	case KindInvoice:
		return "Invoice"
	case KindCreditMemo:
		return "CreditMemo"
	case KindSalesReceipt:
		return "SalesReceipt"
	case KindRefundReceipt:
		return "RefundReceipt"
	case KindJournalEntry:
		return "JournalEntry"
	case KindBill:
		return "Bill"
	case KindVendorCredit:
		return "VendorCredit"
	case KindPayment:
		return "Payment"
	case KindBillPayment:
		return "BillPayment"
	case KindPurchase:
		return "Purchase"
	case KindDeposit:
		return "Deposit"
	}
	return ""
}

// KeyPrefix returns the prefix used when deriving idempotency keys. The
// strings are load-bearing: they must match keys written by earlier runs
// byte for byte.
func (k SourceKind) KeyPrefix() string {
	switch k {
	case KindInvoice:
		return "Invoice"
	case KindCreditMemo:
		return "Credit Memo"
	case KindSalesReceipt:
		return "Sales Receipt"
	case KindRefundReceipt:
		return "Refund Receipt"
	case KindJournalEntry:
		return "Journal Entry"
	case KindBill:
		return "Bill"
	case KindVendorCredit:
		return "Vendor Credit"
	case KindPayment:
		return "Payment"
	case KindBillPayment:
		return "BillPayment"
	case KindPurchase:
		return "Purchase"
	case KindDeposit:
		return "Deposit"
	case KindSupplierCredit:
		return "Supplier Credit"
	case KindAdvancePayment:
		return "Advance Payment"
	case KindTaxPayment:
		return "Tax Payment"
	case KindSalesTaxPayment:
		return "Sales Tax Payment"
	case KindPurchaseTaxPayment:
		return "Purchase Tax Payment"
	case KindInventoryAdjust:
		return "Inventory Qty Adjust"
	}
	return "Unknown"
}

// Key derives the idempotency key for a source record of this kind.
func (k SourceKind) Key(externalID string) string {
	return fmt.Sprintf("%s - %s", k.KeyPrefix(), externalID)
}

// GLName returns the transaction type name this kind carries in the General
// Ledger report.
func (k SourceKind) GLName() string {
	if k == KindBillPayment {
		return "Bill Payment (Cheque)"
	}
	if name := k.QueryName(); name != "" {
		return name
	}
	return k.KeyPrefix()
}

func (k SourceKind) String() string { return k.KeyPrefix() }
