package transform

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// shippingItemID is the sentinel item id the source uses for the shipping
// line of a sales document. It never resolves to a real item.
const shippingItemID = "SHIPPING_ITEM_ID"

// groupTaxCode marks a line that inherits the document-level tax code.
const groupTaxCode = "TAX"

// SaveInvoice converts an invoice. Invoices linked to statement or reimburse
// charges list items only in the source UI, not in the API payload, so their
// balance effect is reproduced from the ledger report as a journal entry
// instead.
func (t *Transformer) SaveInvoice(raw qbo.Invoice) error {
	key := model.KindInvoice.Key(raw.ID)
	for _, linked := range raw.LinkedTxn {
		if linked.TxnType == "StatementCharge" || linked.TxnType == "ReimburseCharge" {
			return t.saveInvoiceAsJournalEntry(raw, key)
		}
	}
	return t.saveSalesInvoice(raw, key, false, false)
}

// SaveCreditMemo converts a credit memo into a return invoice.
func (t *Transformer) SaveCreditMemo(raw qbo.Invoice) error {
	return t.saveSalesInvoice(raw, model.KindCreditMemo.Key(raw.ID), true, false)
}

// SaveSalesReceipt converts a sales receipt into a point-of-sale invoice,
// settled on submission.
func (t *Transformer) SaveSalesReceipt(raw qbo.Invoice) error {
	return t.saveSalesInvoice(raw, model.KindSalesReceipt.Key(raw.ID), false, true)
}

// SaveRefundReceipt converts a refund receipt into a return point-of-sale
// invoice.
func (t *Transformer) SaveRefundReceipt(raw qbo.Invoice) error {
	return t.saveSalesInvoice(raw, model.KindRefundReceipt.Key(raw.ID), true, true)
}

func (t *Transformer) saveSalesInvoice(raw qbo.Invoice, key string, isReturn, isPOS bool) error {
	if _, ok := t.Store.SalesInvoiceByKey(key); ok {
		return nil
	}

	customer, ok := t.Store.CustomerBySourceID(raw.CustomerRef.Value)
	if !ok {
		return fmt.Errorf("%s: customer %s not migrated", key, raw.CustomerRef.Value)
	}

	items, err := t.salesItems(raw, isReturn)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	taxes, err := t.Taxes.Charges(raw.TxnTaxDetail)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	payments, err := t.invoicePayments(raw, isReturn, isPOS)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	postingDate, err := parseDate(raw.TxnDate, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	dueDate, err := parseDate(raw.DueDate, raw.TxnDate)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	inv := model.SalesInvoice{
		SourceKey:      key,
		Customer:       customer.Name,
		Currency:       raw.CurrencyRef.Value,
		ConversionRate: rateOrOne(raw.ExchangeRate),
		PostingDate:    postingDate,
		DueDate:        dueDate,
		DebitTo:        customer.ReceivableAccount,
		IsReturn:       isReturn,
		IsPOS:          isPOS,
		Items:          items,
		Taxes:          taxes,
		Payments:       payments,
	}

	if discount := discountLine(raw.Line); discount != nil {
		if raw.ApplyTaxAfterDiscount {
			inv.ApplyDiscountOn = "Net Total"
		} else {
			inv.ApplyDiscountOn = "Grand Total"
		}
		inv.DiscountAmount = *discount.DiscountLineDetail.Amount
	}

	_, err = t.Builder.SubmitSalesInvoice(inv)
	return err
}

// salesItems converts sale lines to invoice items. Zero-quantity lines are
// dropped, the shipping sentinel becomes a synthetic line posting to the
// shipping income account, and DescriptionOnly follower lines annotate the
// preceding item with a percentage margin.
func (t *Transformer) salesItems(raw qbo.Invoice, isReturn bool) ([]model.InvoiceItem, error) {
	var items []model.InvoiceItem
	for _, line := range raw.Line {
		switch {
		case line.DetailType == "SalesItemLineDetail" && line.SalesItemLineDetail != nil:
			detail := line.SalesItemLineDetail
			if detail.Qty.IsZero() && detail.ItemRef.Value != shippingItemID {
				continue
			}
			taxCode := t.lineTaxCode(detail.TaxCodeRef.Value, raw.TxnTaxDetail)
			itemTaxes, err := t.Taxes.ItemTaxes(taxCode)
			if err != nil {
				return nil, err
			}

			var item model.InvoiceItem
			if detail.ItemRef.Value != shippingItemID {
				stored, ok := t.Store.ItemByName(detail.ItemRef.Name)
				if !ok {
					return nil, fmt.Errorf("item %q not migrated", detail.ItemRef.Name)
				}
				description := line.Description
				if description == "" {
					description = detail.ItemRef.Name
				}
				item = model.InvoiceItem{
					ItemCode:    stored.Name,
					Description: description,
					Qty:         detail.Qty,
					Rate:        detail.UnitPrice,
					UOM:         stored.UOM,
					CostCenter:  t.Config.Defaults.CostCenter,
					ItemTaxes:   itemTaxes,
				}
			} else {
				expense, err := t.Accounts.AccountNameByID(fmt.Sprintf("TaxRate - %s", detail.TaxCodeRef.Value))
				if err != nil {
					return nil, fmt.Errorf("shipping line: %w", err)
				}
				item = model.InvoiceItem{
					ItemName:       "Shipping",
					Description:    "Shipping",
					Qty:            decimal.NewFromInt(1),
					Rate:           line.Amount,
					UOM:            "Unit",
					IncomeAccount:  t.shippingAccount,
					ExpenseAccount: expense,
					CostCenter:     t.Config.Defaults.CostCenter,
					ItemTaxes:      itemTaxes,
				}
			}
			if isReturn {
				item.Qty = item.Qty.Neg()
			}
			items = append(items, item)

		case line.DetailType == "DescriptionOnly" && len(items) > 0:
			margin, err := parseMargin(line.Description)
			if err != nil {
				return nil, err
			}
			items[len(items)-1].MarginPercent = margin
		}
	}
	return items, nil
}

// lineTaxCode picks the effective tax code for a line: its own code, unless
// it defers to the document-level code.
func (t *Transformer) lineTaxCode(lineCode string, detail qbo.TxnTaxDetail) string {
	if lineCode != groupTaxCode {
		return lineCode
	}
	if detail.TxnTaxCodeRef != nil {
		return detail.TxnTaxCodeRef.Value
	}
	return "NON"
}

func (t *Transformer) invoicePayments(raw qbo.Invoice, isReturn, isPOS bool) ([]model.InvoicePayment, error) {
	if !isPOS {
		return nil, nil
	}
	if raw.DepositToAccountRef == nil {
		return nil, fmt.Errorf("point-of-sale document has no deposit account")
	}
	account, err := t.Accounts.AccountNameByID(raw.DepositToAccountRef.Value)
	if err != nil {
		return nil, err
	}
	amount := raw.TotalAmt
	if isReturn {
		amount = amount.Neg()
	}
	return []model.InvoicePayment{{Mode: "Cash", Account: account, Amount: amount}}, nil
}

func discountLine(lines []qbo.InvoiceLine) *qbo.InvoiceLine {
	for i, line := range lines {
		if line.DetailType == "DiscountLineDetail" && line.DiscountLineDetail != nil && line.DiscountLineDetail.Amount != nil {
			return &lines[i]
		}
	}
	return nil
}

// parseMargin reads the leading percentage out of a margin annotation like
// "10% markup".
func parseMargin(description string) (decimal.Decimal, error) {
	head, _, found := strings.Cut(description, "%")
	if !found {
		return decimal.Decimal{}, fmt.Errorf("margin line %q has no percentage", description)
	}
	n, err := strconv.Atoi(strings.TrimSpace(head))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("margin line %q: %w", description, err)
	}
	return decimal.NewFromInt(int64(n)), nil
}

// saveInvoiceAsJournalEntry rebuilds an invoice's postings from the ledger
// report. Receivable legs are tagged with the invoice's customer so later
// payments can settle against them.
func (t *Transformer) saveInvoiceAsJournalEntry(raw qbo.Invoice, key string) error {
	if _, ok := t.Store.JournalEntryByKey(key); ok {
		return nil
	}

	tx, ok := t.GL.Transaction(model.KindInvoice.GLName(), raw.ID)
	if !ok {
		return fmt.Errorf("%s: no ledger report lines", key)
	}

	var lines []model.NormalizedLine
	for _, glLine := range tx.Lines {
		line := model.NormalizedLine{
			Account:    glLine.Account,
			Debit:      glLine.Debit,
			Credit:     glLine.Credit,
			CostCenter: t.Config.Defaults.CostCenter,
		}
		if t.accountHasType(glLine.Account, model.AccountTypeReceivable) {
			customer, ok := t.Store.CustomerBySourceID(raw.CustomerRef.Value)
			if !ok {
				return fmt.Errorf("%s: customer %s not migrated", key, raw.CustomerRef.Value)
			}
			line.PartyType = model.PartyCustomer
			line.Party = customer.Name
		}
		lines = append(lines, line)
	}

	postingDate, err := parseDate(raw.TxnDate, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	_, err = t.Builder.SubmitJournalEntry(key, postingDate, lines)
	return err
}
