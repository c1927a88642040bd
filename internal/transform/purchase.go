package transform

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// SaveBill converts a bill into a purchase invoice.
func (t *Transformer) SaveBill(raw qbo.Bill) error {
	return t.savePurchaseInvoice(raw, model.KindBill.Key(raw.ID), false)
}

// SaveVendorCredit converts a vendor credit into a return purchase invoice.
func (t *Transformer) SaveVendorCredit(raw qbo.Bill) error {
	return t.savePurchaseInvoice(raw, model.KindVendorCredit.Key(raw.ID), true)
}

func (t *Transformer) savePurchaseInvoice(raw qbo.Bill, key string, isReturn bool) error {
	if _, ok := t.Store.PurchaseInvoiceByKey(key); ok {
		return nil
	}

	creditTo, err := t.Accounts.AccountNameByID(raw.APAccountRef.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	supplier, ok := t.Store.SupplierBySourceID(raw.VendorRef.Value)
	if !ok {
		return fmt.Errorf("%s: supplier %s not migrated", key, raw.VendorRef.Value)
	}

	items, err := t.purchaseItems(raw, isReturn)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	taxes, err := t.Taxes.Charges(raw.TxnTaxDetail)
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

	_, err = t.Builder.SubmitPurchaseInvoice(model.PurchaseInvoice{
		SourceKey:      key,
		Supplier:       supplier.Name,
		Currency:       raw.CurrencyRef.Value,
		ConversionRate: rateOrOne(raw.ExchangeRate),
		PostingDate:    postingDate,
		DueDate:        dueDate,
		CreditTo:       creditTo,
		IsReturn:       isReturn,
		Items:          items,
		Taxes:          taxes,
	})
	return err
}

// purchaseItems converts bill lines to invoice items. Item lines resolve to
// migrated items; account lines become synthetic one-quantity items posting
// straight to the expense account.
func (t *Transformer) purchaseItems(raw qbo.Bill, isReturn bool) ([]model.InvoiceItem, error) {
	var items []model.InvoiceItem
	for _, line := range raw.Line {
		var item model.InvoiceItem
		switch {
		case line.DetailType == "ItemBasedExpenseLineDetail" && line.ItemBasedExpenseLineDetail != nil:
			detail := line.ItemBasedExpenseLineDetail
			if detail.Qty.IsZero() {
				continue
			}
			itemTaxes, err := t.Taxes.ItemTaxes(t.lineTaxCode(detail.TaxCodeRef.Value, raw.TxnTaxDetail))
			if err != nil {
				return nil, err
			}
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

		case line.DetailType == "AccountBasedExpenseLineDetail" && line.AccountBasedExpenseLineDetail != nil:
			detail := line.AccountBasedExpenseLineDetail
			itemTaxes, err := t.Taxes.ItemTaxes(t.lineTaxCode(detail.TaxCodeRef.Value, raw.TxnTaxDetail))
			if err != nil {
				return nil, err
			}
			expense, err := t.Accounts.AccountNameByID(detail.AccountRef.Value)
			if err != nil {
				return nil, err
			}
			name := line.Description
			if name == "" {
				name = detail.AccountRef.Name
			}
			item = model.InvoiceItem{
				ItemName:       name,
				Description:    name,
				Qty:            decimal.NewFromInt(1),
				Rate:           line.Amount,
				UOM:            "Unit",
				ExpenseAccount: expense,
				CostCenter:     t.Config.Defaults.CostCenter,
				ItemTaxes:      itemTaxes,
			}

		default:
			continue
		}

		if isReturn {
			item.Qty = item.Qty.Neg()
		}
		items = append(items, item)
	}
	return items, nil
}
