package transform

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// SaveCustomer creates a customer, attaching the first receivable account in
// the customer's currency if the chart has one.
func (t *Transformer) SaveCustomer(raw qbo.RawCustomer) error {
	if _, ok := t.Store.CustomerBySourceID(raw.ID); ok {
		return nil
	}

	var receivable string
	if account, ok := t.Store.ReceivableAccountByCurrency(raw.CurrencyRef.Value); ok {
		receivable = account.Name
	}
	err := t.Store.InsertCustomer(model.Customer{
		SourceID:          raw.ID,
		Name:              raw.DisplayName,
		Currency:          raw.CurrencyRef.Value,
		ReceivableAccount: receivable,
	})
	if err != nil {
		return fmt.Errorf("customer %s: %w", raw.ID, err)
	}
	return nil
}

// SaveSupplier creates a supplier, attaching the first payable account in the
// supplier's currency if the chart has one.
func (t *Transformer) SaveSupplier(raw qbo.RawVendor) error {
	if _, ok := t.Store.SupplierBySourceID(raw.ID); ok {
		return nil
	}

	var payable string
	if account, ok := t.Store.PayableAccountByCurrency(raw.CurrencyRef.Value); ok {
		payable = account.Name
	}
	err := t.Store.InsertSupplier(model.Supplier{
		SourceID:       raw.ID,
		Name:           raw.DisplayName,
		Currency:       raw.CurrencyRef.Value,
		PayableAccount: payable,
	})
	if err != nil {
		return fmt.Errorf("supplier %s: %w", raw.ID, err)
	}
	return nil
}

// SaveItem creates an item. Only Service and Inventory items are migrated;
// categories and bundles never appear on document lines.
func (t *Transformer) SaveItem(raw qbo.RawItem) error {
	if raw.Type != "Service" && raw.Type != "Inventory" {
		return nil
	}
	if _, ok := t.Store.ItemByName(raw.FullyQualifiedName); ok {
		return nil
	}

	description := raw.Description
	if description == "" {
		description = raw.FullyQualifiedName
	}
	item := model.Item{
		SourceID:    raw.ID,
		Name:        raw.FullyQualifiedName,
		Description: description,
		UOM:         "Unit",
	}
	if raw.ExpenseAccountRef != nil {
		name, err := t.Accounts.AccountNameByID(raw.ExpenseAccountRef.Value)
		if err != nil {
			return fmt.Errorf("item %s: %w", raw.ID, err)
		}
		item.ExpenseAccount = name
	}
	if raw.IncomeAccountRef != nil {
		name, err := t.Accounts.AccountNameByID(raw.IncomeAccountRef.Value)
		if err != nil {
			return fmt.Errorf("item %s: %w", raw.ID, err)
		}
		item.IncomeAccount = name
	}
	if err := t.Store.InsertItem(item); err != nil {
		return fmt.Errorf("item %s: %w", raw.ID, err)
	}
	return nil
}

// SavePreferences picks the shipping income account out of the company
// preference record, replacing the configured default.
func (t *Transformer) SavePreferences(raw qbo.RawPreferences) error {
	if !raw.SalesFormsPrefs.AllowShipping {
		return nil
	}
	name, err := t.Accounts.AccountNameByID(raw.SalesFormsPrefs.DefaultShippingAccount)
	if err != nil {
		return fmt.Errorf("shipping account: %w", err)
	}
	t.shippingAccount = name
	t.Log.Info("shipping income account set", zap.String("account", name))
	return nil
}
