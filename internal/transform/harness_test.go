package transform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/ledger"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/resolve"
	"github.com/booksbridge/booksbridge/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type harness struct {
	*Transformer
	store    *store.MemStore
	accounts *resolve.AccountResolver
	taxes    *resolve.TaxResolver
	cfg      *config.Config
}

// newHarness builds a transformer over an in-memory store with a small GBP
// chart: receivable, payable, bank, income, expense, tax and undeposited
// funds accounts, plus a USD receivable for multi-currency cases.
func newHarness(t *testing.T) *harness {
	t.Helper()

	cfg := &config.Config{
		Company: config.CompanyConfig{Name: "Acme", Abbr: "A", HomeCurrency: "GBP"},
		Defaults: config.DefaultsConfig{
			CostCenter:            "Main - A",
			ShippingIncomeAccount: "Freight Income - A",
		},
	}
	s := store.NewMemStore("Acme")
	log := zap.NewNop()
	accounts := resolve.NewAccountResolver(s, cfg, log)
	require.NoError(t, accounts.CreateRoots())

	chart := []qbo.RawAccount{
		{ID: "20", Name: "Debtors", AccountType: "Accounts Receivable", CurrencyRef: qbo.Ref{Value: "GBP"}},
		{ID: "21", Name: "Debtors USD", AccountType: "Accounts Receivable", CurrencyRef: qbo.Ref{Value: "USD"}},
		{ID: "30", Name: "Creditors", AccountType: "Accounts Payable", CurrencyRef: qbo.Ref{Value: "GBP"}},
		{ID: "40", Name: "Current", AccountType: "Bank", CurrencyRef: qbo.Ref{Value: "GBP"}},
		{ID: "41", Name: "Current USD", AccountType: "Bank", CurrencyRef: qbo.Ref{Value: "USD"}},
		{ID: "35", Name: "Sales", AccountType: "Income", CurrencyRef: qbo.Ref{Value: "GBP"}},
		{ID: "50", Name: "Rent", AccountType: "Expense", CurrencyRef: qbo.Ref{Value: "GBP"}},
		{ID: "60", Name: "Undeposited Funds", AccountType: "Other Current Asset", AccountSubType: "UndepositedFunds", CurrencyRef: qbo.Ref{Value: "GBP"}},
	}
	for _, p := range accounts.Preprocess(chart) {
		require.NoError(t, accounts.SaveAccount(p))
	}
	require.NoError(t, accounts.SaveTaxRateAccount(qbo.RawTaxRate{ID: "3", Name: "VAT 20%", RateValue: dec("20")}))

	taxes := resolve.NewTaxResolver(s, accounts, cfg)
	taxes.SetRates([]qbo.RawTaxRate{{ID: "3", Name: "VAT 20%", RateValue: dec("20")}})
	taxes.SetCodes([]qbo.RawTaxCode{{
		ID: "7",
		SalesTaxRateList: &qbo.TaxRateList{TaxRateDetail: []qbo.TaxRateDetail{
			{TaxRateRef: qbo.Ref{Value: "3"}, TaxTypeApplicable: "TaxOnAmount"},
		}},
	}})

	tr := New(Context{
		Config:   cfg,
		Store:    s,
		Builder:  ledger.NewBuilder(s, "Acme", log),
		Accounts: accounts,
		Taxes:    taxes,
		Log:      log,
	})
	h := &harness{Transformer: tr, store: s, accounts: accounts, taxes: taxes, cfg: cfg}

	require.NoError(t, h.SaveCustomer(qbo.RawCustomer{ID: "9", DisplayName: "Acme Ltd", CurrencyRef: qbo.Ref{Value: "GBP"}}))
	require.NoError(t, h.SaveCustomer(qbo.RawCustomer{ID: "10", DisplayName: "Far Away Inc", CurrencyRef: qbo.Ref{Value: "USD"}}))
	require.NoError(t, h.SaveSupplier(qbo.RawVendor{ID: "5", DisplayName: "Acme Supplies", CurrencyRef: qbo.Ref{Value: "GBP"}}))
	require.NoError(t, h.SaveItem(qbo.RawItem{
		ID: "100", Type: "Service", FullyQualifiedName: "Widget",
		IncomeAccountRef:  &qbo.Ref{Value: "35"},
		ExpenseAccountRef: &qbo.Ref{Value: "50"},
	}))
	return h
}

// accountName resolves a source account id to its ledger name, failing the
// test on a miss.
func (h *harness) accountName(t *testing.T, id string) string {
	t.Helper()
	name, err := h.accounts.AccountNameByID(id)
	require.NoError(t, err)
	return name
}

func lineFor(entry model.JournalEntry, account string) (model.NormalizedLine, bool) {
	for _, line := range entry.Lines {
		if line.Account == account {
			return line, true
		}
	}
	return model.NormalizedLine{}, false
}
