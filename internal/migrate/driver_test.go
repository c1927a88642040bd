package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/progress"
	"github.com/booksbridge/booksbridge/internal/report"
	"github.com/booksbridge/booksbridge/internal/store"
)

type fakeSource struct {
	records map[string][]json.RawMessage
	fail    map[string]error
	gl      *report.Report
}

func (f *fakeSource) FetchAll(_ context.Context, entity string) ([]json.RawMessage, error) {
	if err := f.fail[entity]; err != nil {
		return nil, err
	}
	return f.records[entity], nil
}

func (f *fakeSource) GeneralLedger(context.Context) (*report.Report, error) {
	return f.gl, nil
}

type fakeFiscal struct {
	from time.Time
}

func (f *fakeFiscal) EnsureCoverage(from time.Time) error {
	f.from = from
	return nil
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func testConfig() *config.Config {
	return &config.Config{
		Company: config.CompanyConfig{Name: "Acme", Abbr: "A", HomeCurrency: "GBP"},
		Defaults: config.DefaultsConfig{
			CostCenter:            "Main - A",
			ShippingIncomeAccount: "Freight Income - A",
		},
		AccountRenames: map[string]string{
			"Debtors - QB - A":   "Debtors - A",
			"Creditors - QB - A": "Creditors - A",
			"Current - QB - A":   "Cash - A",
		},
	}
}

// newFullSource serves a small but complete company: a chart with one record
// of every behavioral type, one of each party, one invoice settled by one
// payment, and a ledger report carrying an advance payment.
func newFullSource() *fakeSource {
	return &fakeSource{
		records: map[string][]json.RawMessage{
			"Account": {
				raw(`{"Id":"20","Name":"Debtors","AccountType":"Accounts Receivable","CurrencyRef":{"value":"GBP"}}`),
				raw(`{"Id":"30","Name":"Creditors","AccountType":"Accounts Payable","CurrencyRef":{"value":"GBP"}}`),
				raw(`{"Id":"35","Name":"Sales","AccountType":"Income","CurrencyRef":{"value":"GBP"}}`),
				raw(`{"Id":"40","Name":"Current","AccountType":"Bank","CurrencyRef":{"value":"GBP"}}`),
				raw(`{"Id":"50","Name":"Rent","AccountType":"Expense","CurrencyRef":{"value":"GBP"}}`),
				// Unmapped account type: logged and skipped.
				raw(`{"Id":"99","Name":"Mystery","AccountType":"Frobnicate"}`),
			},
			"TaxRate": {
				raw(`{"Id":"3","Name":"VAT 20%","RateValue":20}`),
			},
			"TaxCode": {
				raw(`{"Id":"7","Name":"VAT","SalesTaxRateList":{"TaxRateDetail":[{"TaxRateRef":{"value":"3"},"TaxTypeApplicable":"TaxOnAmount"}]}}`),
			},
			"Customer": {
				raw(`{"Id":"9","DisplayName":"Acme Ltd","CurrencyRef":{"value":"GBP"}}`),
			},
			"Item": {
				raw(`{"Id":"100","Type":"Service","FullyQualifiedName":"Widget","IncomeAccountRef":{"value":"35"},"ExpenseAccountRef":{"value":"50"}}`),
			},
			"Vendor": {
				raw(`{"Id":"5","DisplayName":"Acme Supplies","CurrencyRef":{"value":"GBP"}}`),
			},
			"Preferences": {
				raw(`{"SalesFormsPrefs":{"AllowShipping":false}}`),
			},
			"Invoice": {
				raw(`{"Id":"1","CurrencyRef":{"value":"GBP"},"TxnDate":"2023-06-10","CustomerRef":{"value":"9"},"TotalAmt":100,
					"Line":[{"DetailType":"SalesItemLineDetail","Amount":100,
						"SalesItemLineDetail":{"ItemRef":{"value":"100","name":"Widget"},"Qty":2,"UnitPrice":50,"TaxCodeRef":{"value":"NON"}}}]}`),
			},
			"Payment": {
				raw(`{"Id":"2","CurrencyRef":{"value":"GBP"},"TxnDate":"2023-06-20","TotalAmt":100,
					"DepositToAccountRef":{"value":"40"},
					"Line":[{"Amount":100,"LinkedTxn":[{"TxnId":"1","TxnType":"Invoice"}]}]}`),
			},
		},
		gl: ledgerOnlyReport(),
	}
}

// ledgerOnlyReport builds a report tree with the two report-only
// transactions: an "Advance Payment" split across the bank and receivable
// accounts and a "Supplier Credit" against the payable account.
func ledgerOnlyReport() *report.Report {
	row := func(txnType, id, credit, debit, customer string) report.Row {
		return report.Row{
			Type: "Data",
			ColData: []report.ColData{
				{Value: "2023-06-01"},
				{Value: txnType, ID: id},
				{Value: credit},
				{Value: debit},
				{Value: customer},
				{Value: ""},
				{Value: "prepay"},
				{Value: ""},
				{Value: "GBP"},
				{Value: debit},
				{Value: credit},
			},
		}
	}
	section := func(accountID string, rows ...report.Row) report.Row {
		return report.Row{
			Type:   "Section",
			Header: &report.Header{ColData: []report.ColData{{ID: accountID}}},
			Rows:   &report.Rows{Row: rows},
		}
	}
	return &report.Report{Rows: report.Rows{Row: []report.Row{
		section("40",
			row("Advance Payment", "7", "", "30", ""),
			row("Supplier Credit", "8", "25", "", "")),
		section("20", row("Advance Payment", "7", "30", "", "Acme Ltd:Job 1")),
		section("30", row("Supplier Credit", "8", "", "25", "")),
	}}}
}

func TestDriverRun(t *testing.T) {
	cfg := testConfig()
	ms := store.NewMemStore(cfg.Company.Name)
	fc := &fakeFiscal{}
	d := New(cfg, ms, newFullSource(), zap.NewNop(),
		WithFiscalCalendar(fc), WithProgress(progress.NopSink{}))

	status, err := d.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, StateComplete, status.State)

	// The five mappable accounts migrate; the unmappable one is counted as a
	// failure without aborting the run.
	assert.Equal(t, 5, status.Accounts)
	assert.Equal(t, 1, status.Failed)

	_, ok := ms.AccountByName("Asset - QB - A")
	assert.True(t, ok, "root accounts created")
	_, ok = ms.AccountByName("VAT 20% - QB - A")
	assert.True(t, ok, "tax rate account created")

	_, ok = ms.CustomerBySourceID("9")
	assert.True(t, ok)
	assert.Equal(t, 1, status.Migrated["Customer"])

	inv, ok := ms.SalesInvoiceByKey("Invoice - 1")
	require.True(t, ok)
	assert.Equal(t, "100", inv.GrandTotal.String())
	assert.True(t, inv.Outstanding.IsZero(), "payment settled the invoice")
	assert.Equal(t, 1, status.Migrated["Invoice"])

	_, ok = ms.JournalEntryByKey("Payment - 2")
	assert.True(t, ok)

	// The advance payment exists only in the report and posts through the
	// rename table, with the customer carried onto the receivable leg.
	entry, ok := ms.JournalEntryByKey("Advance Payment - 7")
	require.True(t, ok)
	assert.Equal(t, 1, status.Migrated["Advance Payment"])
	var receivable *model.NormalizedLine
	for i := range entry.Lines {
		if entry.Lines[i].Account == "Debtors - A" {
			receivable = &entry.Lines[i]
		}
	}
	require.NotNil(t, receivable)
	assert.Equal(t, model.PartyCustomer, receivable.PartyType)
	assert.Equal(t, "Acme Ltd", receivable.Party)

	// Supplier credits are also rebuilt from the report.
	_, ok = ms.JournalEntryByKey("Supplier Credit - 8")
	assert.True(t, ok)
	assert.Equal(t, 1, status.Migrated["Supplier Credit"])

	// Fiscal coverage extends back to the oldest report line.
	assert.Equal(t, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), fc.from)
}

func TestDriverRun_RerunLeavesRecordsUntouched(t *testing.T) {
	cfg := testConfig()
	ms := store.NewMemStore(cfg.Company.Name)
	d := New(cfg, ms, newFullSource(), zap.NewNop(), WithProgress(progress.NopSink{}))

	_, err := d.Run(context.Background())
	require.NoError(t, err)
	_, err = d.Run(context.Background())
	require.NoError(t, err)

	// Settlement applied exactly once: a second run must not drive the
	// invoice outstanding negative.
	inv, ok := ms.SalesInvoiceByKey("Invoice - 1")
	require.True(t, ok)
	assert.True(t, inv.Outstanding.IsZero())
}

func TestDriverRun_FetchFailureAbortsRun(t *testing.T) {
	cfg := testConfig()
	src := newFullSource()
	src.fail = map[string]error{"Account": errors.New("boom")}
	d := New(cfg, store.NewMemStore(cfg.Company.Name), src, zap.NewNop(),
		WithProgress(progress.NopSink{}))

	status, err := d.Run(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "boom")
	assert.Equal(t, StateFailed, status.State)
}
