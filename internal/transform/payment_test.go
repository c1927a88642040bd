package transform

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/store"
)

func paymentFor(id, invoiceID, amount string) qbo.Payment {
	return qbo.Payment{
		ID:                  id,
		CurrencyRef:         qbo.Ref{Value: "GBP"},
		TxnDate:             "2023-05-01",
		TotalAmt:            dec(amount),
		DepositToAccountRef: &qbo.Ref{Value: "40"},
		Line: []qbo.PaymentLine{{
			Amount:    dec(amount),
			LinkedTxn: []qbo.LinkedTxn{{TxnID: invoiceID, TxnType: "Invoice"}},
		}},
	}
}

func TestSavePayment_SettlesInvoice(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.SaveInvoice(baseInvoice("12")))

	require.NoError(t, h.SavePayment(paymentFor("1", "12", "100")))

	entry, ok := h.store.JournalEntryByKey("Payment - 1")
	require.True(t, ok)
	require.Len(t, entry.Lines, 2)

	debtors, _ := lineFor(entry, h.accountName(t, "20"))
	assert.True(t, debtors.Credit.Equal(dec("100")))
	assert.Equal(t, "Acme Ltd", debtors.Party)
	assert.Equal(t, "Sales Invoice", debtors.ReferenceType)
	assert.Equal(t, "Invoice - 12", debtors.ReferenceName)

	bank, _ := lineFor(entry, h.accountName(t, "40"))
	assert.True(t, bank.Debit.Equal(dec("100")))

	inv, _ := h.store.SalesInvoiceByKey("Invoice - 12")
	assert.True(t, inv.Outstanding.IsZero())
}

func TestSavePayment_CapsAtOutstanding(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.SaveInvoice(baseInvoice("12")))
	// 50 already settled elsewhere.
	require.NoError(t, h.store.SettleSalesInvoice("Invoice - 12", dec("50")))

	payment := paymentFor("2", "12", "80")
	payment.TotalAmt = dec("50")
	require.NoError(t, h.SavePayment(payment))

	entry, _ := h.store.JournalEntryByKey("Payment - 2")
	debtors, _ := lineFor(entry, h.accountName(t, "20"))
	// The applied 80 is capped at the 50 outstanding.
	assert.True(t, debtors.Credit.Equal(dec("50")))

	inv, _ := h.store.SalesInvoiceByKey("Invoice - 12")
	assert.True(t, inv.Outstanding.IsZero())
}

func TestSavePayment_NoDepositAccountSkipped(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.SaveInvoice(baseInvoice("12")))

	payment := paymentFor("3", "12", "100")
	payment.DepositToAccountRef = nil
	require.NoError(t, h.SavePayment(payment))

	_, ok := h.store.JournalEntryByKey("Payment - 3")
	assert.False(t, ok)
	// Nothing settled either.
	inv, _ := h.store.SalesInvoiceByKey("Invoice - 12")
	assert.True(t, inv.Outstanding.Equal(dec("100")))
}

func TestSavePayment_FailedLegLeavesInvoiceUnsettled(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.SaveInvoice(baseInvoice("12")))

	// The second line points at an invoice that was never migrated, so the
	// whole payment fails. The first invoice must keep its outstanding: a
	// re-run of the fixed payment settles it exactly once.
	payment := paymentFor("9", "12", "100")
	payment.Line = append(payment.Line, qbo.PaymentLine{
		Amount:    dec("40"),
		LinkedTxn: []qbo.LinkedTxn{{TxnID: "99", TxnType: "Invoice"}},
	})
	require.Error(t, h.SavePayment(payment))

	_, ok := h.store.JournalEntryByKey("Payment - 9")
	assert.False(t, ok)
	inv, _ := h.store.SalesInvoiceByKey("Invoice - 12")
	assert.True(t, inv.Outstanding.Equal(dec("100")))
}

func TestSavePayment_UnbalancedEntryLeavesInvoiceUnsettled(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.SaveInvoice(baseInvoice("12")))

	// Deposit leg of 60 against a 100 receivable credit fails validation.
	payment := paymentFor("10", "12", "100")
	payment.TotalAmt = dec("60")
	err := h.SavePayment(payment)
	require.ErrorIs(t, err, store.ErrUnbalanced)

	_, ok := h.store.JournalEntryByKey("Payment - 10")
	assert.False(t, ok)
	inv, _ := h.store.SalesInvoiceByKey("Invoice - 12")
	assert.True(t, inv.Outstanding.Equal(dec("100")))
}

func TestSavePayment_MultiCurrencyBalances(t *testing.T) {
	h := newHarness(t)

	// USD invoice for a USD customer at 3.67.
	raw := baseInvoice("20")
	raw.CurrencyRef = qbo.Ref{Value: "USD"}
	raw.ExchangeRate = dec("3.67")
	raw.CustomerRef = qbo.Ref{Value: "10"}
	require.NoError(t, h.SaveInvoice(raw))

	// USD payment into the GBP bank account: the USD receivable leg keeps
	// its amount with the rate on the line, the GBP bank leg is converted.
	payment := paymentFor("4", "20", "100")
	payment.CurrencyRef = qbo.Ref{Value: "USD"}
	payment.ExchangeRate = dec("3.67")
	require.NoError(t, h.SavePayment(payment))

	entry, ok := h.store.JournalEntryByKey("Payment - 4")
	require.True(t, ok)

	debtors, _ := lineFor(entry, h.accountName(t, "21"))
	assert.True(t, debtors.Credit.Equal(dec("100")))
	assert.True(t, debtors.ExchangeRate.Equal(dec("3.67")))

	bank, _ := lineFor(entry, h.accountName(t, "40"))
	assert.True(t, bank.Debit.Equal(dec("367")))
	assert.True(t, bank.Rate().Equal(dec("1")))

	// The entry balances in home currency.
	require.NoError(t, store.ValidateBalanced(entry.Lines))

	inv, _ := h.store.SalesInvoiceByKey("Invoice - 20")
	assert.True(t, inv.Outstanding.IsZero())
}

func TestSavePayment_ExchangeGainLineFromLedger(t *testing.T) {
	h := newHarness(t)
	h.cfg.Defaults.ExchangeGainSourceAccount = "Exchange Gain or Loss - QB - A"
	h.cfg.Defaults.ExchangeGainAccount = "Exchange Gain/Loss - A"
	require.NoError(t, h.SaveInvoice(baseInvoice("12")))

	// The ledger reports a small exchange difference under the source gain
	// account for this payment.
	h.GL = glIndex(t, h, fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Sales", "id": "35"}]},
			"Rows": {"Row": [%s]}
		}
	]}}`, glRowFull("2023-05-01", "Payment", "5", "", "", "", "", "", "GBP", "0.02", "")))
	// Point the parsed line at the source gain account by name.
	for _, tx := range h.GL.Transactions("Payment") {
		for i := range tx.Lines {
			tx.Lines[i].Account = "Exchange Gain or Loss - QB - A"
		}
	}

	// The bank received 99.98; the 0.02 difference is the reported gain leg.
	payment := paymentFor("5", "12", "100")
	payment.TotalAmt = dec("99.98")
	require.NoError(t, h.SavePayment(payment))

	entry, _ := h.store.JournalEntryByKey("Payment - 5")
	gain, ok := lineFor(entry, "Exchange Gain/Loss - A")
	require.True(t, ok)
	assert.True(t, gain.Debit.Equal(dec("0.02")))
	assert.Equal(t, exchangeAdjustRemark, gain.Remark)
}
