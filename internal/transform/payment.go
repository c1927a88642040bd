package transform

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/ledger"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

const exchangeAdjustRemark = "Rounding adjustment to balance debit/credit"

// settlement is an outstanding reduction held back until the paying entry is
// persisted. Settling earlier would corrupt the invoice if a later leg or the
// balance check fails the entry.
type settlement struct {
	key    string
	amount decimal.Decimal
}

// SavePayment converts a customer payment into a journal entry crediting the
// settled receivables and debiting the deposit account. Applied amounts are
// capped at each invoice's outstanding balance, and exchange differences
// reported by the ledger are absorbed into the configured gain account.
func (t *Transformer) SavePayment(raw qbo.Payment) error {
	key := model.KindPayment.Key(raw.ID)
	if _, ok := t.Store.JournalEntryByKey(key); ok {
		return nil
	}

	// A payment without a deposit account touches no ledger account; the
	// payments service creates such records.
	if raw.DepositToAccountRef == nil {
		t.Log.Debug("payment has no deposit account, skipping", zap.String("key", key))
		return nil
	}

	paymentCurrency := raw.CurrencyRef.Value
	var lines []model.NormalizedLine
	var settlements []settlement
	for _, rawLine := range raw.Line {
		if len(rawLine.LinkedTxn) == 0 || rawLine.LinkedTxn[0].TxnType != "Invoice" {
			continue
		}
		invoiceKey := model.KindInvoice.Key(rawLine.LinkedTxn[0].TxnID)

		line, settle, err := t.receivableLeg(invoiceKey, rawLine, raw, paymentCurrency)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		lines = append(lines, line)
		if settle != nil {
			settlements = append(settlements, *settle)
		}
	}

	deposit, err := t.Accounts.AccountNameByID(raw.DepositToAccountRef.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(deposit), paymentCurrency)
	lines = append(lines, model.NormalizedLine{
		Account:      deposit,
		Debit:        raw.TotalAmt.Mul(amountRate).Round(2),
		ExchangeRate: lineRate,
		CostCenter:   t.Config.Defaults.CostCenter,
	})

	lines = append(lines, t.exchangeGainLines(model.KindPayment.GLName(), raw.ID)...)

	postingDate, err := parseDate(raw.TxnDate, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	result, err := t.Builder.SubmitJournalEntry(key, postingDate, lines)
	if err != nil || result != ledger.Created {
		return err
	}
	for _, s := range settlements {
		if err := t.Store.SettleSalesInvoice(s.key, s.amount); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// receivableLeg builds the credit leg settling one linked invoice. The
// invoice may have been migrated as a sales invoice or, for charge-backed
// invoices, as a journal entry carrying the customer on its receivable line.
// Sales invoices return a deferred settlement for the capped amount.
func (t *Transformer) receivableLeg(invoiceKey string, rawLine qbo.PaymentLine, raw qbo.Payment, paymentCurrency string) (model.NormalizedLine, *settlement, error) {
	if inv, ok := t.Store.SalesInvoiceByKey(invoiceKey); ok {
		amount := rawLine.Amount
		if amount.GreaterThan(inv.Outstanding) {
			amount = inv.Outstanding
		}
		amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(inv.DebitTo), paymentCurrency)
		return model.NormalizedLine{
			Account:       inv.DebitTo,
			Credit:        amount.Mul(amountRate).Round(2),
			ExchangeRate:  lineRate,
			PartyType:     model.PartyCustomer,
			Party:         inv.Customer,
			ReferenceType: "Sales Invoice",
			ReferenceName: invoiceKey,
			CostCenter:    t.Config.Defaults.CostCenter,
		}, &settlement{key: invoiceKey, amount: amount}, nil
	}

	entry, ok := t.Store.JournalEntryByKey(invoiceKey)
	if !ok {
		return model.NormalizedLine{}, nil, fmt.Errorf("linked invoice %q not migrated", invoiceKey)
	}
	for _, entryLine := range entry.Lines {
		if entryLine.PartyType != model.PartyCustomer {
			continue
		}
		amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(entryLine.Account), paymentCurrency)
		return model.NormalizedLine{
			Account:       entryLine.Account,
			Credit:        rawLine.Amount.Mul(amountRate).Round(2),
			ExchangeRate:  lineRate,
			PartyType:     model.PartyCustomer,
			Party:         entryLine.Party,
			ReferenceType: "Journal Entry",
			ReferenceName: invoiceKey,
			CostCenter:    t.Config.Defaults.CostCenter,
		}, nil, nil
	}
	return model.NormalizedLine{}, nil, fmt.Errorf("journal entry %q has no customer line", invoiceKey)
}

// exchangeGainLines lifts the exchange-difference legs the ledger report
// recorded for a transaction into postings against the configured gain
// account. Home-currency amounts are used as-is.
func (t *Transformer) exchangeGainLines(glName, id string) []model.NormalizedLine {
	source := t.Config.Defaults.ExchangeGainSourceAccount
	target := t.Config.Defaults.ExchangeGainAccount
	if source == "" || target == "" || t.GL == nil {
		return nil
	}
	tx, ok := t.GL.Transaction(glName, id)
	if !ok {
		return nil
	}
	var lines []model.NormalizedLine
	for _, glLine := range tx.Lines {
		if glLine.Account != source {
			continue
		}
		lines = append(lines, model.NormalizedLine{
			Account:    target,
			Debit:      glLine.DebitHome.Round(2),
			Credit:     glLine.CreditHome.Round(2),
			CostCenter: t.Config.Defaults.CostCenter,
			Remark:     exchangeAdjustRemark,
		})
	}
	return lines
}
