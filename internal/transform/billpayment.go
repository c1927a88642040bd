package transform

import (
	"fmt"

	"github.com/booksbridge/booksbridge/internal/ledger"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// SaveBillPayment converts a vendor payment into a journal entry debiting
// the settled payables and crediting the paying bank or card account.
func (t *Transformer) SaveBillPayment(raw qbo.BillPayment) error {
	key := model.KindBillPayment.Key(raw.ID)
	if _, ok := t.Store.JournalEntryByKey(key); ok {
		return nil
	}

	paymentCurrency := raw.CurrencyRef.Value
	var lines []model.NormalizedLine
	var settlements []settlement
	for _, rawLine := range raw.Line {
		if len(rawLine.LinkedTxn) == 0 {
			continue
		}
		linked := rawLine.LinkedTxn[0]

		var line model.NormalizedLine
		var settle *settlement
		var err error
		if linked.TxnType == "Bill" {
			line, settle, err = t.payableLeg(model.KindBill.Key(linked.TxnID), rawLine, paymentCurrency)
		} else {
			// Checks and expenses settle against the journal entry their
			// own migration produced.
			line, err = t.journalPayableLeg(fmt.Sprintf("%s - %s", linked.TxnType, linked.TxnID), rawLine)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		lines = append(lines, line)
		if settle != nil {
			settlements = append(settlements, *settle)
		}
	}

	bankAccountID, err := payingAccountID(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	bank, err := t.Accounts.AccountNameByID(bankAccountID)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	amountRate, _ := splitRate(raw.ExchangeRate, t.accountCurrency(bank), paymentCurrency)
	lines = append(lines, model.NormalizedLine{
		Account:    bank,
		Credit:     raw.TotalAmt.Mul(amountRate).Round(2),
		CostCenter: t.Config.Defaults.CostCenter,
	})

	lines = append(lines, t.exchangeGainLines(model.KindBillPayment.GLName(), raw.ID)...)

	postingDate, err := parseDate(raw.TxnDate, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	result, err := t.Builder.SubmitJournalEntry(key, postingDate, lines)
	if err != nil || result != ledger.Created {
		return err
	}
	for _, s := range settlements {
		if err := t.Store.SettlePurchaseInvoice(s.key, s.amount); err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
	}
	return nil
}

// payableLeg builds the debit leg settling one linked bill, with a deferred
// settlement for the capped amount. The conversion uses the bill's own rate,
// since the payable was booked at that rate.
func (t *Transformer) payableLeg(billKey string, rawLine qbo.PaymentLine, paymentCurrency string) (model.NormalizedLine, *settlement, error) {
	inv, ok := t.Store.PurchaseInvoiceByKey(billKey)
	if !ok {
		return model.NormalizedLine{}, nil, fmt.Errorf("linked bill %q not migrated", billKey)
	}

	amount := rawLine.Amount
	if amount.GreaterThan(inv.Outstanding) {
		amount = inv.Outstanding
	}

	amountRate, _ := splitRate(inv.ConversionRate, t.accountCurrency(inv.CreditTo), paymentCurrency)
	return model.NormalizedLine{
		Account:       inv.CreditTo,
		Debit:         amount.Mul(amountRate).Round(2),
		PartyType:     model.PartySupplier,
		Party:         inv.Supplier,
		ReferenceType: "Purchase Invoice",
		ReferenceName: billKey,
		CostCenter:    t.Config.Defaults.CostCenter,
	}, &settlement{key: billKey, amount: amount}, nil
}

func (t *Transformer) journalPayableLeg(entryKey string, rawLine qbo.PaymentLine) (model.NormalizedLine, error) {
	entry, ok := t.Store.JournalEntryByKey(entryKey)
	if !ok {
		return model.NormalizedLine{}, fmt.Errorf("linked entry %q not migrated", entryKey)
	}
	for _, entryLine := range entry.Lines {
		if entryLine.PartyType != model.PartySupplier {
			continue
		}
		return model.NormalizedLine{
			Account:       entryLine.Account,
			Debit:         rawLine.Amount,
			PartyType:     model.PartySupplier,
			Party:         entryLine.Party,
			ReferenceType: "Journal Entry",
			ReferenceName: entryKey,
			CostCenter:    t.Config.Defaults.CostCenter,
		}, nil
	}
	return model.NormalizedLine{}, fmt.Errorf("journal entry %q has no supplier line", entryKey)
}

func payingAccountID(raw qbo.BillPayment) (string, error) {
	switch raw.PayType {
	case "Check":
		if raw.CheckPayment == nil || raw.CheckPayment.BankAccountRef == nil {
			return "", fmt.Errorf("check payment has no bank account")
		}
		return raw.CheckPayment.BankAccountRef.Value, nil
	case "CreditCard":
		if raw.CreditCardPayment == nil || raw.CreditCardPayment.CCAccountRef == nil {
			return "", fmt.Errorf("card payment has no card account")
		}
		return raw.CreditCardPayment.CCAccountRef.Value, nil
	}
	return "", fmt.Errorf("unknown pay type %q", raw.PayType)
}
