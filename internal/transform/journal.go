package transform

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// SaveJournalEntry converts a manual journal entry. Each posting keeps the
// source amounts under the one-sided conversion rule, and non-zero computed
// tax lines are appended as extra debits.
func (t *Transformer) SaveJournalEntry(raw qbo.JournalEntry) error {
	key := model.KindJournalEntry.Key(raw.ID)

	lines, err := t.journalLines(raw.Line, raw.CurrencyRef.Value, raw.ExchangeRate)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}

	for _, taxLine := range raw.TxnTaxDetail.TaxLine {
		if taxLine.Amount.IsZero() {
			continue
		}
		account, ok := t.Store.TaxAccountByRate(taxLine.TaxLineDetail.TaxPercent)
		if !ok {
			return fmt.Errorf("%s: no tax account with rate %s", key, taxLine.TaxLineDetail.TaxPercent)
		}
		lines = append(lines, model.NormalizedLine{
			Account:    account.Name,
			Debit:      taxLine.Amount,
			CostCenter: t.Config.Defaults.CostCenter,
		})
	}

	postingDate, err := parseDate(raw.TxnDate, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	_, err = t.Builder.SubmitJournalEntry(key, postingDate, lines)
	return err
}

func (t *Transformer) journalLines(rawLines []qbo.JournalLine, txnCurrency string, txnRate decimal.Decimal) ([]model.NormalizedLine, error) {
	var lines []model.NormalizedLine
	for _, rawLine := range rawLines {
		if rawLine.DetailType != "JournalEntryLineDetail" || rawLine.JournalEntryLineDetail == nil {
			continue
		}
		detail := rawLine.JournalEntryLineDetail

		account, err := t.Accounts.AccountNameByID(detail.AccountRef.Value)
		if err != nil {
			return nil, err
		}

		amountRate, lineRate := splitRate(txnRate, t.accountCurrency(account), txnCurrency)
		amount := rawLine.Amount.Mul(amountRate)

		line := model.NormalizedLine{
			Account:      account,
			ExchangeRate: lineRate,
			CostCenter:   t.Config.Defaults.CostCenter,
			Remark:       rawLine.Description,
		}

		if t.accountHasType(account, model.AccountTypePayable, model.AccountTypeReceivable) && detail.Entity != nil {
			switch detail.Entity.Type {
			case "Vendor":
				line.PartyType = model.PartySupplier
			case "Customer":
				line.PartyType = model.PartyCustomer
			}
			line.Party = stripParty(detail.Entity.EntityRef.Name)
		}

		switch detail.PostingType {
		case "Credit":
			line.Credit = amount
		case "Debit":
			line.Debit = amount
		default:
			return nil, fmt.Errorf("unknown posting type %q", detail.PostingType)
		}
		lines = append(lines, line)
	}
	return lines, nil
}
