package transform

import (
	"fmt"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// SavePurchase converts a direct expense into a journal entry crediting the
// paying account and debiting each expense line. A purchase flagged Credit is
// a refund, which flips every leg.
func (t *Transformer) SavePurchase(raw qbo.Purchase) error {
	key := model.KindPurchase.Key(raw.ID)
	if _, ok := t.Store.JournalEntryByKey(key); ok {
		return nil
	}

	purchaseCurrency := raw.CurrencyRef.Value

	paying, err := t.Accounts.AccountNameByID(raw.AccountRef.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(paying), purchaseCurrency)
	lines := []model.NormalizedLine{{
		Account:      paying,
		Credit:       raw.TotalAmt.Mul(amountRate),
		ExchangeRate: lineRate,
		CostCenter:   t.Config.Defaults.CostCenter,
		Remark:       raw.PrivateNote,
	}}

	for _, rawLine := range raw.Line {
		var account string
		switch {
		case rawLine.DetailType == "AccountBasedExpenseLineDetail" && rawLine.AccountBasedExpenseLineDetail != nil:
			account, err = t.Accounts.AccountNameByID(rawLine.AccountBasedExpenseLineDetail.AccountRef.Value)
			if err != nil {
				return fmt.Errorf("%s: %w", key, err)
			}
		case rawLine.DetailType == "ItemBasedExpenseLineDetail" && rawLine.ItemBasedExpenseLineDetail != nil:
			item, ok := t.Store.ItemBySourceID(rawLine.ItemBasedExpenseLineDetail.ItemRef.Value)
			if !ok {
				return fmt.Errorf("%s: item %s not migrated", key, rawLine.ItemBasedExpenseLineDetail.ItemRef.Value)
			}
			account = item.ExpenseAccount
		default:
			continue
		}
		if rawLine.Amount.IsZero() {
			continue
		}

		amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(account), purchaseCurrency)
		lines = append(lines, model.NormalizedLine{
			Account:      account,
			Debit:        rawLine.Amount.Mul(amountRate),
			ExchangeRate: lineRate,
			CostCenter:   t.Config.Defaults.CostCenter,
			Remark:       rawLine.Description,
		})
	}

	if raw.TxnTaxDetail != nil {
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
				Debit:      taxLine.Amount.Mul(rateOrOne(raw.ExchangeRate)),
				CostCenter: t.Config.Defaults.CostCenter,
			})
		}
	}

	if raw.Credit {
		for i := range lines {
			lines[i].Debit, lines[i].Credit = lines[i].Credit, lines[i].Debit
		}
	}

	postingDate, err := parseDate(raw.TxnDate, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	_, err = t.Builder.SubmitJournalEntry(key, postingDate, lines)
	return err
}
