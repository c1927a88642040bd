package transform

import (
	"fmt"
	"strings"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

// SaveDeposit converts a bank deposit into a journal entry debiting the
// target account. Lines linked to earlier transactions move money out of the
// undeposited-funds clearing account; free lines credit their own account,
// tagged with a party when it is a receivable or payable. Cash back taken
// out of the deposit is debited separately.
func (t *Transformer) SaveDeposit(raw qbo.Deposit) error {
	key := model.KindDeposit.Key(raw.ID)
	if _, ok := t.Store.JournalEntryByKey(key); ok {
		return nil
	}

	depositCurrency := raw.CurrencyRef.Value

	target, err := t.Accounts.AccountNameByID(raw.DepositToAccountRef.Value)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(target), depositCurrency)
	lines := []model.NormalizedLine{{
		Account:      target,
		Debit:        raw.TotalAmt.Mul(amountRate),
		ExchangeRate: lineRate,
		CostCenter:   t.Config.Defaults.CostCenter,
		Remark:       raw.PrivateNote,
	}}

	for _, rawLine := range raw.Line {
		if len(rawLine.LinkedTxn) > 0 {
			undeposited := t.Accounts.UndepositedFunds()
			if undeposited == "" {
				return fmt.Errorf("%s: no undeposited funds account in chart", key)
			}
			lines = append(lines, model.NormalizedLine{
				Account:    undeposited,
				Credit:     rawLine.Amount,
				CostCenter: t.Config.Defaults.CostCenter,
			})
			continue
		}
		if rawLine.DepositLineDetail == nil {
			continue
		}

		account, err := t.Accounts.AccountNameByID(rawLine.DepositLineDetail.AccountRef.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		amountRate, lineRate := splitRate(raw.ExchangeRate, t.accountCurrency(account), depositCurrency)
		line := model.NormalizedLine{
			Account:      account,
			Credit:       rawLine.Amount.Mul(amountRate),
			ExchangeRate: lineRate,
			CostCenter:   t.Config.Defaults.CostCenter,
			Remark:       rawLine.Description,
		}
		if entity := rawLine.DepositLineDetail.Entity; entity != nil &&
			t.accountHasType(account, model.AccountTypePayable, model.AccountTypeReceivable) {
			switch strings.ToUpper(entity.Type) {
			case "VENDOR":
				line.PartyType = model.PartySupplier
			case "CUSTOMER":
				line.PartyType = model.PartyCustomer
			}
			line.Party = stripParty(entity.Name)
		}
		lines = append(lines, line)
	}

	if raw.CashBack != nil {
		account, err := t.Accounts.AccountNameByID(raw.CashBack.AccountRef.Value)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		lines = append(lines, model.NormalizedLine{
			Account:    account,
			Debit:      raw.CashBack.Amount,
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
