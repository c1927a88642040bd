package transform

import (
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/report"
)

// SaveGLTransaction rebuilds a transaction that has no structured API
// representation from its ledger report lines. Every account must have a
// configured rename into the target chart; a missing mapping fails this
// record only. Foreign-currency legs get a back-solved exchange rate so the
// entry balances in home currency.
func (t *Transformer) SaveGLTransaction(kind model.SourceKind, tx *report.Transaction) error {
	key := kind.Key(tx.ID)
	if _, ok := t.Store.JournalEntryByKey(key); ok {
		return nil
	}

	homeCurrency := t.Config.Company.HomeCurrency
	totalDebitHome := decimal.Zero
	totalCreditHome := decimal.Zero

	var lines []model.NormalizedLine
	for _, glLine := range tx.Lines {
		if glLine.Debit.IsZero() && glLine.Credit.IsZero() &&
			glLine.DebitHome.IsZero() && glLine.CreditHome.IsZero() {
			continue
		}

		mapped, ok := t.Config.Rename(glLine.Account)
		if !ok {
			return fmt.Errorf("%s: no account rename configured for %q", key, glLine.Account)
		}

		line := model.NormalizedLine{
			Account:    mapped,
			CostCenter: t.Config.Defaults.CostCenter,
			Remark:     glLine.Memo,
		}
		switch {
		case glLine.Vendor != "" && t.accountHasType(glLine.Account, model.AccountTypePayable):
			line.PartyType = model.PartySupplier
			line.Party = stripParty(glLine.Vendor)
		case glLine.Customer != "" && t.accountHasType(glLine.Account, model.AccountTypeReceivable):
			line.PartyType = model.PartyCustomer
			line.Party = stripParty(glLine.Customer)
		}

		isCredit := !glLine.Credit.IsZero()
		if glLine.Credit.IsZero() && glLine.Debit.IsZero() {
			isCredit = !glLine.CreditHome.IsZero()
		}

		amount, homeAmount := glLine.Debit, glLine.DebitHome
		if isCredit {
			amount, homeAmount = glLine.Credit, glLine.CreditHome
		}

		// Amounts post in the account's currency: the report's transaction
		// amount when currencies line up, the home amount otherwise.
		accountCurrency := t.accountCurrency(glLine.Account)
		if glLine.Currency != accountCurrency || amount.IsZero() {
			amount = homeAmount
		}

		if isCredit {
			line.Credit = amount
		} else {
			line.Debit = amount
		}
		if accountCurrency == homeCurrency {
			if isCredit {
				totalCreditHome = totalCreditHome.Add(amount)
			} else {
				totalDebitHome = totalDebitHome.Add(amount)
			}
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		t.Log.Debug("ledger transaction carries no amounts, skipping", zap.String("key", key))
		return nil
	}

	// Back-solve the rate on foreign legs: whatever the home-currency legs
	// leave unbalanced must be the foreign leg's home value.
	gap := totalDebitHome.Sub(totalCreditHome).Abs()
	for i := range lines {
		if t.accountCurrency(lines[i].Account) == homeCurrency {
			continue
		}
		amount := lines[i].Debit
		if amount.IsZero() {
			amount = lines[i].Credit
		}
		if amount.IsZero() {
			continue
		}
		lines[i].ExchangeRate = gap.Div(amount)
	}

	postingDate, err := parseDate(tx.Date, "")
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	_, err = t.Builder.SubmitJournalEntry(key, postingDate, lines)
	return err
}
