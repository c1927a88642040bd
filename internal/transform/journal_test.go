package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
)

func journalLine(accountID, postingType, amount string) qbo.JournalLine {
	return qbo.JournalLine{
		DetailType: "JournalEntryLineDetail",
		Amount:     dec(amount),
		JournalEntryLineDetail: &qbo.JournalEntryLineDetail{
			PostingType: postingType,
			AccountRef:  qbo.Ref{Value: accountID},
		},
	}
}

func TestSaveJournalEntry_HomeCurrency(t *testing.T) {
	h := newHarness(t)

	require.NoError(t, h.SaveJournalEntry(qbo.JournalEntry{
		ID:          "77",
		CurrencyRef: qbo.Ref{Value: "GBP"},
		TxnDate:     "2023-04-01",
		Line: []qbo.JournalLine{
			journalLine("50", "Debit", "100"),
			journalLine("40", "Credit", "100"),
		},
	}))

	entry, ok := h.store.JournalEntryByKey("Journal Entry - 77")
	require.True(t, ok)
	require.Len(t, entry.Lines, 2)
	rent, _ := lineFor(entry, h.accountName(t, "50"))
	assert.True(t, rent.Debit.Equal(dec("100")))
	assert.True(t, rent.Rate().Equal(dec("1")))
}

func TestSaveJournalEntry_ConversionAppliedExactlyOnce(t *testing.T) {
	h := newHarness(t)

	// USD entry at 3.67: the USD leg keeps its amount and carries the rate;
	// the GBP leg is converted up front and carries rate 1. Either way the
	// home value of each leg is 367.
	require.NoError(t, h.SaveJournalEntry(qbo.JournalEntry{
		ID:           "78",
		CurrencyRef:  qbo.Ref{Value: "USD"},
		ExchangeRate: dec("3.67"),
		TxnDate:      "2023-04-01",
		Line: []qbo.JournalLine{
			journalLine("21", "Debit", "100"),
			journalLine("35", "Credit", "100"),
		},
	}))

	entry, ok := h.store.JournalEntryByKey("Journal Entry - 78")
	require.True(t, ok)
	assert.True(t, entry.MultiCurrency)

	usd, _ := lineFor(entry, h.accountName(t, "21"))
	assert.True(t, usd.Debit.Equal(dec("100")))
	assert.True(t, usd.ExchangeRate.Equal(dec("3.67")))

	gbp, _ := lineFor(entry, h.accountName(t, "35"))
	assert.True(t, gbp.Credit.Equal(dec("367")))
	assert.True(t, gbp.Rate().Equal(dec("1")))
}

func TestSaveJournalEntry_PartyOnReceivableLine(t *testing.T) {
	h := newHarness(t)

	line := journalLine("20", "Debit", "50")
	line.JournalEntryLineDetail.Entity = &struct {
		Type      string  `json:"Type"`
		EntityRef qbo.Ref `json:"EntityRef"`
	}{Type: "Customer", EntityRef: qbo.Ref{Name: "Acme Ltd:Job 4"}}

	require.NoError(t, h.SaveJournalEntry(qbo.JournalEntry{
		ID:          "79",
		CurrencyRef: qbo.Ref{Value: "GBP"},
		TxnDate:     "2023-04-01",
		Line: []qbo.JournalLine{
			line,
			journalLine("35", "Credit", "50"),
		},
	}))

	entry, _ := h.store.JournalEntryByKey("Journal Entry - 79")
	debtors, ok := lineFor(entry, h.accountName(t, "20"))
	require.True(t, ok)
	assert.Equal(t, model.PartyCustomer, debtors.PartyType)
	// The sub-entity suffix is stripped.
	assert.Equal(t, "Acme Ltd", debtors.Party)
}

func TestSaveJournalEntry_TaxLinesAppendedAsDebits(t *testing.T) {
	h := newHarness(t)

	raw := qbo.JournalEntry{
		ID:          "80",
		CurrencyRef: qbo.Ref{Value: "GBP"},
		TxnDate:     "2023-04-01",
		Line: []qbo.JournalLine{
			journalLine("50", "Debit", "100"),
			journalLine("40", "Credit", "120"),
		},
		TxnTaxDetail: qbo.TxnTaxDetail{TaxLine: []qbo.TaxLine{vatLine("20")}},
	}
	require.NoError(t, h.SaveJournalEntry(raw))

	entry, _ := h.store.JournalEntryByKey("Journal Entry - 80")
	require.Len(t, entry.Lines, 3)
	vat, ok := lineFor(entry, "VAT 20% - QB - A")
	require.True(t, ok)
	assert.True(t, vat.Debit.Equal(dec("20")))
}
