package report

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// fakeLookup resolves account ids to "<raw name> - QB" and supports the
// name-table fallback for headers without ids.
type fakeLookup struct {
	idByName map[string]string
	nameByID map[string]string
}

func (f *fakeLookup) AccountNameByID(id string) (string, error) {
	name, ok := f.nameByID[id]
	if !ok {
		return "", fmt.Errorf("no account with id %s", id)
	}
	return name, nil
}

func (f *fakeLookup) RawAccountID(name string) (string, bool) {
	id, ok := f.idByName[name]
	return id, ok
}

func newFakeLookup() *fakeLookup {
	return &fakeLookup{
		idByName: map[string]string{"Sales": "35", "Debtors": "36"},
		nameByID: map[string]string{"35": "Sales - QB", "36": "Debtors - QB"},
	}
}

func dataRow(date, txnType, txnID, credit, debit string) string {
	return fmt.Sprintf(`{
		"type": "Data",
		"ColData": [
			{"value": %q},
			{"value": %q, "id": %q},
			{"value": %q},
			{"value": %q},
			{"value": "Acme Ltd"},
			{"value": ""},
			{"value": "memo"},
			{"value": "3.67"},
			{"value": "USD"},
			{"value": ""},
			{"value": ""}
		]
	}`, date, txnType, txnID, credit, debit)
}

func TestParse_SectionWithAccountID(t *testing.T) {
	payload := fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Sales", "id": "35"}]},
			"Rows": {"Row": [%s, %s]}
		}
	]}}`,
		dataRow("2023-04-01", "Invoice", "12", "100.00", ""),
		dataRow("2023-04-02", "Invoice", "13", "50.00", ""))

	var r Report
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	ix, err := Parse(&r, newFakeLookup())
	require.NoError(t, err)

	lines := ix.AccountLines("Sales - QB")
	require.Len(t, lines, 2)
	assert.Equal(t, "Invoice", lines[0].TxnType)
	assert.Equal(t, "12", lines[0].TxnID)
	assert.True(t, lines[0].Credit.Equal(dec("100.00")))
	assert.True(t, lines[0].Debit.IsZero())
	assert.Equal(t, "USD", lines[0].Currency)
	assert.True(t, lines[0].ExchangeRate.Equal(dec("3.67")))

	tx, ok := ix.Transaction("Invoice", "12")
	require.True(t, ok)
	assert.Equal(t, "2023-04-01", tx.Date)
	require.Len(t, tx.Lines, 1)
}

func TestParse_NameFallbackWhenIDAbsent(t *testing.T) {
	payload := fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Debtors"}]},
			"Rows": {"Row": [%s]}
		}
	]}}`, dataRow("2023-04-01", "Payment", "7", "", "80.00"))

	var r Report
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	ix, err := Parse(&r, newFakeLookup())
	require.NoError(t, err)
	require.Len(t, ix.AccountLines("Debtors - QB"), 1)
}

func TestParse_NotSpecifiedSectionSkipped(t *testing.T) {
	payload := fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Not Specified"}]},
			"Rows": {"Row": [%s]}
		},
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Sales", "id": "35"}]},
			"Rows": {"Row": [%s]}
		}
	]}}`,
		dataRow("2023-04-01", "Journal Entry", "1", "10.00", ""),
		dataRow("2023-04-02", "Invoice", "12", "100.00", ""))

	var r Report
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	ix, err := Parse(&r, newFakeLookup())
	require.NoError(t, err)

	// The Not Specified subtree yields nothing, siblings still parse.
	_, ok := ix.Transaction("Journal Entry", "1")
	assert.False(t, ok)
	require.Len(t, ix.AccountLines("Sales - QB"), 1)
}

func TestParse_NestedSectionInheritsAccount(t *testing.T) {
	payload := fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Sales", "id": "35"}]},
			"Rows": {"Row": [
				%s,
				{"type": "Section", "Rows": {"Row": [%s]}}
			]}
		}
	]}}`,
		dataRow("2023-04-01", "Invoice", "12", "100.00", ""),
		dataRow("2023-04-03", "Invoice", "14", "25.00", ""))

	var r Report
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	ix, err := Parse(&r, newFakeLookup())
	require.NoError(t, err)
	assert.Len(t, ix.AccountLines("Sales - QB"), 2)
}

func TestParse_TransactionLineOrderFollowsReport(t *testing.T) {
	// One transaction split across several account sections: the grouped
	// lines must come out in section order, identically on every parse.
	payload := fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Sales", "id": "35"}]},
			"Rows": {"Row": [%s]}
		},
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Debtors", "id": "36"}]},
			"Rows": {"Row": [%s]}
		},
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Fees", "id": "37"}]},
			"Rows": {"Row": [%s]}
		}
	]}}`,
		dataRow("2023-04-01", "Advance Payment", "7", "100.00", ""),
		dataRow("2023-04-01", "Advance Payment", "7", "", "90.00"),
		dataRow("2023-04-01", "Advance Payment", "7", "", "10.00"))

	lookup := newFakeLookup()
	lookup.nameByID["37"] = "Fees - QB"

	want := []string{"Sales - QB", "Debtors - QB", "Fees - QB"}
	for run := 0; run < 5; run++ {
		var r Report
		require.NoError(t, json.Unmarshal([]byte(payload), &r))

		ix, err := Parse(&r, lookup)
		require.NoError(t, err)

		tx, ok := ix.Transaction("Advance Payment", "7")
		require.True(t, ok)
		require.Len(t, tx.Lines, 3)
		for i, account := range want {
			assert.Equal(t, account, tx.Lines[i].Account)
		}
	}
}

func TestEarliestDate(t *testing.T) {
	payload := fmt.Sprintf(`{"Rows": {"Row": [
		{
			"type": "Section",
			"Header": {"ColData": [{"value": "Sales", "id": "35"}]},
			"Rows": {"Row": [%s, %s]}
		}
	]}}`,
		dataRow("2023-04-02", "Invoice", "13", "50.00", ""),
		dataRow("2019-12-31", "Invoice", "12", "100.00", ""))

	var r Report
	require.NoError(t, json.Unmarshal([]byte(payload), &r))

	ix, err := Parse(&r, newFakeLookup())
	require.NoError(t, err)

	earliest, ok := ix.EarliestDate()
	require.True(t, ok)
	assert.Equal(t, "2019-12-31", earliest.Format("2006-01-02"))
}
