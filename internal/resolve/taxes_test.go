package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/store"
)

func intp(v int) *int { return &v }

// newCascadingTaxes sets up GST 5% (order 1) with PST 50% computed on it
// (TaxOnTax, order 2), the way compounding provincial schemes report.
func newCascadingTaxes(t *testing.T) (*TaxResolver, *store.MemStore) {
	t.Helper()
	accounts, s := newTestResolver()
	require.NoError(t, accounts.CreateRoots())
	require.NoError(t, accounts.SaveTaxRateAccount(qbo.RawTaxRate{ID: "1", Name: "GST 5%", RateValue: dec("5")}))
	require.NoError(t, accounts.SaveTaxRateAccount(qbo.RawTaxRate{ID: "2", Name: "PST 50%", RateValue: dec("50")}))

	taxes := NewTaxResolver(s, accounts, testConfig())
	taxes.SetRates([]qbo.RawTaxRate{
		{ID: "1", Name: "GST 5%", RateValue: dec("5")},
		{ID: "2", Name: "PST 50%", RateValue: dec("50")},
	})
	taxes.SetCodes([]qbo.RawTaxCode{
		{
			ID:   "7",
			Name: "GST+PST",
			SalesTaxRateList: &qbo.TaxRateList{TaxRateDetail: []qbo.TaxRateDetail{
				{TaxRateRef: qbo.Ref{Value: "1"}, TaxTypeApplicable: "TaxOnAmount", TaxOrder: intp(1)},
				{TaxRateRef: qbo.Ref{Value: "2"}, TaxTypeApplicable: "TaxOnTax", TaxOrder: intp(2), TaxOnTaxOrder: intp(1)},
			}},
		},
	})
	return taxes, s
}

func TestItemTaxes(t *testing.T) {
	taxes, _ := newCascadingTaxes(t)

	got, err := taxes.ItemTaxes("7")
	require.NoError(t, err)
	// Only plain TaxOnAmount rates apply per item.
	require.Len(t, got, 1)
	assert.True(t, got["GST 5% - QB - A"].Equal(dec("5")))
}

func TestItemTaxes_NoTaxCode(t *testing.T) {
	taxes, _ := newCascadingTaxes(t)

	got, err := taxes.ItemTaxes("NON")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCharges_CascadingRateReferencesParentRow(t *testing.T) {
	taxes, _ := newCascadingTaxes(t)

	detail := qbo.TxnTaxDetail{TaxLine: []qbo.TaxLine{
		taxLine("1", "5", "5.00"),
		taxLine("2", "50", "2.50"),
	}}

	charges, err := taxes.Charges(detail)
	require.NoError(t, err)
	require.Len(t, charges, 2)

	assert.Equal(t, model.ChargeOnNetTotal, charges[0].ChargeType)
	assert.Equal(t, "GST 5% - QB - A", charges[0].AccountHead)

	assert.Equal(t, model.ChargeOnPreviousRow, charges[1].ChargeType)
	assert.Equal(t, 1, charges[1].RowID)
	assert.Equal(t, "PST 50% - QB - A", charges[1].AccountHead)
	assert.True(t, charges[1].Rate.Equal(dec("50")))
}

func TestCharges_UnknownRateFails(t *testing.T) {
	taxes, _ := newCascadingTaxes(t)

	_, err := taxes.Charges(qbo.TxnTaxDetail{TaxLine: []qbo.TaxLine{
		taxLine("9", "99", "1.00"),
	}})
	assert.Error(t, err)
}

func taxLine(rateID, percent, amount string) qbo.TaxLine {
	var line qbo.TaxLine
	line.Amount = dec(amount)
	line.TaxLineDetail.TaxRateRef = qbo.Ref{Value: rateID}
	line.TaxLineDetail.TaxPercent = dec(percent)
	return line
}
