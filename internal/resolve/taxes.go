package resolve

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/store"
)

// noTaxCode marks lines that carry no tax at all.
const noTaxCode = "NON"

// taxOnAmount is the applicability of a plain rate; anything else is a
// cascading rate computed on another rate's amount.
const taxOnAmount = "TaxOnAmount"

// TaxResolver answers tax questions from the fetched rate and code tables.
// Rates and codes must be set before any lookup.
type TaxResolver struct {
	store    store.Store
	accounts *AccountResolver
	cfg      *config.Config

	rates map[string]qbo.RawTaxRate
	codes map[string]qbo.RawTaxCode
}

// NewTaxResolver creates a resolver over the given store and account table.
func NewTaxResolver(s store.Store, accounts *AccountResolver, cfg *config.Config) *TaxResolver {
	return &TaxResolver{
		store:    s,
		accounts: accounts,
		cfg:      cfg,
		rates:    make(map[string]qbo.RawTaxRate),
		codes:    make(map[string]qbo.RawTaxCode),
	}
}

// SetRates indexes the fetched tax rates by id.
func (r *TaxResolver) SetRates(rates []qbo.RawTaxRate) {
	for _, rate := range rates {
		r.rates[rate.ID] = rate
	}
}

// SetCodes indexes the fetched tax codes by id.
func (r *TaxResolver) SetCodes(codes []qbo.RawTaxCode) {
	for _, code := range codes {
		r.codes[code.ID] = code
	}
}

// ItemTaxes returns the tax heads and rates an item line carries under a tax
// code, keyed by ledger account name. The "NON" code and unknown codes yield
// an empty map.
func (r *TaxResolver) ItemTaxes(taxCode string) (map[string]decimal.Decimal, error) {
	itemTaxes := make(map[string]decimal.Decimal)
	if taxCode == noTaxCode {
		return itemTaxes, nil
	}
	code, ok := r.codes[taxCode]
	if !ok {
		return itemTaxes, nil
	}
	for _, list := range []*qbo.TaxRateList{code.SalesTaxRateList, code.PurchaseTaxRateList} {
		if list == nil {
			continue
		}
		for _, detail := range list.TaxRateDetail {
			if detail.TaxTypeApplicable != taxOnAmount {
				continue
			}
			head, err := r.accounts.AccountNameByID(fmt.Sprintf("TaxRate - %s", detail.TaxRateRef.Value))
			if err != nil {
				return nil, fmt.Errorf("tax code %s: %w", taxCode, err)
			}
			rate, ok := r.rates[detail.TaxRateRef.Value]
			if !ok {
				return nil, fmt.Errorf("tax code %s: unknown tax rate %s", taxCode, detail.TaxRateRef.Value)
			}
			itemTaxes[head] = rate.RateValue
		}
	}
	return itemTaxes, nil
}

// Charges turns a transaction's computed tax lines into ordered charge rows.
// A cascading rate becomes an On Previous Row charge whose RowID points at
// the 1-based row of its parent rate, so row order is significant.
func (r *TaxResolver) Charges(detail qbo.TxnTaxDetail) ([]model.TaxCharge, error) {
	var charges []model.TaxCharge
	for _, line := range detail.TaxLine {
		account, ok := r.store.TaxAccountByRate(line.TaxLineDetail.TaxPercent)
		if !ok {
			return nil, fmt.Errorf("no tax account with rate %s", line.TaxLineDetail.TaxPercent)
		}

		rateID := line.TaxLineDetail.TaxRateRef.Value
		if r.taxType(rateID) == taxOnAmount {
			charges = append(charges, model.TaxCharge{
				ChargeType:  model.ChargeOnNetTotal,
				AccountHead: account.Name,
				Rate:        line.TaxLineDetail.TaxPercent,
				CostCenter:  r.cfg.Defaults.CostCenter,
				Description: account.Name,
			})
			continue
		}

		parentRowID, err := r.parentRowID(r.parentRate(rateID), charges)
		if err != nil {
			return nil, fmt.Errorf("tax rate %s: %w", rateID, err)
		}
		charges = append(charges, model.TaxCharge{
			ChargeType:  model.ChargeOnPreviousRow,
			RowID:       parentRowID,
			AccountHead: account.Name,
			Rate:        line.TaxLineDetail.TaxPercent,
			CostCenter:  r.cfg.Defaults.CostCenter,
			Description: account.Name,
		})
	}
	return charges, nil
}

// taxType returns the applicability of a rate as declared by whichever tax
// code references it.
func (r *TaxResolver) taxType(rateID string) string {
	for _, code := range r.codes {
		for _, list := range []*qbo.TaxRateList{code.SalesTaxRateList, code.PurchaseTaxRateList} {
			if list == nil {
				continue
			}
			for _, detail := range list.TaxRateDetail {
				if detail.TaxRateRef.Value == rateID {
					return detail.TaxTypeApplicable
				}
			}
		}
	}
	return ""
}

// parentRate finds the rate a cascading rate is computed on: the rate whose
// TaxOrder matches this rate's TaxOnTaxOrder within the same rate list.
func (r *TaxResolver) parentRate(rateID string) string {
	for _, code := range r.codes {
		for _, list := range []*qbo.TaxRateList{code.SalesTaxRateList, code.PurchaseTaxRateList} {
			if list == nil {
				continue
			}
			var parentOrder *int
			for _, detail := range list.TaxRateDetail {
				if detail.TaxRateRef.Value == rateID {
					parentOrder = detail.TaxOnTaxOrder
				}
			}
			if parentOrder == nil {
				continue
			}
			for _, detail := range list.TaxRateDetail {
				if detail.TaxOrder != nil && *detail.TaxOrder == *parentOrder {
					return detail.TaxRateRef.Value
				}
			}
		}
	}
	return ""
}

// parentRowID returns the 1-based index of the charge row carrying the parent
// rate's account head.
func (r *TaxResolver) parentRowID(parentRateID string, charges []model.TaxCharge) (int, error) {
	account, err := r.accounts.AccountNameByID(fmt.Sprintf("TaxRate - %s", parentRateID))
	if err != nil {
		return 0, err
	}
	for i, charge := range charges {
		if charge.AccountHead == account {
			return i + 1, nil
		}
	}
	return 0, fmt.Errorf("parent tax row for account %q not found", account)
}
