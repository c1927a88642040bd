// Package transform converts fetched source records into ledger documents.
// Structured kinds (invoices, bills, journal entries) map to their native
// document types; everything else is flattened into balanced journal entries.
package transform

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/ledger"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/report"
	"github.com/booksbridge/booksbridge/internal/resolve"
	"github.com/booksbridge/booksbridge/internal/store"
)

// Context carries everything a transformation needs: configuration, the
// target store, the journal builder, the resolvers built during the account
// phase and the parsed ledger report.
type Context struct {
	Config   *config.Config
	Store    store.Store
	Builder  *ledger.Builder
	Accounts *resolve.AccountResolver
	Taxes    *resolve.TaxResolver
	GL       *report.Index
	Log      *zap.Logger
}

// Transformer applies the per-kind conversion rules.
type Transformer struct {
	Context
	shippingAccount string
}

// New creates a transformer. The shipping income account starts from
// configuration and may be replaced by the company preference record.
func New(ctx Context) *Transformer {
	return &Transformer{
		Context:         ctx,
		shippingAccount: ctx.Config.Defaults.ShippingIncomeAccount,
	}
}

const dateLayout = "2006-01-02"

// parseDate parses a source transaction date. A fallback date is used when
// the primary is empty; the source leaves DueDate unset routinely.
func parseDate(primary, fallback string) (time.Time, error) {
	s := primary
	if s == "" {
		s = fallback
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing date %q: %w", s, err)
	}
	return d, nil
}

// stripParty removes the sub-entity suffix from a party display name;
// "Parent:Job" settles against "Parent".
func stripParty(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[:i]
	}
	return name
}

func rateOrOne(rate decimal.Decimal) decimal.Decimal {
	if rate.IsZero() {
		return decimal.NewFromInt(1)
	}
	return rate
}

// accountCurrency returns an account's currency, or "" when unknown.
func (t *Transformer) accountCurrency(name string) string {
	a, ok := t.Store.AccountByName(name)
	if !ok {
		return ""
	}
	return a.Currency
}

// accountHasType reports whether a ledger account carries one of the given
// behavioral types.
func (t *Transformer) accountHasType(name string, types ...model.AccountType) bool {
	a, ok := t.Store.AccountByName(name)
	if !ok {
		return false
	}
	for _, typ := range types {
		if a.Type == typ {
			return true
		}
	}
	return false
}

// splitRate applies the one-sided conversion rule used on every posting leg:
// when the account's currency differs from the transaction's, the amount is
// converted up front and the line's own rate stays 1; when they match, the
// amount is kept as-is and the rate is carried on the line. Either way the
// conversion is applied exactly once.
func splitRate(txnRate decimal.Decimal, accountCurrency, txnCurrency string) (amountRate, lineRate decimal.Decimal) {
	one := decimal.NewFromInt(1)
	txnRate = rateOrOne(txnRate)
	if accountCurrency != txnCurrency {
		return txnRate, one
	}
	return one, txnRate
}
