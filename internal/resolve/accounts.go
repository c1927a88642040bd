// Package resolve maps source chart-of-accounts and tax structures onto the
// target ledger. It owns the naming conventions that make re-runs idempotent:
// account identities are source ids ("Group - <id>" for the group half of a
// pair, "TaxRate - <id>" for tax heads) and ledger names carry a " - QB"
// marker plus the company abbreviation.
package resolve

import (
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/store"
)

// rootTypeByQBType maps source account types to balance-sheet roots. An
// account type missing here fails the record.
var rootTypeByQBType = map[string]model.RootType{
	"Bank":                    model.RootAsset,
	"Other Current Asset":     model.RootAsset,
	"Fixed Asset":             model.RootAsset,
	"Other Asset":             model.RootAsset,
	"Accounts Receivable":     model.RootAsset,
	"Equity":                  model.RootEquity,
	"Expense":                 model.RootExpense,
	"Other Expense":           model.RootExpense,
	"Cost of Goods Sold":      model.RootExpense,
	"Accounts Payable":        model.RootLiability,
	"Credit Card":             model.RootLiability,
	"Long Term Liability":     model.RootLiability,
	"Other Current Liability": model.RootLiability,
	"Income":                  model.RootIncome,
	"Other Income":            model.RootIncome,
}

var accountTypeByQBType = map[string]model.AccountType{
	"Accounts Payable":    model.AccountTypePayable,
	"Accounts Receivable": model.AccountTypeReceivable,
	"Bank":                model.AccountTypeBank,
	"Credit Card":         model.AccountTypeBank,
}

// PreparedAccount is a raw account annotated with its group role.
type PreparedAccount struct {
	qbo.RawAccount
	IsGroup bool
}

// AccountResolver creates ledger accounts from source accounts and resolves
// them back by id or raw name.
type AccountResolver struct {
	store store.Store
	cfg   *config.Config
	log   *zap.Logger

	rawByName        map[string]qbo.RawAccount
	undepositedFunds string
}

// NewAccountResolver creates a resolver over the given store.
func NewAccountResolver(s store.Store, cfg *config.Config, log *zap.Logger) *AccountResolver {
	return &AccountResolver{
		store:     s,
		cfg:       cfg,
		log:       log,
		rawByName: make(map[string]qbo.RawAccount),
	}
}

// CreateRoots makes the five group accounts everything else hangs under.
// Roots already present are left alone.
func (r *AccountResolver) CreateRoots() error {
	roots := []model.RootType{
		model.RootAsset,
		model.RootEquity,
		model.RootExpense,
		model.RootLiability,
		model.RootIncome,
	}
	for _, root := range roots {
		name := r.cfg.EncodeAccountName(fmt.Sprintf("%s - QB", root))
		if _, ok := r.store.AccountByName(name); ok {
			continue
		}
		err := r.store.InsertAccount(model.Account{
			Name:     name,
			RootType: root,
			IsGroup:  true,
		})
		if err != nil {
			return fmt.Errorf("creating root account %q: %w", name, err)
		}
	}
	return nil
}

// Preprocess fills the raw-name table, marks accounts that have children as
// groups, and orders accounts by numeric id so parents precede children.
func (r *AccountResolver) Preprocess(accounts []qbo.RawAccount) []PreparedAccount {
	for _, a := range accounts {
		r.rawByName[a.Name] = a
	}

	prepared := make([]PreparedAccount, len(accounts))
	for i, a := range accounts {
		p := PreparedAccount{RawAccount: a}
		for _, child := range accounts {
			if child.SubAccount && child.ParentRef.Value == a.ID {
				p.IsGroup = true
				break
			}
		}
		prepared[i] = p
	}

	sort.Slice(prepared, func(i, j int) bool {
		a, _ := strconv.Atoi(prepared[i].ID)
		b, _ := strconv.Atoi(prepared[j].ID)
		return a < b
	})
	return prepared
}

// SaveAccount creates the ledger account(s) for one source account. A group
// account becomes a pair: a group node identified by "Group - <id>" and a
// posting leaf identified by the raw id, so transactions always resolve to a
// postable account.
func (r *AccountResolver) SaveAccount(a PreparedAccount) error {
	if _, ok := r.store.AccountBySourceID(a.ID); ok {
		return nil
	}

	rootType, ok := rootTypeByQBType[a.AccountType]
	if !ok {
		return fmt.Errorf("account %s: unmapped account type %q", a.ID, a.AccountType)
	}

	sourceID := a.ID
	if a.IsGroup {
		sourceID = fmt.Sprintf("Group - %s", a.ID)
	}

	var parent string
	if a.SubAccount {
		parent, ok = r.accountName(fmt.Sprintf("Group - %s", a.ParentRef.Value))
		if !ok {
			return fmt.Errorf("account %s: parent %s not yet migrated", a.ID, a.ParentRef.Value)
		}
	} else {
		parent = r.cfg.EncodeAccountName(fmt.Sprintf("%s - QB", rootType))
	}

	err := r.store.InsertAccount(model.Account{
		SourceID: sourceID,
		Name:     r.uniqueAccountName(a.Name),
		RootType: rootType,
		Type:     accountTypeFor(a.RawAccount),
		Currency: a.CurrencyRef.Value,
		Parent:   parent,
		IsGroup:  a.IsGroup,
	})
	if err != nil {
		return fmt.Errorf("account %s: %w", a.ID, err)
	}

	if a.IsGroup {
		groupName, _ := r.accountName(sourceID)
		err := r.store.InsertAccount(model.Account{
			SourceID: a.ID,
			Name:     r.uniqueAccountName(a.Name),
			RootType: rootType,
			Type:     accountTypeFor(a.RawAccount),
			Currency: a.CurrencyRef.Value,
			Parent:   groupName,
			IsGroup:  false,
		})
		if err != nil {
			return fmt.Errorf("account %s leaf: %w", a.ID, err)
		}
	}

	if a.AccountSubType == "UndepositedFunds" {
		name, _ := r.accountName(a.ID)
		r.undepositedFunds = name
		r.log.Info("undeposited funds account found", zap.String("account", name))
	}
	return nil
}

// SaveTaxRateAccount creates a liability account for a tax rate, identified
// by "TaxRate - <id>".
func (r *AccountResolver) SaveTaxRateAccount(t qbo.RawTaxRate) error {
	sourceID := fmt.Sprintf("TaxRate - %s", t.ID)
	if _, ok := r.store.AccountBySourceID(sourceID); ok {
		return nil
	}
	err := r.store.InsertAccount(model.Account{
		SourceID: sourceID,
		Name:     r.cfg.EncodeAccountName(fmt.Sprintf("%s - QB", t.Name)),
		RootType: model.RootLiability,
		Type:     model.AccountTypeTax,
		TaxRate:  t.RateValue,
		Parent:   r.cfg.EncodeAccountName(fmt.Sprintf("%s - QB", model.RootLiability)),
		IsGroup:  false,
	})
	if err != nil {
		return fmt.Errorf("tax rate %s: %w", t.ID, err)
	}
	return nil
}

// AccountNameByID resolves a source identity to the created ledger account
// name. The identity may be a raw id, "Group - <id>" or "TaxRate - <id>".
func (r *AccountResolver) AccountNameByID(sourceID string) (string, error) {
	name, ok := r.accountName(sourceID)
	if !ok {
		return "", fmt.Errorf("no account with source id %q", sourceID)
	}
	return name, nil
}

// RawAccountID returns the source id of an account by its raw (unmigrated)
// name. Used by the ledger report parser when a section header carries no id.
func (r *AccountResolver) RawAccountID(rawName string) (string, bool) {
	a, ok := r.rawByName[rawName]
	if !ok {
		return "", false
	}
	return a.ID, true
}

// UndepositedFunds returns the ledger name of the undeposited-funds account,
// or "" if the chart has none.
func (r *AccountResolver) UndepositedFunds() string {
	return r.undepositedFunds
}

func (r *AccountResolver) accountName(sourceID string) (string, bool) {
	a, ok := r.store.AccountBySourceID(sourceID)
	if !ok {
		return "", false
	}
	return a.Name, true
}

// uniqueAccountName derives an unused ledger name for a raw account name.
// The first taker gets "<name> - QB"; later collisions (duplicate raw names,
// the leaf of a group pair) get "<name> - <n> - QB".
func (r *AccountResolver) uniqueAccountName(rawName string) string {
	for n := 0; ; n++ {
		candidate := fmt.Sprintf("%s - QB", rawName)
		if n > 0 {
			candidate = fmt.Sprintf("%s - %d - QB", rawName, n)
		}
		encoded := r.cfg.EncodeAccountName(candidate)
		if _, ok := r.store.AccountByName(encoded); !ok {
			return encoded
		}
	}
}

func accountTypeFor(a qbo.RawAccount) model.AccountType {
	if a.AccountSubType == "UndepositedFunds" {
		return model.AccountTypeCash
	}
	if t, ok := accountTypeByQBType[a.AccountType]; ok {
		return t
	}
	return model.AccountTypeNone
}
