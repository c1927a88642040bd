package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/booksbridge/booksbridge/internal/model"
)

// Report is the decoded General Ledger report payload: a tree of sections
// (one per account, possibly nested) holding data rows.
type Report struct {
	Rows Rows `json:"Rows"`
}

// Rows wraps a list of report rows.
type Rows struct {
	Row []Row `json:"Row"`
}

// Row is either a Section (with a Header naming an account and nested Rows)
// or a Data row (with the fixed ColData column layout).
type Row struct {
	Type    string    `json:"type"`
	Header  *Header   `json:"Header"`
	Rows    *Rows     `json:"Rows"`
	ColData []ColData `json:"ColData"`
}

// Header identifies the account a section reports on.
type Header struct {
	ColData []ColData `json:"ColData"`
}

// ColData is one report cell. The id attribute is present on account headers
// and on the transaction-type column of data rows.
type ColData struct {
	Value string `json:"value"`
	ID    string `json:"id"`
}

// Fixed data-row column order, matching the columns requested from the API.
const (
	colDate = iota
	colTxnType
	colCredit
	colDebit
	colCustomer
	colVendor
	colMemo
	colExchRate
	colCurrency
	colDebitHome
	colCreditHome
	numCols
)

// notSpecified marks report sections that aggregate lines without an
// account; these contribute nothing to the migration.
const notSpecified = "Not Specified"

// AccountLookup resolves report account references against the migrated
// chart. AccountNameByID maps an external account id to the local posting
// account; RawAccountID recovers the external id from a display name when
// the report omits the id attribute.
type AccountLookup interface {
	AccountNameByID(id string) (string, error)
	RawAccountID(name string) (string, bool)
}

// Transaction groups the ledger lines of one source transaction.
type Transaction struct {
	ID    string
	Date  string
	Lines []model.LedgerLine
}

// Index is the parsed report: lines grouped by account and re-grouped by
// (transaction type, transaction id). It lives for a single migration run.
type Index struct {
	byAccount    map[string][]model.LedgerLine
	accountOrder []string
	byType       map[string]map[string]*Transaction
	typeOrder    map[string][]string
}

// Parse flattens a report tree into an Index.
func Parse(r *Report, accounts AccountLookup) (*Index, error) {
	ix := &Index{
		byAccount: make(map[string][]model.LedgerLine),
		byType:    make(map[string]map[string]*Transaction),
		typeOrder: make(map[string][]string),
	}
	for _, row := range r.Rows.Row {
		if row.Type == "Section" {
			if err := ix.walkSection(row, "", accounts); err != nil {
				return nil, err
			}
		}
	}
	// Walk accounts in the order the report introduced them so transaction
	// line order is stable across runs.
	for _, account := range ix.accountOrder {
		for _, line := range ix.byAccount[account] {
			ix.index(line)
		}
	}
	return ix, nil
}

func (ix *Index) walkSection(section Row, account string, accounts AccountLookup) error {
	if section.Header != nil && len(section.Header.ColData) > 0 {
		head := section.Header.ColData[0]
		switch {
		case head.ID != "":
			name, err := accounts.AccountNameByID(head.ID)
			if err != nil {
				return fmt.Errorf("resolving report account id %s: %w", head.ID, err)
			}
			account = name
		case head.Value == notSpecified:
			// Lines without an account are skipped wholesale.
			return nil
		case head.Value != "":
			// Some report variants omit the account id; fall back to the
			// raw account name table built during account preprocessing.
			id, ok := accounts.RawAccountID(head.Value)
			if !ok {
				return fmt.Errorf("report account %q not found in account table", head.Value)
			}
			name, err := accounts.AccountNameByID(id)
			if err != nil {
				return fmt.Errorf("resolving report account %q: %w", head.Value, err)
			}
			account = name
		}
	}

	if section.Rows == nil {
		return nil
	}
	var lines []model.LedgerLine
	for _, row := range section.Rows.Row {
		switch row.Type {
		case "Data":
			line, err := dataLine(row, account)
			if err != nil {
				return err
			}
			lines = append(lines, line)
		case "Section":
			if err := ix.walkSection(row, account, accounts); err != nil {
				return err
			}
		}
	}
	if _, seen := ix.byAccount[account]; !seen {
		ix.accountOrder = append(ix.accountOrder, account)
	}
	ix.byAccount[account] = append(ix.byAccount[account], lines...)
	return nil
}

func dataLine(row Row, account string) (model.LedgerLine, error) {
	if len(row.ColData) < numCols {
		return model.LedgerLine{}, fmt.Errorf("report data row has %d columns, want %d", len(row.ColData), numCols)
	}
	data := row.ColData
	return model.LedgerLine{
		Account:      account,
		Date:         data[colDate].Value,
		TxnType:      data[colTxnType].Value,
		TxnID:        data[colTxnType].ID,
		Credit:       amount(data[colCredit].Value),
		Debit:        amount(data[colDebit].Value),
		Customer:     data[colCustomer].Value,
		Vendor:       data[colVendor].Value,
		Memo:         data[colMemo].Value,
		ExchangeRate: amount(data[colExchRate].Value),
		Currency:     data[colCurrency].Value,
		DebitHome:    amount(data[colDebitHome].Value),
		CreditHome:   amount(data[colCreditHome].Value),
	}, nil
}

// amount parses a report cell into a decimal, treating blanks and junk as
// zero the way the report's own totals do.
func amount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (ix *Index) index(line model.LedgerLine) {
	if line.TxnType == "" {
		return
	}
	byID, ok := ix.byType[line.TxnType]
	if !ok {
		byID = make(map[string]*Transaction)
		ix.byType[line.TxnType] = byID
	}
	tx, ok := byID[line.TxnID]
	if !ok {
		tx = &Transaction{ID: line.TxnID, Date: line.Date}
		byID[line.TxnID] = tx
		ix.typeOrder[line.TxnType] = append(ix.typeOrder[line.TxnType], line.TxnID)
	}
	tx.Lines = append(tx.Lines, line)
}

// AccountLines returns the lines recorded under an account.
func (ix *Index) AccountLines(account string) []model.LedgerLine {
	return ix.byAccount[account]
}

// Transaction returns the line group for one (type, id) pair.
func (ix *Index) Transaction(txnType, id string) (*Transaction, bool) {
	tx, ok := ix.byType[txnType][id]
	return tx, ok
}

// Transactions returns all line groups of a transaction type in first-seen
// order.
func (ix *Index) Transactions(txnType string) []*Transaction {
	ids := ix.typeOrder[txnType]
	txs := make([]*Transaction, 0, len(ids))
	for _, id := range ids {
		txs = append(txs, ix.byType[txnType][id])
	}
	return txs
}

// EarliestDate returns the oldest dated line in the report, used to extend
// fiscal coverage before posting.
func (ix *Index) EarliestDate() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, lines := range ix.byAccount {
		for _, line := range lines {
			d, err := time.Parse("2006-01-02", line.Date)
			if err != nil {
				continue
			}
			if !found || d.Before(earliest) {
				earliest = d
				found = true
			}
		}
	}
	return earliest, found
}
