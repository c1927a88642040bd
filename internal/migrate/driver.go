// Package migrate drives a full migration run: chart of accounts and taxes
// first, then the General Ledger report, then every transaction kind in
// posting order. Each phase is idempotent, so an interrupted run can simply
// be started again.
package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/booksbridge/booksbridge/internal/config"
	"github.com/booksbridge/booksbridge/internal/ledger"
	"github.com/booksbridge/booksbridge/internal/model"
	"github.com/booksbridge/booksbridge/internal/progress"
	"github.com/booksbridge/booksbridge/internal/qbo"
	"github.com/booksbridge/booksbridge/internal/report"
	"github.com/booksbridge/booksbridge/internal/resolve"
	"github.com/booksbridge/booksbridge/internal/store"
	"github.com/booksbridge/booksbridge/internal/transform"
)

// Source fetches records from the external bookkeeping API. *qbo.Client
// satisfies it; tests substitute canned data.
type Source interface {
	FetchAll(ctx context.Context, entity string) ([]json.RawMessage, error)
	GeneralLedger(ctx context.Context) (*report.Report, error)
}

// FiscalCalendar extends fiscal-year coverage back to a given date before any
// documents are posted. Stores that do not track fiscal years use
// NoFiscalCalendar.
type FiscalCalendar interface {
	EnsureCoverage(from time.Time) error
}

// NoFiscalCalendar is the no-op FiscalCalendar.
type NoFiscalCalendar struct{}

func (NoFiscalCalendar) EnsureCoverage(time.Time) error { return nil }

// State is the lifecycle of a run.
type State string

const (
	StateInProgress State = "In Progress"
	StateComplete   State = "Complete"
	StateFailed     State = "Failed"
)

// Status summarizes a run. Failed counts records that were logged and
// skipped; a nonzero value does not fail the run.
type Status struct {
	State    State
	Accounts int
	Migrated map[string]int
	Failed   int
}

// structuredKinds is the posting order for kinds with an API representation.
// Payments come after the documents they settle.
var structuredKinds = []model.SourceKind{
	model.KindJournalEntry,
	model.KindPurchase,
	model.KindDeposit,
	model.KindInvoice,
	model.KindCreditMemo,
	model.KindSalesReceipt,
	model.KindRefundReceipt,
	model.KindBill,
	model.KindVendorCredit,
	model.KindPayment,
	model.KindBillPayment,
}

// glKinds have no API representation and are rebuilt from the report.
var glKinds = []model.SourceKind{
	model.KindSupplierCredit,
	model.KindAdvancePayment,
	model.KindTaxPayment,
	model.KindSalesTaxPayment,
	model.KindPurchaseTaxPayment,
	model.KindInventoryAdjust,
}

// Driver owns one migration run.
type Driver struct {
	cfg    *config.Config
	store  store.Store
	source Source
	fiscal FiscalCalendar
	sink   progress.Sink
	log    *zap.Logger
}

// Option configures a Driver.
type Option func(*Driver)

// WithFiscalCalendar installs a fiscal-coverage hook.
func WithFiscalCalendar(fc FiscalCalendar) Option {
	return func(d *Driver) { d.fiscal = fc }
}

// WithProgress installs a progress sink.
func WithProgress(sink progress.Sink) Option {
	return func(d *Driver) { d.sink = sink }
}

// New creates a Driver. By default progress goes to the log and no fiscal
// calendar is consulted.
func New(cfg *config.Config, s store.Store, source Source, log *zap.Logger, opts ...Option) *Driver {
	d := &Driver{
		cfg:    cfg,
		store:  s,
		source: source,
		fiscal: NoFiscalCalendar{},
		log:    log.Named("migrate"),
	}
	d.sink = progress.NewLogSink(log)
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run executes the full migration pipeline. Per-record failures are logged
// and counted but do not abort the run; phase-level failures (fetch errors,
// undecodable collections) do.
func (d *Driver) Run(ctx context.Context) (*Status, error) {
	status := &Status{State: StateInProgress, Migrated: make(map[string]int)}
	defer func() {
		if status.State == StateInProgress {
			status.State = StateFailed
		}
	}()

	builder := ledger.NewBuilder(d.store, d.cfg.Company.Name, d.log)
	accounts := resolve.NewAccountResolver(d.store, d.cfg, d.log)
	taxes := resolve.NewTaxResolver(d.store, accounts, d.cfg)

	if err := d.migrateAccounts(ctx, accounts, status); err != nil {
		return status, err
	}
	if err := d.migrateTaxes(ctx, accounts, taxes, status); err != nil {
		return status, err
	}

	d.sink.Publish("phase", "Fetching general ledger report", 0, 0)
	rep, err := d.source.GeneralLedger(ctx)
	if err != nil {
		return status, err
	}
	gl, err := report.Parse(rep, accounts)
	if err != nil {
		return status, fmt.Errorf("parsing general ledger report: %w", err)
	}

	if earliest, ok := gl.EarliestDate(); ok {
		if err := d.fiscal.EnsureCoverage(earliest); err != nil {
			return status, fmt.Errorf("extending fiscal coverage to %s: %w", earliest.Format("2006-01-02"), err)
		}
	}

	t := transform.New(transform.Context{
		Config:   d.cfg,
		Store:    d.store,
		Builder:  builder,
		Accounts: accounts,
		Taxes:    taxes,
		GL:       gl,
		Log:      d.log,
	})

	if err := d.migrateParties(ctx, t, status); err != nil {
		return status, err
	}

	for _, kind := range structuredKinds {
		if err := d.migrateStructured(ctx, t, kind, status); err != nil {
			return status, err
		}
	}
	for _, kind := range glKinds {
		d.migrateFromLedger(t, gl, kind, status)
	}

	status.State = StateComplete
	d.sink.Publish("done", "Migration complete", 0, 0)
	d.log.Info("migration finished",
		zap.Int("accounts", status.Accounts),
		zap.Int("failed", status.Failed))
	return status, nil
}

func (d *Driver) migrateAccounts(ctx context.Context, accounts *resolve.AccountResolver, status *Status) error {
	if err := accounts.CreateRoots(); err != nil {
		return err
	}

	records, err := d.source.FetchAll(ctx, "Account")
	if err != nil {
		return err
	}
	raw := make([]qbo.RawAccount, 0, len(records))
	for _, rec := range records {
		var a qbo.RawAccount
		if err := json.Unmarshal(rec, &a); err != nil {
			return fmt.Errorf("decoding account record: %w", err)
		}
		raw = append(raw, a)
	}

	prepared := accounts.Preprocess(raw)
	for i, a := range prepared {
		d.sink.Publish("accounts", "Saving accounts", i+1, len(prepared))
		if err := accounts.SaveAccount(a); err != nil {
			d.recordFailure(status, "account", a.ID, err)
			continue
		}
		status.Accounts++
	}
	return nil
}

func (d *Driver) migrateTaxes(ctx context.Context, accounts *resolve.AccountResolver, taxes *resolve.TaxResolver, status *Status) error {
	rateRecords, err := d.source.FetchAll(ctx, "TaxRate")
	if err != nil {
		return err
	}
	rates := make([]qbo.RawTaxRate, 0, len(rateRecords))
	for _, rec := range rateRecords {
		var r qbo.RawTaxRate
		if err := json.Unmarshal(rec, &r); err != nil {
			return fmt.Errorf("decoding tax rate record: %w", err)
		}
		rates = append(rates, r)
	}
	taxes.SetRates(rates)

	for i, r := range rates {
		d.sink.Publish("taxes", "Saving tax accounts", i+1, len(rates))
		if err := accounts.SaveTaxRateAccount(r); err != nil {
			d.recordFailure(status, "tax rate", r.ID, err)
		}
	}

	codeRecords, err := d.source.FetchAll(ctx, "TaxCode")
	if err != nil {
		return err
	}
	codes := make([]qbo.RawTaxCode, 0, len(codeRecords))
	for _, rec := range codeRecords {
		var c qbo.RawTaxCode
		if err := json.Unmarshal(rec, &c); err != nil {
			return fmt.Errorf("decoding tax code record: %w", err)
		}
		codes = append(codes, c)
	}
	taxes.SetCodes(codes)
	return nil
}

func (d *Driver) migrateParties(ctx context.Context, t *transform.Transformer, status *Status) error {
	phases := []struct {
		entity string
		save   func(json.RawMessage) error
	}{
		{"Customer", func(raw json.RawMessage) error {
			var c qbo.RawCustomer
			if err := json.Unmarshal(raw, &c); err != nil {
				return err
			}
			return t.SaveCustomer(c)
		}},
		{"Item", func(raw json.RawMessage) error {
			var i qbo.RawItem
			if err := json.Unmarshal(raw, &i); err != nil {
				return err
			}
			return t.SaveItem(i)
		}},
		{"Vendor", func(raw json.RawMessage) error {
			var v qbo.RawVendor
			if err := json.Unmarshal(raw, &v); err != nil {
				return err
			}
			return t.SaveSupplier(v)
		}},
		{"Preferences", func(raw json.RawMessage) error {
			var p qbo.RawPreferences
			if err := json.Unmarshal(raw, &p); err != nil {
				return err
			}
			return t.SavePreferences(p)
		}},
	}

	for _, phase := range phases {
		records, err := d.source.FetchAll(ctx, phase.entity)
		if err != nil {
			return err
		}
		for i, rec := range records {
			d.sink.Publish("parties", fmt.Sprintf("Saving %s records", phase.entity), i+1, len(records))
			if err := phase.save(rec); err != nil {
				d.recordFailure(status, phase.entity, recordID(rec), err)
				continue
			}
			status.Migrated[phase.entity]++
		}
	}
	return nil
}

func (d *Driver) migrateStructured(ctx context.Context, t *transform.Transformer, kind model.SourceKind, status *Status) error {
	records, err := d.source.FetchAll(ctx, kind.QueryName())
	if err != nil {
		return err
	}
	for i, rec := range records {
		d.sink.Publish("transactions", fmt.Sprintf("Saving %s records", kind), i+1, len(records))
		if err := d.saveStructured(t, kind, rec); err != nil {
			d.recordFailure(status, kind.String(), recordID(rec), err)
			continue
		}
		status.Migrated[kind.String()]++
	}
	return nil
}

// saveStructured dispatches a raw record to its kind's transformation. The
// switch is exhaustive over structuredKinds.
func (d *Driver) saveStructured(t *transform.Transformer, kind model.SourceKind, raw json.RawMessage) error {
	decode := func(v any) error {
		if err := json.Unmarshal(raw, v); err != nil {
			return fmt.Errorf("decoding %s record: %w", kind, err)
		}
		return nil
	}

	switch kind {
	case model.KindJournalEntry:
		var rec qbo.JournalEntry
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveJournalEntry(rec)
	case model.KindPurchase:
		var rec qbo.Purchase
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SavePurchase(rec)
	case model.KindDeposit:
		var rec qbo.Deposit
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveDeposit(rec)
	case model.KindInvoice:
		var rec qbo.Invoice
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveInvoice(rec)
	case model.KindCreditMemo:
		var rec qbo.Invoice
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveCreditMemo(rec)
	case model.KindSalesReceipt:
		var rec qbo.Invoice
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveSalesReceipt(rec)
	case model.KindRefundReceipt:
		var rec qbo.Invoice
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveRefundReceipt(rec)
	case model.KindBill:
		var rec qbo.Bill
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveBill(rec)
	case model.KindVendorCredit:
		var rec qbo.Bill
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveVendorCredit(rec)
	case model.KindPayment:
		var rec qbo.Payment
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SavePayment(rec)
	case model.KindBillPayment:
		var rec qbo.BillPayment
		if err := decode(&rec); err != nil {
			return err
		}
		return t.SaveBillPayment(rec)
	}
	return fmt.Errorf("kind %s has no structured representation", kind)
}

func (d *Driver) migrateFromLedger(t *transform.Transformer, gl *report.Index, kind model.SourceKind, status *Status) {
	txs := gl.Transactions(kind.GLName())
	for i, tx := range txs {
		d.sink.Publish("transactions", fmt.Sprintf("Saving %s records", kind), i+1, len(txs))
		if err := t.SaveGLTransaction(kind, tx); err != nil {
			d.recordFailure(status, kind.String(), tx.ID, err)
			continue
		}
		status.Migrated[kind.String()]++
	}
}

func (d *Driver) recordFailure(status *Status, entity, id string, err error) {
	status.Failed++
	d.log.Error("record failed, continuing",
		zap.String("entity", entity),
		zap.String("id", id),
		zap.Error(err))
}

// recordID extracts the external id from a raw record, for failure logs only.
func recordID(raw json.RawMessage) string {
	var head struct {
		ID string `json:"Id"`
	}
	if err := json.Unmarshal(raw, &head); err != nil {
		return ""
	}
	return head.ID
}
