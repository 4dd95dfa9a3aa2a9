package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"szamlazo/internal/core"
)

// SQLiteRepository owns the database handle. Its embedded Store runs outside
// any explicit transaction; InTx hands out a Store bound to one.
type SQLiteRepository struct {
	*Store
	db *sql.DB
}

// DSN appends the connection pragmas every pooled connection needs.
func DSN(dbPath string) string {
	return dbPath + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	dsn := DSN(dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dsn); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		Store: &Store{q: New(db)},
		db:    db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping is used by the readiness probe.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a single transaction. The transaction commits when fn
// returns nil and rolls back otherwise.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(*Store) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&Store{q: r.Store.q.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Failed to roll back transaction", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Store exposes domain-level operations on top of Queries.
type Store struct {
	q *Queries
}

// ---- companies ----

func (s *Store) ListCompanies(ctx context.Context) ([]core.Company, error) {
	rows, err := s.q.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	companies := make([]core.Company, len(rows))
	for i, c := range rows {
		companies[i] = companyToCore(c)
	}
	return companies, nil
}

func (s *Store) GetCompany(ctx context.Context, id int64) (core.Company, error) {
	c, err := s.q.GetCompany(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Company{}, core.ErrNotFound
	}
	if err != nil {
		return core.Company{}, fmt.Errorf("get company %d: %w", id, err)
	}
	return companyToCore(c), nil
}

func (s *Store) CompanyExists(ctx context.Context, id int64) (bool, error) {
	exists, err := s.q.CompanyExists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check company %d: %w", id, err)
	}
	return exists, nil
}

func (s *Store) TaxNumberExists(ctx context.Context, taxNumber string) (bool, error) {
	exists, err := s.q.TaxNumberExists(ctx, taxNumber)
	if err != nil {
		return false, fmt.Errorf("check tax number: %w", err)
	}
	return exists, nil
}

func (s *Store) CreateCompany(ctx context.Context, c core.Company) (int64, error) {
	id, err := s.q.CreateCompany(ctx, companyParams(c))
	if err != nil {
		return 0, fmt.Errorf("create company: %w", mapConstraintError(err))
	}
	return id, nil
}

func (s *Store) UpdateCompany(ctx context.Context, c core.Company) error {
	n, err := s.q.UpdateCompany(ctx, c.ID, companyParams(c))
	if err != nil {
		return fmt.Errorf("update company %d: %w", c.ID, mapConstraintError(err))
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteCompany also removes the company's invoices through ON DELETE CASCADE.
func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	n, err := s.q.DeleteCompany(ctx, id)
	if err != nil {
		return fmt.Errorf("delete company %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// ---- invoices ----

// ListInvoices narrows by date in SQL and applies the whole filter in
// process, since SQLite's LIKE only folds ASCII.
func (s *Store) ListInvoices(ctx context.Context, f core.InvoiceFilter) ([]core.Invoice, error) {
	params := ListInvoicesParams{}
	if !f.StartDate.IsZero() {
		params.IssuedFrom = f.StartDate.String()
	}
	if !f.EndDate.IsZero() {
		params.IssuedBefore = f.EndExclusive().String()
	}

	rows, err := s.q.ListInvoices(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}

	invoices := make([]core.Invoice, 0, len(rows))
	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		inv, err := invoiceToCore(row)
		if err != nil {
			return nil, err
		}
		if !f.Matches(inv) {
			continue
		}
		invoices = append(invoices, inv)
		ids = append(ids, inv.ID)
	}

	var itemRows []InvoiceItem
	if f.IsEmpty() {
		itemRows, err = s.q.ListInvoiceItems(ctx, nil)
	} else {
		itemRows, err = s.q.ListInvoiceItems(ctx, ids)
	}
	if err != nil {
		return nil, fmt.Errorf("list invoice items: %w", err)
	}

	byInvoice := make(map[int64][]core.InvoiceItem, len(invoices))
	for _, row := range itemRows {
		it, err := itemToCore(row)
		if err != nil {
			return nil, err
		}
		byInvoice[it.InvoiceID] = append(byInvoice[it.InvoiceID], it)
	}
	for i := range invoices {
		invoices[i].Items = byInvoice[invoices[i].ID]
	}
	return invoices, nil
}

func (s *Store) GetInvoice(ctx context.Context, id int64) (core.Invoice, error) {
	row, err := s.q.GetInvoice(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, core.ErrNotFound
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice %d: %w", id, err)
	}
	inv, err := invoiceToCore(row)
	if err != nil {
		return core.Invoice{}, err
	}

	itemRows, err := s.q.ListInvoiceItems(ctx, []int64{id})
	if err != nil {
		return core.Invoice{}, fmt.Errorf("list items of invoice %d: %w", id, err)
	}
	for _, r := range itemRows {
		it, err := itemToCore(r)
		if err != nil {
			return core.Invoice{}, err
		}
		inv.Items = append(inv.Items, it)
	}
	return inv, nil
}

func (s *Store) InvoiceNumberTaken(ctx context.Context, number string, excludeID int64) (bool, error) {
	taken, err := s.q.InvoiceNumberTaken(ctx, number, excludeID)
	if err != nil {
		return false, fmt.Errorf("check invoice number: %w", err)
	}
	return taken, nil
}

// CreateInvoice inserts the invoice row and its items.
func (s *Store) CreateInvoice(ctx context.Context, inv core.Invoice) (int64, error) {
	id, err := s.q.CreateInvoice(ctx, invoiceParams(inv))
	if err != nil {
		return 0, fmt.Errorf("create invoice: %w", mapConstraintError(err))
	}
	if err := s.insertItems(ctx, id, inv.Items); err != nil {
		return 0, err
	}
	return id, nil
}

// UpdateInvoice replaces every field and the whole item set.
func (s *Store) UpdateInvoice(ctx context.Context, inv core.Invoice) error {
	n, err := s.q.UpdateInvoice(ctx, inv.ID, invoiceParams(inv))
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", inv.ID, mapConstraintError(err))
	}
	if n == 0 {
		return core.ErrNotFound
	}
	if err := s.q.DeleteInvoiceItems(ctx, inv.ID); err != nil {
		return fmt.Errorf("delete items of invoice %d: %w", inv.ID, err)
	}
	return s.insertItems(ctx, inv.ID, inv.Items)
}

func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	n, err := s.q.DeleteInvoice(ctx, id)
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (s *Store) insertItems(ctx context.Context, invoiceID int64, items []core.InvoiceItem) error {
	for _, it := range items {
		_, err := s.q.CreateInvoiceItem(ctx, InvoiceItemParams{
			InvoiceID:   invoiceID,
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   it.UnitPrice.String(),
		})
		if err != nil {
			return fmt.Errorf("create item of invoice %d: %w", invoiceID, err)
		}
	}
	return nil
}

// ---- owner company ----

// GetOwnerCompany returns the zero value when no profile has been saved.
func (s *Store) GetOwnerCompany(ctx context.Context) (core.OwnerCompany, error) {
	o, err := s.q.GetOwnerCompany(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return core.OwnerCompany{}, nil
	}
	if err != nil {
		return core.OwnerCompany{}, fmt.Errorf("get owner company: %w", err)
	}
	return core.OwnerCompany(o), nil
}

func (s *Store) SaveOwnerCompany(ctx context.Context, o core.OwnerCompany) error {
	if err := s.q.UpsertOwnerCompany(ctx, OwnerCompany(o)); err != nil {
		return fmt.Errorf("save owner company: %w", err)
	}
	return nil
}

// ---- conversion ----

func companyParams(c core.Company) CompanyParams {
	return CompanyParams{
		Name:          c.Name,
		Address:       c.Address,
		TaxNumber:     c.TaxNumber,
		BankAccount:   c.BankAccount,
		ContactPerson: c.ContactPerson,
		Email:         c.Email,
		Phone:         c.Phone,
	}
}

func companyToCore(c Company) core.Company {
	return core.Company(c)
}

func invoiceParams(inv core.Invoice) InvoiceParams {
	return InvoiceParams{
		CompanyID:     inv.CompanyID,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssueDate.String(),
		DueDate:       inv.DueDate.String(),
		Currency:      inv.Currency,
		Note:          inv.Note,
	}
}

func invoiceToCore(row Invoice) (core.Invoice, error) {
	issue, err := core.ParseDate(row.IssueDate)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %d issue date %q: %w", row.ID, row.IssueDate, err)
	}
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("invoice %d due date %q: %w", row.ID, row.DueDate, err)
	}
	return core.Invoice{
		ID:            row.ID,
		CompanyID:     row.CompanyID,
		CompanyName:   row.CompanyName,
		InvoiceNumber: row.InvoiceNumber,
		IssueDate:     issue,
		DueDate:       due,
		Currency:      row.Currency,
		Note:          row.Note,
	}, nil
}

func itemToCore(row InvoiceItem) (core.InvoiceItem, error) {
	qty, err := decimal.NewFromString(row.Quantity)
	if err != nil {
		return core.InvoiceItem{}, fmt.Errorf("item %d quantity %q: %w", row.ID, row.Quantity, err)
	}
	price, err := decimal.NewFromString(row.UnitPrice)
	if err != nil {
		return core.InvoiceItem{}, fmt.Errorf("item %d unit price %q: %w", row.ID, row.UnitPrice, err)
	}
	return core.InvoiceItem{
		ID:          row.ID,
		InvoiceID:   row.InvoiceID,
		Description: row.Description,
		Quantity:    qty,
		UnitPrice:   price,
	}, nil
}

// mapConstraintError translates unique violations into domain conflicts.
func mapConstraintError(err error) error {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return err
	}
	msg := se.Error()
	if se.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE && !strings.Contains(msg, "UNIQUE constraint failed") {
		return err
	}
	switch {
	case strings.Contains(msg, "company.tax_number"):
		return core.ErrDuplicateTaxNumber
	case strings.Contains(msg, "invoice.invoice_number"):
		return core.ErrDuplicateInvoiceNumber
	}
	return err
}
