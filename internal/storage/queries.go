package storage

import (
	"context"
	"database/sql"
	"strings"
)

type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ---- company ----

const createCompany = `INSERT INTO company (name, address, tax_number, bank_account, contact_person, email, phone)
VALUES (?, ?, ?, ?, ?, ?, ?)
RETURNING id`

type CompanyParams struct {
	Name          string
	Address       string
	TaxNumber     string
	BankAccount   string
	ContactPerson string
	Email         string
	Phone         string
}

func (q *Queries) CreateCompany(ctx context.Context, arg CompanyParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createCompany,
		arg.Name, arg.Address, arg.TaxNumber, arg.BankAccount, arg.ContactPerson, arg.Email, arg.Phone)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateCompany = `UPDATE company
SET name = ?, address = ?, tax_number = ?, bank_account = ?, contact_person = ?, email = ?, phone = ?
WHERE id = ?`

func (q *Queries) UpdateCompany(ctx context.Context, id int64, arg CompanyParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateCompany,
		arg.Name, arg.Address, arg.TaxNumber, arg.BankAccount, arg.ContactPerson, arg.Email, arg.Phone, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteCompany = `DELETE FROM company WHERE id = ?`

func (q *Queries) DeleteCompany(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteCompany, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const selectCompany = `SELECT id, name, address, tax_number, bank_account, contact_person, email, phone FROM company`

func scanCompany(s interface{ Scan(...interface{}) error }) (Company, error) {
	var c Company
	err := s.Scan(&c.ID, &c.Name, &c.Address, &c.TaxNumber, &c.BankAccount, &c.ContactPerson, &c.Email, &c.Phone)
	return c, err
}

func (q *Queries) GetCompany(ctx context.Context, id int64) (Company, error) {
	return scanCompany(q.db.QueryRowContext(ctx, selectCompany+` WHERE id = ?`, id))
}

func (q *Queries) ListCompanies(ctx context.Context) ([]Company, error) {
	rows, err := q.db.QueryContext(ctx, selectCompany+` ORDER BY name, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const companyExists = `SELECT EXISTS(SELECT 1 FROM company WHERE id = ?)`

func (q *Queries) CompanyExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, companyExists, id).Scan(&exists)
	return exists, err
}

const taxNumberExists = `SELECT EXISTS(SELECT 1 FROM company WHERE tax_number = ?)`

func (q *Queries) TaxNumberExists(ctx context.Context, taxNumber string) (bool, error) {
	var exists bool
	err := q.db.QueryRowContext(ctx, taxNumberExists, taxNumber).Scan(&exists)
	return exists, err
}

// ---- invoice ----

const createInvoice = `INSERT INTO invoice (company_id, invoice_number, issue_date, due_date, currency, note)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

type InvoiceParams struct {
	CompanyID     int64
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Currency      string
	Note          string
}

func (q *Queries) CreateInvoice(ctx context.Context, arg InvoiceParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createInvoice,
		arg.CompanyID, arg.InvoiceNumber, arg.IssueDate, arg.DueDate, arg.Currency, arg.Note)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const updateInvoice = `UPDATE invoice
SET company_id = ?, invoice_number = ?, issue_date = ?, due_date = ?, currency = ?, note = ?
WHERE id = ?`

func (q *Queries) UpdateInvoice(ctx context.Context, id int64, arg InvoiceParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, updateInvoice,
		arg.CompanyID, arg.InvoiceNumber, arg.IssueDate, arg.DueDate, arg.Currency, arg.Note, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteInvoice = `DELETE FROM invoice WHERE id = ?`

func (q *Queries) DeleteInvoice(ctx context.Context, id int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteInvoice, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const selectInvoice = `SELECT i.id, i.company_id, c.name, i.invoice_number, i.issue_date, i.due_date, i.currency, i.note
FROM invoice i
JOIN company c ON c.id = i.company_id`

func scanInvoice(s interface{ Scan(...interface{}) error }) (Invoice, error) {
	var i Invoice
	err := s.Scan(&i.ID, &i.CompanyID, &i.CompanyName, &i.InvoiceNumber, &i.IssueDate, &i.DueDate, &i.Currency, &i.Note)
	return i, err
}

func (q *Queries) GetInvoice(ctx context.Context, id int64) (Invoice, error) {
	return scanInvoice(q.db.QueryRowContext(ctx, selectInvoice+` WHERE i.id = ?`, id))
}

// ListInvoicesParams bounds are YYYY-MM-DD strings; empty means unbounded.
// IssuedBefore is exclusive.
type ListInvoicesParams struct {
	IssuedFrom   string
	IssuedBefore string
}

const listInvoices = selectInvoice + `
WHERE (?1 = '' OR i.issue_date >= ?1)
  AND (?2 = '' OR i.issue_date < ?2)
ORDER BY i.issue_date DESC, i.id DESC`

func (q *Queries) ListInvoices(ctx context.Context, arg ListInvoicesParams) ([]Invoice, error) {
	rows, err := q.db.QueryContext(ctx, listInvoices, arg.IssuedFrom, arg.IssuedBefore)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Invoice
	for rows.Next() {
		i, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const invoiceNumberTaken = `SELECT EXISTS(SELECT 1 FROM invoice WHERE invoice_number = ? AND id <> ?)`

// InvoiceNumberTaken reports whether another invoice than excludeID uses number.
func (q *Queries) InvoiceNumberTaken(ctx context.Context, number string, excludeID int64) (bool, error) {
	var taken bool
	err := q.db.QueryRowContext(ctx, invoiceNumberTaken, number, excludeID).Scan(&taken)
	return taken, err
}

// ---- invoice_item ----

const createInvoiceItem = `INSERT INTO invoice_item (invoice_id, description, quantity, unit_price)
VALUES (?, ?, ?, ?)
RETURNING id`

type InvoiceItemParams struct {
	InvoiceID   int64
	Description string
	Quantity    string
	UnitPrice   string
}

func (q *Queries) CreateInvoiceItem(ctx context.Context, arg InvoiceItemParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, createInvoiceItem, arg.InvoiceID, arg.Description, arg.Quantity, arg.UnitPrice)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const deleteInvoiceItems = `DELETE FROM invoice_item WHERE invoice_id = ?`

func (q *Queries) DeleteInvoiceItems(ctx context.Context, invoiceID int64) error {
	_, err := q.db.ExecContext(ctx, deleteInvoiceItems, invoiceID)
	return err
}

const listInvoiceItems = `SELECT id, invoice_id, description, quantity, unit_price FROM invoice_item`

// ListInvoiceItems returns the items of the given invoices, or of every
// invoice when invoiceIDs is nil.
func (q *Queries) ListInvoiceItems(ctx context.Context, invoiceIDs []int64) ([]InvoiceItem, error) {
	query := listInvoiceItems
	var args []interface{}
	if invoiceIDs != nil {
		if len(invoiceIDs) == 0 {
			return nil, nil
		}
		query += ` WHERE invoice_id IN (?` + strings.Repeat(",?", len(invoiceIDs)-1) + `)`
		args = make([]interface{}, len(invoiceIDs))
		for i, id := range invoiceIDs {
			args[i] = id
		}
	}
	query += ` ORDER BY invoice_id, id`

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceItem
	for rows.Next() {
		var it InvoiceItem
		if err := rows.Scan(&it.ID, &it.InvoiceID, &it.Description, &it.Quantity, &it.UnitPrice); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// ---- owner_company ----

const getOwnerCompany = `SELECT name, address, tax_number, bank_account, email, phone FROM owner_company WHERE id = 1`

func (q *Queries) GetOwnerCompany(ctx context.Context) (OwnerCompany, error) {
	var o OwnerCompany
	err := q.db.QueryRowContext(ctx, getOwnerCompany).Scan(&o.Name, &o.Address, &o.TaxNumber, &o.BankAccount, &o.Email, &o.Phone)
	return o, err
}

const upsertOwnerCompany = `INSERT INTO owner_company (id, name, address, tax_number, bank_account, email, phone)
VALUES (1, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    address = excluded.address,
    tax_number = excluded.tax_number,
    bank_account = excluded.bank_account,
    email = excluded.email,
    phone = excluded.phone`

func (q *Queries) UpsertOwnerCompany(ctx context.Context, arg OwnerCompany) error {
	_, err := q.db.ExecContext(ctx, upsertOwnerCompany, arg.Name, arg.Address, arg.TaxNumber, arg.BankAccount, arg.Email, arg.Phone)
	return err
}
