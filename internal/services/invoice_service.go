package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"szamlazo/internal/amqp"
	"szamlazo/internal/core"
	"szamlazo/internal/pdf"
	"szamlazo/internal/storage"
)

// InvoiceForm holds submitted invoice fields as typed by the user.
type InvoiceForm struct {
	ID            int64
	CompanyID     int64
	InvoiceNumber string
	IssueDate     string
	DueDate       string
	Currency      string
	Note          string
	Items         []ItemForm
}

type ItemForm struct {
	Description string
	Quantity    string
	UnitPrice   string
}

// ItemError locates a parse error in the submitted item rows (1-based).
type ItemError struct {
	Row int
	Err error
}

func (e *ItemError) Error() string { return fmt.Sprintf("item %d: %v", e.Row, e.Err) }
func (e *ItemError) Unwrap() error { return e.Err }

// ToInvoice parses the form. Item rows with a blank description are dropped.
func (f InvoiceForm) ToInvoice(defaultCurrency string) (core.Invoice, error) {
	inv := core.Invoice{
		ID:            f.ID,
		CompanyID:     f.CompanyID,
		InvoiceNumber: strings.TrimSpace(f.InvoiceNumber),
		Currency:      strings.ToUpper(strings.TrimSpace(f.Currency)),
		Note:          strings.TrimSpace(f.Note),
	}
	if inv.Currency == "" {
		inv.Currency = defaultCurrency
	}

	var err error
	if inv.IssueDate, err = core.ParseDate(f.IssueDate); err != nil {
		return core.Invoice{}, core.ErrInvalidIssueDate
	}
	if inv.DueDate, err = core.ParseDate(f.DueDate); err != nil {
		return core.Invoice{}, core.ErrInvalidDueDate
	}

	for i, row := range f.Items {
		desc := strings.TrimSpace(row.Description)
		if desc == "" {
			continue
		}
		qty, err := core.ParseQuantity(row.Quantity)
		if err != nil {
			return core.Invoice{}, &ItemError{Row: i + 1, Err: core.ErrInvalidQuantity}
		}
		price, err := core.ParseAmount(row.UnitPrice)
		if err != nil {
			return core.Invoice{}, &ItemError{Row: i + 1, Err: core.ErrInvalidUnitPrice}
		}
		inv.Items = append(inv.Items, core.InvoiceItem{Description: desc, Quantity: qty, UnitPrice: price})
	}

	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	return inv, nil
}

// InvoiceService handles invoice mutations and exports. Every mutation runs
// in one transaction and publishes an event after commit.
type InvoiceService struct {
	repo            *storage.SQLiteRepository
	events          EventPublisher
	defaultCurrency string
	defaultDueDays  int
}

func NewInvoiceService(repo *storage.SQLiteRepository, events EventPublisher, defaultCurrency string, defaultDueDays int) *InvoiceService {
	if defaultCurrency == "" {
		defaultCurrency = core.DefaultCurrency
	}
	return &InvoiceService{
		repo:            repo,
		events:          events,
		defaultCurrency: defaultCurrency,
		defaultDueDays:  defaultDueDays,
	}
}

// NewForm returns a blank form with today's issue date, the default due date
// and currency, and one empty item row.
func (s *InvoiceService) NewForm() InvoiceForm {
	today := core.Today()
	return InvoiceForm{
		IssueDate: today.String(),
		DueDate:   today.AddDays(s.defaultDueDays).String(),
		Currency:  s.defaultCurrency,
		Items:     []ItemForm{{Quantity: "1"}},
	}
}

// FormFromInvoice pre-fills the edit form.
func FormFromInvoice(inv core.Invoice) InvoiceForm {
	f := InvoiceForm{
		ID:            inv.ID,
		CompanyID:     inv.CompanyID,
		InvoiceNumber: inv.InvoiceNumber,
		IssueDate:     inv.IssueDate.String(),
		DueDate:       inv.DueDate.String(),
		Currency:      inv.Currency,
		Note:          inv.Note,
	}
	for _, it := range inv.Items {
		f.Items = append(f.Items, ItemForm{
			Description: it.Description,
			Quantity:    it.Quantity.String(),
			UnitPrice:   it.UnitPrice.String(),
		})
	}
	return f
}

func (s *InvoiceService) List(ctx context.Context, filter core.InvoiceFilter) ([]core.Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

func (s *InvoiceService) Get(ctx context.Context, id int64) (core.Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

func (s *InvoiceService) Create(ctx context.Context, form InvoiceForm) (core.Invoice, error) {
	form.ID = 0
	inv, err := form.ToInvoice(s.defaultCurrency)
	if err != nil {
		return core.Invoice{}, err
	}

	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		if err := checkInvoiceRefs(ctx, st, inv); err != nil {
			return err
		}
		id, err := st.CreateInvoice(ctx, inv)
		if err != nil {
			return err
		}
		inv, err = st.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", err)
	}

	slog.InfoContext(ctx, "Invoice created",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"items", len(inv.Items))
	publishInvoiceEvent(ctx, s.events, amqp.ActionCreated, inv)
	return inv, nil
}

// Update replaces every field of invoice id and its whole item set.
func (s *InvoiceService) Update(ctx context.Context, id int64, form InvoiceForm) (core.Invoice, error) {
	form.ID = id
	inv, err := form.ToInvoice(s.defaultCurrency)
	if err != nil {
		return core.Invoice{}, err
	}

	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		if _, err := st.GetInvoice(ctx, id); err != nil {
			return err
		}
		if err := checkInvoiceRefs(ctx, st, inv); err != nil {
			return err
		}
		if err := st.UpdateInvoice(ctx, inv); err != nil {
			return err
		}
		inv, err = st.GetInvoice(ctx, id)
		return err
	})
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Invoice updated",
		"invoice_id", inv.ID,
		"invoice_number", inv.InvoiceNumber,
		"items", len(inv.Items))
	publishInvoiceEvent(ctx, s.events, amqp.ActionUpdated, inv)
	return inv, nil
}

func (s *InvoiceService) Delete(ctx context.Context, id int64) error {
	var inv core.Invoice
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		var err error
		if inv, err = st.GetInvoice(ctx, id); err != nil {
			return err
		}
		return st.DeleteInvoice(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete invoice %d: %w", id, err)
	}

	slog.InfoContext(ctx, "Invoice deleted", "invoice_id", id, "invoice_number", inv.InvoiceNumber)
	publishInvoiceEvent(ctx, s.events, amqp.ActionDeleted, inv)
	return nil
}

// RenderPDF returns the rendered document and its download filename.
func (s *InvoiceService) RenderPDF(ctx context.Context, id int64) ([]byte, string, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return nil, "", err
	}
	company, err := s.repo.GetCompany(ctx, inv.CompanyID)
	if err != nil {
		return nil, "", fmt.Errorf("load company of invoice %d: %w", id, err)
	}
	owner, err := s.repo.GetOwnerCompany(ctx)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	if err := pdf.Render(&buf, owner, company, inv); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), pdf.Filename(inv.InvoiceNumber), nil
}

func checkInvoiceRefs(ctx context.Context, st *storage.Store, inv core.Invoice) error {
	taken, err := st.InvoiceNumberTaken(ctx, inv.InvoiceNumber, inv.ID)
	if err != nil {
		return err
	}
	if taken {
		return core.ErrDuplicateInvoiceNumber
	}
	exists, err := st.CompanyExists(ctx, inv.CompanyID)
	if err != nil {
		return err
	}
	if !exists {
		return core.ErrCompanyNotFound
	}
	return nil
}

// IsValidationError reports whether err comes from user input rather than
// from storage, so the form can be shown again.
func IsValidationError(err error) bool {
	var itemErr *ItemError
	if errors.As(err, &itemErr) {
		return true
	}
	for _, target := range []error{
		core.ErrEmptyName, core.ErrEmptyAddress, core.ErrEmptyTaxNumber,
		core.ErrMissingCompany, core.ErrEmptyInvoiceNumber,
		core.ErrInvalidIssueDate, core.ErrInvalidDueDate,
		core.ErrNoItems, core.ErrInvalidQuantity, core.ErrInvalidUnitPrice,
		core.ErrCompanyNotFound, core.ErrDuplicateInvoiceNumber, core.ErrDuplicateTaxNumber,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
