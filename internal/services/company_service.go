package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"szamlazo/internal/companycsv"
	"szamlazo/internal/core"
	"szamlazo/internal/storage"
)

// ImportResult summarizes a committed CSV import.
type ImportResult struct {
	Imported int
	Skipped  []ImportSkip
}

// ImportSkip is a data row that was left out of an import.
type ImportSkip struct {
	Line      int
	Name      string
	TaxNumber string
	Fields    []string
	Reason    error
}

var (
	ErrMalformedRow     = errors.New("malformed row")
	ErrTaxNumberExists  = errors.New("tax number already present")
	ErrIncompleteRecord = errors.New("missing required field")
)

// ImportError aborts an import. Nothing from the file has been written.
type ImportError struct {
	Line int
	Name string
	Err  error
}

func (e *ImportError) Error() string {
	return fmt.Sprintf("import line %d (%s): %v", e.Line, e.Name, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

type CompanyService struct {
	repo *storage.SQLiteRepository
}

func NewCompanyService(repo *storage.SQLiteRepository) *CompanyService {
	return &CompanyService{repo: repo}
}

func normalizeCompany(c core.Company) core.Company {
	c.Name = strings.TrimSpace(c.Name)
	c.Address = strings.TrimSpace(c.Address)
	c.TaxNumber = strings.TrimSpace(c.TaxNumber)
	c.BankAccount = strings.TrimSpace(c.BankAccount)
	c.ContactPerson = strings.TrimSpace(c.ContactPerson)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	return c
}

func (s *CompanyService) List(ctx context.Context) ([]core.Company, error) {
	return s.repo.ListCompanies(ctx)
}

func (s *CompanyService) Get(ctx context.Context, id int64) (core.Company, error) {
	return s.repo.GetCompany(ctx, id)
}

// Create relies on the unique constraint for tax number conflicts.
func (s *CompanyService) Create(ctx context.Context, c core.Company) (core.Company, error) {
	c = normalizeCompany(c)
	if err := c.Validate(); err != nil {
		return core.Company{}, err
	}
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		id, err := st.CreateCompany(ctx, c)
		c.ID = id
		return err
	})
	if err != nil {
		return core.Company{}, fmt.Errorf("create company: %w", err)
	}
	slog.InfoContext(ctx, "Company created", "company_id", c.ID, "name", c.Name)
	return c, nil
}

func (s *CompanyService) Update(ctx context.Context, c core.Company) (core.Company, error) {
	c = normalizeCompany(c)
	if err := c.Validate(); err != nil {
		return core.Company{}, err
	}
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		return st.UpdateCompany(ctx, c)
	})
	if err != nil {
		return core.Company{}, fmt.Errorf("update company %d: %w", c.ID, err)
	}
	slog.InfoContext(ctx, "Company updated", "company_id", c.ID, "name", c.Name)
	return c, nil
}

// Delete removes the company together with its invoices.
func (s *CompanyService) Delete(ctx context.Context, id int64) error {
	err := s.repo.InTx(ctx, func(st *storage.Store) error {
		return st.DeleteCompany(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete company %d: %w", id, err)
	}
	slog.InfoContext(ctx, "Company deleted", "company_id", id)
	return nil
}

// ExportCSV writes every company ordered by name.
func (s *CompanyService) ExportCSV(ctx context.Context, w io.Writer) error {
	companies, err := s.repo.ListCompanies(ctx)
	if err != nil {
		return err
	}
	if err := companycsv.Write(w, companies); err != nil {
		return fmt.Errorf("export companies: %w", err)
	}
	slog.InfoContext(ctx, "Companies exported", "count", len(companies))
	return nil
}

// ImportCSV inserts the companies of an uploaded file in one transaction.
// Malformed rows, incomplete rows and tax numbers already present (in the
// database or earlier in the file) are skipped. Any other insert failure
// rolls back the whole import.
func (s *CompanyService) ImportCSV(ctx context.Context, r io.Reader) (ImportResult, error) {
	rows, warnings, err := companycsv.Parse(r)
	if err != nil {
		return ImportResult{}, err
	}

	var result ImportResult
	for _, w := range warnings {
		result.Skipped = append(result.Skipped, ImportSkip{Line: w.Line, Fields: w.Fields, Reason: ErrMalformedRow})
	}

	err = s.repo.InTx(ctx, func(st *storage.Store) error {
		for _, row := range rows {
			c := row.Company
			skip := ImportSkip{Line: row.Line, Name: c.Name, TaxNumber: c.TaxNumber}
			if err := c.Validate(); err != nil {
				skip.Reason = fmt.Errorf("%w: %v", ErrIncompleteRecord, err)
				result.Skipped = append(result.Skipped, skip)
				continue
			}
			exists, err := st.TaxNumberExists(ctx, c.TaxNumber)
			if err != nil {
				return &ImportError{Line: row.Line, Name: c.Name, Err: err}
			}
			if exists {
				skip.Reason = ErrTaxNumberExists
				result.Skipped = append(result.Skipped, skip)
				continue
			}
			if _, err := st.CreateCompany(ctx, c); err != nil {
				return &ImportError{Line: row.Line, Name: c.Name, Err: err}
			}
			result.Imported++
		}
		return nil
	})
	if err != nil {
		slog.WarnContext(ctx, "Company import rolled back", "error", err)
		return ImportResult{}, err
	}

	slog.InfoContext(ctx, "Companies imported",
		"imported", result.Imported,
		"skipped", len(result.Skipped))
	return result, nil
}
