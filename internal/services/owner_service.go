package services

import (
	"context"
	"log/slog"
	"strings"

	"szamlazo/internal/core"
	"szamlazo/internal/storage"
)

// OwnerService manages the single issuing company profile.
type OwnerService struct {
	repo *storage.SQLiteRepository
}

func NewOwnerService(repo *storage.SQLiteRepository) *OwnerService {
	return &OwnerService{repo: repo}
}

// Get returns the zero profile when nothing has been saved yet.
func (s *OwnerService) Get(ctx context.Context) (core.OwnerCompany, error) {
	return s.repo.GetOwnerCompany(ctx)
}

func (s *OwnerService) Save(ctx context.Context, o core.OwnerCompany) error {
	o = core.OwnerCompany{
		Name:        strings.TrimSpace(o.Name),
		Address:     strings.TrimSpace(o.Address),
		TaxNumber:   strings.TrimSpace(o.TaxNumber),
		BankAccount: strings.TrimSpace(o.BankAccount),
		Email:       strings.TrimSpace(o.Email),
		Phone:       strings.TrimSpace(o.Phone),
	}
	if err := o.Validate(); err != nil {
		return err
	}
	if err := s.repo.InTx(ctx, func(st *storage.Store) error {
		return st.SaveOwnerCompany(ctx, o)
	}); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Owner company saved", "name", o.Name)
	return nil
}
