package services

import (
	"context"
	"fmt"

	"szamlazo/internal/core"
	"szamlazo/internal/storage"
)

type StatisticsService struct {
	repo     *storage.SQLiteRepository
	currency string
}

func NewStatisticsService(repo *storage.SQLiteRepository, currency string) *StatisticsService {
	if currency == "" {
		currency = core.DefaultCurrency
	}
	return &StatisticsService{repo: repo, currency: currency}
}

func (s *StatisticsService) Get(ctx context.Context) (core.Statistics, error) {
	invoices, err := s.repo.ListInvoices(ctx, core.InvoiceFilter{})
	if err != nil {
		return core.Statistics{}, fmt.Errorf("load invoices for statistics: %w", err)
	}
	return core.BuildStatistics(invoices, s.currency), nil
}
