package http

import (
	"net/http"

	"github.com/shopspring/decimal"

	"szamlazo/internal/core"
	"szamlazo/internal/log"
)

type statisticsPage struct {
	page
	Stats core.Statistics
	// MaxMonthly scales the bar widths of the monthly table.
	MaxMonthly decimal.Decimal
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	data := statisticsPage{page: newPage(w, r, "Statisztika", "statistics")}

	st, err := s.statistics.Get(r.Context())
	if err != nil {
		log.LogError(r.Context(), "Load statistics failed", err, log.ComponentStats, log.OpRead, log.ErrorTypeDatabase, nil)
		data.Flashes.Danger("Hiba történt a statisztika betöltése közben: %v", err)
	}
	data.Stats = st
	for _, m := range st.Monthly {
		if m.Amount.GreaterThan(data.MaxMonthly) {
			data.MaxMonthly = m.Amount
		}
	}

	s.render(w, r, http.StatusOK, "statistics.html", data)
}

// barWidth returns a rounded percentage of amount relative to top; very small
// positive amounts still get a visible bar.
func barWidth(amount, top decimal.Decimal) int {
	if !top.IsPositive() || !amount.IsPositive() {
		return 0
	}
	width := int(amount.Mul(decimal.NewFromInt(100)).Div(top).Round(0).IntPart())
	if width < 2 {
		width = 2
	}
	if width > 100 {
		width = 100
	}
	return width
}
