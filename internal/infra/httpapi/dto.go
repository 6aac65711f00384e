package httpapi

import (
	"fmt"
	"time"

	"lease_notifier/internal/app"
	"lease_notifier/internal/domain/annuity"
	"lease_notifier/internal/domain/contract"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ContractRequest is the body of POST and PUT /api/contracts.
type ContractRequest struct {
	OwnerID             int64           `json:"owner_id"`
	TenantID            int64           `json:"tenant_id"`
	StartDate           string          `json:"start_date"`
	EndDate             string          `json:"end_date"`
	FlatRateRegime      bool            `json:"flat_rate_regime"`
	LastAnnuityPaidYear *int            `json:"last_annuity_paid_year,omitempty"`
	MonthlyRent         decimal.Decimal `json:"monthly_rent"`
}

func (r ContractRequest) toInput() (app.ContractInput, error) {
	start, err := time.Parse(dateLayout, r.StartDate)
	if err != nil {
		return app.ContractInput{}, fmt.Errorf("invalid start_date %q: expected YYYY-MM-DD", r.StartDate)
	}
	end, err := time.Parse(dateLayout, r.EndDate)
	if err != nil {
		return app.ContractInput{}, fmt.Errorf("invalid end_date %q: expected YYYY-MM-DD", r.EndDate)
	}
	if r.MonthlyRent.IsNegative() {
		return app.ContractInput{}, fmt.Errorf("monthly_rent must not be negative")
	}
	return app.ContractInput{
		OwnerID:             r.OwnerID,
		TenantID:            r.TenantID,
		StartDate:           start,
		EndDate:             end,
		FlatRateRegime:      r.FlatRateRegime,
		LastAnnuityPaidYear: r.LastAnnuityPaidYear,
		MonthlyRent:         r.MonthlyRent,
	}, nil
}

type ContractDTO struct {
	ID                  int64           `json:"id"`
	OwnerID             int64           `json:"owner_id"`
	TenantID            int64           `json:"tenant_id"`
	StartDate           string          `json:"start_date"`
	EndDate             string          `json:"end_date"`
	FlatRateRegime      bool            `json:"flat_rate_regime"`
	LastAnnuityPaidYear *int            `json:"last_annuity_paid_year"`
	MonthlyRent         decimal.Decimal `json:"monthly_rent"`
	Annuities           []AnnuityDTO    `json:"annuities,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

type AnnuityDTO struct {
	Year    int        `json:"year"`
	DueDate string     `json:"due_date"`
	IsPaid  bool       `json:"is_paid"`
	PaidAt  *time.Time `json:"paid_at"`
}

type StatsDTO struct {
	RunID      string `json:"run_id"`
	TargetDate string `json:"target_date"`
	Processed  int    `json:"processed"`
	Sent       int    `json:"sent"`
	Skipped    int    `json:"skipped"`
	Failed     int    `json:"failed"`
}

type DispatchResponse struct {
	Stats StatsDTO `json:"stats"`
	Error string   `json:"error,omitempty"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func toContractDTO(c *contract.Contract, rows []*annuity.Annuity) ContractDTO {
	dto := ContractDTO{
		ID:             c.ID,
		OwnerID:        c.OwnerID,
		TenantID:       c.TenantID,
		StartDate:      c.StartDate.Format(dateLayout),
		EndDate:        c.EndDate.Format(dateLayout),
		FlatRateRegime: c.FlatRateRegime,
		MonthlyRent:    c.MonthlyRent,
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	if c.LastAnnuityPaidYear.Valid {
		y := int(c.LastAnnuityPaidYear.Int32)
		dto.LastAnnuityPaidYear = &y
	}
	if rows != nil {
		dto.Annuities = toAnnuityDTOs(rows)
	}
	return dto
}

func toAnnuityDTO(a *annuity.Annuity) AnnuityDTO {
	dto := AnnuityDTO{Year: a.Year, DueDate: a.DueDate.Format(dateLayout), IsPaid: a.IsPaid}
	if a.PaidAt.Valid {
		t := a.PaidAt.Time
		dto.PaidAt = &t
	}
	return dto
}

func toAnnuityDTOs(rows []*annuity.Annuity) []AnnuityDTO {
	out := make([]AnnuityDTO, 0, len(rows))
	for _, a := range rows {
		out = append(out, toAnnuityDTO(a))
	}
	return out
}

func toStatsDTO(s app.Stats) StatsDTO {
	dto := StatsDTO{
		RunID:     s.RunID,
		Processed: s.Processed,
		Sent:      s.Sent,
		Skipped:   s.Skipped,
		Failed:    s.Failed,
	}
	if !s.TargetDate.IsZero() {
		dto.TargetDate = s.TargetDate.Format(dateLayout)
	}
	return dto
}
