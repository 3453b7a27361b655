package api

import (
	"context"
	"net/http"

	"github.com/tossware/poolengine/internal/models"
)

func (h *Handler) simpleOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string) error) {
	if err := op(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) memberOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	if err := op(r.Context(), r.PathValue("id"), r.PathValue("memberID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) allocOp(w http.ResponseWriter, r *http.Request, op func(context.Context, string, string) error) {
	if err := op(r.Context(), r.PathValue("id"), r.PathValue("allocID")); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func poolView(p *models.Pool) map[string]any {
	return map[string]any{
		"id":                  p.ID,
		"number":              p.Number,
		"name":                p.Name,
		"kind":                string(p.Kind),
		"status":              string(p.Status),
		"open_for_membership": p.OpenForMembership,
		"total_capacity":      int64(p.TotalCapacity),
		"committed_capacity":  int64(p.CommittedCapacity),
		"available_capacity":  int64(p.AvailableCapacity()),
		"minimum_members":     p.MinimumMembers,
		"maximum_members":     p.MaximumMembers,
		"member_count":        p.MemberCount,
		"distribution_method": string(p.DistributionMethod),
		"repaid_amount":       int64(p.RepaidAmount),
		"outstanding_amount":  int64(p.OutstandingAmount),
		"version":             p.Version,
		"created_at":          p.CreatedAt,
	}
}

func memberViews(p *models.Pool) []map[string]any {
	views := make([]map[string]any, len(p.Members))
	for i := range p.Members {
		m := &p.Members[i]
		views[i] = map[string]any{
			"id":            m.ID,
			"customer_id":   m.CustomerID,
			"display_name":  m.DisplayName,
			"status":        string(m.Status),
			"commitment":    int64(m.Commitment),
			"amount_drawn":  int64(m.AmountDrawn),
			"amount_repaid": int64(m.AmountRepaid),
			"outstanding":   int64(m.Outstanding),
		}
	}
	return views
}

func allocationViews(p *models.Pool) []map[string]any {
	views := make([]map[string]any, len(p.Allocations))
	for i := range p.Allocations {
		a := &p.Allocations[i]
		shares := make([]map[string]any, len(a.Shares))
		for j := range a.Shares {
			sh := &a.Shares[j]
			shares[j] = map[string]any{
				"member_id":        sh.MemberID,
				"allocated_amount": int64(sh.AllocatedAmount),
				"surcharge_share":  int64(sh.SurchargeShare),
				"total_due":        int64(sh.TotalDue),
				"settled":          sh.Settled,
			}
		}
		views[i] = map[string]any{
			"id":              a.ID,
			"member_id":       a.MemberID,
			"status":          string(a.Status),
			"principal":       int64(a.Principal),
			"surcharge":       int64(a.Surcharge),
			"total_repayable": int64(a.TotalRepayable),
			"amount_settled":  int64(a.AmountSettled),
			"outstanding":     int64(a.OutstandingBalance()),
			"overpayment":     int64(a.Overpayment),
			"overdue":         a.Overdue,
			"written_off":     a.WrittenOff,
			"shares":          shares,
		}
	}
	return views
}
