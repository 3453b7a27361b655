package api

import (
	"net/http"

	"github.com/tossware/poolengine/internal/engine"
	"github.com/tossware/poolengine/internal/middleware"
	"github.com/tossware/poolengine/internal/models"
)

type createPoolRequest struct {
	Number             string `json:"number"`
	Name               string `json:"name"`
	Kind               string `json:"kind"`
	TotalCapacity      int64  `json:"total_capacity"`
	MinimumMembers     int    `json:"minimum_members"`
	MaximumMembers     int    `json:"maximum_members"`
	DistributionMethod string `json:"distribution_method"`
	InterestRateBps    int64  `json:"interest_rate_bps"`
}

func (h *Handler) createPool(w http.ResponseWriter, r *http.Request) {
	var req createPoolRequest
	if !decode(w, r, &req) {
		return
	}
	pool, err := h.engine.CreatePool(r.Context(), engine.CreatePoolInput{
		TenantID:           middleware.GetTenantID(r.Context()),
		Number:             req.Number,
		Name:               req.Name,
		Kind:               models.PoolKind(req.Kind),
		TotalCapacity:      models.Money(req.TotalCapacity),
		MinimumMembers:     req.MinimumMembers,
		MaximumMembers:     req.MaximumMembers,
		DistributionMethod: models.DistributionMethod(req.DistributionMethod),
		InterestRateBps:    req.InterestRateBps,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, poolView(pool))
}

func (h *Handler) listPools(w http.ResponseWriter, r *http.Request) {
	pools, err := h.engine.ListPools(r.Context(), middleware.GetTenantID(r.Context()))
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]map[string]any, len(pools))
	for i, p := range pools {
		views[i] = poolView(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"pools": views})
}

func (h *Handler) getPool(w http.ResponseWriter, r *http.Request) {
	pool, err := h.engine.GetPool(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	view := poolView(pool)
	view["members"] = memberViews(pool)
	view["allocations"] = allocationViews(pool)
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) activatePool(w http.ResponseWriter, r *http.Request) {
	h.simpleOp(w, r, h.engine.ActivatePool)
}

func (h *Handler) advancePool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.AdvancePool(r.Context(), r.PathValue("id"), models.PoolStatus(req.Status)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) suspendPool(w http.ResponseWriter, r *http.Request) {
	h.simpleOp(w, r, h.engine.SuspendPool)
}

func (h *Handler) resumePool(w http.ResponseWriter, r *http.Request) {
	h.simpleOp(w, r, h.engine.ResumePool)
}

func (h *Handler) closePool(w http.ResponseWriter, r *http.Request) {
	h.simpleOp(w, r, h.engine.ClosePool)
}

func (h *Handler) cancelPool(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.CancelPool(r.Context(), r.PathValue("id"), req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) join(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CustomerID string `json:"customer_id"`
		Commitment int64  `json:"commitment"`
	}
	if !decode(w, r, &req) {
		return
	}
	member, err := h.engine.Join(r.Context(), r.PathValue("id"), req.CustomerID, models.Money(req.Commitment))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"member_id":    member.ID,
		"display_name": member.DisplayName,
		"status":       string(member.Status),
	})
}

func (h *Handler) approveMember(w http.ResponseWriter, r *http.Request) {
	h.memberOp(w, r, h.engine.ApproveMember)
}

func (h *Handler) suspendMember(w http.ResponseWriter, r *http.Request) {
	h.memberOp(w, r, h.engine.SuspendMember)
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	h.memberOp(w, r, h.engine.RemoveMember)
}

func (h *Handler) reserve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MemberID   string `json:"member_id"`
		Principal  int64  `json:"principal"`
		Surcharge  int64  `json:"surcharge"`
		TermMonths int    `json:"term_months"`
	}
	if !decode(w, r, &req) {
		return
	}
	alloc, err := h.engine.Reserve(r.Context(), r.PathValue("id"), engine.ReserveInput{
		MemberID:   req.MemberID,
		Principal:  models.Money(req.Principal),
		Surcharge:  models.Money(req.Surcharge),
		TermMonths: req.TermMonths,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"allocation_id":   alloc.ID,
		"status":          string(alloc.Status),
		"total_repayable": int64(alloc.TotalRepayable),
	})
}

func (h *Handler) release(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.Release(r.Context(), r.PathValue("id"), r.PathValue("allocID"), models.Money(req.Amount)); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) distribute(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Quantities map[string]int64 `json:"quantities"`
	}
	if !decode(w, r, &req) {
		return
	}
	if err := h.engine.DistributeShares(r.Context(), r.PathValue("id"), r.PathValue("allocID"), req.Quantities); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) settleShare(w http.ResponseWriter, r *http.Request) {
	err := h.engine.SettleShare(r.Context(), r.PathValue("id"), r.PathValue("allocID"), r.PathValue("memberID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount int64 `json:"amount"`
	}
	if !decode(w, r, &req) {
		return
	}
	res, err := h.engine.ApplyPayment(r.Context(), r.PathValue("id"), r.PathValue("allocID"), models.Money(req.Amount))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"applied":     int64(res.Applied),
		"overpayment": int64(res.Overpayment),
		"closed":      res.Closed,
	})
}

func (h *Handler) markOverdue(w http.ResponseWriter, r *http.Request) {
	h.allocOp(w, r, h.engine.MarkOverdue)
}

func (h *Handler) markDefaulted(w http.ResponseWriter, r *http.Request) {
	h.allocOp(w, r, h.engine.MarkDefaulted)
}

func (h *Handler) writeOff(w http.ResponseWriter, r *http.Request) {
	h.allocOp(w, r, h.engine.WriteOff)
}
