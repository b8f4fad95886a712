package http

import (
	"net/http"
	"strings"

	"busta/internal/core"
	"busta/internal/services"
)

type intervalResponse struct {
	Month  string `json:"month"`
	Payday int    `json:"payday"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Days   int    `json:"days"`
	Label  string `json:"label"`
}

// handleResolveInterval maps a month and payday to the concrete pay period.
func (s *Server) handleResolveInterval(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	payday, err := paydayFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if payday == 0 {
		payday = s.svc.DefaultPayday()
	}

	iv, err := core.ResolveInterval(month, payday)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusOK, intervalResponse{
		Month:  string(month),
		Payday: payday,
		Start:  iv.ISOStart(),
		End:    iv.ISOEnd(),
		Days:   iv.Days(),
		Label:  iv.Label(),
	})
}

type planLineResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	AmountCents int64  `json:"amount_cents"`
	Source      string `json:"source"`
}

type monthPlanResponse struct {
	Month          string             `json:"month"`
	Payday         int                `json:"payday"`
	IntervalStart  string             `json:"interval_start"`
	IntervalEnd    string             `json:"interval_end"`
	IntervalDays   int                `json:"interval_days"`
	Buckets        []planLineResponse `json:"buckets"`
	Groups         []planLineResponse `json:"groups"`
	SubCategories  []planLineResponse `json:"subcategories"`
	TotalCostCents int64              `json:"total_cost_cents"`
}

func (s *Server) handleMonthPlan(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	payday, err := paydayFromQuery(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	plan, err := s.svc.MonthPlanFor(r.Context(), month, payday)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, monthPlanJSON(plan))
}

func monthPlanJSON(plan services.MonthPlan) monthPlanResponse {
	out := monthPlanResponse{
		Month:          string(plan.Month),
		Payday:         plan.Payday,
		IntervalStart:  plan.Interval.ISOStart(),
		IntervalEnd:    plan.Interval.ISOEnd(),
		IntervalDays:   plan.Interval.Days(),
		Buckets:        []planLineResponse{},
		Groups:         []planLineResponse{},
		SubCategories:  []planLineResponse{},
		TotalCostCents: plan.TotalCost.Cents,
	}
	for _, b := range plan.Buckets {
		out.Buckets = append(out.Buckets, planLineResponse{
			ID:          b.ID,
			Name:        b.Name,
			Type:        string(b.Type),
			AmountCents: b.Cost.Cents,
			Source:      string(b.Source),
		})
	}
	for _, g := range plan.Groups {
		out.Groups = append(out.Groups, planLineResponse{
			ID:          g.ID,
			Name:        g.Name,
			AmountCents: g.Limit.Cents,
			Source:      string(g.Source),
		})
	}
	for _, sc := range plan.SubCategories {
		out.SubCategories = append(out.SubCategories, planLineResponse{
			ID:          sc.ID,
			Name:        sc.Name,
			AmountCents: sc.Budget.Cents,
			Source:      string(sc.Source),
		})
	}
	return out
}

type createTemplateRequest struct {
	Name               string                       `json:"name"`
	IsDefault          bool                         `json:"is_default,omitempty"`
	GroupLimits        map[string]string            `json:"group_limits,omitempty"`
	SubCategoryBudgets map[string]string            `json:"subcategory_budgets,omitempty"`
	BucketValues       map[string]bucketDataRequest `json:"bucket_values,omitempty"`
}

type templateResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

func (s *Server) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	var req createTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	t := core.BudgetTemplate{
		Name:               strings.TrimSpace(req.Name),
		IsDefault:          req.IsDefault,
		GroupLimits:        make(map[string]core.Money),
		SubCategoryBudgets: make(map[string]core.Money),
		BucketValues:       make(map[string]core.BucketData),
	}
	for id, raw := range req.GroupLimits {
		amount, err := parseAmount(raw)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		t.GroupLimits[id] = amount
	}
	for id, raw := range req.SubCategoryBudgets {
		amount, err := parseAmount(raw)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		t.SubCategoryBudgets[id] = amount
	}
	for id, raw := range req.BucketValues {
		data, err := raw.toBucketData()
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		t.BucketValues[id] = data
	}

	created, err := s.svc.CreateTemplate(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, templateResponse{
		ID:        created.ID,
		Name:      created.Name,
		IsDefault: created.IsDefault,
	})
}

type snapshotTemplateRequest struct {
	Name        string `json:"name"`
	SourceMonth string `json:"source_month"`
}

func (s *Server) handleSnapshotTemplate(w http.ResponseWriter, r *http.Request) {
	var req snapshotTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	snap, err := s.svc.SnapshotTemplate(r.Context(), strings.TrimSpace(req.Name), core.MonthKey(req.SourceMonth))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusCreated, templateResponse{
		ID:        snap.ID,
		Name:      snap.Name,
		IsDefault: snap.IsDefault,
	})
}

type assignTemplateRequest struct {
	TemplateID string `json:"template_id"`
}

func (s *Server) handleAssignTemplate(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req assignTemplateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.AssignTemplate(r.Context(), month, req.TemplateID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleResetMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.ResetMonth(r.Context(), month); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

type lockMonthRequest struct {
	Locked bool `json:"locked"`
}

func (s *Server) handleLockMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req lockMonthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.svc.LockMonth(r.Context(), month, req.Locked); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleSetBucketOverride(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req bucketDataRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	data, err := req.toBucketData()
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.SetBucketOverride(r.Context(), month, r.PathValue("id"), data); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

type amountRequest struct {
	Amount string `json:"amount"`
}

func (s *Server) handleSetGroupOverride(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.SetGroupOverride(r.Context(), month, r.PathValue("id"), amount); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleSetSubCategoryOverride(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req amountRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.SetSubCategoryOverride(r.Context(), month, r.PathValue("id"), amount); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}
