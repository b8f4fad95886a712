package http

import (
	"net/http"
	"strings"

	"busta/internal/core"
)

type createBucketRequest struct {
	Name          string `json:"name"`
	Type          string `json:"type"`
	PaymentSource string `json:"payment_source,omitempty"`
	BudgetGroupID string `json:"budget_group_id,omitempty"`
	IsSavings     bool   `json:"is_savings,omitempty"`

	// Goal fields.
	TargetAmount    string `json:"target_amount,omitempty"`
	TargetDate      string `json:"target_date,omitempty"`
	StartSavingDate string `json:"start_saving_date,omitempty"`
	EventStartDate  string `json:"event_start_date,omitempty"`
	EventEndDate    string `json:"event_end_date,omitempty"`

	// Optional first month entry.
	Month string             `json:"month,omitempty"`
	Data  *bucketDataRequest `json:"data,omitempty"`
}

type bucketResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	PaymentSource string `json:"payment_source"`
	BudgetGroupID string `json:"budget_group_id,omitempty"`
	IsSavings     bool   `json:"is_savings,omitempty"`
}

func (s *Server) handleCreateBucket(w http.ResponseWriter, r *http.Request) {
	var req createBucketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	b := core.Bucket{
		Name:          strings.TrimSpace(req.Name),
		Type:          core.BucketType(req.Type),
		PaymentSource: core.PaymentSource(req.PaymentSource),
		BudgetGroupID: req.BudgetGroupID,
		IsSavings:     req.IsSavings,
	}

	target, err := parseAmount(req.TargetAmount)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	b.TargetAmount = target

	if b.TargetDate, err = parseDate(req.TargetDate); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if b.StartSavingDate, err = parseDate(req.StartSavingDate); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if b.EventStartDate, err = parseDate(req.EventStartDate); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if b.EventEndDate, err = parseDate(req.EventEndDate); err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.Month != "" && req.Data != nil {
		month, err := core.ParseMonthKey(req.Month)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		data, err := req.Data.toBucketData()
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
		b.MonthlyData = map[core.MonthKey]core.BucketData{month: data}
	}

	created, err := s.svc.CreateBucket(r.Context(), b)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, bucketResponse{
		ID:            created.ID,
		Name:          created.Name,
		Type:          string(created.Type),
		PaymentSource: string(created.PaymentSource),
		BudgetGroupID: created.BudgetGroupID,
		IsSavings:     created.IsSavings,
	})
}

func (s *Server) handleEditBucketMonth(w http.ResponseWriter, r *http.Request) {
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

	if err := s.svc.EditBucketMonth(r.Context(), r.PathValue("id"), month, data); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleConfirmBucketMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.ConfirmBucketMonth(r.Context(), r.PathValue("id"), month); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleDeleteBucket(w http.ResponseWriter, r *http.Request) {
	scope := core.DeletionScope(strings.TrimSpace(r.URL.Query().Get("scope")))
	if scope == "" {
		scope = core.DeleteAll
	}

	var month core.MonthKey
	if scope != core.DeleteAll {
		var err error
		month, err = monthFromQuery(r)
		if err != nil {
			writeError(w, r, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	if err := s.svc.DeleteBucket(r.Context(), r.PathValue("id"), month, scope); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

type costResponse struct {
	BucketID      string `json:"bucket_id"`
	Month         string `json:"month"`
	Payday        int    `json:"payday"`
	IntervalStart string `json:"interval_start"`
	IntervalEnd   string `json:"interval_end"`
	AmountCents   int64  `json:"amount_cents"`
}

func (s *Server) handleBucketCost(w http.ResponseWriter, r *http.Request) {
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

	bucketID := r.PathValue("id")
	cost, err := s.svc.ResolveBucketCost(r.Context(), bucketID, month, payday)
	if err != nil {
		writeServiceError(w, r, err)
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

	writeJSON(w, r, http.StatusOK, costResponse{
		BucketID:      bucketID,
		Month:         string(month),
		Payday:        payday,
		IntervalStart: iv.ISOStart(),
		IntervalEnd:   iv.ISOEnd(),
		AmountCents:   cost.Cents,
	})
}
