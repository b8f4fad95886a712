package http

import (
	"net/http"
	"strings"

	"busta/internal/core"
)

type createSubCategoryRequest struct {
	Name           string `json:"name"`
	MainCategoryID string `json:"main_category_id,omitempty"`
	BudgetGroupID  string `json:"budget_group_id,omitempty"`
	IsSavings      bool   `json:"is_savings,omitempty"`
}

type subCategoryResponse struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	MainCategoryID string `json:"main_category_id,omitempty"`
	BudgetGroupID  string `json:"budget_group_id,omitempty"`
	IsSavings      bool   `json:"is_savings,omitempty"`
}

func (s *Server) handleCreateSubCategory(w http.ResponseWriter, r *http.Request) {
	var req createSubCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	sc := core.SubCategory{
		Name:           strings.TrimSpace(req.Name),
		MainCategoryID: req.MainCategoryID,
		BudgetGroupID:  req.BudgetGroupID,
		IsSavings:      req.IsSavings,
	}

	created, err := s.svc.CreateSubCategory(r.Context(), sc)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, subCategoryResponse{
		ID:             created.ID,
		Name:           created.Name,
		MainCategoryID: created.MainCategoryID,
		BudgetGroupID:  created.BudgetGroupID,
		IsSavings:      created.IsSavings,
	})
}

// recordTransactionRequest carries an already reimbursement-adjusted
// amount, so it may be negative.
type recordTransactionRequest struct {
	BucketID string `json:"bucket_id,omitempty"`
	Date     string `json:"date,omitempty"`
	Amount   string `json:"amount"`
}

type transactionResponse struct {
	ID          string `json:"id"`
	BucketID    string `json:"bucket_id,omitempty"`
	Date        string `json:"date"`
	AmountCents int64  `json:"amount_cents"`
}

func (s *Server) handleRecordTransaction(w http.ResponseWriter, r *http.Request) {
	var req recordTransactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	amount, err := parseSignedAmount(req.Amount)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}
	date, err := parseDate(req.Date)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	t := core.Transaction{
		BucketID: req.BucketID,
		Amount:   amount,
	}
	if date != nil {
		t.Date = *date
	}

	created, err := s.svc.RecordTransaction(r.Context(), t)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, transactionResponse{
		ID:          created.ID,
		BucketID:    created.BucketID,
		Date:        created.Date.Format("2006-01-02"),
		AmountCents: created.Amount.Cents,
	})
}
