package http

import (
	"net/http"
	"strings"

	"busta/internal/core"
)

type createGroupRequest struct {
	Name            string   `json:"name"`
	ForecastType    string   `json:"forecast_type,omitempty"`
	IsCatchAll      bool     `json:"is_catch_all,omitempty"`
	LinkedBucketIDs []string `json:"linked_bucket_ids,omitempty"`
}

type groupResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	ForecastType    string   `json:"forecast_type,omitempty"`
	IsCatchAll      bool     `json:"is_catch_all,omitempty"`
	LinkedBucketIDs []string `json:"linked_bucket_ids,omitempty"`
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req createGroupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	g := core.BudgetGroup{
		Name:            strings.TrimSpace(req.Name),
		ForecastType:    core.ForecastType(req.ForecastType),
		IsCatchAll:      req.IsCatchAll,
		LinkedBucketIDs: req.LinkedBucketIDs,
	}

	created, err := s.svc.CreateGroup(r.Context(), g)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, groupResponse{
		ID:              created.ID,
		Name:            created.Name,
		ForecastType:    string(created.ForecastType),
		IsCatchAll:      created.IsCatchAll,
		LinkedBucketIDs: created.LinkedBucketIDs,
	})
}

type limitRequest struct {
	Limit string `json:"limit"`
}

func (s *Server) handleSetGroupLimit(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	var req limitRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := parseAmount(req.Limit)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.SetGroupLimit(r.Context(), r.PathValue("id"), month, limit); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}

func (s *Server) handleConfirmGroupMonth(w http.ResponseWriter, r *http.Request) {
	month, err := monthFromPath(r)
	if err != nil {
		writeError(w, r, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if err := s.svc.ConfirmGroupMonth(r.Context(), r.PathValue("id"), month); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusNoContent, nil)
}
