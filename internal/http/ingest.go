package http

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"teamspend/internal/core"
	"teamspend/internal/service"
)

type ingestRequest struct {
	Tag         string  `json:"tag"`
	UnitPrice   float64 `json:"unit_price"`
	Quantity    float64 `json:"quantity"`
	Description string  `json:"description"`
}

type ingestResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

func writeIngest(w http.ResponseWriter, code int, status, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(ingestResponse{Status: status, Message: message})
}

// handleIngest appends one expenditure by a human-readable member tag. The
// caller authenticates with a static bearer token; the tag resolves
// case-insensitively against all members, and an unmatched tag lands on the
// first team as unassigned spend.
func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeIngest(w, http.StatusMethodNotAllowed, "error", "only POST is accepted")
		return
	}

	if s.ingestToken == "" {
		slog.ErrorContext(r.Context(), "Ingest token not configured")
		writeIngest(w, http.StatusInternalServerError, "error", "ingestion is not configured")
		return
	}
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || token != s.ingestToken {
		writeIngest(w, http.StatusUnauthorized, "error", "invalid token")
		return
	}

	var req ingestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeIngest(w, http.StatusBadRequest, "error", "invalid JSON body")
		return
	}
	req.Tag = strings.TrimSpace(req.Tag)
	req.Description = strings.TrimSpace(req.Description)
	switch {
	case req.Tag == "":
		writeIngest(w, http.StatusBadRequest, "error", "tag is required")
		return
	case req.UnitPrice <= 0:
		writeIngest(w, http.StatusBadRequest, "error", "unit_price must be a positive number")
		return
	case req.Quantity <= 0 || req.Quantity != math.Trunc(req.Quantity):
		writeIngest(w, http.StatusBadRequest, "error", "quantity must be a positive integer")
		return
	case req.Description == "":
		writeIngest(w, http.StatusBadRequest, "error", "description is required")
		return
	}

	teams, err := s.store.GetTeams(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Ingest team lookup failed", "error", err)
		writeIngest(w, http.StatusInternalServerError, "error", "failed to load teams")
		return
	}
	if len(teams) == 0 {
		writeIngest(w, http.StatusBadRequest, "error", "no teams exist")
		return
	}
	members, err := s.store.GetTeamMembers(r.Context(), "")
	if err != nil {
		slog.ErrorContext(r.Context(), "Ingest member lookup failed", "error", err)
		writeIngest(w, http.StatusInternalServerError, "error", "failed to load members")
		return
	}

	teamID := teams[0].ID
	memberID := ""
	for _, m := range members {
		if strings.EqualFold(m.Name, req.Tag) {
			teamID = m.TeamID
			memberID = m.ID
			break
		}
	}
	if memberID == "" {
		slog.WarnContext(r.Context(), "Unmatched ingest tag, recording as unassigned",
			"tag", req.Tag, "team_id", teamID)
	}

	unitPriceCents := int64(math.Round(req.UnitPrice * 100))
	created, err := s.svc.Create(r.Context(), service.ExpenditureInput{
		TeamID:      teamID,
		MemberID:    memberID,
		UnitPrice:   core.Money{Cents: unitPriceCents},
		Quantity:    int64(req.Quantity),
		Description: req.Description,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "Ingest write failed", "error", err, "tag", req.Tag)
		writeIngest(w, http.StatusInternalServerError, "error", "failed to record expenditure")
		return
	}

	slog.InfoContext(r.Context(), "Expenditure ingested",
		"expenditure_id", created.ID, "tag", req.Tag, "amount_cents", created.Amount.Cents)
	writeIngest(w, http.StatusOK, "success", "expenditure recorded")
}
