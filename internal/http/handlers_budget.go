package http

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"hearth/internal/core"
	applog "hearth/internal/log"
	"hearth/internal/services"
)

// itemView is the wire shape of a budget item.
type itemView struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	CategoryType  string    `json:"category_type"`
	Cadence       string    `json:"cadence"`
	Amount        float64   `json:"amount"`
	TargetAmount  float64   `json:"target_amount"`
	CadenceAmount float64   `json:"cadence_amount"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
}

func viewOf(item core.BudgetItem) itemView {
	return itemView{
		ID:            item.ID,
		Category:      item.Category.Name,
		CategoryType:  string(item.Category.Type),
		Cadence:       item.Cadence.String(),
		Amount:        item.Amount,
		TargetAmount:  item.TargetAmount,
		CadenceAmount: item.CadenceAmount,
		PeriodStart:   item.PeriodStart,
		PeriodEnd:     item.PeriodEnd,
	}
}

func viewsOf(items []core.BudgetItem) []itemView {
	views := make([]itemView, len(items))
	for i, item := range items {
		views[i] = viewOf(item)
	}
	return views
}

// handleItems serves POST (create) and GET (list) for budget items.
func (s *Server) handleItems(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, r, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return
	}

	switch r.Method {
	case http.MethodPost:
		var in services.BudgetInput
		if err := readJSON(r, &in); err != nil {
			writeError(w, r, http.StatusBadRequest, "invalid request body")
			return
		}

		item, err := s.budget.CreateItem(r.Context(), uid, in)
		if err != nil {
			if isValidationError(err) {
				writeError(w, r, http.StatusBadRequest, err.Error())
				return
			}
			slog.ErrorContext(r.Context(), "Create budget item failed", applog.FieldError, err, applog.FieldUserID, uid)
			writeError(w, r, http.StatusInternalServerError, "create budget item failed")
			return
		}
		writeJSON(w, http.StatusCreated, viewOf(item))

	case http.MethodGet:
		items, err := s.budget.ListItems(r.Context(), uid)
		if err != nil {
			slog.ErrorContext(r.Context(), "List budget items failed", applog.FieldError, err, applog.FieldUserID, uid)
			writeError(w, r, http.StatusInternalServerError, "list budget items failed")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": viewsOf(items)})

	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	}
}

type draftRequest struct {
	Inputs []services.BudgetInput   `json:"inputs"`
	Totals []services.CategoryTotal `json:"totals"`
}

// handleDraft builds a full draft budget from explicit inputs plus
// per-category spending totals.
func (s *Server) handleDraft(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)
	if uid == "" {
		writeError(w, r, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return
	}

	var req draftRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := s.budget.BuildDraft(r.Context(), uid, req.Inputs, req.Totals)
	if err != nil {
		if isValidationError(err) {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		slog.ErrorContext(r.Context(), "Build draft budget failed", applog.FieldError, err, applog.FieldUserID, uid)
		writeError(w, r, http.StatusInternalServerError, "build draft budget failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": viewsOf(items)})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	uid := userID(r)
	if uid == "" {
		writeError(w, r, http.StatusUnauthorized, "missing "+userIDHeader+" header")
		return
	}

	summary, err := s.budget.Summary(r.Context(), uid)
	if err != nil {
		slog.ErrorContext(r.Context(), "Budget summary failed", applog.FieldError, err, applog.FieldUserID, uid)
		writeError(w, r, http.StatusInternalServerError, "budget summary failed")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleRollover triggers a batch rollover run. It is meant for
// schedulers and operators, not end users, hence the bearer token.
func (s *Server) handleRollover(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.rolloverToken == "" || s.rollover == nil {
		writeError(w, r, http.StatusNotFound, "rollover trigger disabled")
		return
	}
	if bearerToken(r) != s.rolloverToken {
		writeError(w, r, http.StatusUnauthorized, "invalid token")
		return
	}

	result, err := s.rollover.Run(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Rollover run failed", applog.FieldError, err)
		writeError(w, r, http.StatusInternalServerError, "rollover run failed")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func isValidationError(err error) bool {
	return errors.Is(err, core.ErrInvalidAmount) ||
		errors.Is(err, core.ErrEmptyCategory) ||
		errors.Is(err, core.ErrUnknownItemType) ||
		errors.Is(err, core.ErrInvalidDay) ||
		errors.Is(err, core.ErrInvalidMonth) ||
		errors.Is(err, core.ErrInvalidCadence) ||
		errors.Is(err, core.ErrInvalidCategoryT) ||
		errors.Is(err, core.ErrMissingUser)
}
