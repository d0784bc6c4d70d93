package http

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/01Taka/study-tracker/internal/content"
	"github.com/01Taka/study-tracker/internal/scoring"
	"github.com/01Taka/study-tracker/internal/session"
)

func StartSessionHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req session.StartArgs
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		// No-op when a session is already live: the active one comes back.
		sess, err := m.Start(r.Context(), req)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, sess)
	}
}

func ActiveSessionHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		sess, ok, err := m.Active(r.Context())
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		if !ok {
			nethttp.Error(w, "no active session", nethttp.StatusNotFound)
			return
		}
		respondJSON(w, nethttp.StatusOK, sess)
	}
}

// EndSessionHandler completes the active session. An integrity violation
// (sub-answer count mismatch) is the one loud failure: the client gets
// the offending unit and counts, and nothing is written.
func EndSessionHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Answers map[string]scoring.UserAnswers `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		h, err := m.End(r.Context(), req.Answers)
		if err != nil {
			var integ *scoring.IntegrityError
			switch {
			case errors.As(err, &integ):
				respondJSON(w, nethttp.StatusConflict, map[string]any{
					"error":    "could not save",
					"unitId":   integ.UnitID,
					"expected": integ.Expected,
					"actual":   integ.Actual,
				})
			case errors.Is(err, session.ErrNoActiveSession):
				nethttp.Error(w, "no active session", nethttp.StatusConflict)
			default:
				nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			}
			return
		}
		respondJSON(w, nethttp.StatusOK, h)
	}
}

func CancelSessionHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := m.Cancel(r.Context()); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// GET /histories?workbook_id=...&order=asc|desc
func ListHistoriesHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		workbookID := strings.TrimSpace(r.URL.Query().Get("workbook_id"))
		order := session.OrderDesc
		if r.URL.Query().Get("order") == "asc" {
			order = session.OrderAsc
		}
		list, err := m.HistoriesByWorkbook(r.Context(), workbookID, order)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, list)
	}
}

func GetHistoryHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "historyID")
		h, err := m.History(ctx, id)
		if err != nil {
			if errors.Is(err, content.ErrNotFound) {
				nethttp.Error(w, "history not found", nethttp.StatusNotFound)
				return
			}
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		earned, max, err := m.ScoreSummary(ctx, id)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]any{
			"history": h,
			"summary": map[string]int{"earned": earned, "max": max},
		})
	}
}

func ClearHistoriesHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := m.ClearAllHistories(r.Context()); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// GET /problem-lists/{problemListID}/latest-attempts?unit_ids=a,b,c
func LatestAttemptsHandler(m *session.Manager) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		unitIDs := splitIDs(r.URL.Query().Get("unit_ids"))
		latest, err := m.LatestAttempts(r.Context(), chi.URLParam(r, "problemListID"), unitIDs)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, latest)
	}
}

// GET /problem-lists/{problemListID}/selection?filter=all|miss|recommended&unit_ids=a,b,c
func SelectUnitsHandler(m *session.Manager, pol session.ReviewPolicy) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		unitIDs := splitIDs(r.URL.Query().Get("unit_ids"))
		filter := session.Filter(r.URL.Query().Get("filter"))
		if filter == "" {
			filter = session.FilterAll
		}
		latest, err := m.LatestAttempts(r.Context(), chi.URLParam(r, "problemListID"), unitIDs)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		selected := session.SelectUnits(unitIDs, filter, latest, time.Now().UnixMilli(), pol)
		respondJSON(w, nethttp.StatusOK, selected)
	}
}

func splitIDs(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
