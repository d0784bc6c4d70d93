package http

import (
	"encoding/json"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/01Taka/study-tracker/internal/content"
)

// Handlers only; routes stay in main.go.

func ListWorkbooksHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		wbs, err := svc.Workbooks(r.Context())
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, wbs)
	}
}

func CreateWorkbookHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		wb, err := svc.CreateWorkbook(r.Context(), req.Name)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, wb)
	}
}

func DeleteWorkbookHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := svc.DeleteWorkbook(r.Context(), chi.URLParam(r, "workbookID")); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func CreateProblemListHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		pl, err := svc.CreateProblemList(r.Context(), chi.URLParam(r, "workbookID"), req.Name)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, pl)
	}
}

func CreateHierarchyHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			WorkbookID    string `json:"workbookId"`
			ProblemListID string `json:"problemListId"`
			Name          string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		id, err := svc.CreateHierarchy(r.Context(), req.WorkbookID, req.ProblemListID, req.Name)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]string{"hierarchyId": id})
	}
}

func DeleteHierarchyHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if err := svc.DeleteHierarchy(r.Context(), chi.URLParam(r, "hierarchyID")); err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

// GetHierarchyHandler returns the hierarchy, its resolved units in order
// and the problem-number range each unit occupies.
func GetHierarchyHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "hierarchyID")
		h, err := svc.Hierarchy(ctx, id)
		if err != nil {
			nethttp.Error(w, "hierarchy not found", nethttp.StatusNotFound)
			return
		}
		units, err := svc.Units(ctx, h.UnitVersionIDs, nil)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		ranges, err := svc.ProblemRanges(ctx, id)
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]any{
			"hierarchy": h,
			"units":     units,
			"ranges":    ranges,
		})
	}
}

func GetUnitHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		u, err := svc.Unit(r.Context(), chi.URLParam(r, "unitID"))
		if err != nil {
			nethttp.Error(w, "unit not found", nethttp.StatusNotFound)
			return
		}
		respondJSON(w, nethttp.StatusOK, u)
	}
}

func InsertUnitsHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			Units   []content.UnitData `json:"units"`
			AtIndex *int               `json:"atIndex,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Units) == 0 {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		at := -1 // append
		if req.AtIndex != nil {
			at = *req.AtIndex
		}
		newIDs, err := svc.InsertUnits(r.Context(), chi.URLParam(r, "hierarchyID"), req.Units, at)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]any{"newUnitIds": newIDs})
	}
}

func UpdateUnitHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req content.UnitData
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		newIDs, err := svc.UpdateUnit(r.Context(), chi.URLParam(r, "unitID"), req)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]any{"newUnitIds": newIDs})
	}
}

func RemoveUnitHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		err := svc.RemoveUnit(r.Context(), chi.URLParam(r, "hierarchyID"), chi.URLParam(r, "unitID"))
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		w.WriteHeader(nethttp.StatusNoContent)
	}
}

func MergeUnitsHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		var req struct {
			UnitIDs []string `json:"unitIds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.UnitIDs) < 2 {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		newIDs, err := svc.MergeUnits(r.Context(), chi.URLParam(r, "hierarchyID"), req.UnitIDs)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]any{"newUnitIds": newIDs})
	}
}

func respondJSON(w nethttp.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}
