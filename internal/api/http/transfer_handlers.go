package http

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"strings"

	nethttp "net/http"

	"github.com/go-chi/chi/v5"

	"github.com/01Taka/study-tracker/internal/content"
	"github.com/01Taka/study-tracker/internal/storage"
)

// ExportHandler streams the workbook bundle and mirrors it to the
// snapshot store. Snapshot failures are logged, never surfaced: the
// download is the primary artifact.
func ExportHandler(svc *content.Service, snapshots storage.SnapshotStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		data, err := svc.ExportJSON(r.Context())
		if err != nil {
			nethttp.Error(w, "db error", nethttp.StatusInternalServerError)
			return
		}
		if snapshots != nil {
			if _, err := snapshots.PutExport(bytes.NewReader(data)); err != nil {
				log.Printf("export snapshot failed: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="workbooks.json"`)
		_, _ = w.Write(data)
	}
}

// GetSnapshotHandler serves a previously mirrored export bundle back to
// the user, for recovering from a bad import.
func GetSnapshotHandler(snapshots storage.SnapshotStore) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		name := chi.URLParam(r, "snapshotName")
		if name == "" || strings.Contains(name, "..") {
			nethttp.Error(w, "bad snapshot name", nethttp.StatusBadRequest)
			return
		}
		rc, err := snapshots.Get("exports/" + name)
		if err != nil {
			nethttp.Error(w, "snapshot not found", nethttp.StatusNotFound)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		_, _ = io.Copy(w, rc)
	}
}

func ImportHandler(svc *content.Service) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		data, err := io.ReadAll(nethttp.MaxBytesReader(w, r.Body, 32<<20))
		if err != nil {
			nethttp.Error(w, "body too large", nethttp.StatusRequestEntityTooLarge)
			return
		}
		var bundle content.Bundle
		if err := json.Unmarshal(data, &bundle); err != nil {
			nethttp.Error(w, "bad json", nethttp.StatusBadRequest)
			return
		}
		imported, err := svc.Import(r.Context(), bundle)
		if err != nil {
			nethttp.Error(w, err.Error(), nethttp.StatusUnprocessableEntity)
			return
		}
		respondJSON(w, nethttp.StatusOK, map[string]any{"workbooks": imported})
	}
}
