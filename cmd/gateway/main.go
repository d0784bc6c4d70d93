package main

import (
	"context"
	"log"
	"net/http"
	"time"

	api "github.com/01Taka/study-tracker/internal/api/http"
	"github.com/01Taka/study-tracker/internal/config"
	"github.com/01Taka/study-tracker/internal/content"
	"github.com/01Taka/study-tracker/internal/db"
	"github.com/01Taka/study-tracker/internal/scoring"
	"github.com/01Taka/study-tracker/internal/session"
	"github.com/01Taka/study-tracker/internal/storage"
	syncx "github.com/01Taka/study-tracker/internal/sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}

	events := syncx.NewEventRepo(dbh)
	contentSvc := content.NewService(content.NewSQLStore(dbh), nil, events)
	manager := session.NewManager(session.NewSQLStore(dbh), contentSvc.Store(), scoring.NewEngine(), nil, events)
	policy := session.ReviewPolicy{StaleDays: cfg.ReviewStaleDays}

	snapshots, err := storage.NewFSStore(cfg.SnapshotBasePath)
	if err != nil {
		log.Fatalf("snapshot store: %v", err)
	}

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Workbook / problem list structure
	r.Get("/workbooks", api.ListWorkbooksHandler(contentSvc))
	r.Post("/workbooks", api.CreateWorkbookHandler(contentSvc))
	r.Delete("/workbooks/{workbookID}", api.DeleteWorkbookHandler(contentSvc))
	r.Post("/workbooks/{workbookID}/problem-lists", api.CreateProblemListHandler(contentSvc))

	// Hierarchies and units
	r.Post("/hierarchies", api.CreateHierarchyHandler(contentSvc))
	r.Get("/hierarchies/{hierarchyID}", api.GetHierarchyHandler(contentSvc))
	r.Delete("/hierarchies/{hierarchyID}", api.DeleteHierarchyHandler(contentSvc))
	r.Post("/hierarchies/{hierarchyID}/units", api.InsertUnitsHandler(contentSvc))
	r.Post("/hierarchies/{hierarchyID}/merge", api.MergeUnitsHandler(contentSvc))
	r.Delete("/hierarchies/{hierarchyID}/units/{unitID}", api.RemoveUnitHandler(contentSvc))
	r.Get("/units/{unitID}", api.GetUnitHandler(contentSvc))
	r.Put("/units/{unitID}", api.UpdateUnitHandler(contentSvc))

	// Sessions and history
	r.Post("/sessions", api.StartSessionHandler(manager))
	r.Get("/sessions/active", api.ActiveSessionHandler(manager))
	r.Post("/sessions/end", api.EndSessionHandler(manager))
	r.Post("/sessions/cancel", api.CancelSessionHandler(manager))
	r.Get("/histories", api.ListHistoriesHandler(manager))
	r.Get("/histories/{historyID}", api.GetHistoryHandler(manager))
	r.Delete("/histories", api.ClearHistoriesHandler(manager))
	r.Get("/problem-lists/{problemListID}/latest-attempts", api.LatestAttemptsHandler(manager))
	r.Get("/problem-lists/{problemListID}/selection", api.SelectUnitsHandler(manager, policy))

	// Interchange
	r.Get("/export", api.ExportHandler(contentSvc, snapshots))
	r.Get("/export/snapshots/{snapshotName}", api.GetSnapshotHandler(snapshots))
	r.Post("/import", api.ImportHandler(contentSvc))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
