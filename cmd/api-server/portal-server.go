package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"tenderportal/db"
	"tenderportal/db/migrations"
	"tenderportal/internal/handlers"
	"tenderportal/internal/notify"
)

func main() {
	godotenv.Load()

	secret := os.Getenv("SESSION_SECRET")
	if secret == "" {
		log.Fatal("SESSION_SECRET env variable is not set")
	}
	uploadDir := os.Getenv("UPLOAD_DIR")
	if uploadDir == "" {
		uploadDir = "uploads"
	}

	ctx := context.Background()

	var store handlers.StorageInterface
	var seedStore db.SeedStore
	connString := os.Getenv("POSTGRES_CONN")
	if connString != "" {
		dbConn, err := sqlx.Connect("postgres", connString)
		if err != nil {
			log.Fatalf("Cannot connect to DB: %v", err)
		}
		defer dbConn.Close()

		if err := migrations.Run(dbConn.DB); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		pg := db.NewStorage(dbConn, uploadDir)
		store = pg
		seedStore = pg

		// React to writes from other portal instances.
		stop, err := db.Listen(connString, func(scope string) {
			log.Printf("change notification: %s", scope)
			if scope == "tenders" || scope == "projects" || scope == "invoices" {
				if err := notify.Generate(ctx, pg, time.Now().UTC()); err != nil {
					log.Printf("notification sweep failed: %v", err)
				}
			}
		})
		if err != nil {
			log.Fatalf("Cannot listen for changes: %v", err)
		}
		defer stop()
	} else {
		log.Print("POSTGRES_CONN not set, using in-memory storage")
		mem := db.NewMemStorage(uploadDir)
		store = mem
		seedStore = mem
	}

	if err := db.EnsureDefaultUsers(ctx, seedStore); err != nil {
		log.Fatalf("Failed to create default users: %v", err)
	}
	if os.Getenv("SEED_SAMPLE_DATA") != "false" {
		if err := db.EnsureSampleData(ctx, seedStore); err != nil {
			log.Fatalf("Failed to seed sample data: %v", err)
		}
	}

	// Periodic notification sweep so deadline alerts appear without traffic.
	c := cron.New()
	c.AddFunc("@every 15m", func() {
		if err := notify.Generate(ctx, store, time.Now().UTC()); err != nil {
			log.Printf("notification sweep failed: %v", err)
		}
	})
	c.Start()
	defer c.Stop()

	h := handlers.NewHandler(store, []byte(secret))

	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", h.PingHandler)
		r.Post("/login", h.LoginHandler)
		r.Post("/logout", h.LogoutHandler)

		r.Group(func(r chi.Router) {
			r.Use(h.RequireUser)

			r.Get("/me", h.MeHandler)

			r.Get("/tenders", h.ListTendersHandler)
			r.Post("/tenders", h.SaveTenderHandler)
			r.Get("/tenders/export", h.ExportTendersHandler)
			r.Get("/tenders/{tenderId}", h.GetTenderHandler)
			r.Delete("/tenders/{tenderId}", h.DeleteTenderHandler)
			r.Post("/tenders/{tenderId}/attachments", h.UploadAttachmentHandler)
			r.Post("/tenders/{tenderId}/activity", h.AppendActivityHandler)

			r.Get("/projects", h.ListProjectsHandler)
			r.Post("/projects", h.CreateProjectHandler)
			r.Get("/projects/{projectId}", h.GetProjectHandler)
			r.Put("/projects/{projectId}", h.UpdateProjectHandler)
			r.Post("/projects/{projectId}/suppliers", h.AssignSuppliersHandler)
			r.Post("/projects/{projectId}/invoices", h.CreateInvoiceHandler)
			r.Put("/invoices/{invoiceId}", h.UpdateInvoiceHandler)

			r.Get("/suppliers", h.ListSuppliersHandler)
			r.Post("/suppliers", h.CreateSupplierHandler)
			r.Put("/suppliers/{supplierId}", h.UpdateSupplierHandler)
			r.Delete("/suppliers/{supplierId}", h.DeleteSupplierHandler)

			r.Get("/reports/summary", h.SummaryHandler)
			r.Get("/notifications", h.NotificationsHandler)
			r.Post("/notifications/{notificationId}/read", h.MarkNotificationReadHandler)
		})
	})

	// Stored attachments.
	fileServer := http.StripPrefix("/files/", http.FileServer(http.Dir(uploadDir)))
	r.Get("/files/*", fileServer.ServeHTTP)

	serverAddr := os.Getenv("SERVER_ADDRESS")
	if serverAddr == "" {
		serverAddr = "0.0.0.0:8080"
	}

	log.Printf("Starting server on %s", serverAddr)
	log.Fatal(http.ListenAndServe(serverAddr, r))
}
