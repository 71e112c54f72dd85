package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chronoworks/be-timesheets/internal/config"
	"github.com/chronoworks/be-timesheets/internal/database"
	"github.com/chronoworks/be-timesheets/internal/handler"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/middleware"
	"github.com/chronoworks/be-timesheets/internal/repository"
	"github.com/chronoworks/be-timesheets/internal/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(logger.Config{
		Level:       os.Getenv("LOG_LEVEL"),
		Environment: cfg.Service.Environment,
		ServiceName: cfg.Service.Name,
		Version:     cfg.Service.Version,
	})

	log.Info().
		Str("service", cfg.Service.Name).
		Str("version", cfg.Service.Version).
		Str("environment", cfg.Service.Environment).
		Msg("Starting Timesheets Service")

	// Create context
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Run schema migrations
	if err := database.RunMigrations(cfg.Database.DSN()); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}
	log.Info().Msg("Migrations applied")

	// Initialize database
	db, err := database.New(ctx, database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		User:        cfg.Database.User,
		Password:    cfg.Database.Password,
		Database:    cfg.Database.Database,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnTime: cfg.Database.MaxConnTime,
		MaxIdleTime: cfg.Database.MaxIdleTime,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize repositories
	entryRepo := repository.NewEntryRepository(db)
	weekRepo := repository.NewWeekRepository(db)
	projectRepo := repository.NewProjectRepository(db)
	userRepo := repository.NewUserRepository(db)

	// Initialize services
	entryService := service.NewEntryService(entryRepo, projectRepo, log)
	weekService := service.NewWeekService(weekRepo, entryRepo, log)
	reportService := service.NewReportService(entryRepo, log)
	projectService := service.NewProjectService(projectRepo, log)
	userService := service.NewUserService(userRepo, log)

	// Setup HTTP routes
	httpHandler := handler.NewHTTPHandler(entryService, weekService, reportService, projectService, userService, log)
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	// Entry routes
	mux.HandleFunc("/api/v1/entries", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListEntries(w, r)
		case http.MethodPost:
			httpHandler.SaveEntry(w, r)
		case http.MethodDelete:
			httpHandler.DeleteEntry(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	mux.HandleFunc("/api/v1/entries/get", httpHandler.GetEntry)

	// Timer routes
	mux.HandleFunc("/api/v1/timer", httpHandler.GetTimer)
	mux.HandleFunc("/api/v1/timer/start", httpHandler.StartTimer)
	mux.HandleFunc("/api/v1/timer/stop", httpHandler.StopTimer)

	// Week routes
	mux.HandleFunc("/api/v1/timesheet/week", httpHandler.WeekTimesheet)
	mux.HandleFunc("/api/v1/weeks/get", httpHandler.WeekDetail)
	mux.HandleFunc("/api/v1/weeks/submit", httpHandler.SubmitWeek)
	mux.HandleFunc("/api/v1/weeks/approve", httpHandler.ApproveWeek)
	mux.HandleFunc("/api/v1/weeks/reject", httpHandler.RejectWeek)
	mux.HandleFunc("/api/v1/approvals", httpHandler.Approvals)

	// Report routes
	mux.HandleFunc("/api/v1/reports", httpHandler.Report)
	mux.HandleFunc("/api/v1/reports/heatmap", httpHandler.Heatmap)
	mux.HandleFunc("/api/v1/dashboard", httpHandler.Dashboard)

	// Project routes
	mux.HandleFunc("/api/v1/projects", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			httpHandler.ListProjects(w, r)
		case http.MethodPost:
			httpHandler.CreateProject(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/v1/projects/get", httpHandler.GetProject)
	mux.HandleFunc("/api/v1/projects/update", httpHandler.UpdateProject)
	mux.HandleFunc("/api/v1/projects/delete", httpHandler.DeleteProject)

	// User routes
	mux.HandleFunc("/api/v1/users/register", httpHandler.Register)
	mux.HandleFunc("/api/v1/users", httpHandler.ListEmployees)
	mux.HandleFunc("/api/v1/users/profile", httpHandler.Profile)
	mux.HandleFunc("/api/v1/users/avatar", httpHandler.UpdateAvatar)

	// Apply middleware
	var h http.Handler = mux
	h = middleware.RequestID(h)
	h = middleware.Logger(&log.Logger)(h)
	h = middleware.Recovery(&log.Logger)(h)
	h = middleware.CORS([]string{"*"})(h)
	h = middleware.Timeout(30 * time.Second)(h)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      h,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	log.Info().Msg("Server stopped")
}
