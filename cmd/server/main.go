/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the institute finance engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load .env / environment configuration
  2. Parse command-line flags (flags override environment)
  3. Initialize SQLite store and structured logger
  4. Assemble payroll and billing services
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default from PORT, else 8080)
  -db      SQLite database path (default from DB_PATH, else finance.db)
           Use ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/instituteops/finance-engine/api"
	"github.com/instituteops/finance-engine/billing"
	"github.com/instituteops/finance-engine/config"
	"github.com/instituteops/finance-engine/directory"
	"github.com/instituteops/finance-engine/finance"
	"github.com/instituteops/finance-engine/payroll"
	"github.com/instituteops/finance-engine/store/sqlite"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Flags override environment.
	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DBPath, "SQLite database path")
	flag.Parse()

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	defaultFee, err := finance.ParseMoney(cfg.DefaultTuitionFee)
	if err != nil {
		logger.Fatal("Invalid DEFAULT_TUITION_FEE", zap.Error(err))
	}
	dir := directory.NewAllowAll(defaultFee)

	clock := finance.SystemClock()

	// Assemble services
	requests := payroll.NewRequestService(store.HourRequests(), clock)
	salaries := payroll.NewSalaryService(store.Salaries(), dir, clock)
	engine := payroll.NewSettlementEngine(store.Salaries(), store.HourRequests(), dir)

	ledger := billing.NewLedger(store.Installments(), store.Payments(), store.Discounts(), dir, clock)
	if cfg.OverpaymentPolicy == "reject" {
		ledger.Overpayment = billing.OverpaymentReject
	}

	handler := api.NewHandler(requests, salaries, engine, ledger, store.Payments(), logger)
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting",
			zap.Int("port", *port),
			zap.String("db", *dbPath),
			zap.String("env", cfg.Environment))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
