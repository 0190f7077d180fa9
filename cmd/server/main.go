/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the group health pricing & claims server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load the reference catalog from its YAML seed
  4. Wire the pricing and claims engines into the API handler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port     HTTP server port (default: 8080)
  -db       SQLite database path (default: grouphealth.db)
            Use ":memory:" for an in-memory database
  -catalog  Catalog seed YAML path (default: catalog.yaml)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/grouphealth.db" -catalog="./data/catalog.yaml"

  # Run with in-memory database
  ./server -db=":memory:"

ENVIRONMENT:
  No environment variables currently. All config via flags.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - catalog/loader.go: Seed file format
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

	"github.com/medena/grouphealth/api"
	"github.com/medena/grouphealth/catalog"
	"github.com/medena/grouphealth/claims"
	"github.com/medena/grouphealth/pricing"
	"github.com/medena/grouphealth/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "grouphealth.db", "SQLite database path")
	catalogPath := flag.String("catalog", "catalog.yaml", "Catalog seed YAML path")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Load the reference catalog. The holder allows hot-reloading a new
	// snapshot later without restarting.
	snapshot, err := catalog.LoadFile(*catalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}
	holder := catalog.NewHolder(snapshot)

	// Engines
	pricingEngine := pricing.NewEngine(store, holder, nil)
	claimsEngine := claims.NewEngine()

	// HTTP wiring
	handler := api.NewHandler(pricingEngine, claimsEngine, holder, store)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}
