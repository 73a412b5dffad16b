/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and wires the
generation pipeline to its handlers.
*/
package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/rs/zerolog/log"

	"fitforge/internal/admin"
	"fitforge/internal/database"
	"fitforge/internal/llmservice"
	"fitforge/internal/planservice"
	"fitforge/internal/ragservice"
	"fitforge/internal/user"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the database service and connection pool.
	db database.Service

	// plans is the generation pipeline behind the plan endpoints.
	plans *planservice.Service
}

// NewServer initializes a new Server instance and returns a configured
// *http.Server. It reads configuration from environment variables and
// sets production-ready network timeouts.
func NewServer() *http.Server {
	// Attempt to parse port from environment; fallback to 8080 if not set or invalid.
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	db := database.NewService()

	bucketCfg := ragservice.DefaultBucketConfig()
	retriever := ragservice.NewRetriever(db.Queries(), bucketCfg, ragservice.DefaultLimit, log.Logger)

	orchestrator := llmservice.NewOrchestrator(
		llmservice.DefaultProviders(),
		llmservice.NewAdapters(http.DefaultClient, os.Getenv),
		os.Getenv,
		log.Logger,
	)

	newApp := &Server{
		port:  port,
		db:    db,
		plans: planservice.NewService(retriever, orchestrator, log.Logger),
	}

	admin.InitAdminPackage(db)
	user.InitUserPackage(db.Queries(), newApp.plans, bucketCfg)

	// Generation requests spend most of their time waiting on providers,
	// so the write timeout has to cover the whole fallback chain.
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute,
	}

	return server
}
