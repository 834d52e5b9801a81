package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/gridline/raceparty/internal/auth"
	"github.com/gridline/raceparty/internal/relay"
	"github.com/gridline/raceparty/internal/store"
)

const shutdownTimeout = 10 * time.Second

func main() {
	fmt.Println("Starting Party Relay...")

	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	config, err := relay.NewConfigFromEnv()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if config.JWTSecret == "" {
		log.Fatal("RELAY_JWT_SECRET must be set")
	}
	relay.SetConfig(config)

	members, closeStore, err := buildMembershipStore(config)
	if err != nil {
		log.Fatalf("Failed to initialize membership store: %v", err)
	}
	defer closeStore()

	service := relay.NewRelay(auth.NewVerifier(config.JWTSecret), members)
	go service.Run()
	log.Println("Relay started and ready to manage WebSocket sessions")

	mux := relay.SetupRoutes(service)
	httpServer := relay.CreateServer(config.Port, mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- relay.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("HTTP server error: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received signal %s, shutting down...", sig)
	}

	if err := relay.ShutdownServer(httpServer, shutdownTimeout); err != nil {
		log.Printf("HTTP shutdown did not complete cleanly: %v", err)
	}
	if err := service.Shutdown(shutdownTimeout); err != nil {
		log.Printf("Relay shutdown did not complete cleanly: %v", err)
	}
}

// buildMembershipStore picks the PostgreSQL store when a database URL is
// configured, falling back to the in-memory store for development runs.
func buildMembershipStore(config *relay.Config) (store.MembershipStore, func(), error) {
	if config.DatabaseURL == "" {
		log.Println("RELAY_DATABASE_URL not set; using in-memory membership store")
		return store.NewMemoryStore(), func() {}, nil
	}

	pg, err := store.NewPostgresStore(context.Background(), config.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return pg, pg.Close, nil
}
