// cmd/pidr-server/main.go
package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"

	"github.com/pidr-game/pidr-engine/internal/auth"
	"github.com/pidr-game/pidr-engine/internal/config"
	"github.com/pidr-game/pidr-engine/internal/database"
	"github.com/pidr-game/pidr-engine/internal/handlers"
	"github.com/pidr-game/pidr-engine/internal/history"
	"github.com/pidr-game/pidr-engine/internal/middleware"
)

func main() {
	auth.Init()

	logger := logrus.New()
	logger.SetLevel(logrus.DebugLevel)

	// Postgres persists snapshots and final results; Redis feeds the
	// accounting worker. Both are optional for a local single-process server.
	if config.GetEnvBool("PIDR_USE_POSTGRES", false) {
		if err := database.ConnectDB(); err != nil {
			logger.WithError(err).Warn("postgres unavailable, persistence disabled")
		}
	}
	if config.GetEnvBool("PIDR_USE_REDIS", false) {
		if err := history.ConnectRedis(); err != nil {
			logger.WithError(err).Warn("redis unavailable, history disabled")
		}
	}

	ms := handlers.NewMatchServer(logger)
	defer ms.Tasks.Stop()
	ms.ResumeMatches(context.Background())

	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"matches": len(ms.Store.MatchIDs()),
		})
	})
	mux.Handle("/match/create", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.CreateMatchHandler(ms),
	)))
	mux.Handle("/match/active/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.ActiveMatchHandler(ms),
	)))
	mux.Handle("/match/results/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.MatchResultsHandler(ms),
	)))
	mux.Handle("/match/ws/", middleware.LogMiddleware(logger)(http.HandlerFunc(
		handlers.MatchWSHandler(logger, ms),
	)))

	addr := ":8080"
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}
	logger.Infof("Running on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
