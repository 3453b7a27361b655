package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tossware/poolengine/internal/api"
	"github.com/tossware/poolengine/internal/auth"
	"github.com/tossware/poolengine/internal/config"
	"github.com/tossware/poolengine/internal/engine"
	"github.com/tossware/poolengine/internal/event"
	"github.com/tossware/poolengine/internal/metrics"
	"github.com/tossware/poolengine/internal/middleware"
	"github.com/tossware/poolengine/internal/storage/sqlite"
	"github.com/tossware/poolengine/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	registry := prometheus.NewRegistry()
	engineMetrics := metrics.New(registry)

	eng := engine.New(store, event.LogSink{}, engine.StaticDirectory{},
		engine.WithMetrics(engineMetrics),
		engine.WithLockWait(cfg.LockWait),
	)

	mux := http.NewServeMux()
	api.NewHandler(eng).Register(mux)

	root := http.NewServeMux()
	root.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	var handler http.Handler = mux
	if cfg.TokenSecret != "" {
		tokens := auth.NewTokenManager(cfg.TokenSecret, cfg.TokenTTL)
		handler = middleware.RequireAuth(tokens, handler)

		operatorHash := cfg.OperatorSecretHash
		if operatorHash == "" && cfg.OperatorSecret != "" {
			operatorHash, err = auth.HashSecret(cfg.OperatorSecret)
			if err != nil {
				slog.Error("Failed to hash operator secret", "error", err)
				os.Exit(1)
			}
		}
		tokenHandler := api.NewTokenHandler(tokens, operatorHash)
		root.Handle("/v1/auth/token", middleware.Logging(middleware.CORS(tokenHandler)))
	} else {
		slog.Warn("TOKEN_SECRET not set, API runs unauthenticated")
	}

	root.Handle("/", middleware.Logging(middleware.CORS(handler)))

	// h2c lets gRPC-style HTTP/2 clients connect without TLS.
	h2cHandler := h2c.NewHandler(root, &http2.Server{})

	addr := fmt.Sprintf(":%d", cfg.Port)
	slog.Info("Pool engine server starting", "address", addr)
	if err := http.ListenAndServe(addr, h2cHandler); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
