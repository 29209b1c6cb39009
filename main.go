package main

import (
	"encoding/json"
	stdlog "log"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/username/folioimport/src/config"
	"github.com/username/folioimport/src/handlers"
	"github.com/username/folioimport/src/logger"
	"github.com/username/folioimport/src/services"
)

var limiter = rate.NewLimiter(rate.Every(100*time.Millisecond), 30)

func rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
			logger.L.Warn("Rate limit exceeded",
				"method", r.Method,
				"path", r.URL.Path,
				"remoteAddr", r.RemoteAddr)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		allowedOrigins := map[string]bool{
			"http://localhost:3000": true,
			"tauri://localhost":     true,
		}

		if allowedOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, Authorization, X-Requested-With")
		} else if origin == "" {
			w.Header().Set("Access-Control-Allow-Origin", "*")
		}

		if r.Method == "OPTIONS" {
			logger.L.Debug("Handling OPTIONS preflight request", "path", r.URL.Path, "origin", origin)
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func main() {
	config.LoadConfig()
	logger.InitLogger(config.Cfg.LogLevel)
	logger.L.Info("Folioimport backend server starting...")

	logger.L.Info("Initializing caches...")
	resolutionCache := cache.New(15*time.Minute, 30*time.Minute)
	sessionStore := cache.New(config.Cfg.SessionTTL, config.Cfg.SessionTTL/2)

	logger.L.Info("Initializing services and handlers...")
	apiClient := services.NewAPIClient(
		config.Cfg.APIBaseURL,
		config.Cfg.APIToken,
		config.Cfg.HTTPTimeout,
		config.Cfg.OutboundRPS,
		config.Cfg.OutboundBurst,
	)
	resolverService := services.NewResolverService(apiClient, resolutionCache)
	searchService := services.NewSearchService(apiClient)
	positionService := services.NewPositionService(apiClient)

	importService := services.NewImportService(
		resolverService, searchService, positionService,
		sessionStore, config.Cfg.SearchDebounce, config.Cfg.StrictParsing,
	)
	importHandler := handlers.NewImportHandler(importService)

	logger.L.Info("Configuring routes...")
	rootMux := http.NewServeMux()
	apiRouter := http.NewServeMux()

	apiRouter.HandleFunc("POST /api/import/sessions", importHandler.HandleCreateSession)
	apiRouter.HandleFunc("GET /api/import/sessions/{id}", importHandler.HandleGetSession)
	apiRouter.HandleFunc("PUT /api/import/sessions/{id}/rows/{rowID}/ticker", importHandler.HandleUpdateTicker)
	apiRouter.HandleFunc("GET /api/import/sessions/{id}/rows/{rowID}/suggestions", importHandler.HandleGetSuggestions)
	apiRouter.HandleFunc("POST /api/import/sessions/{id}/rows/{rowID}/select", importHandler.HandleSelectSuggestion)
	apiRouter.HandleFunc("POST /api/import/sessions/{id}/revalidate", importHandler.HandleRevalidate)
	apiRouter.HandleFunc("POST /api/import/sessions/{id}/commit", importHandler.HandleCommit)
	apiRouter.HandleFunc("DELETE /api/import/sessions/{id}", importHandler.HandleCloseSession)

	rootMux.Handle("/api/", apiRouter)

	rootMux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" && r.Method == http.MethodGet {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]string{"message": "Folioimport backend is running"})
		} else if !strings.HasPrefix(r.URL.Path, "/api/") {
			logger.L.Warn("Root level path not found", "method", r.Method, "path", r.URL.Path)
			http.NotFound(w, r)
		}
	})

	logger.L.Info("Applying global middleware...")
	finalHandler := enableCORS(rateLimitMiddleware(rootMux))

	serverAddr := ":" + config.Cfg.Port
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      finalHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	logger.L.Info("Server starting", "address", serverAddr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.L.Error("Failed to start server", "error", err)
		stdlog.Fatalf("Failed to start server: %v", err)
	} else if err == http.ErrServerClosed {
		logger.L.Info("Server stopped gracefully.")
	}
}
