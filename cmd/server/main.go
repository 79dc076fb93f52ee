package main

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"littletoes/internal/assess"
	"littletoes/internal/audio"
	"littletoes/internal/config"
	"littletoes/internal/database"
	"littletoes/internal/handlers"
	"littletoes/internal/repository"
	"littletoes/internal/security"
	"littletoes/internal/service"
	"littletoes/internal/session"
)

func main() {
	// Load configuration
	cfg := config.Load()

	setupLogging(cfg.Debug)

	// Initialize database (supports sqlite, postgres, mysql)
	db, err := database.Open(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	log.Info().Str("type", cfg.DatabaseType).Msg("Database connection established")

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	// Load the curriculum
	unitRepo := repository.NewUnitRepository(db)
	curriculum := service.NewCurriculumService(unitRepo)
	if err := curriculum.SeedDefaultUnits(); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed curriculum")
	}
	if err := curriculum.LoadAll(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load curriculum")
	}
	log.Info().Int("units", len(curriculum.Units())).Msg("Curriculum loaded")

	// Scoring, narration and email services
	assessor := assess.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, cfg.AssessTimeout)
	if cfg.GeminiAPIKey == "" {
		log.Warn().Msg("GEMINI_API_KEY not set, scoring requests will fail")
	}

	ttsService := audio.NewTTSService(filepath.Join(cfg.StaticFilesPath, "audio"))

	mailer, err := service.NewReportMailer(cfg.AWSRegion, cfg.SESFromEmail, cfg.SESFromName)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize report mailer")
	}

	secret := sessionSecret(cfg.SessionSecret)

	ctrlCfg := session.Config{
		NarrationDelay:  cfg.NarrationDelay,
		NarrationRate:   cfg.NarrationRate,
		WorkingInterval: cfg.WorkingInterval,
	}

	hub := handlers.NewSessionHub()
	stopCleanup := hub.StartCleanup(cfg.SessionDuration, time.Hour)
	defer stopCleanup()

	// Handlers and middleware
	middleware := handlers.NewMiddleware(secret, hub)
	createLimiter := security.NewRateLimiter(10, time.Minute)

	sessionHandler := handlers.NewSessionHandler(curriculum, hub, assessor, ttsService, "/static/audio", secret, cfg.SessionDuration, ctrlCfg)
	captureHandler := handlers.NewCaptureHandler()
	streamHandler := handlers.NewStreamHandler()
	exportHandler := handlers.NewExportHandler(mailer)

	mux := http.NewServeMux()

	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticFilesPath))))

	mux.HandleFunc("GET /api/units", sessionHandler.ListUnits)
	mux.HandleFunc("POST /api/session", handlers.RateLimit(createLimiter, sessionHandler.CreateSession))
	mux.HandleFunc("GET /api/session", middleware.RequireSession(sessionHandler.GetSession))
	mux.HandleFunc("POST /api/session/next", middleware.RequireSession(sessionHandler.NextPrompt))
	mux.HandleFunc("POST /api/session/retry", middleware.RequireSession(sessionHandler.RetryPrompt))
	mux.HandleFunc("POST /api/session/reset", middleware.RequireSession(sessionHandler.ResetSession))
	mux.HandleFunc("GET /api/session/events", middleware.RequireSession(streamHandler.Events))

	mux.HandleFunc("POST /api/capture/start", middleware.RequireSession(captureHandler.Start))
	mux.HandleFunc("POST /api/capture/chunk", middleware.RequireSession(captureHandler.Chunk))
	mux.HandleFunc("POST /api/capture/stop", middleware.RequireSession(captureHandler.Stop))
	mux.HandleFunc("POST /api/capture/error", middleware.RequireSession(captureHandler.DeviceError))

	mux.HandleFunc("GET /api/session/report", middleware.RequireSession(exportHandler.Download))
	mux.HandleFunc("POST /api/session/report/email", middleware.RequireSession(exportHandler.Email))

	handler := handlers.Logging(mux)

	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:        addr,
		Handler:     handler,
		ReadTimeout: 15 * time.Second,
		// No write timeout: the event stream holds its response open
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		log.Info().Str("addr", addr).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")
}

// setupLogging configures the global zerolog logger
func setupLogging(debug bool) {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
}

// sessionSecret returns the configured signing secret, or generates an
// ephemeral one. Generated secrets invalidate sessions on restart.
func sessionSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatal().Err(err).Msg("Failed to generate session secret")
	}
	log.Warn().Msg("SESSION_SECRET not set, using an ephemeral secret")
	return []byte(hex.EncodeToString(buf))
}
