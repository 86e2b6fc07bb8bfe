package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/railmadad/backend/internal/ai"
	"github.com/railmadad/backend/internal/auth"
	"github.com/railmadad/backend/internal/cache"
	"github.com/railmadad/backend/internal/config"
	"github.com/railmadad/backend/internal/db"
	httpapi "github.com/railmadad/backend/internal/http"
	"github.com/railmadad/backend/internal/http/handlers"
	"github.com/railmadad/backend/internal/memstore"
	"github.com/railmadad/backend/internal/metrics"
	"github.com/railmadad/backend/internal/notify"
	"github.com/railmadad/backend/internal/service"
)

// @title RailMadad API
// @version 1.0
// @description Railway complaint intake, triage and resolution.
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	zerolog.TimeFieldFormat = time.RFC3339
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := log.Level(level).With().Str("service", "railmadad-backend").Logger()
	if cfg.IsDev() {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	ctx := context.Background()
	m := metrics.New()

	var store service.Repository
	if cfg.DatabaseURL != "" {
		pg, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect db")
		}
		defer pg.Close()
		if err := pg.Migrate(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to apply schema")
		}
		store = pg
	} else {
		logger.Warn().Msg("DATABASE_URL not set, using in-memory store")
		store = memstore.New()
	}

	var challenges auth.ChallengeStore = cache.NewMemoryOTPStore()
	if cfg.RedisURL != "" {
		client, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		defer client.Close()
		challenges = cache.NewRedisOTPStore(client)
	}

	var adapter ai.Adapter
	var assistant ai.Assistant
	if cfg.AIURL == "" {
		mock := ai.MockAdapter{ModelVersion: "mock-v1"}
		adapter, assistant = mock, mock
		logger.Info().Msg("using mock AI adapter")
	} else {
		remote := ai.NewHTTPAdapter(cfg.AIURL, cfg.AIAPIKey, cfg.AIModel, &http.Client{Timeout: cfg.AITimeout})
		adapter, assistant = remote, remote
	}
	enricher := &ai.Enricher{Adapter: adapter, Timeout: cfg.AITimeout, Logger: logger, Metrics: m}

	var sms notify.SMSSender = notify.LogSMS{Logger: logger}
	var whatsapp notify.SMSSender
	if cfg.TwilioAccountSID != "" {
		twilio := notify.TwilioSMS{
			AccountSID: cfg.TwilioAccountSID,
			AuthToken:  cfg.TwilioAuthToken,
			From:       cfg.TwilioFromNumber,
			Client:     &http.Client{Timeout: cfg.NotifyTimeout},
		}
		sms = twilio
		if cfg.TwilioWhatsApp != "" {
			twilio.From = cfg.TwilioWhatsApp
			twilio.Prefix = "whatsapp:"
			whatsapp = twilio
		}
	}
	var email notify.EmailSender = notify.LogEmail{Logger: logger}
	if cfg.ResendAPIKey != "" {
		resend, err := notify.NewResendEmail(cfg.ResendAPIKey, cfg.EmailFrom, "")
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure email")
		}
		email = resend
	}

	dispatcher := notify.NewDispatcher(cfg.NotifyTimeout, logger, m)
	dispatcher.Register("log", notify.LogNotifier{Logger: logger})
	dispatcher.Register("contact", notify.ContactNotifier{SMS: sms, WhatsApp: whatsapp, Email: email, Users: store, Logger: logger})
	if brokers := cfg.Brokers(); len(brokers) > 0 {
		kafka, err := notify.NewKafkaNotifier(brokers, cfg.KafkaTopic)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure kafka")
		}
		defer kafka.Close()
		dispatcher.Register("kafka", kafka)
	}

	v := service.NewValidator()
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL)
	categories := service.NewCategoryService(store, v)
	media := service.NewMediaService(store, cfg.MediaChunkKB<<10)
	complaints := service.NewComplaintService(store, categories, media, enricher, v, logger)
	complaints.Notifier = dispatcher
	complaints.Metrics = m

	h := &handlers.Handler{
		Complaints: complaints,
		Categories: categories,
		Users:      service.NewUserService(store, v),
		Chat:       &service.ChatService{Assistant: assistant, Validator: v, Timeout: cfg.AITimeout, Logger: logger},
		OTP: &auth.OTPService{
			Challenges: challenges,
			Users:      store,
			SMS:        sms,
			Tokens:     tokens,
			TTL:        cfg.OTPTTL,
			ExposeCode: cfg.IsDev(),
			Logger:     logger,
		},
		Health: store,
		Logger: logger,
	}
	router := httpapi.Router(cfg, httpapi.Deps{Handler: h, Tokens: tokens, Metrics: m}, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	if err := complaints.Drain(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("enrichment still running at shutdown")
	}
	if err := dispatcher.Wait(ctxShutdown); err != nil {
		logger.Warn().Err(err).Msg("notifications still pending at shutdown")
	}
	logger.Info().Msg("server stopped")
}
