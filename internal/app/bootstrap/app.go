package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tvamit/aya-helthcare-demo/internal/api/router"
	"github.com/tvamit/aya-helthcare-demo/internal/appointments"
	"github.com/tvamit/aya-helthcare-demo/internal/assistant"
	"github.com/tvamit/aya-helthcare-demo/internal/booking"
	appconfig "github.com/tvamit/aya-helthcare-demo/internal/config"
	"github.com/tvamit/aya-helthcare-demo/internal/doctors"
	"github.com/tvamit/aya-helthcare-demo/internal/events"
	"github.com/tvamit/aya-helthcare-demo/internal/hospital"
	"github.com/tvamit/aya-helthcare-demo/internal/http/handlers"
	httpmiddleware "github.com/tvamit/aya-helthcare-demo/internal/http/middleware"
	"github.com/tvamit/aya-helthcare-demo/internal/knowledge"
	"github.com/tvamit/aya-helthcare-demo/internal/llm"
	"github.com/tvamit/aya-helthcare-demo/internal/observability/metrics"
	"github.com/tvamit/aya-helthcare-demo/pkg/logging"
)

// Deps are the process-level collaborators the API is built from.
type Deps struct {
	Logger *logging.Logger
	// AWS is nil when no AWS config could be loaded; Bedrock, SES and SQS
	// are then unavailable.
	AWS            *aws.Config
	Metrics        *metrics.AssistantMetrics
	MetricsHandler http.Handler
	// LLM replaces provider selection when set.
	LLM llm.Client
}

// App is the assembled API.
type App struct {
	Handler   http.Handler
	Assistant *assistant.Service

	limiter   *httpmiddleware.RateLimiter
	deliverer *events.Deliverer
	closers   []func() error
	logger    *logging.Logger
}

type stores struct {
	directory    doctors.Directory
	appointments appointments.Store
	beds         hospital.Store
}

// Build wires every component from cfg. Optional integrations that are not
// configured are left out; misconfigured required ones return an error.
func Build(ctx context.Context, cfg *appconfig.Config, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("bootstrap: config required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{logger: logger}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	pool, err := ConnectPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	var outboxPool events.PgxPool
	if pool != nil {
		app.closers = append(app.closers, func() error { pool.Close(); return nil })
		outboxPool = pool
	}
	st, err := buildStores(pool, logger)
	if err != nil {
		return nil, err
	}

	sessionStore, redisClient := BuildSessionStore(ctx, cfg, logger)
	if redisClient != nil {
		app.closers = append(app.closers, redisClient.Close)
	}

	kb, err := knowledge.Default()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load hospital knowledge: %w", err)
	}

	client := deps.LLM
	provider := "custom"
	if client == nil {
		var closers []func() error
		client, closers, err = BuildLLMClient(ctx, cfg, deps.AWS, deps.Metrics, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, closers...)
		provider = cfg.LLMProvider
	}

	stt, tts, sttName, speechClosers, err := BuildSpeech(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, speechClosers...)

	sinks := BuildBookingSinks(cfg, deps.AWS, outboxPool, logger)
	app.deliverer = sinks.Deliverer

	loc := cfg.Location()
	engineOpts := []booking.Option{
		booking.WithLocation(loc),
		booking.WithSessionTTL(cfg.SessionTTL),
		booking.WithMetrics(deps.Metrics),
		booking.WithLogger(logger),
	}
	if len(sinks.Observers) > 0 {
		engineOpts = append(engineOpts, booking.WithObserver(sinks.Observers))
	}
	engine := booking.NewEngine(sessionStore, st.directory, st.appointments, engineOpts...)

	assistantOpts := []assistant.Option{
		assistant.WithBeds(st.beds),
		assistant.WithMetrics(deps.Metrics),
		assistant.WithLogger(logger),
		assistant.WithTopK(cfg.KnowledgeTopK),
		assistant.WithEmergencyNumber(cfg.EmergencyNumber),
	}
	retriever := BuildRetriever(ctx, cfg, deps.AWS, kb, logger)
	if retriever != nil {
		assistantOpts = append(assistantOpts, assistant.WithRetriever(retriever))
	}
	if stt != nil {
		assistantOpts = append(assistantOpts, assistant.WithSpeech(stt, tts))
	}
	app.Assistant = assistant.New(engine, client, kb, st.directory, assistantOpts...)

	status := handlers.ServiceStatus{
		LLMProvider:        provider,
		SpeechToText:       sttName,
		TextToSpeech:       tts != nil,
		KnowledgeRetrieval: retriever != nil,
	}
	app.limiter = httpmiddleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	app.Handler = router.New(&router.Config{
		Logger:             logger,
		AI:                 handlers.NewAIHandler(app.Assistant, status, logger),
		ChatSocket:         handlers.NewChatSocket(app.Assistant, cfg.CORSAllowedOrigins, logger),
		Admin:              handlers.NewAdminHandler(st.appointments, st.beds, st.directory, loc, logger),
		AdminAuthSecret:    cfg.AdminJWTSecret,
		MetricsHandler:     deps.MetricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimiter:        app.limiter,
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin endpoints disabled")
	}

	ok = true
	return app, nil
}

func buildStores(pool *pgxpool.Pool, logger *logging.Logger) (stores, error) {
	if pool != nil {
		logger.Info("storage: postgres")
		return stores{
			directory:    doctors.NewPostgresDirectory(pool),
			appointments: appointments.NewPostgresStore(pool),
			beds:         hospital.NewPostgresStore(pool),
		}, nil
	}
	directory, err := doctors.NewSeededDirectory()
	if err != nil {
		return stores{}, fmt.Errorf("bootstrap: seed doctors: %w", err)
	}
	beds, err := hospital.NewSeededStore()
	if err != nil {
		return stores{}, fmt.Errorf("bootstrap: seed beds: %w", err)
	}
	logger.Info("storage: memory (seeded reference data)")
	return stores{
		directory:    directory,
		appointments: appointments.NewMemoryStore(),
		beds:         beds,
	}, nil
}

// Start runs the background loops until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	if a.limiter != nil {
		go a.limiter.Run(ctx)
	}
	if a.deliverer != nil {
		go a.deliverer.Start(ctx)
	}
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
