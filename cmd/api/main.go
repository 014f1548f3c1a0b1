package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"storyreel/internal/adapter/repo"
	"storyreel/internal/db"
	httphandlers "storyreel/internal/http/handlers"
	"storyreel/internal/http/httpapi"
	"storyreel/internal/infra"
	"storyreel/internal/infra/credentials"
	"storyreel/internal/infra/geoip"
	"storyreel/internal/merge"
	"storyreel/internal/middleware"
	"storyreel/internal/providers/advisory"
	"storyreel/internal/providers/compose"
	"storyreel/internal/providers/renderapi"
	"storyreel/internal/providers/script"
	"storyreel/internal/render"
	"storyreel/internal/session"
	"storyreel/internal/storage"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx := context.Background()
	pool, err := infra.NewDBPool(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect database")
	}
	defer pool.Close()

	if err := db.EnsureSchema(ctx, pool); err != nil {
		logger.Fatal().Err(err).Msg("failed to ensure schema")
	}

	runner := infra.NewSQLRunner(pool, logger)
	credStore := credentials.NewStore(runner)

	// Keys missing from the environment fall back to the credential store,
	// which operators populate with the providerkey tool.
	renderAccessKey, renderSecretKey := cfg.RenderAccessKey, cfg.RenderSecretKey
	if renderAccessKey == "" || renderSecretKey == "" {
		if ak, sk, err := credStore.RenderKeys(ctx); err == nil && ak != "" {
			renderAccessKey, renderSecretKey = ak, sk
		}
	}
	geminiKey := strings.TrimSpace(cfg.GeminiAPIKey)
	if geminiKey == "" {
		if key, err := credStore.GeminiAPIKey(ctx); err == nil {
			geminiKey = key
		}
	}
	composeKey := strings.TrimSpace(cfg.ComposeAPIKey)
	if composeKey == "" {
		if key, err := credStore.ComposeAPIKey(ctx); err == nil {
			composeKey = key
		}
	}

	var renderProvider render.SubmitPoller
	if renderAccessKey != "" && renderSecretKey != "" {
		client, err := renderapi.NewClient(renderapi.Options{
			AccessKey:   renderAccessKey,
			SecretKey:   renderSecretKey,
			BaseURL:     cfg.RenderBaseURL,
			Model:       cfg.RenderModel,
			AspectRatio: cfg.RenderAspectRatio,
			Logger:      &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure render provider")
		}
		renderProvider = client
	} else {
		logger.Warn().Msg("render provider keys missing, using synthetic rendering")
		renderProvider = renderapi.NewSynthetic(2)
	}

	var advisor render.Advisor
	var scripts script.Generator = script.NewStaticGenerator()
	if geminiKey != "" {
		geminiAdvisor, err := advisory.NewGeminiAdvisor(advisory.Options{
			APIKey: geminiKey,
			Model:  cfg.GeminiModel,
			Logger: &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure advisor")
		}
		advisor = geminiAdvisor

		geminiScripts, err := script.NewGeminiGenerator(script.GeminiOptions{
			APIKey:   geminiKey,
			Model:    cfg.GeminiModel,
			Fallback: script.NewStaticGenerator(),
			Logger:   &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure script generator")
		}
		scripts = geminiScripts
	} else {
		logger.Warn().Msg("gemini api key missing, mode selection runs rule-only and scripts are split statically")
	}

	var composer merge.Provider = compose.Synthetic{}
	if cfg.ComposeBaseURL != "" {
		composeClient, err := compose.NewClient(compose.Options{
			BaseURL: cfg.ComposeBaseURL,
			APIKey:  composeKey,
			Logger:  &logger,
		})
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to configure compose client")
		}
		composer = composeClient
	} else {
		logger.Warn().Msg("compose base url missing, using synthetic composition")
	}

	var terminalCache render.TerminalCache
	redisClient, err := infra.NewRedisClient(ctx, cfg)
	if err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, terminal statuses cached in-process only")
	} else if redisClient != nil {
		defer redisClient.Close()
		terminalCache = render.NewRedisTerminalCache(redisClient, logger)
	}

	fileStore, err := storage.NewFileStore(cfg.StoragePath)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure storage")
	}

	dispatcher := render.NewDispatcher(renderProvider, render.DispatcherOptions{StylePrefix: cfg.StylePrefix}, logger)
	svc := session.NewService(session.Deps{
		Sessions:    repo.NewSessionRepository(pool),
		Jobs:        repo.NewJobRepository(pool),
		Selector:    render.NewSelector(advisor, logger),
		Dispatcher:  dispatcher,
		Tracker:     render.NewTracker(renderProvider, terminalCache, logger),
		Regenerator: render.NewRegenerator(renderProvider, dispatcher, 0, logger),
		Merger:      merge.NewEngine(composer, logger),
		Scripts:     scripts,
		Logger:      logger,
	})

	var countryLookup middleware.CountryLookup
	if resolver, err := geoip.NewResolver(cfg.GeoIPDBPath); err != nil {
		logger.Warn().Err(err).Msg("geoip database unavailable")
	} else if resolver != nil {
		defer resolver.Close()
		countryLookup = resolver.CountryCode
	}

	app := httphandlers.NewApp(svc, fileStore, cfg.StorageBaseURL, logger)
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:          logger,
		AllowedOrigins:  cfg.AllowedOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		DefaultLocale:   cfg.DefaultLocale,
		CountryLookup:   countryLookup,
	})
	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().Str("addr", server.Addr()).Msg("API listening")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTPIdleTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
	}
	logger.Info().Msg("server stopped")
}
