package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"quizchase/internal/config"
	"quizchase/internal/game"
	"quizchase/internal/gateway"
	"quizchase/internal/question"
	"quizchase/internal/relay"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("no .env file loaded")
	}
	setupLogging()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	clock := clockwork.NewRealClock()

	var source game.QuestionSource
	if cfg.QuestionURL != "" {
		source = question.NewHTTPSource(cfg.QuestionURL, nil)
		log.Info().Str("url", cfg.QuestionURL).Msg("using HTTP question source")
	} else {
		source = question.NewStaticSource()
		log.Info().Msg("using built-in question set")
	}

	mgr := gateway.NewManager(gateway.DefaultConnConfig())

	var bcast game.Broadcaster = mgr
	if cfg.NATSURL != "" {
		relayCfg := relay.DefaultConfig()
		relayCfg.URL = cfg.NATSURL
		r, err := relay.New(relayCfg, mgr)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect event relay")
		}
		defer r.Close()
		bcast = r
		log.Info().Str("url", cfg.NATSURL).Msg("event relay enabled")
	}

	answer, reveal, gameOver, readyPrompt, fetch, grace := cfg.Timings.Durations()
	registry := game.NewRegistry(game.Config{
		AnswerWindow:     answer,
		RevealDelay:      reveal,
		GameOverDelay:    gameOver,
		ReadyPromptDelay: readyPrompt,
		FetchTimeout:     fetch,
		ReconnectGrace:   grace,
	}, clock, source, bcast)

	gateway.NewRouter(registry, mgr, gateway.StaticValidator{Key: cfg.SpectatorKey})

	reapInterval, idleTTL := cfg.Reaper()

	go mgr.Start(ctx)
	go registry.RunReaper(ctx, reapInterval, idleTTL)

	srv := setupServer(cfg, mgr, registry)
	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}

func setupLogging() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		level = lvl
	}
	zerolog.SetGlobalLevel(level)
}

func setupServer(cfg config.Config, mgr *gateway.Manager, registry *game.Registry) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/ws", mgr.HandleWS)
	mux.Handle("/join/qr", gateway.NewQRHandler(registry, cfg.PublicURL))
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			log.Error().Err(err).Msg("failed to write health check response")
		}
	})

	c := cors.New(cors.Options{
		AllowedMethods: []string{http.MethodHead, http.MethodGet, http.MethodPost},
		AllowedOrigins: []string{"*"},
		AllowedHeaders: []string{"*"},
	})
	handler := c.Handler(mux)

	return &http.Server{
		Addr:    cfg.Addr,
		Handler: h2c.NewHandler(handler, &http2.Server{}),
	}
}
