package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mcdev12/jeopardy/go/internal/config"
	"github.com/mcdev12/jeopardy/go/internal/episodes"
	"github.com/mcdev12/jeopardy/go/internal/eventbus"
	"github.com/mcdev12/jeopardy/go/internal/game"
	"github.com/mcdev12/jeopardy/go/internal/gateway"
	"github.com/mcdev12/jeopardy/go/internal/judge"
	"github.com/mcdev12/jeopardy/go/internal/results"
	"github.com/mcdev12/jeopardy/go/internal/speech"
	"github.com/mcdev12/jeopardy/go/internal/store"
	"github.com/mcdev12/jeopardy/go/internal/telemetry"
	"github.com/rs/zerolog/log"
)

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	config.SetupLogging(env.LogLevel)

	rules, err := config.LoadRules(env.RulesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", env.RulesPath).Msg("failed to load rules")
	}

	catalog, err := episodes.LoadFile(env.EpisodesPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", env.EpisodesPath).Msg("failed to load episodes")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "jeopardy-gateway", telemetry.Config{
		Enabled:  env.OTelEnabled,
		Endpoint: env.OTelEndpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up tracing")
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Error().Err(err).Msg("tracing shutdown failed")
		}
	}()

	cm := gateway.NewConnectionManager(gateway.DefaultConnectionConfig())
	deps := game.Dependencies{
		Judge:    judge.Normalized{},
		Speaker:  speech.Silent{},
		Roster:   cm,
		Out:      cm,
		Chat:     cm,
		Episodes: catalog,
	}

	if env.OpenAIAPIKey != "" {
		judgeCfg := judge.DefaultOpenAIConfig(env.OpenAIAPIKey)
		judgeCfg.Model = rules.JudgeModel
		deps.Judge = judge.NewOpenAIJudge(judgeCfg)

		speechCfg := speech.DefaultConfig(env.OpenAIAPIKey)
		speechCfg.Model = rules.SpeechModel
		speechCfg.Voice = rules.SpeechVoice
		deps.Speaker = speech.NewOpenAISpeaker(speechCfg)
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, judging by normalized match without speech")
	}

	var sessionStore game.Store
	if env.RedisURL != "" {
		rdb, err := store.Connect(ctx, env.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer rdb.Close()
		sessionStore = store.NewRedisStore(rdb, env.SessionTTL)
		deps.Results = results.NewRedisSink(rdb)
	} else {
		log.Warn().Msg("REDIS_URL not set, sessions live in memory only")
	}

	busCfg := eventbus.DefaultConfig()
	busCfg.URL = env.NATSURL
	nc, js, err := eventbus.Connect(busCfg)
	if err != nil {
		log.Warn().Err(err).Msg("event bus unavailable, domain events disabled")
	} else {
		defer nc.Close()
		if err := eventbus.EnsureStream(ctx, js, busCfg); err != nil {
			log.Warn().Err(err).Msg("failed to ensure event stream, domain events disabled")
		} else {
			deps.Events = eventbus.NewPublisher(js, busCfg)
		}
	}

	registry := game.NewRegistry(ctx, deps, rules.Game(), sessionStore, env.SaveInterval)
	svc := gateway.NewService(cm, registry)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", env.GatewayPort),
		Handler:      svc.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	log.Info().
		Str("port", env.GatewayPort).
		Int("episodes", catalog.Len()).
		Bool("redis", sessionStore != nil).
		Bool("events", deps.Events != nil).
		Msg("starting jeopardy gateway")

	done := make(chan struct{})
	go func() {
		svc.Start(ctx)
		close(done)
	}()

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	// Stopping the registry saves every session one last time.
	cancel()
	select {
	case <-done:
	case <-shutdownCtx.Done():
		log.Warn().Msg("timed out waiting for sessions to save")
	}
	log.Info().Msg("jeopardy gateway shutdown complete")
}
