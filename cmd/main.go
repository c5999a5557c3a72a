package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hkguide/server/adapters/backend"
	"github.com/hkguide/server/adapters/llm"
	"github.com/hkguide/server/adapters/stt"
	"github.com/hkguide/server/adapters/tts"
	"github.com/hkguide/server/domain/repositories"
	"github.com/hkguide/server/internal/api"
	"github.com/hkguide/server/internal/auth"
	"github.com/hkguide/server/internal/config"
	"github.com/hkguide/server/internal/websocket"
)

// demoUtterance is recognized by the scripted capture engine.
const demoUtterance = "Plan a day in Central"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := cfg.NewLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	cfg.Warn(logger)

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
	logger.Info("Server exited")
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize adapters
	completer, err := newCompleter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	synthesizer, err := newSynthesizer(cfg, logger)
	if err != nil {
		return err
	}
	captureFactory, err := newCaptureFactory(cfg)
	if err != nil {
		return err
	}

	var accounts api.Authenticator
	if cfg.Backend.BaseURL != "" {
		client, err := backend.NewClient(cfg.Backend, logger)
		if err != nil {
			return err
		}
		accounts = client
	}

	locale := cfg.Speech.Locale
	if locale == "" {
		locale = "en-US"
	}

	hub := websocket.NewHub(websocket.Dependencies{
		Completer:       completer,
		Synthesizer:     synthesizer,
		NewCapture:      captureFactory,
		SettleDelay:     cfg.SettleDelay,
		PlaybackTimeout: cfg.PlaybackTimeout,
		Locale:          locale,
	}, logger)

	cleanup := websocket.NewSessionCleanupService(hub, 0, 0, logger)

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	api.InitRoutes(e, &api.Handlers{
		Hub:         hub,
		Issuer:      auth.NewIssuer(cfg.JWTSecret, 0),
		Accounts:    accounts,
		Synthesizer: synthesizer,
		Logger:      logger,
	})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	g.Go(func() error {
		logger.Info("Server started",
			zap.String("port", cfg.Port),
			zap.String("llmProvider", cfg.LLMProvider),
			zap.String("sttProvider", cfg.STTProvider))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("shutting down the server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		cleanup.Start()
		<-gctx.Done()
		cleanup.Stop()

		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	return g.Wait()
}

func newCompleter(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories.ChatCompleter, error) {
	switch cfg.LLMProvider {
	case config.ProviderGemini:
		return llm.NewGeminiClient(ctx, cfg.Gemini, logger)
	default:
		return llm.NewOpenRouterClient(cfg.OpenRouter, logger)
	}
}

func newSynthesizer(cfg config.Config, logger *zap.Logger) (repositories.SpeechSynthesizer, error) {
	if cfg.ElevenLabs.APIKey == "" {
		return tts.NewMockTTS(logger), nil
	}
	return tts.NewElevenLabsTTS(cfg.ElevenLabs, logger)
}

func newCaptureFactory(cfg config.Config) (websocket.CaptureFactory, error) {
	if cfg.STTProvider == config.ProviderScripted {
		return func(logger *zap.Logger) (repositories.SpeechCapture, error) {
			return stt.NewScriptedCaptureFromText(demoUtterance, 200*time.Millisecond, logger), nil
		}, nil
	}

	if err := stt.ValidateGoogleCaptureConfig(cfg.Speech); err != nil {
		return nil, err
	}
	return func(logger *zap.Logger) (repositories.SpeechCapture, error) {
		return stt.NewGoogleCapture(cfg.Speech, logger)
	}, nil
}
