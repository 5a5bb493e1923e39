package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/audit"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/classifier"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/grpc"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/ocr"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/openai"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/render"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/adapters/rest"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/config"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/grpcserver"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/httpserver"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/pkg/logging"
	"github.com/cp25sy5-modjot/pii-redact-service/internal/usecase"
)

func main() {
	cfg, err := config.Load(env("PII_CONFIG_DIR", "./config"))
	if err != nil {
		logging.New("info", "json").Fatal().Err(err).Msg("invalid configuration")
	}
	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	if cfg.AI.APIKey == "" {
		logger.Warn().Msg("no OpenAI API key configured, AI calls will fail")
	}

	// Adapters (infrastructure)
	ocrAdapter := ocr.NewTesseractOCR(ocr.Config{
		Languages:   cfg.OCR.Languages,
		PageSegMode: cfg.OCR.PageSegMode,
	})
	aiAdapter := openai.NewOpenAIAdapter(openai.Config{
		APIKey:       cfg.AI.APIKey,
		BaseURL:      cfg.AI.BaseURL,
		Model:        cfg.AI.Model,
		Timeout:      cfg.AI.Timeout,
		SystemPrompt: cfg.AI.SystemPrompt,
	}, logger)
	auditPub := audit.NewPublisher(audit.Config{
		Enabled: cfg.Audit.Enabled,
		Brokers: cfg.Audit.Brokers,
		Topic:   cfg.Audit.Topic,
	}, logger)
	defer auditPub.Close()

	logger.Info().
		Str("ocr", ocrAdapter.Name()).
		Str("tesseract", ocrAdapter.Version()).
		Strs("languages", cfg.OCR.Languages).
		Str("model", cfg.AI.Model).
		Msg("adapters ready")

	// Application service (use cases)
	svc := usecase.NewPIIService(ocrAdapter, classifier.New(), render.New(), aiAdapter, auditPub, usecase.Options{
		OCRConcurrency: cfg.OCR.MaxConcurrency,
		DefaultPrompt:  cfg.AI.DefaultPrompt,
		MaxPixels:      cfg.OCR.MaxPixels,
		AuditTimeout:   cfg.Audit.Timeout,
		Logger:         logger,
	})

	errCh := make(chan error, 2)

	var g *grpcserver.Server
	if cfg.Server.GRPCAddr != "" {
		g = grpcserver.New(cfg.Server.GRPCAddr, logger)
		grpc.Register(g.Server, grpc.NewHandler(svc, logger))
		g.SetServing(grpc.ServiceName)
		go func() {
			if err := g.Start(); err != nil {
				errCh <- err
			}
		}()
	}

	var h *httpserver.Server
	if cfg.Server.HTTPAddr != "" {
		router := rest.NewRouter(rest.NewHandler(svc, logger), rest.RouterOptions{
			Mode:           cfg.Server.Mode,
			MaxUploadBytes: cfg.MaxUploadBytes(),
		}, logger)
		h = httpserver.New(cfg.Server.HTTPAddr, router, httpserver.Options{
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
		}, logger)
		go func() {
			if err := h.Run(); err != nil {
				errCh <- err
			}
		}()
	}

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGTERM, syscall.SIGINT)
	select {
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("Shutting down...")
	case err := <-errCh:
		logger.Error().Err(err).Msg("server error, shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if h != nil {
		if err := h.Shutdown(ctx); err != nil {
			logger.Error().Err(err).Msg("HTTP shutdown")
		}
	}
	if g != nil {
		g.Stop()
	}
	// flush pending audit events before the deferred publisher Close
	svc.Close()
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
