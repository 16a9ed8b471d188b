package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimiro1/banner"
	"github.com/gin-gonic/gin"

	"github.com/murmurlabs/verbatim/pkg/config"
	"github.com/murmurlabs/verbatim/pkg/jobs"
	"github.com/murmurlabs/verbatim/pkg/logging"
	"github.com/murmurlabs/verbatim/pkg/metrics"
	"github.com/murmurlabs/verbatim/pkg/provider"
	_ "github.com/murmurlabs/verbatim/pkg/provider/all"
	"github.com/murmurlabs/verbatim/pkg/redact"
)

const version = "dev"

func printBanner() {
	tpl := "{{ .Title \"VERBATIM\" \"\" 0 }}\nVersion: " + version + "\n"
	banner.Init(os.Stdout, true, true, bytes.NewBufferString(tpl))
}

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	printBanner()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	logger := slog.Default()

	redact.SetPIIEnabled(cfg.Sessions.RedactPII)

	observer, closeMetrics, err := buildMetrics(cfg.Metrics)
	if err != nil {
		logger.Error("metrics setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeMetrics()

	pipeline, err := buildPipeline(cfg, observer, logger)
	if err != nil {
		logger.Error("pipeline setup failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": version})
	})
	jobs.RegisterRoutes(router, pipeline)

	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	go func() {
		logger.Info("listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown failed", slog.String("error", err.Error()))
	}
}

// buildMetrics wires the JSONL observer behind a drop-on-overflow buffer, or
// a noop when disabled.
func buildMetrics(cfg config.MetricsConfig) (metrics.Observer, func(), error) {
	if !cfg.Enabled {
		return metrics.Noop{}, func() {}, nil
	}
	var w io.Writer = os.Stdout
	if cfg.Path != "" {
		f, err := os.OpenFile(cfg.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open metrics file: %w", err)
		}
		w = f
	}
	async := metrics.NewAsync(metrics.NewJSONL(w), 512)
	return async, async.Close, nil
}

func buildPipeline(cfg config.Config, observer metrics.Observer, logger *slog.Logger) (*jobs.Pipeline, error) {
	store, err := jobs.OpenStore(cfg.Jobs.StorePath)
	if err != nil {
		return nil, err
	}

	objects, err := jobs.NewS3Store(context.Background(), jobs.S3Config{
		Region:         cfg.Jobs.S3Region,
		Bucket:         cfg.Jobs.S3Bucket,
		AccessKey:      cfg.Jobs.S3AccessKey,
		SecretKey:      cfg.Jobs.S3SecretKey,
		Endpoint:       cfg.Jobs.S3Endpoint,
		ForcePathStyle: cfg.Jobs.S3ForcePathStyle,
	})
	if err != nil {
		return nil, err
	}

	keys := make(map[provider.Name]string, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		if n, ok := provider.ForName(name); ok {
			keys[n] = pc.APIKey
		}
	}

	return jobs.NewPipeline(jobs.PipelineConfig{
		Store:          store,
		Objects:        objects,
		PublicBaseURL:  cfg.Jobs.PublicBaseURL,
		CallbackSecret: cfg.Jobs.CallbackSecret,
		APIKeys:        keys,
		SignedURLTTL:   cfg.Jobs.SignedURLTTL,
		Metrics:        observer,
		Logger:         logger,
	})
}
