package main

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/celerix-dev/swissqr/internal/admin"
	"github.com/celerix-dev/swissqr/internal/api"
	"github.com/celerix-dev/swissqr/internal/config"
	"github.com/celerix-dev/swissqr/internal/dal"
	"github.com/celerix-dev/swissqr/internal/engine"
	"github.com/celerix-dev/swissqr/internal/gate"
	"github.com/celerix-dev/swissqr/internal/logger"
	"github.com/celerix-dev/swissqr/internal/qrbill"
	"github.com/celerix-dev/swissqr/internal/vault"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)
	logger.Info("starting swissqr", "version", buildVersion, "date", buildDate, "commit", buildCommit)

	if cfg.LogLevel > int(slog.LevelDebug) {
		gin.SetMode(gin.ReleaseMode)
	}

	stores, err := dal.Open(cfg.DataDir, engine.WithLogger(logger))
	if err != nil {
		logger.Fatal("failed to open stores", "dir", cfg.DataDir, "error", err)
	}
	logger.Info("stores opened",
		"dir", cfg.DataDir,
		"users", stores.Users.Size(),
		"tokens", stores.Tokens.Size(),
		"logs", stores.Logs.Size(),
	)

	g := gate.New(stores.Tokens, logger, gate.WithHeader(cfg.Auth.Header), gate.WithParam(cfg.Auth.Param))

	// No rendering engine is bundled, the QR routes answer 501 until one is wired.
	h := &api.Handler{
		Admin:    admin.NewService(stores, logger),
		Renderer: qrbill.Unavailable{},
		Decoder:  qrbill.Unavailable{},
		Logger:   logger,
		Started:  time.Now(),
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.HTTP.Port),
		Handler:           api.NewRouter(h, g, stores.Logs, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.HTTP.EnableTLS {
		cert, err := certificate(cfg.HTTP, logger)
		if err != nil {
			logger.Fatal("failed to set up TLS", "error", err)
		}
		srv.TLSConfig = vault.TLSConfig(cert)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info("HTTP server listening", "address", srv.Addr, "tls", cfg.HTTP.EnableTLS)

		var err error
		if srv.TLSConfig != nil {
			err = srv.ListenAndServeTLS("", "")
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err)
	}
	wg.Wait()

	if err := stores.Close(); err != nil {
		logger.Error("failed to close stores", "error", err)
	}
	logger.Info("shutdown complete")
}

// certificate loads the configured key pair, or generates a self-signed
// certificate when none is configured.
func certificate(cfg config.HTTP, l *logger.Logger) (tls.Certificate, error) {
	if cfg.CertFile != "" {
		return vault.LoadCertificate(cfg.CertFile, cfg.KeyFile)
	}
	l.Info("generating self-signed certificate")
	return vault.GenerateSelfSignedCert()
}
