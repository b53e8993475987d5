package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/noticegest/internal/api"
	"github.com/dgallion1/noticegest/internal/config"
	"github.com/dgallion1/noticegest/internal/delivery"
	"github.com/dgallion1/noticegest/internal/mailbox"
	"github.com/dgallion1/noticegest/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize clients.
	sender := delivery.NewClient(delivery.Options{
		URL:     cfg.DeliveryURL,
		Token:   cfg.DeliveryToken,
		Format:  delivery.Format(cfg.DeliveryFormat),
		Gzip:    cfg.DeliveryGzip,
		Timeout: cfg.DeliveryTimeout,
	})

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, sender, log)
	orch.Start(ctx)

	var (
		poller *pipeline.Poller
		mbox   *mailbox.Session
	)
	if cfg.MailboxEnabled() {
		mbox = mailbox.NewSession(mailbox.Config{
			Addr:           cfg.IMAPAddr,
			Username:       cfg.IMAPUsername,
			Password:       cfg.IMAPPassword,
			TLS:            cfg.IMAPTLS,
			Label:          cfg.IMAPLabel,
			ProcessedLabel: cfg.IMAPProcessedLabel,
		}, log.With("component", "mailbox"))
		poller = pipeline.NewPoller(mbox, orch, cfg.PollInterval, log.With("component", "poller"))
		go poller.Run(ctx)
		poller.Trigger()
	} else {
		log.Info("IMAP_ADDR not set, mailbox polling disabled")
	}

	// Initialize HTTP server.
	srv := api.NewServer(orch, poller, sender.Stats, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		cancel()
		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		sender.Close()
		if mbox != nil {
			mbox.Close()
		}
	}()

	log.Info("starting noticegest", "port", cfg.Port, "mailbox", cfg.MailboxEnabled())
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
