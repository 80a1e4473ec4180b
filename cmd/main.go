package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"alert-dispatch-service/internal/api"
	"alert-dispatch-service/internal/config"
	"alert-dispatch-service/internal/consolidator"
	"alert-dispatch-service/internal/db"
	"alert-dispatch-service/internal/delivery"
	"alert-dispatch-service/internal/kafka"
	"alert-dispatch-service/internal/logging"
	"alert-dispatch-service/internal/mailer"
	"alert-dispatch-service/internal/recipients"
	"alert-dispatch-service/internal/scheduler"
	"alert-dispatch-service/internal/ws"
)

func main() {
	// Load config
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}

	// Connect to database
	dbConn, err := db.New(cfg.DB.DSN)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	defer dbConn.Close()

	// Select the mail transport
	var transport mailer.Transport
	switch cfg.Mail.Transport {
	case "resend":
		transport, err = mailer.NewResendTransport(cfg.Mail.ResendBaseURL, cfg.Mail.ResendAPIKey)
	default:
		transport, err = mailer.NewSMTPTransport(cfg.Mail.SMTPServer, cfg.Mail.SMTPPort, cfg.Mail.Username, cfg.Mail.Password)
	}
	if err != nil {
		log.Fatalf("Mail transport setup failed: %v", err)
	}
	logger.Infof("Using %s mail transport", cfg.Mail.Transport)

	// Wire the pipeline
	hub := ws.NewHub(logger)
	resolver := recipients.New(dbConn, dbConn, cfg.Alerts.FallbackRecipients, logger)
	cons := consolidator.New(dbConn, dbConn, dbConn, resolver, logger)
	worker := delivery.NewWorker(dbConn, transport, cfg.Mail.FromEmail, cfg.Mail.FromName, cfg.Alerts.MaxSendAttempts, hub, logger)

	sched, err := scheduler.New(scheduler.Config{
		Enabled:         cfg.Scheduler.Enabled,
		ConsolidateCron: cfg.Scheduler.ConsolidateCron,
		DrainCron:       cfg.Scheduler.DrainCron,
		Timezone:        cfg.Scheduler.Timezone,
		LookbackHours:   cfg.Alerts.LookbackHours,
	}, cons, worker, logger)
	if err != nil {
		log.Fatalf("Scheduler setup failed: %v", err)
	}
	sched.Start()

	// Alert ingest is optional; without a broker the evaluation
	// pipeline writes alerts directly to the store.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.Kafka.Broker != "" {
		consumer := kafka.NewConsumer([]string{cfg.Kafka.Broker}, cfg.Kafka.Topic, cfg.Kafka.GroupID, dbConn, logger)
		defer consumer.Close()
		go consumer.Start(ctx)
	}

	// Shut the scheduler down cleanly on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Infof("Received %s, shutting down", sig)
		cancel()
		sched.Stop()
		os.Exit(0)
	}()

	// Start API server
	handler := api.NewHandler(dbConn, cons, worker, hub, cfg.Alerts.LookbackHours, logger)
	router := api.NewRouter(handler, cfg.API.BasePath, logger)
	logger.Infof("Starting API server on %s", cfg.API.Port)
	if err := router.Run(cfg.API.Port); err != nil {
		logger.Errorf("API server failed: %v", err)
	}
}
