package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mailspool/mailspool/internal/campaign"
	"github.com/mailspool/mailspool/internal/mailqueue"
	"github.com/mailspool/mailspool/internal/tracking"
	"github.com/mailspool/mailspool/internal/transport"
	"github.com/mailspool/mailspool/pkg/config"
	"github.com/mailspool/mailspool/pkg/db"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/pkg/rmq"
	"github.com/mailspool/mailspool/services/delivery-worker/admin"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadWorker()
	cfg := config.Worker

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer sqlDB.Close()

	store := mailqueue.NewStore(sqlDB)
	campaigns := campaign.NewStore(sqlDB)
	settings := campaign.NewSettingsStore(sqlDB)

	smtp := transport.NewSMTP(transport.SenderConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
	mail := transport.NewBreaker(smtp)

	limiter := mailqueue.NewRateLimiter(campaign.DefaultMaxEmailsPerHour)
	bus := mailqueue.NewProgressBus()
	completion := mailqueue.NewCompletionMonitor(store, campaigns)
	injector := tracking.NewInjector(cfg.TrackingURL)

	dispatcher := mailqueue.NewDispatcher(store, mail, injector, limiter,
		mailqueue.NewRetryPolicy(campaign.DefaultEmailRetryAttempts), bus, completion,
		mailqueue.Config{
			Interval:    cfg.TickInterval,
			BatchSize:   cfg.BatchSize,
			Concurrency: cfg.Concurrency,
			StuckAfter:  cfg.StuckAfter,
			SenderID:    cfg.SenderID,
		})

	svc := mailqueue.NewService(store, campaigns, settings, limiter, bus, dispatcher)

	if cfg.RMQURL != "" {
		pub, err := rmq.NewPublisher(cfg.RMQURL, cfg.EventQueue)
		if err != nil {
			logx.L().Fatalw("rmq_init_error", "error", err)
		}
		defer pub.Close()

		unsubscribe := svc.SubscribeProgress(func(snap mailqueue.ProgressSnapshot) {
			payload, err := json.Marshal(snap)
			if err != nil {
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := pub.PublishJSON(ctx, payload); err != nil {
				logx.L().Debugw("event_relay_error", "error", err)
			}
		})
		defer unsubscribe()
	}

	startCtx, cancelStart := context.WithTimeout(context.Background(), 5*time.Second)
	svc.Start(startCtx)
	cancelStart()

	srv := admin.NewHTTPServer(":"+cfg.AdminPort, admin.NewHandlers(svc))
	go func() {
		logx.L().Infow("admin_listen_start", "addr", ":"+cfg.AdminPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.L().Fatalw("admin_server_error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logx.L().Infow("signal_received", "signal", sig.String())

	svc.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logx.L().Errorw("admin_shutdown_error", "error", err)
	}
	logx.L().Infow("delivery-worker stopped gracefully")
}
