package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mailspool/mailspool/internal/campaign"
	"github.com/mailspool/mailspool/internal/mailqueue"
	"github.com/mailspool/mailspool/internal/tracking"
	"github.com/mailspool/mailspool/pkg/config"
	"github.com/mailspool/mailspool/pkg/db"
	"github.com/mailspool/mailspool/pkg/logx"
	"github.com/mailspool/mailspool/services/campaign-api/server"
)

func main() {
	logx.Init()
	defer logx.Sync()

	config.MustLoadAPI()
	cfg := config.API

	sqlDB, err := db.Open(cfg.DBDSN)
	if err != nil {
		logx.L().Fatalw("db_open_error", "error", err)
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			logx.L().Warnw("db_close_error", "error", err)
		}
	}()

	var rdb *redis.Client
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer rdb.Close()
	}

	h := server.NewHandlers(mailqueue.NewStore(sqlDB), campaign.NewStore(sqlDB))
	th := server.NewTrackingHandlers(tracking.NewSink(sqlDB, rdb))
	srv := server.NewHTTPServer(":"+cfg.Port, h, th, cfg.RateLimitPS)

	go func() {
		logx.L().Infow("api_listen_start", "addr", ":"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logx.L().Fatalw("http_server_error", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	sig := <-stop
	logx.L().Infow("signal_received", "signal", sig.String())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logx.L().Errorw("server_shutdown_error", "error", err)
	} else {
		logx.L().Infow("server_shutdown_success")
	}
}
