package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/nikhil/chapterhub/internal/config"
	"github.com/nikhil/chapterhub/internal/database"
	"github.com/nikhil/chapterhub/internal/events"
	"github.com/nikhil/chapterhub/internal/logger"
	"github.com/nikhil/chapterhub/internal/mailer"
	"github.com/nikhil/chapterhub/internal/push"
	"github.com/nikhil/chapterhub/internal/ratelimit"
	"github.com/nikhil/chapterhub/internal/realtime"
	"github.com/nikhil/chapterhub/internal/routes"
	"github.com/nikhil/chapterhub/internal/service/broadcast"
	"github.com/nikhil/chapterhub/internal/storage"
	"github.com/nikhil/chapterhub/internal/store"
	"github.com/nikhil/chapterhub/internal/worker"
)

const backgroundJobTimeout = 2 * time.Minute

func main() {
	flags := config.Flags()
	if err := flags.Parse(os.Args[1:]); err != nil {
		os.Exit(2)
	}
	cfg, err := config.Load(flags)
	if err != nil {
		logger.NewLogger("chapterhub", "").Fatal("Failed to load configuration", "error", err)
	}

	log := logger.NewLogger("chapterhub", cfg.Env)
	defer log.Sync()
	defer zap.ReplaceGlobals(log.Desugar())()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		log.Fatal("Failed to open database", "driver", cfg.Database.Driver, "error", err)
	}
	defer db.Close()
	if cfg.Database.Migrate {
		n, err := database.Migrate(db)
		if err != nil {
			log.Fatal("Failed to run migrations", "error", err)
		}
		log.Info("Migrations applied", "count", n)
	}
	st := store.New(db)

	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", "addr", cfg.Redis.Addr, "error", err)
		}
		limiter = ratelimit.NewRedis(rdb, cfg.RateLimit.Requests, cfg.RateLimit.Window)
	default:
		limiter = ratelimit.NewMemory(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	}

	var publisher events.Publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("Publishing domain events to kafka", "topic", cfg.Kafka.Topic)
	}
	defer publisher.Close()

	var pushSender push.Sender
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSender = push.NewWebPush(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
	} else {
		log.Warn("VAPID keys not configured, push notifications disabled")
	}
	dispatcher := push.NewDispatcher(st, pushSender, log.Named("push"))

	var emailSender mailer.Sender = mailer.LogSender{Log: log.Named("email")}
	if cfg.Email.ResendAPIKey != "" {
		emailSender = mailer.NewResendSender(cfg.Email.ResendAPIKey, cfg.Email.From, log.Named("email"))
	} else {
		log.Warn("Resend API key not configured, emails are only logged")
	}
	mail := mailer.New(emailSender, cfg.Email.SendDelay, log.Named("mailer"))

	deps := routes.Deps{
		Config:  cfg,
		Log:     log,
		Store:   st,
		Limiter: limiter,
		Mailer:  mail,
	}
	if cfg.Storage.Bucket != "" {
		presigner, err := storage.NewPresigner(ctx, storage.Options{
			Bucket:          cfg.Storage.Bucket,
			Region:          cfg.Storage.Region,
			Endpoint:        cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKeyID,
			SecretAccessKey: cfg.Storage.SecretAccessKey,
			TTL:             cfg.Storage.PresignTTL,
		})
		if err != nil {
			log.Fatal("Failed to configure file storage", "error", err)
		}
		deps.Storage = presigner
	}

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hub := realtime.NewHub(log.Named("realtime"))
	go hub.Run(hubCtx)

	jobs := worker.NewGroup(backgroundJobTimeout, log.Named("worker"))
	deps.Hub = hub
	deps.Jobs = jobs
	deps.Broadcast = &broadcast.Broadcaster{
		Members: st,
		Hub:     hub,
		Events:  publisher,
		Push:    dispatcher,
		Jobs:    jobs,
		Log:     log.Named("broadcast"),
	}

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           routes.RegisterAllRoutes(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("Server is running", "addr", cfg.HTTP.Addr, "env", cfg.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Graceful shutdown failed", "error", err)
	}
	stopHub()
	if err := jobs.Wait(shutdownCtx); err != nil {
		log.Warn("Background jobs still running at exit", "error", err)
	}
}
