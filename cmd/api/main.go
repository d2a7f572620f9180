package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/atelierline/agency-backend/config"
	"github.com/atelierline/agency-backend/internal/auth"
	"github.com/atelierline/agency-backend/internal/bootstrap"
	"github.com/atelierline/agency-backend/internal/campaigns"
	cronjob "github.com/atelierline/agency-backend/internal/campaigns/cron"
	"github.com/atelierline/agency-backend/internal/contacts"
	"github.com/atelierline/agency-backend/internal/mailer"
	"github.com/atelierline/agency-backend/internal/notifications"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	bootstrap.SetGinMode(cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := bootstrap.OpenDB(ctx, bootstrap.DBOptions{DSN: cfg.Database.PgxDSN()})
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	sqlDB, err := bootstrap.OpenSQLDB(&cfg.Database)
	if err != nil {
		log.Fatalf("sql db: %v", err)
	}
	defer sqlDB.Close()

	rdb, err := bootstrap.OpenRedis(ctx, &cfg.Redis)
	if err != nil {
		// The run log is observability data; the engine works without it.
		log.Printf("Warning: redis unavailable, campaign run log disabled: %v", err)
		rdb = nil
	}

	authClient, err := auth.InitializeFirebase(&cfg.Firebase)
	if err != nil {
		log.Printf("Warning: firebase disabled, trusting X-User-Id header: %v", err)
		authClient = nil
	}

	contactRepo := contacts.NewRepo(sqlDB)
	notifRepo := notifications.NewRepo(pool)
	fanout := notifications.NewFanout(notifRepo)

	var runLog *campaigns.RunLog
	if rdb != nil {
		runLog = campaigns.NewRunLog(rdb)
	}

	campaignSvc := campaigns.NewService(
		contactRepo,
		mailer.New(cfg.Mailer),
		fanout,
		runLog,
		campaigns.Options{
			DefaultStaleness: time.Duration(cfg.Campaign.StalenessDays) * 24 * time.Hour,
			SendDelay:        cfg.Campaign.SendDelay,
		},
	)

	if cfg.Campaign.CronEnabled {
		scheduler := cronjob.NewScheduler(campaignSvc, cfg.Campaign.CronSpec)
		scheduler.Start()
		defer scheduler.Stop()
	}

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:     "agency-backend",
		Version:         cfg.App.Version,
		DB:              pool,
		SQLDB:           sqlDB,
		Redis:           rdb,
		AuthClient:      authClient,
		CampaignService: campaignSvc,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}

	go func() {
		log.Printf("listening on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
