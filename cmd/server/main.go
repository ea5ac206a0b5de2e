// Command server runs the voucher program workflow service.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	apphandler "vouchsafe/internal/application/handler"
	appservice "vouchsafe/internal/application/service"
	"vouchsafe/internal/audit"
	"vouchsafe/internal/guardian"
	vhttp "vouchsafe/internal/http"
	"vouchsafe/internal/jwtauth"
	"vouchsafe/internal/notify"
	"vouchsafe/internal/platform/config"
	"vouchsafe/internal/platform/httpserver"
	platformkafka "vouchsafe/internal/platform/kafka"
	"vouchsafe/internal/platform/logger"
	"vouchsafe/internal/platform/metrics"
	platformpg "vouchsafe/internal/platform/postgres"
	platformredis "vouchsafe/internal/platform/redis"
	"vouchsafe/internal/proofs/attach"
	"vouchsafe/internal/proofs/review"
	"vouchsafe/internal/voucher"
	"vouchsafe/internal/webhooks/dedup"
	"vouchsafe/internal/webhooks/docuseal"
	"vouchsafe/internal/webhooks/twilio"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	cfg := config.FromEnv()
	log := logger.New()
	m := metrics.New(prometheus.DefaultRegisterer)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := platformpg.Open(platformpg.Config{
		URL:             cfg.Postgres.URL,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: cfg.Postgres.ConnMaxLifetime,
	})
	if err != nil {
		log.Error("postgres unavailable", "error", err)
		return err
	}
	if db != nil {
		if err := platformpg.ApplySchema(ctx, db); err != nil {
			log.Error("schema migration failed", "error", err)
			return err
		}
	}

	redisClient, err := platformredis.New(cfg.Redis)
	if err != nil {
		log.Error("redis unavailable", "error", err)
		return err
	}

	kafkaClient, err := platformkafka.New(cfg.Kafka)
	if err != nil {
		log.Error("kafka unavailable", "error", err)
		return err
	}

	// Stores. Without a database everything runs in memory, which is only
	// suitable for local development.
	var (
		apps       = newApplicationStore(db)
		reviews    = newReviewStore(db)
		changes    = newStatusChangeStore(db)
		vouchers   = newVoucherStore(db)
		faxes      = newFaxStore(db)
		guardians  = newGuardianStore(db)
		auditStore = newAuditStore(db)
	)

	blobs, err := newBlobStore(ctx, cfg.Postgres.URL)
	if err != nil {
		log.Error("blob store unavailable", "error", err)
		return err
	}

	var ledger dedup.Ledger = dedup.NewMemory()
	if redisClient != nil {
		ledger = dedup.NewRedis(redisClient)
	}

	var notifier notify.Dispatcher = notify.Noop{}
	if kafkaClient != nil {
		notifier = notify.NewKafkaDispatcher(kafkaClient, cfg.Kafka.NotificationTopic, log)
	}

	auditor := audit.NewPublisher(auditStore, log)

	// Services.
	voucherSvc := voucher.NewService(vouchers, auditor, notifier, m, log)
	guardianSvc := guardian.NewService(guardians, auditor, log)
	signingClient := docuseal.NewClient(cfg.DocuSeal.BaseURL, cfg.DocuSeal.APIKey,
		cfg.DocuSeal.TemplateID, cfg.DocuSeal.DownloadTimeout)

	appSvc := appservice.New(appservice.Config{
		Applications:       apps,
		StatusChanges:      changes,
		Vouchers:           voucherSvc,
		Guardian:           guardianSvc,
		Signing:            signingClient,
		Audit:              auditor,
		Notifier:           notifier,
		Metrics:            m,
		Logger:             log,
		WaitingPeriodYears: cfg.Policy.WaitingPeriodYears,
	})
	attachSvc := attach.NewService(apps, blobs, auditor, m, appSvc, log)
	reviewer := review.NewReviewer(apps, reviews, auditor, notifier, m, appSvc, log)

	webhookSvc := docuseal.NewService(apps, blobs, ledger,
		docuseal.NewHTTPDownloader(cfg.DocuSeal.DownloadTimeout),
		auditor, notifier, m, log)
	faxSvc := twilio.NewService(faxes, blobs, ledger, auditor, notifier, m, log)

	validator := jwtauth.NewHMACValidator(cfg.Server.JWTSigningKey)

	router := vhttp.NewRouter(vhttp.RouterConfig{
		Logger:       log,
		Metrics:      m,
		Validator:    validator,
		Applications: apphandler.New(appSvc, attachSvc, reviewer, auditor, log),
		Vouchers:     voucher.NewHandler(voucherSvc, vouchers, log),
		Guardians:    guardian.NewHandler(guardianSvc, log),
		DocuSeal:     docuseal.NewHandler(webhookSvc, cfg.DocuSeal.WebhookSecret, log),
		Twilio:       twilio.NewHandler(faxSvc, log),
		Health: func() error {
			if db != nil {
				return db.Ping()
			}
			return nil
		},
	})

	server := httpserver.New(cfg.Server.Addr, router)

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("http server starting", "addr", cfg.Server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if db != nil && kafkaClient != nil {
		worker := audit.NewWorker(db, kafkaClient, cfg.Kafka.AuditTopic, log)
		if err := worker.EnsureTopic(ctx, 3, 1); err != nil {
			log.Error("failed to ensure audit topic", "error", err)
			return err
		}
		group.Go(func() error {
			return worker.Run(ctx)
		})
	}

	err = exitErr(group.Wait())
	if err != nil {
		log.Error("server exited", "error", err)
	}
	if kafkaClient != nil {
		kafkaClient.Close()
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	return err
}

// exitErr filters the errors a signal-driven shutdown produces: workers
// return ctx.Err() when the stop signal cancels their context, and that must
// not turn a clean stop into a non-zero exit.
func exitErr(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
