package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	gofirestore "cloud.google.com/go/firestore"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/travelog/partner-lifecycle/internal/api"
	"github.com/travelog/partner-lifecycle/internal/api/handler"
	"github.com/travelog/partner-lifecycle/internal/core/ports"
	"github.com/travelog/partner-lifecycle/internal/core/service"
	"github.com/travelog/partner-lifecycle/internal/infrastructure/config"
	fsstore "github.com/travelog/partner-lifecycle/internal/infrastructure/db/firestore"
	mongostore "github.com/travelog/partner-lifecycle/internal/infrastructure/db/mongo"
	redisstore "github.com/travelog/partner-lifecycle/internal/infrastructure/db/redis"
	"github.com/travelog/partner-lifecycle/internal/infrastructure/events"
	"github.com/travelog/partner-lifecycle/internal/infrastructure/mail"
	"github.com/travelog/partner-lifecycle/internal/infrastructure/ordercode"
	"github.com/travelog/partner-lifecycle/internal/infrastructure/payos"
	"github.com/travelog/partner-lifecycle/internal/infrastructure/queue"
	"github.com/travelog/partner-lifecycle/pkg/logger"
)

const (
	shutdownTimeout = 10 * time.Second
	resumeTokenKey  = "changestream:users:resume"
)

// stores holds the repositories of the selected driver plus what is needed
// to probe and close it.
type stores struct {
	accounts  ports.AccountRepository
	operators ports.OperatorRepository
	check     handler.Check
	mongoDB   *mongo.Database
	close     func()
}

func main() {
	// .env is optional; real deployments set the environment directly.
	envErr := godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		boot := logger.Init(logger.Options{})
		boot.Fatal().Err(err).Msg("cannot load config")
	}

	log := logger.Init(logger.Options{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: "partner-lifecycle",
		Env:     cfg.Env,
	})
	if envErr != nil {
		log.Debug().Msg("no .env file found, using environment variables")
	}
	for _, name := range cfg.MissingSecrets() {
		log.Warn().Str("secret", name).Msg("collaborator not configured, calls will fail until it is set")
	}

	rdb, err := redisstore.Connect(ctx, redisstore.Config{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connect")
	}
	defer rdb.Close()

	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store connect")
	}
	defer st.close()

	codes, err := ordercode.NewGenerator(cfg.Lifecycle.OrderCodeNode)
	if err != nil {
		log.Fatal().Err(err).Msg("order code generator")
	}

	payments := payos.NewClient(payos.Config{
		BaseURL:     cfg.PayOS.BaseURL,
		ClientID:    cfg.PayOS.ClientID,
		APIKey:      cfg.PayOS.APIKey,
		ChecksumKey: cfg.PayOS.ChecksumKey,
		Timeout:     cfg.PayOS.Timeout,
	})
	mailer := mail.NewSMTPMailer(mail.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		User:     cfg.SMTP.User,
		Pass:     cfg.SMTP.Pass,
		FromName: cfg.SMTP.FromName,
		Timeout:  cfg.SMTP.Timeout,
	})

	var publisher ports.EventPublisher = events.NoopPublisher{}
	if cfg.RabbitMQ.URL != "" {
		p, err := events.NewPublisher(cfg.RabbitMQ.URL)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq connect")
		}
		defer p.Close()
		publisher = p
		log.Info().Msg("rabbitmq publisher connected")
	}

	// The trigger always writes through the undecorated store.
	trigger := service.NewTriggerService(service.TriggerDeps{
		Accounts: st.accounts,
		Payments: payments,
		Mailer:   mailer,
		Codes:    codes,
		Dedup:    redisstore.NewDedupChecker(rdb),
		Events:   publisher,
	}, service.TriggerConfig{
		ActivationFee:     cfg.Lifecycle.ActivationFee,
		DescriptionPrefix: cfg.Lifecycle.DescriptionPrefix,
		AppBaseURL:        cfg.Lifecycle.AppBaseURL,
		ProviderTimeout:   cfg.PayOS.Timeout,
		MailTimeout:       cfg.SMTP.Timeout,
	}, logger.Component("trigger"))

	dispatcher := queue.NewDispatcher(cfg.Dispatcher.Workers, trigger, logger.Component("dispatcher"))
	dispatcher.Start(ctx)

	// Writes made by the API must reach the trigger. In-process mode feeds
	// them through the repository decorator; change stream mode observes
	// them from the database.
	accounts := st.accounts
	switch cfg.TriggerSource {
	case config.TriggerInProcess:
		accounts = queue.NewFeedRepository(st.accounts, dispatcher, logger.Component("feed"))
	case config.TriggerChangeStream:
		watcher := mongostore.NewChangeWatcher(st.mongoDB, dispatcher,
			redisstore.NewTokenStore(rdb, resumeTokenKey), logger.Component("changestream"))
		if err := watcher.EnablePreImages(ctx); err != nil {
			log.Fatal().Err(err).Msg("enable change stream pre-images")
		}
		go func() {
			if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error().Err(err).Msg("change watcher stopped")
			}
		}()
	}
	log.Info().Str("trigger_source", cfg.TriggerSource).Str("store", cfg.StoreDriver).Msg("status trigger wired")

	authSvc := service.NewAuthService(st.operators, cfg.JWTSecret, 0)
	if cfg.AdminUsername != "" && cfg.AdminPassword != "" {
		created, err := authSvc.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap admin")
		}
		if created {
			log.Info().Str("username", cfg.AdminUsername).Msg("bootstrap admin created")
		}
	}

	e := api.NewRouter(api.Deps{
		Auth:     authSvc,
		Partners: service.NewPartnerService(accounts, trigger, logger.Component("partners")),
		Webhooks: service.NewWebhookService(accounts, payments,
			service.WebhookConfig{LenientSignature: cfg.Lifecycle.LenientSignature}, logger.Component("webhook")),
		JWTSecret:     cfg.JWTSecret,
		AuthRateLimit: cfg.AuthRateLimit,
		Checks: map[string]handler.Check{
			"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
			"store": st.check,
		},
		Log: log,
	})

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	// Stop the workers after the API so in-flight writes are still fed.
	cancel()
	select {
	case <-dispatcher.Done():
	case <-shutdownCtx.Done():
		log.Warn().Msg("dispatcher did not drain before shutdown timeout")
	}

	log.Info().Msg("server gracefully stopped")
}

func openStores(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*stores, error) {
	switch cfg.StoreDriver {
	case config.StoreFirestore:
		client, err := fsstore.Connect(ctx, fsstore.Config{
			ProjectID:         cfg.Firebase.ProjectID,
			CredentialsFile:   cfg.Firebase.CredentialsFile,
			CredentialsBase64: cfg.Firebase.CredentialsBase64,
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("project", cfg.Firebase.ProjectID).Msg("firestore connected")
		return &stores{
			accounts:  fsstore.NewAccountRepository(client),
			operators: fsstore.NewOperatorRepository(client),
			check:     func(ctx context.Context) error { return fsstore.Ping(ctx, client) },
			close:     closeFirestore(client, log),
		}, nil
	default:
		client, db, err := mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.Mongo.URI,
			Database: cfg.Mongo.Database,
			AppName:  "partner-lifecycle",
		})
		if err != nil {
			return nil, err
		}
		accounts := mongostore.NewAccountRepository(db)
		operators := mongostore.NewOperatorRepository(db)
		if err := mongostore.EnsureIndexes(ctx, accounts, operators); err != nil {
			_ = mongostore.Disconnect(client)
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("mongo connected")
		return &stores{
			accounts:  accounts,
			operators: operators,
			check:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			mongoDB:   db,
			close: func() {
				if err := mongostore.Disconnect(client); err != nil {
					log.Error().Err(err).Msg("mongo disconnect")
				}
			},
		}, nil
	}
}

func closeFirestore(client *gofirestore.Client, log zerolog.Logger) func() {
	return func() {
		if err := client.Close(); err != nil {
			log.Error().Err(err).Msg("firestore close")
		}
	}
}
