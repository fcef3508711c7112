package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"transcode-notifier/config"
	"transcode-notifier/constant"
	jobHandler "transcode-notifier/handler"
	"transcode-notifier/pkg/mailer"
	"transcode-notifier/pkg/rabbitmq"
	"transcode-notifier/pkg/sns"
	"transcode-notifier/repository"
	"transcode-notifier/service"
)

func RunHttp(cfg *config.Config) {
	ctx, cancel := signal.NotifyContext(setupLogger(cfg), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Bool("isProduction", cfg.App.Environment == constant.EnvironmentProduction.String()).Send()
	if cfg.App.Environment == constant.EnvironmentProduction.String() {
		gin.SetMode(gin.ReleaseMode)
	}

	repo, err := NewRepository(cfg)
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("NewRepository")
	}

	signals := service.NewSignalBus()
	signals.SubscribeAll(service.LogSignal)

	if cfg.Storage != nil {
		archiver := service.NewArchiver(cfg.Storage, cfg.MinIOBucket)
		signals.Subscribe(constant.SignalComplete, archiver.Handle)
		signals.Subscribe(constant.SignalError, archiver.Handle)
	}

	if cfg.Queue.Enabled {
		startQueue(ctx, cfg, repo, signals)
	}

	hostPattern, err := cfg.Notification.HostPattern()
	if err != nil {
		zerolog.Ctx(ctx).Fatal().Err(err).Msg("HostPattern")
	}

	client := &http.Client{Timeout: cfg.Notification.HTTPTimeout}
	fetcher := sns.NewHTTPFetcher(client)
	if cfg.Notification.CertCacheTTL > 0 {
		fetcher = sns.NewCachedFetcher(fetcher, cfg.Notification.CertCacheTTL)
	}

	notifications := jobHandler.NewNotificationHandler(
		sns.NewVerifier(fetcher, hostPattern),
		service.NewJobStateService(repo, signals, cfg.Notification.ForwardOnly),
		service.NewSubscriptionService(mailer.New(cfg.Mail), client, cfg.Notification.ConfirmMaxTries),
	)

	r := NewRouter(ctx, cfg.Notification.Path, notifications, jobHandler.NewJobHandler(repo))

	handler := http.Server{
		Handler:           r,
		Addr:              fmt.Sprintf(":%s", cfg.Server.HttpPort),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext: func(net.Listener) context.Context {
			return ctx
		},
	}

	go func() {
		zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Str("path", cfg.Notification.Path).Msg("start http server")
		if err := handler.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
		}
	}()

	<-ctx.Done()
	zerolog.Ctx(ctx).Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer shutdownCancel()
	if err := handler.Shutdown(shutdownCtx); err != nil {
		zerolog.Ctx(ctx).Error().Str("env", cfg.App.Environment).Msg(err.Error())
	}

	zerolog.Ctx(ctx).Info().Str("env", cfg.App.Environment).Msg("server shutdown")
}

// NewRepository opens the job store selected by database.driver.
func NewRepository(cfg *config.Config) (repository.JobRepository, error) {
	if constant.StorageDriver(cfg.Database.Driver) == constant.StorageDriverMemory {
		return repository.NewMemoryRepo(), nil
	}
	return repository.NewRepo(cfg.DB, cfg.App.Environment == constant.EnvironmentDevelop.String())
}

// startQueue publishes job signals to RabbitMQ and, when a pipeline is
// configured, consumes transcode requests.
func startQueue(ctx context.Context, cfg *config.Config, repo repository.JobRepository, signals service.SignalBus) {
	conn, err := config.NewRabbitMQConn(ctx, cfg.Queue)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewRabbitMQConn")
		return
	}

	publisher, err := rabbitmq.NewPublisher(ctx, conn, cfg.Queue.EventsExchange, cfg.Queue.Kind)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewPublisher")
	} else {
		signals.SubscribeAll(service.NewSignalPublisher(publisher))
	}

	if cfg.AWS.PipelineID == "" {
		zerolog.Ctx(ctx).Info().Msg("aws pipeline_id not set, transcode request consumer disabled")
		return
	}

	client, err := config.NewElasticTranscoderClient(ctx, cfg.AWS)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("NewElasticTranscoderClient")
		return
	}

	serviceDeps := jobHandler.ServiceDependencies{
		TranscoderService: service.NewTranscoderService(client, repo, cfg.AWS.PipelineID),
	}

	requestConsumer := rabbitmq.NewConsumer(conn, cfg.Queue, cfg.Server.Workers, jobHandler.TranscodeRequestHandler)
	go func() {
		err := requestConsumer.Consume(ctx, serviceDeps)
		if err != nil && !errors.Is(err, context.Canceled) {
			zerolog.Ctx(ctx).Error().Err(err).Msg("Transcode request consumer error")
		}
	}()
}

func setupLogger(cfg *config.Config) context.Context {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if cfg.App.Environment == constant.EnvironmentDevelop.String() {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	// Log to standard output
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx := logger.WithContext(context.Background())

	return ctx
}
