// Package server wires the account service: storage, signers, AWS and chain
// collaborators, the gRPC and HTTP transports, and graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/gophwallet/internal/logging"
	"github.com/dmitrijs2005/gophwallet/internal/server/archive"
	"github.com/dmitrijs2005/gophwallet/internal/server/captcha"
	"github.com/dmitrijs2005/gophwallet/internal/server/chain"
	"github.com/dmitrijs2005/gophwallet/internal/server/cloud"
	"github.com/dmitrijs2005/gophwallet/internal/server/config"
	"github.com/dmitrijs2005/gophwallet/internal/server/httpapi"
	"github.com/dmitrijs2005/gophwallet/internal/server/metrics"
	"github.com/dmitrijs2005/gophwallet/internal/server/models"
	"github.com/dmitrijs2005/gophwallet/internal/server/notify"
	"github.com/dmitrijs2005/gophwallet/internal/server/receipt"
	"github.com/dmitrijs2005/gophwallet/internal/server/relay"
	"github.com/dmitrijs2005/gophwallet/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophwallet/internal/server/services"
	"github.com/dmitrijs2005/gophwallet/internal/server/storage"
	"github.com/dmitrijs2005/gophwallet/internal/server/throttle"

	gs "github.com/dmitrijs2005/gophwallet/internal/server/grpc"
)

const poolRefreshInterval = time.Minute

type App struct {
	config    *config.Config
	logger    logging.Logger
	db        *sql.DB
	store     *storage.PostgresStore
	metrics   *metrics.Metrics
	accounts  *services.AccountService
	forwarder *services.Forwarder
	closers   []func() error
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	logger, err := logging.New(c.LogBackend, c.LogLevel, os.Stdout)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	app := &App{config: c, logger: logger, metrics: metrics.New()}

	if err := app.initStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}
	if err := app.initServices(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func (app *App) initStorage(ctx context.Context) error {
	db, err := repomanager.OpenDB(ctx, app.config.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("db init error: %w", err)
	}
	app.db = db
	app.closers = append(app.closers, db.Close)

	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("migrations error: %w", err)
	}

	app.store = storage.NewPostgresStore(db, rm)
	return seedProxyPool(ctx, app.store, app.config.ProxySeed)
}

type proxyAdder interface {
	AddProxy(ctx context.Context, address string) error
}

// seedProxyPool adds the configured proxies to the pool. Addresses already
// in the pool are left alone.
func seedProxyPool(ctx context.Context, pool proxyAdder, seed []string) error {
	for _, addr := range seed {
		if !ethcommon.IsHexAddress(addr) {
			return fmt.Errorf("proxy seed: %q is not an address", addr)
		}
		if err := pool.AddProxy(ctx, ethcommon.HexToAddress(addr).Hex()); err != nil {
			return fmt.Errorf("proxy seed: %w", err)
		}
	}
	return nil
}

// newSigners loads the session and recovery keys. They must differ, or a
// session receipt holder could pass for the recovery service.
func newSigners(c *config.Config) (session, recovery *receipt.Signer, err error) {
	session, err = receipt.NewSigner(c.SessionKey)
	if err != nil {
		return nil, nil, fmt.Errorf("session key: %w", err)
	}
	recovery, err = receipt.NewSigner(c.RecoveryKey)
	if err != nil {
		return nil, nil, fmt.Errorf("recovery key: %w", err)
	}
	if session.Address() == recovery.Address() {
		return nil, nil, fmt.Errorf("recovery key must differ from session key (%s)", session.Address().Hex())
	}
	return session, recovery, nil
}

func (app *App) initServices(ctx context.Context) error {
	c := app.config

	session, recovery, err := newSigners(c)
	if err != nil {
		return err
	}

	awsCfg, err := cloud.LoadAWSConfig(ctx, c)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}
	endpoint := cloud.BaseEndpoint(c)

	sesClient := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) { o.BaseEndpoint = endpoint })
	sqsClient := sqs.NewFromConfig(awsCfg, func(o *sqs.Options) { o.BaseEndpoint = endpoint })

	publisher, err := app.newPublisher(awsCfg, endpoint)
	if err != nil {
		return err
	}
	notifier := notify.NewNotifier(notify.NewSESMailer(sesClient, c.EmailSender), publisher)

	opts := []services.AccountOption{
		services.WithProxyPool(app.store),
		services.WithThrottle(app.newThrottle()),
	}
	if c.ArchiveBucket != "" {
		s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = endpoint != nil
		})
		opts = append(opts, services.WithArchiver(archive.NewS3Archive(s3Client, c.ArchiveBucket)))
	}

	ledger := services.NewReferralLedger(app.store, app.logger.With("module", "referrals"))
	app.accounts = services.NewAccountService(app.store, ledger, notifier,
		captcha.NewRecaptcha(c.RecaptchaSecret, c.RecaptchaURL), session, c,
		app.logger.With("module", "accounts"), opts...)

	eth := chain.NewClient(c.EthRPCURL, ethcommon.HexToAddress(c.FactoryAddress))
	app.closers = append(app.closers, func() error { eth.Close(); return nil })

	dispatcher := &meteredDispatcher{
		Dispatcher: relay.NewSQSDispatcher(sqsClient, c.SQSQueueURL),
		metrics:    app.metrics,
		queue:      "sqs",
	}
	app.forwarder = services.NewForwarder(eth, eth, dispatcher, recovery, c, app.logger.With("module", "forwarder"))

	return nil
}

func (app *App) newPublisher(awsCfg aws.Config, endpoint *string) (notify.Publisher, error) {
	c := app.config
	switch c.EventsBackend {
	case config.EventsKafka:
		producer, err := notify.NewKafkaSyncProducer(c.KafkaBrokers)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		kp := notify.NewKafkaPublisher(producer, c.KafkaTopic)
		app.closers = append(app.closers, kp.Close)
		return kp, nil
	case config.EventsSNS, "":
		client := sns.NewFromConfig(awsCfg, func(o *sns.Options) { o.BaseEndpoint = endpoint })
		return notify.NewSNSPublisher(client, c.SNSTopicARN), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", c.EventsBackend)
	}
}

// newThrottle shares counters through Redis when an address is configured
// and falls back to per-process limits otherwise.
func (app *App) newThrottle() services.Throttle {
	c := app.config
	if c.RedisAddr == "" {
		return throttle.NewLocalThrottle(c.ThrottleLimit, c.ThrottleWindow)
	}
	rc := redis.NewClient(&redis.Options{Addr: c.RedisAddr})
	app.closers = append(app.closers, rc.Close)
	return throttle.NewRedisThrottle(rc, c.ThrottleLimit, c.ThrottleWindow)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves gRPC and HTTP until a signal arrives or a server fails.
func (app *App) Run(ctx context.Context) error {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	grpcServer := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.metrics, app.accounts, app.forwarder)
	router := httpapi.NewHandler(app.accounts, app.forwarder, app.logger, app.metrics).Router(app.config.MetricsPath)
	httpServer := httpapi.NewServer(app.config.EndpointAddrHTTP, router, app.logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return grpcServer.Run(ctx) })
	g.Go(func() error { return httpServer.Run(ctx) })
	g.Go(func() error {
		watchProxyPool(ctx, app.store, app.metrics, poolRefreshInterval, app.logger)
		return nil
	})

	err := g.Wait()
	app.Close()
	return err
}

func (app *App) Close() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Warn(context.Background(), "close failed", "error", err)
		}
	}
	app.closers = nil
}

// meteredDispatcher counts forwarded gas per queue.
type meteredDispatcher struct {
	services.Dispatcher
	metrics *metrics.Metrics
	queue   string
}

func (d *meteredDispatcher) Enqueue(ctx context.Context, msg models.RelayMessage) error {
	if err := d.Dispatcher.Enqueue(ctx, msg); err != nil {
		return err
	}
	d.metrics.ObserveForward(d.queue, msg.Gas)
	return nil
}

type poolSizer interface {
	PoolSize(ctx context.Context) (int, error)
}

// watchProxyPool publishes the proxy pool size until ctx is done.
func watchProxyPool(ctx context.Context, pool poolSizer, m *metrics.Metrics, every time.Duration, log logging.Logger) {
	refresh := func() {
		n, err := pool.PoolSize(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn(ctx, "proxy pool size", "error", err)
			}
			return
		}
		m.SetProxyPool(n)
	}

	refresh()
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}
