package main // Entry point package

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/tripshare/internal/config"
	"github.com/iliyamo/tripshare/internal/database"
	"github.com/iliyamo/tripshare/internal/geo"
	"github.com/iliyamo/tripshare/internal/handler"
	"github.com/iliyamo/tripshare/internal/logger"
	"github.com/iliyamo/tripshare/internal/middleware"
	"github.com/iliyamo/tripshare/internal/queue"
	"github.com/iliyamo/tripshare/internal/realtime"
	"github.com/iliyamo/tripshare/internal/repository"
	"github.com/iliyamo/tripshare/internal/router"
	"github.com/iliyamo/tripshare/internal/service"
	"github.com/iliyamo/tripshare/internal/sms"
	"github.com/iliyamo/tripshare/internal/storage"
)

func main() {
	cfg := config.Load() // Load environment config
	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output})
	if err != nil {
		logger.Discard().Fatalf("logger: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: cfg.SentryDSN, Environment: cfg.Env}); err != nil {
			log.WithError(err).Warnf("sentry init failed")
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	db, err := database.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()
	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: without it rate limiting, caching and phone
	// verification are off.
	rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warnf("redis unavailable; rate limiting, cache and phone codes disabled")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	files, err := newStorage(ctx, cfg.Upload)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	hub := realtime.NewHub(log)
	hub.AllowOrigins(cfg.WSAllowedOrigins...)
	go hub.Run(ctx)

	var pub service.EventPublisher
	if cfg.AMQP.URL != "" {
		p := queue.NewPublisher(cfg.AMQP.URL, cfg.AMQP.Queue, log)
		defer p.Close()
		pub = p
		if cfg.AMQP.ConsumerEnabled {
			c := &queue.Consumer{URL: cfg.AMQP.URL, Queue: cfg.AMQP.Queue, LogPath: cfg.AMQP.LogPath, Log: log}
			go func() {
				if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
					log.WithError(err).Errorf("activity consumer stopped")
				}
			}()
		}
	}

	users := repository.NewUserRepo(db)
	trips := repository.NewTripRepo(db)
	reservations := repository.NewReservationRepo(db)
	ratings := repository.NewRatingRepo(db)

	notifier := service.NewNotifier(repository.NewNotificationRepo(db), hub, pub, log)
	tripSvc := service.NewTripService(db, trips, reservations, users, notifier, newEstimator(cfg, rdb, log))
	resSvc := service.NewReservationService(db, trips, reservations, ratings, users, notifier)
	chatSvc := service.NewChatService(repository.NewChatRepo(db), users, notifier)
	adminSvc := service.NewAdminService(db, users, repository.NewDriverRequestRepo(db), trips, reservations, files, notifier)

	var codes repository.CodeStore
	if rdb != nil {
		codes = repository.NewRedisCodeStore(rdb)
	}
	authSvc, err := service.NewAuthService(service.AuthConfig{
		JWTSecret:      cfg.JWTSecret,
		AccessTTLMin:   cfg.AccessTTLMin,
		RefreshTTLDays: cfg.RefreshTTLDays,
		BcryptCost:     cfg.BcryptCost,
		CodeTTL:        cfg.SMS.CodeTTL,
	}, users, repository.NewTokenRepo(db), ratings, files, newSender(cfg.SMS, log), codes, log)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handler.NewHTTPErrorHandler(log)
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))

	opts := router.Options{JWTSecret: cfg.JWTSecret}
	if rdb != nil {
		opts.RateLimit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
		opts.Cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	}
	if cfg.Upload.Backend == "local" {
		opts.UploadDir = cfg.Upload.Dir
	}
	router.Register(e, db, router.Handlers{
		Auth:         handler.NewAuthHandler(authSvc, cfg.Upload.MaxBytes),
		User:         handler.NewUserHandler(authSvc, resSvc),
		Trip:         handler.NewTripHandler(tripSvc),
		Reservation:  handler.NewReservationHandler(resSvc),
		Chat:         handler.NewChatHandler(chatSvc),
		Notification: handler.NewNotificationHandler(notifier),
		Admin:        handler.NewAdminHandler(adminSvc, cfg.Upload.MaxBytes),
		WS:           handler.NewWSHandler(hub, cfg.JWTSecret),
	}, opts)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(map[string]any{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Errorf("shutdown")
	}
}

func newStorage(ctx context.Context, uc config.UploadConfig) (storage.Storage, error) {
	if uc.Backend == "s3" {
		return storage.NewS3Storage(ctx, uc.S3Region, uc.S3Bucket, uc.S3Domain)
	}
	return storage.NewLocalStorage(uc.Dir, uc.BaseURL)
}

// newEstimator consults the built-in city table first and, with an API key,
// Google geocoding cached in Redis.
func newEstimator(cfg config.Config, rdb *redis.Client, log *logger.Logger) *geo.Estimator {
	chain := geo.Chain{geo.DefaultCities}
	if cfg.Geo.GoogleAPIKey != "" {
		g, err := geo.NewGoogleGeocoder(cfg.Geo.GoogleAPIKey)
		if err != nil {
			log.WithError(err).Warnf("google geocoder disabled")
		} else if rdb != nil {
			chain = append(chain, geo.NewCachedGeocoder(g, rdb, cfg.Geo.CacheTTL))
		} else {
			chain = append(chain, g)
		}
	}
	ec := cfg.Estimate
	return geo.NewEstimator(chain, ec.BaseFare, ec.PerKM, ec.SpeedKMH, ec.BufferMin)
}

func newSender(sc config.SMSConfig, log *logger.Logger) sms.Sender {
	if sc.TwilioAccountSID == "" || sc.TwilioAuthToken == "" {
		log.Info("twilio not configured; sms codes are logged")
		return sms.LogSender{Log: log}
	}
	return sms.NewTwilioSender(sc.TwilioAccountSID, sc.TwilioAuthToken, sc.FromNumber)
}
