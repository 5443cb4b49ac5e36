package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/Karagwa/ChapFarm/internal/advice"
	"github.com/Karagwa/ChapFarm/internal/api"
	"github.com/Karagwa/ChapFarm/internal/auth"
	"github.com/Karagwa/ChapFarm/internal/config"
	"github.com/Karagwa/ChapFarm/internal/mailer"
	"github.com/Karagwa/ChapFarm/internal/sms"
	"github.com/Karagwa/ChapFarm/internal/storage"
	"github.com/Karagwa/ChapFarm/internal/ussd"
	"github.com/Karagwa/ChapFarm/internal/weather"
)

var configFile = flag.String("config-file", ".env", "Configuration file")

func main() {
	flag.Parse()

	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(*configFile)
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	// Open gorm connection
	db, err := storage.Open(&storage.Options{
		Dialect:  cfg.DBDialect,
		Address:  cfg.MysqlAddress,
		User:     cfg.MysqlUser,
		Password: cfg.MysqlPassword,
		Schema:   cfg.MysqlSchema,
		Path:     cfg.SqlitePath,
	})
	if err != nil {
		return err
	}
	store := storage.NewStore(db)

	// Open redis connection
	redisDB := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddress,
		Username: cfg.RedisUsername,
		Password: cfg.RedisPassword,
	})
	if err := redisDB.Ping(ctx).Err(); err != nil {
		return err
	}

	weatherClient, err := weather.NewClient(&weather.Options{
		APIKey:  cfg.WeatherAPIKey,
		BaseURL: cfg.WeatherBaseURL,
		Store:   store,
		Logger:  sugar,
	})
	if err != nil {
		return err
	}

	adviceService, err := advice.NewService(&advice.Options{
		Cache:   store,
		APIKey:  cfg.GroqAPIKey,
		BaseURL: cfg.GroqBaseURL,
		Model:   cfg.GroqModel,
		Logger:  sugar,
	})
	if err != nil {
		return err
	}

	logSaver, err := ussd.NewLogSaver(ctx, db, sugar, cfg.SaveUssdLogs, cfg.UssdLogsTable)
	if err != nil {
		return err
	}

	ussdHandler, err := ussd.NewHandler(&ussd.Options{
		AppName:         cfg.ServiceName,
		Store:           ussd.NewStore(store),
		Weather:         weatherClient,
		Advice:          adviceService,
		Locker:          ussd.NewRedisLocker(redisDB),
		Logger:          sugar,
		Logs:            logSaver,
		SessionDuration: cfg.SessionDuration,
	})
	if err != nil {
		return err
	}

	authManager, err := auth.NewManager(cfg.JWTSecret, cfg.TokenDuration)
	if err != nil {
		return err
	}

	deps := api.Deps{
		Store:   store,
		Auth:    authManager,
		Weather: weatherClient,
		Logger:  sugar,
	}

	// SMS and mail are optional; routes that need them report unavailable
	// when unconfigured.
	if cfg.SMSUsername != "" && cfg.SMSAPIKey != "" {
		deps.SMS, err = sms.NewClient(&sms.Options{
			Username: cfg.SMSUsername,
			APIKey:   cfg.SMSAPIKey,
			SenderID: cfg.SMSSenderID,
			BaseURL:  cfg.SMSBaseURL,
			Logger:   sugar,
		})
		if err != nil {
			return err
		}
	}
	if cfg.SMTPHost != "" {
		deps.Mailer, err = mailer.NewMailer(&mailer.Options{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.MailFrom,
			Logger:   sugar,
		})
		if err != nil {
			return err
		}
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Post("/ussd", ussdHandler.ServeHTTP)
	r.Mount("/", api.NewRouter(deps))

	srv := &http.Server{
		Addr:              ":" + strings.TrimPrefix(cfg.HTTPPort, ":"),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sugar.Infow("chapfarm listening", "addr", cfg.HTTPPort)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func newLogger(level int) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapcore.Level(level))
	return cfg.Build(zap.WithCaller(true))
}
