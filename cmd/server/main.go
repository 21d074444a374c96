package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/storefront-orders/internal/config"
	"github.com/iliyamo/storefront-orders/internal/currency"
	"github.com/iliyamo/storefront-orders/internal/database"
	"github.com/iliyamo/storefront-orders/internal/handler"
	"github.com/iliyamo/storefront-orders/internal/middleware"
	"github.com/iliyamo/storefront-orders/internal/notify"
	"github.com/iliyamo/storefront-orders/internal/queue"
	"github.com/iliyamo/storefront-orders/internal/repository"
	"github.com/iliyamo/storefront-orders/internal/router"
	"github.com/iliyamo/storefront-orders/internal/service"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		slog.Error("database connect failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	rdb := config.NewRedisClient() // nil when Redis is down
	if rdb != nil {
		defer rdb.Close()
	}

	// ---- notifications ----
	mailCfg := config.LoadMailConfig()
	mailer, err := notify.NewMailer(mailCfg)
	if err != nil {
		slog.Error("mailer setup failed", "error", err)
		os.Exit(1)
	}
	dispatcher := notify.NewDispatcher(mailer, mailCfg.AdminEmail, mailCfg.StoreName)
	publisher := queue.NewPublisher(cfg.AMQPURL)
	if cfg.AMQPURL != "" {
		go func() {
			if err := queue.NewConsumer(cfg.AMQPURL, os.Getenv("ORDER_LOG_PATH")).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("order consumer stopped", "error", err)
			}
		}()
	}

	// ---- exchange rate ----
	curCfg := config.LoadCurrencyConfig()
	var rateOpts []currency.Option
	if rdb != nil {
		rateOpts = append(rateOpts, currency.WithStore(currency.NewRedisStore(rdb, curCfg.RedisKey)))
	}
	rates := currency.NewCache(
		currency.NewHTTPFetcher(curCfg.SourceURL, curCfg.Target),
		curCfg.Base, curCfg.Target, curCfg.TTL,
		decimal.NewFromFloat(curCfg.FallbackRate),
		rateOpts...,
	)

	// ---- repositories and services ----
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	products := repository.NewProductRepo(db)
	orders := repository.NewOrderRepo(db)

	if n, err := tokens.DeleteExpiredResets(ctx); err != nil {
		slog.Warn("expired reset token cleanup failed", "error", err)
	} else if n > 0 {
		slog.Info("expired reset tokens removed", "count", n)
	}

	payCfg := config.LoadPaymentConfig()
	if payCfg.WebhookSecret == "" {
		slog.Warn("PAYMENT_WEBHOOK_SECRET is empty, every payment webhook will be rejected")
	}
	orderSvc := service.NewOrderService(orders, products, dispatcher, publisher, payCfg.DeliveryFees, curCfg.Base)
	paymentSvc := service.NewPaymentService(orders, orderSvc, rates, payCfg)
	authSvc := service.NewAuthService(users, tokens, dispatcher, cfg)

	// ---- http ----
	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogStatus:   true,
		LogURI:      true,
		LogMethod:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency", v.Latency}
			if v.Error != nil {
				slog.Error("request", append(attrs, "error", v.Error.Error())...)
				return nil
			}
			slog.Info("request", attrs...)
			return nil
		},
	}))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	respCache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb)
	productH := handler.NewProductHandler(products, respCache)
	orderH := handler.NewOrderHandler(orderSvc, paymentSvc)
	srH := handler.NewServiceRequestHandler(repository.NewServiceRequestRepo(db))
	curH := handler.NewCurrencyHandler(rates)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(authSvc), cfg.JWTSecret,
		middleware.NewTokenBucket(config.LoadAuthRateLimitConfig(), rdb))
	router.RegisterPublic(e, productH, curH, respCache)
	router.RegisterCustomer(e, orderH, srH, cfg.JWTSecret)
	router.RegisterAdmin(e, router.AdminHandlers{
		Products:        productH,
		Orders:          orderH,
		ServiceRequests: srH,
		Currency:        curH,
		Admin:           handler.NewAdminHandler(dispatcher, repository.NewStatsRepo(db)),
	}, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		slog.Info("server starting", "addr", addr, "env", cfg.Env)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}
	// let queued emails finish
	dispatcher.Wait()
	slog.Info("server exited")
}

// setupLogger installs a JSON slog handler in production and a text
// handler with debug output otherwise.
func setupLogger(cfg config.Config) {
	var h slog.Handler
	if cfg.IsProd() {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(h))
}
