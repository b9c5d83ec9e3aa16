package main

import (
	"context"
	"os"
	"os/signal"
	"restaurant_manager/cache"
	"restaurant_manager/config"
	"restaurant_manager/connectivity"
	"restaurant_manager/database"
	"restaurant_manager/handler"
	"restaurant_manager/notify"
	"restaurant_manager/orderflow"
	"restaurant_manager/realtime"
	"restaurant_manager/remote"
	"restaurant_manager/router"
	"restaurant_manager/syncer"
	"restaurant_manager/utils"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	settings := config.Load()
	locale := utils.ParseLanguage(settings.DefaultLocale, utils.VI)
	log.WithField("locale", utils.GetLanguageLabel(locale)).Info("starting restaurant service")
	if settings.JWTSecret == "" {
		log.Warn("JWT_SECRET is empty, staff routes will reject every token")
	}

	// Dữ liệu cục bộ luôn mở trước, máy chủ có thể đang mất kết nối.
	localDB, err := database.OpenLocal(settings.LocalDBPath, log)
	if err != nil {
		log.WithError(err).Fatal("local cache unavailable")
	}
	store, err := cache.New(localDB, log)
	if err != nil {
		log.WithError(err).Fatal("local cache unavailable")
	}

	rdb := redis.NewClient(&redis.Options{Addr: settings.RedisAddr, Password: settings.RedisPassword})
	defer rdb.Close()
	client := remote.NewLazyClient(func(ctx context.Context) (*gorm.DB, error) {
		return database.ConnectRemote(settings, log)
	}, rdb, log)

	monitor := connectivity.NewMonitor(false, log)
	hub := handler.NewHub(log)
	sink := notify.Fanout{notify.LogSink{Log: log.WithField("component", "notify")}, hub}

	engine := syncer.New(store, client, monitor, sink, syncer.Options{
		Interval: settings.SyncInterval,
		Locale:   string(locale),
	}, log)
	flow := orderflow.New(store, client, engine, sink, hub, orderflow.Options{Locale: string(locale)}, log)
	engine.SetReconciler(flow)
	flow.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := engine.Start(ctx); err != nil {
		log.WithError(err).Fatal("sync engine")
	}
	defer engine.Stop()

	listener := realtime.NewListener(client, flow, sink, string(locale), log)
	reconnects := monitor.Subscribe()
	go listener.WatchConnectivity(ctx, reconnects)
	go listener.Run(ctx)
	go hub.Run(ctx)

	// The first probe dials the backend. Until it answers the device runs offline.
	if err := monitor.Start(client, settings.ProbeInterval); err != nil {
		log.WithError(err).Fatal("connectivity monitor")
	}
	defer monitor.Stop()

	app := fiber.New()
	app.Use(cors.New(cors.Config{
		AllowOrigins:     settings.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,PATCH,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, Accept-Language, X-Session-Id",
		AllowCredentials: true,
		MaxAge:           600,
	}))

	router.SetupRoutes(app, &handler.Handler{
		Flow:   flow,
		Sync:   engine,
		Hub:    hub,
		AppURL: settings.AppURL,
		Log:    log.WithField("component", "http"),
	}, locale)

	go func() {
		<-ctx.Done()
		log.Info("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.WithError(err).Warn("http shutdown")
		}
	}()

	if err := app.Listen(settings.HTTPAddr); err != nil {
		log.WithError(err).Fatal("http server")
	}
	engine.Wait()
}
