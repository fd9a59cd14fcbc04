package app

import (
	"context"
	"database/sql"
	"time"

	"github.com/Lost-tail/MetalProductsBackend/configs"
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/cache"
	httpadapter "github.com/Lost-tail/MetalProductsBackend/internal/adapter/http"
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/http/middleware"
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/kafka"
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/notify"
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/queue"
	"github.com/Lost-tail/MetalProductsBackend/internal/adapter/repo"
	"github.com/Lost-tail/MetalProductsBackend/internal/delivery"
	"github.com/Lost-tail/MetalProductsBackend/internal/logging"
	"github.com/Lost-tail/MetalProductsBackend/internal/payment"
	"github.com/Lost-tail/MetalProductsBackend/internal/usecase"
	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
)

type App struct {
	Router *gin.Engine
}

func InitWithConfig(cfg configs.Config) (*App, func(), error) {
	log := logging.Init(cfg.App.Name, cfg.App.LogFile)

	// database
	db, err := sql.Open("mysql", cfg.MySQL.DSN)
	if err != nil {
		return nil, nil, err
	}
	db.SetConnMaxLifetime(cfg.MySQL.ConnMaxLifetime)
	db.SetMaxOpenConns(cfg.MySQL.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MySQL.MaxIdleConns)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, nil, err
	}

	// redis (provider token cache)
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       0,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, nil, err
	}

	// rabbitmq (audit channel)
	conn, err := amqp.Dial(cfg.Rabbit.URL)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, err
	}
	audit, err := queue.NewAuditPublisher(ch)
	if err != nil {
		return nil, nil, err
	}

	// telegram forwarder on the audit queue
	tg := notify.NewTelegram(cfg.Telegram.BotKey, cfg.Telegram.ChatID)
	auditHandler := queue.NewAuditEventHandler(tg, logging.New("notify"))
	qr := queue.NewRouter(ch, logging.New("queue"))
	qr.Register("order.audit.q", queue.JSONHandler[usecase.AuditEvent]{HandleFunc: auditHandler.HandleAudit})
	if err := qr.Start(); err != nil {
		return nil, nil, err
	}

	// kafka status event stream (optional)
	var events usecase.StatusEventPublisher
	var closeKafka func() error
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicStatus)
		if err != nil {
			return nil, nil, err
		}
		events = producer
		closeKafka = producer.Close
	}

	// domain wiring
	orderRepo := repo.NewMySQLOrderRepo(db)
	productRepo := repo.NewMySQLProductRepo(db)
	tokens := cache.NewRedisTokenCache(rdb)
	provider := payment.NewPaykeeper(payment.PaykeeperConfig{
		BaseURL:  cfg.Paykeeper.BaseURL,
		User:     cfg.Paykeeper.User,
		Password: cfg.Paykeeper.Password,
		Secret:   cfg.Paykeeper.Secret,
	}, tokens, logging.New("paykeeper"))
	quoter := delivery.NewClient(delivery.Config{
		URL:       cfg.Delivery.URL,
		APIKey:    cfg.Delivery.APIKey,
		OriginLat: cfg.Delivery.OriginLat,
		OriginLon: cfg.Delivery.OriginLon,
	}, logging.New("delivery"))

	createUC := usecase.NewCreateOrder(orderRepo, productRepo, quoter, provider,
		audit, events, cfg.Orders.StrictProducts, logging.New("orders"))
	ordersUC := usecase.NewOrders(orderRepo, logging.New("orders"))
	reconciler := usecase.NewReconciler(orderRepo, provider, audit, events, logging.New("reconcile"))

	h := httpadapter.NewOrderHandler(createUC, ordersUC, audit)
	wh := httpadapter.NewWebhookHandler(reconciler)
	th := httpadapter.NewTokenHandler(cfg)
	authz := middleware.NewAuthz(cfg)
	router := httpadapter.NewRouter(h, wh, th, authz, cfg.Orders.WebhookPrefix)

	log.Info("order-api wired", "strict_products", cfg.Orders.StrictProducts)

	cleanup := func() {
		_ = db.Close()
		_ = rdb.Close()
		_ = ch.Close()
		_ = conn.Close()
		if closeKafka != nil {
			_ = closeKafka()
		}
	}
	return &App{Router: router}, cleanup, nil
}
