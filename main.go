package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mango-store/internal/auth"
	"mango-store/internal/cart"
	"mango-store/internal/cart/cart_api"
	cart_db "mango-store/internal/cart/db"
	"mango-store/internal/config"
	"mango-store/internal/database/migrations"
	"mango-store/internal/kafka"
	"mango-store/internal/logger"
	"mango-store/internal/order"
	order_db "mango-store/internal/order/db"
	"mango-store/internal/order/order_api"
	rediswrap "mango-store/internal/order/redis"
	"mango-store/internal/product"
	product_db "mango-store/internal/product/db"
	"mango-store/internal/product/product_api"
	"mango-store/internal/promo"
	"mango-store/internal/promotion"
	promotion_db "mango-store/internal/promotion/db"
	"mango-store/internal/promotion/promotion_api"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
)

func connectPostgres(cfg config.DatabaseConfig, log *logger.Logger) *bun.DB {
	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		log.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.DSN)
		if err == nil {
			err = sqldb.Ping()
			if err == nil {
				break
			}
		}
		log.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.MaxLifetime)

	log.Info("DATABASE", "PostgreSQL connection successful")
	return bun.NewDB(sqldb, pgdialect.New())
}

func connectRedis(ctx context.Context, cfg config.RedisConfig, log *logger.Logger) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr})
	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	log.Info("DATABASE", fmt.Sprintf("Redis connection successful to %s", cfg.Addr))
	return client
}

func main() {
	log := logger.NewLogger()
	defer log.Close()

	log.Info("APP", "Starting mango-store initialization")

	if err := godotenv.Load(); err != nil {
		log.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		log.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	bunDB := connectPostgres(cfg.Database, log)
	defer bunDB.Close()

	redisClient := connectRedis(ctx, cfg.Redis, log)
	defer redisClient.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), log)
	if err := runner.Run(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("Migration failed: %v", err))
	}

	producer := kafka.NewProducer(cfg.Kafka, log)
	defer producer.Close()
	if cfg.Kafka.Enabled {
		log.Info("KAFKA", "Kafka producer initialized")
	} else {
		log.Warn("KAFKA", "Kafka disabled, order events will not be published")
	}

	stacking := promo.OverwriteLast
	if cfg.Promo.SumStacked {
		stacking = promo.SumAll
	}
	evaluator := &promo.Evaluator{Stacking: stacking}

	promotionService := promotion.NewPromotionService(
		&promotion_db.DB{Bun: bunDB, RequireStarted: cfg.Promo.RequireStarted},
		log,
	)
	productService := product.NewProductService(&product_db.DB{Bun: bunDB}, log)
	cartService := cart.NewCartService(&cart_db.DB{Bun: bunDB}, promotionService, evaluator, log)
	orderService := order.NewOrderService(
		&order_db.DB{Bun: bunDB},
		cartService,
		rediswrap.NewRedis(redisClient, cfg.Redis.SplitLockTTL),
		producer,
		log,
	)

	cartHandler := &cart_api.Handler{CartService: cartService, Logger: log}
	orderHandler := &order_api.Handler{OrderService: orderService, Logger: log}
	productHandler := &product_api.Handler{ProductService: productService, Logger: log}
	promotionHandler := &promotion_api.Handler{PromotionService: promotionService, Logger: log}

	log.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	r.Route("/api", func(r chi.Router) {
		// --- Public catalogue ---
		r.Get("/products", productHandler.List)
		r.Get("/products/{productId}", productHandler.Get)
		r.Get("/promotions", promotionHandler.List)
		r.Get("/promotions/{promotionId}", promotionHandler.Get)
		r.Get("/promotion-types", promotionHandler.ListTypes)
		r.Get("/promotion-types/{typeId}", promotionHandler.GetType)

		// --- Cart and checkout: JWT optional, anonymous carts use the
		// bearer token echoed back in X-Cart-Token ---
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalMiddleware(cfg.Auth.JWTSecret))

			r.Route("/cart", func(r chi.Router) {
				r.Get("/", cartHandler.GetCart)
				r.Post("/items", cartHandler.AddItem)
				r.Put("/items/{itemId}", cartHandler.UpdateItem)
				r.Delete("/items/{itemId}", cartHandler.RemoveItem)
			})

			r.Post("/checkout", orderHandler.Checkout)

			r.Route("/orders/{orderId}", func(r chi.Router) {
				r.Get("/", orderHandler.GetOrder)
				r.Post("/slip", orderHandler.UploadSlip)
				r.Get("/qr-payments", orderHandler.QRPayments)
				r.Post("/cancel", orderHandler.Cancel)
				// Role checks live in the service; vendors and admins
				// reach this with their JWT through the optional group.
				r.Patch("/status", orderHandler.UpdateStatus)
			})
		})

		// --- Signed-in surface ---
		r.Group(func(r chi.Router) {
			r.Use(auth.Middleware(cfg.Auth.JWTSecret))

			r.Get("/orders", orderHandler.ListMine)

			r.Route("/vendor", func(r chi.Router) {
				r.Get("/orders", orderHandler.ListVendorOrders)
				r.Get("/products", productHandler.ListMine)
			})

			r.Post("/products", productHandler.Create)
			r.Put("/products/{productId}", productHandler.Update)
			r.Delete("/products/{productId}", productHandler.Delete)

			r.Post("/promotions", promotionHandler.Create)
			r.Put("/promotions/{promotionId}", promotionHandler.Update)
			r.Delete("/promotions/{promotionId}", promotionHandler.Delete)
			r.Post("/promotion-types", promotionHandler.CreateType)
			r.Put("/promotion-types/{typeId}", promotionHandler.UpdateType)
			r.Delete("/promotion-types/{typeId}", promotionHandler.DeleteType)

			r.Get("/admin/orders", orderHandler.ListAllOrders)
			r.Get("/admin/carts", cartHandler.ListAllCarts)
		})
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("HTTP", "mango-store running on "+cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	log.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	log.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Error("HTTP", fmt.Sprintf("Server shutdown failed: %v", err))
	} else {
		log.Info("HTTP", "mango-store shutdown complete")
	}
}
