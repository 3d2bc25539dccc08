// cmd/api/main.go
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shipping-updates/storefront/internal/config"
	"github.com/shipping-updates/storefront/internal/domain/address"
	"github.com/shipping-updates/storefront/internal/domain/cart"
	"github.com/shipping-updates/storefront/internal/domain/checkout"
	"github.com/shipping-updates/storefront/internal/domain/contact"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/payment"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shipping-updates/storefront/internal/infrastructure/database/postgres"
	"github.com/shipping-updates/storefront/internal/infrastructure/database/redis"
	"github.com/shipping-updates/storefront/internal/infrastructure/messaging/kafka"
	"github.com/shipping-updates/storefront/internal/interfaces/http"
	"github.com/shipping-updates/storefront/internal/interfaces/http/handlers"
	"github.com/shipping-updates/storefront/internal/interfaces/http/routes"
	"github.com/shipping-updates/storefront/internal/pkg/auth"
	"github.com/shipping-updates/storefront/internal/pkg/email"
	"github.com/shipping-updates/storefront/internal/pkg/logger"
	"github.com/shipping-updates/storefront/internal/pkg/pdf"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := logger.WithApp(logger.New(cfg), cfg)
	log.Info("starting storefront API")

	db, err := postgres.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redis.NewConnection(cfg, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to Redis")
	}
	defer redisClient.Close()

	migration := postgres.NewMigration(db.GetDB(), log)
	if err := migration.RunAutoMigrations(); err != nil {
		log.WithError(err).Fatal("database migration failed")
	}
	if err := migration.CreateIndexes(); err != nil {
		log.WithError(err).Warn("index creation failed")
	}
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			log.WithError(err).Warn("data seeding failed")
		}
	}

	publisher := kafka.NewPublisher(cfg, log)
	defer func() {
		if err := publisher.Close(); err != nil {
			log.WithError(err).Warn("failed to close event publisher")
		}
	}()

	emailService := email.NewEmailService(cfg, log)
	razorpay := payment.NewRazorpayService(cfg, log)

	productService := product.NewService(db.GetDB())
	addressService := address.NewService(db.GetDB())
	contactService := contact.NewService(db.GetDB())
	orderService := order.NewService(db.GetDB(), cfg, publisher, emailService, log)

	cartService := cart.NewService(
		redis.NewSessionStore(redisClient.GetClient(), cart.StorageNamespace, cfg.Checkout.CartTTL),
		productService,
		log,
	)
	checkoutService := checkout.NewService(
		redis.NewSessionStore(redisClient.GetClient(), checkout.StorageNamespace, cfg.Checkout.SessionTTL),
		cartService,
		addressService,
		orderService,
		razorpay,
		cfg,
		log,
	)

	h := &routes.Handlers{
		Product:  handlers.NewProductHandler(productService),
		Cart:     handlers.NewCartHandler(cartService),
		Address:  handlers.NewAddressHandler(addressService),
		Checkout: handlers.NewCheckoutHandler(checkoutService),
		Order:    handlers.NewOrderHandler(orderService, emailService, log),
		Invoice:  handlers.NewInvoiceHandler(orderService, pdf.NewService(cfg)),
		Payment:  handlers.NewPaymentHandler(razorpay, orderService, log),
		Contact:  handlers.NewContactHandler(contactService),
	}

	checks := map[string]http.HealthChecker{
		"database": db,
		"redis":    redisClient,
	}
	server := http.NewServer(cfg, h, auth.NewJWTManager(cfg), redisClient.GetClient(), checks, log)

	go func() {
		if err := server.Start(); err != nil {
			log.WithError(err).Fatal("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down gracefully")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(ctx); err != nil {
		log.WithError(err).Error("failed to shutdown HTTP server gracefully")
	}

	log.Info("server shutdown completed")
}
