// internal/infrastructure/database/postgres/migration.go
package postgres

import (
	"fmt"

	"github.com/lib/pq"
	"github.com/shipping-updates/storefront/internal/domain/address"
	"github.com/shipping-updates/storefront/internal/domain/contact"
	"github.com/shipping-updates/storefront/internal/domain/order"
	"github.com/shipping-updates/storefront/internal/domain/product"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Migration handles database migrations
type Migration struct {
	db     *gorm.DB
	logger logrus.FieldLogger
}

// NewMigration creates a new migration instance
func NewMigration(db *gorm.DB, logger logrus.FieldLogger) *Migration {
	return &Migration{
		db:     db,
		logger: logger,
	}
}

// Models lists every table the service owns, in dependency order
func Models() []interface{} {
	return []interface{}{
		&product.Product{},
		&address.Address{},
		&order.Order{},
		&order.OrderItem{},
		&contact.Message{},
	}
}

// RunAutoMigrations runs GORM auto-migrations for all models
func (m *Migration) RunAutoMigrations() error {
	m.logger.Info("running database auto-migrations")

	for _, model := range Models() {
		m.logger.Debugf("migrating model: %T", model)
		if err := m.db.AutoMigrate(model); err != nil {
			return fmt.Errorf("failed to migrate model %T: %w", model, err)
		}
	}

	m.logger.Info("database auto-migrations completed")
	return nil
}

// CreateIndexes creates additional indexes for better performance
func (m *Migration) CreateIndexes() error {
	indexes := []string{
		// Product indexes
		"CREATE INDEX IF NOT EXISTS idx_products_type_active ON products(type, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_featured ON products(is_featured, is_active)",
		"CREATE INDEX IF NOT EXISTS idx_products_created_at ON products(created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_products_topics ON products USING GIN (topics)",

		// Address indexes
		"CREATE INDEX IF NOT EXISTS idx_addresses_owner_default ON addresses(owner_id, is_default)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_created ON orders(buyer_id, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(order_status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_razorpay_order ON orders(razorpay_order_id)",

		// Order item indexes
		"CREATE INDEX IF NOT EXISTS idx_order_items_order_product ON order_items(order_id, product_id)",

		// Contact indexes
		"CREATE INDEX IF NOT EXISTS idx_contact_messages_unread ON contact_messages(is_read, created_at DESC)",

		// Stock can never go negative
		`DO $$ BEGIN
			ALTER TABLE products ADD CONSTRAINT chk_products_stock_non_negative CHECK (stock_quantity >= 0);
		EXCEPTION WHEN duplicate_object THEN NULL; END $$`,
	}

	successCount := 0
	failCount := 0

	for _, indexSQL := range indexes {
		if err := m.db.Exec(indexSQL).Error; err != nil {
			m.logger.WithError(err).Warn("failed to create index")
			failCount++
		} else {
			successCount++
		}
	}

	m.logger.WithFields(logrus.Fields{"created": successCount, "failed": failCount}).Info("indexes created")
	return nil
}

// SeedInitialData inserts a small development catalog
func (m *Migration) SeedInitialData() error {
	if err := m.seedProducts(); err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}
	return nil
}

func (m *Migration) seedProducts() error {
	var count int64
	if err := m.db.Model(&product.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		m.logger.Debug("catalog already seeded")
		return nil
	}

	products := []product.Product{
		{
			Type:          product.TypeBook,
			Title:         "Reed's Marine Engineering and Technology",
			Description:   "Reference text for marine engineering officers preparing for competency exams.",
			Price:         decimal.RequireFromString("899.00"),
			Topics:        pq.StringArray{"marine-engineering", "exam-prep"},
			Author:        "Leslie Jackson",
			Publisher:     "Reeds",
			Edition:       "2nd",
			StockQuantity: 25,
			IsActive:      true,
			IsFeatured:    true,
		},
		{
			Type:          product.TypeBook,
			Title:         "Ship Construction",
			Description:   "Structural design and build practice of merchant ships.",
			Price:         decimal.RequireFromString("450.00"),
			Topics:        pq.StringArray{"naval-architecture"},
			Author:        "D. J. Eyres",
			Publisher:     "Butterworth-Heinemann",
			StockQuantity: 10,
			IsActive:      true,
		},
		{
			Type:        product.TypePDF,
			Title:       "MEO Class 4 Orals Question Bank",
			Description: "Collected oral examination questions with model answers.",
			Price:       decimal.RequireFromString("199.00"),
			Topics:      pq.StringArray{"exam-prep", "orals"},
			FileURL:     "https://files.shippingupdates.in/pdfs/meo-class4-orals.pdf",
			FileSize:    4 << 20,
			IsActive:    true,
		},
	}

	for i := range products {
		if err := m.db.Create(&products[i]).Error; err != nil {
			return err
		}
		m.logger.WithField("title", products[i].Title).Info("seeded product")
	}
	return nil
}
