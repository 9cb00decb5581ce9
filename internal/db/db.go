package db

import (
	"fmt"
	"strings"

	"groupfinder/internal/models"

	"github.com/glebarez/sqlite"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to DATABASE_URL. "postgres://" URLs use the Postgres driver,
// "sqlite://path" uses the pure-Go SQLite driver.
func Open(databaseURL string, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		dialector = postgres.Open(databaseURL)
		log.Info("connecting to PostgreSQL")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		dsn := strings.TrimPrefix(databaseURL, "sqlite://")
		dialector = sqlite.Open(dsn)
		log.Info("connecting to SQLite", zap.String("path", dsn))
	default:
		return nil, fmt.Errorf("unsupported DATABASE_URL %q: must start with postgres:// or sqlite://", databaseURL)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)

	log.Info("database connection established")
	return gdb, nil
}

// Migrate creates or updates every table the application uses.
func Migrate(gdb *gorm.DB) error {
	return gdb.AutoMigrate(
		&models.User{},
		&models.Category{},
		&models.Tag{},
		&models.Group{},
		&models.Vote{},
		&models.Review{},
		&models.VerificationLog{},
		&models.ReputationHistory{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Report{},
		&models.SavedGroup{},
		&models.Notification{},
	)
}

// Seed inserts the default categories and badges on an empty database.
func Seed(gdb *gorm.DB, log *zap.Logger) {
	seedCategories(gdb, log)
	seedBadges(gdb, log)
}

func seedCategories(gdb *gorm.DB, log *zap.Logger) {
	var count int64
	gdb.Model(&models.Category{}).Count(&count)
	if count > 0 {
		return
	}

	categories := []models.Category{
		{Name: "General", Slug: "general", Description: "Groups that do not fit anywhere else"},
		{Name: "Technology", Slug: "technology", Description: "Programming, gadgets and IT"},
		{Name: "Buy & Sell", Slug: "buy-sell", Description: "Local marketplaces and swaps"},
		{Name: "Hobbies", Slug: "hobbies", Description: "Crafts, games, sports and collecting"},
		{Name: "Parenting", Slug: "parenting", Description: "Families and parents"},
		{Name: "Travel", Slug: "travel", Description: "Trips, expats and nomads"},
	}
	for _, c := range categories {
		if err := gdb.Create(&c).Error; err != nil {
			log.Warn("failed to seed category", zap.String("name", c.Name), zap.Error(err))
		}
	}
	log.Info("default categories created")
}

func seedBadges(gdb *gorm.DB, log *zap.Logger) {
	var count int64
	gdb.Model(&models.Badge{}).Count(&count)
	if count > 0 {
		return
	}

	badges := []models.Badge{
		{Name: "First Submission", Icon: "🌱", Description: "Submitted a first group", PointValue: 10},
		{Name: "Trusted Reviewer", Icon: "⭐", Description: "Wrote helpful reviews", PointValue: 50},
		{Name: "Watchdog", Icon: "🛡️", Description: "Reported groups that were later removed", PointValue: 25},
		{Name: "Founding Member", Icon: "🏆", Description: "Joined during the beta", PointValue: 0},
	}
	for _, b := range badges {
		if err := gdb.Create(&b).Error; err != nil {
			log.Warn("failed to seed badge", zap.String("name", b.Name), zap.Error(err))
		}
	}
	log.Info("default badges created")
}
