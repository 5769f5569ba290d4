package database

import (
	"fmt"

	"github.com/go-gormigrate/gormigrate/v2"
	"gorm.io/gorm"

	"github.com/livecommerce/console/internal/logging"
)

// RunMigrations runs any pending database migrations using gormigrate
func RunMigrations(db *gorm.DB) error {
	logging.InfoWithComponent(logging.ComponentDatabase, "Running database migrations")

	m := gormigrate.New(db, gormigrate.DefaultOptions, []*gormigrate.Migration{
		{
			ID: "202610180000_create_generation_jobs",
			Migrate: func(tx *gorm.DB) error {
				return tx.AutoMigrate(GetAllModels()...)
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(&GenerationJob{})
			},
		},
		{
			ID: "202610180001_index_generation_jobs_started_at",
			Migrate: func(tx *gorm.DB) error {
				return tx.Exec("CREATE INDEX IF NOT EXISTS idx_generation_jobs_started_at ON generation_jobs (started_at)").Error
			},
			Rollback: func(tx *gorm.DB) error {
				return tx.Exec("DROP INDEX IF EXISTS idx_generation_jobs_started_at").Error
			},
		},
	})

	if err := m.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	logging.InfoWithComponent(logging.ComponentDatabase, "Database migrations completed")
	return nil
}
