package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Migrate creates or updates table so it matches model.
func Migrate(db *gorm.DB, table string, model any) error {
	if err := db.Table(table).AutoMigrate(model); err != nil {
		return fmt.Errorf("migrate %s: %w", table, err)
	}
	return nil
}
