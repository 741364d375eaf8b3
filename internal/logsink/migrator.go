package logsink

import (
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

type schemaMigration struct {
	ID        string `gorm:"primaryKey;column:id"`
	AppliedAt int64  `gorm:"column:applied_at"`
}

func (schemaMigration) TableName() string { return "schema_migrations" }

// Migrate applies every registered migration not yet recorded in
// schema_migrations, in registration order. It is safe to call on every
// startup (spec.md §4.7 step 4: "open it and run migrations").
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schemaMigration{}); err != nil {
		return errors.Wrap(err, "creating schema_migrations table")
	}

	var applied []schemaMigration
	if err := db.Find(&applied).Error; err != nil {
		return errors.Wrap(err, "reading applied migrations")
	}
	done := make(map[string]bool, len(applied))
	for _, m := range applied {
		done[m.ID] = true
	}

	for _, m := range Migrations {
		if done[m.ID] {
			continue
		}
		if err := db.Transaction(func(tx *gorm.DB) error {
			if err := m.Migrate(tx); err != nil {
				return errors.Wrapf(err, "applying migration %s", m.ID)
			}
			return tx.Create(&schemaMigration{ID: m.ID, AppliedAt: time.Now().Unix()}).Error
		}); err != nil {
			return err
		}
	}
	return nil
}
