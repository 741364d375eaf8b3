package logsink

import (
	"context"
	"os"
	"time"

	"github.com/pkg/errors"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ijonas/omikuji/internal/logger"
)

// PostgresSink is a gorm/postgres-backed Sink.
type PostgresSink struct {
	db *gorm.DB
}

// Open connects to dsn and runs pending migrations, unless SKIP_MIGRATIONS is
// set (spec.md §4.7 step 4).
func Open(dsn string) (*PostgresSink, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, errors.Wrap(err, "opening postgres connection")
	}

	if os.Getenv("SKIP_MIGRATIONS") == "" {
		if err := Migrate(db); err != nil {
			return nil, errors.Wrap(err, "running migrations")
		}
	} else {
		logger.Infof("SKIP_MIGRATIONS set, not running logsink migrations")
	}

	return &PostgresSink{db: db}, nil
}

func (s *PostgresSink) SaveFeedLog(ctx context.Context, row FeedLog) error {
	row.CreatedAt = time.Now()
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *PostgresSink) SaveTransactionLog(ctx context.Context, row TransactionLog) error {
	row.CreatedAt = time.Now()
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *PostgresSink) DeleteFeedLogsOlderThan(ctx context.Context, feedName, networkName string, retentionDays uint32) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -int(retentionDays))
	result := s.db.WithContext(ctx).
		Where("feed_name = ? AND network_name = ? AND created_at < ?", feedName, networkName, cutoff).
		Delete(&FeedLog{})
	return result.RowsAffected, result.Error
}

func (s *PostgresSink) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
