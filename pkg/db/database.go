package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrEmptyDSN = errors.New("db: DATABASE_URL is empty")

type Pool struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

func DefaultPool() Pool {
	return Pool{
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
	}
}

type Option func(*options)

type options struct {
	pool     Pool
	logLevel logger.LogLevel
}

func WithPool(p Pool) Option {
	return func(o *options) { o.pool = p }
}

// WithSQLLog turns on gorm's statement log, e.g. for LOG_LEVEL=debug.
func WithSQLLog() Option {
	return func(o *options) { o.logLevel = logger.Info }
}

// Open connects to postgres and pings it within three seconds.
// TranslateError maps unique violations to gorm.ErrDuplicatedKey.
func Open(ctx context.Context, dsn string, opts ...Option) (*gorm.DB, error) {
	if dsn == "" {
		return nil, ErrEmptyDSN
	}
	o := options{pool: DefaultPool(), logLevel: logger.Warn}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		PrepareStmt:    true,
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
		Logger:         logger.Default.LogMode(o.logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("db: open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db: sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(o.pool.MaxOpenConns)
	sqlDB.SetMaxIdleConns(o.pool.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(o.pool.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(o.pool.ConnMaxIdleTime)

	if err := Ping(ctx, db, 3*time.Second); err != nil {
		return nil, err
	}
	return db, nil
}

func Ping(ctx context.Context, db *gorm.DB, timeout time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: sql handle: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("db: ping: %w", err)
	}
	return nil
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
