// Package sql implements pkg/lockstore.Backend on top of GORM, supporting
// SQLite (single node) and PostgreSQL (HA) via the same code path. The
// conditional update and delete operations are GORM Updates/Delete calls
// gated by a WHERE clause and checked against RowsAffected; the conditional
// create is a plain insert whose primary-key collision error is mapped to
// ErrConditionalCheckFailed.
package sql

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/condlock/condlock/pkg/lockstore"
)

// Backend implements lockstore.Backend against a GORM-managed SQL database.
type Backend struct {
	db         *gorm.DB
	descriptor *lockstore.TableDescriptor
}

// New opens (and migrates) the configured database and returns a
// GORM-backed Backend. descriptor controls only the TTL attribute's
// presence and duration — table/column names follow the fixed migrated
// schema (see pkg/lockstore/sql/migrations).
func New(config *Config, descriptor *lockstore.TableDescriptor) (*Backend, error) {
	if config == nil {
		config = &Config{}
	}
	config.ApplyDefaults()
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("sql: invalid configuration: %w", err)
	}
	if descriptor == nil {
		descriptor = lockstore.DefaultTableDescriptor()
	}

	var dialector gorm.Dialector
	switch config.Type {
	case DatabaseTypeSQLite:
		if err := os.MkdirAll(filepath.Dir(config.SQLite.Path), 0755); err != nil {
			return nil, fmt.Errorf("sql: create database directory: %w", err)
		}
		dsn := config.SQLite.Path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		dialector = sqlite.Open(dsn)
	case DatabaseTypePostgres:
		dialector = postgres.Open(config.Postgres.DSN())
	default:
		return nil, fmt.Errorf("sql: unsupported database type: %s", config.Type)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sql: connect: %w", err)
	}

	switch config.Type {
	case DatabaseTypePostgres:
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sql: underlying db handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(config.Postgres.MaxOpenConns)
		sqlDB.SetMaxIdleConns(config.Postgres.MaxIdleConns)

		if err := runPostgresMigrations(config.Postgres.DSN()); err != nil {
			return nil, err
		}
	case DatabaseTypeSQLite:
		if err := db.AutoMigrate(&lockRow{}); err != nil {
			return nil, fmt.Errorf("sql: auto-migrate: %w", err)
		}
	}

	return &Backend{db: db, descriptor: descriptor}, nil
}

func (b *Backend) recordToRow(rec lockstore.Record) lockRow {
	row := lockRow{
		LockGroup:            rec.Group,
		LockID:               rec.ID,
		OwnerName:            rec.OwnerName,
		RecordVersionNumber:  rec.RecordVersionNumber,
		LastUpdatedTimeInMs:  rec.LastUpdatedTimeInMs,
		LeaseDurationInMs:    rec.LeaseDurationInMs,
		AdditionalAttributes: jsonMap(rec.AdditionalAttributes),
	}
	if b.descriptor.TTLEnabled() {
		ttl := b.descriptor.TTLValue(rec.LastUpdatedTimeInMs)
		row.TTLAt = &ttl
	}
	return row
}

func rowToRecord(row lockRow) *lockstore.Record {
	return &lockstore.Record{
		Group:                row.LockGroup,
		ID:                   row.LockID,
		OwnerName:            row.OwnerName,
		RecordVersionNumber:  row.RecordVersionNumber,
		LastUpdatedTimeInMs:  row.LastUpdatedTimeInMs,
		LeaseDurationInMs:    row.LeaseDurationInMs,
		AdditionalAttributes: map[string]any(row.AdditionalAttributes),
	}
}

// isUniqueConstraintError checks for a primary-key collision across
// SQLite and PostgreSQL error message formats.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}

// GetLockByGroupAndID reads the row by primary key.
func (b *Backend) GetLockByGroupAndID(ctx context.Context, group, id string) (*lockstore.Record, error) {
	var row lockRow
	err := b.db.WithContext(ctx).
		Where("lock_group = ? AND lock_id = ?", group, id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sql: get lock: %w", err)
	}
	return rowToRecord(row), nil
}

// CreateNewLock inserts a new row; a primary-key collision maps to
// ErrConditionalCheckFailed (the "attribute_not_exists" predicate's SQL
// equivalent).
func (b *Backend) CreateNewLock(ctx context.Context, rec lockstore.Record) error {
	row := b.recordToRow(rec)
	err := b.db.WithContext(ctx).Create(&row).Error
	if err == nil {
		return nil
	}
	if isUniqueConstraintError(err) {
		return lockstore.ErrConditionalCheckFailed
	}
	return fmt.Errorf("sql: create lock: %w", err)
}

// UpdateRecordVersionNumberAndTime performs the renewal as a single
// conditional UPDATE, using RowsAffected as the conditional-write check.
func (b *Backend) UpdateRecordVersionNumberAndTime(ctx context.Context, group, id, oldVersion, owner, newVersion string, whenMs int64) error {
	result := b.db.WithContext(ctx).Model(&lockRow{}).
		Where("lock_group = ? AND lock_id = ? AND record_version_number = ? AND owner_name = ?",
			group, id, oldVersion, owner).
		Updates(map[string]any{
			"record_version_number": newVersion,
			"last_updated_time_ms":  whenMs,
		})
	if result.Error != nil {
		return fmt.Errorf("sql: renew lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return lockstore.ErrConditionalCheckFailed
	}
	return nil
}

// UpdateLockWithNewLockContent replaces the mutable columns of the row
// gated only on the prior version (cross-owner by design).
func (b *Backend) UpdateLockWithNewLockContent(ctx context.Context, existingVersion string, rec lockstore.Record) error {
	row := b.recordToRow(rec)
	result := b.db.WithContext(ctx).Model(&lockRow{}).
		Where("lock_group = ? AND lock_id = ? AND record_version_number = ?",
			rec.Group, rec.ID, existingVersion).
		Updates(map[string]any{
			"owner_name":            row.OwnerName,
			"record_version_number": row.RecordVersionNumber,
			"last_updated_time_ms":  row.LastUpdatedTimeInMs,
			"lease_duration_ms":     row.LeaseDurationInMs,
			"additional_attributes": row.AdditionalAttributes,
			"ttl_at":                row.TTLAt,
		})
	if result.Error != nil {
		return fmt.Errorf("sql: steal lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return lockstore.ErrConditionalCheckFailed
	}
	return nil
}

// ReapExpired unconditionally deletes every row whose ttl_at has passed.
// It is pure hygiene, never consulted by the conditional-write predicates
// above: a row surviving past its ttl_at is still a valid, held lock as
// far as CreateNewLock/UpdateRecordVersionNumberAndTime/DeleteLock are
// concerned. Returns the number of rows removed. A no-op if the
// descriptor has no TTL configured (ttl_at is NULL on every row).
func (b *Backend) ReapExpired(ctx context.Context, nowMs int64) (int64, error) {
	if !b.descriptor.TTLEnabled() {
		return 0, nil
	}
	result := b.db.WithContext(ctx).
		Where("ttl_at IS NOT NULL AND ttl_at < ?", nowMs).
		Delete(&lockRow{})
	if result.Error != nil {
		return 0, fmt.Errorf("sql: reap expired locks: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Close drains and closes the underlying connection pool.
func (b *Backend) Close() error {
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("sql: close: %w", err)
	}
	return sqlDB.Close()
}

// DeleteLock removes the row gated on version and owner.
func (b *Backend) DeleteLock(ctx context.Context, group, id, version, owner string) error {
	result := b.db.WithContext(ctx).
		Where("lock_group = ? AND lock_id = ? AND record_version_number = ? AND owner_name = ?",
			group, id, version, owner).
		Delete(&lockRow{})
	if result.Error != nil {
		return fmt.Errorf("sql: delete lock: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return lockstore.ErrConditionalCheckFailed
	}
	return nil
}
