// Package audit persists security events. The slog trail is always on; this
// store is the optional durable sink behind it, enabled when DATABASE_URL is
// configured. Event details arrive pre-hashed from the security layer, so
// nothing here ever sees raw usernames or message bodies.
package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Event is one recorded security event.
type Event struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	Event     string    `gorm:"index;not null" json:"event"`
	Details   string    `gorm:"type:jsonb" json:"details"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName specifies the table name for Event
func (Event) TableName() string {
	return "security_events"
}

// Store is the gorm-backed event sink. It implements security.Recorder.
type Store struct {
	db     *gorm.DB
	logger *slog.Logger
}

// Open connects and migrates the events table.
func Open(databaseURL string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("failed to migrate audit schema: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// Record persists one event. Failures are logged and swallowed: the audit
// trail must never take down a validation call.
func (s *Store) Record(event string, details map[string]string) {
	payload, err := json.Marshal(details)
	if err != nil {
		payload = []byte("{}")
	}
	row := Event{Event: event, Details: string(payload)}
	if err := s.db.Create(&row).Error; err != nil {
		s.logger.Error("audit record failed", "event", event, "error", err)
	}
}

// Recent returns the newest events, newest first.
func (s *Store) Recent(limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 100
	}
	var events []Event
	err := s.db.Order("created_at DESC").Limit(limit).Find(&events).Error
	return events, err
}

// Prune deletes events older than the retention window and returns how many
// were removed.
func (s *Store) Prune(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	res := s.db.Where("created_at < ?", cutoff).Delete(&Event{})
	return res.RowsAffected, res.Error
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
