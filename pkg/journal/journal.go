// Package journal records accepted status reports and reminder
// acknowledgments in a SQLite file.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Report is one accepted status report.
type Report struct {
	ID         string
	Machine    string
	Previous   string
	Status     string
	UserID     int64
	ReportedAt time.Time
}

// Reminder is the last reminder a user confirmed. Nothing fires it; it
// is kept as a record of the acknowledgment.
type Reminder struct {
	UserID    int64
	ChatID    int64
	Frequency string
	Day       int
	Time      string
	CreatedAt time.Time
}

// Times are stored as Unix nanoseconds so ordering in SQL is numeric.
type reportRow struct {
	ID         string `gorm:"primaryKey"`
	Machine    string `gorm:"not null;index:status_reports_machine,priority:1"`
	Previous   string `gorm:"not null"`
	Status     string `gorm:"not null"`
	UserID     int64  `gorm:"not null"`
	ReportedAt int64  `gorm:"not null;index:status_reports_machine,priority:2"`
}

func (reportRow) TableName() string { return "status_reports" }

type reminderRow struct {
	UserID    int64  `gorm:"primaryKey;autoIncrement:false"`
	ChatID    int64  `gorm:"not null"`
	Frequency string `gorm:"not null"`
	Day       int    `gorm:"not null"`
	At        string `gorm:"column:at;not null"`
	Created   int64  `gorm:"column:created_at;not null"`
}

func (reminderRow) TableName() string { return "reminders" }

// Store wraps the SQLite database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the journal at path and migrates its tables.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.New(log.New(os.Stderr, "", log.LstdFlags), logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open journal db: %w", err)
	}
	s := &Store{db: db}
	if err := db.AutoMigrate(&reportRow{}, &reminderRow{}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("migrate journal schema: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get journal connection: %w", err)
	}
	return sqlDB.Close()
}

// RecordReport appends r. A missing ID or time is filled in.
func (s *Store) RecordReport(ctx context.Context, r Report) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.ReportedAt.IsZero() {
		r.ReportedAt = time.Now()
	}
	row := reportRow{
		ID:         r.ID,
		Machine:    r.Machine,
		Previous:   r.Previous,
		Status:     r.Status,
		UserID:     r.UserID,
		ReportedAt: r.ReportedAt.UnixNano(),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("insert status report for %q: %w", r.Machine, err)
	}
	return nil
}

// RecentReports returns up to limit reports for machine, newest first.
func (s *Store) RecentReports(ctx context.Context, machine string, limit int) ([]Report, error) {
	if limit <= 0 {
		return []Report{}, nil
	}
	var rows []reportRow
	err := s.db.WithContext(ctx).
		Where("machine = ?", machine).
		Order("reported_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list status reports for %q: %w", machine, err)
	}

	out := make([]Report, 0, len(rows))
	for _, row := range rows {
		out = append(out, Report{
			ID:         row.ID,
			Machine:    row.Machine,
			Previous:   row.Previous,
			Status:     row.Status,
			UserID:     row.UserID,
			ReportedAt: time.Unix(0, row.ReportedAt).UTC(),
		})
	}
	return out, nil
}

// SaveReminder stores the reminder, replacing any earlier one of the user.
func (s *Store) SaveReminder(ctx context.Context, r Reminder) error {
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	row := reminderRow{
		UserID:    r.UserID,
		ChatID:    r.ChatID,
		Frequency: r.Frequency,
		Day:       r.Day,
		At:        r.Time,
		Created:   r.CreatedAt.UnixNano(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"chat_id", "frequency", "day", "at", "created_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save reminder for user %d: %w", r.UserID, err)
	}
	return nil
}

// GetReminder returns the stored reminder of userID, if any.
func (s *Store) GetReminder(ctx context.Context, userID int64) (Reminder, bool, error) {
	var row reminderRow
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Reminder{}, false, nil
		}
		return Reminder{}, false, fmt.Errorf("query reminder for user %d: %w", userID, err)
	}
	return Reminder{
		UserID:    row.UserID,
		ChatID:    row.ChatID,
		Frequency: row.Frequency,
		Day:       row.Day,
		Time:      row.At,
		CreatedAt: time.Unix(0, row.Created).UTC(),
	}, true, nil
}
