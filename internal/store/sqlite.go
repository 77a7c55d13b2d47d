package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	tt "github.com/gnolang/revxslt/internal/types"
)

type recordRow struct {
	ID          uint   `gorm:"primaryKey"`
	Source      string `gorm:"index"`
	Template    string `gorm:"index"`
	Status      string
	Bindings    string
	Error       string
	Duration    int64
	ExtractedAt time.Time
}

func (recordRow) TableName() string { return "extraction" }

func toRow(r tt.Record) (recordRow, error) {
	bindings, err := encodeBindings(r.Bindings)
	if err != nil {
		return recordRow{}, err
	}
	return recordRow{
		Source:      r.Source,
		Template:    r.Template,
		Status:      string(r.Status),
		Bindings:    bindings,
		Error:       r.Error,
		Duration:    int64(r.Duration),
		ExtractedAt: r.ExtractedAt,
	}, nil
}

func (row recordRow) record() (tt.Record, error) {
	bindings, err := decodeBindings(row.Bindings)
	if err != nil {
		return tt.Record{}, err
	}
	return tt.Record{
		Source:      row.Source,
		Template:    row.Template,
		Status:      tt.Status(row.Status),
		Bindings:    bindings,
		Error:       row.Error,
		Duration:    time.Duration(row.Duration),
		ExtractedAt: row.ExtractedAt,
	}, nil
}

// SQLite keeps every extraction in the "extraction" table.
type SQLite struct {
	db *gorm.DB
}

func OpenSQLite(path string) (*SQLite, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, fmt.Errorf("failed to migrate %s: %w", path, err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Save(ctx context.Context, r tt.Record) error {
	row, err := toRow(r)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func (s *SQLite) Load(ctx context.Context, source string) (tt.Record, error) {
	var row recordRow
	err := s.db.WithContext(ctx).
		Where("`source` = ?", source).
		Order("id desc").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return tt.Record{}, ErrNotFound
	}
	if err != nil {
		return tt.Record{}, fmt.Errorf("failed to load record: %w", err)
	}
	return row.record()
}

func (s *SQLite) List(ctx context.Context, template string) ([]tt.Record, error) {
	db := s.db.WithContext(ctx)

	latest := db.Model(&recordRow{}).Select("MAX(id)").Group("source")
	if template != "" {
		latest = latest.Where("`template` = ?", template)
	}

	var rows []recordRow
	if err := db.Where("id IN (?)", latest).Order("source").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list records: %w", err)
	}

	records := make([]tt.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

// History returns every stored extraction of source, oldest first.
func (s *SQLite) History(ctx context.Context, source string) ([]tt.Record, error) {
	var rows []recordRow
	if err := s.db.WithContext(ctx).Where("`source` = ?", source).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	records := make([]tt.Record, 0, len(rows))
	for _, row := range rows {
		r, err := row.record()
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, nil
}

func (s *SQLite) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
