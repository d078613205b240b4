package settings

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/priointimate/PrioBusiness/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Refresh reloads all settings from the database into the in-memory snapshot.
// It must run at startup and after every write.
func Refresh(ctx context.Context, db *gorm.DB) error {
	if db == nil {
		return errors.New("settings: nil db")
	}

	var rows []models.Setting
	if errFind := db.WithContext(ctx).
		Select("key", "value", "updated_at").
		Order("key ASC").
		Find(&rows).Error; errFind != nil {
		return errFind
	}

	values := make(map[string]json.RawMessage, len(rows))
	var newest time.Time
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" {
			continue
		}
		values[key] = row.Value
		if row.UpdatedAt.After(newest) {
			newest = row.UpdatedAt
		}
	}
	Store(newest, values)
	return nil
}

// Save upserts the given values and refreshes the snapshot.
func Save(ctx context.Context, db *gorm.DB, values map[string]json.RawMessage) error {
	if db == nil {
		return errors.New("settings: nil db")
	}
	if len(values) == 0 {
		return nil
	}
	now := time.Now().UTC()
	rows := make([]models.Setting, 0, len(values))
	for key, value := range values {
		if !json.Valid(value) {
			return errors.New("settings: invalid json for " + key)
		}
		rows = append(rows, models.Setting{Key: key, Value: value, UpdatedAt: now})
	}
	errSave := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if errSave != nil {
		return errSave
	}
	return Refresh(ctx, db)
}
