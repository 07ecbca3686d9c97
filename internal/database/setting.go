package database

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/samber/lo"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// key is a reserved word in mysql, so conditions go through clause
// expressions which quote the column name.
var settingKeyColumn = clause.Column{Name: "key"}

// GetSetting returns the raw JSON value stored for key.
func (c *Client) GetSetting(ctx context.Context, key string) (json.RawMessage, error) {
	var setting SystemSetting
	if err := c.db.WithContext(ctx).Where(clause.Eq{Column: settingKeyColumn, Value: key}).First(&setting).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Error("failed to get system setting", "key", key, "error", err)
		}
		return nil, err
	}
	return json.RawMessage(setting.Value), nil
}

// UpsertSetting inserts or overwrites the value stored for key.
func (c *Client) UpsertSetting(ctx context.Context, key string, value json.RawMessage) error {
	setting := SystemSetting{Key: key, Value: datatypes.JSON(value)}
	err := c.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{settingKeyColumn},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&setting).Error
	if err != nil {
		log.Error("failed to set system setting", "key", key, "error", err)
		return err
	}
	return nil
}

// DeleteSettings removes the given keys. Missing keys are ignored.
func (c *Client) DeleteSettings(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	values := lo.Map(keys, func(k string, _ int) any { return k })
	if err := c.db.WithContext(ctx).Where(clause.IN{Column: settingKeyColumn, Values: values}).Delete(&SystemSetting{}).Error; err != nil {
		log.Error("failed to remove system settings", "keys", keys, "error", err)
		return err
	}
	return nil
}

// ListSettingKeys returns every stored key starting with prefix.
func (c *Client) ListSettingKeys(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	// LIKE treats _ as a wildcard, the result is narrowed down below
	if err := c.db.WithContext(ctx).Model(&SystemSetting{}).
		Where(clause.Like{Column: settingKeyColumn, Value: prefix + "%"}).
		Order(clause.OrderByColumn{Column: settingKeyColumn}).
		Pluck("key", &keys).Error; err != nil {
		log.Error("failed to list system settings", "prefix", prefix, "error", err)
		return nil, err
	}
	return lo.Filter(keys, func(k string, _ int) bool { return strings.HasPrefix(k, prefix) }), nil
}
