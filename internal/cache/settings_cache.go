package cache

import (
	"context"
	"encoding/json"

	"github.com/charmbracelet/log"
	"github.com/eko/gocache/lib/v4/codec"
	"github.com/enchant97/web-portal/internal/config"
)

// Cache key prefixes.
const (
	SystemSettingsCachePrefix = "system-setting-"
)

// SettingsCache holds the raw JSON values of system settings.
type SettingsCache struct {
	*PrefixedCache[json.RawMessage]
}

// NewSettingsCache creates the settings cache for the configured store type.
func NewSettingsCache(cfg *config.SettingsCacheConfig) (*SettingsCache, error) {
	instance, err := newCacheInstanceByType(cfg)
	if err != nil {
		return nil, err
	}
	log.Debug("settings cache initialised", "type", cfg.Type, "ttl", cfg.TTL)
	return &SettingsCache{
		PrefixedCache: NewPrefixedCache[json.RawMessage](instance, cfg.Type, SystemSettingsCachePrefix),
	}, nil
}

// ClearAll drops every cached setting.
func (s *SettingsCache) ClearAll(ctx context.Context) {
	if err := s.Clear(ctx); err != nil {
		log.Errorf("failed to clear cache: %v", err)
	}
}

// Stats pairs cache statistics with a display name.
type Stats struct {
	*codec.Stats
	CacheName string `json:"cacheName"`
}

// GetStats returns the statistics of every cache.
func (s *SettingsCache) GetStats() []*Stats {
	return []*Stats{
		{
			Stats:     s.PrefixedCache.GetStats(),
			CacheName: "system-settings",
		},
	}
}
