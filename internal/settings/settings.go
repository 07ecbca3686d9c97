package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/cache"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/samber/lo"
)

// Well known system setting keys.
const (
	KeyPortalSecured     = "PORTAL_SECURED"
	KeyBranding          = "BRANDING"
	KeyDemoMode          = "DEMO_MODE"
	KeyHasSetup          = "has_setup"
	KeyShowWidgetHeaders = "SHOW_WIDGET_HEADERS"
)

// DefaultBrandingTitle is shown when no branding has been configured.
const DefaultBrandingTitle = "Portal"

// Branding is the value stored under KeyBranding.
type Branding struct {
	Title string `json:"title"`
}

// Reader reads raw setting values. A missing key is reported with ok=false.
type Reader interface {
	GetRaw(ctx context.Context, key string, skipCache bool) (value json.RawMessage, ok bool, err error)
}

// Writer persists and removes setting values.
type Writer interface {
	Set(ctx context.Context, key string, value any) error
	Remove(ctx context.Context, keys ...string) error
}

// ReadWriter is the full setting surface, also handed to plugins.
type ReadWriter interface {
	Reader
	Writer
}

var (
	_ ReadWriter = (*Store)(nil)
	_ ReadWriter = (*PluginStore)(nil)
)

// Store is the system setting store. Reads go through the cache when one is
// configured, writes update the database first and then the cache.
//
// The cache is local to the process. Replicas sharing a database only see
// each others writes once their cached entry expires or is flushed.
type Store struct {
	db    database.DB
	cache *cache.SettingsCache
}

// New creates a setting store. A nil cache disables caching.
func New(db database.DB, c *cache.SettingsCache) *Store {
	return &Store{db: db, cache: c}
}

// GetRaw returns the stored JSON value of key.
func (s *Store) GetRaw(ctx context.Context, key string, skipCache bool) (json.RawMessage, bool, error) {
	if s.cache != nil && !skipCache {
		if value, err := s.cache.Get(ctx, key); err == nil {
			return value, true, nil
		}
	}

	value, err := s.db.GetSetting(ctx, key)
	if errors.Is(err, database.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}

	s.cacheSet(ctx, key, value)
	return value, true, nil
}

// Set stores value under key. The value must be JSON serialisable.
func (s *Store) Set(ctx context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode setting %s: %w", key, err)
	}
	if err := s.db.UpsertSetting(ctx, key, data); err != nil {
		return fmt.Errorf("failed to write setting %s: %w", key, err)
	}
	s.cacheSet(ctx, key, data)
	return nil
}

// Remove deletes the given keys. Missing keys are ignored.
func (s *Store) Remove(ctx context.Context, keys ...string) error {
	if err := s.db.DeleteSettings(ctx, keys...); err != nil {
		return fmt.Errorf("failed to remove settings: %w", err)
	}
	if s.cache != nil {
		for _, key := range keys {
			if err := s.cache.Delete(ctx, key); err != nil {
				log.Debug("failed to evict cached setting", "key", key, "error", err)
			}
		}
	}
	return nil
}

// FlushCache drops every cached value.
func (s *Store) FlushCache(ctx context.Context) {
	if s.cache != nil {
		s.cache.ClearAll(ctx)
	}
}

// Cache returns the backing cache, nil when caching is disabled.
func (s *Store) Cache() *cache.SettingsCache {
	return s.cache
}

func (s *Store) cacheSet(ctx context.Context, key string, value json.RawMessage) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, value); err != nil {
		log.Warn("failed to cache setting", "key", key, "error", err)
		// never leave a stale value behind
		_ = s.cache.Delete(ctx, key)
	}
}

// Get decodes the value of key into T, returning def when the key is not set.
func Get[T any](ctx context.Context, r Reader, key string, def T) (T, error) {
	return get(ctx, r, key, def, false)
}

// GetUncached is Get bypassing the cache.
func GetUncached[T any](ctx context.Context, r Reader, key string, def T) (T, error) {
	return get(ctx, r, key, def, true)
}

func get[T any](ctx context.Context, r Reader, key string, def T, skipCache bool) (T, error) {
	raw, ok, err := r.GetRaw(ctx, key, skipCache)
	if err != nil {
		return def, err
	}
	if !ok {
		return def, nil
	}
	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return def, fmt.Errorf("failed to decode setting %s: %w", key, err)
	}
	return value, nil
}

// Flag reads a boolean setting, treating errors as false.
func Flag(ctx context.Context, r Reader, key string) bool {
	value, err := Get(ctx, r, key, false)
	if err != nil {
		log.Error("failed to read flag", "key", key, "error", err)
		return false
	}
	return value
}

// PortalSecured reports whether anonymous access to the portal is denied.
func (s *Store) PortalSecured(ctx context.Context) bool {
	return Flag(ctx, s, KeyPortalSecured)
}

// HasSetup reports whether the install wizard has completed.
func (s *Store) HasSetup(ctx context.Context) bool {
	return Flag(ctx, s, KeyHasSetup)
}

func (s *Store) DemoMode(ctx context.Context) bool {
	return Flag(ctx, s, KeyDemoMode)
}

func (s *Store) ShowWidgetHeaders(ctx context.Context) bool {
	return Flag(ctx, s, KeyShowWidgetHeaders)
}

// Branding returns the configured branding with defaults applied.
func (s *Store) Branding(ctx context.Context) Branding {
	branding, err := Get(ctx, s, KeyBranding, Branding{})
	if err != nil {
		log.Error("failed to read branding", "error", err)
	}
	if strings.TrimSpace(branding.Title) == "" {
		branding.Title = DefaultBrandingTitle
	}
	return branding
}

// PluginKey namespaces key for the named plugin.
func PluginKey(plugin, key string) string {
	return PluginPrefix(plugin) + key
}

// PluginPrefix is the key prefix shared by every setting of a plugin.
func PluginPrefix(plugin string) string {
	return "plugin__" + plugin + "_"
}

// PluginStore is a Store restricted to the keys of one plugin.
type PluginStore struct {
	store  *Store
	plugin string
}

// ForPlugin returns the settings view of the named plugin.
func (s *Store) ForPlugin(plugin string) *PluginStore {
	return &PluginStore{store: s, plugin: plugin}
}

func (p *PluginStore) GetRaw(ctx context.Context, key string, skipCache bool) (json.RawMessage, bool, error) {
	return p.store.GetRaw(ctx, PluginKey(p.plugin, key), skipCache)
}

func (p *PluginStore) Set(ctx context.Context, key string, value any) error {
	return p.store.Set(ctx, PluginKey(p.plugin, key), value)
}

func (p *PluginStore) Remove(ctx context.Context, keys ...string) error {
	return p.store.Remove(ctx, lo.Map(keys, func(k string, _ int) string { return PluginKey(p.plugin, k) })...)
}

// PurgePlugin removes every setting of plugin. Keys belonging to other known
// plugins whose names extend plugin (core and core_extras) are left alone.
func (s *Store) PurgePlugin(ctx context.Context, plugin string, known []string) (int, error) {
	prefix := PluginPrefix(plugin)
	keys, err := s.db.ListSettingKeys(ctx, prefix)
	if err != nil {
		return 0, err
	}

	shadowing := lo.FilterMap(known, func(name string, _ int) (string, bool) {
		other := PluginPrefix(name)
		return other, name != plugin && strings.HasPrefix(other, prefix)
	})
	keys = lo.Reject(keys, func(key string, _ int) bool {
		return lo.SomeBy(shadowing, func(other string) bool { return strings.HasPrefix(key, other) })
	})
	if len(keys) == 0 {
		return 0, nil
	}
	if err := s.Remove(ctx, keys...); err != nil {
		return 0, err
	}
	return len(keys), nil
}
