package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/auth"
	"github.com/enchant97/web-portal/internal/database"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/enchant97/web-portal/internal/settings"
)

// CorePluginName is the bundled plugin that owns links.
const CorePluginName = "core"

type demoAccount struct {
	username string
	password string
	isAdmin  bool
}

var demoAccounts = []demoAccount{
	{username: "admin", password: "admin", isAdmin: true},
	{username: "demo", password: "demo"},
}

// DemoInstall sets the portal up with demo accounts and data in a single
// transaction. Nothing is written when any step fails.
func (s *Service) DemoInstall(ctx context.Context) error {
	err := s.db.Transaction(ctx, func(tx database.DB) error {
		for _, acc := range demoAccounts {
			hash, err := auth.HashPassword(acc.password)
			if err != nil {
				return err
			}
			if _, err := tx.CreateUser(ctx, acc.username, hash, acc.isAdmin); err != nil {
				return fmt.Errorf("failed to create demo user %s: %w", acc.username, err)
			}
		}

		store := settings.New(tx, nil)
		for _, key := range []string{settings.KeyPortalSecured, settings.KeyHasSetup, settings.KeyDemoMode} {
			if err := store.Set(ctx, key, true); err != nil {
				return err
			}
		}

		for _, p := range s.registry.All() {
			if p.Meta.DemoSetup == nil {
				continue
			}
			if err := p.Meta.DemoSetup(ctx, tx.Gorm().WithContext(ctx)); err != nil {
				return fmt.Errorf("demo setup of plugin %s failed: %w", p.Name, err)
			}
			log.Debug("ran plugin demo setup", "plugin", p.Name)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// the transaction bypassed the cache
	s.settings.FlushCache(ctx)
	log.Info("demo install completed")
	return nil
}

// ErrInvalidLegacyEntry is returned for V1 entries exceeding the V1 field limits.
var ErrInvalidLegacyEntry = errors.New("invalid legacy entry")

// DecodeLegacy decodes and validates a V1 widget export.
func DecodeLegacy(r io.Reader) ([]plugin.LegacyEntry, error) {
	var entries []plugin.LegacyEntry
	if err := json.NewDecoder(r).Decode(&entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidLegacyEntry, err)
	}
	for i, e := range entries {
		limits := []struct {
			field string
			value string
			max   int
		}{
			{"url", e.URL, 255},
			{"prefix", e.Prefix, 128},
			{"color_name", e.ColorName, 40},
			{"group_prefix", e.GroupPrefix, 128},
		}
		for _, l := range limits {
			if utf8.RuneCountInString(l.value) > l.max {
				return nil, fmt.Errorf("%w: entry %d: %s longer than %d characters", ErrInvalidLegacyEntry, i, l.field, l.max)
			}
		}
	}
	return entries, nil
}

// ImportLegacy reads a V1 widget export and hands the entries to the core
// plugin. It returns the number of imported entries.
func (s *Service) ImportLegacy(ctx context.Context, r io.Reader) (int, error) {
	core, ok := s.registry.Get(CorePluginName)
	if !ok || core.Meta.ImportLegacy == nil {
		return 0, fmt.Errorf("%w: %s", ErrRequiredPluginAbsent, CorePluginName)
	}

	entries, err := DecodeLegacy(r)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	var imported int
	err = s.db.Transaction(ctx, func(tx database.DB) error {
		imported, err = core.Meta.ImportLegacy(ctx, tx.Gorm().WithContext(ctx), entries)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("failed to import legacy widgets: %w", err)
	}
	log.Info("imported legacy entries", "count", imported, "entries", len(entries))
	return imported, nil
}
