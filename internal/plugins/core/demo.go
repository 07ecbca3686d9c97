package core

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/enchant97/web-portal/internal/plugin"
	"github.com/samber/lo"
	"gorm.io/gorm"
)

func demoSetup(ctx context.Context, tx *gorm.DB) error {
	links := []Link{
		{Name: "Bitwarden", ColorName: "cyan", IconName: lo.ToPtr("bitwarden")},
		{Name: "Enchanted Code", URL: "https://enchantedcode.co.uk/", ColorName: "green"},
		{Name: "Router", ColorName: "grey", IconName: lo.ToPtr("router")},
		{Name: "Self Hosted", ColorName: "white", IconName: lo.ToPtr("selfhosted")},
		{Name: "Pihole", ColorName: "red", IconName: lo.ToPtr("pihole")},
	}
	engines := []SearchEngine{
		{Name: "Google", URL: "https://google.com/search", QueryParam: "q", Method: SearchMethodGet},
		{Name: "DuckDuckGo", URL: "https://start.duckduckgo.com/", QueryParam: "q", Method: SearchMethodGet},
	}

	db := tx.WithContext(ctx)
	if err := db.Create(&links).Error; err != nil {
		return err
	}
	return db.Create(&engines).Error
}

// importLegacy turns V1 widgets into links named by their prefix. Entries
// whose name is blank or already taken are skipped.
func importLegacy(ctx context.Context, tx *gorm.DB, entries []plugin.LegacyEntry) (int, error) {
	s := store{db: tx}
	created := 0
	for _, e := range entries {
		name := strings.TrimSpace(e.Prefix)
		if name == "" {
			continue
		}
		link := Link{
			Name:      name,
			URL:       strings.TrimSpace(e.URL),
			ColorName: strings.TrimSpace(e.ColorName),
		}
		if err := s.saveLink(ctx, &link); err != nil {
			if errors.Is(err, ErrNameTaken) {
				log.Debug("skipping legacy entry", "name", name)
				continue
			}
			return created, err
		}
		created++
	}
	return created, nil
}
