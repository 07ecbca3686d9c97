package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"gorm.io/gorm"
)

var (
	// ErrLinkNotFound is returned for an unknown link id.
	ErrLinkNotFound = errors.New("link not found")
	// ErrEngineNotFound is returned for an unknown search engine id.
	ErrEngineNotFound = errors.New("search engine not found")
	// ErrNameTaken is returned when a link or engine name is already used.
	ErrNameTaken = errors.New("name already in use")
)

// Link is a bookmark shown by the links widget.
type Link struct {
	ID        uint    `gorm:"primarykey"`
	Name      string  `gorm:"size:128;uniqueIndex;not null"`
	URL       string  `gorm:"type:text;not null"`
	ColorName string  `gorm:"size:128;not null"`
	IconName  *string `gorm:"size:128"`
}

func (Link) TableName() string { return "core__link" }

// SearchMethod is the HTTP method a search engine expects.
type SearchMethod string

const (
	SearchMethodGet  SearchMethod = "GET"
	SearchMethodPost SearchMethod = "POST"
)

// ParseSearchMethod accepts GET or POST in any case.
func ParseSearchMethod(s string) (SearchMethod, error) {
	switch m := SearchMethod(strings.ToUpper(strings.TrimSpace(s))); m {
	case SearchMethodGet, SearchMethodPost:
		return m, nil
	default:
		return "", fmt.Errorf("unknown search method %q", s)
	}
}

// SearchEngine is a target of the search widget.
type SearchEngine struct {
	ID         uint         `gorm:"primarykey"`
	Name       string       `gorm:"size:128;uniqueIndex;not null"`
	URL        string       `gorm:"type:text;not null"`
	QueryParam string       `gorm:"size:128;not null"`
	Method     SearchMethod `gorm:"size:4;not null"`
}

func (SearchEngine) TableName() string { return "core__searchengine" }

// store wraps the queries of the plugin so they can run on a transaction.
type store struct {
	db *gorm.DB
}

func (s store) links(ctx context.Context) ([]Link, error) {
	var links []Link
	if err := s.db.WithContext(ctx).Order("name").Find(&links).Error; err != nil {
		log.Error("failed to list links", "error", err)
		return nil, err
	}
	return links, nil
}

// linksByIDs returns the existing links among ids, sorted by name.
func (s store) linksByIDs(ctx context.Context, ids []uint) ([]Link, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var links []Link
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Order("name").Find(&links).Error; err != nil {
		log.Error("failed to get links", "error", err)
		return nil, err
	}
	return links, nil
}

func (s store) link(ctx context.Context, id uint) (*Link, error) {
	var link Link
	if err := s.db.WithContext(ctx).First(&link, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		log.Error("failed to get link", "id", id, "error", err)
		return nil, err
	}
	return &link, nil
}

// saveLink creates the link or updates it when it has an id.
func (s store) saveLink(ctx context.Context, link *Link) error {
	if err := s.checkName(ctx, &Link{}, link.ID, link.Name); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(link).Error; err != nil {
		log.Error("failed to save link", "name", link.Name, "error", err)
		return err
	}
	return nil
}

func (s store) deleteLink(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&Link{}, id)
	if res.Error != nil {
		log.Error("failed to delete link", "id", id, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (s store) engines(ctx context.Context) ([]SearchEngine, error) {
	var engines []SearchEngine
	if err := s.db.WithContext(ctx).Order("name").Find(&engines).Error; err != nil {
		log.Error("failed to list search engines", "error", err)
		return nil, err
	}
	return engines, nil
}

func (s store) engine(ctx context.Context, id uint) (*SearchEngine, error) {
	var engine SearchEngine
	if err := s.db.WithContext(ctx).First(&engine, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEngineNotFound
		}
		log.Error("failed to get search engine", "id", id, "error", err)
		return nil, err
	}
	return &engine, nil
}

func (s store) saveEngine(ctx context.Context, engine *SearchEngine) error {
	if err := s.checkName(ctx, &SearchEngine{}, engine.ID, engine.Name); err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Save(engine).Error; err != nil {
		log.Error("failed to save search engine", "name", engine.Name, "error", err)
		return err
	}
	return nil
}

func (s store) deleteEngine(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&SearchEngine{}, id)
	if res.Error != nil {
		log.Error("failed to delete search engine", "id", id, "error", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrEngineNotFound
	}
	return nil
}

// checkName fails with ErrNameTaken when another row of model uses name.
func (s store) checkName(ctx context.Context, model any, id uint, name string) error {
	var count int64
	q := s.db.WithContext(ctx).Model(model).Where("name = ?", name)
	if id != 0 {
		q = q.Where("id <> ?", id)
	}
	if err := q.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", ErrNameTaken, name)
	}
	return nil
}
