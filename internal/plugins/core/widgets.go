package core

import (
	"context"
	"errors"
	"fmt"
	"html/template"

	"github.com/enchant97/web-portal/internal/plugin"
)

// LinksConfig is the config of a links widget.
type LinksConfig struct {
	Links     []uint `json:"links"`
	IsCompact bool   `json:"is_compact"`
}

// SearchConfig is the config of a search widget.
type SearchConfig struct {
	EngineID uint `json:"engine_id,omitempty"`
}

const noEngineSelected = "No search engine selected..."

func (p *Plugin) render(ctx context.Context, req plugin.RenderRequest) (template.HTML, error) {
	switch req.Kind {
	case "clock":
		return execute("widget-clock", req)
	case "links":
		return p.renderLinks(ctx, req)
	case "search":
		return p.renderSearch(ctx, req)
	default:
		return "", fmt.Errorf("%w: %s", plugin.ErrUnknownWidgetKind, req.Kind)
	}
}

func (p *Plugin) renderLinks(ctx context.Context, req plugin.RenderRequest) (template.HTML, error) {
	var cfg LinksConfig
	if err := plugin.DecodeConfig(req.Config, &cfg); err != nil {
		return "", err
	}
	// deleted links are skipped
	links, err := p.store.linksByIDs(ctx, cfg.Links)
	if err != nil {
		return "", err
	}
	return execute("widget-links", map[string]any{
		"Config": cfg,
		"Links":  links,
		"NewTab": p.settings(ctx).OpenToNewTab,
	})
}

func (p *Plugin) renderSearch(ctx context.Context, req plugin.RenderRequest) (template.HTML, error) {
	var cfg SearchConfig
	if err := plugin.DecodeConfig(req.Config, &cfg); err != nil {
		return "", err
	}
	if cfg.EngineID == 0 {
		return noEngineSelected, nil
	}
	engine, err := p.store.engine(ctx, cfg.EngineID)
	if errors.Is(err, ErrEngineNotFound) {
		return noEngineSelected, nil
	}
	if err != nil {
		return "", err
	}
	return execute("widget-search", map[string]any{
		"Name":       engine.Name,
		"URL":        engine.URL,
		"Method":     engine.Method,
		"QueryParam": engine.QueryParam,
		"NewTab":     p.settings(ctx).OpenToNewTab,
	})
}

const noEditorAvailable = "No editor available"

func (p *Plugin) renderEdit(ctx context.Context, req plugin.EditRequest) (template.HTML, error) {
	switch req.Kind {
	case "clock":
		return noEditorAvailable, nil
	case "links":
		var cfg LinksConfig
		if err := plugin.DecodeConfig(req.Config, &cfg); err != nil {
			return "", err
		}
		links, err := p.store.links(ctx)
		if err != nil {
			return "", err
		}
		added, err := p.store.linksByIDs(ctx, cfg.Links)
		if err != nil {
			return "", err
		}
		return execute("edit-links", map[string]any{
			"WidgetID": req.WidgetID,
			"BackTo":   req.BackTo,
			"Config":   cfg,
			"Links":    links,
			"Added":    orderLinks(added, cfg.Links),
		})
	case "search":
		var cfg SearchConfig
		if err := plugin.DecodeConfig(req.Config, &cfg); err != nil {
			return "", err
		}
		engines, err := p.store.engines(ctx)
		if err != nil {
			return "", err
		}
		return execute("edit-search", map[string]any{
			"WidgetID": req.WidgetID,
			"BackTo":   req.BackTo,
			"Engines":  engines,
			"Current":  cfg.EngineID,
		})
	default:
		return "", fmt.Errorf("%w: %s", plugin.ErrUnknownWidgetKind, req.Kind)
	}
}

// addedLink is a link of a widget with its position in the config.
type addedLink struct {
	Index int
	Link
}

// orderLinks returns links in the order of ids. Missing links are skipped
// but the remaining ones keep their config index.
func orderLinks(links []Link, ids []uint) []addedLink {
	byID := make(map[uint]Link, len(links))
	for _, l := range links {
		byID[l.ID] = l
	}
	out := make([]addedLink, 0, len(ids))
	for i, id := range ids {
		if l, ok := byID[id]; ok {
			out = append(out, addedLink{Index: i, Link: l})
		}
	}
	return out
}
