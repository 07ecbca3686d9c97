package database

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	_, err := c.GetSetting(ctx, "BRANDING")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.UpsertSetting(ctx, "BRANDING", json.RawMessage(`{"title":"Portal"}`)))
	require.NoError(t, c.UpsertSetting(ctx, "BRANDING", json.RawMessage(`{"title":"Home"}`)))

	value, err := c.GetSetting(ctx, "BRANDING")
	require.NoError(t, err)
	assert.JSONEq(t, `{"title":"Home"}`, string(value))

	require.NoError(t, c.DeleteSettings(ctx, "BRANDING", "missing"))
	_, err = c.GetSetting(ctx, "BRANDING")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, c.DeleteSettings(ctx))
}

func TestListSettingKeys(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	for _, key := range []string{
		"plugin__core_links",
		"plugin__core_extras_theme",
		"plugin__coreXlinks",
		"PORTAL_SECURED",
	} {
		require.NoError(t, c.UpsertSetting(ctx, key, json.RawMessage(`true`)))
	}

	keys, err := c.ListSettingKeys(ctx, "plugin__core_")
	require.NoError(t, err)
	assert.Equal(t, []string{"plugin__core_extras_theme", "plugin__core_links"}, keys)

	keys, err = c.ListSettingKeys(ctx, "nothing")
	require.NoError(t, err)
	assert.Empty(t, keys)
}
