package store

import (
	"context"
	"testing"

	"tryonstudio/dbhelper"
	"tryonstudio/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettingsRoundTrip(t *testing.T) {
	db := dbhelper.SetupTestDB()
	defer dbhelper.SetupCleaner(db)()
	settings := NewSettings(db)
	ctx := context.Background()

	var categories []string
	found, err := settings.Get(ctx, models.SettingCategories, &categories)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, settings.Put(ctx, models.SettingCategories, []string{"Tops", "Shoes"}))
	require.NoError(t, settings.Put(ctx, models.SettingCategories, []string{"Shoes", "Tops", "Hats"}))

	found, err = settings.Get(ctx, models.SettingCategories, &categories)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []string{"Shoes", "Tops", "Hats"}, categories)

	require.NoError(t, settings.Delete(ctx, models.SettingCategories))
	require.NoError(t, settings.Delete(ctx, models.SettingCategories))
	found, err = settings.Get(ctx, models.SettingCategories, &categories)
	require.NoError(t, err)
	assert.False(t, found)
}
