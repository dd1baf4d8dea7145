package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"tryonstudio/dbhelper"
	"tryonstudio/models"
	"tryonstudio/tasks"
	"tryonstudio/test"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupServer(t *testing.T) (*echo.Echo, *test.App) {
	t.Helper()
	db := dbhelper.SetupTestDB()
	t.Cleanup(dbhelper.SetupCleaner(db))
	app := test.NewApp(db)
	e := SetupServer(Services{
		Store:       app.Store,
		Runner:      app.Runner,
		Usage:       app.Usage,
		Costs:       app.Costs,
		Categories:  app.Categories,
		Preferences: app.Preferences,
	})
	return e, app
}

func serve(e *echo.Echo, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
}

func TestWardrobeLifecycle(t *testing.T) {
	e, app := setupServer(t)

	rec := serve(e, test.NewJSONRequest(http.MethodPost, "/api/wardrobe", tasks.UploadWardrobeItemIn{
		Name:     "Linen shirt",
		Category: "Tops",
		Image:    test.Base64Image(64, 48),
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created tasks.ItemDisplay
	decode(t, rec, &created)
	assert.Equal(t, 1, created.TokensUsed)
	assert.True(t, strings.HasPrefix(created.DisplayURL, "data:image/png;base64,"))

	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/wardrobe?category=Tops", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var items []tasks.ItemDisplay
	decode(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, created.ID, items[0].ID)

	path := fmt.Sprintf("/api/wardrobe/%d", created.ID)
	rec = serve(e, test.NewJSONRequest(http.MethodPatch, path, map[string]string{"name": "Shirt", "category": "shoes"}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var edited tasks.ItemDisplay
	decode(t, rec, &edited)
	assert.Equal(t, "Shirt", edited.Name)
	assert.Equal(t, "Shoes", edited.Category)

	rec = serve(e, test.NewJSONRequest(http.MethodPost, path+"/regenerate", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var regenerated tasks.ItemDisplay
	decode(t, rec, &regenerated)
	assert.Equal(t, 2, regenerated.TokensUsed)

	rec = serve(e, test.NewJSONRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(e, test.NewJSONRequest(http.MethodDelete, path, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(e, test.NewJSONRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Len(t, app.Provider.Edits(), 2)
}

func TestEditItemIgnoresPackshot(t *testing.T) {
	e, app := setupServer(t)
	item, err := app.Runner.UploadWardrobeItem(context.Background(), tasks.UploadWardrobeItemIn{Name: "Scarf", Category: "Accessories", Image: test.Base64Image(12, 12)})
	require.NoError(t, err)
	packshot := *item.PackshotImage

	path := fmt.Sprintf("/api/wardrobe/%d", item.ID)
	rec := serve(e, test.NewJSONRequest(http.MethodPatch, path, map[string]string{
		"name":           "Silk scarf",
		"packshot_image": test.Base64Image(4, 4),
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	stored, err := app.Store.GetWardrobeItem(context.Background(), item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Silk scarf", stored.Name)
	assert.Equal(t, packshot, *stored.PackshotImage)
	assert.Equal(t, 1, stored.TokensUsed)
}

func TestErrorMapping(t *testing.T) {
	e, app := setupServer(t)

	rec := serve(e, test.NewJSONRequest(http.MethodPost, "/api/wardrobe", tasks.UploadWardrobeItemIn{
		Name: "Cape", Category: "Capes", Image: test.Base64Image(8, 8),
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/wardrobe", map[string]string{"name": "Cape"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/wardrobe/abc/regenerate", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	app.Provider.EditErr = &models.GenerationError{Operation: "image edit", StatusCode: 429, Message: "Rate limit reached"}
	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/wardrobe", tasks.UploadWardrobeItemIn{
		Name: "Shirt", Category: "Tops", Image: test.Base64Image(8, 8),
	}))
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	var body map[string]string
	decode(t, rec, &body)
	assert.Equal(t, generationFailedMessage, body["error"])
	assert.Equal(t, "Rate limit reached", body["detail"])
}

func TestPhotoUploadForce(t *testing.T) {
	e, app := setupServer(t)
	app.Provider.Outputs["image_validation"] = `{"is_valid":false,"reason":"Face is too small."}`
	in := tasks.UploadProfilePhotoIn{Type: models.Face, Image: test.Base64Image(30, 30)}

	rec := serve(e, test.NewJSONRequest(http.MethodPost, "/api/photos", in))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var out tasks.UploadProfilePhotoOut
	decode(t, rec, &out)
	assert.False(t, out.Validation.IsValid)
	assert.Equal(t, "Face is too small.", out.Validation.Reason)
	assert.Nil(t, out.Photo)

	in.Force = true
	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/photos", in))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/photos?type=face", nil))
	var photos []models.ProfilePhoto
	decode(t, rec, &photos)
	assert.Len(t, photos, 1)

	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/photos", map[string]string{"type": "side", "image": test.Base64Image(4, 4)}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCompositionRoutes(t *testing.T) {
	e, app := setupServer(t)
	ctx := context.Background()
	item, err := app.Runner.UploadWardrobeItem(ctx, tasks.UploadWardrobeItemIn{Name: "Skirt", Category: "Bottoms", Image: test.Base64Image(20, 20)})
	require.NoError(t, err)
	photo, err := app.Runner.UploadProfilePhoto(ctx, tasks.UploadProfilePhotoIn{Type: models.FullBody, Image: test.Base64Image(20, 40)})
	require.NoError(t, err)

	rec := serve(e, test.NewJSONRequest(http.MethodPost, "/api/compositions", tasks.GenerateCompositionIn{
		ProfilePhotoID: photo.Photo.ID,
		Selection:      map[string]uint{"Bottoms": item.ID},
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var composition models.Composition
	decode(t, rec, &composition)
	assert.Equal(t, "Skirt", composition.Name)

	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/compositions", tasks.GenerateCompositionIn{
		ProfilePhotoID: photo.Photo.ID,
		Selection:      map[string]uint{},
	}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/compositions", nil))
	var compositions []models.Composition
	decode(t, rec, &compositions)
	assert.Len(t, compositions, 1)
}

func TestListCompositionsByProfilePhoto(t *testing.T) {
	e, app := setupServer(t)
	ctx := context.Background()
	item, err := app.Runner.UploadWardrobeItem(ctx, tasks.UploadWardrobeItemIn{Name: "Skirt", Category: "Bottoms", Image: test.Base64Image(20, 20)})
	require.NoError(t, err)
	full, err := app.Runner.UploadProfilePhoto(ctx, tasks.UploadProfilePhotoIn{Type: models.FullBody, Image: test.Base64Image(20, 40)})
	require.NoError(t, err)
	torso, err := app.Runner.UploadProfilePhoto(ctx, tasks.UploadProfilePhotoIn{Type: models.Torso, Image: test.Base64Image(20, 20)})
	require.NoError(t, err)
	for _, photoID := range []uint{full.Photo.ID, full.Photo.ID, torso.Photo.ID} {
		_, err := app.Runner.GenerateComposition(ctx, tasks.GenerateCompositionIn{
			ProfilePhotoID: photoID,
			Selection:      map[string]uint{"Bottoms": item.ID},
		})
		require.NoError(t, err)
	}

	rec := serve(e, test.NewJSONRequest(http.MethodGet, fmt.Sprintf("/api/compositions?profile_photo_id=%d", full.Photo.ID), nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var compositions []models.Composition
	decode(t, rec, &compositions)
	require.Len(t, compositions, 2)
	for _, composition := range compositions {
		assert.Equal(t, full.Photo.ID, composition.ProfilePhotoID)
	}

	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/compositions?profile_photo_id=9999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/compositions?profile_photo_id=abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSettingsRoutes(t *testing.T) {
	e, app := setupServer(t)

	rec := serve(e, test.NewJSONRequest(http.MethodGet, "/api/settings", nil))
	var settings SettingsResponse
	decode(t, rec, &settings)
	assert.True(t, settings.HasCredential)
	assert.Equal(t, models.QualityLow, settings.Quality)
	assert.False(t, settings.OnboardingSeen)

	rec = serve(e, test.NewJSONRequest(http.MethodPut, "/api/settings/quality", QualityIn{Quality: "ultra"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = serve(e, test.NewJSONRequest(http.MethodPut, "/api/settings/quality", QualityIn{Quality: models.QualityMedium}))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/settings/onboarding", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	app.Provider.Models = 0
	rec = serve(e, test.NewJSONRequest(http.MethodPut, "/api/settings/credential", CredentialIn{APIKey: "sk-other"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/settings", nil))
	decode(t, rec, &settings)
	assert.True(t, settings.HasCredential)
	assert.Equal(t, models.QualityMedium, settings.Quality)
	assert.True(t, settings.OnboardingSeen)

	rec = serve(e, test.NewJSONRequest(http.MethodDelete, "/api/settings/credential", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/costs", nil))
	assert.Equal(t, http.StatusPreconditionRequired, rec.Code)
}

func TestCategoryRoutes(t *testing.T) {
	e, _ := setupServer(t)

	rec := serve(e, test.NewJSONRequest(http.MethodPost, "/api/categories", CategoryIn{Name: "Swimwear"}))
	require.Equal(t, http.StatusOK, rec.Code)
	var categories []string
	decode(t, rec, &categories)
	assert.Equal(t, "Swimwear", categories[len(categories)-1])

	rec = serve(e, test.NewJSONRequest(http.MethodDelete, "/api/categories/Swimwear", nil))
	decode(t, rec, &categories)
	assert.NotContains(t, categories, "Swimwear")

	rec = serve(e, test.NewJSONRequest(http.MethodPut, "/api/categories", ReorderCategoriesIn{Categories: []string{"Shoes", "shoes"}}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = serve(e, test.NewJSONRequest(http.MethodPut, "/api/categories", ReorderCategoriesIn{Categories: []string{"Shoes", "Tops"}}))
	decode(t, rec, &categories)
	assert.Equal(t, []string{"Shoes", "Tops"}, categories)
}

func TestUsageAndCostRoutes(t *testing.T) {
	e, app := setupServer(t)
	_, err := app.Runner.UploadWardrobeItem(context.Background(), tasks.UploadWardrobeItemIn{Name: "Shirt", Category: "Tops", Image: test.Base64Image(8, 8)})
	require.NoError(t, err)

	rec := serve(e, test.NewJSONRequest(http.MethodGet, "/api/usage", nil))
	var usage UsageResponse
	decode(t, rec, &usage)
	assert.Equal(t, int64(1210), usage.Total)

	rec = serve(e, test.NewJSONRequest(http.MethodPost, "/api/usage/reset", nil))
	decode(t, rec, &usage)
	assert.Equal(t, int64(0), usage.Total)

	for i := 0; i < 2; i++ {
		rec = serve(e, test.NewJSONRequest(http.MethodGet, "/api/costs", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		var cost CostResponse
		decode(t, rec, &cost)
		assert.Equal(t, 12.5, cost.Amount)
		assert.False(t, cost.Unavailable)
		assert.NotNil(t, cost.CapturedAt)
	}
	assert.Equal(t, 1, app.Billing.Calls)
}

func TestLiveFeed(t *testing.T) {
	e, app := setupServer(t)
	server := httptest.NewServer(e)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/live/wardrobeItems"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	read := func() []tasks.ItemDisplay {
		require.NoError(t, ws.SetReadDeadline(time.Now().Add(5*time.Second)))
		var msg struct {
			Collection string              `json:"collection"`
			Items      []tasks.ItemDisplay `json:"items"`
		}
		require.NoError(t, ws.ReadJSON(&msg))
		assert.Equal(t, "wardrobeItems", msg.Collection)
		return msg.Items
	}

	assert.Empty(t, read())

	item, err := app.Runner.UploadWardrobeItem(context.Background(), tasks.UploadWardrobeItemIn{Name: "Shirt", Category: "Tops", Image: test.Base64Image(8, 8)})
	require.NoError(t, err)
	items := read()
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	rec := serve(e, test.NewJSONRequest(http.MethodGet, "/api/live/unknown", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
