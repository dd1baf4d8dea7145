package controllers

import (
	"net/http"

	"tryonstudio/models"
	"tryonstudio/services"
	"tryonstudio/store"
	"tryonstudio/tasks"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

// Services is everything the HTTP layer talks to.
type Services struct {
	Store       *store.EntityStore
	Runner      *tasks.Runner
	Usage       *services.UsageService
	Costs       *services.CostService
	Categories  *services.CategoryService
	Preferences *services.Preferences
}

func SetupServer(s Services) *echo.Echo {
	e := echo.New()
	v := validator.New()
	v.RegisterValidation("phototype", models.ValidatePhotoType)
	v.RegisterValidation("quality", models.ValidateQuality)
	e.Validator = &CustomValidator{validator: v}

	e.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set("__preferences", s.Preferences)
			return next(c)
		}
	})
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept},
	}))

	api := e.Group("/api")

	wardrobeController := WardrobeController{Store: s.Store, Runner: s.Runner}
	wardrobeController.WardrobeRoutes(api.Group("/wardrobe"))

	photoController := PhotoController{Store: s.Store, Runner: s.Runner}
	photoController.PhotoRoutes(api.Group("/photos"))

	compositionController := CompositionController{Store: s.Store, Runner: s.Runner}
	compositionController.CompositionRoutes(api.Group("/compositions"))

	settingsController := SettingsController{Categories: s.Categories, Preferences: s.Preferences}
	settingsController.CategoryRoutes(api.Group("/categories"))
	settingsController.SettingsRoutes(api.Group("/settings"))

	usageController := UsageController{Usage: s.Usage, Costs: s.Costs}
	usageController.UsageRoutes(api.Group("/usage"))
	usageController.CostRoutes(api.Group("/costs", CredentialMiddleware))

	liveController := LiveController{Store: s.Store}
	liveController.LiveRoutes(api.Group("/live"))

	return e
}
