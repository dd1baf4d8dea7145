package controllers

import (
	"net/http"

	"tryonstudio/models"
	"tryonstudio/services"

	"github.com/labstack/echo/v4"
)

type CategoryIn struct {
	Name string `json:"name" validate:"required,max=100"`
}

type ReorderCategoriesIn struct {
	Categories []string `json:"categories" validate:"required,min=1,dive,required,max=100"`
}

type CredentialIn struct {
	APIKey string `json:"api_key" validate:"required"`
}

type QualityIn struct {
	Quality models.Quality `json:"quality" validate:"required,quality"`
}

type SettingsResponse struct {
	HasCredential  bool           `json:"has_credential"`
	Quality        models.Quality `json:"quality"`
	OnboardingSeen bool           `json:"onboarding_seen"`
}

type SettingsController struct {
	Categories  *services.CategoryService
	Preferences *services.Preferences
}

func (controller *SettingsController) CategoryRoutes(g *echo.Group) {
	g.GET("", controller.ListCategories)
	g.POST("", controller.AddCategory)
	g.PUT("", controller.ReorderCategories)
	g.DELETE("/:name", controller.RemoveCategory)
}

func (controller *SettingsController) SettingsRoutes(g *echo.Group) {
	g.GET("", controller.GetSettings)
	g.PUT("/credential", controller.SaveCredential)
	g.DELETE("/credential", controller.ClearCredential)
	g.PUT("/quality", controller.SetQuality)
	g.POST("/onboarding", controller.MarkOnboardingSeen)
	g.DELETE("/onboarding", controller.ResetOnboarding)
}

func (controller *SettingsController) ListCategories(c echo.Context) error {
	categories, err := controller.Categories.List(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (controller *SettingsController) AddCategory(c echo.Context) error {
	var req CategoryIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	categories, err := controller.Categories.Add(c.Request().Context(), req.Name)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (controller *SettingsController) ReorderCategories(c echo.Context) error {
	var req ReorderCategoriesIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	categories, err := controller.Categories.Reorder(c.Request().Context(), req.Categories)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (controller *SettingsController) RemoveCategory(c echo.Context) error {
	categories, err := controller.Categories.Remove(c.Request().Context(), c.Param("name"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, categories)
}

func (controller *SettingsController) GetSettings(c echo.Context) error {
	ctx := c.Request().Context()
	credential, err := controller.Preferences.Credential(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	quality, err := controller.Preferences.Quality(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	seen, err := controller.Preferences.OnboardingSeen(ctx)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, SettingsResponse{
		HasCredential:  credential != "",
		Quality:        quality,
		OnboardingSeen: seen,
	})
}

func (controller *SettingsController) SaveCredential(c echo.Context) error {
	var req CredentialIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := controller.Preferences.SaveCredential(c.Request().Context(), req.APIKey); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *SettingsController) ClearCredential(c echo.Context) error {
	if err := controller.Preferences.ClearCredential(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *SettingsController) SetQuality(c echo.Context) error {
	var req QualityIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	if err := controller.Preferences.SetQuality(c.Request().Context(), req.Quality); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *SettingsController) MarkOnboardingSeen(c echo.Context) error {
	if err := controller.Preferences.MarkOnboardingSeen(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (controller *SettingsController) ResetOnboarding(c echo.Context) error {
	if err := controller.Preferences.ResetOnboarding(c.Request().Context()); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
