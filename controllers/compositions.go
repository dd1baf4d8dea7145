package controllers

import (
	"net/http"

	"tryonstudio/models"
	"tryonstudio/store"
	"tryonstudio/tasks"

	"github.com/labstack/echo/v4"
)

type CompositionController struct {
	Store  *store.EntityStore
	Runner *tasks.Runner
}

func (controller *CompositionController) CompositionRoutes(g *echo.Group) {
	g.GET("", controller.ListCompositions)
	g.POST("", controller.GenerateComposition)
	g.GET("/:id", controller.GetComposition)
	g.DELETE("/:id", controller.DeleteComposition)
}

func (controller *CompositionController) ListCompositions(c echo.Context) error {
	ctx := c.Request().Context()
	if c.QueryParam("profile_photo_id") == "" {
		compositions, err := controller.Store.ListCompositions(ctx)
		if err != nil {
			return errorResponse(c, err)
		}
		return c.JSON(http.StatusOK, compositions)
	}

	var photoID uint
	if err := echo.QueryParamsBinder(c).Uint("profile_photo_id", &photoID).BindError(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "profile_photo_id must be a positive integer")
	}
	exists, err := controller.Store.Exists(ctx, store.ProfilePhotos, photoID)
	if err != nil {
		return errorResponse(c, err)
	}
	if !exists {
		return errorResponse(c, &models.NotFoundError{Collection: string(store.ProfilePhotos), ID: photoID})
	}
	compositions, err := controller.Store.ListCompositionsByProfilePhoto(ctx, photoID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, compositions)
}

func (controller *CompositionController) GetComposition(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	composition, err := controller.Store.GetComposition(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, composition)
}

func (controller *CompositionController) GenerateComposition(c echo.Context) error {
	var req tasks.GenerateCompositionIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	composition, err := controller.Runner.GenerateComposition(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, composition)
}

func (controller *CompositionController) DeleteComposition(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := controller.Runner.DeleteComposition(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
