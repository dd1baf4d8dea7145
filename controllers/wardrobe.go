package controllers

import (
	"net/http"

	"tryonstudio/models"
	"tryonstudio/store"
	"tryonstudio/tasks"

	"github.com/labstack/echo/v4"
)

type AnalyzeItemIn struct {
	Image string `json:"image" validate:"required"`
}

type WardrobeController struct {
	Store  *store.EntityStore
	Runner *tasks.Runner
}

func (controller *WardrobeController) WardrobeRoutes(g *echo.Group) {
	g.GET("", controller.ListItems)
	g.POST("", controller.UploadItem)
	g.POST("/analyze", controller.AnalyzeItem)
	g.GET("/:id", controller.GetItem)
	g.PATCH("/:id", controller.EditItem)
	g.POST("/:id/regenerate", controller.RegeneratePackshot)
	g.DELETE("/:id", controller.DeleteItem)
}

func displays(items []models.WardrobeItem) []tasks.ItemDisplay {
	out := make([]tasks.ItemDisplay, 0, len(items))
	for _, item := range items {
		out = append(out, tasks.NewItemDisplay(item))
	}
	return out
}

// ListItems returns items newest first, optionally filtered by ?category=.
func (controller *WardrobeController) ListItems(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		items []models.WardrobeItem
		err   error
	)
	if category := c.QueryParam("category"); category != "" {
		items, err = controller.Store.ListWardrobeItemsByCategory(ctx, category)
	} else {
		items, err = controller.Store.ListWardrobeItems(ctx)
	}
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, displays(items))
}

func (controller *WardrobeController) GetItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	item, err := controller.Store.GetWardrobeItem(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, tasks.NewItemDisplay(*item))
}

func (controller *WardrobeController) UploadItem(c echo.Context) error {
	var req tasks.UploadWardrobeItemIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	item, err := controller.Runner.UploadWardrobeItem(c.Request().Context(), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, tasks.NewItemDisplay(*item))
}

func (controller *WardrobeController) AnalyzeItem(c echo.Context) error {
	var req AnalyzeItemIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	metadata, err := controller.Runner.AnalyzeItem(c.Request().Context(), req.Image)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, metadata)
}

func (controller *WardrobeController) EditItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req tasks.EditWardrobeItemIn
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	item, err := controller.Runner.EditWardrobeItem(c.Request().Context(), id, req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, tasks.NewItemDisplay(*item))
}

func (controller *WardrobeController) RegeneratePackshot(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	item, err := controller.Runner.RegeneratePackshot(c.Request().Context(), id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, tasks.NewItemDisplay(*item))
}

func (controller *WardrobeController) DeleteItem(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := controller.Runner.DeleteWardrobeItem(c.Request().Context(), id); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
